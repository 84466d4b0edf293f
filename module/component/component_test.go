package component

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchain/kestrel-go/module/irrecoverable"
)

func TestLifecycle(t *testing.T) {
	started := make(chan struct{}, 2)
	cm := NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready ReadyFunc) {
			started <- struct{}{}
			ready()
			<-ctx.Done()
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready ReadyFunc) {
			started <- struct{}{}
			ready()
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	sctx, _ := irrecoverable.WithSignaler(ctx)
	cm.Start(sctx)

	select {
	case <-cm.Ready():
	case <-time.After(time.Second):
		t.Fatal("manager did not become ready")
	}
	require.Len(t, started, 2)

	cancel()
	select {
	case <-cm.Done():
	case <-time.After(time.Second):
		t.Fatal("manager did not shut down")
	}
}

func TestStartTwicePanics(t *testing.T) {
	cm := NewComponentManagerBuilder().Build()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sctx, _ := irrecoverable.WithSignaler(ctx)
	cm.Start(sctx)
	require.Panics(t, func() { cm.Start(sctx) })
}

func TestWorkerThrowsIrrecoverable(t *testing.T) {
	cm := NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready ReadyFunc) {
			ready()
			ctx.Throw(errTest)
		}).
		Build()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sctx, errChan := irrecoverable.WithSignaler(ctx)
	cm.Start(sctx)

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, errTest)
	case <-time.After(time.Second):
		t.Fatal("irrecoverable error was not escalated")
	}
	// Throw terminates the worker goroutine, so the component drains
	select {
	case <-cm.Done():
	case <-time.After(time.Second):
		t.Fatal("manager did not drain after throw")
	}
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "test error" }
