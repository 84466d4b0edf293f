package unittest

import (
	"context"
	"testing"

	"github.com/kestrelchain/kestrel-go/module/irrecoverable"
)

// FailOnIrrecoverable derives a SignalerContext that fails the test if any
// component throws an irrecoverable error through it.
func FailOnIrrecoverable(t *testing.T, parent context.Context) (irrecoverable.SignalerContext, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(parent)
	sctx, errChan := irrecoverable.WithSignaler(ctx)
	go func() {
		select {
		case err := <-errChan:
			if err != nil {
				t.Errorf("unexpected irrecoverable error: %v", err)
			}
		case <-ctx.Done():
		}
	}()
	return sctx, cancel
}
