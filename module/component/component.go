// Package component manages the lifecycle of long-running workers: a
// component is started once, signals readiness when all of its workers have
// come up, and closes its done channel once all of them have exited.
package component

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/kestrelchain/kestrel-go/module/irrecoverable"
)

// Component can be started once and observed through its Ready and Done
// channels. After Start, Done must eventually close, whether through a
// graceful shutdown or an irrecoverable error.
type Component interface {
	Start(ctx irrecoverable.SignalerContext)
	Ready() <-chan struct{}
	Done() <-chan struct{}
}

// ReadyFunc is called by a worker to signal that it has come up. The
// manager's Ready channel closes once every worker has called it.
type ReadyFunc func()

// Worker is one goroutine of a component. It must call ready once it is
// operational and return when ctx is cancelled. Errors it cannot recover
// from are escalated with ctx.Throw.
type Worker func(ctx irrecoverable.SignalerContext, ready ReadyFunc)

// ComponentManagerBuilder assembles the workers of a ComponentManager.
type ComponentManagerBuilder struct {
	workers []Worker
}

// NewComponentManagerBuilder returns an empty builder.
func NewComponentManagerBuilder() *ComponentManagerBuilder {
	return &ComponentManagerBuilder{}
}

// AddWorker appends a worker routine to the component under construction.
func (b *ComponentManagerBuilder) AddWorker(w Worker) *ComponentManagerBuilder {
	b.workers = append(b.workers, w)
	return b
}

// Build returns a ComponentManager running the accumulated workers.
func (b *ComponentManagerBuilder) Build() *ComponentManager {
	return &ComponentManager{
		started: atomic.NewBool(false),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		workers: b.workers,
	}
}

var _ Component = (*ComponentManager)(nil)

// ComponentManager implements Component over a fixed set of workers.
type ComponentManager struct {
	started *atomic.Bool
	ready   chan struct{}
	done    chan struct{}
	workers []Worker
}

// Start launches all workers. Calling Start more than once panics.
func (c *ComponentManager) Start(ctx irrecoverable.SignalerContext) {
	if !c.started.CompareAndSwap(false, true) {
		panic("component manager started more than once")
	}

	var workersDone sync.WaitGroup
	var workersReady sync.WaitGroup
	workersDone.Add(len(c.workers))
	workersReady.Add(len(c.workers))

	for _, worker := range c.workers {
		worker := worker
		var readyOnce sync.Once
		ready := func() {
			readyOnce.Do(workersReady.Done)
		}
		go func() {
			defer workersDone.Done()
			worker(ctx, ready)
		}()
	}

	go func() {
		workersReady.Wait()
		close(c.ready)
	}()
	go func() {
		workersDone.Wait()
		close(c.done)
	}()
}

// Ready closes once every worker has signalled readiness.
func (c *ComponentManager) Ready() <-chan struct{} {
	return c.ready
}

// Done closes once every worker has returned.
func (c *ComponentManager) Done() <-chan struct{} {
	return c.done
}
