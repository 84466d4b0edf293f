// Package fifoqueue provides a bounded FIFO queue used to buffer events
// between producers and a consuming worker.
package fifoqueue

import (
	"fmt"
	"math"
	"sync"

	"github.com/ef-ds/deque"
)

// FifoQueue is a FIFO queue with a max capacity. Elements pushed beyond the
// capacity are rejected. Each length change is reported to the optional
// length observer.
//
// The queue is concurrency safe. The length observer must be non-blocking.
type FifoQueue struct {
	mu             sync.Mutex
	queue          deque.Deque
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// ConstructorOption configures properties of a FifoQueue at construction.
type ConstructorOption func(*FifoQueue) error

// QueueLengthObserver is called with the new length each time it changes.
type QueueLengthObserver func(int)

// WithCapacity bounds the number of elements the queue can hold. The default
// capacity is the largest int value.
func WithCapacity(capacity int) ConstructorOption {
	return func(q *FifoQueue) error {
		if capacity < 1 {
			return fmt.Errorf("capacity for fifo queue must be positive")
		}
		q.maxCapacity = capacity
		return nil
	}
}

// WithLengthObserver registers the callback invoked on every length change.
func WithLengthObserver(callback QueueLengthObserver) ConstructorOption {
	return func(q *FifoQueue) error {
		if callback == nil {
			return fmt.Errorf("length observer must not be nil")
		}
		q.lengthObserver = callback
		return nil
	}
}

// NewFifoQueue constructs a queue with the given options.
func NewFifoQueue(options ...ConstructorOption) (*FifoQueue, error) {
	q := &FifoQueue{
		maxCapacity:    math.MaxInt,
		lengthObserver: func(int) {},
	}
	for _, opt := range options {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Push appends the element to the queue. It returns false if the queue is at
// capacity and the element was dropped.
func (q *FifoQueue) Push(element interface{}) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queue.Len() >= q.maxCapacity {
		return false
	}
	q.queue.PushBack(element)
	q.lengthObserver(q.queue.Len())
	return true
}

// Pop removes and returns the head of the queue, or false if it is empty.
func (q *FifoQueue) Pop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	element, ok := q.queue.PopFront()
	if !ok {
		return nil, false
	}
	q.lengthObserver(q.queue.Len())
	return element, true
}

// Len returns the number of queued elements.
func (q *FifoQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}
