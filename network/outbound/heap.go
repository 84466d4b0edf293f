package outbound

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// entry is one pending send on a link. Entries move Pending -> InFlight ->
// Delivered/Failed; once admitted an entry is delivered or explicitly
// failed, never silently dropped.
type entry struct {
	msg  *overlay.Message
	prec overlay.Precedence

	// order is the queue-wide submission counter, breaking precedence ties
	// in fifo order.
	order uint64

	// index of the entry in the heap, maintained by the heap.Interface
	// methods.
	index int
}

// pendingHeap implements heap.Interface over a link's outstanding sends,
// keyed by (precedence desc, submit order asc).
//
// Not concurrency safe; the owning link's lock must be held.
type pendingHeap []*entry

func (ph pendingHeap) Len() int { return len(ph) }

func (ph pendingHeap) Less(i, j int) bool {
	// Pop must yield the highest precedence, so greater-than here.
	if ph[i].prec > ph[j].prec {
		return true
	}
	if ph[i].prec < ph[j].prec {
		return false
	}
	// equal precedence dispatches in submission order
	return ph[i].order < ph[j].order
}

func (ph pendingHeap) Swap(i, j int) {
	ph[i], ph[j] = ph[j], ph[i]
	ph[i].index = i
	ph[j].index = j
}

func (ph *pendingHeap) Push(x interface{}) {
	n := len(*ph)
	e := x.(*entry)
	e.index = n
	*ph = append(*ph, e)
}

func (ph *pendingHeap) Pop() interface{} {
	old := *ph
	n := len(old)
	e := old[n-1]
	old[n-1] = nil  // avoid memory leak
	e.index = -1    // for safety
	*ph = old[0 : n-1]
	return e
}
