package outbound

import (
	"container/heap"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/network/policy"
)

// link is the pairing of a peer with its per-peer queue and dispatch state.
// Every pending entry is owned by exactly one link.
type link struct {
	peer        overlay.Peer
	maxInFlight uint

	// limiter is nil when the link's dequeue rule carries no rate limit.
	limiter *rate.Limiter

	mu           sync.Mutex
	pending      pendingHeap
	byPrec       [overlay.NumPrecedences]uint
	inFlight     uint
	suspendUntil map[overlay.MessageKind]time.Time
	removed      bool

	// notify wakes the link's dispatcher. The single-slot buffer covers the
	// window between the dispatcher observing an empty heap and blocking on
	// the channel again.
	notify chan struct{}
}

func newLink(peer overlay.Peer, rule policy.DequeueRule) *link {
	l := &link{
		peer:         peer,
		maxInFlight:  rule.MaxInFlight,
		suspendUntil: make(map[overlay.MessageKind]time.Time),
		notify:       make(chan struct{}, 1),
	}
	if rule.RateLimit.Limited() {
		perSec := rule.RateLimit.MsgPerSec
		l.limiter = rate.NewLimiter(rate.Limit(perSec), int(perSec))
	}
	return l
}

// signal wakes the dispatcher if it is not already pending a wake-up.
func (l *link) signal() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// suspended returns whether sends of the kind are inside their
// reconsider-after window. Caller must hold l.mu.
func (l *link) suspended(kind overlay.MessageKind, now time.Time) bool {
	until, ok := l.suspendUntil[kind]
	return ok && now.Before(until)
}

// higherPrecCount returns the number of pending entries with precedence
// strictly greater than p. Caller must hold l.mu.
func (l *link) higherPrecCount(p overlay.Precedence) uint {
	var n uint
	for q := p + 1; q <= overlay.PrecedenceHighest; q++ {
		n += l.byPrec[q]
	}
	return n
}

// push admits an entry into the pending heap. Caller must hold l.mu.
func (l *link) push(e *entry) {
	heap.Push(&l.pending, e)
	l.byPrec[e.prec]++
}

// pop removes the highest-precedence entry. Caller must hold l.mu and have
// checked the heap is non-empty.
func (l *link) pop() *entry {
	e := heap.Pop(&l.pending).(*entry)
	l.byPrec[e.prec]--
	return e
}

// drain empties the pending heap, returning the entries in dispatch order.
// Caller must hold l.mu.
func (l *link) drain() []*entry {
	drained := make([]*entry, 0, len(l.pending))
	for l.pending.Len() > 0 {
		drained = append(drained, l.pop())
	}
	return drained
}
