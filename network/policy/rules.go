// Package policy holds the three orthogonal policies governing the outbound
// queue: enqueue (how many peers per tier to try), dequeue (per-link
// concurrency and rate) and failure (per-destination cooldown). Policies are
// constructed once at startup and immutable thereafter.
package policy

import (
	"time"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// EnqueueRule is one pass of an enqueue policy: either EnqueueAll or
// EnqueueOne.
type EnqueueRule interface {
	// MaxAheadLimit is the admission limit of the pass: a new entry is
	// refused on a link if strictly more higher-precedence entries than
	// this are already pending there.
	MaxAheadLimit() uint

	// Prec is the precedence entries created by this pass carry.
	Prec() overlay.Precedence

	isEnqueueRule()
}

// EnqueueAll enqueues to every peer of Class across all alternative groups.
type EnqueueAll struct {
	Class      overlay.NodeClass
	MaxAhead   uint
	Precedence overlay.Precedence
}

// EnqueueOne enqueues to one member of each alternative group whose primary
// is of one of Classes, preferring the primary and walking the fallbacks in
// order until one passes the suspension and admission checks.
type EnqueueOne struct {
	Classes    []overlay.NodeClass
	MaxAhead   uint
	Precedence overlay.Precedence
}

func (r EnqueueAll) MaxAheadLimit() uint      { return r.MaxAhead }
func (r EnqueueAll) Prec() overlay.Precedence { return r.Precedence }
func (r EnqueueAll) isEnqueueRule()           {}

func (r EnqueueOne) MaxAheadLimit() uint      { return r.MaxAhead }
func (r EnqueueOne) Prec() overlay.Precedence { return r.Precedence }
func (r EnqueueOne) isEnqueueRule()           {}

// RateLimit caps dispatches on a link. The zero value means no limiting.
type RateLimit struct {
	MsgPerSec uint32
}

// NoRateLimit is the unlimited rate limit.
var NoRateLimit = RateLimit{}

// MaxMsgPerSec returns a rate limit of n messages per second.
func MaxMsgPerSec(n uint32) RateLimit {
	return RateLimit{MsgPerSec: n}
}

// Limited reports whether the limit is active.
func (r RateLimit) Limited() bool {
	return r.MsgPerSec > 0
}

// DequeueRule bounds a link's dispatch: at most MaxInFlight concurrent sends
// and at most RateLimit dispatches per second.
type DequeueRule struct {
	MaxInFlight uint
	RateLimit   RateLimit
}

// FailureRule suspends sends of a kind to a peer for ReconsiderAfter once a
// send of that kind to that peer has failed.
type FailureRule struct {
	ReconsiderAfter time.Duration
}
