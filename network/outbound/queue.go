// Package outbound implements the node's outbound message queue: it owns the
// current peer model, fans submissions out across per-link queues under the
// enqueue policy, dispatches them under per-link concurrency and rate
// bounds, and folds send failures into per-destination cooldowns.
package outbound

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/module"
	"github.com/kestrelchain/kestrel-go/module/component"
	"github.com/kestrelchain/kestrel-go/module/irrecoverable"
	"github.com/kestrelchain/kestrel-go/network"
	"github.com/kestrelchain/kestrel-go/network/policy"
)

// GetTimeNow returns the current time. Overriding it lets tests drive
// suspension windows without sleeping.
type GetTimeNow func() time.Time

// CancelledFunc observes entries drained by a peer removal.
type CancelledFunc func(peer overlay.PeerID, msg *overlay.Message)

// Option configures optional behavior of the queue.
type Option func(*Queue)

// WithGetTimeNowFunc overrides the clock used for suspension and rate
// checks.
func WithGetTimeNowFunc(now GetTimeNow) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithCancelledFunc registers the callback invoked for every pending entry
// cancelled by a peer removal.
func WithCancelledFunc(f CancelledFunc) Option {
	return func(q *Queue) {
		q.cancelled = f
	}
}

// Queue is the outbound message queue. It is safe for concurrent use: any
// number of submitters may call Enqueue while discovery workers add and
// remove peers.
type Queue struct {
	log       zerolog.Logger
	metrics   module.QueueMetrics
	policies  *policy.Model
	transport network.Transport
	now       GetTimeNow
	cancelled CancelledFunc

	// order is the queue-wide submission counter breaking precedence ties.
	order *atomic.Uint64

	// mu guards the peer model and the link table. Per-link state is
	// guarded by each link's own lock; the lock order is mu before link.
	mu      sync.RWMutex
	tiers   overlay.PeerTiers
	links   map[overlay.PeerID]*link
	started bool
	stopped bool
	runCtx  irrecoverable.SignalerContext

	workers sync.WaitGroup
	cm      *component.ComponentManager
}

var _ network.PeerUpdater = (*Queue)(nil)

// New constructs the queue around the given seed peer model. The transport
// is created through the factory; a factory error is fatal and aborts
// construction.
func New(
	log zerolog.Logger,
	metrics module.QueueMetrics,
	policies *policy.Model,
	seed overlay.PeerTiers,
	factory network.TransportFactory,
	opts ...Option,
) (*Queue, error) {
	transport, err := factory()
	if err != nil {
		return nil, err
	}

	q := &Queue{
		log:       log.With().Str("component", "outbound_queue").Logger(),
		metrics:   metrics,
		policies:  policies,
		transport: transport,
		now:       time.Now,
		order:     atomic.NewUint64(0),
		tiers:     overlay.NewPeerTiers(),
		links:     make(map[overlay.PeerID]*link),
	}
	for _, opt := range opts {
		opt(q)
	}

	if seed != nil {
		q.addPeersLocked(seed)
	}

	q.cm = component.NewComponentManagerBuilder().
		AddWorker(q.runWorker).
		Build()

	return q, nil
}

// Start launches the per-link dispatchers.
func (q *Queue) Start(ctx irrecoverable.SignalerContext) {
	q.cm.Start(ctx)
}

// Ready closes once the dispatchers are running.
func (q *Queue) Ready() <-chan struct{} {
	return q.cm.Ready()
}

// Done closes once all dispatchers have exited after shutdown.
func (q *Queue) Done() <-chan struct{} {
	return q.cm.Done()
}

func (q *Queue) runWorker(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	q.mu.Lock()
	q.runCtx = ctx
	q.started = true
	for _, l := range q.links {
		q.startDispatcher(ctx, l)
	}
	q.mu.Unlock()

	ready()
	<-ctx.Done()

	// no dispatcher may be spawned once we start waiting for them
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.workers.Wait()
}

// Enqueue submits one message. It consults the enqueue policy pass by pass,
// creating 0..N per-link entries, and reports the outcome. Enqueue never
// blocks on I/O: it performs admission arithmetic under short locks and
// returns; entries it adds are visible to all subsequent dispatches.
func (q *Queue) Enqueue(msg *overlay.Message) *EnqueueReport {
	msgClass, exclude, hasExclude := Classify(msg)
	rules := q.policies.EnqueueRules(msgClass)
	report := &EnqueueReport{}
	now := q.now()

	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, rule := range rules {
		switch r := rule.(type) {
		case policy.EnqueueAll:
			q.enqueueAll(msg, r, exclude, hasExclude, now, report)
		case policy.EnqueueOne:
			q.enqueueOne(msg, r, exclude, hasExclude, now, report)
		}
	}

	if !report.Delivered() {
		q.log.Debug().
			Str("msg_class", msgClass.String()).
			Int("denied", len(report.Denied)).
			Int("no_route", len(report.NoRoute)).
			Msg("submission created no entries")
	}
	return report
}

// enqueueAll fans the message out to every peer of the rule's class,
// skipping the forward source and suspended links, and refusing links where
// strictly more than maxAhead higher-precedence entries are pending.
// Caller must hold q.mu (read).
func (q *Queue) enqueueAll(
	msg *overlay.Message,
	rule policy.EnqueueAll,
	exclude overlay.PeerID,
	hasExclude bool,
	now time.Time,
	report *EnqueueReport,
) {
	for _, id := range q.tiers.PeersOfClass(rule.Class) {
		if hasExclude && id == exclude {
			continue
		}
		l := q.links[id]
		if l == nil {
			continue
		}
		switch q.tryAdmit(l, msg, rule.Precedence, rule.MaxAhead, now) {
		case admitted:
			report.Accepted = append(report.Accepted, id)
		case admitDenied:
			report.Denied = append(report.Denied, id)
		case admitSkipped:
			// suspended or already gone
		}
	}
}

// enqueueOne places one entry per alternative group whose primary is of one
// of the rule's classes, walking primary then fallbacks until a member
// passes both checks. Caller must hold q.mu (read).
func (q *Queue) enqueueOne(
	msg *overlay.Message,
	rule policy.EnqueueOne,
	exclude overlay.PeerID,
	hasExclude bool,
	now time.Time,
	report *EnqueueReport,
) {
	groupIdx := 0
	for _, class := range rule.Classes {
		for _, group := range q.tiers.ForClass(class) {
			placed := false
			for _, id := range group {
				if hasExclude && id == exclude {
					continue
				}
				l := q.links[id]
				if l == nil {
					continue
				}
				if q.tryAdmit(l, msg, rule.Precedence, rule.MaxAhead, now) == admitted {
					report.Accepted = append(report.Accepted, id)
					placed = true
					break
				}
			}
			if !placed {
				report.NoRoute = append(report.NoRoute, groupIdx)
			}
			groupIdx++
		}
	}
}

type admitResult int

const (
	admitted admitResult = iota
	admitDenied
	admitSkipped
)

// tryAdmit applies the suspension and admission checks and, on success,
// pushes a new entry onto the link's heap. The admission decision is a
// point-in-time contract: a later high-precedence arrival does not displace
// an admitted entry.
func (q *Queue) tryAdmit(
	l *link,
	msg *overlay.Message,
	prec overlay.Precedence,
	maxAhead uint,
	now time.Time,
) admitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.removed {
		return admitSkipped
	}
	if l.suspended(msg.Kind, now) {
		return admitSkipped
	}
	if l.higherPrecCount(prec) > maxAhead {
		q.metrics.OutboundAdmissionDenied(msg.Kind, l.peer.Class)
		return admitDenied
	}

	l.push(&entry{
		msg:   msg,
		prec:  prec,
		order: q.order.Inc(),
	})
	q.metrics.OutboundMessageEnqueued(msg.Kind, l.peer.Class)
	q.metrics.OutboundPendingDepth(l.peer.Class, uint(l.pending.Len()))
	l.signal()
	return admitted
}

// AddKnownPeers union-merges the tiers into the peer model, creating empty
// link state for every new peer. It returns the ids actually added.
func (q *Queue) AddKnownPeers(tiers overlay.PeerTiers) []overlay.PeerID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.addPeersLocked(tiers)
}

func (q *Queue) addPeersLocked(tiers overlay.PeerTiers) []overlay.PeerID {
	added := q.tiers.Add(tiers)
	for _, id := range added {
		class, _ := q.tiers.Classify(id)
		l := newLink(overlay.Peer{ID: id, Class: class}, q.policies.DequeueRule(class))
		q.links[id] = l
		if q.started && !q.stopped {
			q.startDispatcher(q.runCtx, l)
		}
		q.log.Debug().
			Str("peer", id.String()).
			Str("class", class.String()).
			Msg("peer added to outbound queue")
	}
	return added
}

// RemovePeer removes the peer from the model and drains its pending entries
// as cancellations. In-flight sends are allowed to complete; their
// completions are discarded.
func (q *Queue) RemovePeer(id overlay.PeerID) bool {
	q.mu.Lock()
	known := q.tiers.Remove(id)
	l := q.links[id]
	delete(q.links, id)
	q.mu.Unlock()

	if l == nil {
		return known
	}

	l.mu.Lock()
	l.removed = true
	drained := l.drain()
	l.mu.Unlock()
	l.signal()

	for _, e := range drained {
		q.metrics.OutboundMessageCancelled(e.msg.Kind)
		if q.cancelled != nil {
			q.cancelled(id, e.msg)
		}
	}
	q.log.Debug().
		Str("peer", id.String()).
		Int("cancelled", len(drained)).
		Msg("peer removed from outbound queue")
	return true
}

// Snapshot returns a copy of the current peer model. Concurrent mutation is
// not reflected; the snapshot is either the pre- or post-state of any add or
// remove, never a torn mix.
func (q *Queue) Snapshot() overlay.PeerTiers {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tiers.Clone()
}

// Classify returns the node class of a known peer.
func (q *Queue) Classify(id overlay.PeerID) (overlay.NodeClass, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tiers.Classify(id)
}

func (q *Queue) startDispatcher(ctx irrecoverable.SignalerContext, l *link) {
	q.workers.Add(1)
	go func() {
		defer q.workers.Done()
		q.dispatchLoop(ctx, l)
	}()
	// service any entries admitted before the dispatcher came up
	l.signal()
}

// dispatchLoop runs one link's dispatcher until shutdown or peer removal.
func (q *Queue) dispatchLoop(ctx irrecoverable.SignalerContext, l *link) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.notify:
		}
		if !q.serviceLink(l) {
			return
		}
	}
}

// serviceLink dispatches pending entries while the link has capacity and
// tokens. It returns false once the link is removed. This is the sole point
// where transport calls are issued.
func (q *Queue) serviceLink(l *link) bool {
	for {
		l.mu.Lock()
		if l.removed {
			l.mu.Unlock()
			return false
		}
		if l.pending.Len() == 0 || l.inFlight >= l.maxInFlight {
			l.mu.Unlock()
			return true
		}

		if l.limiter != nil {
			now := q.now()
			res := l.limiter.ReserveN(now, 1)
			if !res.OK() {
				l.mu.Unlock()
				return true
			}
			if delay := res.DelayFrom(now); delay > 0 {
				// hand the token back and retry once it would be available
				res.CancelAt(now)
				l.mu.Unlock()
				time.AfterFunc(delay, l.signal)
				return true
			}
		}

		e := l.pop()
		l.inFlight++
		depth := uint(l.pending.Len())
		l.mu.Unlock()

		q.metrics.OutboundMessageDispatched(e.msg.Kind, l.peer.Class)
		q.metrics.OutboundPendingDepth(l.peer.Class, depth)

		err := q.transport.Submit(l.peer.ID, e.msg.Payload, func(sendErr error) {
			q.onSendComplete(l, e, sendErr)
		})
		if err != nil {
			// the transport never accepted the message; complete it failed
			q.onSendComplete(l, e, err)
		}
	}
}

// onSendComplete folds one completion back into the link state. Failures
// put the (peer, kind) pair into its reconsider-after window; completions
// against a removed link are discarded.
func (q *Queue) onSendComplete(l *link, e *entry, sendErr error) {
	l.mu.Lock()
	if l.removed {
		l.mu.Unlock()
		q.log.Debug().
			Str("peer", l.peer.ID.String()).
			Err(network.ErrPeerGone).
			Msg("discarding completion for removed peer")
		return
	}
	l.inFlight--
	if sendErr != nil {
		rule := q.policies.FailureRule(l.peer.Class, e.msg.Kind)
		l.suspendUntil[e.msg.Kind] = q.now().Add(rule.ReconsiderAfter)
	}
	l.mu.Unlock()

	if sendErr != nil {
		q.metrics.OutboundSendFailed(e.msg.Kind, l.peer.Class)
		q.metrics.OutboundPeerSuspended(e.msg.Kind, l.peer.Class)
		q.log.Warn().
			Err(network.NewSendFailedError(l.peer.ID, e.msg.Kind, sendErr)).
			Msg("outbound send failed, suspending kind on peer")
	}
	l.signal()
}
