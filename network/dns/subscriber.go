package dns

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/module/component"
	"github.com/kestrelchain/kestrel-go/module/fifoqueue"
	"github.com/kestrelchain/kestrel-go/module/irrecoverable"
	"github.com/kestrelchain/kestrel-go/network"
	"github.com/kestrelchain/kestrel-go/network/topology"
)

const (
	// DefaultRefreshInterval is how often the subscriber re-resolves its
	// domains.
	DefaultRefreshInterval = 5 * time.Minute

	// defaultResolveWorkers bounds concurrent per-domain resolutions.
	defaultResolveWorkers = 4

	// defaultUpdateCapacity bounds the buffered peer-set updates between
	// the resolve worker and the apply worker.
	defaultUpdateCapacity = 16

	// retries of a fully-failed resolution round before waiting for the
	// next interval
	roundRetries = 3
)

// peerSetUpdate is one resolved view of the relay set.
type peerSetUpdate struct {
	tiers overlay.PeerTiers
	ids   map[overlay.PeerID]struct{}
}

// Subscriber keeps the outbound queue's relay tier in sync with the
// addresses advertised under the descriptor's domains. An empty resolution
// round is non-fatal: the last known peer set stays in place and the next
// round retries.
type Subscriber struct {
	log      zerolog.Logger
	resolver *Resolver
	updater  network.PeerUpdater
	desc     topology.DNSDescriptor
	interval time.Duration

	pool    *workerpool.WorkerPool
	updates *fifoqueue.FifoQueue
	notify  chan struct{}
	known   map[overlay.PeerID]struct{}

	cm *component.ComponentManager
}

// SubscriberOption configures optional behavior of the subscriber.
type SubscriberOption func(*Subscriber)

// WithRefreshInterval overrides the resolution interval.
func WithRefreshInterval(interval time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		s.interval = interval
	}
}

// NewSubscriber returns a subscriber feeding the updater from the
// descriptor's domains.
func NewSubscriber(
	log zerolog.Logger,
	resolver *Resolver,
	updater network.PeerUpdater,
	desc topology.DNSDescriptor,
	opts ...SubscriberOption,
) (*Subscriber, error) {
	updates, err := fifoqueue.NewFifoQueue(fifoqueue.WithCapacity(defaultUpdateCapacity))
	if err != nil {
		return nil, err
	}

	s := &Subscriber{
		log:      log.With().Str("component", "dns_subscriber").Logger(),
		resolver: resolver,
		updater:  updater,
		desc:     desc,
		interval: DefaultRefreshInterval,
		pool:     workerpool.New(defaultResolveWorkers),
		updates:  updates,
		notify:   make(chan struct{}, 1),
		known:    make(map[overlay.PeerID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cm = component.NewComponentManagerBuilder().
		AddWorker(s.resolveWorker).
		AddWorker(s.applyWorker).
		Build()
	return s, nil
}

// Start launches the resolve and apply workers.
func (s *Subscriber) Start(ctx irrecoverable.SignalerContext) {
	s.cm.Start(ctx)
}

func (s *Subscriber) Ready() <-chan struct{} {
	return s.cm.Ready()
}

func (s *Subscriber) Done() <-chan struct{} {
	return s.cm.Done()
}

// resolveWorker resolves all domains on the interval and pushes the derived
// peer set to the apply worker.
func (s *Subscriber) resolveWorker(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.pool.StopWait()

	s.resolveRound(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resolveRound(ctx)
		}
	}
}

// resolveRound resolves every descriptor domain concurrently, retrying a
// fully-failed round with fibonacci backoff before giving up until the next
// interval.
func (s *Subscriber) resolveRound(ctx context.Context) {
	backoff := retry.NewFibonacci(time.Second)

	var addresses []overlay.PeerID
	err := retry.Do(ctx, retry.WithMaxRetries(roundRetries, backoff), func(ctx context.Context) error {
		resolved, errs := s.resolveAll(ctx)
		if len(resolved) == 0 && errs != nil {
			s.log.Warn().Err(errs).Msg("resolution round failed entirely, backing off")
			return retry.RetryableError(errs)
		}
		if errs != nil {
			s.log.Warn().Err(errs).Msg("some domains failed to resolve")
		}
		addresses = resolved
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("resolution round exhausted retries")
		return
	}
	if len(addresses) == 0 {
		// nothing advertised; keep the current peer set and retry later
		s.log.Warn().Msg("resolution round returned no addresses")
		return
	}

	update := s.buildUpdate(addresses)
	if !s.updates.Push(update) {
		s.log.Warn().Msg("peer-set update buffer full, dropping round")
		return
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// resolveAll fans the domains out on the worker pool and collects addresses
// and per-domain errors.
func (s *Subscriber) resolveAll(ctx context.Context) ([]overlay.PeerID, error) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var errs *multierror.Error
	var out []overlay.PeerID

	for _, domain := range s.desc.Domains {
		domain := domain
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			addresses, err := s.resolver.Resolve(ctx, domain.Domain)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs, topology.DNSResolutionError{Domain: domain.Domain, Cause: err})
				return
			}
			for _, addr := range addresses {
				out = append(out, peerIDForAddr(addr, domain.Port))
			}
		})
	}
	wg.Wait()

	return out, errs.ErrorOrNil()
}

// buildUpdate groups the addresses into valency alternative groups of
// fallbacks+1 members, all in the relay tier.
func (s *Subscriber) buildUpdate(addresses []overlay.PeerID) peerSetUpdate {
	groupSize := int(s.desc.Fallbacks) + 1
	maxGroups := int(s.desc.Valency)

	var groups []overlay.AltGroup
	ids := make(map[overlay.PeerID]struct{})
	for _, id := range addresses {
		if _, seen := ids[id]; seen {
			continue
		}
		gi := len(ids) / groupSize
		if gi >= maxGroups {
			break
		}
		if gi == len(groups) {
			groups = append(groups, overlay.AltGroup{})
		}
		groups[gi] = append(groups[gi], id)
		ids[id] = struct{}{}
	}

	tiers := overlay.NewPeerTiers()
	if len(groups) > 0 {
		tiers[overlay.NodeClassRelay] = groups
	}
	return peerSetUpdate{tiers: tiers, ids: ids}
}

// applyWorker drains buffered updates and applies the add/remove diff to the
// outbound queue.
func (s *Subscriber) applyWorker(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}
		for {
			item, ok := s.updates.Pop()
			if !ok {
				break
			}
			s.apply(item.(peerSetUpdate))
		}
	}
}

func (s *Subscriber) apply(update peerSetUpdate) {
	added := s.updater.AddKnownPeers(update.tiers)

	var removed int
	for id := range s.known {
		if _, still := update.ids[id]; still {
			continue
		}
		if s.updater.RemovePeer(id) {
			removed++
		}
	}
	s.known = update.ids

	s.log.Info().
		Int("added", len(added)).
		Int("removed", removed).
		Int("relays", len(update.ids)).
		Msg("relay set refreshed from dns")
}

func peerIDForAddr(addr net.IPAddr, port uint16) overlay.PeerID {
	return overlay.NewPeerID(addr.IP.String(), port)
}
