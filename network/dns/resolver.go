// Package dns implements the discovery side of behind-nat topologies: a
// caching resolver over the injected lookup callback and a subscriber that
// keeps the outbound queue's relay tier in sync with the resolved addresses.
package dns

import (
	"context"
	"fmt"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/kestrelchain/kestrel-go/module"
)

const (
	// DefaultTimeToLive is the default duration a dns result is cached.
	DefaultTimeToLive = 5 * time.Minute

	// DefaultCacheSize bounds the number of cached domains.
	DefaultCacheSize = 128
)

// LookupIPFunc is the resolver callback consumed from the environment; dns
// resolution itself is an external collaborator.
type LookupIPFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

type cacheEntry struct {
	addresses []net.IPAddr
	timestamp time.Time
}

// Resolver caches lookups with a ttl on top of the injected callback.
type Resolver struct {
	log     zerolog.Logger
	metrics module.DNSMetrics
	lookup  LookupIPFunc
	cache   *lru.Cache
	ttl     time.Duration
	now     func() time.Time
}

// ResolverOption configures optional behavior of the resolver.
type ResolverOption func(*Resolver)

// WithTimeToLive overrides the cache ttl.
func WithTimeToLive(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithGetTimeNowFunc overrides the clock used for ttl checks.
func WithGetTimeNowFunc(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver returns a caching resolver over the lookup callback.
func NewResolver(log zerolog.Logger, metrics module.DNSMetrics, lookup LookupIPFunc, opts ...ResolverOption) (*Resolver, error) {
	cache, err := lru.New(DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create dns cache: %w", err)
	}
	r := &Resolver{
		log:     log.With().Str("component", "dns_resolver").Logger(),
		metrics: metrics,
		lookup:  lookup,
		cache:   cache,
		ttl:     DefaultTimeToLive,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the addresses of the domain, serving from the cache while
// the entry is within its ttl.
func (r *Resolver) Resolve(ctx context.Context, domain string) ([]net.IPAddr, error) {
	if cached, ok := r.cache.Get(domain); ok {
		ent := cached.(cacheEntry)
		if r.now().Sub(ent.timestamp) < r.ttl {
			r.metrics.DNSCacheHit()
			return ent.addresses, nil
		}
	}

	started := r.now()
	addresses, err := r.lookup(ctx, domain)
	r.metrics.DNSLookupDuration(r.now().Sub(started))
	if err != nil {
		r.metrics.DNSLookupFailure(domain)
		return nil, fmt.Errorf("could not resolve domain %q: %w", domain, err)
	}

	r.cache.Add(domain, cacheEntry{addresses: addresses, timestamp: r.now()})
	r.log.Trace().
		Str("domain", domain).
		Int("addresses", len(addresses)).
		Msg("domain resolved")
	return addresses, nil
}
