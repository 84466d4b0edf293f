package dns_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/module/metrics"
	"github.com/kestrelchain/kestrel-go/network/dns"
	"github.com/kestrelchain/kestrel-go/network/topology"
	"github.com/kestrelchain/kestrel-go/utils/unittest"
)

// recordingUpdater implements network.PeerUpdater over a plain tier set.
type recordingUpdater struct {
	mu    sync.Mutex
	tiers overlay.PeerTiers
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{tiers: overlay.NewPeerTiers()}
}

func (u *recordingUpdater) AddKnownPeers(tiers overlay.PeerTiers) []overlay.PeerID {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tiers.Add(tiers)
}

func (u *recordingUpdater) RemovePeer(id overlay.PeerID) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tiers.Remove(id)
}

func (u *recordingUpdater) relayPeers() []overlay.PeerID {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tiers.Clone().PeersOfClass(overlay.NodeClassRelay)
}

func ip(s string) net.IPAddr {
	return net.IPAddr{IP: net.ParseIP(s)}
}

func TestSubscriberSyncsRelaySet(t *testing.T) {
	var mu sync.Mutex
	addresses := []net.IPAddr{ip("203.0.113.1"), ip("203.0.113.2"), ip("203.0.113.3"), ip("203.0.113.4")}
	lookup := func(_ context.Context, host string) ([]net.IPAddr, error) {
		mu.Lock()
		defer mu.Unlock()
		return addresses, nil
	}

	resolver, err := dns.NewResolver(unittest.Logger(), metrics.NewNoopCollector(), lookup,
		dns.WithTimeToLive(0)) // always re-resolve
	require.NoError(t, err)

	updater := newRecordingUpdater()
	sub, err := dns.NewSubscriber(unittest.Logger(), resolver, updater, topology.DNSDescriptor{
		Domains:   []topology.DomainAddr{{Domain: "relays.example.net", Port: 3000}},
		Valency:   2,
		Fallbacks: 1,
	}, dns.WithRefreshInterval(50*time.Millisecond))
	require.NoError(t, err)

	sctx, cancel := unittest.FailOnIrrecoverable(t, context.Background())
	sub.Start(sctx)
	unittest.RequireCloseBefore(t, sub.Ready(), time.Second, "subscriber ready")
	defer func() {
		cancel()
		unittest.RequireCloseBefore(t, sub.Done(), time.Second, "subscriber done")
	}()

	// valency 2 x (fallbacks+1) members caps the relay set at 4 peers
	want := []overlay.PeerID{
		overlay.NewPeerID("203.0.113.1", 3000),
		overlay.NewPeerID("203.0.113.2", 3000),
		overlay.NewPeerID("203.0.113.3", 3000),
		overlay.NewPeerID("203.0.113.4", 3000),
	}
	require.Eventually(t, func() bool {
		got := updater.relayPeers()
		return len(got) == len(want)
	}, time.Second, 10*time.Millisecond)
	require.ElementsMatch(t, want, updater.relayPeers())

	// a shrunken advertisement removes the vanished peers
	mu.Lock()
	addresses = addresses[:2]
	mu.Unlock()
	require.Eventually(t, func() bool {
		return len(updater.relayPeers()) == 2
	}, time.Second, 10*time.Millisecond)
	require.ElementsMatch(t, want[:2], updater.relayPeers())
}

func TestSubscriberKeepsPeersOnEmptyRound(t *testing.T) {
	var mu sync.Mutex
	addresses := []net.IPAddr{ip("203.0.113.9")}
	lookup := func(_ context.Context, host string) ([]net.IPAddr, error) {
		mu.Lock()
		defer mu.Unlock()
		return addresses, nil
	}

	resolver, err := dns.NewResolver(unittest.Logger(), metrics.NewNoopCollector(), lookup,
		dns.WithTimeToLive(0))
	require.NoError(t, err)

	updater := newRecordingUpdater()
	sub, err := dns.NewSubscriber(unittest.Logger(), resolver, updater, topology.DNSDescriptor{
		Domains:   []topology.DomainAddr{{Domain: "relays.example.net", Port: 3000}},
		Valency:   1,
		Fallbacks: 0,
	}, dns.WithRefreshInterval(30*time.Millisecond))
	require.NoError(t, err)

	sctx, cancel := unittest.FailOnIrrecoverable(t, context.Background())
	sub.Start(sctx)
	defer func() {
		cancel()
		unittest.RequireCloseBefore(t, sub.Done(), time.Second, "subscriber done")
	}()

	require.Eventually(t, func() bool {
		return len(updater.relayPeers()) == 1
	}, time.Second, 10*time.Millisecond)

	// an empty round keeps the last known peer set
	mu.Lock()
	addresses = nil
	mu.Unlock()
	time.Sleep(150 * time.Millisecond)
	require.Len(t, updater.relayPeers(), 1)
}
