package topology_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/network/topology"
	"github.com/kestrelchain/kestrel-go/utils/unittest"
)

func noResolve(_ context.Context, host string) ([]net.IPAddr, error) {
	return nil, fmt.Errorf("unexpected resolution of %q", host)
}

func interpret(t *testing.T, raw string, self string, resolve topology.Resolver) (*topology.Projection, error) {
	t.Helper()
	doc, err := topology.ParseDocument([]byte(raw))
	if err != nil {
		return nil, err
	}
	interp := topology.NewInterpreter(unittest.Logger(), resolve)
	return interp.Interpret(context.Background(), doc, self)
}

const staticDoc = `
nodes:
  node0:
    type: core
    region: eu-central
    static-routes: [[node1], [node2, node3]]
    addr: 10.0.0.1
    port: 3000
  node1:
    type: core
    region: eu-central
    addr: 10.0.0.2
    port: 3000
  node2:
    type: relay
    region: us-east
    addr: 10.0.0.3
    port: 3000
  node3:
    type: relay
    region: us-east
    addr: 10.0.0.4
    port: 3000
`

func TestStaticProjection(t *testing.T) {
	proj, err := interpret(t, staticDoc, "node0", noResolve)
	require.NoError(t, err)
	require.NoError(t, proj.Warnings)

	require.Equal(t, overlay.NodeClassCore, proj.SelfClass)
	view, ok := proj.View.(topology.Static)
	require.True(t, ok)
	require.Equal(t, overlay.NodeClassCore, view.SelfClass)

	// group [node1] lands in the core tier, [node2,node3] in the relay tier
	// of its primary
	require.Equal(t, []overlay.AltGroup{{overlay.NewPeerID("10.0.0.2", 3000)}},
		proj.Tiers.ForClass(overlay.NodeClassCore))
	require.Equal(t, []overlay.AltGroup{{
		overlay.NewPeerID("10.0.0.3", 3000),
		overlay.NewPeerID("10.0.0.4", 3000),
	}}, proj.Tiers.ForClass(overlay.NodeClassRelay))

	// core nodes default to no kademlia and accept no subscribers
	assert.False(t, proj.RunKademlia)
	assert.Nil(t, proj.SubscriberClass)
	assert.Empty(t, proj.Descriptors)
}

func TestStaticRelayDefaults(t *testing.T) {
	raw := `
nodes:
  relay0:
    type: relay
    region: eu-west
    static-routes: [[core0]]
    addr: 10.1.0.1
    port: 3000
  core0:
    type: core
    region: eu-west
    addr: 10.1.0.2
    port: 3000
`
	proj, err := interpret(t, raw, "relay0", noResolve)
	require.NoError(t, err)

	// relays default to running the dht and accept edge subscribers
	assert.True(t, proj.RunKademlia)
	require.NotNil(t, proj.SubscriberClass)
	assert.Equal(t, overlay.NodeClassEdge, *proj.SubscriberClass)
	require.Len(t, proj.Descriptors, 1)
	_, ok := proj.Descriptors[0].(topology.DHTDescriptor)
	assert.True(t, ok)
}

func TestStaticHostResolution(t *testing.T) {
	raw := `
nodes:
  node0:
    type: core
    region: ap-south
    static-routes: [[node1, node2]]
    addr: 10.0.0.1
    port: 3000
  node1:
    type: core
    region: ap-south
    host: core.example.net
    port: 3000
  node2:
    type: core
    region: ap-south
    addr: 10.0.0.9
    port: 3000
`
	resolve := func(_ context.Context, host string) ([]net.IPAddr, error) {
		require.Equal(t, "core.example.net", host)
		return []net.IPAddr{{IP: net.ParseIP("198.51.100.7")}}, nil
	}
	proj, err := interpret(t, raw, "node0", resolve)
	require.NoError(t, err)
	require.Equal(t, []overlay.AltGroup{{
		overlay.NewPeerID("198.51.100.7", 3000),
		overlay.NewPeerID("10.0.0.9", 3000),
	}}, proj.Tiers.ForClass(overlay.NodeClassCore))

	// a failing resolution skips the member and surfaces a warning
	failing := func(_ context.Context, host string) ([]net.IPAddr, error) {
		return nil, errors.New("NXDOMAIN")
	}
	proj, err = interpret(t, raw, "node0", failing)
	require.NoError(t, err)
	require.Error(t, proj.Warnings)
	require.Equal(t, []overlay.AltGroup{{overlay.NewPeerID("10.0.0.9", 3000)}},
		proj.Tiers.ForClass(overlay.NodeClassCore))
}

func TestBadTopologies(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		self string
	}{
		{
			name: "more than one top-level key",
			raw: `
nodes:
  node0: {type: core, region: eu, addr: 10.0.0.1, port: 3000}
p2p:
  variant: normal
`,
		},
		{
			name: "no top-level key",
			raw:  `{}`,
		},
		{
			name: "both addr and host",
			raw: `
nodes:
  node0:
    type: core
    region: eu
    static-routes: [[node1]]
    addr: 10.0.0.1
    port: 3000
  node1: {type: core, region: eu, addr: 10.0.0.2, host: a.example.net, port: 3000}
`,
			self: "node0",
		},
		{
			name: "route references unknown node",
			raw: `
nodes:
  node0:
    type: core
    region: eu
    static-routes: [[ghost]]
    addr: 10.0.0.1
    port: 3000
`,
			self: "node0",
		},
		{
			name: "invalid node type",
			raw: `
nodes:
  node0: {type: validator, region: eu, addr: 10.0.0.1, port: 3000}
`,
			self: "node0",
		},
		{
			name: "invalid p2p variant",
			raw: `
p2p:
  variant: hybrid
`,
		},
		{
			name: "wallet relay with both addr and host",
			raw: `
wallet:
  relays: [[{addr: 10.0.0.1, host: r.example.net, port: 3000}]]
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := interpret(t, tc.raw, tc.self, noResolve)
			require.Error(t, err)
			require.True(t, topology.IsBadTopologyError(err), "expected BadTopologyError, got %v", err)
		})
	}
}

func TestBadTopologyMessage(t *testing.T) {
	raw := `
nodes:
  node0: {type: core, region: eu, addr: 10.0.0.1, port: 3000}
p2p:
  variant: normal
`
	_, err := topology.ParseDocument([]byte(raw))
	require.EqualError(t, err, "bad topology: expected exactly one of 'nodes', 'wallet', 'p2p'")
}

func TestWalletLightWallet(t *testing.T) {
	raw := `
wallet:
  relays: [[{addr: 10.2.0.1, port: 3000}, {addr: 10.2.0.2, port: 3000}]]
`
	proj, err := interpret(t, raw, "", noResolve)
	require.NoError(t, err)

	view, ok := proj.View.(topology.LightWallet)
	require.True(t, ok)
	require.Equal(t, []overlay.PeerID{
		overlay.NewPeerID("10.2.0.1", 3000),
		overlay.NewPeerID("10.2.0.2", 3000),
	}, view.Relays)

	require.Equal(t, overlay.NodeClassEdge, proj.SelfClass)
	assert.False(t, proj.RunKademlia)
	assert.Nil(t, proj.SubscriberClass)
	assert.Empty(t, proj.Descriptors)
	require.Len(t, proj.Tiers.ForClass(overlay.NodeClassRelay), 1)
}

func TestWalletBehindNAT(t *testing.T) {
	raw := `
wallet:
  relays: [[{host: relays.example.net, port: 3000}]]
  valency: 2
  fallbacks: 1
`
	proj, err := interpret(t, raw, "", noResolve)
	require.NoError(t, err)

	view, ok := proj.View.(topology.BehindNAT)
	require.True(t, ok)
	require.Equal(t, uint16(2), view.Valency)
	require.Equal(t, uint16(1), view.Fallbacks)
	require.Equal(t, []topology.DomainAddr{{Domain: "relays.example.net", Port: 3000}}, view.Domains)

	require.Equal(t, overlay.NodeClassEdge, proj.SelfClass)
	require.Len(t, proj.Descriptors, 1)
	desc, ok := proj.Descriptors[0].(topology.DNSDescriptor)
	require.True(t, ok)
	require.Equal(t, view.Domains, desc.Domains)
	require.Equal(t, 0, proj.Tiers.Len())
}

func TestP2PVariants(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		proj, err := interpret(t, "p2p:\n  variant: normal\n", "", noResolve)
		require.NoError(t, err)
		_, ok := proj.View.(topology.P2P)
		require.True(t, ok)
		require.Equal(t, overlay.NodeClassEdge, proj.SelfClass)
		require.NotNil(t, proj.SubscriberClass)
		require.Equal(t, overlay.NodeClassRelay, *proj.SubscriberClass)
		require.True(t, proj.RunKademlia)
		require.Len(t, proj.Descriptors, 1)
		desc := proj.Descriptors[0].(topology.DHTDescriptor)
		// defaults
		require.Equal(t, uint16(3), desc.Valency)
		require.Equal(t, uint16(1), desc.Fallbacks)
		require.Equal(t, overlay.NodeClassRelay, desc.MemberClass)
	})

	t.Run("traditional", func(t *testing.T) {
		proj, err := interpret(t, "p2p:\n  variant: traditional\n  valency: 5\n", "", noResolve)
		require.NoError(t, err)
		_, ok := proj.View.(topology.Traditional)
		require.True(t, ok)
		require.Equal(t, overlay.NodeClassCore, proj.SelfClass)
		require.NotNil(t, proj.SubscriberClass)
		require.Equal(t, overlay.NodeClassCore, *proj.SubscriberClass)
		desc := proj.Descriptors[0].(topology.DHTDescriptor)
		require.Equal(t, uint16(5), desc.Valency)
		require.Equal(t, overlay.NodeClassCore, desc.MemberClass)
	})
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, raw := range []string{staticDoc, "p2p:\n  variant: normal\n  valency: 4\n", `
wallet:
  relays: [[{host: relays.example.net, port: 3000}]]
  valency: 2
`} {
		doc, err := topology.ParseDocument([]byte(raw))
		require.NoError(t, err)

		out, err := doc.Marshal()
		require.NoError(t, err)

		again, err := topology.ParseDocument(out)
		require.NoError(t, err)
		require.Equal(t, doc, again)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	raw := `
p2p:
  variant: normal
  bootstrap: 10.0.0.1
`
	_, err := topology.ParseDocument([]byte(raw))
	require.Error(t, err)
	require.True(t, topology.IsBadTopologyError(err))
}
