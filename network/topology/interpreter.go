package topology

import (
	"context"
	"errors"
	"net"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// Resolver is the dns lookup callback the interpreter consumes. Resolution
// itself is an external collaborator.
type Resolver func(ctx context.Context, host string) ([]net.IPAddr, error)

// Projection is the node's concrete view of the overlay derived from one
// topology document: the initial peer model, the discovery workers to spawn,
// and the classes used in membership decisions.
type Projection struct {
	View        View
	SelfClass   overlay.NodeClass
	Tiers       overlay.PeerTiers
	Descriptors []Descriptor

	// SubscriberClass is the class of nodes allowed to subscribe to this
	// node, or nil if it accepts none.
	SubscriberClass *overlay.NodeClass

	// RunKademlia reports whether the dht should be started.
	RunKademlia bool

	// Warnings aggregates non-fatal per-domain resolution failures hit
	// while projecting static routes.
	Warnings error
}

// Interpreter projects topology documents into Projections.
type Interpreter struct {
	log     zerolog.Logger
	resolve Resolver
}

// NewInterpreter returns an interpreter resolving dns hosts through the
// given callback.
func NewInterpreter(log zerolog.Logger, resolve Resolver) *Interpreter {
	return &Interpreter{
		log:     log.With().Str("component", "topology_interpreter").Logger(),
		resolve: resolve,
	}
}

// Interpret projects the document into this node's view of the overlay.
// selfName identifies the current node within a static node table; it is
// ignored for wallet and p2p topologies.
//
// All document-level defects are returned as BadTopologyError. Per-domain
// resolution failures are non-fatal and aggregated in Projection.Warnings.
func (i *Interpreter) Interpret(ctx context.Context, doc *Document, selfName string) (*Projection, error) {
	switch {
	case doc.Nodes != nil:
		return i.interpretStatic(ctx, doc.Nodes, selfName)
	case doc.Wallet != nil:
		return i.interpretWallet(doc.Wallet)
	case doc.P2P != nil:
		return i.interpretP2P(doc.P2P)
	default:
		return nil, NewBadTopologyErrorf("expected exactly one of 'nodes', 'wallet', 'p2p'")
	}
}

func (i *Interpreter) interpretStatic(ctx context.Context, nodes map[string]NodeEntry, selfName string) (*Projection, error) {
	self, ok := nodes[selfName]
	if !ok {
		return nil, NewBadTopologyErrorf("current node %q not present in node table", selfName)
	}
	selfClass, err := overlay.ParseNodeClass(self.Type)
	if err != nil {
		return nil, NewBadTopologyErrorf("node %q: %v", selfName, err)
	}

	var warnings *multierror.Error
	tiers := overlay.NewPeerTiers()

	for gi, route := range self.StaticRoutes {
		if len(route) == 0 {
			return nil, NewBadTopologyErrorf("node %q: static route %d is empty", selfName, gi)
		}

		primary, ok := nodes[route[0]]
		if !ok {
			return nil, NewBadTopologyErrorf("static route references unknown node %q", route[0])
		}
		primaryClass, err := overlay.ParseNodeClass(primary.Type)
		if err != nil {
			return nil, NewBadTopologyErrorf("node %q: %v", route[0], err)
		}

		var group overlay.AltGroup
		for _, name := range route {
			entry, ok := nodes[name]
			if !ok {
				return nil, NewBadTopologyErrorf("static route references unknown node %q", name)
			}
			id, resolved, err := i.endpoint(ctx, name, entry)
			if err != nil {
				return nil, err
			}
			if !resolved {
				// dns failure already recorded; skip this member
				warnings = multierror.Append(warnings, DNSResolutionError{Domain: entry.Host, Cause: errUnresolved})
				continue
			}
			group = append(group, id)
		}
		if len(group) == 0 {
			i.log.Warn().
				Int("route", gi).
				Msg("static route resolved to no peers, dropping group")
			continue
		}

		seed := overlay.PeerTiers{primaryClass: []overlay.AltGroup{group}}
		tiers.Add(seed)
	}

	runKademlia := selfClass == overlay.NodeClassRelay
	if self.Kademlia != nil {
		runKademlia = *self.Kademlia
	}

	proj := &Projection{
		View:        Static{SelfClass: selfClass, Peers: tiers},
		SelfClass:   selfClass,
		Tiers:       tiers,
		RunKademlia: runKademlia,
		Warnings:    warnings.ErrorOrNil(),
	}
	if selfClass == overlay.NodeClassRelay {
		proj.SubscriberClass = classPtr(overlay.NodeClassEdge)
	}
	if runKademlia {
		proj.Descriptors = append(proj.Descriptors, DHTDescriptor{
			MemberClass: overlay.NodeClassRelay,
			Valency:     defaultP2PValency,
			Fallbacks:   defaultP2PFallbacks,
		})
	}
	return proj, nil
}

func (i *Interpreter) interpretWallet(w *WalletEntry) (*Projection, error) {
	valency := defaultWalletValency
	if w.Valency != nil {
		valency = *w.Valency
	}
	fallbacks := defaultWalletFallbacks
	if w.Fallbacks != nil {
		fallbacks = *w.Fallbacks
	}

	var domains []DomainAddr
	var relays []overlay.PeerID
	tiers := overlay.NewPeerTiers()

	for gi, group := range w.Relays {
		var static overlay.AltGroup
		for _, relay := range group {
			switch {
			case relay.Addr != "" && relay.Host != "":
				return nil, NewBadTopologyErrorf("wallet relay group %d specifies both addr and host", gi)
			case relay.Addr == "" && relay.Host == "":
				return nil, NewBadTopologyErrorf("wallet relay group %d specifies neither addr nor host", gi)
			case relay.Addr != "":
				id := overlay.NewPeerID(relay.Addr, relay.Port)
				static = append(static, id)
				relays = append(relays, id)
			default:
				domains = append(domains, DomainAddr{Domain: relay.Host, Port: relay.Port})
			}
		}
		if len(static) > 0 {
			tiers.Add(overlay.PeerTiers{overlay.NodeClassRelay: []overlay.AltGroup{static}})
		}
	}

	// host entries require periodic resolution, so the node is behind nat;
	// an addr-only wallet is a light wallet with a fixed relay set
	if len(domains) > 0 {
		return &Projection{
			View: BehindNAT{
				Valency:   valency,
				Fallbacks: fallbacks,
				Domains:   domains,
			},
			SelfClass: overlay.NodeClassEdge,
			Tiers:     tiers,
			Descriptors: []Descriptor{DNSDescriptor{
				Domains:   domains,
				Valency:   valency,
				Fallbacks: fallbacks,
			}},
		}, nil
	}

	return &Projection{
		View:      LightWallet{Relays: relays},
		SelfClass: overlay.NodeClassEdge,
		Tiers:     tiers,
	}, nil
}

func (i *Interpreter) interpretP2P(p *P2PEntry) (*Projection, error) {
	valency := defaultP2PValency
	if p.Valency != nil {
		valency = *p.Valency
	}
	fallbacks := defaultP2PFallbacks
	if p.Fallbacks != nil {
		fallbacks = *p.Fallbacks
	}

	switch p.Variant {
	case VariantTraditional:
		return &Projection{
			View:            Traditional{Valency: valency, Fallbacks: fallbacks},
			SelfClass:       overlay.NodeClassCore,
			Tiers:           overlay.NewPeerTiers(),
			SubscriberClass: classPtr(overlay.NodeClassCore),
			RunKademlia:     true,
			Descriptors: []Descriptor{DHTDescriptor{
				MemberClass: overlay.NodeClassCore,
				Valency:     valency,
				Fallbacks:   fallbacks,
			}},
		}, nil
	case VariantNormal:
		return &Projection{
			View:            P2P{Valency: valency, Fallbacks: fallbacks},
			SelfClass:       overlay.NodeClassEdge,
			Tiers:           overlay.NewPeerTiers(),
			SubscriberClass: classPtr(overlay.NodeClassRelay),
			RunKademlia:     true,
			Descriptors: []Descriptor{DHTDescriptor{
				MemberClass: overlay.NodeClassRelay,
				Valency:     valency,
				Fallbacks:   fallbacks,
			}},
		}, nil
	default:
		return nil, NewBadTopologyErrorf("p2p variant must be 'traditional' or 'normal', got %q", p.Variant)
	}
}

// endpoint derives the peer id of a node table entry. The second return is
// false when the entry's dns host could not be resolved; this is non-fatal.
func (i *Interpreter) endpoint(ctx context.Context, name string, entry NodeEntry) (overlay.PeerID, bool, error) {
	switch {
	case entry.Addr != "" && entry.Host != "":
		return overlay.PeerID{}, false, NewBadTopologyErrorf("node %q specifies both addr and host", name)
	case entry.Addr == "" && entry.Host == "":
		return overlay.PeerID{}, false, NewBadTopologyErrorf("node %q specifies neither addr nor host", name)
	case entry.Port == 0:
		return overlay.PeerID{}, false, NewBadTopologyErrorf("node %q has no port", name)
	case entry.Addr != "":
		return overlay.NewPeerID(entry.Addr, entry.Port), true, nil
	default:
		ips, err := i.resolve(ctx, entry.Host)
		if err != nil || len(ips) == 0 {
			i.log.Warn().
				Str("node", name).
				Str("host", entry.Host).
				Err(err).
				Msg("could not resolve static route host")
			return overlay.PeerID{}, false, nil
		}
		return overlay.NewPeerID(ips[0].IP.String(), entry.Port), true, nil
	}
}

var errUnresolved = errors.New("host did not resolve")

func classPtr(c overlay.NodeClass) *overlay.NodeClass {
	return &c
}
