package topology

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// View is the node's place in the overlay as derived from the topology
// document. It is one of Static, BehindNAT, P2P, Traditional or LightWallet.
type View interface {
	isView()
}

// Static is the fully-known topology used by core and relay deployments.
type Static struct {
	SelfClass overlay.NodeClass
	Peers     overlay.PeerTiers
}

// BehindNAT discovers relay peers by periodic dns resolution of the
// configured domains.
type BehindNAT struct {
	Valency   uint16
	Fallbacks uint16
	Domains   []DomainAddr
}

// P2P discovers peers via the dht; this node takes the edge class, and
// discovered members are classified as relays.
type P2P struct {
	Valency   uint16
	Fallbacks uint16
}

// Traditional discovers peers via the dht with all members treated as core.
type Traditional struct {
	Valency   uint16
	Fallbacks uint16
}

// LightWallet subscribes to a static list of relays and never accepts
// subscribers of its own.
type LightWallet struct {
	Relays []overlay.PeerID
}

func (Static) isView()      {}
func (BehindNAT) isView()   {}
func (P2P) isView()         {}
func (Traditional) isView() {}
func (LightWallet) isView() {}

// DomainAddr is a dns name plus the port its resolved addresses listen on.
type DomainAddr struct {
	Domain string
	Port   uint16
}
