// Package network declares the contracts between the outbound queue and its
// external collaborators: the wire transport below it and the discovery
// subscribers feeding it peers.
package network

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// CompletionFunc reports the outcome of one submitted send. It is invoked
// exactly once per submission; a nil error means the message was delivered.
type CompletionFunc func(error)

// Transport is the unicast send primitive the outbound queue drives.
type Transport interface {
	// Submit hands one payload to the transport for delivery to the peer.
	// It must not block on network completion; the outcome is reported
	// asynchronously through complete. A non-nil return means the message
	// was never accepted and complete will not be called.
	Submit(peer overlay.PeerID, payload []byte, complete CompletionFunc) error
}

// TransportFactory creates the transport during outbound queue construction.
// A factory error is fatal to node startup.
type TransportFactory func() (Transport, error)

// PeerUpdater is the slice of the outbound queue's surface that discovery
// subscribers mutate the peer set through.
type PeerUpdater interface {
	// AddKnownPeers union-merges the tiers into the current peer model and
	// returns the ids that were actually added.
	AddKnownPeers(tiers overlay.PeerTiers) []overlay.PeerID

	// RemovePeer removes the peer, cancelling its pending entries. It
	// returns whether the peer was known.
	RemovePeer(id overlay.PeerID) bool
}
