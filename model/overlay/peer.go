package overlay

import (
	"fmt"
	"net"
	"strconv"
)

// PeerID identifies a remote node by its dialable address. Identity is by
// value: two ids with the same host and port denote the same peer.
type PeerID struct {
	Host string
	Port uint16
}

// NewPeerID constructs a PeerID from a host and port.
func NewPeerID(host string, port uint16) PeerID {
	return PeerID{Host: host, Port: port}
}

// ParsePeerID parses a "host:port" string into a PeerID.
func ParsePeerID(s string) (PeerID, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return PeerID{}, fmt.Errorf("could not split peer address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return PeerID{}, fmt.Errorf("could not parse port of peer address %q: %w", s, err)
	}
	return PeerID{Host: host, Port: uint16(port)}, nil
}

func (id PeerID) String() string {
	return net.JoinHostPort(id.Host, strconv.Itoa(int(id.Port)))
}

// Peer pairs a peer id with the node class its routing tier assigns to it.
// Peer records are immutable once created.
type Peer struct {
	ID    PeerID
	Class NodeClass
}
