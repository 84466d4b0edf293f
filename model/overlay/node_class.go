package overlay

import (
	"fmt"
)

// NodeClass partitions peers by their role in the overlay. A peer's class
// determines the routing tier its links belong to and which dequeue and
// failure policies govern those links.
type NodeClass int

const (
	// NodeClassCore nodes form the trusted center of the overlay and
	// exchange block data directly with each other.
	NodeClassCore NodeClass = iota
	// NodeClassRelay nodes bridge traffic between the core and the edge.
	NodeClassRelay
	// NodeClassEdge nodes sit behind relays. They accept no subscribers,
	// except in a p2p topology, where relay nodes may subscribe to them.
	NodeClassEdge
)

// nodeClassCount is the number of valid node classes.
const nodeClassCount = 3

// AllNodeClasses returns every node class in tier order.
func AllNodeClasses() []NodeClass {
	return []NodeClass{NodeClassCore, NodeClassRelay, NodeClassEdge}
}

func (c NodeClass) String() string {
	switch c {
	case NodeClassCore:
		return "core"
	case NodeClassRelay:
		return "relay"
	case NodeClassEdge:
		return "edge"
	default:
		return fmt.Sprintf("unknown-node-class-%d", int(c))
	}
}

// Valid returns whether c is one of the three declared classes.
func (c NodeClass) Valid() bool {
	return c >= NodeClassCore && c <= NodeClassEdge
}

// ParseNodeClass converts the document spelling of a node class into its
// NodeClass value.
func ParseNodeClass(s string) (NodeClass, error) {
	switch s {
	case "core":
		return NodeClassCore, nil
	case "relay":
		return NodeClassRelay, nil
	case "edge":
		return NodeClassEdge, nil
	default:
		return 0, fmt.Errorf("invalid node class string: %q (expected one of core, relay, edge)", s)
	}
}
