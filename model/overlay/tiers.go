package overlay

// AltGroup is an ordered list of alternative peers serving one logical
// delivery slot. Position 0 is the primary; positions 1..k are fallbacks
// tried in order when the primary is unavailable.
type AltGroup []PeerID

// Clone returns a copy of the group.
func (g AltGroup) Clone() AltGroup {
	out := make(AltGroup, len(g))
	copy(out, g)
	return out
}

// PeerTiers organizes the known peers into routing tiers, one list of
// alternative groups per node class. A group lives in the tier of its
// primary's class. Within one PeerTiers value no peer id occurs in more than
// one group; Add deduplicates at insertion, first occurrence wins.
//
// PeerTiers is not concurrency safe; the owner must synchronize access.
type PeerTiers map[NodeClass][]AltGroup

// NewPeerTiers returns an empty tier set.
func NewPeerTiers() PeerTiers {
	return make(PeerTiers, nodeClassCount)
}

// Add union-merges the given tiers into t, preserving insertion order.
// Peer ids already present anywhere in t are silently dropped from the
// incoming groups; groups left empty after deduplication are not inserted.
// It returns the ids that were actually added.
func (t PeerTiers) Add(other PeerTiers) []PeerID {
	var added []PeerID
	for _, class := range AllNodeClasses() {
		for _, group := range other[class] {
			var fresh AltGroup
			for _, id := range group {
				if t.Contains(id) || containsID(fresh, id) {
					continue
				}
				fresh = append(fresh, id)
			}
			if len(fresh) == 0 {
				continue
			}
			t[class] = append(t[class], fresh)
			added = append(added, fresh...)
		}
	}
	return added
}

// Remove deletes the peer from whichever group contains it. A group emptied
// by the removal is dropped from its tier. It returns whether the peer was
// present.
func (t PeerTiers) Remove(id PeerID) bool {
	for class, groups := range t {
		for gi, group := range groups {
			for pi, member := range group {
				if member != id {
					continue
				}
				group = append(group[:pi], group[pi+1:]...)
				if len(group) == 0 {
					t[class] = append(groups[:gi], groups[gi+1:]...)
				} else {
					groups[gi] = group
				}
				return true
			}
		}
	}
	return false
}

// Classify returns the node class of the tier holding the peer.
func (t PeerTiers) Classify(id PeerID) (NodeClass, bool) {
	for class, groups := range t {
		for _, group := range groups {
			if containsID(group, id) {
				return class, true
			}
		}
	}
	return 0, false
}

// Contains reports whether the peer occurs anywhere in the tiers.
func (t PeerTiers) Contains(id PeerID) bool {
	_, ok := t.Classify(id)
	return ok
}

// ForClass returns the alternative groups of one tier in insertion order.
func (t PeerTiers) ForClass(class NodeClass) []AltGroup {
	return t[class]
}

// PeersOfClass returns every peer of the given class across all alternative
// groups, in insertion order.
func (t PeerTiers) PeersOfClass(class NodeClass) []PeerID {
	var out []PeerID
	for _, group := range t[class] {
		out = append(out, group...)
	}
	return out
}

// Flatten returns every known peer, walking tiers in class order and groups
// in insertion order.
func (t PeerTiers) Flatten() []Peer {
	var out []Peer
	for _, class := range AllNodeClasses() {
		for _, group := range t[class] {
			for _, id := range group {
				out = append(out, Peer{ID: id, Class: class})
			}
		}
	}
	return out
}

// Len returns the number of peers across all tiers.
func (t PeerTiers) Len() int {
	n := 0
	for _, groups := range t {
		for _, group := range groups {
			n += len(group)
		}
	}
	return n
}

// Clone returns a deep copy, suitable as a stable snapshot.
func (t PeerTiers) Clone() PeerTiers {
	out := NewPeerTiers()
	for class, groups := range t {
		cloned := make([]AltGroup, 0, len(groups))
		for _, group := range groups {
			cloned = append(cloned, group.Clone())
		}
		out[class] = cloned
	}
	return out
}

func containsID(group AltGroup, id PeerID) bool {
	for _, member := range group {
		if member == id {
			return true
		}
	}
	return false
}
