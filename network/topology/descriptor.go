package topology

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// Descriptor describes a discovery worker the launcher should spawn. The
// outbound queue does not interpret descriptors; they are handed to the
// subsystem launchers opaquely.
type Descriptor interface {
	isDescriptor()
}

// DNSDescriptor requests a dns subscriber resolving the given domains on an
// interval and maintaining valency alternative groups of fallbacks+1 members.
type DNSDescriptor struct {
	Domains   []DomainAddr
	Valency   uint16
	Fallbacks uint16
}

// DHTDescriptor requests a kademlia subscriber. MemberClass is the class
// assigned to discovered members.
type DHTDescriptor struct {
	MemberClass overlay.NodeClass
	Valency     uint16
	Fallbacks   uint16
}

func (DNSDescriptor) isDescriptor() {}
func (DHTDescriptor) isDescriptor() {}
