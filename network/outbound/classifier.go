package outbound

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// Classify maps a submitted message to the class its policy is looked up by,
// plus the peer to exclude from recipients: a relayed message is never
// echoed back to its source.
//
// Kinds without an origin distinction always classify as authored here, even
// if the submitter set a forward tag.
func Classify(msg *overlay.Message) (overlay.MsgClass, overlay.PeerID, bool) {
	if !msg.Kind.HasOrigin() {
		return overlay.MsgClass{Kind: msg.Kind}, overlay.PeerID{}, false
	}
	if source, ok := msg.Origin.Source(); ok {
		return overlay.MsgClass{Kind: msg.Kind, Forwarded: true}, source, true
	}
	return overlay.MsgClass{Kind: msg.Kind}, overlay.PeerID{}, false
}
