package overlay

import "fmt"

// MessageKind enumerates the outbound message types the queue schedules.
// The set is closed: policy tables are total over these five kinds.
type MessageKind int

const (
	MsgAnnounceBlockHeader MessageKind = iota
	MsgRequestBlockHeaders
	MsgRequestBlocks
	MsgTransaction
	MsgMPC
)

// AllMessageKinds returns every message kind.
func AllMessageKinds() []MessageKind {
	return []MessageKind{
		MsgAnnounceBlockHeader,
		MsgRequestBlockHeaders,
		MsgRequestBlocks,
		MsgTransaction,
		MsgMPC,
	}
}

func (k MessageKind) String() string {
	switch k {
	case MsgAnnounceBlockHeader:
		return "announceBlockHeader"
	case MsgRequestBlockHeaders:
		return "requestBlockHeaders"
	case MsgRequestBlocks:
		return "requestBlocks"
	case MsgTransaction:
		return "transaction"
	case MsgMPC:
		return "mpc"
	default:
		return fmt.Sprintf("unknown-message-kind-%d", int(k))
	}
}

// Valid returns whether k is one of the five declared kinds.
func (k MessageKind) Valid() bool {
	return k >= MsgAnnounceBlockHeader && k <= MsgMPC
}

// HasOrigin reports whether the kind carries an origin tag. Only relayed
// kinds (transactions and MPC traffic) distinguish authored from forwarded.
func (k MessageKind) HasOrigin() bool {
	return k == MsgTransaction || k == MsgMPC
}

// ParseMessageKind converts the document spelling of a message kind into its
// MessageKind value.
func ParseMessageKind(s string) (MessageKind, error) {
	switch s {
	case "announceBlockHeader":
		return MsgAnnounceBlockHeader, nil
	case "requestBlockHeaders":
		return MsgRequestBlockHeaders, nil
	case "requestBlocks":
		return MsgRequestBlocks, nil
	case "transaction":
		return MsgTransaction, nil
	case "mpc":
		return MsgMPC, nil
	default:
		return 0, fmt.Errorf("invalid message kind string: %q", s)
	}
}

// Origin records whether this node authored a relay-eligible message or is
// forwarding it from a previous hop. The zero value is OriginSender.
type Origin struct {
	forwarded bool
	source    PeerID
}

// OriginSender marks a message authored by this node.
func OriginSender() Origin {
	return Origin{}
}

// OriginForward marks a message relayed from the given prior hop. The source
// is excluded from the message's recipients.
func OriginForward(source PeerID) Origin {
	return Origin{forwarded: true, source: source}
}

// Forwarded reports whether the message was relayed from another node.
func (o Origin) Forwarded() bool {
	return o.forwarded
}

// Source returns the prior hop of a forwarded message.
func (o Origin) Source() (PeerID, bool) {
	return o.source, o.forwarded
}

func (o Origin) String() string {
	if o.forwarded {
		return fmt.Sprintf("forward(%s)", o.source)
	}
	return "sender"
}

// MsgClass is the (kind, origin) pair policy lookup is keyed by. Kinds
// without an origin distinction always classify with Forwarded false.
type MsgClass struct {
	Kind      MessageKind
	Forwarded bool
}

func (c MsgClass) String() string {
	if c.Forwarded {
		return c.Kind.String() + "/forward"
	}
	return c.Kind.String() + "/send"
}

// Message is one outbound submission: a kind, an origin tag, and the encoded
// payload handed to the transport verbatim.
type Message struct {
	Kind    MessageKind
	Origin  Origin
	Payload []byte
}
