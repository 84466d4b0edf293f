package policy

import (
	"time"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// Default dispatch bounds by peer class. Core links carry block traffic and
// get the widest window; edge links are narrow and rate limited.
var defaultDequeue = map[overlay.NodeClass]DequeueRule{
	overlay.NodeClassCore:  {MaxInFlight: 3, RateLimit: NoRateLimit},
	overlay.NodeClassRelay: {MaxInFlight: 2, RateLimit: NoRateLimit},
	overlay.NodeClassEdge:  {MaxInFlight: 1, RateLimit: MaxMsgPerSec(3)},
}

// Default cooldowns by peer class, uniform across kinds.
var defaultReconsider = map[overlay.NodeClass]time.Duration{
	overlay.NodeClassCore:  20 * time.Second,
	overlay.NodeClassRelay: 20 * time.Second,
	overlay.NodeClassEdge:  200 * time.Second,
}

// DefaultModel derives the policy table from the node's own class when no
// explicit policy document is provided.
func DefaultModel(selfClass overlay.NodeClass) *Model {
	m := newEmptyModel()

	for class, rule := range defaultDequeue {
		m.setDequeue(class, rule)
	}
	for class, after := range defaultReconsider {
		for _, kind := range overlay.AllMessageKinds() {
			m.setFailure(class, kind, FailureRule{ReconsiderAfter: after})
		}
	}

	switch selfClass {
	case overlay.NodeClassCore:
		m.setEnqueue(send(overlay.MsgAnnounceBlockHeader), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 0, Precedence: overlay.PrecedenceHighest},
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 0, Precedence: overlay.PrecedenceHigh},
		})
		m.setEnqueue(send(overlay.MsgRequestBlockHeaders), []EnqueueRule{
			EnqueueOne{Classes: coreAndRelay(), MaxAhead: 1, Precedence: overlay.PrecedenceHigh},
		})
		m.setEnqueue(send(overlay.MsgRequestBlocks), []EnqueueRule{
			EnqueueOne{Classes: coreAndRelay(), MaxAhead: 1, Precedence: overlay.PrecedenceHigh},
		})
		m.setEnqueue(send(overlay.MsgTransaction), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 20, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(forward(overlay.MsgTransaction), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 20, Precedence: overlay.PrecedenceLow},
		})
		m.setEnqueue(send(overlay.MsgMPC), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 5, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(forward(overlay.MsgMPC), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 5, Precedence: overlay.PrecedenceLow},
		})

	case overlay.NodeClassRelay:
		m.setEnqueue(send(overlay.MsgAnnounceBlockHeader), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 0, Precedence: overlay.PrecedenceHighest},
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 0, Precedence: overlay.PrecedenceHigh},
		})
		m.setEnqueue(send(overlay.MsgRequestBlockHeaders), []EnqueueRule{
			EnqueueOne{Classes: coreAndRelay(), MaxAhead: 1, Precedence: overlay.PrecedenceHigh},
		})
		m.setEnqueue(send(overlay.MsgRequestBlocks), []EnqueueRule{
			EnqueueOne{Classes: coreAndRelay(), MaxAhead: 1, Precedence: overlay.PrecedenceHigh},
		})
		m.setEnqueue(send(overlay.MsgTransaction), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 20, Precedence: overlay.PrecedenceMedium},
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 20, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(forward(overlay.MsgTransaction), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 20, Precedence: overlay.PrecedenceLow},
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 20, Precedence: overlay.PrecedenceLow},
		})
		m.setEnqueue(send(overlay.MsgMPC), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 5, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(forward(overlay.MsgMPC), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassCore, MaxAhead: 5, Precedence: overlay.PrecedenceLow},
		})

	default:
		// edge nodes only ever talk to relays
		m.setEnqueue(send(overlay.MsgAnnounceBlockHeader), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 0, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(send(overlay.MsgRequestBlockHeaders), []EnqueueRule{
			EnqueueOne{Classes: relayOnly(), MaxAhead: 1, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(send(overlay.MsgRequestBlocks), []EnqueueRule{
			EnqueueOne{Classes: relayOnly(), MaxAhead: 1, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(send(overlay.MsgTransaction), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 20, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(forward(overlay.MsgTransaction), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 20, Precedence: overlay.PrecedenceLow},
		})
		m.setEnqueue(send(overlay.MsgMPC), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 5, Precedence: overlay.PrecedenceMedium},
		})
		m.setEnqueue(forward(overlay.MsgMPC), []EnqueueRule{
			EnqueueAll{Class: overlay.NodeClassRelay, MaxAhead: 5, Precedence: overlay.PrecedenceLow},
		})
	}

	return m
}

func send(kind overlay.MessageKind) overlay.MsgClass {
	return overlay.MsgClass{Kind: kind}
}

func forward(kind overlay.MessageKind) overlay.MsgClass {
	return overlay.MsgClass{Kind: kind, Forwarded: true}
}

func coreAndRelay() []overlay.NodeClass {
	return []overlay.NodeClass{overlay.NodeClassCore, overlay.NodeClassRelay}
}

func relayOnly() []overlay.NodeClass {
	return []overlay.NodeClass{overlay.NodeClassRelay}
}
