package module

import (
	"time"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// QueueMetrics exposes the instrumentation points of the outbound queue.
type QueueMetrics interface {
	// OutboundMessageEnqueued is called once per link entry created by an
	// enqueue pass.
	OutboundMessageEnqueued(kind overlay.MessageKind, class overlay.NodeClass)

	// OutboundAdmissionDenied is called when a submission is refused on a
	// link because too many higher-precedence entries are already pending.
	OutboundAdmissionDenied(kind overlay.MessageKind, class overlay.NodeClass)

	// OutboundMessageDispatched is called when an entry is handed to the
	// transport.
	OutboundMessageDispatched(kind overlay.MessageKind, class overlay.NodeClass)

	// OutboundSendFailed is called when the transport reports a failed send.
	OutboundSendFailed(kind overlay.MessageKind, class overlay.NodeClass)

	// OutboundMessageCancelled is called for every pending entry drained by
	// a peer removal.
	OutboundMessageCancelled(kind overlay.MessageKind)

	// OutboundPeerSuspended is called when a send failure puts a (peer,
	// kind) pair into its reconsider-after window.
	OutboundPeerSuspended(kind overlay.MessageKind, class overlay.NodeClass)

	// OutboundPendingDepth reports the pending-heap depth of a link after
	// it changed.
	OutboundPendingDepth(class overlay.NodeClass, depth uint)
}

// DNSMetrics exposes the instrumentation points of the dns discovery layer.
type DNSMetrics interface {
	// DNSLookupDuration tracks the time spent on one upstream lookup.
	DNSLookupDuration(duration time.Duration)

	// DNSLookupFailure is called when resolving a domain fails.
	DNSLookupFailure(domain string)

	// DNSCacheHit is called when a lookup is served from the cache.
	DNSCacheHit()
}
