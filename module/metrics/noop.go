package metrics

import (
	"time"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/module"
)

// NoopCollector discards all metrics. Used in tests and tools.
type NoopCollector struct{}

var _ module.QueueMetrics = (*NoopCollector)(nil)
var _ module.DNSMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) OutboundMessageEnqueued(overlay.MessageKind, overlay.NodeClass)   {}
func (nc *NoopCollector) OutboundAdmissionDenied(overlay.MessageKind, overlay.NodeClass)   {}
func (nc *NoopCollector) OutboundMessageDispatched(overlay.MessageKind, overlay.NodeClass) {}
func (nc *NoopCollector) OutboundSendFailed(overlay.MessageKind, overlay.NodeClass)        {}
func (nc *NoopCollector) OutboundMessageCancelled(overlay.MessageKind)                     {}
func (nc *NoopCollector) OutboundPeerSuspended(overlay.MessageKind, overlay.NodeClass)     {}
func (nc *NoopCollector) OutboundPendingDepth(overlay.NodeClass, uint)                     {}
func (nc *NoopCollector) DNSLookupDuration(time.Duration)                                  {}
func (nc *NoopCollector) DNSLookupFailure(string)                                          {}
func (nc *NoopCollector) DNSCacheHit()                                                     {}
