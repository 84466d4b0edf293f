package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/module"
)

// OutboundCollector reports outbound-queue and dns metrics to prometheus.
type OutboundCollector struct {
	enqueuedCount    *prometheus.CounterVec
	admissionDenied  *prometheus.CounterVec
	dispatchedCount  *prometheus.CounterVec
	sendFailedCount  *prometheus.CounterVec
	cancelledCount   *prometheus.CounterVec
	suspendedCount   *prometheus.CounterVec
	pendingDepth     *prometheus.GaugeVec
	dnsLookupSeconds prometheus.Histogram
	dnsFailureCount  *prometheus.CounterVec
	dnsCacheHitCount prometheus.Counter
}

var _ module.QueueMetrics = (*OutboundCollector)(nil)
var _ module.DNSMetrics = (*OutboundCollector)(nil)

func NewOutboundCollector() *OutboundCollector {
	oc := &OutboundCollector{}

	oc.enqueuedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "message_enqueued_total",
			Help:      "number of link entries created by enqueue passes",
		}, []string{LabelMessageKind, LabelNodeClass},
	)

	oc.admissionDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "admission_denied_total",
			Help:      "number of submissions refused by per-link admission control",
		}, []string{LabelMessageKind, LabelNodeClass},
	)

	oc.dispatchedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "message_dispatched_total",
			Help:      "number of entries handed to the transport",
		}, []string{LabelMessageKind, LabelNodeClass},
	)

	oc.sendFailedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "send_failed_total",
			Help:      "number of sends the transport reported as failed",
		}, []string{LabelMessageKind, LabelNodeClass},
	)

	oc.cancelledCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "message_cancelled_total",
			Help:      "number of pending entries drained by peer removals",
		}, []string{LabelMessageKind},
	)

	oc.suspendedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "peer_suspended_total",
			Help:      "number of (peer, kind) suspensions entered after send failures",
		}, []string{LabelMessageKind, LabelNodeClass},
	)

	oc.pendingDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemOutbound,
			Name:      "pending_depth",
			Help:      "pending-heap depth of outbound links by peer class",
		}, []string{LabelNodeClass},
	)

	oc.dnsLookupSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemDNS,
			Name:      "lookup_duration_seconds",
			Help:      "time spent on upstream dns lookups",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)

	oc.dnsFailureCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemDNS,
			Name:      "lookup_failure_total",
			Help:      "number of failed dns lookups by domain",
		}, []string{"domain"},
	)

	oc.dnsCacheHitCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceNetwork,
			Subsystem: subsystemDNS,
			Name:      "cache_hit_total",
			Help:      "number of dns lookups served from the cache",
		},
	)

	return oc
}

func (oc *OutboundCollector) OutboundMessageEnqueued(kind overlay.MessageKind, class overlay.NodeClass) {
	oc.enqueuedCount.WithLabelValues(kind.String(), class.String()).Inc()
}

func (oc *OutboundCollector) OutboundAdmissionDenied(kind overlay.MessageKind, class overlay.NodeClass) {
	oc.admissionDenied.WithLabelValues(kind.String(), class.String()).Inc()
}

func (oc *OutboundCollector) OutboundMessageDispatched(kind overlay.MessageKind, class overlay.NodeClass) {
	oc.dispatchedCount.WithLabelValues(kind.String(), class.String()).Inc()
}

func (oc *OutboundCollector) OutboundSendFailed(kind overlay.MessageKind, class overlay.NodeClass) {
	oc.sendFailedCount.WithLabelValues(kind.String(), class.String()).Inc()
}

func (oc *OutboundCollector) OutboundMessageCancelled(kind overlay.MessageKind) {
	oc.cancelledCount.WithLabelValues(kind.String()).Inc()
}

func (oc *OutboundCollector) OutboundPeerSuspended(kind overlay.MessageKind, class overlay.NodeClass) {
	oc.suspendedCount.WithLabelValues(kind.String(), class.String()).Inc()
}

func (oc *OutboundCollector) OutboundPendingDepth(class overlay.NodeClass, depth uint) {
	oc.pendingDepth.WithLabelValues(class.String()).Set(float64(depth))
}

func (oc *OutboundCollector) DNSLookupDuration(duration time.Duration) {
	oc.dnsLookupSeconds.Observe(duration.Seconds())
}

func (oc *OutboundCollector) DNSLookupFailure(domain string) {
	oc.dnsFailureCount.WithLabelValues(domain).Inc()
}

func (oc *OutboundCollector) DNSCacheHit() {
	oc.dnsCacheHitCount.Inc()
}
