package metrics

const (
	namespaceNetwork = "network"

	subsystemOutbound = "outbound"
	subsystemDNS      = "dns"
)

const (
	LabelMessageKind = "kind"
	LabelNodeClass   = "class"
)
