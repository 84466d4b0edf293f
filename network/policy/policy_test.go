package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/network/policy"
)

const policyDoc = `
enqueue:
  announceBlockHeader:
    all: {nodeType: core, maxAhead: 0, precedence: highest}
  requestBlocks:
    one: {nodeTypes: [core, relay], maxAhead: 1, precedence: high}
  transaction:
    send:
      all: {nodeType: relay, maxAhead: 20, precedence: medium}
    forward:
      all: {nodeType: relay, maxAhead: 20, precedence: low}
dequeue:
  core: {maxInFlight: 3}
  relay: {maxInFlight: 2, rateLimit: 5}
failure:
  transaction:
    core: 20
    relay: 40
`

func TestFromDocumentAgreesWithDocument(t *testing.T) {
	doc, err := policy.ParseDocument([]byte(policyDoc))
	require.NoError(t, err)
	model, err := policy.FromDocument(doc, overlay.NodeClassCore)
	require.NoError(t, err)

	rules := model.EnqueueRules(overlay.MsgClass{Kind: overlay.MsgAnnounceBlockHeader})
	require.Equal(t, []policy.EnqueueRule{policy.EnqueueAll{
		Class:      overlay.NodeClassCore,
		MaxAhead:   0,
		Precedence: overlay.PrecedenceHighest,
	}}, rules)

	rules = model.EnqueueRules(overlay.MsgClass{Kind: overlay.MsgRequestBlocks})
	require.Equal(t, []policy.EnqueueRule{policy.EnqueueOne{
		Classes:    []overlay.NodeClass{overlay.NodeClassCore, overlay.NodeClassRelay},
		MaxAhead:   1,
		Precedence: overlay.PrecedenceHigh,
	}}, rules)

	rules = model.EnqueueRules(overlay.MsgClass{Kind: overlay.MsgTransaction, Forwarded: true})
	require.Equal(t, []policy.EnqueueRule{policy.EnqueueAll{
		Class:      overlay.NodeClassRelay,
		MaxAhead:   20,
		Precedence: overlay.PrecedenceLow,
	}}, rules)

	require.Equal(t, policy.DequeueRule{MaxInFlight: 3, RateLimit: policy.NoRateLimit},
		model.DequeueRule(overlay.NodeClassCore))
	require.Equal(t, policy.DequeueRule{MaxInFlight: 2, RateLimit: policy.MaxMsgPerSec(5)},
		model.DequeueRule(overlay.NodeClassRelay))

	require.Equal(t, 20*time.Second,
		model.FailureRule(overlay.NodeClassCore, overlay.MsgTransaction).ReconsiderAfter)
	require.Equal(t, 40*time.Second,
		model.FailureRule(overlay.NodeClassRelay, overlay.MsgTransaction).ReconsiderAfter)
}

func TestDocumentRoundTrip(t *testing.T) {
	doc, err := policy.ParseDocument([]byte(policyDoc))
	require.NoError(t, err)

	out, err := doc.Marshal()
	require.NoError(t, err)

	again, err := policy.ParseDocument(out)
	require.NoError(t, err)
	require.Equal(t, doc, again)
}

func TestDefaultsAreTotal(t *testing.T) {
	for _, selfClass := range overlay.AllNodeClasses() {
		model := policy.DefaultModel(selfClass)

		// every kind must have an enqueue rule for its valid origins
		for _, kind := range overlay.AllMessageKinds() {
			require.NotEmpty(t, model.EnqueueRules(overlay.MsgClass{Kind: kind}),
				"self %s kind %s send", selfClass, kind)
			if kind.HasOrigin() {
				require.NotEmpty(t, model.EnqueueRules(overlay.MsgClass{Kind: kind, Forwarded: true}),
					"self %s kind %s forward", selfClass, kind)
			}
		}

		// every peer class has dispatch bounds and cooldowns
		for _, class := range overlay.AllNodeClasses() {
			require.NotZero(t, model.DequeueRule(class).MaxInFlight)
			for _, kind := range overlay.AllMessageKinds() {
				require.NotZero(t, model.FailureRule(class, kind).ReconsiderAfter)
			}
		}
	}
}

func TestEdgeDefaultsOnlyTargetRelays(t *testing.T) {
	model := policy.DefaultModel(overlay.NodeClassEdge)
	for _, kind := range overlay.AllMessageKinds() {
		for _, forwarded := range []bool{false, true} {
			if forwarded && !kind.HasOrigin() {
				continue
			}
			for _, rule := range model.EnqueueRules(overlay.MsgClass{Kind: kind, Forwarded: forwarded}) {
				switch r := rule.(type) {
				case policy.EnqueueAll:
					assert.Equal(t, overlay.NodeClassRelay, r.Class)
				case policy.EnqueueOne:
					assert.Equal(t, []overlay.NodeClass{overlay.NodeClassRelay}, r.Classes)
				}
			}
		}
	}
}

func TestBadPolicies(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{
			name: "unknown message kind",
			raw: `
enqueue:
  gossip:
    all: {nodeType: core, maxAhead: 0, precedence: high}
`,
		},
		{
			name: "unknown precedence",
			raw: `
enqueue:
  requestBlocks:
    all: {nodeType: core, maxAhead: 0, precedence: urgent}
`,
		},
		{
			name: "unknown node type",
			raw: `
dequeue:
  validator: {maxInFlight: 2}
`,
		},
		{
			name: "both all and one",
			raw: `
enqueue:
  requestBlocks:
    all: {nodeType: core, maxAhead: 0, precedence: high}
    one: {nodeTypes: [core], maxAhead: 0, precedence: high}
`,
		},
		{
			name: "origin kind without send/forward split",
			raw: `
enqueue:
  transaction:
    all: {nodeType: relay, maxAhead: 20, precedence: medium}
`,
		},
		{
			name: "send/forward on originless kind",
			raw: `
enqueue:
  requestBlocks:
    send:
      all: {nodeType: core, maxAhead: 0, precedence: high}
`,
		},
		{
			name: "zero maxInFlight",
			raw: `
dequeue:
  core: {maxInFlight: 0}
`,
		},
		{
			name: "zero rateLimit",
			raw: `
dequeue:
  core: {maxInFlight: 1, rateLimit: 0}
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := policy.ParseDocument([]byte(tc.raw))
			require.NoError(t, err)
			_, err = policy.FromDocument(doc, overlay.NodeClassCore)
			require.Error(t, err)
			require.True(t, policy.IsBadPolicyError(err), "expected BadPolicyError, got %v", err)
		})
	}
}

func TestNilDocumentYieldsDefaults(t *testing.T) {
	model, err := policy.FromDocument(nil, overlay.NodeClassRelay)
	require.NoError(t, err)
	require.NotEmpty(t, model.EnqueueRules(overlay.MsgClass{Kind: overlay.MsgAnnounceBlockHeader}))
}
