package policy

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// Document is the ingested policy document. All sections are optional;
// values present override the defaults derived from the node's own class.
type Document struct {
	Enqueue map[string]EnqueueEntryDoc `yaml:"enqueue,omitempty"`
	Dequeue map[string]DequeueDoc      `yaml:"dequeue,omitempty"`
	Failure map[string]map[string]uint `yaml:"failure,omitempty"`
}

// EnqueueEntryDoc is the per-kind enqueue value. Kinds carrying an origin
// tag (transaction, mpc) use the send/forward split; all other kinds give
// the rule directly.
type EnqueueEntryDoc struct {
	All     *AllRuleDoc     `yaml:"all,omitempty"`
	One     *OneRuleDoc     `yaml:"one,omitempty"`
	Send    *EnqueueRuleDoc `yaml:"send,omitempty"`
	Forward *EnqueueRuleDoc `yaml:"forward,omitempty"`
}

// EnqueueRuleDoc holds exactly one of the two rule shapes.
type EnqueueRuleDoc struct {
	All *AllRuleDoc `yaml:"all,omitempty"`
	One *OneRuleDoc `yaml:"one,omitempty"`
}

// AllRuleDoc is the document form of EnqueueAll.
type AllRuleDoc struct {
	NodeType   string `yaml:"nodeType"`
	MaxAhead   uint   `yaml:"maxAhead"`
	Precedence string `yaml:"precedence"`
}

// OneRuleDoc is the document form of EnqueueOne.
type OneRuleDoc struct {
	NodeTypes  []string `yaml:"nodeTypes,flow"`
	MaxAhead   uint     `yaml:"maxAhead"`
	Precedence string   `yaml:"precedence"`
}

// DequeueDoc is the document form of DequeueRule. An absent rateLimit means
// no limiting.
type DequeueDoc struct {
	MaxInFlight uint    `yaml:"maxInFlight"`
	RateLimit   *uint32 `yaml:"rateLimit,omitempty"`
}

// ParseDocument strictly decodes a policy document.
func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, NewBadPolicyErrorf("could not decode policy document: %v", err)
	}
	return &doc, nil
}

// Marshal serializes the document back to yaml.
func (d *Document) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("could not marshal policy document: %w", err)
	}
	return out, nil
}

// FromDocument builds the policy model: defaults derived from selfClass,
// overridden by every value the document provides. A nil document yields
// the plain defaults.
func FromDocument(doc *Document, selfClass overlay.NodeClass) (*Model, error) {
	m := DefaultModel(selfClass)
	if doc == nil {
		return m, nil
	}

	for kindStr, entry := range doc.Enqueue {
		kind, err := overlay.ParseMessageKind(kindStr)
		if err != nil {
			return nil, NewBadPolicyErrorf("enqueue: %v", err)
		}
		if kind.HasOrigin() {
			if entry.All != nil || entry.One != nil {
				return nil, NewBadPolicyErrorf("enqueue: kind %q requires send/forward rules", kindStr)
			}
			if entry.Send != nil {
				rule, err := convertEnqueueRule(kindStr, entry.Send.All, entry.Send.One)
				if err != nil {
					return nil, err
				}
				m.setEnqueue(overlay.MsgClass{Kind: kind}, []EnqueueRule{rule})
			}
			if entry.Forward != nil {
				rule, err := convertEnqueueRule(kindStr, entry.Forward.All, entry.Forward.One)
				if err != nil {
					return nil, err
				}
				m.setEnqueue(overlay.MsgClass{Kind: kind, Forwarded: true}, []EnqueueRule{rule})
			}
			continue
		}

		if entry.Send != nil || entry.Forward != nil {
			return nil, NewBadPolicyErrorf("enqueue: kind %q carries no origin, give the rule directly", kindStr)
		}
		rule, err := convertEnqueueRule(kindStr, entry.All, entry.One)
		if err != nil {
			return nil, err
		}
		m.setEnqueue(overlay.MsgClass{Kind: kind}, []EnqueueRule{rule})
	}

	for classStr, dq := range doc.Dequeue {
		class, err := overlay.ParseNodeClass(classStr)
		if err != nil {
			return nil, NewBadPolicyErrorf("dequeue: %v", err)
		}
		if dq.MaxInFlight == 0 {
			return nil, NewBadPolicyErrorf("dequeue: maxInFlight for %q must be positive", classStr)
		}
		rule := DequeueRule{MaxInFlight: dq.MaxInFlight, RateLimit: NoRateLimit}
		if dq.RateLimit != nil {
			if *dq.RateLimit == 0 {
				return nil, NewBadPolicyErrorf("dequeue: rateLimit for %q must be positive when present", classStr)
			}
			rule.RateLimit = MaxMsgPerSec(*dq.RateLimit)
		}
		m.setDequeue(class, rule)
	}

	for kindStr, byClass := range doc.Failure {
		kind, err := overlay.ParseMessageKind(kindStr)
		if err != nil {
			return nil, NewBadPolicyErrorf("failure: %v", err)
		}
		for classStr, seconds := range byClass {
			class, err := overlay.ParseNodeClass(classStr)
			if err != nil {
				return nil, NewBadPolicyErrorf("failure: %v", err)
			}
			m.setFailure(class, kind, FailureRule{ReconsiderAfter: time.Duration(seconds) * time.Second})
		}
	}

	return m, nil
}

func convertEnqueueRule(kindStr string, all *AllRuleDoc, one *OneRuleDoc) (EnqueueRule, error) {
	switch {
	case all != nil && one != nil:
		return nil, NewBadPolicyErrorf("enqueue: kind %q gives both 'all' and 'one'", kindStr)
	case all != nil:
		class, err := overlay.ParseNodeClass(all.NodeType)
		if err != nil {
			return nil, NewBadPolicyErrorf("enqueue %q: %v", kindStr, err)
		}
		prec, err := overlay.ParsePrecedence(all.Precedence)
		if err != nil {
			return nil, NewBadPolicyErrorf("enqueue %q: %v", kindStr, err)
		}
		return EnqueueAll{Class: class, MaxAhead: all.MaxAhead, Precedence: prec}, nil
	case one != nil:
		if len(one.NodeTypes) == 0 {
			return nil, NewBadPolicyErrorf("enqueue %q: 'one' rule needs at least one node type", kindStr)
		}
		classes := make([]overlay.NodeClass, 0, len(one.NodeTypes))
		for _, nt := range one.NodeTypes {
			class, err := overlay.ParseNodeClass(nt)
			if err != nil {
				return nil, NewBadPolicyErrorf("enqueue %q: %v", kindStr, err)
			}
			classes = append(classes, class)
		}
		prec, err := overlay.ParsePrecedence(one.Precedence)
		if err != nil {
			return nil, NewBadPolicyErrorf("enqueue %q: %v", kindStr, err)
		}
		return EnqueueOne{Classes: classes, MaxAhead: one.MaxAhead, Precedence: prec}, nil
	default:
		return nil, NewBadPolicyErrorf("enqueue: kind %q gives neither 'all' nor 'one'", kindStr)
	}
}
