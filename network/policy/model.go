package policy

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

type failureKey struct {
	class overlay.NodeClass
	kind  overlay.MessageKind
}

// Model is the immutable policy table the outbound queue consults. Lookups
// are pure and require no locking.
type Model struct {
	enqueue map[overlay.MsgClass][]EnqueueRule
	dequeue map[overlay.NodeClass]DequeueRule
	failure map[failureKey]FailureRule
}

// EnqueueRules returns the enqueue passes for a message class, applied in
// order. The returned slice must not be mutated.
func (m *Model) EnqueueRules(mc overlay.MsgClass) []EnqueueRule {
	return m.enqueue[mc]
}

// DequeueRule returns the dispatch bounds for links to peers of the class.
func (m *Model) DequeueRule(class overlay.NodeClass) DequeueRule {
	return m.dequeue[class]
}

// FailureRule returns the cooldown applied after a failed send of the kind
// to a peer of the class.
func (m *Model) FailureRule(class overlay.NodeClass, kind overlay.MessageKind) FailureRule {
	return m.failure[failureKey{class: class, kind: kind}]
}

func (m *Model) setEnqueue(mc overlay.MsgClass, rules []EnqueueRule) {
	m.enqueue[mc] = rules
}

func (m *Model) setDequeue(class overlay.NodeClass, rule DequeueRule) {
	m.dequeue[class] = rule
}

func (m *Model) setFailure(class overlay.NodeClass, kind overlay.MessageKind, rule FailureRule) {
	m.failure[failureKey{class: class, kind: kind}] = rule
}

func newEmptyModel() *Model {
	return &Model{
		enqueue: make(map[overlay.MsgClass][]EnqueueRule),
		dequeue: make(map[overlay.NodeClass]DequeueRule),
		failure: make(map[failureKey]FailureRule),
	}
}

// Builder assembles a Model programmatically. Classes without an explicit
// dequeue or failure rule fall back to the defaults, so a partially
// specified model never yields a zero dispatch window.
type Builder struct {
	m *Model
}

func NewBuilder() *Builder {
	return &Builder{m: newEmptyModel()}
}

func (b *Builder) Enqueue(mc overlay.MsgClass, rules ...EnqueueRule) *Builder {
	b.m.setEnqueue(mc, rules)
	return b
}

func (b *Builder) Dequeue(class overlay.NodeClass, rule DequeueRule) *Builder {
	b.m.setDequeue(class, rule)
	return b
}

func (b *Builder) Failure(class overlay.NodeClass, kind overlay.MessageKind, rule FailureRule) *Builder {
	b.m.setFailure(class, kind, rule)
	return b
}

func (b *Builder) Build() *Model {
	for class, rule := range defaultDequeue {
		if _, ok := b.m.dequeue[class]; !ok {
			b.m.setDequeue(class, rule)
		}
	}
	for class, after := range defaultReconsider {
		for _, kind := range overlay.AllMessageKinds() {
			key := failureKey{class: class, kind: kind}
			if _, ok := b.m.failure[key]; !ok {
				b.m.setFailure(class, kind, FailureRule{ReconsiderAfter: after})
			}
		}
	}
	return b.m
}
