// Package stub provides in-memory test doubles for the network contracts.
package stub

import (
	"sync"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/network"
)

// Submission is one captured transport send.
type Submission struct {
	Peer     overlay.PeerID
	Payload  []byte
	complete network.CompletionFunc
}

// Complete reports the submission's outcome to the queue, as the real
// transport's completion callback would.
func (s Submission) Complete(err error) {
	s.complete(err)
}

// Transport is an in-memory transport capturing submissions. By default
// submissions stay in flight until completed manually; an auto-complete
// function makes completion synchronous.
type Transport struct {
	mu           sync.Mutex
	cond         *sync.Cond
	submissions  []Submission
	autoComplete func(Submission) error
}

var _ network.Transport = (*Transport)(nil)

// TransportOption configures the stub transport.
type TransportOption func(*Transport)

// WithAutoComplete completes every submission synchronously with the
// outcome of f.
func WithAutoComplete(f func(Submission) error) TransportOption {
	return func(t *Transport) {
		t.autoComplete = f
	}
}

// NewTransport returns a stub transport.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{}
	t.cond = sync.NewCond(&t.mu)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Factory wraps the transport for queue construction.
func (t *Transport) Factory() network.TransportFactory {
	return func() (network.Transport, error) {
		return t, nil
	}
}

// SetAutoComplete replaces the auto-complete function mid-test.
func (t *Transport) SetAutoComplete(f func(Submission) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoComplete = f
}

func (t *Transport) Submit(peer overlay.PeerID, payload []byte, complete network.CompletionFunc) error {
	t.mu.Lock()
	sub := Submission{Peer: peer, Payload: payload, complete: complete}
	auto := t.autoComplete
	t.mu.Unlock()

	// complete before recording, so a test that has observed n submissions
	// has also observed their completions
	if auto != nil {
		complete(auto(sub))
	}

	t.mu.Lock()
	t.submissions = append(t.submissions, sub)
	t.cond.Broadcast()
	t.mu.Unlock()
	return nil
}

// Submissions returns a copy of everything submitted so far.
func (t *Transport) Submissions() []Submission {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Submission, len(t.submissions))
	copy(out, t.submissions)
	return out
}

// Len returns the number of captured submissions.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.submissions)
}

// WaitLen blocks until at least n submissions were captured.
func (t *Transport) WaitLen(n int) []Submission {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.submissions) < n {
		t.cond.Wait()
	}
	out := make([]Submission, len(t.submissions))
	copy(out, t.submissions)
	return out
}

// ForPeer returns the captured submissions to one peer.
func (t *Transport) ForPeer(peer overlay.PeerID) []Submission {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Submission
	for _, s := range t.submissions {
		if s.Peer == peer {
			out = append(out, s)
		}
	}
	return out
}
