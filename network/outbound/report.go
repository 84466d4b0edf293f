package outbound

import (
	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// EnqueueReport is the outcome of one enqueue call. An empty Accepted set is
// a normal report, not an error; callers observe it as data.
type EnqueueReport struct {
	// Accepted lists the peers an entry was created for.
	Accepted []overlay.PeerID

	// Denied lists the peers refused by per-link admission control.
	Denied []overlay.PeerID

	// NoRoute lists the indices of alternative groups where neither the
	// primary nor any fallback passed the suspension and admission checks.
	NoRoute []int
}

// Delivered reports whether at least one entry was created.
func (r *EnqueueReport) Delivered() bool {
	return len(r.Accepted) > 0
}
