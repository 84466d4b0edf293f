// Package unittest holds fixtures and helpers shared by the test suites.
package unittest

import (
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// Logger returns a logger for tests; verbose mode writes to stderr.
func Logger() zerolog.Logger {
	writer := io.Discard
	if testing.Verbose() {
		writer = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: writer}).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// PeerIDFixture returns a distinct peer id for the index.
func PeerIDFixture(i int) overlay.PeerID {
	return overlay.NewPeerID(fmt.Sprintf("10.0.0.%d", i%250+1), uint16(3000+i))
}

// PeerIDFixtures returns n distinct peer ids.
func PeerIDFixtures(n int) []overlay.PeerID {
	ids := make([]overlay.PeerID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, PeerIDFixture(i))
	}
	return ids
}

// TiersFixture builds a tier set with one alternative group per id list.
func TiersFixture(class overlay.NodeClass, groups ...[]overlay.PeerID) overlay.PeerTiers {
	tiers := overlay.NewPeerTiers()
	alt := make([]overlay.AltGroup, 0, len(groups))
	for _, g := range groups {
		alt = append(alt, overlay.AltGroup(g))
	}
	tiers[class] = alt
	return tiers
}

// RequireCloseBefore fails the test unless the channel closes within the
// timeout.
func RequireCloseBefore(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("channel did not close in time: %s", msg)
	}
}
