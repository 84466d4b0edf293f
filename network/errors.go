package network

import (
	"errors"
	"fmt"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

// ErrPeerGone indicates a send completed against a peer that has been removed
// from the outbound queue; the completion's effect is discarded.
var ErrPeerGone = errors.New("peer removed from outbound queue")

// SendFailedError wraps the transport's cause for a failed send together with
// the (peer, kind) pair the failure policy keys on.
type SendFailedError struct {
	Peer  overlay.PeerID
	Kind  overlay.MessageKind
	Cause error
}

func (e SendFailedError) Error() string {
	return fmt.Sprintf("send of %s to %s failed: %v", e.Kind, e.Peer, e.Cause)
}

func (e SendFailedError) Unwrap() error {
	return e.Cause
}

// NewSendFailedError returns a SendFailedError wrapping the given cause.
func NewSendFailedError(peer overlay.PeerID, kind overlay.MessageKind, cause error) SendFailedError {
	return SendFailedError{Peer: peer, Kind: kind, Cause: cause}
}

// IsSendFailedError returns whether the error is a SendFailedError.
func IsSendFailedError(err error) bool {
	var e SendFailedError
	return errors.As(err, &e)
}
