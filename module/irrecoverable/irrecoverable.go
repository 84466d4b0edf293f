// Package irrecoverable lets long-running workers escalate errors they cannot
// handle to their supervisor instead of crashing the process in place.
package irrecoverable

import (
	"context"
	"fmt"
	"runtime"
)

// Signaler transports an irrecoverable error out of a worker goroutine.
type Signaler struct {
	errors chan error
}

// NewSignaler returns a signaler together with the channel the supervisor
// reads the escalated error from.
func NewSignaler() (*Signaler, <-chan error) {
	errChan := make(chan error, 1)
	return &Signaler{errors: errChan}, errChan
}

// Throw sends the error to the supervisor and terminates the calling
// goroutine. It is a narrow replacement for panic or log.Fatal at sites that
// hold a signaler.
func (s *Signaler) Throw(err error) {
	select {
	case s.errors <- err:
	default:
		// a first irrecoverable error is already in flight; drop this one
	}
	runtime.Goexit()
}

// SignalerContext is a context.Context that additionally carries a signaler,
// so it can be threaded through APIs expecting a plain context while keeping
// the escalation path available.
type SignalerContext interface {
	context.Context
	Throw(err error)
	sealed()
}

type signalerCtx struct {
	context.Context
	signaler *Signaler
}

func (sc signalerCtx) sealed() {}

func (sc signalerCtx) Throw(err error) {
	sc.signaler.Throw(err)
}

// WithSignaler derives a SignalerContext from the parent context.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	sig, errChan := NewSignaler()
	return signalerCtx{Context: parent, signaler: sig}, errChan
}

// Throw escalates through ctx if it is a SignalerContext and panics
// otherwise: an irrecoverable error without an escalation path is a
// programming error.
func Throw(ctx context.Context, err error) {
	if sc, ok := ctx.(SignalerContext); ok {
		sc.Throw(err)
	}
	panic(fmt.Sprintf("irrecoverable error escalated without a signaler in context: %v", err))
}
