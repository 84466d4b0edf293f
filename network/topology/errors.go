package topology

import (
	"errors"
	"fmt"
)

// BadTopologyError indicates the topology document was rejected at parse or
// projection time. It is fatal to node startup.
type BadTopologyError struct {
	Reason string
}

func (e BadTopologyError) Error() string {
	return fmt.Sprintf("bad topology: %s", e.Reason)
}

// NewBadTopologyErrorf returns a BadTopologyError with a formatted reason.
func NewBadTopologyErrorf(format string, args ...interface{}) BadTopologyError {
	return BadTopologyError{Reason: fmt.Sprintf(format, args...)}
}

// IsBadTopologyError returns whether the error is a BadTopologyError.
func IsBadTopologyError(err error) bool {
	var e BadTopologyError
	return errors.As(err, &e)
}

// DNSResolutionError reports a failed resolution of one domain during
// projection. Per-domain failures are collected and surfaced as warnings;
// they do not abort the projection.
type DNSResolutionError struct {
	Domain string
	Cause  error
}

func (e DNSResolutionError) Error() string {
	return fmt.Sprintf("dns resolution of %q failed: %v", e.Domain, e.Cause)
}

func (e DNSResolutionError) Unwrap() error {
	return e.Cause
}

// IsDNSResolutionError returns whether the error is a DNSResolutionError.
func IsDNSResolutionError(err error) bool {
	var e DNSResolutionError
	return errors.As(err, &e)
}
