package policy

import (
	"errors"
	"fmt"
)

// BadPolicyError indicates the policy document was rejected at parse time.
// It is fatal to node startup.
type BadPolicyError struct {
	Reason string
}

func (e BadPolicyError) Error() string {
	return fmt.Sprintf("bad policy: %s", e.Reason)
}

// NewBadPolicyErrorf returns a BadPolicyError with a formatted reason.
func NewBadPolicyErrorf(format string, args ...interface{}) BadPolicyError {
	return BadPolicyError{Reason: fmt.Sprintf(format, args...)}
}

// IsBadPolicyError returns whether the error is a BadPolicyError.
func IsBadPolicyError(err error) bool {
	var e BadPolicyError
	return errors.As(err, &e)
}
