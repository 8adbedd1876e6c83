package world

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them,
// so callers can classify failures with errors.Is.
var (
	// ErrInvalidArgument marks malformed geometric or physical input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIllegalState marks an operation that the current state does not allow,
	// such as mutating a terminated entity or removing a non-member.
	ErrIllegalState = errors.New("illegal state")
	// ErrAdmissionRejected marks a world or cargo refusing an entity.
	ErrAdmissionRejected = errors.New("admission rejected")
)

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func illegalState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalState, fmt.Sprintf(format, args...))
}

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAdmissionRejected, fmt.Sprintf(format, args...))
}
