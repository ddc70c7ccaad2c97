package graph

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidConnection = errors.New("invalid connection")
	ErrPolicyRejected    = errors.New("rejected by policy")
	ErrNotFound          = errors.New("not found")
	ErrCycleDetected     = errors.New("cycle detected")
	ErrSerialization     = errors.New("serialization inconsistency")
)

// Error wraps one of the sentinel kinds above with a human-readable message.
// PolicyRejected messages are meant to be shown to the user as-is.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Reason returns the message of an *Error, or err.Error() for anything else.
func Reason(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
