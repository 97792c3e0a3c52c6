package apperrors

import (
	"errors"
	"fmt"
)

// OpError is a typed operation error with a stable Op + Kind contract for callers and tests.
// Msg may carry human-readable context for the logs; it never reaches the client.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// New is shorthand for an OpError value.
func New(op string, kind error, msg string) error {
	return OpError{Op: op, Kind: kind, Msg: msg}
}

// ConflictError reports a uniqueness conflict on a logical field ("name", "contact").
type ConflictError struct {
	Op    string
	Field string
	Kind  error
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Field)
}

func (e ConflictError) Unwrap() error { return e.Kind }

// IsTicketFailure reports whether err is one of the token redemption failures.
// Both kinds are shown to the user as the same "invalid or expired" message.
func IsTicketFailure(err error) bool {
	return errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenExpired)
}

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput reports whether err represents ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
