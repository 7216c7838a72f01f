package loan

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrForbidden    = errors.New("access denied")
	ErrNotFound     = errors.New("loan not found")
	// ErrConflict means another transition won the race; re-read and retry.
	ErrConflict = errors.New("concurrent modification")
)

// ValidationError reports malformed or out-of-bounds input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError carries the current status so callers can refresh.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a loan in status %s", e.Op, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// AuthorizationError never says whether the record exists beyond what Op implies.
type AuthorizationError struct {
	Op string
}

func (e *AuthorizationError) Error() string { return "not authorized to " + e.Op }

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// IsRetryable returns true if the operation may succeed after re-reading state.
func IsRetryable(err error) bool { return errors.Is(err, ErrConflict) }

// IsClientError returns true if the error is due to the caller's input or role.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrForbidden)
}
