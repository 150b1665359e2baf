package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every aggregate. Callers match them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrValidation    = errors.New("validation failed")
	ErrForbidden     = errors.New("forbidden")
	ErrUnprocessable = errors.New("unprocessable")
	ErrGone          = errors.New("gone")
	ErrUnavailable   = errors.New("service unavailable")
)

// DomainError attaches a human readable message to one of the error kinds above.
// Code, when set, is the stable identifier exposed to API clients.
type DomainError struct {
	Err     error
	Code    string
	Message string
}

// New declares a coded business error of the given kind.
func New(kind error, code, msg string) *DomainError {
	return &DomainError{Err: kind, Code: code, Message: msg}
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewInvalidStateError reports a rejected state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewConflictError reports a concurrent modification.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: msg}
}

// NewValidationError reports malformed input.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: msg}
}

// NewForbiddenError reports an action the caller may not perform.
func NewForbiddenError(msg string) *DomainError {
	return &DomainError{Err: ErrForbidden, Message: msg}
}

// Unavailable wraps an infrastructure failure that is safe to retry.
type Unavailable struct {
	Cause error
}

// NewUnavailableError wraps cause so that it matches ErrUnavailable.
func NewUnavailableError(cause error) *Unavailable {
	return &Unavailable{Cause: cause}
}

func (e *Unavailable) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnavailable.Error(), e.Cause)
}

// Is makes errors.Is(err, ErrUnavailable) hold while Unwrap still exposes the cause.
func (e *Unavailable) Is(target error) bool { return target == ErrUnavailable }

func (e *Unavailable) Unwrap() error { return e.Cause }
