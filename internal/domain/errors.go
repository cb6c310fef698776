package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. inactive vehicle, estimated arrival before departure).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidState is returned when an operation is forbidden by the current
// state of a trip (editing a completed trip, deleting one already under way).
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidTransition is returned when the requested trip state is not
// reachable from the current one.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrInfrastructure marks failures of the database, the audit log or the
// receipt store. These are never the caller's fault and abort the operation.
var ErrInfrastructure = errors.New("infrastructure error")

// ValidationError collects every rule a request broke. It unwraps to
// ErrValidation so callers can keep using errors.Is.
type ValidationError struct {
	Problems []string
}

// NewValidationError returns nil when problems is empty, so the result can be
// returned directly after collecting checks.
func NewValidationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError reports a state change outside the transition table.
type TransitionError struct {
	From TripState
	To   TripState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot change trip state from %s to %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IsCallerError reports whether err belongs to the caller-recoverable part of
// the taxonomy (not found, validation, state or transition errors).
func IsCallerError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidTransition)
}
