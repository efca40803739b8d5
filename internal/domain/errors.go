package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during contest operations.
var (
	// ErrInvalidConfiguration indicates that configuration is invalid or
	// incomplete. This is the only unrecoverable condition in the engine
	// and is rejected at initialization, before any round starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDuplicateAgent indicates that two tasks in the same round share
	// an agent identity.
	ErrDuplicateAgent = errors.New("duplicate agent identity in round")
)

// ValidationError reports one or more schema violations on an entity such
// as a candidate output or a proposal. It can accumulate multiple failures
// so callers see everything wrong at once.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the individual validation failures.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError appends a new failure message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// WithError appends a failure message and returns the error for chaining.
func (e *ValidationError) WithError(msg string) *ValidationError {
	e.AddError(msg)
	return e
}

// HasErrors reports whether any failures have been recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates an empty ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}
