package domain

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid caller-supplied input. It is never retried.
type ValidationError struct {
	Message string
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// InvalidStateError indicates an operation that is not allowed in the entity's
// current state, such as a phase transition outside the adjacency table.
type InvalidStateError struct {
	From string
	To   string
}

// NewInvalidStateError creates an InvalidStateError for the given transition.
func NewInvalidStateError(from, to string) *InvalidStateError {
	return &InvalidStateError{From: from, To: to}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state transition from %q to %q", e.From, e.To)
}

// NotFoundError indicates a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError for the given entity and identifier.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidState reports whether err is (or wraps) an InvalidStateError.
func IsInvalidState(err error) bool {
	var se *InvalidStateError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
