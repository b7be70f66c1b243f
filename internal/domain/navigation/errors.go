package navigation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCoordinate is returned for out-of-range or non-finite
	// latitude/longitude values. Caller bug, never retried.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrUnmounted is returned when an operation reaches a machine whose
	// owning trip has been torn down. Reported, not panicked, so that
	// late-arriving callbacks can be discarded quietly.
	ErrUnmounted = errors.New("navigation engine torn down")

	// ErrTransitionInFlight is returned when a transition names a different
	// target while another transition has not yet settled.
	ErrTransitionInFlight = errors.New("another transition is in flight")
)

// InvalidTransitionError indicates a phase transition outside the adjacency
// table. The machine's state is left unchanged.
type InvalidTransitionError struct {
	From Phase
	To   Phase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

// NewInvalidTransitionError creates an InvalidTransitionError.
func NewInvalidTransitionError(from, to Phase) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
