package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrContentNotFound is returned when a module has no quiz content.
	ErrContentNotFound = errors.New("quiz content not found")
	// ErrUnavailable wraps failures of the quiz content backend.
	ErrUnavailable = errors.New("quiz content backend unavailable")
	// ErrValidation indicates malformed question or answer data.
	ErrValidation = errors.New("validation failed")
	// ErrStorage wraps progress load or persist failures.
	ErrStorage = errors.New("progress storage failure")
	// ErrSessionState is returned when an operation is attempted in the wrong session state.
	ErrSessionState = errors.New("operation not allowed in current session state")
	// ErrSessionNotFound is returned when a quiz session does not exist or was dropped.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
)

// StateError describes a rejected transition.
type StateError struct {
	Op    string
	State SessionState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s not allowed while session is %s", ErrSessionState, e.Op, e.State)
}

// Is lets errors.Is(err, ErrSessionState) match.
func (e *StateError) Is(target error) bool {
	return target == ErrSessionState
}

// NewStateError builds a StateError for op attempted in state.
func NewStateError(op string, state SessionState) error {
	return &StateError{Op: op, State: state}
}
