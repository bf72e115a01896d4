package service

import (
	"errors"
	"fmt"
)

// Base error classes. Handlers and the autosave engine branch on these via
// errors.Is: not-found and forbidden are fatal for an editing session,
// conflicts surface to the actor without retry, validation failures never
// reach the network.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor may not touch the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates an illegal lifecycle transition.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates a guard failure on the request payload.
	ErrValidation = errors.New("validation failed")
)

// Named errors preserving the base class via wrapping.
var (
	// ErrAssignmentNotFound indicates the assignment does not exist. Fatal
	// for an editing session.
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment", ErrNotFound)
	// ErrExerciseNotFound indicates the exercise template does not exist.
	ErrExerciseNotFound = fmt.Errorf("%w: exercise", ErrNotFound)
	// ErrDraftNotFound indicates no draft exists yet. This is the expected
	// steady state for a fresh assignment, not a failure.
	ErrDraftNotFound = fmt.Errorf("%w: draft", ErrNotFound)
	// ErrSubmissionNotFound indicates no finalized submission exists.
	ErrSubmissionNotFound = fmt.Errorf("%w: submission", ErrNotFound)
	// ErrDraftNotEditable indicates the assignment status no longer allows
	// draft writes.
	ErrDraftNotEditable = fmt.Errorf("%w: draft not editable in current status", ErrConflict)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
