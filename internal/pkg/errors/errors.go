package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPrecondition marks operations rejected before any I/O
	// (no active variant, no authenticated principal, session not ready).
	ErrPrecondition = errors.New("precondition failed")
	// ErrPersistence marks network/server failures on save or load after
	// the retry budget is exhausted.
	ErrPersistence = errors.New("persistence failure")
	// ErrScene marks a malformed or corrupt serialized scene.
	ErrScene = errors.New("corrupt scene")
	// ErrValidation marks a design that violates size/count/weight limits.
	ErrValidation = errors.New("design validation failed")
)

// Is and As re-export the stdlib helpers so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// PreconditionError tags an error as a rejected precondition.
func PreconditionError(msg string) error {
	return errors.Join(ErrPrecondition, errors.New(strings.TrimSpace(msg)))
}

// PersistenceError tags err as a persistence failure, keeping the cause
// in the chain for errors.Is/As inspection.
func PersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// SceneError tags err as a corrupt-scene failure.
func SceneError(err error) error {
	return fmt.Errorf("%w: %w", ErrScene, err)
}

// ValidationError carries the validator's blocking errors alongside the
// non-blocking warnings that were seen with them.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
