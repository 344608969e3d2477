// Package apperr defines the error taxonomy returned by the reservation engine.
// Every error is returned synchronously; nothing in the engine retries on its own.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotFound          = errors.New("not found")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Invariants named by ConflictError.
const (
	InvariantNoOverlap          = "reservation_no_overlap"
	InvariantFutureReservations = "cell_has_future_reservations"
	InvariantOneBlockPerDay     = "one_block_per_facility_day"
)

// ConflictError reports a write that would violate an invariant, with the entities in the way.
type ConflictError struct {
	Invariant      string
	ConflictingIDs []string
}

func (e *ConflictError) Error() string {
	if len(e.ConflictingIDs) == 0 {
		return fmt.Sprintf("conflict: %s", e.Invariant)
	}
	return fmt.Sprintf("conflict: %s (with %s)", e.Invariant, strings.Join(e.ConflictingIDs, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InvalidStateTransitionError reports a reservation status change the lifecycle forbids.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// NotFoundError reports a missing (or soft-deleted) entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity string, id fmt.Stringer) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
