package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchSentinelsThroughWrapping(t *testing.T) {
	id := uuid.New()
	testCases := []struct {
		err      error
		sentinel error
		message  string
	}{
		{Validation("label", "must not be empty"), ErrValidation, "invalid label: must not be empty"},
		{&ConflictError{Invariant: InvariantNoOverlap, ConflictingIDs: []string{"a", "b"}}, ErrConflict, "conflict: reservation_no_overlap (with a, b)"},
		{&InvalidStateTransitionError{From: "OCCUPIED", To: "PENDING"}, ErrInvalidTransition, "cannot transition reservation from OCCUPIED to PENDING"},
		{NotFound("cell", id), ErrNotFound, fmt.Sprintf("cell %s not found", id)},
	}

	for _, tc := range testCases {
		wrapped := fmt.Errorf("store: %w", tc.err)
		assert.True(t, errors.Is(wrapped, tc.sentinel))
		assert.Equal(t, tc.message, tc.err.Error())
		for _, other := range []error{ErrValidation, ErrConflict, ErrInvalidTransition, ErrNotFound} {
			if other != tc.sentinel {
				assert.False(t, errors.Is(wrapped, other))
			}
		}
	}

	var conflict *ConflictError
	err := fmt.Errorf("outer: %w", &ConflictError{Invariant: InvariantOneBlockPerDay, ConflictingIDs: []string{"x"}})
	if assert.True(t, errors.As(err, &conflict)) {
		assert.Equal(t, []string{"x"}, conflict.ConflictingIDs)
	}
}
