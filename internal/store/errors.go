package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"coldstore-backend/internal/apperr"
)

// PostgreSQL constraint names created by db.Init.
const (
	constraintNoOverlap  = "reservations_no_overlap"
	constraintDayBlockUQ = "idx_day_blocks_facility_day"
)

// translateWriteError maps constraint violations raised by the database into
// the engine's error taxonomy. Other errors pass through unchanged.
func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "23P01" && pgErr.ConstraintName == constraintNoOverlap:
		return &apperr.ConflictError{Invariant: apperr.InvariantNoOverlap}
	case pgErr.Code == "23505" && pgErr.ConstraintName == constraintDayBlockUQ:
		return &apperr.ConflictError{Invariant: apperr.InvariantOneBlockPerDay}
	}
	return err
}

func notFoundOr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", entity, id, err)
}
