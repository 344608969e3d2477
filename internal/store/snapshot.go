package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/model"
)

// Snapshot is an immutable, read-consistent view of one facility over a date range.
type Snapshot struct {
	FacilityID   uuid.UUID
	Days         model.DateRange
	Cells        []model.Cell
	Reservations []model.Reservation
	Blocks       []model.DayBlock
	TakenAt      time.Time
}

// Snapshot loads cells, live reservations overlapping the days, and blocks
// within a single read transaction so a concurrent write is seen either
// entirely or not at all.
func (s *gormStore) Snapshot(ctx context.Context, facilityID uuid.UUID, days model.DateRange, loc *time.Location) (*Snapshot, error) {
	if err := requireID("facilityId", facilityID); err != nil {
		return nil, err
	}
	if days.To.Before(days.From) {
		return nil, apperr.Validation("range", "from must not be after to")
	}
	from, to := normalize(days.From.Start(loc)), normalize(days.To.AddDays(1).Start(loc))

	snap := &Snapshot{FacilityID: facilityID, Days: days}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if snap.Cells, err = listCells(tx, facilityID); err != nil {
			return err
		}
		snap.Reservations = []model.Reservation{}
		if err := tx.
			Where("facility_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
				facilityID, model.ReservationCancelled, to, from).
			Order("start_at, id").
			Find(&snap.Reservations).Error; err != nil {
			return fmt.Errorf("failed to load reservations of facility %s: %w", facilityID, err)
		}
		if snap.Blocks, err = listBlocks(tx, facilityID, days); err != nil {
			return err
		}
		return nil
	}, s.snapshotOpts...)
	if err != nil {
		return nil, err
	}
	snap.TakenAt = s.now()
	return snap, nil
}
