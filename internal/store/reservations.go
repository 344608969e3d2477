package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/event"
	"coldstore-backend/internal/model"
)

// NewReservation is the input of CreateReservation.
type NewReservation struct {
	CellID     uuid.UUID
	FacilityID uuid.UUID
	CaseRef    string
	Start      time.Time
	End        time.Time
	Note       *string
	CreatedBy  string
}

// TimeRange is a half-open interval [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// ReservationFilter selects reservations for listing. At least one of
// CellID and FacilityID is required.
type ReservationFilter struct {
	CellID           uuid.UUID
	FacilityID       uuid.UUID
	Range            *TimeRange
	IncludeCancelled bool
}

// toRescheduleMarker is the target reported when a non-pending interval change is refused.
const toRescheduleMarker = "RESCHEDULED"

// CreateReservation books a cell for [in.Start, in.End). The overlap check
// and the insert run under the cell's lock and row lock, so two overlapping
// requests can never both pass the check.
func (s *gormStore) CreateReservation(ctx context.Context, in NewReservation) (*model.Reservation, error) {
	start, end, err := validateInterval(in.Start, in.End)
	if err != nil {
		return nil, err
	}
	if err := requireID("cellId", in.CellID); err != nil {
		return nil, err
	}
	if err := requireID("facilityId", in.FacilityID); err != nil {
		return nil, err
	}
	caseRef := strings.TrimSpace(in.CaseRef)
	if caseRef == "" {
		return nil, apperr.Validation("caseRef", "must not be empty")
	}

	unlock := s.locks.Lock(cellKey(in.CellID))
	defer unlock()

	var created model.Reservation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cell, err := s.lockCell(tx, in.CellID)
		if err != nil {
			return err
		}
		if cell.FacilityID != in.FacilityID {
			return apperr.Validation("facilityId", "cell %s belongs to facility %s, not %s", cell.ID, cell.FacilityID, in.FacilityID)
		}

		if err := checkNoOverlap(tx, in.CellID, start, end, uuid.Nil); err != nil {
			return err
		}

		created = model.Reservation{
			CellID:     in.CellID,
			FacilityID: in.FacilityID,
			CaseRef:    caseRef,
			StartAt:    start,
			EndAt:      end,
			Status:     model.ReservationPending,
			Note:       in.Note,
			CreatedBy:  in.CreatedBy,
		}
		if err := tx.Create(&created).Error; err != nil {
			return translateWriteError(fmt.Errorf("failed to create reservation: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reservation": created.ID,
		"cell":        created.CellID,
		"start":       start,
		"end":         end,
	}).Info("reservation created")
	s.publish(ctx, event.New(event.ReservationCreated, created.FacilityID, created.ID, in.CreatedBy, map[string]any{
		"cellId":  created.CellID,
		"caseRef": created.CaseRef,
		"start":   start,
		"end":     end,
	}))
	return &created, nil
}

// AdvanceStatus moves a reservation along PENDING -> CONFIRMED -> OCCUPIED, or
// to CANCELLED from PENDING or CONFIRMED.
func (s *gormStore) AdvanceStatus(ctx context.Context, reservationID uuid.UUID, target model.ReservationStatus, actor string) (*model.Reservation, error) {
	if !target.Valid() {
		return nil, apperr.Validation("status", "unknown reservation status %q", target)
	}

	var previous model.ReservationStatus
	r, err := s.mutateReservation(ctx, reservationID, func(tx *gorm.DB, r *model.Reservation) error {
		if !r.Status.CanTransitionTo(target) {
			return &apperr.InvalidStateTransitionError{From: string(r.Status), To: string(target)}
		}
		previous = r.Status
		r.Status = target
		if target == model.ReservationCancelled {
			cancelledAt := normalize(s.now())
			r.CancelledAt = &cancelledAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"reservation": r.ID, "from": previous, "to": target, "actor": actor}).Info("reservation status changed")
	t := event.ReservationStatusChanged
	if target == model.ReservationCancelled {
		t = event.ReservationCancelled
	}
	s.publish(ctx, event.New(t, r.FacilityID, r.ID, actor, map[string]any{
		"cellId": r.CellID,
		"from":   previous,
		"to":     target,
	}))
	return r, nil
}

// CancelReservation is AdvanceStatus(id, CANCELLED).
func (s *gormStore) CancelReservation(ctx context.Context, reservationID uuid.UUID, actor string) (*model.Reservation, error) {
	return s.AdvanceStatus(ctx, reservationID, model.ReservationCancelled, actor)
}

// Reschedule changes the interval of a PENDING reservation. From CONFIRMED on
// the interval is fixed; rebooking means cancel and create.
func (s *gormStore) Reschedule(ctx context.Context, reservationID uuid.UUID, start, end time.Time, actor string) (*model.Reservation, error) {
	start, end, err := validateInterval(start, end)
	if err != nil {
		return nil, err
	}

	var previousStart, previousEnd time.Time
	r, err := s.mutateReservation(ctx, reservationID, func(tx *gorm.DB, r *model.Reservation) error {
		if r.Status != model.ReservationPending {
			return &apperr.InvalidStateTransitionError{From: string(r.Status), To: toRescheduleMarker}
		}
		if err := checkNoOverlap(tx, r.CellID, start, end, r.ID); err != nil {
			return err
		}
		previousStart, previousEnd = r.StartAt, r.EndAt
		r.StartAt, r.EndAt = start, end
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"reservation": r.ID, "start": start, "end": end, "actor": actor}).Info("reservation rescheduled")
	s.publish(ctx, event.New(event.ReservationRescheduled, r.FacilityID, r.ID, actor, map[string]any{
		"cellId":        r.CellID,
		"previousStart": previousStart,
		"previousEnd":   previousEnd,
		"start":         start,
		"end":           end,
	}))
	return r, nil
}

// mutateReservation serializes on the reservation's cell, reloads the row
// under lock, applies fn and saves the result.
func (s *gormStore) mutateReservation(ctx context.Context, reservationID uuid.UUID, fn func(tx *gorm.DB, r *model.Reservation) error) (*model.Reservation, error) {
	current, err := s.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(cellKey(current.CellID))
	defer unlock()

	var r model.Reservation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockCell(tx, current.CellID); err != nil && !apperr.IsNotFound(err) {
			return err
		}
		if err := s.forUpdate(tx).First(&r, "id = ?", reservationID).Error; err != nil {
			return notFoundOr(err, "reservation", reservationID)
		}
		if err := fn(tx, &r); err != nil {
			return err
		}
		if err := tx.Save(&r).Error; err != nil {
			return translateWriteError(fmt.Errorf("failed to update reservation %s: %w", reservationID, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReservation returns a reservation by id.
func (s *gormStore) GetReservation(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, "id = ?", reservationID).Error; err != nil {
		return nil, notFoundOr(err, "reservation", reservationID)
	}
	return &r, nil
}

// ListReservations returns reservations matching filter ordered by start, then id.
func (s *gormStore) ListReservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error) {
	if filter.CellID == uuid.Nil && filter.FacilityID == uuid.Nil {
		return nil, apperr.Validation("filter", "cell or facility is required")
	}
	if filter.Range != nil && !filter.Range.From.Before(filter.Range.To) {
		return nil, apperr.Validation("range", "from must be before to")
	}

	q := s.db.WithContext(ctx).Model(&model.Reservation{})
	if filter.CellID != uuid.Nil {
		q = q.Where("cell_id = ?", filter.CellID)
	}
	if filter.FacilityID != uuid.Nil {
		q = q.Where("facility_id = ?", filter.FacilityID)
	}
	if filter.Range != nil {
		q = q.Where("start_at < ? AND end_at > ?", normalize(filter.Range.To), normalize(filter.Range.From))
	}
	if !filter.IncludeCancelled {
		q = q.Where("status <> ?", model.ReservationCancelled)
	}

	reservations := []model.Reservation{}
	if err := q.Order("start_at, id").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// checkNoOverlap fails with a ConflictError when a live reservation of cellID
// other than exclude overlaps [start, end).
func checkNoOverlap(tx *gorm.DB, cellID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	q := tx.Where("cell_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
		cellID, model.ReservationCancelled, end, start)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}

	var overlapping []model.Reservation
	if err := q.Order("start_at, id").Find(&overlapping).Error; err != nil {
		return fmt.Errorf("failed to check overlapping reservations for cell %s: %w", cellID, err)
	}
	if len(overlapping) > 0 {
		return &apperr.ConflictError{Invariant: apperr.InvariantNoOverlap, ConflictingIDs: reservationIDs(overlapping)}
	}
	return nil
}

func validateInterval(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return start, end, apperr.Validation("interval", "start and end are required")
	}
	start, end = normalize(start), normalize(end)
	if !start.Before(end) {
		return start, end, apperr.Validation("interval", "start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}
