package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationStatus tracks a reservation through the physical handover.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationOccupied  ReservationStatus = "OCCUPIED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationOccupied, ReservationCancelled},
}

// Valid reports whether s is a known reservation status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationOccupied, ReservationCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// OCCUPIED and CANCELLED are terminal.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reservation is an exclusive claim on one cell for the half-open interval [StartAt, EndAt).
type Reservation struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CellID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservations_cell_start,priority:1" json:"cellId"`
	FacilityID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"facilityId"`
	CaseRef     string            `gorm:"size:128;not null" json:"caseRef"`
	StartAt     time.Time         `gorm:"not null;index:idx_reservations_cell_start,priority:2" json:"start"`
	EndAt       time.Time         `gorm:"not null" json:"end"`
	Status      ReservationStatus `gorm:"size:32;not null;index" json:"status"`
	Note        *string           `gorm:"type:text" json:"note,omitempty"`
	CreatedBy   string            `gorm:"size:128;not null" json:"createdBy"`
	CreatedAt   time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updatedAt"`
	CancelledAt *time.Time        `json:"cancelledAt,omitempty"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Active reports whether the reservation still claims its cell.
func (r Reservation) Active() bool {
	return r.Status != ReservationCancelled
}

// Overlaps applies the half-open test: [a,b) and [c,d) overlap iff a < d and c < b.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}

// Covers reports whether the instant t falls inside [StartAt, EndAt).
func (r Reservation) Covers(t time.Time) bool {
	return !t.Before(r.StartAt) && t.Before(r.EndAt)
}
