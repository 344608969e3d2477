package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is the persisted form of a domain event.
type AuditEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"size:64;not null;index"`
	FacilityID uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Actor      string    `gorm:"size:128;not null"`
	OccurredAt time.Time `gorm:"not null;index"`
	Data       string    `gorm:"type:text"`
}
