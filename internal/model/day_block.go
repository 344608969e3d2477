package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DayBlock suspends a whole facility for one calendar date.
type DayBlock struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FacilityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_day_blocks_facility_day,priority:1" json:"facilityId"`
	Day        Date      `gorm:"size:10;not null;uniqueIndex:idx_day_blocks_facility_day,priority:2" json:"date"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	CreatedBy  string    `gorm:"size:128;not null" json:"createdBy"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
}

func (b *DayBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
