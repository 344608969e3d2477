package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CellStatus is the administrative (manually maintained) status of a cell.
type CellStatus string

const (
	CellFree         CellStatus = "FREE"
	CellReserved     CellStatus = "RESERVED"
	CellOccupied     CellStatus = "OCCUPIED"
	CellOutOfService CellStatus = "OUT_OF_SERVICE"
)

// Valid reports whether s is a known administrative status.
func (s CellStatus) Valid() bool {
	switch s {
	case CellFree, CellReserved, CellOccupied, CellOutOfService:
		return true
	}
	return false
}

// Cell is a physical cooling unit within one facility.
type Cell struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FacilityID uuid.UUID      `gorm:"type:uuid;index;not null" json:"facilityId"`
	Label      string         `gorm:"size:128;not null" json:"label"`
	Status     CellStatus     `gorm:"size:32;not null" json:"status"`
	StatusNote *string        `gorm:"type:text" json:"statusNote,omitempty"`
	CreatedBy  string         `gorm:"size:128;not null" json:"createdBy"`
	CreatedAt  time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Cell) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CellFree
	}
	return nil
}
