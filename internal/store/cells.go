package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/event"
	"coldstore-backend/internal/model"
	"coldstore-backend/internal/parse"
)

// CreateCell registers a single FREE cell.
func (s *gormStore) CreateCell(ctx context.Context, facilityID uuid.UUID, label, creator string) (*model.Cell, error) {
	if err := requireID("facilityId", facilityID); err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, apperr.Validation("label", "must not be empty")
	}

	cell := model.Cell{FacilityID: facilityID, Label: label, Status: model.CellFree, CreatedBy: creator}
	if err := s.db.WithContext(ctx).Create(&cell).Error; err != nil {
		return nil, fmt.Errorf("failed to create cell: %w", err)
	}

	s.log.WithFields(logrus.Fields{"cell": cell.ID, "facility": facilityID}).Info("cell created")
	s.publish(ctx, event.New(event.CellCreated, facilityID, cell.ID, creator, map[string]any{"label": cell.Label}))
	return &cell, nil
}

// CreateCellBatch registers count cells labelled "{prefix} 1" .. "{prefix} {count}" in one transaction.
func (s *gormStore) CreateCellBatch(ctx context.Context, facilityID uuid.UUID, prefix string, count int, creator string) ([]model.Cell, error) {
	if err := requireID("facilityId", facilityID); err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apperr.Validation("prefix", "must not be empty")
	}
	if count < 1 || count > s.maxBatch {
		return nil, apperr.Validation("count", "must be between 1 and %d, got %d", s.maxBatch, count)
	}

	cells := make([]model.Cell, count)
	for i := range cells {
		cells[i] = model.Cell{
			FacilityID: facilityID,
			Label:      fmt.Sprintf("%s %d", prefix, i+1),
			Status:     model.CellFree,
			CreatedBy:  creator,
		}
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&cells).Error
	}); err != nil {
		return nil, fmt.Errorf("failed to create cell batch: %w", err)
	}

	s.log.WithFields(logrus.Fields{"facility": facilityID, "count": count}).Info("cell batch created")
	for _, c := range cells {
		s.publish(ctx, event.New(event.CellCreated, facilityID, c.ID, creator, map[string]any{"label": c.Label}))
	}
	return cells, nil
}

// SetCellStatus overrides the administrative status. Any status may follow any
// other; live reservations still win during resolution.
func (s *gormStore) SetCellStatus(ctx context.Context, cellID uuid.UUID, status model.CellStatus, note *string, actor string) (*model.Cell, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status", "unknown cell status %q", status)
	}
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		note = &trimmed
		if trimmed == "" {
			note = nil
		}
	}

	unlock := s.locks.Lock(cellKey(cellID))
	defer unlock()

	var (
		cell     *model.Cell
		previous model.CellStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if cell, err = s.lockCell(tx, cellID); err != nil {
			return err
		}
		previous = cell.Status
		cell.Status = status
		cell.StatusNote = note
		if err := tx.Save(cell).Error; err != nil {
			return fmt.Errorf("failed to update cell %s: %w", cellID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"cell": cellID, "from": previous, "to": status, "actor": actor}).Info("cell status overridden")
	s.publish(ctx, event.New(event.CellStatusChanged, cell.FacilityID, cell.ID, actor, map[string]any{
		"from": previous,
		"to":   status,
		"note": note,
	}))
	return cell, nil
}

// DeleteCell soft-deletes a cell unless a live reservation on it ends in the future.
func (s *gormStore) DeleteCell(ctx context.Context, cellID uuid.UUID, actor string) error {
	unlock := s.locks.Lock(cellKey(cellID))
	defer unlock()

	var cell *model.Cell
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if cell, err = s.lockCell(tx, cellID); err != nil {
			return err
		}

		var blocking []model.Reservation
		if err := tx.
			Where("cell_id = ? AND status <> ? AND end_at > ?", cellID, model.ReservationCancelled, normalize(s.now())).
			Order("start_at, id").
			Find(&blocking).Error; err != nil {
			return fmt.Errorf("failed to check reservations of cell %s: %w", cellID, err)
		}
		if len(blocking) > 0 {
			return &apperr.ConflictError{Invariant: apperr.InvariantFutureReservations, ConflictingIDs: reservationIDs(blocking)}
		}

		if err := tx.Delete(cell).Error; err != nil {
			return fmt.Errorf("failed to delete cell %s: %w", cellID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"cell": cellID, "actor": actor}).Info("cell deleted")
	s.publish(ctx, event.New(event.CellDeleted, cell.FacilityID, cell.ID, actor, nil))
	return nil
}

// GetCell returns a live cell.
func (s *gormStore) GetCell(ctx context.Context, cellID uuid.UUID) (*model.Cell, error) {
	var cell model.Cell
	if err := s.db.WithContext(ctx).First(&cell, "id = ?", cellID).Error; err != nil {
		return nil, notFoundOr(err, "cell", cellID)
	}
	return &cell, nil
}

// ListCells returns the live cells of a facility in natural label order.
func (s *gormStore) ListCells(ctx context.Context, facilityID uuid.UUID) ([]model.Cell, error) {
	return listCells(s.db.WithContext(ctx), facilityID)
}

func listCells(db *gorm.DB, facilityID uuid.UUID) ([]model.Cell, error) {
	cells := []model.Cell{}
	if err := db.Where("facility_id = ?", facilityID).Order("label, id").Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("failed to list cells of facility %s: %w", facilityID, err)
	}
	sort.SliceStable(cells, func(i, j int) bool { return parse.LessLabel(cells[i].Label, cells[j].Label) })
	return cells, nil
}

func reservationIDs(rs []model.Reservation) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID.String()
	}
	return ids
}
