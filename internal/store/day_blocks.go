package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/event"
	"coldstore-backend/internal/model"
)

// BlockDay suspends a facility for one calendar date. A second block for the
// same facility and date is refused with a ConflictError.
func (s *gormStore) BlockDay(ctx context.Context, facilityID uuid.UUID, date, reason, creator string) (*model.DayBlock, error) {
	if err := requireID("facilityId", facilityID); err != nil {
		return nil, err
	}
	day, err := model.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return nil, apperr.Validation("date", "%q is not a valid calendar date (YYYY-MM-DD)", date)
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < s.minReasonLength {
		return nil, apperr.Validation("reason", "must be at least %d characters", s.minReasonLength)
	}

	unlock := s.locks.Lock(dayKey(facilityID, day))
	defer unlock()

	block := model.DayBlock{FacilityID: facilityID, Day: day, Reason: reason, CreatedBy: creator}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.DayBlock
		if err := tx.Where("facility_id = ? AND day = ?", facilityID, day).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing day blocks: %w", err)
		}
		if len(existing) > 0 {
			return &apperr.ConflictError{Invariant: apperr.InvariantOneBlockPerDay, ConflictingIDs: []string{existing[0].ID.String()}}
		}
		if err := tx.Create(&block).Error; err != nil {
			return translateWriteError(fmt.Errorf("failed to create day block: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"facility": facilityID, "date": day, "block": block.ID}).Info("facility day blocked")
	s.publish(ctx, event.New(event.DayBlocked, facilityID, block.ID, creator, map[string]any{
		"date":   day.String(),
		"reason": reason,
	}))
	return &block, nil
}

// UnblockDay removes a day block. Removing an absent block is a no-op.
func (s *gormStore) UnblockDay(ctx context.Context, blockID uuid.UUID, actor string) error {
	var block model.DayBlock
	if err := s.db.WithContext(ctx).First(&block, "id = ?", blockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load day block %s: %w", blockID, err)
	}

	unlock := s.locks.Lock(dayKey(block.FacilityID, block.Day))
	defer unlock()

	res := s.db.WithContext(ctx).Where("id = ?", blockID).Delete(&model.DayBlock{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete day block %s: %w", blockID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	s.log.WithFields(logrus.Fields{"facility": block.FacilityID, "date": block.Day, "block": blockID}).Info("facility day unblocked")
	s.publish(ctx, event.New(event.DayUnblocked, block.FacilityID, block.ID, actor, map[string]any{"date": block.Day.String()}))
	return nil
}

// ListBlocks returns the blocks of a facility within the inclusive date range.
func (s *gormStore) ListBlocks(ctx context.Context, facilityID uuid.UUID, days model.DateRange) ([]model.DayBlock, error) {
	if days.To.Before(days.From) {
		return nil, apperr.Validation("range", "from must not be after to")
	}
	return listBlocks(s.db.WithContext(ctx), facilityID, days)
}

func listBlocks(db *gorm.DB, facilityID uuid.UUID, days model.DateRange) ([]model.DayBlock, error) {
	blocks := []model.DayBlock{}
	if err := db.
		Where("facility_id = ? AND day >= ? AND day <= ?", facilityID, days.From, days.To).
		Order("day").
		Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("failed to list day blocks of facility %s: %w", facilityID, err)
	}
	return blocks, nil
}
