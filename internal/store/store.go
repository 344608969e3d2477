package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coldstore-backend/internal/apperr"
	"coldstore-backend/internal/event"
	"coldstore-backend/internal/model"
)

// Store defines the interface for all reservation engine persistence.
type Store interface {
	// Cell registry
	CreateCell(ctx context.Context, facilityID uuid.UUID, label, creator string) (*model.Cell, error)
	CreateCellBatch(ctx context.Context, facilityID uuid.UUID, prefix string, count int, creator string) ([]model.Cell, error)
	SetCellStatus(ctx context.Context, cellID uuid.UUID, status model.CellStatus, note *string, actor string) (*model.Cell, error)
	DeleteCell(ctx context.Context, cellID uuid.UUID, actor string) error
	GetCell(ctx context.Context, cellID uuid.UUID) (*model.Cell, error)
	ListCells(ctx context.Context, facilityID uuid.UUID) ([]model.Cell, error)

	// Facility day blocks
	BlockDay(ctx context.Context, facilityID uuid.UUID, date, reason, creator string) (*model.DayBlock, error)
	UnblockDay(ctx context.Context, blockID uuid.UUID, actor string) error
	ListBlocks(ctx context.Context, facilityID uuid.UUID, days model.DateRange) ([]model.DayBlock, error)

	// Reservations
	CreateReservation(ctx context.Context, in NewReservation) (*model.Reservation, error)
	AdvanceStatus(ctx context.Context, reservationID uuid.UUID, target model.ReservationStatus, actor string) (*model.Reservation, error)
	CancelReservation(ctx context.Context, reservationID uuid.UUID, actor string) (*model.Reservation, error)
	Reschedule(ctx context.Context, reservationID uuid.UUID, start, end time.Time, actor string) (*model.Reservation, error)
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*model.Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]model.Reservation, error)

	// Snapshot loads everything a calendar projection needs in one read transaction.
	Snapshot(ctx context.Context, facilityID uuid.UUID, days model.DateRange, loc *time.Location) (*Snapshot, error)
	Ping(ctx context.Context) error
}

// Options tunes a gormStore. Zero values fall back to the product defaults.
type Options struct {
	Logger          logrus.FieldLogger
	Publisher       event.Publisher
	MaxBatch        int
	MinReasonLength int
	Now             func() time.Time
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db        *gorm.DB
	log       logrus.FieldLogger
	publisher event.Publisher
	locks     *keyLocker
	now       func() time.Time

	maxBatch        int
	minReasonLength int

	// Row locks and snapshot isolation are only requested where the dialect supports them.
	rowLocks     bool
	snapshotOpts []*sql.TxOptions
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts Options) Store {
	s := &gormStore{
		db:              db,
		log:             opts.Logger,
		publisher:       opts.Publisher,
		locks:           newKeyLocker(),
		now:             opts.Now,
		maxBatch:        opts.MaxBatch,
		minReasonLength: opts.MinReasonLength,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.publisher == nil {
		s.publisher = event.Discard{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxBatch <= 0 {
		s.maxBatch = 50
	}
	if s.minReasonLength <= 0 {
		s.minReasonLength = 8
	}
	if db.Dialector.Name() == "postgres" {
		s.rowLocks = true
		s.snapshotOpts = []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
	}
	return s
}

// Ping checks the database connection.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// forUpdate adds SELECT ... FOR UPDATE when the dialect has row locks.
func (s *gormStore) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.rowLocks {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *gormStore) publish(ctx context.Context, e event.Event) {
	s.publisher.Publish(ctx, e)
}

// lockCell loads a live cell inside tx, holding its row lock until commit.
func (s *gormStore) lockCell(tx *gorm.DB, cellID uuid.UUID) (*model.Cell, error) {
	var cell model.Cell
	if err := s.forUpdate(tx).First(&cell, "id = ?", cellID).Error; err != nil {
		return nil, notFoundOr(err, "cell", cellID)
	}
	return &cell, nil
}

// normalize stores instants in UTC at second precision so every dialect
// compares them the same way.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func cellKey(id uuid.UUID) string {
	return "cell:" + id.String()
}

func dayKey(facilityID uuid.UUID, day model.Date) string {
	return "facility:" + facilityID.String() + ":" + day.String()
}

func requireID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return apperr.Validation(field, "is required")
	}
	return nil
}
