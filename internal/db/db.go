package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coldstore-backend/config"
	"coldstore-backend/internal/model"
)

// Init opens the configured database, tunes the pool and runs migrations.
func Init(cfg *config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.LogQueries {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" && cfg.EnforceOverlapConstraint {
		log.Info("Applying PostgreSQL overlap constraints...")
		if err := applyPostgresDDL(db); err != nil {
			return nil, err
		}
	}

	log.Info("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates every table of the engine.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Cell{},
		&model.Reservation{},
		&model.DayBlock{},
		&model.AuditEntry{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyPostgresDDL installs the constraints that make the overlap rule hold
// even if two writers slip past the application checks.
func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// 1) gist support for equality on uuid
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// 2) start strictly before end
		addConstraint("reservations", "reservations_interval_valid",
			"CHECK (start_at < end_at)"),

		// 3) no two live reservations of a cell overlap, half-open [start, end)
		addConstraint("reservations", "reservations_no_overlap",
			"EXCLUDE USING gist (cell_id WITH =, tstzrange(start_at, end_at, '[)') WITH &&) WHERE (status <> 'CANCELLED')"),
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func addConstraint(table, name, definition string) string {
	return fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
		ALTER TABLE %s ADD CONSTRAINT %s %s;
	END IF;
END $$;`, name, table, name, definition)
}
