package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Log          LogConfig          `yaml:"log"`
	Cells        CellsConfig        `yaml:"cells"`
	DayBlocks    DayBlocksConfig    `yaml:"day_blocks"`
	Availability AvailabilityConfig `yaml:"availability"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the domain event dispatcher.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                  int     `yaml:"port"`
	RateLimitPerSec       float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst        int     `yaml:"rate_limit_burst"`
	IdempotencyTTLSeconds int     `yaml:"idempotency_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                   string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                      string `yaml:"dsn"`
	MaxOpenConns             int    `yaml:"max_open_conns"`
	MaxIdleConns             int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes   int    `yaml:"conn_max_lifetime_minutes"`
	EnforceOverlapConstraint bool   `yaml:"enforce_overlap_constraint"`
	LogQueries               bool   `yaml:"log_queries"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// CellsConfig bounds cell registry operations.
type CellsConfig struct {
	MaxBatch int `yaml:"max_batch"`
}

// DayBlocksConfig holds the facility day block rules.
type DayBlocksConfig struct {
	MinReasonLength int `yaml:"min_reason_length"`
}

// AvailabilityConfig configures the calendar projections.
type AvailabilityConfig struct {
	Timezone  string         `yaml:"timezone"`
	WeekStart string         `yaml:"week_start"`
	DayWindow DayWindowHours `yaml:"day_window"`

	Location *time.Location `yaml:"-"`
	Weekday  time.Weekday   `yaml:"-"`
}

// DayWindowHours is the visible hour range of the day view, end exclusive.
type DayWindowHours struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.applyDefaults(); err != nil {
		// Defaults only reference the UTC location, which always loads.
		panic(err)
	}
	return cfg
}

// Load reads the configuration from the given path. Values from the
// environment (optionally seeded from a .env file) override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.IdempotencyTTLSeconds <= 0 {
		cfg.Server.IdempotencyTTLSeconds = 24 * 3600
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Cells.MaxBatch <= 0 {
		cfg.Cells.MaxBatch = 50
	}
	if cfg.DayBlocks.MinReasonLength <= 0 {
		cfg.DayBlocks.MinReasonLength = 8
	}

	if cfg.Availability.Timezone == "" {
		cfg.Availability.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Availability.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Availability.Timezone, err)
	}
	cfg.Availability.Location = loc

	if cfg.Availability.WeekStart == "" {
		cfg.Availability.WeekStart = "monday"
	}
	wd, ok := weekdays[strings.ToLower(cfg.Availability.WeekStart)]
	if !ok {
		return fmt.Errorf("invalid availability.week_start %q", cfg.Availability.WeekStart)
	}
	cfg.Availability.Weekday = wd

	w := &cfg.Availability.DayWindow
	if w.StartHour == 0 && w.EndHour == 0 {
		w.StartHour, w.EndHour = 6, 24
	}
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("invalid availability.day_window %d-%d", w.StartHour, w.EndHour)
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 256
	}
	return nil
}
