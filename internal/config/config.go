// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers .env, an optional YAML file and VERDICT_ env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Leaderboard sources.
const (
	SourceMirror = "mirror"
	SourceLedger = "ledger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver selects the ledger and catalog backend: postgres, sqlite or memory.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the driver specific connection string.
	DBDSN string `koanf:"db_dsn"`

	DBMaxOpenConns int  `koanf:"db_max_open_conns"`
	DBMaxIdleConns int  `koanf:"db_max_idle_conns"`
	AutoMigrate    bool `koanf:"auto_migrate"`

	// RedisURL enables the Redis notification sink and shared deduper when set.
	RedisURL string `koanf:"redis_url"`

	// RedisChannelPrefix is prepended to every published topic.
	RedisChannelPrefix string `koanf:"redis_channel_prefix"`

	// NotifyQueueSize bounds the in-memory notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkers sets the number of notification delivery workers.
	NotifyWorkers int `koanf:"notify_workers"`

	// DedupeSize caps the process-local reminder deduper.
	DedupeSize int `koanf:"dedupe_size"`

	// ReminderTTLSeconds is the window in which a second reminder is suppressed.
	ReminderTTLSeconds int `koanf:"reminder_ttl_seconds"`

	// LeaderboardSource picks the store the leaderboard aggregates: mirror or ledger.
	LeaderboardSource string `koanf:"leaderboard_source"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		DBDriver:           DriverMemory,
		DBMaxOpenConns:     20,
		DBMaxIdleConns:     5,
		AutoMigrate:        true,
		RedisChannelPrefix: "verdict.",
		NotifyQueueSize:    10_000,
		NotifyWorkers:      runtime.NumCPU(),
		DedupeSize:         100_000,
		ReminderTTLSeconds: 6 * 60 * 60,
		LeaderboardSource:  SourceMirror,
	}
}

// ReminderTTL returns the reminder suppression window.
func (c *Config) ReminderTTL() time.Duration {
	return time.Duration(c.ReminderTTLSeconds) * time.Second
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite && c.DBDriver != DriverMemory:
		return fmt.Errorf("%w: unknown db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.DBDriver != DriverMemory && c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn is required for driver %q", ErrInvalidConfig, c.DBDriver)
	case c.LeaderboardSource != SourceMirror && c.LeaderboardSource != SourceLedger:
		return fmt.Errorf("%w: unknown leaderboard_source %q", ErrInvalidConfig, c.LeaderboardSource)
	case c.NotifyQueueSize <= 0:
		return fmt.Errorf("%w: notify_queue_size must be positive", ErrInvalidConfig)
	case c.NotifyWorkers <= 0:
		return fmt.Errorf("%w: notify_workers must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.ReminderTTLSeconds <= 0:
		return fmt.Errorf("%w: reminder_ttl_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
