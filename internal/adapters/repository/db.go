package repository

import (
	"context"
	"fmt"
	"time"

	charm "github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/verdict/internal/config"
	"github.com/okian/verdict/pkg/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// DBOption configures Open.
type DBOption func(*dbConfig)

type dbConfig struct {
	maxOpen     int
	maxIdle     int
	autoMigrate bool
	logger      gormlogger.Interface
}

// WithPool sets the connection pool bounds. Non-positive values keep the driver default.
func WithPool(maxOpen, maxIdle int) DBOption {
	return func(c *dbConfig) {
		c.maxOpen = maxOpen
		c.maxIdle = maxIdle
	}
}

// WithAutoMigrate toggles schema migration on open.
func WithAutoMigrate(enabled bool) DBOption {
	return func(c *dbConfig) {
		c.autoMigrate = enabled
	}
}

// WithGormLogger overrides the SQL logger.
func WithGormLogger(l gormlogger.Interface) DBOption {
	return func(c *dbConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Open connects to driver (postgres or sqlite) and optionally migrates the schema.
func Open(ctx context.Context, driver, dsn string, opts ...DBOption) (*gorm.DB, error) {
	cfg := dbConfig{autoMigrate: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = newGormLogger()
	}

	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("repository: %w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         cfg.logger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("repository: open connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("repository: get sql.DB: %w", err)
	}
	if cfg.maxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.maxOpen)
	}
	if cfg.maxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.maxIdle)
	}

	if driver == config.DriverSQLite {
		if err := db.WithContext(ctx).Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			return nil, fmt.Errorf("repository: set busy timeout: %w", err)
		}
	}

	if cfg.autoMigrate {
		if err := Migrate(ctx, db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates every table and index.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return ErrNilDB
	}
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("repository: auto migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newGormLogger routes SQL warnings and slow queries through the service logger.
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(
		logger.Backend().StandardLog(charm.StandardLogOptions{ForceLevel: charm.WarnLevel}),
		gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
