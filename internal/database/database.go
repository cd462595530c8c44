package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/inkwell-notes/notes-api/internal/config"
	"github.com/inkwell-notes/notes-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 15 * time.Second
)

// NewDatabase creates a new database connection, retrying with exponential backoff
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.ConnectionString()

	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}

	var (
		db      *gorm.DB
		err     error
		backoff = initialBackoff
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warn("Database connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt < attempts {
			time.Sleep(backoff)
			backoff = min(backoff*2, maxBackoff)
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to auto-migrate: %w", err)
		}
		log.Info("Database auto-migration completed")
	}

	return db, nil
}

func open(dialector gorm.Dialector, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, Config())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Config returns the gorm settings shared by the server and tests.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey on every dialect.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// AutoMigrate runs automatic migrations (for development and tests only)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Category{},
		&domain.Tag{},
		&domain.Note{},
		&domain.Comment{},
		&domain.Like{},
		&domain.Attachment{},
	)
}

// HealthCheck pings the underlying connection pool
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Ping()
}

// HealthCheckWithStats pings and returns pool statistics
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return sqlDB.Stats(), err
	}
	return sqlDB.Stats(), nil
}
