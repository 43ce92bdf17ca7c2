// Package db opens the database, applies the schema and seeds demo data.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ZenBillingApp/zenbilling/internal/config"
	"github.com/ZenBillingApp/zenbilling/internal/models"
)

// Open connects to the configured database. Postgres connections are
// retried to give the server time to start.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger: logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	}

	dsn := NormalizeDSN(cfg.DSN())
	if dsn == "" {
		return nil, errors.New("empty database DSN, check DATABASE_DSN or DB_* variables")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	retries := max(cfg.Retries, 1)
	var (
		conn *gorm.DB
		err  error
	)
	for attempt := 1; attempt <= retries; attempt++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			err = conn.WithContext(ctx).Exec("SELECT 1").Error
		}
		if err == nil {
			break
		}
		log.Warn("database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retries),
			zap.Error(err),
		)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after %d attempts: %w", retries, err)
	}

	log.Info("database connected", zap.String("driver", cfg.Driver), zap.String("dsn", MaskDSN(dsn)))
	return conn, nil
}

// Migrate applies the schema with AutoMigrate and checks the core tables exist.
func Migrate(conn *gorm.DB) error {
	for _, m := range models.All() {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	for _, table := range []string{"users", "companies", "invoices", "payments", "quotes"} {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
