package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ZenBillingApp/zenbilling/internal/clock"
	"github.com/ZenBillingApp/zenbilling/internal/config"
	"github.com/ZenBillingApp/zenbilling/internal/db"
	"github.com/ZenBillingApp/zenbilling/internal/logger"
	"github.com/ZenBillingApp/zenbilling/internal/metrics"
	"github.com/ZenBillingApp/zenbilling/internal/server"
	"github.com/ZenBillingApp/zenbilling/internal/tracing"
)

// App holds the process-wide dependencies shared by every command.
type App struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func bootstrap(ctx context.Context) (*App, error) {
	cfg := config.Load()
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &App{cfg: cfg, log: log, db: conn}, nil
}

// Close releases the pool and flushes the logger.
func (a *App) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *App) Migrate(useSQL bool) error {
	if useSQL {
		if a.cfg.Database.Driver != "postgres" {
			return errors.New("SQL migrations require the postgres driver")
		}
		v, err := db.MigrateSQL(a.cfg.Database.URL())
		if err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		a.log.Info("sql migrations applied", zap.Uint("version", v))
		return nil
	}
	if err := db.Migrate(a.db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	a.log.Info("migrations completed")
	return nil
}

func (a *App) Seed(ctx context.Context) error {
	if err := db.Seed(ctx, a.db); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	a.log.Info("seed completed", zap.String("email", db.DemoEmail))
	return nil
}

// Serve runs the API until SIGINT or SIGTERM, then drains in-flight
// requests within the configured shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.App.Migrations {
		if err := a.Migrate(false); err != nil {
			return err
		}
	}
	if a.cfg.App.Seed {
		if err := a.Seed(ctx); err != nil {
			return err
		}
	}

	shutdownTracing, err := tracing.Setup(ctx, a.cfg.Tracing, a.cfg.App, a.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	handler := server.New(server.Deps{
		DB:      a.db,
		Auth:    a.cfg.Auth,
		Metrics: metrics.New(a.cfg.App.Name, a.cfg.App.Env),
		Clock:   clock.System{},
	})

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.Server.IdleTimeout) * time.Second,
		ErrorLog:     zap.NewStdLog(a.log.Named("http")),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", a.cfg.App.Env),
			zap.String("version", a.cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	}

	timeout := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		a.log.Warn("tracing shutdown", zap.Error(err))
	}
	a.log.Info("server stopped gracefully")
	return nil
}
