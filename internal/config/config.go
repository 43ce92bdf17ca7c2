// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Tracing  TracingConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     int // seconds
	WriteTimeout    int // seconds
	IdleTimeout     int // seconds
	ShutdownTimeout int // seconds
}

// DatabaseConfig holds connection settings. Driver is "postgres" or "sqlite".
// RawDSN, when set, wins over the individual parts.
type DatabaseConfig struct {
	Driver     string
	RawDSN     string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	Retries    int
	RetryDelay time.Duration
	Debug      bool
}

type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool
}

type LogConfig struct {
	Level  string
	Format string // json | console
}

type TracingConfig struct {
	Enabled       bool
	Endpoint      string
	SamplingRatio float64
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name       string
	Env        string
	Version    string
	Currency   string
	Migrations bool
	Seed       bool
}

func (a AppConfig) Dev() bool { return a.Env == "development" || a.Env == "dev" }

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	if d.Driver == "sqlite" {
		return "zenbilling.db"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format, as expected by golang-migrate.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.RawDSN, "postgres://") || strings.HasPrefix(d.RawDSN, "postgresql://") {
		return d.RawDSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

const devSessionSecret = "devsessionsecret"

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			ShutdownTimeout: getEnvInt("SERVER_SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			RawDSN:     os.Getenv("DATABASE_DSN"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "zenbilling"),
			Password:   getEnv("DB_PASSWORD", "zenbilling"),
			DBName:     getEnv("DB_NAME", "zenbilling"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			Retries:    getEnvInt("DB_RETRIES", 10),
			RetryDelay: time.Duration(getEnvInt("DB_RETRY_DELAY_MS", 2000)) * time.Millisecond,
			Debug:      getEnvBool("DB_DEBUG", false),
		},
		Auth: AuthConfig{
			SessionSecret: getEnv("SESSION_SECRET", devSessionSecret),
			SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_HOURS", 14*24)) * time.Hour,
			SecureCookie:  getEnvBool("SESSION_SECURE", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Tracing: TracingConfig{
			Enabled:       getEnvBool("OTEL_ENABLED", false),
			Endpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			SamplingRatio: getEnvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		App: AppConfig{
			Name:       getEnv("APP_NAME", "zenbilling"),
			Env:        getEnv("APP_ENV", "development"),
			Version:    getEnv("APP_VERSION", "dev"),
			Currency:   strings.ToUpper(getEnv("APP_CURRENCY", "EUR")),
			Migrations: getEnvBool("MIGRATIONS", false),
			Seed:       getEnvBool("DB_SEED", false),
		},
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.Retries < 1 {
		errs = append(errs, errors.New("DB_RETRIES must be at least 1"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}
	if !c.App.Dev() && c.Auth.SessionSecret == devSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set outside development"))
	}
	if c.Tracing.SamplingRatio < 0 || c.Tracing.SamplingRatio > 1 {
		errs = append(errs, errors.New("OTEL_SAMPLING_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
