// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Receipt  ReceiptConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the storage connection settings.
// SQLite is the default embedded store; the network fields are only read
// when Driver is "postgres" or "mysql".
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"sqlite"`
	Path     string `envconfig:"DB_PATH" default:"billing.db"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"invoices"`
	Password string `envconfig:"DB_PASSWORD" default:"invoices123"`
	DBName   string `envconfig:"DB_NAME" default:"invoices"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	Debug    bool   `envconfig:"DB_DEBUG" default:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev       bool   `envconfig:"DEV" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	Timezone  string `envconfig:"APP_TIMEZONE" default:"UTC"`
}

// ReceiptConfig holds PDF receipt settings.
// An empty GotenbergURL disables PDF conversion; invoices still save.
type ReceiptConfig struct {
	Dir            string        `envconfig:"RECEIPT_DIR" default:"receipts"`
	GotenbergURL   string        `envconfig:"GOTENBERG_URL"`
	Timeout        time.Duration `envconfig:"GOTENBERG_TIMEOUT" default:"30s"`
	CurrencySymbol string        `envconfig:"CURRENCY_SYMBOL" default:"₹"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// MySQLDSN returns the go-sql-driver DSN for the same connection fields.
func (d DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// SQLiteDSN returns the SQLite file DSN with foreign keys enforced.
func (d DatabaseConfig) SQLiteDSN() string {
	sep := "?"
	if strings.Contains(d.Path, "?") {
		sep = "&"
	}
	return d.Path + sep + "_foreign_keys=on"
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	var cfg Config
	for _, section := range []any{&cfg.Server, &cfg.Database, &cfg.App, &cfg.Receipt} {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.App.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unsupported LOG_FORMAT %q", c.App.LogFormat)
	}
	if _, err := c.App.Level(); err != nil {
		return err
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel into a slog level.
func (a AppConfig) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", a.LogLevel, err)
	}
	return lvl, nil
}

// Location resolves the timezone used for calendar month filtering and
// receipt dates.
func (a AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid APP_TIMEZONE %q: %w", a.Timezone, err)
	}
	return loc, nil
}
