package db

import (
	"fmt"
	"log/slog"

	"github.com/diewo77/retail-invoices/internal/config"
	"github.com/diewo77/retail-invoices/internal/logging"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured store. The returned handle is the single
// storage dependency of the process; callers must Close it at shutdown.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logging.Gorm(logger, cfg.Debug)}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		logger.Info("opening database", slog.String("driver", cfg.Driver), slog.String("path", cfg.Path))
		dialector = sqlite.Open(cfg.SQLiteDSN())
	case config.DriverPostgres, config.DriverMySQL:
		logger.Info("opening database",
			slog.String("driver", cfg.Driver),
			slog.String("host", cfg.Host),
			slog.Int("port", cfg.Port),
			slog.String("dbname", cfg.DBName),
			slog.String("user", cfg.User))
		if cfg.Driver == config.DriverMySQL {
			dialector = mysql.Open(cfg.MySQLDSN())
		} else {
			dialector = postgres.Open(cfg.DSN())
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		// One writer at a time; also keeps a transaction on one connection.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return conn, nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
