// Package logging builds the application's slog logger and bridges it into GORM.
package logging

import (
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

// New returns a slog.Logger writing text or JSON records at the given level.
func New(format string, level slog.Level, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Gorm adapts l for GORM. SQL statements are only traced when debug is set;
// otherwise GORM reports slow queries and errors.
func Gorm(l *slog.Logger, debug bool) logger.Interface {
	level, slogLevel := logger.Warn, slog.LevelWarn
	if debug {
		level, slogLevel = logger.Info, slog.LevelDebug
	}
	return logger.New(
		slog.NewLogLogger(l.With(slog.String("component", "gorm")).Handler(), slogLevel),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
