// Package logger provides structured logging setup for quality-core.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds the logging options (level name and service attribute).
type Config struct {
	Level   string
	Service string
}

// New creates a *slog.Logger writing JSON to stdout with a "service"
// attribute on every record.
func New(cfg Config) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler).With("service", cfg.Service)
}

// ParseLevel converts a string log level to slog.Level. Unknown values
// default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
