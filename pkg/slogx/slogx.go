// Package slogx wires up a process-wide slog.Logger for the client.
package slogx

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	App     string
	Version string
	Env     string // deployment environment, e.g. "prod"
	Level   string // e.g. "debug", "info", "warn", "error"
	Format  string // "text" (default, CLI friendly) or "json"
}

// New returns a configured slog.Logger and installs it as the default.
// Logs go to stderr so command output on stdout stays parseable.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	attrs := []any{"app", cfg.App, "version", cfg.Version}
	if cfg.Env != "" {
		attrs = append(attrs, "env", cfg.Env)
	}
	logger := slog.New(handler).With(attrs...)

	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a string to slog.Level.
func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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
