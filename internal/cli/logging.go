package cli

import (
	"io"
	"log/slog"
	"strings"

	"protonbuild/internal/config"
)

// newLogger creates a slog.Logger for the configured level and format.
// Unknown levels fall back to warn; unknown formats fall back to text.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg config.LogConfig, w io.Writer) {
	slog.SetDefault(newLogger(cfg, w))
}
