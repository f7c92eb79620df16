package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/coursework/internal/config"
)

// ParseLevel maps a configured level name (case-insensitive) to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
}

// New creates a JSON logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup initializes the application's logging system: a JSON logger on
// stdout at the configured level, installed as the slog default.
//
// An invalid level falls back to info; the returned error reports it so the
// caller can log a warning with the new logger.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.LogLevel)

	logger := New(os.Stdout, level)
	slog.SetDefault(logger)

	return logger, err
}
