package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cntExplorer/explorer/config"
)

// New builds the process logger. Output goes to cfg.File when it can be
// opened for append, otherwise to stdout. The returned closer releases the
// file handle and is never nil.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     ParseLevel(cfg.Level),
	}

	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nopCloser{}
	}

	logFile, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file %s: %v. Falling back to stdout.\n", cfg.File, err)
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nopCloser{}
	}

	logger := slog.New(slog.NewTextHandler(logFile, opts))
	logger.Info("Logging configured to file", "path", cfg.File)
	return logger, logFile
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Discard returns a logger that drops everything; used by tests and as a nil default.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
