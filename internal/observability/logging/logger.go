package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the shared JSON logger for the api and mcp binaries.
// Entries go to stderr: the mcp binary speaks its protocol on stdout, so
// stdout must stay clean of log lines. Every entry carries the service
// attribute so merged log streams stay attributable.
func NewJSONLogger(service, level string) *slog.Logger {
	logger := newLogger(os.Stderr, service, level)
	// Retrieval internals (retry warnings, breaker state changes) log through
	// the default logger; route them to the same sink.
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
