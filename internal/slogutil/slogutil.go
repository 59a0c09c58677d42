// Package slogutil configures the process-wide slog logger the same way
// across cmd/confreload, the reload engine, and internal/verify: off an
// env var first, a CLI flag taking precedence when one is given.
package slogutil

import (
	"log/slog"
	"os"
	"strings"
)

// EnvVar is the environment variable confreload reads its log level from,
// mirroring the teacher's LOG_LEVEL convention.
const EnvVar = "CONFRELOAD_LOG_LEVEL"

// Init configures slog.Default() from flagLevel if non-empty, otherwise
// from the CONFRELOAD_LOG_LEVEL environment variable, otherwise leaves the
// default at info. Supported levels: debug, debug2, info, warn, error.
// "debug2" maps to slog.LevelDebug as well; it exists only so operators
// coming from postgresql.conf's log_min_messages vocabulary can spell it
// the way they're used to.
func Init(flagLevel string) {
	raw := flagLevel
	if raw == "" {
		raw = os.Getenv(EnvVar)
	}
	if raw == "" {
		return
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(raw)})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug", "debug2":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
