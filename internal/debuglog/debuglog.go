// Package debuglog sets up render-pipeline tracing: a single env var
// gates whether anything is written at all, matching spec.md §6's "one
// optional logging-level variable" contract.
package debuglog

import (
	"io"
	"log/slog"
	"os"
)

// EnvVar is the environment variable that enables logging when set to
// any non-empty value.
const EnvVar = "PDFTUI_LOG"

// LogFile is the file written to in the working directory when logging
// is enabled.
const LogFile = "debug.log"

// Setup returns a logger and a close function. When EnvVar is unset,
// the logger discards everything and close is a no-op, so call sites
// never need to branch on whether logging is active.
func Setup() (*slog.Logger, func() error, error) {
	if os.Getenv(EnvVar) == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }, nil
	}

	f, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, f.Close, nil
}
