// Package logging implements the ambient logging component (SPEC_FULL.md
// §4.G): structured, leveled logging for the pipeline's background
// workers, plus the fatal-error helper spec §7 asks for. It wraps the
// standard library's log/slog.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// New returns a slog.Logger writing structured text to os.Stderr, at
// Info level normally and Debug when verbose is set —
// the mapping Config.Verbose drives (spec §3).
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// ExitFunc is the swappable process-exit hook Fatal calls through, so
// tests can observe a would-be-fatal condition without actually ending
// the test binary (spec §7).
type ExitFunc func(code int)

// Fatal logs msg at Error level with fields, then calls exit(code). The
// default production ExitFunc is os.Exit; tests substitute one that
// records the call instead.
func Fatal(logger *slog.Logger, exit ExitFunc, code int, msg string, args ...any) {
	logger.Log(context.Background(), slog.LevelError, msg, args...)
	if exit == nil {
		exit = os.Exit
	}
	exit(code)
}
