// Package plog sets up the process-wide logger the parmsig CLI writes its
// diagnostics through; the library packages do not log. No library in the retrieval pack supplies
// structured logging (see DESIGN.md); this wraps log/slog in the same
// minimal, stderr-only, no-timestamp style the teacher's own CLI/LSP
// entry points configure the stdlib log package with (cmd/lsp/main.go:
// "log.SetFlags(0) ... log.SetOutput(os.Stderr)").
package plog

import (
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// Init installs the process-wide logger, writing to stderr (so stdout
// stays free for a tool's actual output, as the teacher's LSP mode
// requires of its own protocol stream) at the given level.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Default returns the process-wide logger.
func Default() *slog.Logger { return logger }

func Debug(msg string, args ...any) { logger.Debug(msg, args...) }
func Warn(msg string, args ...any)  { logger.Warn(msg, args...) }
func Error(msg string, args ...any) { logger.Error(msg, args...) }
