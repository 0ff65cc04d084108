// Package logging provides structured logging setup using slog.
//
// Logs describe what the engine is doing. Spec output is not logged; it is
// written to the diagnostic stream by the runner.
package logging

import (
	"io"
	"log/slog"
)

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// New creates a text logger at Info level, or Debug when verbose.
func New(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level(verbose),
	}))
}

// NewJSON creates a structured JSON logger.
func NewJSON(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level(verbose),
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
