// Package logging provides the structured logger used by every stage of
// the evaluation pipeline. It is a thin façade over log/slog, in the
// spirit of a batch tool that needs one well-formed logger per run rather
// than the session-replay machinery a long-running daemon would need.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Options controls logger construction.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// Format is "console" (human-readable) or "json" (machine-readable).
	// Defaults to "console".
	Format string

	// Output is not read by New, which always writes to the writer
	// passed as its second argument.
	Output io.Writer
}

// New constructs a slog.Logger from Options, writing to w.
func New(opts Options, w io.Writer) *slog.Logger {
	level := parseLevel(opts.Level)

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler)
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
