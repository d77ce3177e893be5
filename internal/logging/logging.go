// Package logging builds the process-wide slog logger and small helpers
// shared by services and handlers.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options selects the handler and level.
type Options struct {
	Format string // "text" or "json"
	Debug  bool
	Output io.Writer
}

// New returns a logger writing to opts.Output (stdout when nil).
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if opts.Format == "json" {
		h = slog.NewJSONHandler(out, handlerOpts)
	} else {
		h = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything. Used by tests and by
// constructors that receive a nil logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Err returns an "error" attribute carrying err's message.
//
//	log.Error("failed to list accounts", logging.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
