package logger

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler hands each record to every handler that accepts its level.
// A failing handler does not starve the others: "vera ask --log-file" keeps
// printing to stderr even when the log file stops accepting writes.
type teeHandler []slog.Handler

// Multi returns a logger whose records reach every logger in loggers. Nil
// loggers are skipped; with none left the result discards everything.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	var t teeHandler
	for _, l := range loggers {
		if l != nil {
			t = append(t, l.Handler())
		}
	}
	if len(t) == 0 {
		return Nop()
	}
	return slog.New(t)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		// Handlers may keep the record's attrs, so each gets its own copy.
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
