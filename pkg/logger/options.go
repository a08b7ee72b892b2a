package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger built by New.
type Option func(*config)

// WithDebug selects the Debug level. Without it, or with false, records
// below Info are dropped.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the charmbracelet/log handler used for terminal output.
func WithPretty(pretty bool) Option {
	return func(c *config) { c.pretty = pretty }
}

// WithJSON selects slog's JSON handler. It wins over WithPretty, so a
// --log-file sink stays machine-readable.
func WithJSON(json bool) Option {
	return func(c *config) { c.json = json }
}

// WithWriter adds a destination. Repeated calls tee records to every writer;
// a nil writer is skipped. With no writer at all, records go to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writers = append(c.writers, w)
		}
	}
}

// WithSource reports the calling file and line on every record. The vera
// commands turn it on together with --debug.
func WithSource(source bool) Option {
	return func(c *config) { c.source = source }
}
