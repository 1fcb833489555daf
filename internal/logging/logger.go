package logging

import (
	"io"
	"log/slog"
	"os"
)

// Option configures the logger built by New.
type Option func(*config)

type config struct {
	w    io.Writer
	json bool
}

// WithWriter redirects output. Defaults to Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.w = w
	}
}

// WithJSON switches to the JSON handler, for log collectors.
func WithJSON() Option {
	return func(c *config) {
		c.json = true
	}
}

// New creates a configured operator logger.
// Output goes to Stderr so it never mixes with the debugger output on Stdout.
// The "error" key is renamed to "err" for every handler.
func New(level slog.Level, opts ...Option) *slog.Logger {
	cfg := config{w: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameErrorKey,
	}
	if cfg.json {
		return slog.New(slog.NewJSONHandler(cfg.w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(cfg.w, handlerOpts))
}

func renameErrorKey(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
