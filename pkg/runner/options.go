package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/storyflow/pkg/domain"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithInterval sets the delay between two automatic steps.
// Zero plays as fast as possible.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.interval = d
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after every automatic step.
func WithObserver(fn func(domain.Result, *domain.State)) Option {
	return func(r *Runner) {
		r.observer = fn
	}
}
