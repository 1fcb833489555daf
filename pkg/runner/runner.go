package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/storyflow/internal/logging"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/ports"
)

// ErrNothingToPlay is returned when Play is called on a session that cannot advance.
var ErrNothingToPlay = errors.New("session cannot advance")

// Runner steps a session on a timer until it halts.
type Runner struct {
	engine   ports.DebugEngine
	interval time.Duration
	observer func(domain.Result, *domain.State)
	logger   *slog.Logger
}

// New creates a Runner driving engine.
func New(engine ports.DebugEngine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Play steps state until a result halts auto-play or ctx is cancelled.
//
// A breakpoint is checked after every step that moved the session, so playing
// from a node that carries a breakpoint leaves it instead of stopping on it.
// On cancellation Play returns the last result and state together with the
// context error.
func (r *Runner) Play(ctx context.Context, state *domain.State) (domain.Result, *domain.State, error) {
	if state == nil {
		return domain.Result{}, nil, domain.ErrNilState
	}
	if state.Status != domain.StatusPaused {
		return domain.Result{}, state, ErrNothingToPlay
	}

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	last := domain.Result{Kind: domain.ResultAdvanced, NodeID: state.CurrentNodeID, GraphID: state.GraphID}
	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			return r.stopped(last, state, steps, err)
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return r.stopped(last, state, steps, ctx.Err())
			case <-tick:
			}
		}

		res, next, err := r.engine.Step(ctx, state)
		if err != nil {
			return last, state, err
		}
		state, last = next, res
		steps++
		if r.observer != nil {
			r.observer(res, state)
		}

		if res.Halts() {
			r.logger.Debug("auto-play halted", "session_id", state.SessionID, "result", res.Kind, "node_id", res.NodeID, "steps", steps)
			return res, state, nil
		}

		checked, hit := r.engine.CheckBreakpoint(ctx, state)
		state = checked
		if hit {
			res = domain.Result{Kind: domain.ResultBreakpointHit, NodeID: state.CurrentNodeID, GraphID: state.GraphID}
			if r.observer != nil {
				r.observer(res, state)
			}
			r.logger.Debug("auto-play hit breakpoint", "session_id", state.SessionID, "node_id", state.CurrentNodeID, "steps", steps)
			return res, state, nil
		}
	}
}

func (r *Runner) stopped(last domain.Result, state *domain.State, steps int, err error) (domain.Result, *domain.State, error) {
	r.logger.Debug("auto-play cancelled", "session_id", state.SessionID, "steps", steps)
	return last, state, err
}
