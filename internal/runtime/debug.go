package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/schema"
)

// SetVariable overrides the value of key. The override is validated against
// the declared kind and can be undone with StepBack.
func (e *Engine) SetVariable(ctx context.Context, state *domain.State, key string, value any) (*domain.State, error) {
	if state == nil {
		return nil, domain.ErrNilState
	}
	current, ok := state.Variables[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, key)
	}
	normalized, err := schema.ValidateValue(key, current.Kind, current.Options, value)
	if err != nil {
		return nil, err
	}

	next := state.PushSnapshot()
	v := next.Variables[key]
	old := domain.CloneValue(v.Value)
	v.PreviousValue = old
	v.Value = normalized
	v.Source = domain.SourceUserOverride
	next.Variables[key] = v

	next.History = append(next.History, domain.HistoryEntry{
		Step:     next.StepCount,
		Variable: key,
		OldValue: old,
		NewValue: domain.CloneValue(normalized),
		NodeID:   next.CurrentNodeID,
		GraphID:  next.GraphID,
		Source:   domain.SourceUserOverride,
	})
	next.Log(domain.SeverityInfo, next.CurrentNodeID, "%s overridden: %v -> %v", key, old, normalized)
	e.emitVariableChange(ctx, next, next.CurrentNodeID, key, old, normalized)
	return next, nil
}

// SetViewMode switches between analysis and player presentation. It applies
// from the next evaluated node on.
func (e *Engine) SetViewMode(ctx context.Context, state *domain.State, mode domain.ViewMode) (*domain.State, error) {
	if state == nil {
		return nil, domain.ErrNilState
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidViewMode, mode)
	}
	next := state.Clone()
	next.ViewMode = mode
	return next, nil
}

// ToggleBreakpoint adds an unconditional breakpoint on nodeID, or removes
// the existing one.
func (e *Engine) ToggleBreakpoint(ctx context.Context, state *domain.State, nodeID string) *domain.State {
	if state == nil {
		return nil
	}
	next := state.Clone()
	if _, ok := next.Breakpoints[nodeID]; ok {
		delete(next.Breakpoints, nodeID)
	} else {
		next.Breakpoints[nodeID] = nil
	}
	return next
}

// SetBreakpointCondition places a breakpoint on nodeID that only triggers
// when guard passes. A nil guard makes it unconditional.
func (e *Engine) SetBreakpointCondition(ctx context.Context, state *domain.State, nodeID string, guard *domain.Condition) *domain.State {
	if state == nil {
		return nil
	}
	next := state.Clone()
	if guard != nil {
		g := *guard
		g.Rules = append([]domain.Rule(nil), guard.Rules...)
		guard = &g
	}
	next.Breakpoints[nodeID] = guard
	return next
}

// ClearBreakpoints removes every breakpoint.
func (e *Engine) ClearBreakpoints(ctx context.Context, state *domain.State) *domain.State {
	if state == nil {
		return nil
	}
	next := state.Clone()
	next.Breakpoints = make(map[string]*domain.Condition)
	return next
}

// CheckBreakpoint reports whether the session sits on a breakpoint whose
// guard passes. On a hit the returned state carries a breakpoint console entry.
// A guard referencing absent variables logs the usual warnings, hit or not;
// otherwise a miss returns state itself.
func (e *Engine) CheckBreakpoint(ctx context.Context, state *domain.State) (*domain.State, bool) {
	if state == nil || state.Terminated() || state.CurrentNodeID == "" {
		return state, false
	}
	guard, ok := state.BreakpointAt(state.CurrentNodeID)
	if !ok {
		return state, false
	}

	next := state.Clone()
	var rules []domain.RuleResult
	if guard != nil {
		var passed bool
		passed, rules = e.evaluateCondition(next, next.CurrentNodeID, *guard)
		if !passed {
			if len(next.Console) == len(state.Console) {
				return state, false
			}
			return next, false
		}
	}

	next.LogRules(domain.SeverityBreakpoint, next.CurrentNodeID, rules, "Breakpoint hit at %q", next.CurrentNodeID)
	e.logger.Debug("breakpoint hit", "session_id", next.SessionID, "graph_id", next.GraphID, "node_id", next.CurrentNodeID)
	return next, true
}
