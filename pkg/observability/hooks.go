package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/storyflow/pkg/domain"
)

// Chain combines several hook sets; each callback runs in argument order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var nodeEnter []func(context.Context, *domain.NodeEvent)
	var step []func(context.Context, *domain.StepEvent)
	var varChange []func(context.Context, *domain.VariableEvent)
	for _, h := range hooks {
		if h.OnNodeEnter != nil {
			nodeEnter = append(nodeEnter, h.OnNodeEnter)
		}
		if h.OnStep != nil {
			step = append(step, h.OnStep)
		}
		if h.OnVariableChange != nil {
			varChange = append(varChange, h.OnVariableChange)
		}
	}

	if len(nodeEnter) > 0 {
		out.OnNodeEnter = func(ctx context.Context, e *domain.NodeEvent) {
			for _, fn := range nodeEnter {
				fn(ctx, e)
			}
		}
	}
	if len(step) > 0 {
		out.OnStep = func(ctx context.Context, e *domain.StepEvent) {
			for _, fn := range step {
				fn(ctx, e)
			}
		}
	}
	if len(varChange) > 0 {
		out.OnVariableChange = func(ctx context.Context, e *domain.VariableEvent) {
			for _, fn := range varChange {
				fn(ctx, e)
			}
		}
	}
	return out
}

// LogHooks returns hooks that trace engine activity at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node enter",
				"session_id", e.SessionID,
				"graph_id", e.GraphID,
				"node_id", e.NodeID,
				"type", e.NodeType,
			)
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step",
				"session_id", e.SessionID,
				"graph_id", e.GraphID,
				"node_id", e.NodeID,
				"result", e.Result,
				"step", e.StepCount,
			)
		},
		OnVariableChange: func(ctx context.Context, e *domain.VariableEvent) {
			logger.DebugContext(ctx, "variable change",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"variable", e.Variable,
				"old", e.OldValue,
				"new", e.NewValue,
			)
		},
	}
}
