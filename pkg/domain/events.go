package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter      EventType = "node_enter"
	EventStep           EventType = "step"
	EventVariableChange EventType = "variable_change"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent is emitted when a node is about to be evaluated.
type NodeEvent struct {
	EventBase
	GraphID  string   `json:"graph_id"`
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
}

// StepEvent is emitted once per engine operation that produced a result.
type StepEvent struct {
	EventBase
	GraphID   string     `json:"graph_id"`
	NodeID    string     `json:"node_id"`
	Result    ResultKind `json:"result"`
	StepCount int        `json:"step_count"`
}

// VariableEvent is emitted for every applied variable change.
type VariableEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	Variable string `json:"variable"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnStep           func(context.Context, *StepEvent)
	OnVariableChange func(context.Context, *VariableEvent)
}
