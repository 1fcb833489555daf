package domain

import (
	"reflect"
)

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	GraphID       *string          `json:"graph_id,omitempty"`
	CurrentNodeID *string          `json:"current_node_id,omitempty"`
	Status        *ExecutionStatus `json:"status,omitempty"`

	// Variables contains only changed, added or deleted keys (current values).
	// For deletions, the key is present with a nil value.
	Variables map[string]any `json:"variables,omitempty"`

	// Console and History hold entries appended since the old state.
	Console []ConsoleEntry `json:"console,omitempty"`
	History []HistoryEntry `json:"history,omitempty"`

	// Rewound is set when the new state has fewer console entries than the old
	// one (step back or reset); clients should reload instead of merging.
	Rewound bool `json:"rewound,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.GraphID != newState.GraphID {
		diff.GraphID = &newState.GraphID
	}
	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		diff.CurrentNodeID = &newState.CurrentNodeID
	}
	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}

	diff.Variables = diffVariables(oldState, newState)

	oldConsole, oldHistory := 0, 0
	if oldState != nil {
		oldConsole, oldHistory = len(oldState.Console), len(oldState.History)
	}
	if len(newState.Console) < oldConsole || len(newState.History) < oldHistory {
		diff.Rewound = true
	} else {
		if len(newState.Console) > oldConsole {
			diff.Console = newState.Console[oldConsole:]
		}
		if len(newState.History) > oldHistory {
			diff.History = newState.History[oldHistory:]
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(old *State, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Variables {
			delta[k] = v.Value
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVar := range new.Variables {
		oldVar, exists := old.Variables[k]
		if !exists || !reflect.DeepEqual(oldVar.Value, newVar.Value) {
			delta[k] = newVar.Value
		}
	}
	for k := range old.Variables {
		if _, exists := new.Variables[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.GraphID == nil &&
		d.CurrentNodeID == nil &&
		d.Status == nil &&
		len(d.Variables) == 0 &&
		len(d.Console) == 0 &&
		len(d.History) == 0 &&
		!d.Rewound
}
