package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	paused := StatusPaused
	finished := StatusFinished

	health := func(v float64) map[string]Variable {
		return map[string]Variable{"mc.health": NewVariable("mc.health", KindNumber, v)}
	}

	tests := []struct {
		name     string
		old      *State
		new      *State
		wantDiff *StateDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &State{
				SessionID:     "sess-1",
				GraphID:       "main",
				CurrentNodeID: "start",
				Status:        StatusPaused,
				Variables:     health(100),
			},
			wantDiff: &StateDiff{
				SessionID:     "sess-1",
				GraphID:       &[]string{"main"}[0],
				CurrentNodeID: &[]string{"start"}[0],
				Status:        &paused,
				Variables:     map[string]any{"mc.health": 100.0},
			},
		},
		{
			name: "No Changes",
			old:  &State{SessionID: "sess-1", CurrentNodeID: "start", Status: StatusPaused, Variables: health(100)},
			new:  &State{SessionID: "sess-1", CurrentNodeID: "start", Status: StatusPaused, Variables: health(100)},
		},
		{
			name: "Status Change",
			old:  &State{SessionID: "sess-1", CurrentNodeID: "end", Status: StatusPaused},
			new:  &State{SessionID: "sess-1", CurrentNodeID: "end", Status: StatusFinished},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Status:    &finished,
			},
		},
		{
			name: "Variable Modified",
			old:  &State{SessionID: "sess-1", Variables: health(100)},
			new:  &State{SessionID: "sess-1", Variables: health(80)},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Variables: map[string]any{"mc.health": 80.0},
			},
		},
		{
			name: "Console Append",
			old:  &State{SessionID: "sess-1", Console: []ConsoleEntry{{Message: "a"}}},
			new:  &State{SessionID: "sess-1", Console: []ConsoleEntry{{Message: "a"}, {Message: "b"}}},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Console:   []ConsoleEntry{{Message: "b"}},
			},
		},
		{
			name: "Console Rewound",
			old:  &State{SessionID: "sess-1", Console: []ConsoleEntry{{Message: "a"}, {Message: "b"}}},
			new:  &State{SessionID: "sess-1", Console: []ConsoleEntry{{Message: "a"}}},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Rewound:   true,
			},
		},
		{
			name: "Variable Deletion",
			old:  &State{Variables: health(1)},
			new:  &State{Variables: map[string]Variable{}},
			wantDiff: &StateDiff{
				Variables: map[string]any{"mc.health": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDiff.SessionID, got.SessionID)
			assert.Equal(t, tt.wantDiff.Variables, got.Variables)
			assert.Equal(t, tt.wantDiff.Console, got.Console)
			assert.Equal(t, tt.wantDiff.Rewound, got.Rewound)
			assert.True(t, equalPtr(got.CurrentNodeID, tt.wantDiff.CurrentNodeID), "CurrentNodeID")
			assert.True(t, equalPtr(got.Status, tt.wantDiff.Status), "Status")
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &State{Variables: map[string]Variable{"a.b": NewVariable("a.b", KindText, "x")}}
		s2 := &State{Variables: map[string]Variable{}}
		diff := Diff(s1, s2)
		require.NotNil(t, diff)

		bytes, err := json.Marshal(diff)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(bytes), `"a.b":null`), "got %s", bytes)
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
