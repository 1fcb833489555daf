package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newState := func(id string) *domain.State {
		vars := map[string]domain.Variable{
			"mc.traits": domain.NewVariable("mc.traits", domain.KindMultiSelect, []string{"brave"}),
		}
		s := domain.NewState(id, "main", "start", vars)
		s.Log(domain.SeverityInfo, "start", "Flow started")
		return s.PushSnapshot()
	}

	t.Run("Save and Load", func(t *testing.T) {
		state := newState(sessionID)

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, state.Variables, loaded.Variables)
		assert.Equal(t, state.Console, loaded.Console)
		assert.True(t, loaded.CanStepBack(), "the undo stack is part of the live state")
	})

	t.Run("Isolation", func(t *testing.T) {
		state := newState(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, state))

		// Mutating the caller's copy must not leak into the store.
		state.Variables["mc.traits"] = domain.NewVariable("mc.traits", domain.KindMultiSelect, []string{"mutated"})

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"brave"}, loaded.Variables["mc.traits"].Value)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, newState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newState(id1))
		_ = store.Save(ctx, id2, newState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunGraphLoaderContract verifies that a GraphLoader serves exactly the
// graphs in want, and reports unknown ids with domain.ErrGraphNotFound.
func RunGraphLoaderContract(t *testing.T, loader GraphLoader, want map[string]*domain.Graph) {
	ctx := context.Background()

	t.Run("GetGraph", func(t *testing.T) {
		for id, expected := range want {
			g, err := loader.GetGraph(ctx, id)
			require.NoError(t, err, "GetGraph(%q)", id)
			assert.Equal(t, expected.ID, g.ID)
			assert.Equal(t, len(expected.Nodes), len(g.Nodes))
			assert.Equal(t, expected.Connections, g.Connections)
		}
	})

	t.Run("Unknown graph", func(t *testing.T) {
		_, err := loader.GetGraph(ctx, "no-such-graph")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("ListGraphs", func(t *testing.T) {
		ids, err := loader.ListGraphs(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, len(want))
		assert.IsNonDecreasing(t, ids, "ids are sorted")
		for id := range want {
			assert.Contains(t, ids, id)
		}
	})
}
