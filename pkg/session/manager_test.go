package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/storyflow/pkg/adapters/memory"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func (s SlowStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, state)
}

func TestManager_Create(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	state, err := mgr.Create(ctx, func(id string) (*domain.State, error) {
		return domain.NewState("", "main", "start", nil), nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, state.SessionID)

	loaded, err := mgr.Load(ctx, state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "main", loaded.GraphID)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{state.SessionID}, ids)
}

func TestManager_CreateFailure(t *testing.T) {
	mgr := session.NewManager(memory.NewStore(), session.WithIDGenerator(func() string { return "fixed" }))
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := mgr.Create(ctx, func(string) (*domain.State, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = mgr.Load(ctx, "fixed")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = mgr.Create(ctx, func(id string) (*domain.State, error) {
		return domain.NewState(id, "main", "start", nil), nil
	})
	require.NoError(t, err)

	_, err = mgr.Create(ctx, func(id string) (*domain.State, error) {
		return domain.NewState(id, "main", "start", nil), nil
	})
	assert.ErrorContains(t, err, "already exists")
}

func TestManager_UpdateSerialises(t *testing.T) {
	mgr := session.NewManager(SlowStore{memory.NewStore()})
	ctx := context.Background()
	id := "race-test"
	require.NoError(t, mgr.Save(ctx, id, domain.NewState(id, "main", "start", nil)))

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Update(ctx, id, func(s *domain.State) (*domain.State, error) {
				next := s.Clone()
				next.StepCount++
				return next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, state.StepCount, "read-modify-write lost an update")
}

func TestManager_UpdateErrors(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := mgr.Update(ctx, "ghost", func(s *domain.State) (*domain.State, error) { return s, nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, mgr.Save(ctx, "s1", domain.NewState("s1", "main", "start", nil)))
	_, err = mgr.Update(ctx, "s1", func(s *domain.State) (*domain.State, error) {
		next := s.Clone()
		next.CurrentNodeID = "elsewhere"
		return next, fmt.Errorf("rejected")
	})
	assert.Error(t, err)

	state, err := mgr.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "start", state.CurrentNodeID, "failed update must not be stored")

	_, err = mgr.Update(ctx, "s1", func(*domain.State) (*domain.State, error) { return nil, nil })
	assert.ErrorIs(t, err, domain.ErrNilState)
}

func TestManager_Delete(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "s1", domain.NewState("s1", "main", "start", nil)))
	require.NoError(t, mgr.Delete(ctx, "s1"))
	assert.ErrorIs(t, mgr.Delete(ctx, "s1"), domain.ErrSessionNotFound)
}

func TestManager_CancelledContext(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mgr.Save(ctx, "s1", domain.NewState("s1", "main", "start", nil))
	assert.ErrorIs(t, err, context.Canceled)
}
