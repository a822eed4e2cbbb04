package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, "zlib"))

	state, err := s.GetState(ctx, "zlib")
	require.NoError(t, err)
	assert.Equal(t, nodestore.Pending, state)

	require.NoError(t, s.Transition(ctx, "zlib", nodestore.Pending, nodestore.Resolving))
	require.NoError(t, s.Transition(ctx, "zlib", nodestore.Resolving, nodestore.Configuring))

	err = s.Transition(ctx, "zlib", nodestore.Resolving, nodestore.Configuring)
	assert.ErrorIs(t, err, nodestore.ErrInvalidTransition, "stale expected state")

	err = s.Transition(ctx, "zlib", nodestore.Configuring, nodestore.Resolving)
	assert.ErrorIs(t, err, nodestore.ErrInvalidTransition, "forbidden move")

	require.NoError(t, s.Transition(ctx, "zlib", nodestore.Configuring, nodestore.Packaged))
	state, err = s.GetState(ctx, "zlib")
	require.NoError(t, err)
	assert.Equal(t, nodestore.Packaged, state)
}

func TestFail(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, "zlib", "libpng"))

	cause := errors.New("compiler exploded")
	require.NoError(t, s.Fail(ctx, "zlib", cause))

	got, err := s.GetError(ctx, "zlib")
	require.NoError(t, err)
	assert.Equal(t, cause, got)
	assert.ErrorIs(t, s.Fail(ctx, "zlib", cause), nodestore.ErrInvalidTransition)

	got, err = s.GetError(ctx, "libpng")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, map[string]nodestore.State{
		"zlib":   nodestore.Failed,
		"libpng": nodestore.Pending,
	}, s.Snapshot(ctx))
}

func TestUnknownAndDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, "zlib"))

	assert.ErrorIs(t, s.Init(ctx, "zlib"), target.ErrDuplicateTarget)
	_, err := s.GetState(ctx, "ghost")
	assert.ErrorIs(t, err, target.ErrUnknownTarget)
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	names := make([]string, numGoroutines)
	for i := range names {
		names[i] = fmt.Sprintf("t%d", i)
	}
	require.NoError(t, s.Init(ctx, names...))

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, s.Transition(ctx, name, nodestore.Pending, nodestore.Resolving))
			assert.NoError(t, s.Transition(ctx, name, nodestore.Resolving, nodestore.Configuring))
			assert.NoError(t, s.Transition(ctx, name, nodestore.Configuring, nodestore.Building))
			assert.NoError(t, s.Transition(ctx, name, nodestore.Building, nodestore.Packaged))
		}(names[i])
	}
	wg.Wait()

	snap := s.Snapshot(ctx)
	assert.Len(t, snap, numGoroutines)
	for _, name := range names {
		assert.Equal(t, nodestore.Packaged, snap[name], "mismatched state for %s", name)
	}
}
