package session

import (
	"context"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/inmemorystore"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan(t *testing.T) *dag.Plan {
	t.Helper()
	plan, err := dag.Build(context.Background(), []target.Target{
		&target.Declared{TargetName: "zlib"},
		&target.Declared{TargetName: "libpng", Deps: []target.Dependency{{Target: "zlib"}}},
	}, platform.Facts{OS: "linux"})
	require.NoError(t, err)
	return plan
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, testPlan(t))
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, map[string]nodestore.State{
		"zlib":   nodestore.Pending,
		"libpng": nodestore.Pending,
	}, s.Snapshot(ctx))
	assert.False(t, s.Registry.Sealed("zlib"))

	other, err := New(ctx, testPlan(t))
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestNew_Options(t *testing.T) {
	store := inmemorystore.New()
	s, err := New(context.Background(), testPlan(t), WithID("fixed"), WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, "fixed", s.ID)
	assert.Same(t, store, s.States)

	_, err = New(context.Background(), nil)
	assert.Error(t, err)
}
