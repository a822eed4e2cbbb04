package dag

import (
	"testing"

	"github.com/specialistvlad/buildgrid/internal/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decl(name string, deps ...string) *target.Declared {
	d := &target.Declared{TargetName: name}
	for _, dep := range deps {
		d.Deps = append(d.Deps, target.Dependency{Target: dep})
	}
	return d
}

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	require.NoError(t, g.AddNode(decl("a")))
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)

	err := g.AddNode(decl("a"))
	assert.ErrorIs(t, err, target.ErrDuplicateTarget)
	assert.Len(t, g.nodes, 1)

	require.NoError(t, g.AddNode(decl("b")))
	assert.Equal(t, []string{"a", "b"}, g.order)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddNode(decl("a")))
		require.NoError(t, g.AddNode(decl("b")))

		require.NoError(t, g.AddEdge("a", "b")) // b depends on a
		require.NoError(t, g.AddEdge("a", "b")) // idempotent

		deps, err := g.Dependencies("b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, deps)
		dependents, err := g.Dependents("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddNode(decl("a")))

		err := g.AddEdge("zlib", "a")
		assert.ErrorIs(t, err, target.ErrUnknownDependency)
		assert.ErrorContains(t, err, `"zlib"`)

		err = g.AddEdge("a", "dne")
		assert.ErrorIs(t, err, target.ErrUnknownTarget)

		err = g.AddEdge("a", "a")
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "a"}, cycle.Path)
	})
}

func TestTopologicalOrder(t *testing.T) {
	build := func(t *testing.T, targets ...*target.Declared) *Graph {
		t.Helper()
		g := New()
		for _, d := range targets {
			require.NoError(t, g.AddNode(d))
		}
		for _, d := range targets {
			for _, dep := range d.Deps {
				require.NoError(t, g.AddEdge(dep.Target, d.TargetName))
			}
		}
		return g
	}

	t.Run("empty graph", func(t *testing.T) {
		order, err := New().TopologicalOrder()
		require.NoError(t, err)
		assert.Empty(t, order)
	})

	t.Run("independent targets keep declaration order", func(t *testing.T) {
		g := build(t, decl("c"), decl("a"), decl("b"))
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, order)
	})

	t.Run("dependencies come first", func(t *testing.T) {
		g := build(t,
			decl("alphagl", "recpp", "libpng", "zlib"),
			decl("recpp"),
			decl("libpng", "zlib"),
			decl("zlib"),
		)
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"recpp", "zlib", "libpng", "alphagl"}, order)
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := build(t, decl("a", "b"), decl("b", "a"))
		_, err := g.TopologicalOrder()
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
		assert.EqualError(t, err, "dependency cycle detected: a -> b -> a")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := build(t,
			decl("a"), decl("b", "a"),
			decl("x", "y"), decl("y", "z"), decl("z", "y"),
		)
		err := g.DetectCycles()
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"y", "z", "y"}, cycle.Path)
	})
}
