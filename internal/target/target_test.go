package target

import (
	"errors"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(string, ProductKind) ([]string, error)

func (f lookupFunc) Products(t string, k ProductKind) ([]string, error) { return f(t, k) }

func TestParseProductKind(t *testing.T) {
	for _, name := range ProductKindNames() {
		k, err := ParseProductKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}
	_, err := ParseProductKind("binary")
	assert.Error(t, err)
}

func TestOptions_Immutable(t *testing.T) {
	base := NewOptions().WithLiteral("BUILD_SHARED_LIB", "OFF")
	derived := base.WithRef("ZLIB_INCLUDE_DIR", "zlib", IncludePath)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, derived.Len())
	_, ok := base.Get("ZLIB_INCLUDE_DIR")
	assert.False(t, ok)
	assert.Equal(t, []ProductKey{{Target: "zlib", Kind: IncludePath}}, derived.Refs())
}

func TestOptions_Add(t *testing.T) {
	t.Run("identical repeat collapses", func(t *testing.T) {
		o, err := NewOptions().Add("GLFW_BUILD_EXAMPLES", Literal("NO"))
		require.NoError(t, err)
		o, err = o.Add("GLFW_BUILD_EXAMPLES", Literal("NO"))
		require.NoError(t, err)
		assert.Equal(t, 1, o.Len())
	})
	t.Run("conflicting repeat fails", func(t *testing.T) {
		o, err := NewOptions().Add("GLFW_BUILD_EXAMPLES", Literal("NO"))
		require.NoError(t, err)
		_, err = o.Add("GLFW_BUILD_EXAMPLES", Literal("YES"))
		assert.ErrorIs(t, err, ErrConflictingOption)
	})
	t.Run("merge", func(t *testing.T) {
		a := NewOptions().WithLiteral("A", "1")
		b := NewOptions().WithLiteral("B", "2").WithLiteral("A", "1")
		m, err := a.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, m.Names())
		assert.Equal(t, 1, a.Len())
	})
}

func TestOptions_Resolve(t *testing.T) {
	lookup := lookupFunc(func(name string, k ProductKind) ([]string, error) {
		if name == "zlib" && k == Library {
			return []string{"/b/zlib/libz.a", "/b/zlib/libzstatic.a"}, nil
		}
		return nil, ErrMissingProduct
	})
	opts := NewOptions().
		WithLiteral("BUILD_SHARED_LIB", "OFF").
		WithRef("ZLIB_LIBRARY", "zlib", Library)

	got, err := opts.Resolve(lookup)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"BUILD_SHARED_LIB": "OFF",
		"ZLIB_LIBRARY":     "/b/zlib/libz.a;/b/zlib/libzstatic.a",
	}, got)

	_, err = opts.WithRef("ZLIB_INCLUDE_DIR", "zlib", IncludePath).Resolve(lookup)
	assert.ErrorIs(t, err, ErrMissingProduct)
}

func TestDeclared_PlatformFiltering(t *testing.T) {
	d := &Declared{
		TargetName: "glfw",
		Deps: []Dependency{
			{Target: "x11"},
			{Target: "win32_shim", When: platform.Flag("windows")},
		},
		Rules: []PackageRule{
			{Kind: Library, Dir: "lib", Patterns: []string{".a"}},
			{Kind: SystemLibrary, Names: []string{"dl"}, When: platform.Flag("linux")},
		},
	}
	linux := platform.Facts{OS: "linux"}
	windows := platform.Facts{OS: "windows"}

	assert.Equal(t, []string{"x11"}, DependencyNames(d.Dependencies(linux)))
	assert.Equal(t, []string{"x11", "win32_shim"}, DependencyNames(d.Dependencies(windows)))
	assert.Len(t, d.Exports(linux), 2)
	assert.Len(t, d.Exports(windows), 1)
}

func TestDeclared_WithDependency(t *testing.T) {
	d := &Declared{TargetName: "libpng"}
	withZlib := d.WithDependency("zlib")

	assert.Empty(t, d.Deps)
	assert.Equal(t, []string{"zlib"}, DependencyNames(withZlib.Deps))
	assert.Same(t, withZlib, withZlib.WithDependency("zlib"))
}

func TestResolve(t *testing.T) {
	a := &Declared{TargetName: "zlib", SourceRef: SourceRef{Location: "a"}}
	b := &Declared{TargetName: "zlib", SourceRef: SourceRef{Location: "b"}}

	_, err := Resolve([]Target{a, b}, nil)
	assert.True(t, errors.Is(err, ErrDuplicateTarget))

	b.Override = true
	var overridden []string
	got, err := Resolve([]Target{a, &Declared{TargetName: "png"}, b}, func(n string) { overridden = append(overridden, n) })
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Source().Location)
	assert.Equal(t, []string{"zlib"}, overridden)
}
