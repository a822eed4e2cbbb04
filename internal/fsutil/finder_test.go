package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	for _, name := range []string{"b.hcl", "a.hcl", "sub/c.hcl", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "sub", "c.hcl"),
	}, files)

	_, err = FindFilesByExtension(root, "")
	assert.Error(t, err)
	_, err = FindFilesByExtension(filepath.Join(root, "missing"), ".hcl")
	assert.Error(t, err)
}

func TestMatchFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"lib/libz.a":          {},
		"lib/zlibstatic.lib":  {},
		"lib/libz.so":         {},
		"lib/nested/libpng.a": {},
		"include/zlib.h":      {},
		"lib/libz.a.manifest": {},
	}

	testCases := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"suffixes", []string{".lib", ".a"}, []string{"lib/libz.a", "lib/nested/libpng.a", "lib/zlibstatic.lib"}},
		{"explicit names", []string{"zlibstatic.lib", "libz.a"}, []string{"lib/libz.a", "lib/zlibstatic.lib"}},
		{"no match", []string{".dll"}, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MatchFiles(fsys, "lib", tc.patterns)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := MatchFiles(fsys, "bin", []string{".a"})
	assert.Error(t, err)
}

func TestCleanRel(t *testing.T) {
	assert.Equal(t, ".", CleanRel(""))
	assert.Equal(t, ".", CleanRel("."))
	assert.Equal(t, "lib", CleanRel("lib/"))
	assert.Equal(t, "include", CleanRel("/include"))
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, IsDir(dir))
	assert.False(t, IsDir(filepath.Join(dir, "nope")))
}
