package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineHCL = `
target "zlib" {
  export "library" {
    patterns = [".a"]
  }
  export "include_path" {
    dir = "include"
  }
  build { script = "echo zlib > libz.a" }
}

target "libpng" {
  dependency "zlib" {}
  options = {
    ZLIB_INCLUDE_DIR = target.zlib.include_path
    ZLIB_LIBRARY     = target.zlib.library
  }
  export "library" {
    patterns = [".a"]
  }
  build { script = "echo \"$ZLIB_LIBRARY\" > used.txt && echo png > libpng.a" }
  test  { script = "test -f libpng.a" }
}
`

// newWorkspace lays out source directories for zlib and libpng and writes
// the given declarations.
func newWorkspace(t *testing.T, decls string) string {
	t.Helper()
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "zlib", "include"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "libpng"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "zlib", "include", "zlib.h"), []byte("//"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "targets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "targets", "build.hcl"), []byte(decls), 0o644))
	return ws
}

func workspaceConfig(ws string) Config {
	return Config{
		TargetPaths: []string{filepath.Join(ws, "targets")},
		Workspace:   ws,
		Workers:     2,
		Platform:    "linux",
	}
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "minimal", cfg: Config{TargetPaths: []string{"targets"}}},
		{name: "no paths", cfg: Config{}, wantErr: "declaration path"},
		{name: "negative workers", cfg: Config{TargetPaths: []string{"t"}, Workers: -1}, wantErr: "workers"},
		{name: "bad level", cfg: Config{TargetPaths: []string{"t"}, LogLevel: "loud"}, wantErr: "log-level"},
		{name: "bad format", cfg: Config{TargetPaths: []string{"t"}, LogFormat: "xml"}, wantErr: "log-format"},
		{name: "bad cache mode", cfg: Config{TargetPaths: []string{"t"}, CacheMode: "sometimes"}, wantErr: "cache mode"},
		{name: "bad platform", cfg: Config{TargetPaths: []string{"t"}, Platform: "plan9"}, wantErr: "unsupported platform"},
		{name: "bad port", cfg: Config{TargetPaths: []string{"t"}, StatusPort: 70000}, wantErr: "status port"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "info", cfg.LogLevel)
			assert.Equal(t, "text", cfg.LogFormat)
			assert.Equal(t, "readwrite", cfg.CacheMode)
			assert.Equal(t, filepath.Join(".", "build"), cfg.BuildDir)
			assert.Equal(t, filepath.Join(".", ".buildgrid", "cache"), cfg.CacheDir)
		})
	}

	t.Run("s3 needs a bucket", func(t *testing.T) {
		cfg := Config{TargetPaths: []string{"t"}}
		cfg.S3.Endpoint = "localhost:9000"
		_, err := NewConfig(cfg)
		assert.Error(t, err)
	})
}

func TestApp_RunPropagatesProducts(t *testing.T) {
	ws := newWorkspace(t, pipelineHCL)
	a, logs, err := SetupAppTest(t, workspaceConfig(ws))
	require.NoError(t, err)

	res, err := a.Run(context.Background())
	require.NoError(t, err, logs.String())
	assert.Equal(t, 2, res.Count(nodestore.Packaged))

	used, err := os.ReadFile(filepath.Join(ws, "build", "libpng", "used.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "build", "zlib", "libz.a"), strings.TrimSpace(string(used)))

	png, ok := res.Get("libpng")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(ws, "zlib", "include"), png.Request.Options["ZLIB_INCLUDE_DIR"])
	assert.Contains(t, logs.String(), "Build finished")
}

func TestApp_RunUsesCache(t *testing.T) {
	ws := newWorkspace(t, pipelineHCL)

	first, _, err := SetupAppTest(t, workspaceConfig(ws))
	require.NoError(t, err)
	res, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.CacheHits())

	second, _, err := SetupAppTest(t, workspaceConfig(ws))
	require.NoError(t, err)
	res, err = second.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.CacheHits())

	cfg := workspaceConfig(ws)
	cfg.CacheMode = "off"
	third, _, err := SetupAppTest(t, cfg)
	require.NoError(t, err)
	res, err = third.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.CacheHits())
}

func TestApp_BuildFailureSkipsDependents(t *testing.T) {
	ws := newWorkspace(t, strings.Replace(pipelineHCL, "echo zlib > libz.a", "exit 2", 1))
	a, _, err := SetupAppTest(t, workspaceConfig(ws))
	require.NoError(t, err)

	res, err := a.Run(context.Background())
	require.Error(t, err)
	zlib, _ := res.Get("zlib")
	assert.Equal(t, nodestore.Failed, zlib.State)
	png, _ := res.Get("libpng")
	assert.True(t, png.Skipped())
}

func TestApp_Test(t *testing.T) {
	t.Run("passing hooks", func(t *testing.T) {
		ws := newWorkspace(t, pipelineHCL)
		a, _, err := SetupAppTest(t, workspaceConfig(ws))
		require.NoError(t, err)

		_, tests, err := a.Test(context.Background())
		require.NoError(t, err)
		require.Len(t, tests, 1)
		assert.Equal(t, "libpng", tests[0].Target)
		assert.NoError(t, tests[0].Err)
	})

	t.Run("failing hook", func(t *testing.T) {
		ws := newWorkspace(t, strings.Replace(pipelineHCL, "test -f libpng.a", "exit 1", 1))
		a, _, err := SetupAppTest(t, workspaceConfig(ws))
		require.NoError(t, err)

		_, tests, err := a.Test(context.Background())
		require.Error(t, err)
		require.Len(t, tests, 1)
		assert.Error(t, tests[0].Err)
	})
}

func TestNewApp_InvalidGraph(t *testing.T) {
	ws := newWorkspace(t, `
target "a" {
  dependency "b" {}
}
target "b" {
  dependency "a" {}
}
`)
	_, _, err := SetupAppTest(t, workspaceConfig(ws))
	require.Error(t, err)
	var cycle *dag.CycleError
	assert.True(t, errors.As(err, &cycle))
}

func TestApp_PlatformOverride(t *testing.T) {
	decls := pipelineHCL + `
target "winshim" {
  build { script = "true" }
}
target "app" {
  dependency "winshim" { when = platform.windows }
}
`
	for _, tc := range []struct {
		platform string
		want     string
	}{
		{platform: "linux", want: "4. app\n"},
		{platform: "windows", want: "4. app <- [winshim]\n"},
	} {
		t.Run(tc.platform, func(t *testing.T) {
			cfg := workspaceConfig(newWorkspace(t, decls))
			cfg.Platform = tc.platform
			a, _, err := SetupAppTest(t, cfg)
			require.NoError(t, err)

			var out strings.Builder
			require.NoError(t, a.WriteGraph(&out, "text"))
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestApp_WriteGraph(t *testing.T) {
	a, _, err := SetupAppTest(t, workspaceConfig(newWorkspace(t, pipelineHCL)))
	require.NoError(t, err)

	var text, dot strings.Builder
	require.NoError(t, a.WriteGraph(&text, "text"))
	assert.Equal(t, "1. zlib\n2. libpng <- [zlib]\n", text.String())

	require.NoError(t, a.WriteGraph(&dot, "dot"))
	assert.Contains(t, dot.String(), `"libpng" -> "zlib";`)

	assert.Error(t, a.WriteGraph(&text, "svg"))
}

func TestApp_StatusEndpoints(t *testing.T) {
	a, _, err := SetupAppTest(t, workspaceConfig(newWorkspace(t, pipelineHCL)))
	require.NoError(t, err)
	mux := a.statusMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/targets", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/targets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		RunID   string            `json:"run_id"`
		Targets map[string]string `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, res.RunID, report.RunID)
	assert.Equal(t, map[string]string{"zlib": "packaged", "libpng": "packaged"}, report.Targets)
}

func TestNewLogger(t *testing.T) {
	var buf SafeBuffer
	newLogger("warn", "json", &buf).Info("hidden")
	newLogger("warn", "json", &buf).Warn("shown", "target", "zlib")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"target":"zlib"`)

	var text SafeBuffer
	newLogger("debug", "text", &text).Debug("Build: configured.", "target", "zlib")
	assert.Contains(t, text.String(), "Build: configured.")
	assert.Contains(t, text.String(), "target=zlib")
}
