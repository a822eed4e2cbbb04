package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, script string) executor.BuildRequest {
	t.Helper()
	return executor.BuildRequest{
		Target:    "libpng",
		SourceDir: "/src/libpng",
		BuildDir:  t.TempDir(),
		Options: map[string]string{
			"ZLIB_LIBRARY":     "/b/zlib/libz.a",
			"BUILD_SHARED_LIB": "OFF",
			"not-an-ident":     "x",
		},
		Script:   script,
		Platform: platform.Facts{OS: "linux", Arch: "amd64"},
	}
}

func TestRunner_Environment(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out}
	req := request(t, `echo "$TARGET|$SOURCE_DIR|$ZLIB_LIBRARY|$BUILDGRID_OS"
echo "$CMAKE_ARGS"`)

	require.NoError(t, r.Build(context.Background(), req))
	assert.Equal(t,
		"libpng|/src/libpng|/b/zlib/libz.a|linux\n"+
			"-DBUILD_SHARED_LIB=OFF -DZLIB_LIBRARY=/b/zlib/libz.a -Dnot-an-ident=x\n",
		out.String())
}

func TestRunner_RunsInBuildDir(t *testing.T) {
	r := &Runner{}
	req := request(t, `echo built > marker.txt`)
	require.NoError(t, r.Build(context.Background(), req))

	data, err := os.ReadFile(filepath.Join(req.BuildDir, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "built\n", string(data))
}

func TestRunner_Failures(t *testing.T) {
	r := &Runner{}

	err := r.Test(context.Background(), request(t, "exit 3"))
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Code)
	assert.Equal(t, "test", se.Hook)

	err = r.Build(context.Background(), request(t, "if then fi"))
	assert.ErrorContains(t, err, "failed to parse build script")
}

func TestRunner_EmptyScript(t *testing.T) {
	assert.NoError(t, New(nil).Build(context.Background(), request(t, "  ")))
}
