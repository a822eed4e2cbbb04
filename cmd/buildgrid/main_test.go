package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_ExitCodes(t *testing.T) {
	t.Parallel()

	valid := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(valid, "zlib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(valid, "build.hcl"), []byte(`
target "zlib" {
  build { script = "true" }
}
`), 0o600))

	invalid := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(invalid, "main.hcl"), []byte(`
target "zlib" {
  build {
`), 0o600))

	tests := []struct {
		name      string
		args      []string
		wantCode  int
		wantOut   string
		wantError string
	}{
		{name: "help", args: []string{"--help"}, wantCode: 0, wantOut: "Usage:"},
		{name: "graph", args: []string{"graph", valid}, wantCode: 0, wantOut: "1. zlib"},
		{name: "build", args: []string{"build", "--workspace", valid, "--cache-mode", "off", valid}, wantCode: 0, wantOut: "1 packaged"},
		{name: "unknown flag", args: []string{"build", "--this-is-not-a-valid-flag"}, wantCode: 2, wantError: "unknown flag"},
		{name: "syntax error", args: []string{"graph", invalid}, wantCode: 1, wantError: "failed to parse"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, &stdout, &stderr)

			require.Equal(t, tc.wantCode, code, stderr.String())
			if tc.wantOut != "" {
				require.Contains(t, stdout.String(), tc.wantOut)
			}
			if tc.wantError != "" {
				require.Contains(t, stderr.String(), tc.wantError)
			}
		})
	}
}
