// Package source materializes a target's sources before it is configured.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/fsutil"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// ErrUnsupportedSource is returned for source locations a fetcher cannot serve.
var ErrUnsupportedSource = errors.New("unsupported source location")

// Fetcher returns the local directory holding the sources of one target.
type Fetcher interface {
	Fetch(ctx context.Context, name string, ref target.SourceRef) (string, error)
}

// LocalFetcher serves sources that already exist on disk. Relative locations
// are resolved against Root. It performs no version-control operations; the
// revision is recorded only for cache keys and logs.
type LocalFetcher struct {
	Root string
}

var _ Fetcher = LocalFetcher{}

func (f LocalFetcher) Fetch(ctx context.Context, name string, ref target.SourceRef) (string, error) {
	loc := ref.Location
	if loc == "" {
		loc = name
	}
	if isRemote(loc) {
		return "", fmt.Errorf("%w: %q of target %q needs a remote fetcher", ErrUnsupportedSource, loc, name)
	}
	dir := loc
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(f.Root, dir)
	}
	dir = filepath.Clean(dir)
	if !fsutil.IsDir(dir) {
		return "", fmt.Errorf("source directory of target %q not found: %s", name, dir)
	}
	ctxlog.FromContext(ctx).Debug("Using local sources.", "dir", dir, "revision", ref.Revision)
	return dir, nil
}

func isRemote(loc string) bool {
	return strings.Contains(loc, "://") || strings.HasPrefix(loc, "git@")
}
