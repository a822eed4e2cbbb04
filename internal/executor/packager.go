package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/buildgrid/internal/fsutil"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/registry"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// packager stages the products of one target in the registry. Staged
// products stay invisible until the orchestrator publishes the target.
type packager struct {
	registry  *registry.Registry
	target    string
	facts     platform.Facts
	sourceDir string
	buildDir  string
}

var _ target.Packager = (*packager)(nil)

func (p *packager) Platform() platform.Facts { return p.facts }
func (p *packager) SourceDir() string        { return p.sourceDir }
func (p *packager) BuildDir() string         { return p.buildDir }

func (p *packager) root(fromBuildDir bool) string {
	if fromBuildDir {
		return p.buildDir
	}
	return p.sourceDir
}

func (p *packager) Export(rule target.PackageRule) error {
	switch rule.Kind {
	case target.IncludePath:
		return p.ExportIncludes(rule.Dir, rule.FromBuildDir)
	case target.Library:
		return p.exportLibraries(p.root(rule.FromBuildDir), rule.Dir, rule.Patterns)
	case target.SystemLibrary:
		return p.ExportSystemLibraries(rule.Names...)
	default:
		return fmt.Errorf("unsupported product kind %s", rule.Kind)
	}
}

// ExportLibraries exports the files under dir of the build directory that
// match patterns.
func (p *packager) ExportLibraries(dir string, patterns ...string) error {
	return p.exportLibraries(p.buildDir, dir, patterns)
}

func (p *packager) exportLibraries(root, dir string, patterns []string) error {
	if len(patterns) == 0 {
		return errors.New("library export needs at least one pattern")
	}
	matches, err := fsutil.MatchFiles(os.DirFS(root), fsutil.CleanRel(dir), patterns)
	if err != nil {
		return fmt.Errorf("%w: %s.%s: %w", target.ErrMissingProduct, p.target, target.Library, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: %s.%s: no file under %s matches %v",
			target.ErrMissingProduct, p.target, target.Library, filepath.Join(root, dir), patterns)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return p.registry.Put(p.target, target.Library, paths)
}

// ExportIncludes exports dir as the include path, rooted in the build
// directory when fromBuildDir is set and in the source directory otherwise.
func (p *packager) ExportIncludes(dir string, fromBuildDir bool) error {
	path := filepath.Join(p.root(fromBuildDir), dir)
	if !fsutil.IsDir(path) {
		return fmt.Errorf("%w: %s.%s: directory %s does not exist",
			target.ErrMissingProduct, p.target, target.IncludePath, path)
	}
	return p.registry.Put(p.target, target.IncludePath, []string{path})
}

// ExportSystemLibraries exports link-time library names.
func (p *packager) ExportSystemLibraries(names ...string) error {
	if len(names) == 0 {
		return errors.New("system library export needs at least one name")
	}
	return p.registry.Put(p.target, target.SystemLibrary, names)
}
