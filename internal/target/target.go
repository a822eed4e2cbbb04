package target

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/platform"
)

// SourceRef locates a target's sources. Revision is opaque to the engine.
type SourceRef struct {
	Location string
	Revision string
}

// Dependency is a declared edge to another target, present only on platforms
// where When holds.
type Dependency struct {
	Target string
	When   platform.Condition
}

// Hook is a script attached to a lifecycle step.
type Hook struct {
	Script string
}

// PackageRule selects build outputs to export as one kind of product.
type PackageRule struct {
	Kind ProductKind
	// Dir is relative to the build directory when FromBuildDir is set,
	// otherwise to the source directory.
	Dir          string
	FromBuildDir bool
	// Patterns are file-name suffixes (".a") or exact file names ("libz.a").
	// Only used by Library rules.
	Patterns []string
	// Names are link-time names of SystemLibrary rules.
	Names []string
	When  platform.Condition
}

func (r PackageRule) String() string {
	switch r.Kind {
	case SystemLibrary:
		return fmt.Sprintf("%s %v", r.Kind, r.Names)
	case Library:
		return fmt.Sprintf("%s %s %v", r.Kind, r.Dir, r.Patterns)
	default:
		return fmt.Sprintf("%s %s", r.Kind, r.Dir)
	}
}

// ConfigureContext is handed to Target.Configure. Product lookups only
// succeed for dependencies that are already packaged.
type ConfigureContext interface {
	ProductLookup
	Platform() platform.Facts
	SourceDir() string
	BuildDir() string
}

// Packager collects the products of one target during its package step.
type Packager interface {
	Platform() platform.Facts
	SourceDir() string
	BuildDir() string
	Export(rule PackageRule) error
	ExportLibraries(dir string, patterns ...string) error
	ExportIncludes(dir string, fromBuildDir bool) error
	ExportSystemLibraries(names ...string) error
}

// Target is a buildable unit. Implementations must be safe to call from
// multiple goroutines and must not change their answers during a run.
type Target interface {
	Name() string
	Source() SourceRef
	// Dependencies returns the edges that hold on f, in declaration order.
	Dependencies(f platform.Facts) []Dependency
	// Options returns the statically declared options, checked before the run.
	Options() Options
	// Exports returns the statically declared package rules active on f.
	Exports(f platform.Facts) []PackageRule
	Configure(ctx ConfigureContext) (Options, error)
	Package(p Packager) error
	Test() *Hook
}

// Builds is implemented by targets that carry their own build script.
type Builds interface {
	BuildHook() *Hook
}

// DependencyNames returns the distinct dependency names in declaration order.
func DependencyNames(deps []Dependency) []string {
	names := make([]string, 0, len(deps))
	for _, d := range deps {
		if !slices.Contains(names, d.Target) {
			names = append(names, d.Target)
		}
	}
	return names
}
