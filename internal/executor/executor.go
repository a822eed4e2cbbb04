// Package executor is the Build Orchestrator. It walks a session's plan with
// a bounded worker pool and drives every target through
// Pending → Resolving → Configuring → (cache hit | Building) → Packaged,
// injecting the products of already packaged dependencies into each
// target's configuration.
//
// A target becomes ready only when the last of its dependencies is packaged;
// the per-target counter that tracks this is the only synchronization
// between workers. A failure stops new targets from starting while targets
// already in flight run to completion.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/specialistvlad/buildgrid/internal/cache"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/source"
)

var (
	// ErrInconsistentDependencies is returned when a target reports different
	// dependencies at build time than it did when the graph was built.
	ErrInconsistentDependencies = errors.New("inconsistent dependencies")
	// ErrBuildFailed wraps every error returned by a Builder.
	ErrBuildFailed = errors.New("build failed")
	// ErrSkipped marks targets that never started because the run stopped.
	ErrSkipped = errors.New("skipped")
)

// Phase names the lifecycle step a target failed in.
type Phase string

const (
	PhaseResolve   Phase = "resolve"
	PhaseConfigure Phase = "configure"
	PhaseBuild     Phase = "build"
	PhasePackage   Phase = "package"
	PhaseTest      Phase = "test"
	PhaseSchedule  Phase = "schedule"
)

// TargetError reports the target and phase a run failed in.
type TargetError struct {
	Target string
	Phase  Phase
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %q failed during %s: %v", e.Target, e.Phase, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// BuildRequest is everything a Builder needs to build one target.
type BuildRequest struct {
	Target    string
	SourceDir string
	BuildDir  string
	// Options are the configuration options with every product reference
	// already resolved.
	Options  map[string]string
	Script   string
	Platform platform.Facts
}

// Builder performs the native build of one target.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) error
}

// Tester runs a target's test hook.
type Tester interface {
	Test(ctx context.Context, req BuildRequest) error
}

// Config configures an Executor.
type Config struct {
	// Workers bounds the number of targets processed at once. Zero means
	// runtime.NumCPU().
	Workers int
	Fetcher source.Fetcher
	Builder Builder
	Tester  Tester
	// Cache is consulted after configure and written after package. A nil
	// Cache disables caching.
	Cache cache.Store
	// BuildRoot holds one build directory per target.
	BuildRoot string
}

// Executor runs plans. It holds no per-run state and may run several
// sessions in sequence.
type Executor struct {
	workers   int
	fetcher   source.Fetcher
	builder   Builder
	tester    Tester
	cache     cache.Store
	buildRoot string
}

// New validates cfg and returns an Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid worker count %d: must be zero or positive", cfg.Workers)
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("executor requires a source fetcher")
	}
	if cfg.Builder == nil {
		return nil, errors.New("executor requires a builder")
	}
	if cfg.BuildRoot == "" {
		return nil, errors.New("executor requires a build root")
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	store := cfg.Cache
	if store == nil {
		store = cache.WithMode(nil, cache.ModeOff)
	}
	return &Executor{
		workers:   workers,
		fetcher:   cfg.Fetcher,
		builder:   cfg.Builder,
		tester:    cfg.Tester,
		cache:     store,
		buildRoot: cfg.BuildRoot,
	}, nil
}

// Workers returns the effective worker count.
func (e *Executor) Workers() int { return e.workers }
