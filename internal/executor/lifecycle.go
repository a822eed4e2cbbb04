package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/cache"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/session"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// runTarget drives one target from Pending to Packaged, filling res as it
// goes. upstream returns the input hash of a packaged dependency. Any
// returned error is a *TargetError.
func (e *Executor) runTarget(ctx context.Context, sess *session.Session, res *TargetResult, upstream func(string) string) error {
	logger := ctxlog.FromContext(ctx)
	name := res.Name
	facts := sess.Plan.Facts()
	t, ok := sess.Plan.Target(name)
	if !ok {
		return &TargetError{Target: name, Phase: PhaseSchedule, Err: fmt.Errorf("%w: %q", target.ErrUnknownTarget, name)}
	}
	fail := func(phase Phase, err error) error {
		return &TargetError{Target: name, Phase: phase, Err: err}
	}
	move := func(from, to nodestore.State) error {
		logger.Debug("State transition.", "from", from, "to", to)
		return sess.States.Transition(ctx, name, from, to)
	}

	// Resolving
	if err := move(nodestore.Pending, nodestore.Resolving); err != nil {
		return fail(PhaseSchedule, err)
	}
	deps := target.DependencyNames(t.Dependencies(facts))
	planned := sess.Plan.Dependencies(name)
	if !slices.Equal(deps, planned) {
		return fail(PhaseResolve, fmt.Errorf("%w: planned %v, now %v", ErrInconsistentDependencies, planned, deps))
	}
	srcDir, err := e.fetcher.Fetch(ctx, name, t.Source())
	if err != nil {
		return fail(PhaseResolve, err)
	}
	buildDir := filepath.Join(e.buildRoot, name)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fail(PhaseResolve, fmt.Errorf("creating build directory: %w", err))
	}

	// Configuring
	for _, dep := range planned {
		if !sess.Registry.Sealed(dep) {
			return fail(PhaseConfigure, fmt.Errorf("%w: dependency %q", target.ErrOrderingViolation, dep))
		}
	}
	if err := move(nodestore.Resolving, nodestore.Configuring); err != nil {
		return fail(PhaseSchedule, err)
	}
	logger.Info("Configuring target.", "phase", PhaseConfigure)
	cctx := &configureContext{
		lookup:    sess.Registry,
		deps:      planned,
		facts:     facts,
		sourceDir: srcDir,
		buildDir:  buildDir,
	}
	opts, err := t.Configure(cctx)
	if err != nil {
		return fail(PhaseConfigure, err)
	}
	resolved, err := opts.Resolve(cctx)
	if err != nil {
		return fail(PhaseConfigure, err)
	}
	req := &BuildRequest{
		Target:    name,
		SourceDir: srcDir,
		BuildDir:  buildDir,
		Options:   resolved,
		Platform:  facts,
	}
	if b, ok := t.(target.Builds); ok && b.BuildHook() != nil {
		req.Script = b.BuildHook().Script
	}
	res.Request = req
	depHashes := make(map[string]string, len(planned))
	for _, dep := range planned {
		depHashes[dep] = upstream(dep)
	}
	res.Hash = cache.InputHash(cache.Inputs{
		Name:     name,
		Source:   t.Source(),
		Platform: facts.String(),
		Script:   req.Script,
		Options:  resolved,
		Upstream: depHashes,
	})

	if set, hit := e.probeCache(ctx, name, res.Hash); hit {
		if err := sess.Registry.Publish(name, set); err != nil {
			return fail(PhasePackage, err)
		}
		if err := move(nodestore.Configuring, nodestore.Packaged); err != nil {
			return fail(PhaseSchedule, err)
		}
		res.CacheHit = true
		res.Products = set
		logger.Info("Restored target from cache.", "hash", res.Hash)
		return nil
	}

	// Building
	if err := move(nodestore.Configuring, nodestore.Building); err != nil {
		return fail(PhaseSchedule, err)
	}
	logger.Info("Building target.", "phase", PhaseBuild)
	if err := e.builder.Build(ctx, *req); err != nil {
		return fail(PhaseBuild, fmt.Errorf("%w: %w", ErrBuildFailed, err))
	}

	// Packaging
	p := &packager{
		registry:  sess.Registry,
		target:    name,
		facts:     facts,
		sourceDir: srcDir,
		buildDir:  buildDir,
	}
	if err := t.Package(p); err != nil {
		return fail(PhasePackage, err)
	}
	if err := sess.Registry.Publish(name, nil); err != nil {
		return fail(PhasePackage, err)
	}
	if err := move(nodestore.Building, nodestore.Packaged); err != nil {
		return fail(PhaseSchedule, err)
	}
	res.Products, _ = sess.Registry.All(name)

	snap := cache.NewSnapshot(name, res.Hash, sess.ID, res.Products)
	if err := e.cache.Put(ctx, name, res.Hash, snap); err != nil {
		logger.Warn("Could not write cache entry.", "error", err)
	}
	return nil
}

// probeCache returns the recorded products of (name, hash) when every
// recorded file still exists. Lookup errors are treated as misses.
func (e *Executor) probeCache(ctx context.Context, name, hash string) (target.ProductSet, bool) {
	logger := ctxlog.FromContext(ctx)
	snap, ok, err := e.cache.Get(ctx, name, hash)
	if err != nil {
		logger.Warn("Cache lookup failed, building.", "error", err)
		return nil, false
	}
	if !ok {
		logger.Debug("Cache miss.", "hash", hash)
		return nil, false
	}
	set, err := snap.ProductSet()
	if err != nil {
		logger.Warn("Ignoring unreadable cache entry.", "error", err)
		return nil, false
	}
	for _, kind := range []target.ProductKind{target.IncludePath, target.Library} {
		for _, p := range set[kind] {
			if _, err := os.Stat(p); err != nil {
				logger.Info("Cached product is gone, rebuilding.", "path", p)
				return nil, false
			}
		}
	}
	return set, true
}
