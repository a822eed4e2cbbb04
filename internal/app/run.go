package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/cache"
	"github.com/specialistvlad/buildgrid/internal/cache/filecache"
	"github.com/specialistvlad/buildgrid/internal/cache/s3cache"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"github.com/specialistvlad/buildgrid/internal/session"
	"github.com/specialistvlad/buildgrid/internal/shell"
	"github.com/specialistvlad/buildgrid/internal/source"
)

// Run builds every target of the plan. The result is returned even when the
// run fails so callers can report per-target outcomes.
func (a *App) Run(ctx context.Context) (*executor.RunResult, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	exec, err := a.newExecutor(ctx)
	if err != nil {
		return nil, err
	}
	res, _, err := a.build(ctx, exec)
	return res, err
}

func (a *App) build(ctx context.Context, exec *executor.Executor) (*executor.RunResult, *session.Session, error) {
	sess, err := session.New(ctx, a.plan)
	if err != nil {
		return nil, nil, err
	}
	a.current.Store(sess)

	if a.config.StatusPort > 0 {
		a.startStatusServer(ctx, a.config.StatusPort)
		defer func() { _ = a.closeStatusServer(ctx) }()
	}

	if a.plan.Len() == 0 {
		a.logger.Warn("No targets declared, nothing to build.")
		return &executor.RunResult{RunID: sess.ID}, sess, nil
	}

	a.logger.Info("🚀 Starting build.", "targets", a.plan.Len(), "workers", exec.Workers(), "platform", a.facts.String())
	res, err := exec.Run(ctx, sess)
	if err != nil {
		return res, sess, fmt.Errorf("build failed: %w", err)
	}
	a.logger.Info("🏁 Build finished.", "duration", res.Duration, "cache_hits", res.CacheHits())
	return res, sess, nil
}

// Test builds the plan and then runs the test hooks of every packaged
// target. Test hooks do not run when the build fails.
func (a *App) Test(ctx context.Context) (*executor.RunResult, []executor.TestResult, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	exec, err := a.newExecutor(ctx)
	if err != nil {
		return nil, nil, err
	}
	res, sess, err := a.build(ctx, exec)
	if err != nil {
		return res, nil, err
	}
	tests, err := exec.RunTests(ctx, sess, res)
	if err != nil {
		return res, tests, fmt.Errorf("tests failed: %w", err)
	}
	return res, tests, nil
}

func (a *App) newExecutor(ctx context.Context) (*executor.Executor, error) {
	store, err := a.newCacheStore(ctx)
	if err != nil {
		return nil, err
	}
	runner := shell.New(a.outW)
	return executor.New(executor.Config{
		Workers:   a.config.Workers,
		Fetcher:   source.LocalFetcher{Root: a.config.Workspace},
		Builder:   runner,
		Tester:    runner,
		Cache:     store,
		BuildRoot: a.config.BuildDir,
	})
}

// newCacheStore selects the S3 store when one is configured and the local
// file store otherwise, then applies the cache mode.
func (a *App) newCacheStore(ctx context.Context) (cache.Store, error) {
	mode, err := cache.ParseMode(a.config.CacheMode)
	if err != nil {
		return nil, err
	}
	if mode == cache.ModeOff {
		return cache.WithMode(nil, mode), nil
	}

	var store cache.Store
	if a.config.RemoteCache() {
		s3, err := s3cache.New(ctx, a.config.S3)
		if err != nil {
			return nil, fmt.Errorf("connecting to remote cache: %w", err)
		}
		store = s3
		a.logger.Debug("Using remote cache.", "endpoint", a.config.S3.Endpoint, "bucket", a.config.S3.Bucket, "mode", mode)
	} else {
		store = filecache.New(a.config.CacheDir)
		a.logger.Debug("Using local cache.", "dir", a.config.CacheDir, "mode", mode)
	}
	return cache.WithMode(store, mode), nil
}
