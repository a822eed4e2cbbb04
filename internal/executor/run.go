package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/session"
	"golang.org/x/sync/errgroup"
)

// job is the scheduling record of one target within a run.
type job struct {
	name       string
	dependents []string
	// depCount is the number of dependencies not yet packaged.
	depCount atomic.Int32
	// doneOnce guarantees the WaitGroup is released exactly once per job.
	doneOnce sync.Once
	result   TargetResult
}

type run struct {
	e     *Executor
	sess  *session.Session
	jobs  map[string]*job
	ready chan *job
	wg    sync.WaitGroup
	// stopped is set by the first failure; no target starts afterwards.
	stopped atomic.Bool
}

// Run builds every target of the session's plan. The returned error is the
// first failure (a *TargetError) and the RunResult is always populated.
func (e *Executor) Run(ctx context.Context, sess *session.Session) (*RunResult, error) {
	ctx = sess.Context(ctx)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	order := sess.Plan.Order()
	r := &run{
		e:     e,
		sess:  sess,
		jobs:  make(map[string]*job, len(order)),
		ready: make(chan *job, len(order)),
	}
	for _, name := range order {
		j := &job{name: name, dependents: sess.Plan.Dependents(name)}
		j.result.Name = name
		j.depCount.Store(int32(len(sess.Plan.Dependencies(name))))
		r.jobs[name] = j
	}

	logger.Debug("Initializing executor, finding root targets...")
	r.wg.Add(len(order))
	roots := 0
	for _, name := range order {
		if j := r.jobs[name]; j.depCount.Load() == 0 {
			logger.Debug("Found root target.", "target", name)
			r.ready <- j
			roots++
		}
	}
	logger.Debug("Found all root targets.", "count", roots)

	var g errgroup.Group
	logger.Debug("Starting worker pool.", "workers", e.workers)
	for i := 0; i < e.workers; i++ {
		workerID := i
		g.Go(func() error {
			r.worker(ctx, workerID)
			return nil
		})
	}

	logger.Info("Waiting for all targets to complete...", "targets", len(order))
	r.wg.Wait()
	close(r.ready)
	_ = g.Wait()

	result := &RunResult{RunID: sess.ID, Duration: time.Since(start)}
	var rootCause error
	for _, name := range order {
		tr := r.jobs[name].result
		result.Targets = append(result.Targets, tr)
		if tr.Err != nil && !isSkip(tr.Err) && rootCause == nil {
			rootCause = tr.Err
		}
	}
	if rootCause == nil && ctx.Err() != nil {
		rootCause = ctx.Err()
	}
	if rootCause != nil {
		logger.Error("Run failed.", "error", rootCause, "duration", result.Duration)
		return result, rootCause
	}
	logger.Info("All targets packaged.", "targets", len(order), "cache_hits", result.CacheHits(), "duration", result.Duration)
	return result, nil
}

func (r *run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range r.ready {
		jobCtx := ctxlog.With(ctx, "target", j.name)
		workerLogger := ctxlog.FromContext(jobCtx).With("workerID", workerID)

		if err := ctx.Err(); err != nil {
			r.skip(ctx, j, fmt.Errorf("%w: %w", ErrSkipped, err))
			continue
		}
		if r.stopped.Load() {
			r.skip(ctx, j, fmt.Errorf("%w: run stopped after an earlier failure", ErrSkipped))
			continue
		}

		workerLogger.Debug("Worker picked up target.")
		start := time.Now()
		err := r.e.runTarget(jobCtx, r.sess, &j.result, r.hashOf)
		j.result.Duration = time.Since(start)

		if err != nil {
			workerLogger.Error("Target failed.", "error", err)
			r.stopped.Store(true)
			j.result.Err = err
			j.result.State = nodestore.Failed
			if failErr := r.sess.States.Fail(jobCtx, j.name, err); failErr != nil {
				workerLogger.Warn("Could not record failure.", "error", failErr)
			}
			r.skipDependents(ctx, j)
			r.done(j)
			continue
		}

		j.result.State = nodestore.Packaged
		workerLogger.Info("Target packaged.", "cache_hit", j.result.CacheHit, "duration", j.result.Duration)
		for _, name := range j.dependents {
			dependent := r.jobs[name]
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent target.", "dependent", name)
				r.ready <- dependent
			}
		}
		r.done(j)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// hashOf returns the input hash of a finished job. Callers only ask for
// dependencies, whose results are complete before the dependent is ready.
func (r *run) hashOf(name string) string {
	return r.jobs[name].result.Hash
}

func (r *run) done(j *job) {
	j.doneOnce.Do(r.wg.Done)
}

// skip fails a target that never started, then every target below it.
func (r *run) skip(ctx context.Context, j *job, cause error) {
	j.doneOnce.Do(func() {
		ctxlog.FromContext(ctx).Warn("Skipping target.", "target", j.name, "reason", cause)
		j.result.State = nodestore.Failed
		j.result.Err = cause
		_ = r.sess.States.Fail(ctx, j.name, cause)
		r.wg.Done()
		r.skipDependents(ctx, j)
	})
}

func (r *run) skipDependents(ctx context.Context, j *job) {
	for _, name := range j.dependents {
		r.skip(ctx, r.jobs[name],
			fmt.Errorf("%w: dependency %q did not package", ErrSkipped, j.name))
	}
}

func isSkip(err error) bool {
	return errors.Is(err, ErrSkipped)
}
