package executor

import (
	"time"

	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// TargetResult is the outcome of one target.
type TargetResult struct {
	Name     string
	State    nodestore.State
	CacheHit bool
	// Err is nil for packaged targets, a *TargetError for failures and wraps
	// ErrSkipped for targets that never started.
	Err      error
	Duration time.Duration
	Hash     string
	Products target.ProductSet
	// Request is the build request the target was configured with; nil when
	// it failed or was skipped before configure finished.
	Request *BuildRequest
}

// Skipped reports whether the target never started.
func (r TargetResult) Skipped() bool {
	return r.State == nodestore.Failed && r.Request == nil && isSkip(r.Err)
}

// RunResult is the outcome of a run, targets in plan order.
type RunResult struct {
	RunID    string
	Targets  []TargetResult
	Duration time.Duration
}

// Get returns the result of name.
func (r *RunResult) Get(name string) (TargetResult, bool) {
	for _, t := range r.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return TargetResult{}, false
}

// Count returns the number of targets that ended in state s.
func (r *RunResult) Count(s nodestore.State) int {
	n := 0
	for _, t := range r.Targets {
		if t.State == s {
			n++
		}
	}
	return n
}

// CacheHits returns the number of targets restored from the cache.
func (r *RunResult) CacheHits() int {
	n := 0
	for _, t := range r.Targets {
		if t.CacheHit {
			n++
		}
	}
	return n
}
