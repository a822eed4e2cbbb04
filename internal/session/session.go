// Package session holds everything that belongs to exactly one run: its ID,
// the validated plan, the product registry and the build state of every
// target. Nothing here is global; two sessions never share state.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/dag"
	"github.com/specialistvlad/buildgrid/internal/inmemorystore"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/registry"
)

// Session is the per-run context object.
type Session struct {
	ID       string
	Plan     *dag.Plan
	Registry *registry.Registry
	States   nodestore.Store
}

// Option customizes a Session.
type Option func(*Session)

// WithStore replaces the default in-memory state store.
func WithStore(s nodestore.Store) Option {
	return func(sess *Session) { sess.States = s }
}

// WithID fixes the run ID instead of generating one.
func WithID(id string) Option {
	return func(sess *Session) { sess.ID = id }
}

// New creates a session for plan with every target Pending.
func New(ctx context.Context, plan *dag.Plan, opts ...Option) (*Session, error) {
	if plan == nil {
		return nil, fmt.Errorf("session requires a plan")
	}
	s := &Session{
		ID:       uuid.NewString(),
		Plan:     plan,
		Registry: registry.New(plan.Order()...),
		States:   inmemorystore.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.States.Init(ctx, plan.Order()...); err != nil {
		return nil, fmt.Errorf("initializing build state: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Session created.", "run_id", s.ID, "targets", plan.Len())
	return s, nil
}

// Context returns ctx with a logger carrying the run ID.
func (s *Session) Context(ctx context.Context) context.Context {
	return ctxlog.With(ctx, "run_id", s.ID)
}

// Snapshot returns the state of every target keyed by name.
func (s *Session) Snapshot(ctx context.Context) map[string]nodestore.State {
	return s.States.Snapshot(ctx)
}
