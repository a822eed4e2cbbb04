package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// Store is an in-memory implementation of nodestore.Store.
//
// Each target owns one record guarded by its own mutex; the records live in a
// sync.Map because the key set is fixed after Init while values change
// constantly, which is the access pattern sync.Map is optimized for.
type Store struct {
	records sync.Map // Key: target name, Value: *record
}

type record struct {
	mu    sync.Mutex
	state nodestore.State
	err   error
}

var _ nodestore.Store = (*Store)(nil)

// New creates a new, empty in-memory state store.
func New() *Store {
	return &Store{}
}

func (s *Store) Init(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, loaded := s.records.LoadOrStore(name, &record{state: nodestore.Pending}); loaded {
			return fmt.Errorf("%w: %q registered twice", target.ErrDuplicateTarget, name)
		}
	}
	return nil
}

func (s *Store) load(name string) (*record, error) {
	v, ok := s.records.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", target.ErrUnknownTarget, name)
	}
	return v.(*record), nil
}

func (s *Store) Transition(ctx context.Context, name string, from, to nodestore.State) error {
	r, err := s.load(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return fmt.Errorf("%w for %q: expected %s, got %s", nodestore.ErrInvalidTransition, name, from, r.state)
	}
	if !nodestore.Allowed(from, to) {
		return fmt.Errorf("%w for %q: %s -> %s", nodestore.ErrInvalidTransition, name, from, to)
	}
	r.state = to
	return nil
}

func (s *Store) Fail(ctx context.Context, name string, cause error) error {
	r, err := s.load(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return fmt.Errorf("%w for %q: %s -> %s", nodestore.ErrInvalidTransition, name, r.state, nodestore.Failed)
	}
	r.state = nodestore.Failed
	r.err = cause
	return nil
}

func (s *Store) GetState(ctx context.Context, name string) (nodestore.State, error) {
	r, err := s.load(name)
	if err != nil {
		return nodestore.Pending, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, nil
}

func (s *Store) GetError(ctx context.Context, name string) (error, error) {
	r, err := s.load(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err, nil
}

func (s *Store) Snapshot(ctx context.Context) map[string]nodestore.State {
	out := make(map[string]nodestore.State)
	s.records.Range(func(k, v any) bool {
		r := v.(*record)
		r.mu.Lock()
		out[k.(string)] = r.state
		r.mu.Unlock()
		return true
	})
	return out
}
