package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/target"
)

// Registry holds the products of every target of a single run.
type Registry struct {
	entries sync.Map // Key: target name, Value: *entry
}

type entry struct {
	mu       sync.RWMutex
	products target.ProductSet
	sealed   bool
}

// New creates a registry that expects the given target names.
func New(names ...string) *Registry {
	r := &Registry{}
	r.Declare(names...)
	return r
}

// Declare registers target names that will publish products during the run.
func (r *Registry) Declare(names ...string) {
	for _, name := range names {
		r.entries.LoadOrStore(name, &entry{products: target.ProductSet{}})
	}
}

func (r *Registry) lookup(name string) (*entry, error) {
	v, ok := r.entries.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", target.ErrUnknownTarget, name)
	}
	return v.(*entry), nil
}

// Put stages paths as the kind products of name. Each (name, kind) may be
// written once, and never after the target was published.
func (r *Registry) Put(name string, kind target.ProductKind, paths []string) error {
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.put(name, kind, paths)
}

func (e *entry) put(name string, kind target.ProductKind, paths []string) error {
	key := target.ProductKey{Target: name, Kind: kind}
	if e.sealed {
		return fmt.Errorf("%w: %s written after %q was packaged", target.ErrDuplicateProduct, key, name)
	}
	if _, ok := e.products[kind]; ok {
		return fmt.Errorf("%w: %s exported twice", target.ErrDuplicateProduct, key)
	}
	e.products[kind] = append([]string(nil), paths...)
	return nil
}

// Publish stages every kind of set, then seals the products of name. After
// Publish the products are readable and immutable. set may be nil when the
// products were already staged with Put.
func (r *Registry) Publish(name string, set target.ProductSet) error {
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sealed {
		return fmt.Errorf("%w: %q published twice", target.ErrDuplicateProduct, name)
	}
	for _, kind := range set.Kinds() {
		if err := e.put(name, kind, set[kind]); err != nil {
			return err
		}
	}
	e.sealed = true
	return nil
}

// Sealed reports whether name has been published.
func (r *Registry) Sealed(name string) bool {
	e, err := r.lookup(name)
	if err != nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sealed
}

// Get returns the kind products of name.
func (r *Registry) Get(name string, kind target.ProductKind) ([]string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	key := target.ProductKey{Target: name, Kind: kind}
	if !e.sealed {
		return nil, fmt.Errorf("%w: %s", target.ErrOrderingViolation, key)
	}
	paths, ok := e.products[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", target.ErrMissingProduct, key)
	}
	return append([]string(nil), paths...), nil
}

// Products implements target.ProductLookup.
func (r *Registry) Products(name string, kind target.ProductKind) ([]string, error) {
	return r.Get(name, kind)
}

// All returns a copy of every product of name.
func (r *Registry) All(name string) (target.ProductSet, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.sealed {
		return nil, fmt.Errorf("%w: %q", target.ErrOrderingViolation, name)
	}
	return e.products.Clone(), nil
}

// Published returns the names of all published targets in sorted order.
func (r *Registry) Published() []string {
	var names []string
	r.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.RLock()
		if e.sealed {
			names = append(names, k.(string))
		}
		e.mu.RUnlock()
		return true
	})
	sort.Strings(names)
	return names
}
