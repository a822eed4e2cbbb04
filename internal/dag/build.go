package dag

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// Build constructs the validated dependency graph of targets for the given
// platform and returns its Plan.
func Build(ctx context.Context, targets []target.Target, facts platform.Facts) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "targets", len(targets), "platform", facts.String())
	g := New()

	// First pass: one node per target.
	for _, t := range targets {
		if err := g.AddNode(t); err != nil {
			return nil, err
		}
	}

	// Second pass: edges that hold on this platform. Conditions are
	// evaluated exactly once here; the Plan keeps the result.
	deps := make(map[string][]string, len(targets))
	for _, t := range targets {
		for _, d := range t.Dependencies(facts) {
			if err := g.AddEdge(d.Target, t.Name()); err != nil {
				return nil, err
			}
		}
		deps[t.Name()], _ = g.Dependencies(t.Name())
	}
	logger.Debug("Build: Node linking complete.")

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.", "order", order)

	exports := make(map[string]map[target.ProductKind]bool, len(targets))
	for _, t := range targets {
		kinds := make(map[target.ProductKind]bool)
		for _, r := range t.Exports(facts) {
			kinds[r.Kind] = true
		}
		exports[t.Name()] = kinds
	}
	for _, t := range targets {
		if err := checkRefs(t, deps[t.Name()], exports); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Product references validated.")

	return &Plan{graph: g, order: order, deps: deps, facts: facts}, nil
}

// checkRefs validates every statically declared product reference of t.
func checkRefs(t target.Target, deps []string, exports map[string]map[target.ProductKind]bool) error {
	direct := make(map[string]bool, len(deps))
	for _, d := range deps {
		direct[d] = true
	}
	opts := t.Options()
	for _, name := range opts.Names() {
		v, _ := opts.Get(name)
		for _, ref := range v.Refs() {
			if !direct[ref.Target] {
				return fmt.Errorf("%w: option %s of %q references %q, which is not one of its dependencies on this platform",
					target.ErrUnknownDependency, name, t.Name(), ref.Target)
			}
			if !exports[ref.Target][ref.Kind] {
				return fmt.Errorf("%w: option %s of %q references %s, but %q exports no %s on this platform",
					target.ErrMissingProduct, name, t.Name(), ref, ref.Target, ref.Kind)
			}
		}
	}
	return nil
}
