package dag

import (
	"fmt"
	"io"

	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// Plan is the validated, platform-filtered graph of one run.
type Plan struct {
	graph *Graph
	order []string
	deps  map[string][]string
	facts platform.Facts
}

// Order returns target names with every target after its dependencies.
func (p *Plan) Order() []string {
	return append([]string(nil), p.order...)
}

// Len returns the number of targets in the plan.
func (p *Plan) Len() int { return len(p.order) }

// Facts returns the platform the plan was built for.
func (p *Plan) Facts() platform.Facts { return p.facts }

// Target returns the named target.
func (p *Plan) Target(name string) (target.Target, bool) {
	p.graph.mutex.RLock()
	defer p.graph.mutex.RUnlock()
	n, ok := p.graph.nodes[name]
	if !ok {
		return nil, false
	}
	return n.target, true
}

// Dependencies returns the platform-filtered dependencies of name.
func (p *Plan) Dependencies(name string) []string {
	return append([]string(nil), p.deps[name]...)
}

// Dependents returns the targets that depend on name.
func (p *Plan) Dependents(name string) []string {
	out, _ := p.graph.Dependents(name)
	return out
}

// WriteText prints the plan in build order with each target's dependencies.
func (p *Plan) WriteText(w io.Writer) error {
	for i, name := range p.order {
		deps := p.deps[name]
		var err error
		if len(deps) == 0 {
			_, err = fmt.Fprintf(w, "%d. %s\n", i+1, name)
		} else {
			_, err = fmt.Fprintf(w, "%d. %s <- %v\n", i+1, name, deps)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteDOT prints the plan as a Graphviz digraph, edges pointing from a
// target to its dependency.
func (p *Plan) WriteDOT(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph buildgrid {"); err != nil {
		return err
	}
	for _, name := range p.order {
		if _, err := fmt.Fprintf(w, "  %q;\n", name); err != nil {
			return err
		}
		for _, d := range p.deps[name] {
			if _, err := fmt.Fprintf(w, "  %q -> %q;\n", name, d); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
