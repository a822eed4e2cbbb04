package dag

import (
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/target"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds t to the graph. Adding a second target with the same name is
// ErrDuplicateTarget; duplicates must be resolved before the graph is built.
func (g *Graph) AddNode(t target.Target) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	id := t.Name()
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("%w: %q", target.ErrDuplicateTarget, id)
	}

	g.nodes[id] = &node{id: id, target: t}
	g.order = append(g.order, id)
	return nil
}

// AddEdge records that toID depends on fromID. An error is returned if either
// node does not exist; a self-reference is reported as a one-node cycle.
// Adding an existing edge again is a no-op.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &CycleError{Path: []string{fromID, fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("%w: %q", target.ErrUnknownTarget, toID)
	}
	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("%w: %q depends on undeclared target %q", target.ErrUnknownDependency, toID, fromID)
	}
	if toNode.hasDep(fromID) {
		return nil
	}

	toNode.deps = append(toNode.deps, fromNode)
	fromNode.dependents = append(fromNode.dependents, toNode)
	return nil
}

// Dependencies returns the names the given node depends on, in declaration order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", target.ErrUnknownTarget, id)
	}
	return ids(n.deps), nil
}

// Dependents returns the names that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", target.ErrUnknownTarget, id)
	}
	return ids(n.dependents), nil
}

// TopologicalOrder returns every node name with each target after all of its
// dependencies. Independent targets keep declaration order. The first cycle
// found is returned as a *CycleError.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three colors:
	// white: not visited yet.
	// gray: on the current recursion stack.
	// black: fully visited, all dependencies already emitted.
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	stack := make([]string, 0, len(g.nodes))
	out := make([]string, 0, len(g.nodes))

	var visit func(n *node) error
	visit = func(n *node) error {
		switch color[n.id] {
		case black:
			return nil
		case gray:
			return &CycleError{Path: cyclePath(stack, n.id)}
		}

		color[n.id] = gray
		stack = append(stack, n.id)
		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[n.id] = black
		out = append(out, n.id)
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DetectCycles checks the graph for cycles.
func (g *Graph) DetectCycles() error {
	_, err := g.TopologicalOrder()
	return err
}

// cyclePath cuts the recursion stack at the first occurrence of closing and
// repeats it at the end.
func cyclePath(stack []string, closing string) []string {
	for i, id := range stack {
		if id == closing {
			path := append([]string(nil), stack[i:]...)
			return append(path, closing)
		}
	}
	return []string{closing, closing}
}

func ids(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}
