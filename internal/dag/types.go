package dag

import (
	"sync"

	"github.com/specialistvlad/buildgrid/internal/target"
)

// Graph is a collection of targets and their dependency edges.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map and insertion order.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by target name.
	nodes map[string]*node
	// order is the declaration order of node names.
	order []string
}

// node is a single vertex in the graph. It is un-exported so callers work
// with target names, not struct internals.
type node struct {
	id     string
	target target.Target
	// deps are the nodes this node depends on, in declaration order.
	deps []*node
	// dependents are the nodes that depend on this node, in insertion order.
	dependents []*node
}

func (n *node) hasDep(id string) bool {
	for _, d := range n.deps {
		if d.id == id {
			return true
		}
	}
	return false
}
