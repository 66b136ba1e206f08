package depgraph

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a directed graph over string IDs.
//
// mu guards nodes and out. Edges are stored once; parallel edges collapse.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]struct{}
	out   map[string]map[string]struct{}
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		out:   make(map[string]map[string]struct{}),
	}
}

// AddNode inserts a node if missing (idempotent).
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(id)

	return nil
}

// AddEdge inserts the directed edge from→to, creating both nodes as needed.
// Self-loops are kept: a node depending on itself is a cycle of length one.
func (g *Graph) AddEdge(from, to string) error {
	if from == "" || to == "" {
		return ErrEmptyID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(from)
	g.ensure(to)
	g.out[from][to] = struct{}{}

	return nil
}

// AddDependency records that node depends on dep, i.e. the edge dep→node.
func (g *Graph) AddDependency(node, dep string) error { return g.AddEdge(dep, node) }

// ensure registers id; caller holds the write lock.
func (g *Graph) ensure(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.out[id] = make(map[string]struct{})
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]

	return ok
}

// HasEdge reports whether the edge from→to is present.
func (g *Graph) HasEdge(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.out[from][to]

	return ok
}

// Nodes returns all node IDs sorted ascending.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}

// Successors returns the targets of id's outgoing edges sorted ascending.
func (g *Graph) Successors(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	succ, ok := g.out[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	out := make([]string, 0, len(succ))
	for to := range succ {
		out = append(out, to)
	}
	sort.Strings(out)

	return out, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}
