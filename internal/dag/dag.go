// SPDX-License-Identifier: MPL-2.0

// Package dag provides dependency ordering and cycle detection for task graphs.
//
// Nodes live in an arena: each name maps to a dense index, and edges and
// visitation state are slices indexed by it. Edges point from a node to the
// nodes it depends on, so an ordering lists every dependency before its
// dependents.
package dag

import (
	"fmt"
	"strings"
)

const (
	unvisited visitState = iota
	inProgress
	done
)

type (
	// CycleError indicates that the dependency edges reachable from the
	// requested roots form a cycle.
	CycleError struct {
		// Path is the cycle from the first repeated node back to itself,
		// e.g. [a b c a].
		Path []string
	}

	// UnknownNodeError is returned when a root or an edge target names a node
	// that was never added to the graph.
	UnknownNodeError struct {
		// Name is the unknown node.
		Name string
		// From is the node that referenced it; empty for a requested root.
		From string
	}

	// Graph is a directed dependency graph keyed by node name.
	Graph struct {
		index map[string]int
		names []string
		// deps holds the declared dependency names of each node, in declaration
		// order. Targets are resolved lazily so that unknown names surface as
		// UnknownNodeError during traversal instead of at insertion time.
		deps [][]string
	}

	visitState uint8

	// walker holds the per-traversal visitation state.
	walker struct {
		g     *Graph
		state []visitState
		stack []int
		order []string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *UnknownNodeError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("unknown task %q", e.Name)
	}
	return fmt.Sprintf("unknown task %q referenced by %q", e.Name, e.From)
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.names)
	g.names = append(g.names, name)
	g.deps = append(g.deps, nil)
}

// AddDependency records that node "from" depends on node "on".
// The "from" node is added implicitly; "on" must be added separately, or any
// traversal that reaches the edge fails with UnknownNodeError.
func (g *Graph) AddDependency(from, on string) {
	g.AddNode(from)
	i := g.index[from]
	g.deps[i] = append(g.deps[i], on)
}

// Has reports whether the node exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.names...)
}

// Dependencies returns the declared dependencies of a node in declaration order.
func (g *Graph) Dependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), g.deps[i]...)
}

// Order returns the dependency closure of roots in a valid execution order:
// every node appears after all of its transitive dependencies. Roots are
// visited in the given order and dependencies in declaration order, so the
// result is deterministic for a fixed graph.
//
// The entire closure is checked before returning; a cycle anywhere in it
// yields a CycleError and no partial order.
func (g *Graph) Order(roots ...string) ([]string, error) {
	w := &walker{g: g, state: make([]visitState, len(g.names))}
	for _, root := range roots {
		i, ok := g.index[root]
		if !ok {
			return nil, &UnknownNodeError{Name: root}
		}
		if err := w.visit(i); err != nil {
			return nil, err
		}
	}
	return w.order, nil
}

// Sort orders every node in the graph.
func (g *Graph) Sort() ([]string, error) {
	return g.Order(g.names...)
}

// Closure returns every node reachable from roots through dependency edges and
// through the additional edges reported by extra, in first-visit order. It
// does not detect cycles; extra may be nil.
func (g *Graph) Closure(roots []string, extra func(name string) []string) ([]string, error) {
	seen := make([]bool, len(g.names))
	var out []string
	queue := make([]int, 0, len(roots))

	for _, root := range roots {
		i, ok := g.index[root]
		if !ok {
			return nil, &UnknownNodeError{Name: root}
		}
		if !seen[i] {
			seen[i] = true
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		name := g.names[i]
		out = append(out, name)

		targets := g.deps[i]
		if extra != nil {
			targets = append(append([]string(nil), targets...), extra(name)...)
		}
		for _, target := range targets {
			j, ok := g.index[target]
			if !ok {
				return nil, &UnknownNodeError{Name: target, From: name}
			}
			if !seen[j] {
				seen[j] = true
				queue = append(queue, j)
			}
		}
	}
	return out, nil
}

func (w *walker) visit(i int) error {
	switch w.state[i] {
	case done:
		return nil
	case inProgress:
		return w.cycleTo(i)
	}

	w.state[i] = inProgress
	w.stack = append(w.stack, i)

	for _, dep := range w.g.deps[i] {
		j, ok := w.g.index[dep]
		if !ok {
			return &UnknownNodeError{Name: dep, From: w.g.names[i]}
		}
		if err := w.visit(j); err != nil {
			return err
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	w.state[i] = done
	w.order = append(w.order, w.g.names[i])
	return nil
}

// cycleTo builds the cycle path from the in-progress node i, which is on the
// current stack, back to itself.
func (w *walker) cycleTo(i int) error {
	start := 0
	for k, n := range w.stack {
		if n == i {
			start = k
			break
		}
	}
	path := make([]string, 0, len(w.stack)-start+1)
	for _, n := range w.stack[start:] {
		path = append(path, w.g.names[n])
	}
	path = append(path, w.g.names[i])
	return &CycleError{Path: path}
}
