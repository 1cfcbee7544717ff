// Package domain contains the core models for rule resolution and the
// dependency graph a run executes.
package domain

import (
	"iter"
	"time"

	"go.trai.ch/zerr"
)

// Node is one resolved target in a build graph. Identity is the interned
// name: every reference to the same target shares one Node.
//
// Exists, ModTime and Stale are the freshness annotation. The planner writes
// them exactly once before scheduling; nothing mutates them afterwards.
type Node struct {
	Name    InternedString
	Rule    *Rule  // nil when an existing artifact satisfies the name
	Stem    string // wildcard capture when Rule is the pattern rule
	Phony   bool
	Prereqs []*Node

	Exists  bool
	ModTime time.Time
	Stale   bool
}

// FirstPrereq returns the name of the first prerequisite, or "" when the node
// has none. This is what the prerequisite placeholder binds to.
func (n *Node) FirstPrereq() string {
	if len(n.Prereqs) == 0 {
		return ""
	}
	return n.Prereqs[0].Name.String()
}

// Graph is the dependency graph for one invocation. It holds every resolved
// node keyed by interned name, the requested roots, and a topological order
// with prerequisites before their dependents.
type Graph struct {
	nodes      map[InternedString]*Node
	order      []*Node
	roots      []*Node
	dependents map[InternedString][]*Node
}

// NewGraph assembles a graph from its topological order and roots. Every node
// must appear exactly once in order; the builder guarantees that by resolving
// through a single arena.
func NewGraph(order, roots []*Node) *Graph {
	g := &Graph{
		nodes:      make(map[InternedString]*Node, len(order)),
		order:      order,
		roots:      roots,
		dependents: make(map[InternedString][]*Node),
	}
	for _, n := range order {
		g.nodes[n.Name] = n
		for _, req := range n.Prereqs {
			g.dependents[req.Name] = append(g.dependents[req.Name], n)
		}
	}
	return g
}

// Node looks up a node by target name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[NewInternedString(name)]
	return n, ok
}

// Roots returns the nodes for the requested targets, in request order.
func (g *Graph) Roots() []*Node {
	return g.roots
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Walk returns an iterator over the nodes in execution order, every
// prerequisite before its dependents.
func (g *Graph) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, n := range g.order {
			if !yield(n) {
				return
			}
		}
	}
}

// Dependents returns the nodes that list n as a prerequisite.
func (g *Graph) Dependents(n *Node) []*Node {
	return g.dependents[n.Name]
}

// CycleError builds the cyclic dependency error for a resolution path that
// re-entered repeat. The attached cycle metadata spells out the full loop,
// starting and ending at the repeated target.
func CycleError(path []InternedString, repeat InternedString) error {
	start := 0
	for i, name := range path {
		if name == repeat {
			start = i
			break
		}
	}
	cycle := ""
	for _, name := range path[start:] {
		cycle += name.String() + " -> "
	}
	cycle += repeat.String()
	return zerr.With(ErrCyclicDependency, "cycle", cycle)
}
