// Package planner resolves requested targets against the rule set into an
// executable dependency graph.
package planner

import (
	"context"
	"slices"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Planner turns a rule set and a target list into a dependency graph and
// annotates every node with its freshness verdict.
type Planner struct {
	artifacts ports.ArtifactStore
}

// NewPlanner creates a new Planner backed by the given artifact store.
func NewPlanner(artifacts ports.ArtifactStore) *Planner {
	return &Planner{artifacts: artifacts}
}

// Plan resolves the requested targets into a graph whose order lists every
// prerequisite before its dependents, then marks each node fresh or stale.
func (p *Planner) Plan(ctx context.Context, rules *domain.RuleSet, targets []string) (*domain.Graph, error) {
	b := &graphBuilder{
		rules:     rules,
		artifacts: p.artifacts,
		arena:     make(map[domain.InternedString]*domain.Node),
		visiting:  make(map[domain.InternedString]bool),
	}

	roots := make([]*domain.Node, 0, len(targets))
	for _, target := range targets {
		node, err := b.resolve(domain.NewInternedString(target))
		if err != nil {
			return nil, err
		}
		if !slices.Contains(roots, node) {
			roots = append(roots, node)
		}
	}

	g := domain.NewGraph(b.order, roots)
	if err := p.annotate(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// graphBuilder is the state of one depth-first resolution pass. The arena
// holds every node ever created so each name resolves to a single Node;
// visiting and path track the active recursion for cycle reporting.
type graphBuilder struct {
	rules     *domain.RuleSet
	artifacts ports.ArtifactStore
	arena     map[domain.InternedString]*domain.Node
	visiting  map[domain.InternedString]bool
	path      []domain.InternedString
	order     []*domain.Node
}

// resolve returns the node for name, creating it and descending into its
// prerequisites on first visit. Nodes enter the builder order in post-order,
// which is exactly the execution order.
func (b *graphBuilder) resolve(name domain.InternedString) (*domain.Node, error) {
	if node, ok := b.arena[name]; ok {
		if b.visiting[name] {
			return nil, domain.CycleError(b.path, name)
		}
		return node, nil
	}

	node, reqs, err := b.newNode(name)
	if err != nil {
		return nil, err
	}
	b.arena[name] = node

	if node.Rule == nil {
		b.order = append(b.order, node)
		return node, nil
	}

	b.visiting[name] = true
	b.path = append(b.path, name)

	for _, req := range reqs {
		child, err := b.resolve(domain.NewInternedString(req))
		if err != nil {
			return nil, err
		}
		node.Prereqs = append(node.Prereqs, child)
	}

	delete(b.visiting, name)
	b.path = b.path[:len(b.path)-1]

	b.order = append(b.order, node)
	return node, nil
}

// newNode resolves a name to its rule. An exact rule wins over the pattern
// rule; a name matching neither must already exist as an artifact, since
// nothing can produce it.
func (b *graphBuilder) newNode(name domain.InternedString) (*domain.Node, []string, error) {
	if rule, stem, ok := b.rules.Lookup(name.String()); ok {
		node := &domain.Node{
			Name:  name,
			Rule:  rule,
			Stem:  stem,
			Phony: b.rules.IsPhony(name.String()),
		}
		return node, rule.PrereqsFor(stem), nil
	}

	info, err := b.artifacts.Stat(name.String())
	if err != nil {
		return nil, nil, err
	}
	if !info.Exists {
		return nil, nil, zerr.With(domain.ErrUnknownTarget, "target", name.String())
	}

	return &domain.Node{Name: name, Exists: true, ModTime: info.ModTime}, nil, nil
}
