package planner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"go.trai.ch/mk/internal/core/domain"
)

// annotate stats the artifact behind every rule-backed node concurrently,
// then walks the execution order deciding which nodes are stale. The order
// guarantees every prerequisite verdict is written before its dependents
// are examined.
func (p *Planner) annotate(ctx context.Context, g *domain.Graph) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for node := range g.Walk() {
		if node.Rule == nil || node.Phony {
			// Rule-less leaves were statted during resolution; phony
			// targets never correspond to an artifact.
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := p.artifacts.Stat(node.Name.String())
			if err != nil {
				return err
			}
			node.Exists = info.Exists
			node.ModTime = info.ModTime
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for node := range g.Walk() {
		node.Stale = stale(node)
	}
	return nil
}

// stale decides one node's verdict from its own artifact state and the
// verdicts already written on its prerequisites.
func stale(node *domain.Node) bool {
	if node.Rule == nil {
		return false
	}
	if node.Phony {
		return true
	}
	if !node.Exists {
		return true
	}
	for _, req := range node.Prereqs {
		if req.Stale {
			return true
		}
		if req.ModTime.After(node.ModTime) {
			return true
		}
	}
	return false
}
