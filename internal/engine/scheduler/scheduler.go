// Package scheduler executes the stale part of a build graph in dependency
// order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options controls one scheduler run.
type Options struct {
	// Jobs caps how many recipes run at once. Values below 1 mean 1.
	Jobs int
	// DryRun echoes every command without executing anything.
	DryRun bool
	// Stdout and Stderr receive recipe output. Nil values fall back to
	// the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Scheduler runs recipes for the stale nodes of a graph, prerequisites
// always before their dependents.
type Scheduler struct {
	runner    ports.CommandRunner
	logger    ports.Logger
	telemetry ports.Telemetry
}

// NewScheduler creates a new Scheduler.
func NewScheduler(runner ports.CommandRunner, logger ports.Logger, telemetry ports.Telemetry) *Scheduler {
	return &Scheduler{
		runner:    runner,
		logger:    logger,
		telemetry: telemetry,
	}
}

// Run executes every stale node of the graph, honoring the job limit.
// Fresh nodes are skipped. The first recipe failure aborts the run:
// nothing new is started, in-flight recipes drain, and that first error
// is returned. Every node runs at most once per call.
func (s *Scheduler) Run(ctx context.Context, g *domain.Graph, binds domain.Bindings, opts Options) error {
	state := s.newRunState(ctx, g, binds, opts)

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(state.firstErr, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		return errors.Join(state.firstErr, state.ctx.Err())
	}

	return state.firstErr
}

type result struct {
	node *domain.Node
	err  error
}

type runState struct {
	g         *domain.Graph
	binds     domain.Bindings
	opts      Options
	inDegree  map[domain.InternedString]int
	position  map[domain.InternedString]int
	ready     []*domain.Node
	active    int
	resultsCh chan result
	firstErr  error
	ctx       context.Context
	s         *Scheduler
}

func (s *Scheduler) newRunState(ctx context.Context, g *domain.Graph, binds domain.Bindings, opts Options) *runState {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	inDegree := make(map[domain.InternedString]int, g.Len())
	position := make(map[domain.InternedString]int, g.Len())
	var ready []*domain.Node

	i := 0
	for node := range g.Walk() {
		inDegree[node.Name] = len(node.Prereqs)
		position[node.Name] = i
		i++
		if len(node.Prereqs) == 0 {
			ready = append(ready, node)
		}
	}

	return &runState{
		g:         g,
		binds:     binds,
		opts:      opts,
		inDegree:  inDegree,
		position:  position,
		ready:     ready,
		resultsCh: make(chan result, opts.Jobs),
		ctx:       ctx,
		s:         s,
	}
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

// schedule starts ready nodes until the job limit is hit. Fresh nodes
// complete on the spot, which lets whole fresh subtrees clear without a
// round-trip through the results channel.
func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.opts.Jobs && state.ctx.Err() == nil && state.firstErr == nil {
		node := state.popReady()

		if !node.Stale {
			state.finishFresh(node)
			continue
		}

		state.active++
		go func(n *domain.Node) {
			state.resultsCh <- result{node: n, err: state.s.runRecipe(state.ctx, n, state.binds, state.opts)}
		}(node)
	}
}

// popReady removes the ready node that comes earliest in the plan, so runs
// with one job replay the plan order exactly.
func (state *runState) popReady() *domain.Node {
	best := 0
	for i := 1; i < len(state.ready); i++ {
		if state.position[state.ready[i].Name] < state.position[state.ready[best].Name] {
			best = i
		}
	}
	node := state.ready[best]
	state.ready = slices.Delete(state.ready, best, best+1)
	return node
}

// finishFresh records an up-to-date node as skipped and releases its
// dependents.
func (state *runState) finishFresh(node *domain.Node) {
	_, vertex := state.s.telemetry.Record(state.ctx, node.Name.String())
	vertex.Cached()
	vertex.Complete(nil)
	state.release(node)
}

func (state *runState) release(node *domain.Node) {
	for _, dep := range state.g.Dependents(node) {
		state.inDegree[dep.Name]--
		if state.inDegree[dep.Name] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

func (state *runState) handleResult(res result) {
	state.active--

	if res.err != nil {
		if state.firstErr == nil {
			state.firstErr = res.err
			state.ready = nil
			return
		}
		state.s.logger.Warn(fmt.Sprintf("target %s also failed: %v", res.node.Name.String(), res.err))
		return
	}

	if state.firstErr == nil {
		state.release(res.node)
	}
}

// runRecipe materializes and executes every recipe line of one stale node,
// stopping at the first line that fails.
func (s *Scheduler) runRecipe(ctx context.Context, node *domain.Node, binds domain.Bindings, opts Options) error {
	vctx, vertex := s.telemetry.Record(ctx, node.Name.String())
	err := s.runLines(vctx, node, binds, opts, vertex)
	vertex.Complete(err)
	return err
}

func (s *Scheduler) runLines(ctx context.Context, node *domain.Node, binds domain.Bindings, opts Options, vertex ports.Vertex) error {
	rc := domain.RecipeContext{
		Target: node.Name.String(),
		Prereq: node.FirstPrereq(),
		Vars:   binds,
	}

	stdout := io.MultiWriter(opts.Stdout, vertex.Stdout())
	stderr := io.MultiWriter(opts.Stderr, vertex.Stderr())

	for _, line := range node.Rule.Recipe {
		cmd, err := domain.Materialize(line, rc)
		if err != nil {
			return err
		}

		s.logger.Info(cmd)
		if opts.DryRun {
			continue
		}

		status, err := s.runner.Run(ctx, domain.Command{Target: rc.Target, Line: cmd}, stdout, stderr)
		if err != nil {
			return err
		}
		if status != 0 {
			failed := zerr.With(domain.ErrRecipeFailed, "target", rc.Target)
			failed = zerr.With(failed, "command", cmd)
			return zerr.With(failed, "exit_status", status)
		}
	}

	return nil
}
