// Package app implements the application layer for mk.
package app

import (
	"context"
	"fmt"
	"io"

	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/mk/internal/engine/planner"
	"go.trai.ch/mk/internal/engine/scheduler"
)

// RunOptions carries one invocation's inputs from the CLI layer. Env is the
// caller's environment snapshot; the application layer never reads ambient
// process state itself.
type RunOptions struct {
	// File is the path to the rule file.
	File string
	// Targets are the requested target names. Empty means the default
	// target, the first one the rule file declares.
	Targets []string
	// Jobs caps how many recipes run at once.
	Jobs int
	// DryRun echoes commands without executing them.
	DryRun bool
	// Env holds the caller's environment snapshot. Only names the rule
	// file declares as variables can be overridden through it.
	Env map[string]string
	// Assignments are NAME=value pairs from the command line. They win
	// over both declared defaults and the environment.
	Assignments map[string]string
	// Stdout and Stderr receive recipe output.
	Stdout io.Writer
	Stderr io.Writer
}

// App wires rule loading, planning and execution into one build run.
type App struct {
	loader    ports.RuleLoader
	planner   *planner.Planner
	scheduler *scheduler.Scheduler
	logger    ports.Logger
	telemetry ports.Telemetry
}

// New creates a new App instance.
func New(
	loader ports.RuleLoader,
	pl *planner.Planner,
	sched *scheduler.Scheduler,
	logger ports.Logger,
	telemetry ports.Telemetry,
) *App {
	return &App{
		loader:    loader,
		planner:   pl,
		scheduler: sched,
		logger:    logger,
		telemetry: telemetry,
	}
}

// Run builds the requested targets: load rules, plan, then execute the
// stale part of the graph.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	g, binds, err := a.plan(ctx, opts)
	if err != nil {
		return err
	}

	names := planNames(g)
	a.logger.Info(fmt.Sprintf("plan %s covers %d targets", domain.PlanID(names, binds), len(names)))
	a.telemetry.EmitPlan(ctx, names)
	defer func() {
		if cerr := a.telemetry.Close(); cerr != nil {
			a.logger.Error(cerr)
		}
	}()

	return a.scheduler.Run(ctx, g, binds, scheduler.Options{
		Jobs:   opts.Jobs,
		DryRun: opts.DryRun,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	})
}

// Plan resolves the requested targets into their annotated graph without
// executing anything.
func (a *App) Plan(ctx context.Context, opts RunOptions) (*domain.Graph, error) {
	g, _, err := a.plan(ctx, opts)
	return g, err
}

func (a *App) plan(ctx context.Context, opts RunOptions) (*domain.Graph, domain.Bindings, error) {
	rules, err := a.loader.Load(opts.File)
	if err != nil {
		return nil, domain.Bindings{}, err
	}

	targets := opts.Targets
	if len(targets) == 0 {
		def, ok := rules.DefaultTarget()
		if !ok {
			return nil, domain.Bindings{}, domain.ErrNoTargets
		}
		targets = []string{def}
	}

	binds := domain.NewBindings(rules.Vars(), opts.Env, opts.Assignments)

	g, err := a.planner.Plan(ctx, rules, targets)
	if err != nil {
		return nil, domain.Bindings{}, err
	}
	return g, binds, nil
}

func planNames(g *domain.Graph) []string {
	names := make([]string, 0, g.Len())
	for node := range g.Walk() {
		names = append(names, node.Name.String())
	}
	return names
}
