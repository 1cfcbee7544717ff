// Package telemetry provides telemetry implementations for recording
// per-target progress.
package telemetry

import (
	"context"
	"io"

	"go.trai.ch/mk/internal/core/ports"
)

// Noop is a ports.Telemetry implementation that records nothing.
type Noop struct{}

// NewNoop creates a new Noop telemetry.
func NewNoop() *Noop {
	return &Noop{}
}

// Record returns a vertex that swallows everything.
func (n *Noop) Record(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	v := &NoopVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

// EmitPlan does nothing.
func (n *Noop) EmitPlan(_ context.Context, _ []string) {}

// Close does nothing.
func (n *Noop) Close() error {
	return nil
}

// NoopVertex is a no-op implementation of ports.Vertex.
type NoopVertex struct{}

// Stdout returns a writer that discards everything.
func (v *NoopVertex) Stdout() io.Writer {
	return io.Discard
}

// Stderr returns a writer that discards everything.
func (v *NoopVertex) Stderr() io.Writer {
	return io.Discard
}

// Complete does nothing.
func (v *NoopVertex) Complete(_ error) {}

// Cached does nothing.
func (v *NoopVertex) Cached() {}
