// Package tracing wraps go.opentelemetry.io/otel behind a small
// interface so the rest of the core never imports the SDK directly
// (SPEC_FULL.md §1 "Tracing"). The only event this module ever needs
// to record is the Algebra Executor's fallback marker, per spec.md
// §4.6 / §7: a span event "falkordb.fallback=true" whenever pushdown
// fails and the executor hands the node back to the host engine.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer records the fallback event on whatever span is already active
// in ctx. A caller with tracing disabled can use NoopTracer instead.
type Tracer interface {
	RecordFallback(ctx context.Context, kind, reason string)
}

// otelTracer is the production Tracer, backed by an otel.Tracer.
type otelTracer struct {
	tracer trace.Tracer
}

// New returns a Tracer backed by the global otel TracerProvider under
// the given instrumentation name.
func New(instrumentationName string) Tracer {
	return &otelTracer{tracer: otel.Tracer(instrumentationName)}
}

// RecordFallback adds a falkordb.fallback=true span event to the span
// already present in ctx (if any); it never starts a new span itself —
// the host SPARQL engine owns span lifetimes.
func (t *otelTracer) RecordFallback(ctx context.Context, kind, reason string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("falkordb.fallback", trace.WithAttributes(
		attribute.Bool("falkordb.fallback", true),
		attribute.String("falkordb.fallback.kind", kind),
		attribute.String("falkordb.fallback.reason", reason),
	))
}

// NoopTracer discards every call; used when SPEC_FULL.md's
// tracing.enabled config knob is false.
type noopTracer struct{}

func NoopTracer() Tracer { return noopTracer{} }

func (noopTracer) RecordFallback(ctx context.Context, kind, reason string) {}
