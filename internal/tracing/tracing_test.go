package tracing

import (
	"context"
	"testing"
)

func TestNoopTracerNeverPanics(t *testing.T) {
	tr := NoopTracer()
	tr.RecordFallback(context.Background(), "BGP", "predicate variable in multi-triple BGP")
}

func TestRecordFallbackOnUnrecordingSpanIsANoop(t *testing.T) {
	tr := New("go-sparql-adapter-test")
	// context.Background() carries no active span, so the underlying
	// span is a no-op and IsRecording() is false; this must not panic.
	tr.RecordFallback(context.Background(), "FILTER", "unsupported operator")
}
