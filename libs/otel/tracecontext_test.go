package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := TraceContext{Parent: parent}.Context(context.Background())
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("span context not extracted: %+v", sc)
	}

	if got := CaptureTrace(ctx); got.Parent != parent {
		t.Fatalf("expected %q, got %q", parent, got.Parent)
	}
}

func TestZeroTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if got := (TraceContext{}).Context(context.Background()); trace.SpanContextFromContext(got).IsValid() {
		t.Fatal("empty trace context must not create a span context")
	}
	if tc := CaptureTrace(context.Background()); !tc.IsZero() {
		t.Fatalf("no span in context, got %+v", tc)
	}
}
