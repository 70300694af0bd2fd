package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the W3C trace context of a span, kept as strings so it can
// be persisted with deferred work (outbox rows, reminder jobs).
type TraceContext struct {
	Parent string
	State  string
}

// CaptureTrace snapshots the span in ctx.
func CaptureTrace(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Parent: carrier["traceparent"], State: carrier["tracestate"]}
}

func (tc TraceContext) IsZero() bool { return tc.Parent == "" }

// Context returns ctx carrying tc as the remote parent. A zero tc leaves ctx
// unchanged.
func (tc TraceContext) Context(ctx context.Context) context.Context {
	if tc.IsZero() {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": tc.Parent,
		"tracestate":  tc.State,
	})
}
