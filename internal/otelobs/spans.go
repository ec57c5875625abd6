package otelobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Standard attribute keys for orchestrator spans.
var (
	AttrHatID       = attribute.Key("ralph.hat.id")
	AttrIteration   = attribute.Key("ralph.iteration")
	AttrCostUSD     = attribute.Key("ralph.cost.usd")
	AttrSuccess     = attribute.Key("ralph.iteration.success")
	AttrTermination = attribute.Key("ralph.termination.reason")
)

// StartIterationSpan starts the internal span covering one EventLoop
// iteration: building the prompt, running the executor, and ingesting the
// resulting events.
func StartIterationSpan(ctx context.Context, tracer trace.Tracer, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ralph.iteration",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartExecutorSpan starts a client span around one subprocess backend
// invocation.
func StartExecutorSpan(ctx context.Context, tracer trace.Tracer, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ralph.executor.execute",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
