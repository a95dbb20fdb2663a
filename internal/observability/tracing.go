// Package observability wires OpenTelemetry tracing and Prometheus-exported
// metrics for the pipeline's hot paths, grounded on the teacher's
// internal/domain/agent/react/tracing.go span-naming idiom.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "betterclaw.pipeline"

	SpanProcessEvent    = "betterclaw.pipeline.process_event"
	SpanPatternCompute  = "betterclaw.patterns.compute"
	SpanProactiveScan   = "betterclaw.proactive.scan"

	AttrSubscriptionID = "betterclaw.subscription_id"
	AttrDecision       = "betterclaw.decision"
	AttrTriggerID      = "betterclaw.trigger_id"
)

// StartSpan opens a span on the shared tracer with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) and closes span.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
