package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "metallisense"

// StartAnalysisSpan starts a span for a full analysis request.
func StartAnalysisSpan(ctx context.Context, envelopeID, gradeID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "analysis",
		trace.WithAttributes(
			attribute.String("envelope.id", envelopeID),
			attribute.String("grade.id", gradeID),
		),
	)
}

// StartAgentSpan starts a span for a single agent invocation within an analysis.
func StartAgentSpan(ctx context.Context, agentName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent",
		trace.WithAttributes(
			attribute.String("agent.name", agentName),
		),
	)
}
