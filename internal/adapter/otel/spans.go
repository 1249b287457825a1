package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "quality-core"

// StartWorkflowSpan starts a span for a provisioning workflow.
func StartWorkflowSpan(ctx context.Context, workflow, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "workflow",
		trace.WithAttributes(
			attribute.String("workflow.name", workflow),
			attribute.String("tenant.id", tenantID),
		),
	)
}

// StartStepSpan starts a span for one saga step within a workflow.
func StartStepSpan(ctx context.Context, step string, remote bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "step",
		trace.WithAttributes(
			attribute.String("step.name", step),
			attribute.Bool("step.remote", remote),
		),
	)
}
