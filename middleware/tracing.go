package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/claimflow/claimflow/workflow"
)

// tracerName is the instrumentation scope name for claimflow tracing.
const tracerName = "github.com/claimflow/claimflow"

// Tracing returns middleware that wraps each step attempt in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: claimflow.workflow.id, claimflow.workflow.type,
// claimflow.subject.id, claimflow.step, claimflow.attempt. On error, the
// span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, a *workflow.Attempt, next Handler) error {
		ctx, span := tracer.Start(ctx, "claimflow.step.execute",
			trace.WithAttributes(
				attribute.String("claimflow.workflow.id", a.WorkflowID.String()),
				attribute.String("claimflow.workflow.type", a.WorkflowType),
				attribute.String("claimflow.subject.id", a.SubjectID),
				attribute.String("claimflow.step", a.Step.Name),
				attribute.Int("claimflow.attempt", a.Number),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
