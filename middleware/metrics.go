package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/claimflow/claimflow/workflow"
)

// meterName is the instrumentation scope name for claimflow metrics.
const meterName = "github.com/claimflow/claimflow"

// Metrics returns middleware that records step execution metrics using
// the global OpenTelemetry MeterProvider:
//
//   - claimflow.step.duration (histogram, seconds)
//   - claimflow.step.executions (counter)
//
// Both instruments carry step, workflow_type, and status attributes,
// where status is "ok" or "error".
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, _ := meter.Float64Histogram(
		"claimflow.step.duration",
		metric.WithDescription("Step attempt execution duration"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"claimflow.step.executions",
		metric.WithDescription("Total step attempt executions"),
	)

	return func(ctx context.Context, a *workflow.Attempt, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		status := "ok"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("step", a.Step.Name),
			attribute.String("workflow_type", a.WorkflowType),
			attribute.String("status", status),
		)

		if duration != nil {
			duration.Record(ctx, elapsed.Seconds(), attrs)
		}
		if executions != nil {
			executions.Add(ctx, 1, attrs)
		}

		return err
	}
}
