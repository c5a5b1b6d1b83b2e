package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/claimflow/claimflow/hook"
	"github.com/claimflow/claimflow/workflow"
)

// meterName is the instrumentation scope name for claimflow observability.
const meterName = "github.com/claimflow/claimflow/observability"

// Compile-time interface checks.
var (
	_ hook.Extension         = (*MetricsExtension)(nil)
	_ hook.WorkflowStarted   = (*MetricsExtension)(nil)
	_ hook.WorkflowCompleted = (*MetricsExtension)(nil)
	_ hook.WorkflowFailed    = (*MetricsExtension)(nil)
	_ hook.WorkflowCancelled = (*MetricsExtension)(nil)
	_ hook.StepCompleted     = (*MetricsExtension)(nil)
	_ hook.StepFailed        = (*MetricsExtension)(nil)
	_ hook.StepSkipped       = (*MetricsExtension)(nil)
	_ hook.StepRetrying      = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via OpenTelemetry.
// Register it as a claimflow extension to automatically track workflow
// start, completion, failure, and cancellation rates, plus per-step
// completion, failure, skip, and retry counts.
type MetricsExtension struct {
	workflowStarted   metric.Int64Counter
	workflowCompleted metric.Int64Counter
	workflowFailed    metric.Int64Counter
	workflowCancelled metric.Int64Counter
	stepCompleted     metric.Int64Counter
	stepFailed        metric.Int64Counter
	stepSkipped       metric.Int64Counter
	stepRetried       metric.Int64Counter
	workflowDuration  metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Use this to inject a specific MeterProvider for
// testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	e := &MetricsExtension{}
	e.workflowStarted, _ = meter.Int64Counter("claimflow.workflow.started",
		metric.WithDescription("Total workflow runs started or resumed"))
	e.workflowCompleted, _ = meter.Int64Counter("claimflow.workflow.completed",
		metric.WithDescription("Total workflow runs completed"))
	e.workflowFailed, _ = meter.Int64Counter("claimflow.workflow.failed",
		metric.WithDescription("Total workflow runs failed terminally"))
	e.workflowCancelled, _ = meter.Int64Counter("claimflow.workflow.cancelled",
		metric.WithDescription("Total workflow runs cancelled at a step boundary"))
	e.stepCompleted, _ = meter.Int64Counter("claimflow.step.completed",
		metric.WithDescription("Total steps completed"))
	e.stepFailed, _ = meter.Int64Counter("claimflow.step.failed",
		metric.WithDescription("Total steps that exhausted their retry budget"))
	e.stepSkipped, _ = meter.Int64Counter("claimflow.step.skipped",
		metric.WithDescription("Total steps skipped over unmet dependencies"))
	e.stepRetried, _ = meter.Int64Counter("claimflow.step.retried",
		metric.WithDescription("Total step retry attempts scheduled"))
	e.workflowDuration, _ = meter.Float64Histogram("claimflow.workflow.duration",
		metric.WithDescription("End-to-end workflow run duration"),
		metric.WithUnit("s"))
	return e
}

// Name implements hook.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func workflowAttrs(s *workflow.State) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("workflow_type", s.WorkflowType),
	)
}

// ── Workflow lifecycle hooks ────────────────────────

// OnWorkflowStarted implements hook.WorkflowStarted.
func (m *MetricsExtension) OnWorkflowStarted(ctx context.Context, s *workflow.State) error {
	m.workflowStarted.Add(ctx, 1, workflowAttrs(s))
	return nil
}

// OnWorkflowCompleted implements hook.WorkflowCompleted.
func (m *MetricsExtension) OnWorkflowCompleted(ctx context.Context, s *workflow.State, elapsed time.Duration) error {
	m.workflowCompleted.Add(ctx, 1, workflowAttrs(s))
	m.workflowDuration.Record(ctx, elapsed.Seconds(), workflowAttrs(s))
	return nil
}

// OnWorkflowFailed implements hook.WorkflowFailed.
func (m *MetricsExtension) OnWorkflowFailed(ctx context.Context, s *workflow.State, _ error) error {
	m.workflowFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow_type", s.WorkflowType),
		attribute.String("step", s.ErrorStep),
	))
	return nil
}

// OnWorkflowCancelled implements hook.WorkflowCancelled.
func (m *MetricsExtension) OnWorkflowCancelled(ctx context.Context, s *workflow.State) error {
	m.workflowCancelled.Add(ctx, 1, workflowAttrs(s))
	return nil
}

// ── Step lifecycle hooks ────────────────────────────

func stepAttrs(s *workflow.State, stepName string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("workflow_type", s.WorkflowType),
		attribute.String("step", stepName),
	)
}

// OnStepCompleted implements hook.StepCompleted.
func (m *MetricsExtension) OnStepCompleted(ctx context.Context, s *workflow.State, r *workflow.StepResult) error {
	m.stepCompleted.Add(ctx, 1, stepAttrs(s, r.StepName))
	return nil
}

// OnStepFailed implements hook.StepFailed.
func (m *MetricsExtension) OnStepFailed(ctx context.Context, s *workflow.State, r *workflow.StepResult, _ error) error {
	m.stepFailed.Add(ctx, 1, stepAttrs(s, r.StepName))
	return nil
}

// OnStepSkipped implements hook.StepSkipped.
func (m *MetricsExtension) OnStepSkipped(ctx context.Context, s *workflow.State, r *workflow.StepResult) error {
	m.stepSkipped.Add(ctx, 1, stepAttrs(s, r.StepName))
	return nil
}

// OnStepRetrying implements hook.StepRetrying.
func (m *MetricsExtension) OnStepRetrying(ctx context.Context, s *workflow.State, stepName string, _ int, _ time.Duration) error {
	m.stepRetried.Add(ctx, 1, stepAttrs(s, stepName))
	return nil
}
