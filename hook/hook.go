package hook

import (
	"context"
	"time"

	"github.com/claimflow/claimflow/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Workflow lifecycle hooks
// ──────────────────────────────────────────────────

// WorkflowStarted is called when a workflow run begins or resumes.
type WorkflowStarted interface {
	OnWorkflowStarted(ctx context.Context, s *workflow.State) error
}

// WorkflowCompleted is called after a workflow run finishes successfully.
type WorkflowCompleted interface {
	OnWorkflowCompleted(ctx context.Context, s *workflow.State, elapsed time.Duration) error
}

// WorkflowFailed is called when a workflow run fails terminally.
type WorkflowFailed interface {
	OnWorkflowFailed(ctx context.Context, s *workflow.State, err error) error
}

// WorkflowCancelled is called when a run stops at a step boundary
// because its context was cancelled.
type WorkflowCancelled interface {
	OnWorkflowCancelled(ctx context.Context, s *workflow.State) error
}

// ──────────────────────────────────────────────────
// Step lifecycle hooks
// ──────────────────────────────────────────────────

// StepCompleted is called after a step finishes successfully.
type StepCompleted interface {
	OnStepCompleted(ctx context.Context, s *workflow.State, result *workflow.StepResult) error
}

// StepFailed is called when a step exhausts its retry budget.
type StepFailed interface {
	OnStepFailed(ctx context.Context, s *workflow.State, result *workflow.StepResult, err error) error
}

// StepSkipped is called when a step is skipped because a dependency
// did not complete.
type StepSkipped interface {
	OnStepSkipped(ctx context.Context, s *workflow.State, result *workflow.StepResult) error
}

// StepRetrying is called when a step attempt fails but retries remain.
type StepRetrying interface {
	OnStepRetrying(ctx context.Context, s *workflow.State, stepName string, attempt int, delay time.Duration) error
}
