package workflow

import (
	"maps"
	"slices"
	"time"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
)

// Status represents the lifecycle state of a workflow.
type Status string

const (
	// StatusPending means the workflow has been created but not yet run.
	StatusPending Status = "pending"
	// StatusInProgress means the workflow is currently executing.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every step finished (completed or skipped).
	StatusCompleted Status = "completed"
	// StatusFailed means a step exhausted its retry budget.
	StatusFailed Status = "failed"
	// StatusPaused means execution was halted externally between steps.
	StatusPaused Status = "paused"
	// StatusCancelled means the caller cancelled execution at a step boundary.
	StatusCancelled Status = "cancelled"
)

// StepStatus represents the state of a single step within a workflow.
type StepStatus string

const (
	// StepPending means the step has not started.
	StepPending StepStatus = "pending"
	// StepRunning means an attempt is currently executing.
	StepRunning StepStatus = "running"
	// StepCompleted means the step finished successfully.
	StepCompleted StepStatus = "completed"
	// StepFailed means the attempt (or the whole step) failed.
	StepFailed StepStatus = "failed"
	// StepSkipped means the step's dependencies were not satisfied.
	StepSkipped StepStatus = "skipped"
	// StepRetrying means a failed attempt will be retried after backoff.
	StepRetrying StepStatus = "retrying"
)

// StepResult records one step's execution outcome. While a step is being
// retried the evolving result is persisted after every attempt, so the
// store always reflects the latest attempt.
type StepResult struct {
	ID           id.StepID      `json:"id"`
	WorkflowID   id.WorkflowID  `json:"workflow_id"`
	StepName     string         `json:"step_name"`
	StepNumber   int            `json:"step_number"`
	ExecutorName string         `json:"executor_name"`
	Status       StepStatus     `json:"status"`
	Input        map[string]any `json:"input,omitempty"`
	Output       map[string]any `json:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetail  map[string]any `json:"error_detail,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ExecutionMS  int64          `json:"execution_time_ms"`
	Attempt      int            `json:"attempt_number"`
}

// Clone returns a deep copy of the step result.
func (r *StepResult) Clone() *StepResult {
	cp := *r
	cp.Input = maps.Clone(r.Input)
	cp.Output = maps.Clone(r.Output)
	cp.ErrorDetail = maps.Clone(r.ErrorDetail)
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

// State is the mutable aggregate record of one workflow's progress.
// It is owned exclusively by the engine and persisted after every step
// transition.
type State struct {
	claimflow.Entity

	WorkflowID     id.WorkflowID          `json:"workflow_id"`
	SubjectID      string                 `json:"subject_id"`
	WorkflowType   string                 `json:"workflow_type"`
	CurrentStep    int                    `json:"current_step"`
	TotalSteps     int                    `json:"total_steps"`
	CompletedSteps []string               `json:"completed_steps"`
	Status         Status                 `json:"status"`
	StepResults    map[string]*StepResult `json:"step_results"`
	Subject        map[string]any         `json:"subject,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	ErrorStep      string                 `json:"error_step,omitempty"`

	// RetryCount is the workflow-level resume-and-retry counter,
	// distinct from per-step attempt budgets.
	RetryCount int `json:"retry_count"`

	TotalExecutionMS int64 `json:"total_execution_time_ms,omitempty"`
}

// IsComplete reports whether the workflow finished successfully.
func (s *State) IsComplete() bool { return s.Status == StatusCompleted }

// IsFailed reports whether the workflow failed terminally.
func (s *State) IsFailed() bool { return s.Status == StatusFailed }

// IsTerminal reports whether no further execution is possible without an
// explicit retry.
func (s *State) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed || s.Status == StatusCancelled
}

// CanRetry reports whether a failed workflow may be resumed and retried
// given the workflow-level retry budget.
func (s *State) CanRetry(maxWorkflowRetries int) bool {
	return s.IsFailed() && s.RetryCount < maxWorkflowRetries
}

// Progress returns completion as a percentage of steps processed.
func (s *State) Progress() float64 {
	if s.TotalSteps == 0 {
		return 0
	}
	return float64(s.CurrentStep) / float64(s.TotalSteps) * 100
}

// Clone returns a deep copy of the state. Stores use it to keep their
// internal records isolated from engine mutations.
func (s *State) Clone() *State {
	cp := *s
	cp.CompletedSteps = slices.Clone(s.CompletedSteps)
	cp.Subject = maps.Clone(s.Subject)
	cp.Metadata = maps.Clone(s.Metadata)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		cp.CompletedAt = &at
	}
	if s.StepResults != nil {
		cp.StepResults = make(map[string]*StepResult, len(s.StepResults))
		for name, r := range s.StepResults {
			cp.StepResults[name] = r.Clone()
		}
	}
	return &cp
}

// Result is the caller-facing summary returned by the engine's Run and
// Retry operations.
type Result struct {
	WorkflowID       id.WorkflowID          `json:"workflow_id"`
	SubjectID        string                 `json:"subject_id"`
	Status           Status                 `json:"status"`
	CompletedSteps   []string               `json:"completed_steps"`
	StepResults      map[string]*StepResult `json:"step_results"`
	TotalExecutionMS int64                  `json:"total_execution_time_ms"`
	StartedAt        time.Time              `json:"started_at"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
}

// ResultFromState builds a Result snapshot from the current state.
func ResultFromState(s *State) *Result {
	return &Result{
		WorkflowID:       s.WorkflowID,
		SubjectID:        s.SubjectID,
		Status:           s.Status,
		CompletedSteps:   slices.Clone(s.CompletedSteps),
		StepResults:      s.Clone().StepResults,
		TotalExecutionMS: s.TotalExecutionMS,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		ErrorMessage:     s.ErrorMessage,
	}
}
