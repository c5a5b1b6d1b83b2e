package workflow

import (
	"context"
	"maps"

	"github.com/claimflow/claimflow/id"
)

// StepContext carries everything an executor may read: the workflow and
// subject identity, the immutable subject payload, workflow metadata, and
// the outputs of already-completed steps (the data dependency, distinct
// from the ordering dependency expressed by DependsOn).
//
// Executors must treat the maps as read-only; the engine hands each
// attempt its own copy of the mutable parts.
type StepContext struct {
	WorkflowID   id.WorkflowID
	SubjectID    string
	WorkflowType string
	StepName     string
	Attempt      int

	Subject  map[string]any
	Metadata map[string]any

	// Outputs maps completed step names to their output snapshots.
	Outputs map[string]map[string]any
}

// Output returns the output snapshot of a completed upstream step.
func (sc *StepContext) Output(stepName string) (map[string]any, bool) {
	out, ok := sc.Outputs[stepName]
	return out, ok
}

// Executor is the external capability a step invokes. Implementations talk
// to claims exchanges, code lookup services, OCR pipelines, databases —
// the engine treats them as opaque.
//
// Executors must be idempotent or safely re-invokable: on timeout the
// invocation is abandoned, and on resume a step may be re-executed, so
// non-idempotent side effects degrade the contract from effectively
// exactly-once to at-least-once.
type Executor interface {
	// Execute performs the step's work and returns its output snapshot.
	// Implementations should honor ctx cancellation; the engine applies
	// the step's deadline to ctx and abandons the call once it expires.
	Execute(ctx context.Context, sc *StepContext) (map[string]any, error)
}

// ExecutorFunc adapts an ordinary function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sc *StepContext) (map[string]any, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, sc *StepContext) (map[string]any, error) {
	return f(ctx, sc)
}

// Attempt identifies one execution attempt of one step. It is the value
// middleware observes: enough to log, trace, and enforce the step's
// deadline without exposing the mutable state aggregate.
type Attempt struct {
	WorkflowID   id.WorkflowID
	SubjectID    string
	WorkflowType string
	Step         StepDefinition
	Number       int
}

// BuildStepContext assembles the executor-facing context for one attempt
// from the current state. Completed step outputs are copied so executors
// cannot mutate persisted results.
func BuildStepContext(state *State, step StepDefinition, attempt int) *StepContext {
	outputs := make(map[string]map[string]any, len(state.StepResults))
	for name, r := range state.StepResults {
		if r.Status == StepCompleted {
			outputs[name] = maps.Clone(r.Output)
		}
	}

	return &StepContext{
		WorkflowID:   state.WorkflowID,
		SubjectID:    state.SubjectID,
		WorkflowType: state.WorkflowType,
		StepName:     step.Name,
		Attempt:      attempt,
		Subject:      maps.Clone(state.Subject),
		Metadata:     maps.Clone(state.Metadata),
		Outputs:      outputs,
	}
}
