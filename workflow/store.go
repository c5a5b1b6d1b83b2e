package workflow

import (
	"context"

	"github.com/claimflow/claimflow/id"
)

// ListOpts controls filtering and pagination for state list queries.
type ListOpts struct {
	// Status filters by workflow status. Empty means all statuses.
	Status Status
	// SubjectID filters by the business entity being processed.
	SubjectID string
	// WorkflowType filters by definition type.
	WorkflowType string
	// Limit is the maximum number of states to return. Zero means no limit.
	Limit int
	// Offset is the number of states to skip.
	Offset int
}

// Store defines the persistence contract consumed by the engine. The only
// guarantee the engine assumes is that a successful write is durable.
// Concurrent writers to distinct workflow IDs must be safe; concurrent
// execution of the same workflow ID is undefined behavior and must be
// prevented by the caller.
type Store interface {
	// CreateState persists a new workflow state.
	// Returns claimflow.ErrWorkflowAlreadyExists on ID collision.
	CreateState(ctx context.Context, state *State) error

	// GetState retrieves a workflow state by ID.
	// Returns claimflow.ErrWorkflowNotFound if absent.
	GetState(ctx context.Context, workflowID id.WorkflowID) (*State, error)

	// SaveState persists changes to an existing workflow state.
	// Returns claimflow.ErrWorkflowNotFound if absent.
	SaveState(ctx context.Context, state *State) error

	// AppendStepResult persists one step attempt record. Every attempt is
	// appended, so the history of a retried step is fully recorded.
	AppendStepResult(ctx context.Context, workflowID id.WorkflowID, result *StepResult) error

	// ListStepResults returns all persisted step records for a workflow
	// in append order.
	ListStepResults(ctx context.Context, workflowID id.WorkflowID) ([]*StepResult, error)

	// ListStates returns workflow states matching the given options,
	// ordered by StartedAt descending.
	ListStates(ctx context.Context, opts ListOpts) ([]*State, error)
}
