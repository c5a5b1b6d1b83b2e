package claimflow

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("claimflow: no store configured")
	ErrStoreClosed = errors.New("claimflow: store closed")

	// Not found errors.
	ErrWorkflowNotFound   = errors.New("claimflow: workflow not found")
	ErrStepResultNotFound = errors.New("claimflow: step result not found")

	// Conflict errors.
	ErrWorkflowAlreadyExists = errors.New("claimflow: workflow already exists")

	// Definition errors. Both are configuration faults detected at
	// construction time and are never retried.
	ErrInvalidDefinition = errors.New("claimflow: invalid workflow definition")
	ErrCyclicDependency  = errors.New("claimflow: cyclic step dependency")
	ErrExecutorNotFound  = errors.New("claimflow: executor not registered")

	// Execution errors.
	ErrStepTimeout        = errors.New("claimflow: step deadline exceeded")
	ErrDependencyUnmet    = errors.New("claimflow: step dependency not satisfied")
	ErrMaxRetriesExceeded = errors.New("claimflow: max retries exceeded")

	// ErrPersistence marks a failed store write. It is propagated to the
	// caller without marking the workflow FAILED, because durability of
	// the attempted transition is unknown.
	ErrPersistence = errors.New("claimflow: persistence failure")

	// State errors.
	ErrInvalidState         = errors.New("claimflow: invalid state transition")
	ErrWorkflowNotRetryable = errors.New("claimflow: workflow retry budget exhausted")
)
