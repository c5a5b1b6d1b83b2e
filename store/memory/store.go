package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/workflow"
)

// Ensure Store implements the workflow persistence contract at compile time.
var _ workflow.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
// States are deep-copied on every read and write so callers never share
// mutable records with the store.
type Store struct {
	mu sync.RWMutex

	states map[string]*workflow.State
	steps  map[string][]*workflow.StepResult // key: workflow ID, append order
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		states: make(map[string]*workflow.State),
		steps:  make(map[string][]*workflow.StepResult),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// CreateState persists a new workflow state.
func (m *Store) CreateState(_ context.Context, state *workflow.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := state.WorkflowID.String()
	if _, exists := m.states[key]; exists {
		return claimflow.ErrWorkflowAlreadyExists
	}
	m.states[key] = state.Clone()
	return nil
}

// GetState retrieves a workflow state by ID.
func (m *Store) GetState(_ context.Context, workflowID id.WorkflowID) (*workflow.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[workflowID.String()]
	if !ok {
		return nil, claimflow.ErrWorkflowNotFound
	}
	return state.Clone(), nil
}

// SaveState persists changes to an existing workflow state.
func (m *Store) SaveState(_ context.Context, state *workflow.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := state.WorkflowID.String()
	if _, ok := m.states[key]; !ok {
		return claimflow.ErrWorkflowNotFound
	}
	m.states[key] = state.Clone()
	return nil
}

// AppendStepResult records one step attempt in append order.
func (m *Store) AppendStepResult(_ context.Context, workflowID id.WorkflowID, result *workflow.StepResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := workflowID.String()
	m.steps[key] = append(m.steps[key], result.Clone())
	return nil
}

// ListStepResults returns all step records for a workflow in append order.
func (m *Store) ListStepResults(_ context.Context, workflowID id.WorkflowID) ([]*workflow.StepResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[workflowID.String()]
	out := make([]*workflow.StepResult, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out, nil
}

// ListStates returns states matching the given options, ordered by
// StartedAt descending.
func (m *Store) ListStates(_ context.Context, opts workflow.ListOpts) ([]*workflow.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*workflow.State, 0, len(m.states))
	for _, s := range m.states {
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		if opts.SubjectID != "" && s.SubjectID != opts.SubjectID {
			continue
		}
		if opts.WorkflowType != "" && s.WorkflowType != opts.WorkflowType {
			continue
		}
		matches = append(matches, s)
	}

	sort.Slice(matches, func(i, k int) bool {
		return matches[i].StartedAt.After(matches[k].StartedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(matches) {
			return nil, nil
		}
		matches = matches[opts.Offset:]
	}
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	out := make([]*workflow.State, len(matches))
	for i, s := range matches {
		out[i] = s.Clone()
	}
	return out, nil
}

// Len reports the number of stored workflow states.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// StepResultsFor is a test helper that returns the latest record per step
// name, in first-seen order.
func (m *Store) StepResultsFor(workflowID id.WorkflowID) []*workflow.StepResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var order []string
	latest := make(map[string]*workflow.StepResult)
	for _, r := range m.steps[workflowID.String()] {
		if _, seen := latest[r.StepName]; !seen {
			order = append(order, r.StepName)
		}
		latest[r.StepName] = r
	}

	out := make([]*workflow.StepResult, 0, len(order))
	for _, name := range order {
		out = append(out, latest[name].Clone())
	}
	return out
}
