package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/workflow"
)

// CreateState persists a new workflow state.
func (s *Store) CreateState(ctx context.Context, state *workflow.State) error {
	m, err := toWorkflowModel(state)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return claimflow.ErrWorkflowAlreadyExists
		}
		return fmt.Errorf("claimflow/postgres: create state: %w", err)
	}
	return nil
}

// GetState retrieves a workflow state by ID.
func (s *Store) GetState(ctx context.Context, workflowID id.WorkflowID) (*workflow.State, error) {
	m := new(workflowModel)
	err := s.db.NewSelect().Model(m).
		Where("workflow_id = ?", workflowID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, claimflow.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("claimflow/postgres: get state: %w", err)
	}
	return fromWorkflowModel(m)
}

// SaveState persists changes to an existing workflow state.
func (s *Store) SaveState(ctx context.Context, state *workflow.State) error {
	m, err := toWorkflowModel(state)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("claimflow/postgres: save state: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return claimflow.ErrWorkflowNotFound
	}
	return nil
}

// AppendStepResult appends one step attempt record to the history log.
func (s *Store) AppendStepResult(ctx context.Context, workflowID id.WorkflowID, result *workflow.StepResult) error {
	m, err := toStepResultModel(workflowID, result)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("claimflow/postgres: append step result: %w", err)
	}
	return nil
}

// ListStepResults returns all step records for a workflow in append order.
func (s *Store) ListStepResults(ctx context.Context, workflowID id.WorkflowID) ([]*workflow.StepResult, error) {
	var models []stepResultModel
	err := s.db.NewSelect().Model(&models).
		Where("workflow_id = ?", workflowID.String()).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: list step results: %w", err)
	}

	results := make([]*workflow.StepResult, 0, len(models))
	for i := range models {
		r, convErr := fromStepResultModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		results = append(results, r)
	}
	return results, nil
}

// ListStates returns workflow states matching the given options, ordered
// by started_at descending.
func (s *Store) ListStates(ctx context.Context, opts workflow.ListOpts) ([]*workflow.State, error) {
	var models []workflowModel
	q := s.db.NewSelect().Model(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.SubjectID != "" {
		q = q.Where("subject_id = ?", opts.SubjectID)
	}
	if opts.WorkflowType != "" {
		q = q.Where("workflow_type = ?", opts.WorkflowType)
	}

	q = q.Order("started_at DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: list states: %w", err)
	}

	states := make([]*workflow.State, 0, len(models))
	for i := range models {
		state, convErr := fromWorkflowModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		states = append(states, state)
	}
	return states, nil
}
