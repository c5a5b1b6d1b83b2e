package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/workflow"
)

// CreateState persists a new workflow state.
func (s *Store) CreateState(ctx context.Context, state *workflow.State) error {
	wID := state.WorkflowID.String()
	key := workflowKey(wID)

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("claimflow/redis: encode state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("claimflow/redis: create state: %w", err)
	}
	if !ok {
		return claimflow.ErrWorkflowAlreadyExists
	}

	if err := s.client.SAdd(ctx, workflowIDsKey, wID).Err(); err != nil {
		return fmt.Errorf("claimflow/redis: index state: %w", err)
	}
	return nil
}

// GetState retrieves a workflow state by ID.
func (s *Store) GetState(ctx context.Context, workflowID id.WorkflowID) (*workflow.State, error) {
	data, err := s.client.Get(ctx, workflowKey(workflowID.String())).Bytes()
	if err != nil {
		if isNil(err) {
			return nil, claimflow.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("claimflow/redis: get state: %w", err)
	}

	state := new(workflow.State)
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("claimflow/redis: decode state: %w", err)
	}
	return state, nil
}

// SaveState persists changes to an existing workflow state.
func (s *Store) SaveState(ctx context.Context, state *workflow.State) error {
	key := workflowKey(state.WorkflowID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("claimflow/redis: save state exists: %w", err)
	}
	if exists == 0 {
		return claimflow.ErrWorkflowNotFound
	}

	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("claimflow/redis: encode state: %w", err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("claimflow/redis: save state: %w", err)
	}
	return nil
}

// AppendStepResult appends one step attempt record to the history list.
func (s *Store) AppendStepResult(ctx context.Context, workflowID id.WorkflowID, result *workflow.StepResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("claimflow/redis: encode step result: %w", err)
	}
	if err := s.client.RPush(ctx, stepResultsKey(workflowID.String()), data).Err(); err != nil {
		return fmt.Errorf("claimflow/redis: append step result: %w", err)
	}
	return nil
}

// ListStepResults returns all step records for a workflow in append order.
func (s *Store) ListStepResults(ctx context.Context, workflowID id.WorkflowID) ([]*workflow.StepResult, error) {
	raw, err := s.client.LRange(ctx, stepResultsKey(workflowID.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("claimflow/redis: list step results: %w", err)
	}

	results := make([]*workflow.StepResult, 0, len(raw))
	for _, item := range raw {
		r := new(workflow.StepResult)
		if err := json.Unmarshal([]byte(item), r); err != nil {
			return nil, fmt.Errorf("claimflow/redis: decode step result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// ListStates returns workflow states matching the given options, ordered
// by StartedAt descending.
func (s *Store) ListStates(ctx context.Context, opts workflow.ListOpts) ([]*workflow.State, error) {
	ids, err := s.client.SMembers(ctx, workflowIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("claimflow/redis: list states smembers: %w", err)
	}

	var states []*workflow.State
	for _, wID := range ids {
		data, getErr := s.client.Get(ctx, workflowKey(wID)).Bytes()
		if getErr != nil {
			if isNil(getErr) {
				continue
			}
			return nil, fmt.Errorf("claimflow/redis: list states get %s: %w", wID, getErr)
		}
		state := new(workflow.State)
		if err := json.Unmarshal(data, state); err != nil {
			return nil, fmt.Errorf("claimflow/redis: decode state %s: %w", wID, err)
		}
		if opts.Status != "" && state.Status != opts.Status {
			continue
		}
		if opts.SubjectID != "" && state.SubjectID != opts.SubjectID {
			continue
		}
		if opts.WorkflowType != "" && state.WorkflowType != opts.WorkflowType {
			continue
		}
		states = append(states, state)
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].StartedAt.After(states[j].StartedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(states) {
			return nil, nil
		}
		states = states[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(states) {
		states = states[:opts.Limit]
	}
	return states, nil
}
