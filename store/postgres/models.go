package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/workflow"
)

// ── Workflow state model ──────────────────────────────────────────

type workflowModel struct {
	bun.BaseModel `bun:"table:claimflow_workflows"`

	WorkflowID       string          `bun:"workflow_id,pk"`
	SubjectID        string          `bun:"subject_id,notnull"`
	WorkflowType     string          `bun:"workflow_type,notnull"`
	CurrentStep      int             `bun:"current_step,notnull,default:0"`
	TotalSteps       int             `bun:"total_steps,notnull,default:0"`
	CompletedSteps   json.RawMessage `bun:"completed_steps,type:jsonb"`
	Status           string          `bun:"status,notnull,default:'pending'"`
	StepResults      json.RawMessage `bun:"step_results,type:jsonb"`
	Subject          json.RawMessage `bun:"subject,type:jsonb"`
	Metadata         json.RawMessage `bun:"metadata,type:jsonb"`
	StartedAt        time.Time       `bun:"started_at,nullzero"`
	CompletedAt      *time.Time      `bun:"completed_at"`
	ErrorMessage     string          `bun:"error_message"`
	ErrorStep        string          `bun:"error_step"`
	RetryCount       int             `bun:"retry_count,notnull,default:0"`
	TotalExecutionMS int64           `bun:"total_execution_time_ms,notnull,default:0"`
	CreatedAt        time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt        time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

func toWorkflowModel(state *workflow.State) (*workflowModel, error) {
	completed, err := marshalJSON(state.CompletedSteps)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode completed_steps: %w", err)
	}
	results, err := marshalJSON(state.StepResults)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode step_results: %w", err)
	}
	subject, err := marshalJSON(state.Subject)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode subject: %w", err)
	}
	metadata, err := marshalJSON(state.Metadata)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode metadata: %w", err)
	}

	return &workflowModel{
		WorkflowID:       state.WorkflowID.String(),
		SubjectID:        state.SubjectID,
		WorkflowType:     state.WorkflowType,
		CurrentStep:      state.CurrentStep,
		TotalSteps:       state.TotalSteps,
		CompletedSteps:   completed,
		Status:           string(state.Status),
		StepResults:      results,
		Subject:          subject,
		Metadata:         metadata,
		StartedAt:        state.StartedAt,
		CompletedAt:      state.CompletedAt,
		ErrorMessage:     state.ErrorMessage,
		ErrorStep:        state.ErrorStep,
		RetryCount:       state.RetryCount,
		TotalExecutionMS: state.TotalExecutionMS,
		CreatedAt:        state.CreatedAt,
		UpdatedAt:        state.UpdatedAt,
	}, nil
}

func fromWorkflowModel(m *workflowModel) (*workflow.State, error) {
	parsedID, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: parse workflow id %q: %w", m.WorkflowID, err)
	}

	state := &workflow.State{
		Entity: claimflow.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		WorkflowID:       parsedID,
		SubjectID:        m.SubjectID,
		WorkflowType:     m.WorkflowType,
		CurrentStep:      m.CurrentStep,
		TotalSteps:       m.TotalSteps,
		Status:           workflow.Status(m.Status),
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		ErrorMessage:     m.ErrorMessage,
		ErrorStep:        m.ErrorStep,
		RetryCount:       m.RetryCount,
		TotalExecutionMS: m.TotalExecutionMS,
	}

	if err := unmarshalJSON(m.CompletedSteps, &state.CompletedSteps); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode completed_steps: %w", err)
	}
	if err := unmarshalJSON(m.StepResults, &state.StepResults); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode step_results: %w", err)
	}
	if err := unmarshalJSON(m.Subject, &state.Subject); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode subject: %w", err)
	}
	if err := unmarshalJSON(m.Metadata, &state.Metadata); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode metadata: %w", err)
	}

	return state, nil
}

// ── Step result model ─────────────────────────────────────────────

type stepResultModel struct {
	bun.BaseModel `bun:"table:claimflow_step_results"`

	Seq          int64           `bun:"seq,pk,autoincrement"`
	ID           string          `bun:"id,notnull"`
	WorkflowID   string          `bun:"workflow_id,notnull"`
	StepName     string          `bun:"step_name,notnull"`
	StepNumber   int             `bun:"step_number,notnull,default:0"`
	ExecutorName string          `bun:"executor_name,notnull,default:''"`
	Status       string          `bun:"status,notnull"`
	Input        json.RawMessage `bun:"input,type:jsonb"`
	Output       json.RawMessage `bun:"output,type:jsonb"`
	ErrorMessage string          `bun:"error_message"`
	ErrorDetail  json.RawMessage `bun:"error_detail,type:jsonb"`
	StartedAt    time.Time       `bun:"started_at,notnull"`
	CompletedAt  *time.Time      `bun:"completed_at"`
	ExecutionMS  int64           `bun:"execution_time_ms,notnull,default:0"`
	Attempt      int             `bun:"attempt_number,notnull,default:1"`
}

func toStepResultModel(workflowID id.WorkflowID, r *workflow.StepResult) (*stepResultModel, error) {
	input, err := marshalJSON(r.Input)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode step input: %w", err)
	}
	output, err := marshalJSON(r.Output)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode step output: %w", err)
	}
	detail, err := marshalJSON(r.ErrorDetail)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: encode step error_detail: %w", err)
	}

	return &stepResultModel{
		ID:           r.ID.String(),
		WorkflowID:   workflowID.String(),
		StepName:     r.StepName,
		StepNumber:   r.StepNumber,
		ExecutorName: r.ExecutorName,
		Status:       string(r.Status),
		Input:        input,
		Output:       output,
		ErrorMessage: r.ErrorMessage,
		ErrorDetail:  detail,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		ExecutionMS:  r.ExecutionMS,
		Attempt:      r.Attempt,
	}, nil
}

func fromStepResultModel(m *stepResultModel) (*workflow.StepResult, error) {
	parsedID, err := id.ParseStepID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: parse step id %q: %w", m.ID, err)
	}
	parsedWorkflowID, err := id.ParseWorkflowID(m.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("claimflow/postgres: parse workflow id %q: %w", m.WorkflowID, err)
	}

	r := &workflow.StepResult{
		ID:           parsedID,
		WorkflowID:   parsedWorkflowID,
		StepName:     m.StepName,
		StepNumber:   m.StepNumber,
		ExecutorName: m.ExecutorName,
		Status:       workflow.StepStatus(m.Status),
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		ExecutionMS:  m.ExecutionMS,
		Attempt:      m.Attempt,
	}

	if err := unmarshalJSON(m.Input, &r.Input); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode step input: %w", err)
	}
	if err := unmarshalJSON(m.Output, &r.Output); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode step output: %w", err)
	}
	if err := unmarshalJSON(m.ErrorDetail, &r.ErrorDetail); err != nil {
		return nil, fmt.Errorf("claimflow/postgres: decode step error_detail: %w", err)
	}

	return r, nil
}

// marshalJSON encodes v, mapping empty collections to SQL NULL.
func marshalJSON(v any) (json.RawMessage, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]*workflow.StepResult:
		if len(val) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalJSON(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
