package workflow_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/workflow"
)

func sampleState() *workflow.State {
	now := time.Now().UTC().Truncate(time.Millisecond)
	done := now.Add(2 * time.Second)
	return &workflow.State{
		Entity:         claimflow.Entity{CreatedAt: now, UpdatedAt: now},
		WorkflowID:     id.NewWorkflowID(),
		SubjectID:      "ENC-1001",
		WorkflowType:   "end_to_end_rcm",
		CurrentStep:    2,
		TotalSteps:     4,
		CompletedSteps: []string{"registration", "eligibility"},
		Status:         workflow.StatusInProgress,
		StepResults: map[string]*workflow.StepResult{
			"registration": {
				ID:           id.NewStepID(),
				StepName:     "registration",
				StepNumber:   1,
				ExecutorName: "registration",
				Status:       workflow.StepCompleted,
				Output:       map[string]any{"patient_id": "PAT-7"},
				StartedAt:    now,
				CompletedAt:  &done,
				ExecutionMS:  2000,
				Attempt:      1,
			},
		},
		Subject:   map[string]any{"encounter_id": "ENC-1001"},
		Metadata:  map[string]any{"source": "api"},
		StartedAt: now,
	}
}

func TestState_JSONRoundTrip(t *testing.T) {
	orig := sampleState()

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded workflow.State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.WorkflowID.String() != orig.WorkflowID.String() {
		t.Errorf("WorkflowID = %q, want %q", decoded.WorkflowID, orig.WorkflowID)
	}
	if decoded.Status != orig.Status {
		t.Errorf("Status = %q, want %q", decoded.Status, orig.Status)
	}
	if !reflect.DeepEqual(decoded.CompletedSteps, orig.CompletedSteps) {
		t.Errorf("CompletedSteps = %v, want %v", decoded.CompletedSteps, orig.CompletedSteps)
	}
	r := decoded.StepResults["registration"]
	if r == nil {
		t.Fatal("missing registration result after round trip")
	}
	if r.Status != workflow.StepCompleted || r.Attempt != 1 {
		t.Errorf("result = %+v, want completed attempt 1", r)
	}
}

func TestState_Clone_IsDeep(t *testing.T) {
	orig := sampleState()
	cp := orig.Clone()

	cp.CompletedSteps[0] = "mutated"
	cp.Subject["encounter_id"] = "mutated"
	cp.StepResults["registration"].Output["patient_id"] = "mutated"

	if orig.CompletedSteps[0] != "registration" {
		t.Error("Clone shares CompletedSteps backing array")
	}
	if orig.Subject["encounter_id"] != "ENC-1001" {
		t.Error("Clone shares Subject map")
	}
	if orig.StepResults["registration"].Output["patient_id"] != "PAT-7" {
		t.Error("Clone shares step result output map")
	}
}

func TestState_Predicates(t *testing.T) {
	s := &workflow.State{Status: workflow.StatusFailed, RetryCount: 2}

	if !s.IsFailed() || s.IsComplete() {
		t.Error("failed state predicates wrong")
	}
	if !s.IsTerminal() {
		t.Error("failed is terminal")
	}
	if !s.CanRetry(3) {
		t.Error("CanRetry(3) = false with RetryCount 2")
	}
	if s.CanRetry(2) {
		t.Error("CanRetry(2) = true with RetryCount 2")
	}

	s.Status = workflow.StatusInProgress
	if s.IsTerminal() {
		t.Error("in_progress is not terminal")
	}
	if s.CanRetry(10) {
		t.Error("only failed workflows are retryable")
	}
}

func TestState_Progress(t *testing.T) {
	s := &workflow.State{CurrentStep: 2, TotalSteps: 4}
	if got := s.Progress(); got != 50 {
		t.Errorf("Progress() = %v, want 50", got)
	}

	empty := &workflow.State{}
	if got := empty.Progress(); got != 0 {
		t.Errorf("Progress() on empty = %v, want 0", got)
	}
}

func TestResultFromState(t *testing.T) {
	s := sampleState()
	res := workflow.ResultFromState(s)

	if res.WorkflowID.String() != s.WorkflowID.String() {
		t.Errorf("WorkflowID = %q, want %q", res.WorkflowID, s.WorkflowID)
	}
	if res.SubjectID != s.SubjectID || res.Status != s.Status {
		t.Errorf("result header = %+v", res)
	}

	// The snapshot must be isolated from later state mutation.
	res.StepResults["registration"].Output["patient_id"] = "mutated"
	if s.StepResults["registration"].Output["patient_id"] != "PAT-7" {
		t.Error("Result shares step result maps with State")
	}
}
