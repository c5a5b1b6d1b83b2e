package memory_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/store/memory"
	"github.com/claimflow/claimflow/workflow"
)

func newTestState() *workflow.State {
	return &workflow.State{
		Entity:       claimflow.NewEntity(),
		WorkflowID:   id.NewWorkflowID(),
		SubjectID:    "enc_001",
		WorkflowType: "rcm_pipeline",
		TotalSteps:   4,
		Status:       workflow.StatusPending,
		StepResults:  make(map[string]*workflow.StepResult),
		Subject:      map[string]any{"patient_id": "pat_001"},
		Metadata:     map[string]any{"source": "test"},
		StartedAt:    time.Now().UTC(),
	}
}

func newStepResult(wfID id.WorkflowID, name string, attempt int) *workflow.StepResult {
	started := time.Now().UTC()
	completed := started.Add(50 * time.Millisecond)
	return &workflow.StepResult{
		ID:           id.NewStepID(),
		WorkflowID:   wfID,
		StepName:     name,
		ExecutorName: name,
		Status:       workflow.StepCompleted,
		Output:       map[string]any{"ok": true},
		StartedAt:    started,
		CompletedAt:  &completed,
		ExecutionMS:  50,
		Attempt:      attempt,
	}
}

func TestStore_CreateAndGetState(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	state := newTestState()

	if err := s.CreateState(ctx, state); err != nil {
		t.Fatalf("CreateState: %v", err)
	}

	got, err := s.GetState(ctx, state.WorkflowID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !reflect.DeepEqual(got, state) {
		t.Errorf("loaded state differs from saved state:\ngot  %+v\nwant %+v", got, state)
	}
}

func TestStore_CreateState_Duplicate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	state := newTestState()

	if err := s.CreateState(ctx, state); err != nil {
		t.Fatalf("CreateState: %v", err)
	}
	err := s.CreateState(ctx, state)
	if !errors.Is(err, claimflow.ErrWorkflowAlreadyExists) {
		t.Fatalf("expected ErrWorkflowAlreadyExists, got %v", err)
	}
}

func TestStore_GetState_NotFound(t *testing.T) {
	s := memory.New()
	_, err := s.GetState(context.Background(), id.NewWorkflowID())
	if !errors.Is(err, claimflow.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestStore_SaveState_RoundTrip(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	state := newTestState()

	if err := s.CreateState(ctx, state); err != nil {
		t.Fatalf("CreateState: %v", err)
	}

	state.Status = workflow.StatusInProgress
	state.CurrentStep = 2
	state.CompletedSteps = []string{"registration", "eligibility"}
	state.StepResults["registration"] = newStepResult(state.WorkflowID, "registration", 1)

	if err := s.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := s.GetState(ctx, state.WorkflowID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !reflect.DeepEqual(got, state) {
		t.Errorf("loaded state differs from saved state:\ngot  %+v\nwant %+v", got, state)
	}
}

func TestStore_SaveState_NotFound(t *testing.T) {
	s := memory.New()
	err := s.SaveState(context.Background(), newTestState())
	if !errors.Is(err, claimflow.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestStore_IsolatesStoredState(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	state := newTestState()

	if err := s.CreateState(ctx, state); err != nil {
		t.Fatalf("CreateState: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	state.Status = workflow.StatusFailed
	state.Subject["patient_id"] = "mutated"

	got, err := s.GetState(ctx, state.WorkflowID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if got.Status != workflow.StatusPending {
		t.Errorf("stored status mutated: got %q", got.Status)
	}
	if got.Subject["patient_id"] != "pat_001" {
		t.Errorf("stored subject mutated: got %v", got.Subject["patient_id"])
	}
}

func TestStore_AppendAndListStepResults(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	r1 := newStepResult(wfID, "registration", 1)
	r2 := newStepResult(wfID, "eligibility", 1)
	r2.Status = workflow.StepRetrying
	r3 := newStepResult(wfID, "eligibility", 2)

	for _, r := range []*workflow.StepResult{r1, r2, r3} {
		if err := s.AppendStepResult(ctx, wfID, r); err != nil {
			t.Fatalf("AppendStepResult: %v", err)
		}
	}

	records, err := s.ListStepResults(ctx, wfID)
	if err != nil {
		t.Fatalf("ListStepResults: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Append order preserved; retried step keeps its full history.
	wantNames := []string{"registration", "eligibility", "eligibility"}
	wantAttempts := []int{1, 1, 2}
	for i := range records {
		if records[i].StepName != wantNames[i] {
			t.Errorf("record[%d].StepName = %q, want %q", i, records[i].StepName, wantNames[i])
		}
		if records[i].Attempt != wantAttempts[i] {
			t.Errorf("record[%d].Attempt = %d, want %d", i, records[i].Attempt, wantAttempts[i])
		}
	}
}

func TestStore_ListStates_Filters(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	completed := newTestState()
	completed.Status = workflow.StatusCompleted
	completed.StartedAt = time.Now().UTC().Add(-2 * time.Hour)

	inProgress := newTestState()
	inProgress.Status = workflow.StatusInProgress
	inProgress.SubjectID = "enc_002"
	inProgress.StartedAt = time.Now().UTC().Add(-1 * time.Hour)

	other := newTestState()
	other.WorkflowType = "eligibility_only"
	other.StartedAt = time.Now().UTC()

	for _, st := range []*workflow.State{completed, inProgress, other} {
		if err := s.CreateState(ctx, st); err != nil {
			t.Fatalf("CreateState: %v", err)
		}
	}

	byStatus, err := s.ListStates(ctx, workflow.ListOpts{Status: workflow.StatusInProgress})
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].WorkflowID != inProgress.WorkflowID {
		t.Errorf("status filter: expected only the in-progress workflow, got %d states", len(byStatus))
	}

	byType, err := s.ListStates(ctx, workflow.ListOpts{WorkflowType: "rcm_pipeline"})
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("type filter: expected 2 states, got %d", len(byType))
	}

	bySubject, err := s.ListStates(ctx, workflow.ListOpts{SubjectID: "enc_002"})
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(bySubject) != 1 || bySubject[0].SubjectID != "enc_002" {
		t.Errorf("subject filter: expected only enc_002, got %d states", len(bySubject))
	}
}

func TestStore_ListStates_OrderAndPagination(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []id.WorkflowID
	for i := 0; i < 5; i++ {
		st := newTestState()
		st.StartedAt = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, st.WorkflowID)
		if err := s.CreateState(ctx, st); err != nil {
			t.Fatalf("CreateState: %v", err)
		}
	}

	all, err := s.ListStates(ctx, workflow.ListOpts{})
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 states, got %d", len(all))
	}
	// Newest first.
	if all[0].WorkflowID != ids[4] {
		t.Errorf("expected newest state first, got %s", all[0].WorkflowID)
	}

	page, err := s.ListStates(ctx, workflow.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 states, got %d", len(page))
	}
	if page[0].WorkflowID != ids[3] || page[1].WorkflowID != ids[2] {
		t.Errorf("unexpected page contents")
	}

	empty, err := s.ListStates(ctx, workflow.ListOpts{Offset: 10})
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d states", len(empty))
	}
}

func TestStore_ConcurrentDistinctWorkflows(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			st := newTestState()
			if err := s.CreateState(ctx, st); err != nil {
				done <- err
				return
			}
			st.Status = workflow.StatusCompleted
			if err := s.SaveState(ctx, st); err != nil {
				done <- err
				return
			}
			done <- s.AppendStepResult(ctx, st.WorkflowID, newStepResult(st.WorkflowID, "registration", 1))
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent op: %v", err)
		}
	}
	if s.Len() != 10 {
		t.Errorf("expected 10 states, got %d", s.Len())
	}
}
