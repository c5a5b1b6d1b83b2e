package workflow_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/workflow"
)

func noopExecutor(_ context.Context, _ *workflow.StepContext) (map[string]any, error) {
	return nil, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := workflow.NewRegistry()
	reg.RegisterFunc("registration", noopExecutor)

	if _, ok := reg.Get("registration"); !ok {
		t.Error("Get(registration) not found after Register")
	}
	if _, ok := reg.Get("ghost"); ok {
		t.Error("Get(ghost) found unexpected executor")
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := workflow.NewRegistry()
	reg.RegisterFunc("coding", noopExecutor)
	reg.RegisterFunc("registration", noopExecutor)
	reg.RegisterFunc("eligibility", noopExecutor)

	want := []string{"coding", "eligibility", "registration"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v (sorted)", got, want)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	def, err := workflow.NewDefinition("claims", []workflow.StepDefinition{
		{Name: "registration"},
		{Name: "eligibility", Executor: "hcx_eligibility", DependsOn: []string{"registration"}},
	})
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}

	reg := workflow.NewRegistry()
	reg.RegisterFunc("registration", noopExecutor)
	reg.RegisterFunc("hcx_eligibility", noopExecutor)

	resolved, err := reg.Resolve(def)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Errorf("resolved %d executors, want 2", len(resolved))
	}
	if _, ok := resolved["eligibility"]; !ok {
		t.Error("resolved map should be keyed by step name")
	}
}

func TestRegistry_Resolve_MissingExecutor(t *testing.T) {
	def, err := workflow.NewDefinition("claims", []workflow.StepDefinition{
		{Name: "registration"},
	})
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}

	reg := workflow.NewRegistry()

	if _, err := reg.Resolve(def); !errors.Is(err, claimflow.ErrExecutorNotFound) {
		t.Errorf("Resolve error = %v, want errors.Is(ErrExecutorNotFound)", err)
	}
}

func TestStepContext_Output(t *testing.T) {
	state := sampleState()
	sc := workflow.BuildStepContext(state, workflow.StepDefinition{Name: "coding"}, 1)

	out, ok := sc.Output("registration")
	if !ok {
		t.Fatal("expected registration output in step context")
	}
	if out["patient_id"] != "PAT-7" {
		t.Errorf("output = %v", out)
	}

	// Only completed steps are exposed, and the copy is isolated.
	out["patient_id"] = "mutated"
	if state.StepResults["registration"].Output["patient_id"] != "PAT-7" {
		t.Error("step context shares output maps with state")
	}
}
