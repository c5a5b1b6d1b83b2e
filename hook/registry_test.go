package hook_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/claimflow/claimflow/hook"
	"github.com/claimflow/claimflow/workflow"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnWorkflowStarted(_ context.Context, _ *workflow.State) error {
	e.calls = append(e.calls, "OnWorkflowStarted")
	return nil
}

func (e *allHooksExt) OnWorkflowCompleted(_ context.Context, _ *workflow.State, _ time.Duration) error {
	e.calls = append(e.calls, "OnWorkflowCompleted")
	return nil
}

func (e *allHooksExt) OnWorkflowFailed(_ context.Context, _ *workflow.State, _ error) error {
	e.calls = append(e.calls, "OnWorkflowFailed")
	return nil
}

func (e *allHooksExt) OnWorkflowCancelled(_ context.Context, _ *workflow.State) error {
	e.calls = append(e.calls, "OnWorkflowCancelled")
	return nil
}

func (e *allHooksExt) OnStepCompleted(_ context.Context, _ *workflow.State, _ *workflow.StepResult) error {
	e.calls = append(e.calls, "OnStepCompleted")
	return nil
}

func (e *allHooksExt) OnStepFailed(_ context.Context, _ *workflow.State, _ *workflow.StepResult, _ error) error {
	e.calls = append(e.calls, "OnStepFailed")
	return nil
}

func (e *allHooksExt) OnStepSkipped(_ context.Context, _ *workflow.State, _ *workflow.StepResult) error {
	e.calls = append(e.calls, "OnStepSkipped")
	return nil
}

func (e *allHooksExt) OnStepRetrying(_ context.Context, _ *workflow.State, _ string, _ int, _ time.Duration) error {
	e.calls = append(e.calls, "OnStepRetrying")
	return nil
}

// stepOnlyExt only implements step-related hooks.
type stepOnlyExt struct {
	calls []string
}

func (e *stepOnlyExt) Name() string { return "step-only" }

func (e *stepOnlyExt) OnStepCompleted(_ context.Context, _ *workflow.State, _ *workflow.StepResult) error {
	e.calls = append(e.calls, "OnStepCompleted")
	return nil
}

func (e *stepOnlyExt) OnStepFailed(_ context.Context, _ *workflow.State, _ *workflow.StepResult, _ error) error {
	e.calls = append(e.calls, "OnStepFailed")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnStepCompleted(_ context.Context, _ *workflow.State, _ *workflow.StepResult) error {
	return errors.New("boom")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	all := &allHooksExt{}
	so := &stepOnlyExt{}
	r.Register(all)
	r.Register(so)

	ctx := context.Background()
	s := &workflow.State{WorkflowType: "rcm_pipeline"}
	res := &workflow.StepResult{StepName: "eligibility"}

	// Both implement OnStepCompleted → both called.
	r.EmitStepCompleted(ctx, s, res)
	if len(all.calls) != 1 || all.calls[0] != "OnStepCompleted" {
		t.Fatalf("all: expected [OnStepCompleted], got %v", all.calls)
	}
	if len(so.calls) != 1 || so.calls[0] != "OnStepCompleted" {
		t.Fatalf("so: expected [OnStepCompleted], got %v", so.calls)
	}

	// Only all implements OnWorkflowStarted → so not called.
	r.EmitWorkflowStarted(ctx, s)
	if len(all.calls) != 2 || all.calls[1] != "OnWorkflowStarted" {
		t.Fatalf("all: expected OnWorkflowStarted as 2nd, got %v", all.calls)
	}
	if len(so.calls) != 1 {
		t.Fatalf("so: should still have 1 call, got %v", so.calls)
	}
}

func TestRegistry_AllWorkflowHooksFire(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	s := &workflow.State{WorkflowType: "rcm_pipeline"}

	r.EmitWorkflowStarted(ctx, s)
	r.EmitWorkflowCompleted(ctx, s, 2*time.Second)
	r.EmitWorkflowFailed(ctx, s, errors.New("wf fail"))
	r.EmitWorkflowCancelled(ctx, s)

	expected := []string{
		"OnWorkflowStarted", "OnWorkflowCompleted",
		"OnWorkflowFailed", "OnWorkflowCancelled",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_AllStepHooksFire(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	s := &workflow.State{WorkflowType: "rcm_pipeline"}
	res := &workflow.StepResult{StepName: "eligibility"}

	r.EmitStepCompleted(ctx, s, res)
	r.EmitStepFailed(ctx, s, res, errors.New("step fail"))
	r.EmitStepSkipped(ctx, s, res)
	r.EmitStepRetrying(ctx, s, "eligibility", 1, time.Second)

	expected := []string{
		"OnStepCompleted", "OnStepFailed", "OnStepSkipped", "OnStepRetrying",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	failing := &failingExt{}
	all := &allHooksExt{}

	// Register failing first, then all-hooks. Both should be called.
	r.Register(failing)
	r.Register(all)

	ctx := context.Background()
	s := &workflow.State{}
	res := &workflow.StepResult{StepName: "x"}

	// No panic, no error propagation. allHooksExt should still fire.
	r.EmitStepCompleted(ctx, s, res)

	if len(all.calls) != 1 || all.calls[0] != "OnStepCompleted" {
		t.Fatalf("all: expected [OnStepCompleted] despite failing ext, got %v", all.calls)
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := hook.NewRegistry(slog.Default())
	ctx := context.Background()

	// None of these should panic or error.
	r.EmitWorkflowStarted(ctx, &workflow.State{})
	r.EmitWorkflowCompleted(ctx, &workflow.State{}, time.Second)
	r.EmitWorkflowFailed(ctx, &workflow.State{}, errors.New("x"))
	r.EmitWorkflowCancelled(ctx, &workflow.State{})
	r.EmitStepCompleted(ctx, &workflow.State{}, &workflow.StepResult{})
	r.EmitStepFailed(ctx, &workflow.State{}, &workflow.StepResult{}, errors.New("x"))
	r.EmitStepSkipped(ctx, &workflow.State{}, &workflow.StepResult{})
	r.EmitStepRetrying(ctx, &workflow.State{}, "s", 1, time.Second)
}

func TestRegistry_MultipleExtensionsOrderPreserved(t *testing.T) {
	r := hook.NewRegistry(slog.Default())
	ext1 := &allHooksExt{}
	ext2 := &allHooksExt{}
	r.Register(ext1)
	r.Register(ext2)

	ctx := context.Background()
	r.EmitWorkflowStarted(ctx, &workflow.State{})

	// Both should be called.
	if len(ext1.calls) != 1 {
		t.Errorf("ext1: expected 1 call, got %d", len(ext1.calls))
	}
	if len(ext2.calls) != 1 {
		t.Errorf("ext2: expected 1 call, got %d", len(ext2.calls))
	}
}
