package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"time"

	"github.com/claimflow/claimflow"
	"github.com/claimflow/claimflow/id"
	"github.com/claimflow/claimflow/workflow"
)

// run executes the remaining steps of a workflow, starting at
// state.CurrentStep, until a terminal status is reached. Every transition
// is persisted before the next step begins, so a crash leaves the
// workflow resumable exactly at the next unprocessed step.
func (e *Engine) run(ctx context.Context, state *workflow.State) (*workflow.Result, error) {
	if state.Status == workflow.StatusPending || state.Status == workflow.StatusPaused {
		state.Status = workflow.StatusInProgress
	}
	if state.StartedAt.IsZero() {
		state.StartedAt = now()
	}
	if state.StepResults == nil {
		state.StepResults = make(map[string]*workflow.StepResult)
	}
	if err := e.saveState(ctx, state); err != nil {
		return nil, err
	}

	e.hooks.EmitWorkflowStarted(ctx, state)
	runStart := time.Now()

	for state.CurrentStep < e.def.Len() {
		// Cancellation is checked only at step boundaries, never
		// mid-execution of a running step.
		if ctx.Err() != nil {
			return e.cancelled(state, ctx.Err())
		}

		step := e.def.StepAt(state.CurrentStep)

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return e.cancelled(state, err)
			}
		}

		if !workflow.DependenciesMet(step, state.StepResults) {
			if err := e.skipStep(ctx, state, step); err != nil {
				return nil, err
			}
			continue
		}

		if _, err := e.executeStep(ctx, state, step); err != nil {
			switch {
			case errors.Is(err, claimflow.ErrPersistence):
				// Durability of the attempted transition is unknown;
				// propagate without touching the workflow status.
				return nil, err
			case errors.Is(err, context.Canceled):
				return e.cancelled(state, err)
			default:
				return e.failed(ctx, state, step, err)
			}
		}
	}

	completedAt := now()
	state.Status = workflow.StatusCompleted
	state.CompletedAt = &completedAt
	state.TotalExecutionMS = completedAt.Sub(state.StartedAt).Milliseconds()
	if err := e.saveState(ctx, state); err != nil {
		return nil, err
	}

	e.hooks.EmitWorkflowCompleted(ctx, state, time.Since(runStart))
	e.logger.Info("workflow completed",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.String("subject_id", state.SubjectID),
		slog.Int("completed_steps", len(state.CompletedSteps)),
		slog.Int64("total_execution_ms", state.TotalExecutionMS),
	)

	return workflow.ResultFromState(state), nil
}

// skipStep records a SKIPPED result for a step whose dependencies were
// not satisfied and advances past it. An unmet dependency is not an
// engine fault: the upstream failure that caused it has already forced
// FAILED, or the dependency was itself skipped.
func (e *Engine) skipStep(ctx context.Context, state *workflow.State, step workflow.StepDefinition) error {
	startedAt := now()
	unmet := workflow.UnmetDependencies(step, state.StepResults)

	rec := &workflow.StepResult{
		ID:           id.NewStepID(),
		WorkflowID:   state.WorkflowID,
		StepName:     step.Name,
		StepNumber:   state.CurrentStep,
		ExecutorName: step.Executor,
		Status:       workflow.StepSkipped,
		ErrorMessage: fmt.Sprintf("dependencies not satisfied: %v", unmet),
		ErrorDetail:  map[string]any{"unmet_dependencies": unmet},
		StartedAt:    startedAt,
		CompletedAt:  &startedAt,
		Attempt:      0,
	}

	if err := e.store.AppendStepResult(ctx, state.WorkflowID, rec); err != nil {
		return persistErr("append skipped step result", err)
	}

	state.StepResults[step.Name] = rec
	state.CurrentStep++
	if err := e.saveState(ctx, state); err != nil {
		return err
	}

	e.hooks.EmitStepSkipped(ctx, state, rec)
	e.logger.Warn("step skipped",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.String("step", step.Name),
		slog.Any("unmet_dependencies", unmet),
	)

	return nil
}

// executeStep runs one step through its full attempt budget. On success
// the state is advanced and persisted. The returned error is nil on
// success, wraps claimflow.ErrPersistence on a failed store write,
// matches context.Canceled when the run was cancelled mid-attempt, and
// is the final executor error otherwise.
func (e *Engine) executeStep(ctx context.Context, state *workflow.State, step workflow.StepDefinition) (*workflow.StepResult, error) {
	exec := e.executors[step.Name]

	var lastRec *workflow.StepResult
	var lastErr error

	for attempt := 1; attempt <= step.MaxRetries; attempt++ {
		rec, err := e.runAttempt(ctx, state, step, exec, attempt)
		lastRec = rec

		if err == nil {
			// Success: advance the workflow past this step.
			rec.Status = workflow.StepCompleted
			if appendErr := e.store.AppendStepResult(ctx, state.WorkflowID, rec); appendErr != nil {
				return rec, persistErr("append step result", appendErr)
			}
			state.StepResults[step.Name] = rec
			state.CompletedSteps = append(state.CompletedSteps, step.Name)
			state.CurrentStep++
			if saveErr := e.saveState(ctx, state); saveErr != nil {
				return rec, saveErr
			}
			e.hooks.EmitStepCompleted(ctx, state, rec)
			return rec, nil
		}

		lastErr = err

		// A cancelled parent context ends the attempt loop immediately;
		// the boundary handling in run() records the cancellation.
		if ctx.Err() != nil && !errors.Is(err, claimflow.ErrStepTimeout) {
			rec.Status = workflow.StepFailed
			if appendErr := e.store.AppendStepResult(ctx, state.WorkflowID, rec); appendErr != nil {
				return rec, persistErr("append step result", appendErr)
			}
			state.StepResults[step.Name] = rec
			return rec, fmt.Errorf("step %q interrupted: %w", step.Name, context.Canceled)
		}

		if attempt < step.MaxRetries {
			rec.Status = workflow.StepRetrying
			if appendErr := e.store.AppendStepResult(ctx, state.WorkflowID, rec); appendErr != nil {
				return rec, persistErr("append step result", appendErr)
			}
			state.StepResults[step.Name] = rec
			if saveErr := e.saveState(ctx, state); saveErr != nil {
				return rec, saveErr
			}

			delay := e.bo.Delay(attempt)
			e.hooks.EmitStepRetrying(ctx, state, step.Name, attempt, delay)
			e.logger.Info("step attempt will be retried",
				slog.String("workflow_id", state.WorkflowID.String()),
				slog.String("step", step.Name),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", step.MaxRetries),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)

			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return rec, fmt.Errorf("step %q interrupted during backoff: %w", step.Name, context.Canceled)
			}
			continue
		}

		// Budget exhausted.
		rec.Status = workflow.StepFailed
		if appendErr := e.store.AppendStepResult(ctx, state.WorkflowID, rec); appendErr != nil {
			return rec, persistErr("append step result", appendErr)
		}
		state.StepResults[step.Name] = rec
		e.hooks.EmitStepFailed(ctx, state, rec, err)
	}

	return lastRec, fmt.Errorf("step %q: %w after %d attempts: %w",
		step.Name, claimflow.ErrMaxRetriesExceeded, step.MaxRetries, lastErr)
}

// runAttempt executes a single attempt through the middleware chain and
// returns the attempt record with timing and outcome populated. The
// record's status is left for the caller to finalize.
func (e *Engine) runAttempt(ctx context.Context, state *workflow.State, step workflow.StepDefinition, exec workflow.Executor, attempt int) (*workflow.StepResult, error) {
	sc := workflow.BuildStepContext(state, step, attempt)

	rec := &workflow.StepResult{
		ID:           id.NewStepID(),
		WorkflowID:   state.WorkflowID,
		StepName:     step.Name,
		StepNumber:   state.CurrentStep,
		ExecutorName: step.Executor,
		Status:       workflow.StepRunning,
		Input:        maps.Clone(sc.Subject),
		StartedAt:    now(),
		Attempt:      attempt,
	}

	a := &workflow.Attempt{
		WorkflowID:   state.WorkflowID,
		SubjectID:    state.SubjectID,
		WorkflowType: state.WorkflowType,
		Step:         step,
		Number:       attempt,
	}

	var output map[string]any
	err := e.chain(ctx, a, func(attemptCtx context.Context) error {
		out, execErr := invoke(attemptCtx, exec, sc)
		output = out
		return execErr
	})

	completedAt := now()
	rec.CompletedAt = &completedAt
	rec.ExecutionMS = completedAt.Sub(rec.StartedAt).Milliseconds()

	if err != nil {
		rec.ErrorMessage = err.Error()
		rec.ErrorDetail = map[string]any{
			"error":   err.Error(),
			"attempt": attempt,
			"timeout": errors.Is(err, claimflow.ErrStepTimeout),
		}
		return rec, err
	}

	rec.Output = output
	return rec, nil
}

// invoke calls the executor in its own goroutine so a never-returning
// executor cannot hang the engine: once the attempt context expires the
// invocation is abandoned and the attempt fails with a timeout error.
// Abandonment does not roll back external side effects; executors must
// be safely abandonable or re-checkable on the next attempt.
func invoke(ctx context.Context, exec workflow.Executor, sc *workflow.StepContext) (map[string]any, error) {
	type outcome struct {
		out map[string]any
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{nil, fmt.Errorf("panic in step %s: %v\n%s", sc.StepName, r, debug.Stack())}
			}
		}()
		out, err := exec.Execute(ctx, sc)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("step %q: %w", sc.StepName, claimflow.ErrStepTimeout)
		}
		// Parent cancellation is handled at step boundaries, never
		// mid-execution: give the in-flight attempt until its own
		// deadline to finish.
		if deadline, ok := ctx.Deadline(); ok {
			timer := time.NewTimer(time.Until(deadline))
			defer timer.Stop()
			select {
			case o := <-done:
				return o.out, o.err
			case <-timer.C:
				return nil, fmt.Errorf("step %q: %w", sc.StepName, claimflow.ErrStepTimeout)
			}
		}
		o := <-done
		return o.out, o.err
	}
}

// failed marks the workflow FAILED at the given step and persists the
// terminal state. Steps after the failed one are never invoked.
func (e *Engine) failed(ctx context.Context, state *workflow.State, step workflow.StepDefinition, stepErr error) (*workflow.Result, error) {
	completedAt := now()
	state.Status = workflow.StatusFailed
	state.ErrorStep = step.Name
	state.ErrorMessage = stepErr.Error()
	state.CompletedAt = &completedAt
	state.TotalExecutionMS = completedAt.Sub(state.StartedAt).Milliseconds()

	if err := e.saveState(ctx, state); err != nil {
		return nil, err
	}

	e.hooks.EmitWorkflowFailed(ctx, state, stepErr)
	e.logger.Error("workflow failed",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.String("subject_id", state.SubjectID),
		slog.String("step", step.Name),
		slog.String("error", stepErr.Error()),
	)

	return workflow.ResultFromState(state), nil
}

// cancelled persists the CANCELLED status reached at a step boundary.
// CANCELLED is terminal: Resume returns the recorded result without
// executing anything further.
func (e *Engine) cancelled(state *workflow.State, cause error) (*workflow.Result, error) {
	state.Status = workflow.StatusCancelled

	// The triggering context is done; persist with a fresh one.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.saveState(saveCtx, state); err != nil {
		return nil, err
	}

	e.hooks.EmitWorkflowCancelled(saveCtx, state)
	e.logger.Warn("workflow cancelled",
		slog.String("workflow_id", state.WorkflowID.String()),
		slog.Int("current_step", state.CurrentStep),
		slog.String("cause", cause.Error()),
	)

	return workflow.ResultFromState(state), nil
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
