// Package hook defines the extension system for claimflow.
//
// Extensions are notified of workflow and step lifecycle events and can
// react to them — recording metrics, emitting webhooks, writing audit
// logs, etc. Each lifecycle hook is a separate interface so extensions
// opt in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnStepCompleted(ctx context.Context, s *workflow.State, r *workflow.StepResult) error {
//	    log.Printf("step %s completed in %dms", r.StepName, r.ExecutionMS)
//	    return nil
//	}
//
// # Workflow Lifecycle Hooks
//
//   - [WorkflowStarted] — a run began or resumed
//   - [WorkflowCompleted] — a run finished with every step completed
//   - [WorkflowFailed] — a run failed terminally
//   - [WorkflowCancelled] — a run stopped at a step boundary on cancellation
//
// # Step Lifecycle Hooks
//
//   - [StepCompleted] — a step finished successfully
//   - [StepFailed] — a step exhausted its retry budget
//   - [StepSkipped] — a step was skipped over an unmet dependency
//   - [StepRetrying] — a step attempt failed but will be retried
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged
// and never propagated to the engine.
package hook
