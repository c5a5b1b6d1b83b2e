package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/claimflow/claimflow/workflow"
)

// Recover returns middleware that recovers from panics in the executor
// chain. Panics are converted to errors and logged with a stack trace,
// so a panicking executor consumes one attempt instead of killing the
// whole workflow run.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *workflow.Attempt, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("step executor panicked",
					slog.String("workflow_id", a.WorkflowID.String()),
					slog.String("step", a.Step.Name),
					slog.Int("attempt", a.Number),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in step %s: %v", a.Step.Name, r)
			}
		}()
		return next(ctx)
	}
}
