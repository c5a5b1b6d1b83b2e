package middleware

import (
	"context"
	"log/slog"

	"github.com/claimflow/claimflow/workflow"
)

// Timeout returns middleware that applies the step's per-attempt deadline.
// If the step definition has a non-zero Timeout, a context.WithTimeout
// wraps the handler call. When the deadline is exceeded the context is
// cancelled; the engine treats the attempt as failed with a timeout error
// and abandons the executor invocation.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *workflow.Attempt, next Handler) error {
		if a.Step.Timeout > 0 {
			logger.Debug("step deadline set",
				slog.String("workflow_id", a.WorkflowID.String()),
				slog.String("step", a.Step.Name),
				slog.Duration("timeout", a.Step.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.Step.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
