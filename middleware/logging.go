package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/claimflow/claimflow/workflow"
)

// Logging returns middleware that logs the start and outcome of every
// step attempt.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, a *workflow.Attempt, next Handler) error {
		logger.Info("step attempt started",
			slog.String("workflow_id", a.WorkflowID.String()),
			slog.String("subject_id", a.SubjectID),
			slog.String("step", a.Step.Name),
			slog.Int("attempt", a.Number),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("step attempt failed",
				slog.String("workflow_id", a.WorkflowID.String()),
				slog.String("step", a.Step.Name),
				slog.Int("attempt", a.Number),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("step attempt completed",
				slog.String("workflow_id", a.WorkflowID.String()),
				slog.String("step", a.Step.Name),
				slog.Int("attempt", a.Number),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
