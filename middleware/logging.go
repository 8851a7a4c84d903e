package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/bridge/job"
)

// Logging returns middleware that logs job start and completion. Errors
// returned after the job's context was cancelled are logged at Debug with
// the cancellation cause; other errors at Warn.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (any, error) {
		logger.Debug("job started",
			slog.String("job_name", j.Name),
			slog.String("job_id", j.ID.String()),
			slog.String("worker", j.Worker.String()),
			slog.Duration("waited", j.WaitTime()),
		)

		start := time.Now()
		v, err := next(ctx)
		elapsed := time.Since(start)

		switch {
		case err != nil && ctx.Err() != nil:
			logger.Debug("job stopped on cancellation",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("cause", context.Cause(ctx).Error()),
			)
		case err != nil:
			logger.Warn("job failed",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		default:
			logger.Debug("job completed",
				slog.String("job_name", j.Name),
				slog.String("job_id", j.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return v, err
	}
}
