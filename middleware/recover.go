package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/job"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to *bridge.PanicError and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (v any, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Error("job operation panicked",
					slog.String("job_name", j.Name),
					slog.String("job_id", j.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", string(stack)),
				)
				v, retErr = nil, &bridge.PanicError{Value: r, Stack: stack}
			}
		}()
		return next(ctx)
	}
}
