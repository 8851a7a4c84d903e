// Package worker provides the job execution engine: an Executor that
// invokes a job's operation through middleware, and a Pool that runs a
// fixed set of worker goroutines claiming jobs from a Source.
package worker

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/job"
	"github.com/xraph/bridge/middleware"
)

// Executor runs a single job's operation through the middleware chain.
// A panic anywhere in the chain is recovered and returned as a
// *bridge.PanicError so that it never escapes the worker goroutine.
type Executor struct {
	mw     middleware.Middleware
	logger *slog.Logger
}

// NewExecutor creates an Executor with the given middleware.
func NewExecutor(logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	return &Executor{
		mw:     middleware.Chain(mws...),
		logger: logger,
	}
}

// Execute runs j's operation with ctx and returns its result.
func (e *Executor) Execute(ctx context.Context, j *job.Job) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			e.logger.Error("panic escaped job middleware",
				slog.String("job_id", j.ID.String()),
				slog.String("job_name", j.Name),
				slog.Any("panic", r),
			)
			v, err = nil, &bridge.PanicError{Value: r, Stack: stack}
		}
	}()

	terminal := func(ctx context.Context) (any, error) {
		if j.Operation == nil {
			return nil, nil
		}
		return j.Operation(ctx)
	}

	return e.mw(ctx, j, terminal)
}
