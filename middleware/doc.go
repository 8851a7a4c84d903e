// Package middleware provides composable middleware for job execution.
//
// A [Middleware] is a function that wraps a job's operation. Middleware are
// composed into a chain using [Chain] and run on the worker goroutine
// before each operation executes. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → operation
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] logs job name, worker, queue wait and outcome
//   - [Recover] catches panics and converts them to *bridge.PanicError
//   - [Tracing] wraps execution in an OpenTelemetry span
//   - [Metrics] records per-job duration and outcome counters
//
// The worker executor recovers panics on its own even when [Recover] is not
// installed; [Recover] adds the log line with the stack.
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, j *job.Job, next middleware.Handler) (any, error) {
//	        // pre-processing
//	        v, err := next(ctx)
//	        // post-processing
//	        return v, err
//	    }
//	}
//
// The context passed down the chain is the job's cancellation context.
// Middleware must not detach the operation from it.
package middleware
