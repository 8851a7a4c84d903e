// Package job defines the job entity, its state machine, and the blocking
// Operation it carries.
//
// # Job Entity
//
// A [Job] is one submitted blocking operation and its lifecycle state:
//
//	queued → running → completed
//	queued → running → failed
//	queued → running → cancelled   (operation observed the cancel signal)
//	queued → cancelled             (removed from the queue, timed out,
//	                                preempted or aborted before dispatch)
//
// A job never moves backward and never skips running once a worker has
// claimed it. [State.CanTransition] encodes the allowed edges and
// [Job.Transition] enforces them.
//
// # Operations
//
// An [Operation] is any function that blocks until it produces a value or
// fails. The context it receives carries the cooperative cancellation
// signal; operations that can stop early should watch ctx.Done().
//
//	op := job.Operation(func(ctx context.Context) (any, error) {
//	    return conn.ReadFrame() // blocks
//	})
package job
