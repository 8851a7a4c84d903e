// Package ext defines the extension system for the bridge.
//
// Extensions are notified of lifecycle events and can react to them by
// recording metrics or writing audit logs. Each lifecycle hook is a
// separate interface so extensions opt in only to the events they care
// about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
//	    log.Printf("job %s completed in %s", j.ID, elapsed)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobSubmitted]: job was accepted into the queue
//   - [JobRejected]: submission was refused
//   - [JobStarted]: a worker claimed the job
//   - [JobCompleted]: the operation returned a value
//   - [JobFailed]: the operation returned an error or panicked
//   - [JobCancelled]: the job was cancelled
//   - [JobTimedOut]: the job's deadline fired
//   - [JobPreempted]: the job was evicted from a full queue
//   - [JobAborted]: shutdown resolved the job
//
// # Other Hooks
//
//   - [Shutdown]: the dispatcher is shutting down
//
// Hooks run synchronously on the goroutine that produced the event, never
// while the dispatcher holds its internal lock. The job passed to a hook
// is a snapshot; mutating it has no effect. Hook errors are logged and
// never propagated.
//
// A fast job's JobStarted and terminal hooks run on a worker and may be
// observed before the submitter's JobSubmitted hook returns.
package ext
