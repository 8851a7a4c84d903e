// Package ext defines the extension system for the bridge.
// Extensions are notified of lifecycle events (job submitted, completed,
// cancelled, etc.) and can react to them by recording metrics or logs.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Submission hooks
// ──────────────────────────────────────────────────

// JobSubmitted is called after a job is accepted into the queue.
type JobSubmitted interface {
	OnJobSubmitted(ctx context.Context, j *job.Job) error
}

// JobRejected is called when a submission is refused: the queue was full
// under the reject policy, the dispatcher was closed, or a blocked
// submitter's context ended.
type JobRejected interface {
	OnJobRejected(ctx context.Context, name string, err error) error
}

// ──────────────────────────────────────────────────
// Execution hooks
// ──────────────────────────────────────────────────

// JobStarted is called when a worker claims a job, before its operation runs.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after an operation returns a value.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when an operation returns an error or panics.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// ──────────────────────────────────────────────────
// Termination hooks
// ──────────────────────────────────────────────────

// JobCancelled is called when a job resolves as cancelled. state is
// bridge.CancelAcknowledged for both queued removals and cooperative stops.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job, state bridge.CancelState) error
}

// JobTimedOut is called when a job's deadline fires before it finishes.
type JobTimedOut interface {
	OnJobTimedOut(ctx context.Context, j *job.Job) error
}

// JobPreempted is called when a queued job is evicted by a newer
// submission under the drop-oldest policy.
type JobPreempted interface {
	OnJobPreempted(ctx context.Context, j *job.Job) error
}

// JobAborted is called when shutdown resolves a queued or running job.
type JobAborted interface {
	OnJobAborted(ctx context.Context, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called once when the dispatcher begins shutting down.
type Shutdown interface {
	OnShutdown(ctx context.Context, mode bridge.ShutdownMode) error
}
