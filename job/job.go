package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
)

// Operation is the blocking action a job performs. It runs to completion on
// a worker goroutine; ctx is cancelled when cancellation is requested, with
// the reason available through context.Cause.
type Operation func(ctx context.Context) (any, error)

// State represents the lifecycle state of a job.
type State string

const (
	// StateQueued means the job is waiting for a worker.
	StateQueued State = "queued"
	// StateRunning means a worker is executing the operation.
	StateRunning State = "running"
	// StateCompleted means the operation returned a value.
	StateCompleted State = "completed"
	// StateFailed means the operation returned an error or panicked.
	StateFailed State = "failed"
	// StateCancelled means the job ended without a result of its own:
	// explicitly cancelled, timed out, preempted, or aborted.
	StateCancelled State = "cancelled"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a job in state s may move to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateQueued:
		return next == StateRunning || next == StateCancelled
	case StateRunning:
		return next == StateCompleted || next == StateFailed || next == StateCancelled
	default:
		return false
	}
}

// Job represents a unit of blocking work.
type Job struct {
	ID id.JobID `json:"id"`
	// CorrelationID is a UUIDv7 for tracing the job across logs and
	// process boundaries.
	CorrelationID uuid.UUID `json:"correlation_id"`
	Name          string    `json:"name,omitempty"`
	State         State     `json:"state"`
	Operation     Operation `json:"-"`

	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	// Deadline is the absolute time after which the job is cancelled with
	// a timed-out outcome. Zero means no deadline.
	Deadline time.Time `json:"deadline,omitzero"`
	Worker   id.WorkerID `json:"worker,omitempty"`
}

// New creates a queued job. Unless opts carries one, it gets a fresh
// correlation ID.
func New(jobID id.JobID, op Operation, opts Options, now time.Time) *Job {
	corr := opts.CorrelationID
	if corr == uuid.Nil {
		var err error
		if corr, err = uuid.NewV7(); err != nil {
			corr = uuid.New()
		}
	}
	j := &Job{
		ID:            jobID,
		CorrelationID: corr,
		Name:          opts.Name,
		State:         StateQueued,
		Operation:     op,
		SubmittedAt:   now,
	}
	switch {
	case !opts.Deadline.IsZero():
		j.Deadline = opts.Deadline
	case opts.Timeout > 0:
		j.Deadline = now.Add(opts.Timeout)
	}
	return j
}

// Transition moves the job to next, stamping StartedAt or FinishedAt. It
// returns an error wrapping bridge.ErrInvalidState for a disallowed edge.
func (j *Job) Transition(next State, now time.Time) error {
	if !j.State.CanTransition(next) {
		return fmt.Errorf("%w: job %s %s -> %s", bridge.ErrInvalidState, j.ID, j.State, next)
	}
	j.State = next
	switch {
	case next == StateRunning:
		j.StartedAt = &now
	case next.Terminal():
		j.FinishedAt = &now
	}
	return nil
}

// HasDeadline reports whether the job carries a deadline.
func (j *Job) HasDeadline() bool { return !j.Deadline.IsZero() }

// Expired reports whether the job's deadline is at or before now.
func (j *Job) Expired(now time.Time) bool {
	return j.HasDeadline() && !now.Before(j.Deadline)
}

// WaitTime returns how long the job sat in the queue.
func (j *Job) WaitTime() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	return j.StartedAt.Sub(j.SubmittedAt)
}

// Snapshot returns a copy of the job without its operation, safe to hand to
// observers.
func (j *Job) Snapshot() Job {
	c := *j
	c.Operation = nil
	return c
}
