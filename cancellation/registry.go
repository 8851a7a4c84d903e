// Package cancellation tracks cancellation requests for running jobs.
//
// A request moves through at most one terminal disposition:
//
//	requested ──► acknowledged   (the operation observed the request and stopped)
//	          └─► too_late       (the operation finished before observing it)
//
// Jobs that are cancelled while still queued are recorded as acknowledged
// directly, since removal from the queue always succeeds. The registry is
// not internally locked; the dispatcher mutates it under the same lock that
// guards the queue so that a job can never be both dequeued by a worker and
// cancelled-in-queue.
package cancellation

import (
	"time"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
)

// Entry is the cancellation record of a single job.
type Entry struct {
	JobID       id.JobID           `json:"job_id"`
	State       bridge.CancelState `json:"state"`
	Reason      error              `json:"-"`
	RequestedAt time.Time          `json:"requested_at"`
	SettledAt   time.Time          `json:"settled_at,omitzero"`
}

// Registry maps job IDs to their cancellation records.
type Registry struct {
	entries map[id.JobID]*Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[id.JobID]*Entry)}
}

// Request records a cancellation request for jobID with the given reason.
// It returns false if the job already has a record, leaving the first
// reason in place.
func (r *Registry) Request(jobID id.JobID, reason error, now time.Time) bool {
	if _, ok := r.entries[jobID]; ok {
		return false
	}
	r.entries[jobID] = &Entry{
		JobID:       jobID,
		State:       bridge.CancelRequested,
		Reason:      reason,
		RequestedAt: now,
	}
	return true
}

// Acknowledge marks a pending request as honored. Jobs with no record get
// one, which covers cancellation of a job that never started.
func (r *Registry) Acknowledge(jobID id.JobID, reason error, now time.Time) {
	e, ok := r.entries[jobID]
	if !ok {
		e = &Entry{JobID: jobID, Reason: reason, RequestedAt: now}
		r.entries[jobID] = e
	}
	r.settle(e, bridge.CancelAcknowledged, now)
}

// TooLate marks a pending request as having lost the race with completion.
// It is a no-op if jobID has no pending request.
func (r *Registry) TooLate(jobID id.JobID, now time.Time) {
	if e, ok := r.entries[jobID]; ok {
		r.settle(e, bridge.CancelTooLate, now)
	}
}

func (r *Registry) settle(e *Entry, state bridge.CancelState, now time.Time) {
	if e.State == bridge.CancelAcknowledged || e.State == bridge.CancelTooLate {
		return
	}
	e.State = state
	e.SettledAt = now
}

// Lookup returns a copy of the record for jobID.
func (r *Registry) Lookup(jobID id.JobID) (Entry, bool) {
	e, ok := r.entries[jobID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Requested reports whether jobID has a cancellation request that has not
// yet been settled.
func (r *Registry) Requested(jobID id.JobID) bool {
	e, ok := r.entries[jobID]
	return ok && e.State == bridge.CancelRequested
}

// State returns the cancellation state of jobID, or bridge.CancelNone.
func (r *Registry) State(jobID id.JobID) bridge.CancelState {
	if e, ok := r.entries[jobID]; ok {
		return e.State
	}
	return bridge.CancelNone
}

// Remove deletes the record for jobID. The dispatcher calls it once the
// job's outcome has been delivered.
func (r *Registry) Remove(jobID id.JobID) {
	delete(r.entries, jobID)
}

// Len returns the number of records held.
func (r *Registry) Len() int { return len(r.entries) }
