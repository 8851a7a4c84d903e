package engine

import (
	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
)

// Stats is a point-in-time snapshot of dispatcher activity.
type Stats struct {
	Queued        int                    `json:"queued"`
	QueueCapacity int                    `json:"queue_capacity"`
	Running       int                    `json:"running"`
	Workers       int                    `json:"workers"`
	Busy          int                    `json:"busy"`
	Cancellations int                    `json:"pending_cancellations"`
	Submitted     uint64                 `json:"submitted"`
	Outcomes      map[bridge.Kind]uint64 `json:"outcomes"`
	Closed        bool                   `json:"closed"`

	// Active maps each busy worker to the job it is running.
	Active map[id.WorkerID]id.JobID `json:"active,omitempty"`
}

// Stats returns current queue, worker and outcome counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	outcomes := make(map[bridge.Kind]uint64, len(d.outcomes))
	for k, n := range d.outcomes {
		outcomes[k] = n
	}
	return Stats{
		Queued:        d.queue.Len(),
		QueueCapacity: d.queue.Cap(),
		Running:       d.running,
		Workers:       d.pool.Concurrency(),
		Busy:          d.pool.Busy(),
		Cancellations: d.registry.Len(),
		Submitted:     d.submitted,
		Outcomes:      outcomes,
		Closed:        d.closing,
		Active:        d.pool.Active(),
	}
}

// Queued returns the number of jobs waiting for a worker.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Running returns the number of jobs claimed by workers.
func (d *Dispatcher) Running() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// State returns the lifecycle state of a live job and its cancellation
// state. ok is false once the job's handle has been resolved.
func (d *Dispatcher) State(jobID id.JobID) (state string, cancel bridge.CancelState, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.jobs[jobID]
	if !ok {
		return "", bridge.CancelNone, false
	}
	return string(e.job.State), d.registry.State(jobID), true
}
