package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobSubmitted = "job.submitted"
	ActionJobRejected  = "job.rejected"
	ActionJobStarted   = "job.started"
	ActionJobCompleted = "job.completed"
	ActionJobFailed    = "job.failed"
	ActionJobCancelled = "job.cancelled"
	ActionJobTimedOut  = "job.timed_out"
	ActionJobPreempted = "job.preempted"
	ActionJobAborted   = "job.aborted"
	ActionShutdown     = "dispatcher.shutdown"
)

// Audit event categories group related actions.
const (
	CategoryJob        = "bridge.job"
	CategoryDispatcher = "bridge.dispatcher"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceJob        = "job"
	ResourceDispatcher = "dispatcher"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobSubmitted,
		ActionJobRejected,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobCancelled,
		ActionJobTimedOut,
		ActionJobPreempted,
		ActionJobAborted,
		ActionShutdown,
	}
}
