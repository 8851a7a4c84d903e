package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/ext"
	"github.com/xraph/bridge/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobSubmitted = (*Extension)(nil)
	_ ext.JobRejected  = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobCancelled = (*Extension)(nil)
	_ ext.JobTimedOut  = (*Extension)(nil)
	_ ext.JobPreempted = (*Extension)(nil)
	_ ext.JobAborted   = (*Extension)(nil)
	_ ext.Shutdown     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder writes audit events to a logger at Info, or Warn for
// non-info severities.
func SlogRecorder(l *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		if evt.Severity != SeverityInfo {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("action", evt.Action),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
			slog.String("severity", evt.Severity),
		}
		if evt.Reason != "" {
			attrs = append(attrs, slog.String("reason", evt.Reason))
		}
		if len(evt.Metadata) > 0 {
			attrs = append(attrs, slog.Any("metadata", evt.Metadata))
		}
		l.LogAttrs(ctx, level, "audit", attrs...)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges dispatcher lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobSubmitted implements ext.JobSubmitted.
func (e *Extension) OnJobSubmitted(ctx context.Context, j *job.Job) error {
	kv := []any{"job_name", j.Name, "correlation_id", j.CorrelationID.String()}
	if j.HasDeadline() {
		kv = append(kv, "deadline", j.Deadline.Format(time.RFC3339Nano))
	}
	return e.record(ctx, ActionJobSubmitted, SeverityInfo, OutcomeSuccess,
		j.ID.String(), nil, kv...)
}

// OnJobRejected implements ext.JobRejected.
func (e *Extension) OnJobRejected(ctx context.Context, name string, submitErr error) error {
	return e.record(ctx, ActionJobRejected, SeverityWarning, OutcomeFailure,
		"", submitErr,
		"job_name", name,
	)
}

// OnJobStarted implements ext.JobStarted.
func (e *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobStarted, SeverityInfo, OutcomeSuccess,
		j.ID.String(), nil,
		"job_name", j.Name,
		"worker", j.Worker.String(),
		"wait_ms", j.WaitTime().Milliseconds(),
	)
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, ActionJobCompleted, SeverityInfo, OutcomeSuccess,
		j.ID.String(), nil,
		"job_name", j.Name,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return e.record(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure,
		j.ID.String(), jobErr,
		"job_name", j.Name,
		"worker", j.Worker.String(),
	)
}

// OnJobCancelled implements ext.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, j *job.Job, state bridge.CancelState) error {
	return e.record(ctx, ActionJobCancelled, SeverityWarning, OutcomeFailure,
		j.ID.String(), nil,
		"job_name", j.Name,
		"cancel_state", state.String(),
		"was_running", j.StartedAt != nil,
	)
}

// OnJobTimedOut implements ext.JobTimedOut.
func (e *Extension) OnJobTimedOut(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobTimedOut, SeverityWarning, OutcomeFailure,
		j.ID.String(), bridge.ErrTimedOut,
		"job_name", j.Name,
		"deadline", j.Deadline.Format(time.RFC3339Nano),
	)
}

// OnJobPreempted implements ext.JobPreempted.
func (e *Extension) OnJobPreempted(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobPreempted, SeverityWarning, OutcomeFailure,
		j.ID.String(), bridge.ErrPreempted,
		"job_name", j.Name,
	)
}

// OnJobAborted implements ext.JobAborted.
func (e *Extension) OnJobAborted(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobAborted, SeverityCritical, OutcomeFailure,
		j.ID.String(), bridge.ErrShutdownAborted,
		"job_name", j.Name,
		"was_running", j.StartedAt != nil,
	)
}

// ── Dispatcher lifecycle hooks ──────────────────────

// OnShutdown implements ext.Shutdown.
func (e *Extension) OnShutdown(ctx context.Context, mode bridge.ShutdownMode) error {
	if e.enabled != nil && !e.enabled[ActionShutdown] {
		return nil
	}
	return e.send(ctx, &AuditEvent{
		Action:   ActionShutdown,
		Resource: ResourceDispatcher,
		Category: CategoryDispatcher,
		Metadata: map[string]any{"mode": mode.String()},
		Outcome:  OutcomeSuccess,
		Severity: SeverityInfo,
	})
}

// ── Internal helpers ────────────────────────────────

// record builds and sends a job audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	return e.send(ctx, &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		Category:   CategoryJob,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	})
}

func (e *Extension) send(ctx context.Context, evt *AuditEvent) error {
	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", evt.Action,
			"resource_id", evt.ResourceID,
			"error", recErr,
		)
	}
	return nil
}
