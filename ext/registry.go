package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobSubmittedEntry struct {
	name string
	hook JobSubmitted
}

type jobRejectedEntry struct {
	name string
	hook JobRejected
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobCancelledEntry struct {
	name string
	hook JobCancelled
}

type jobTimedOutEntry struct {
	name string
	hook JobTimedOut
}

type jobPreemptedEntry struct {
	name string
	hook JobPreempted
}

type jobAbortedEntry struct {
	name string
	hook JobAborted
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register must not be called once the dispatcher has started; emit
// methods are safe for concurrent use after that point.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	jobSubmitted []jobSubmittedEntry
	jobRejected  []jobRejectedEntry
	jobStarted   []jobStartedEntry
	jobCompleted []jobCompletedEntry
	jobFailed    []jobFailedEntry
	jobCancelled []jobCancelledEntry
	jobTimedOut  []jobTimedOutEntry
	jobPreempted []jobPreemptedEntry
	jobAborted   []jobAbortedEntry
	shutdown     []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobSubmitted); ok {
		r.jobSubmitted = append(r.jobSubmitted, jobSubmittedEntry{name, h})
	}
	if h, ok := e.(JobRejected); ok {
		r.jobRejected = append(r.jobRejected, jobRejectedEntry{name, h})
	}
	if h, ok := e.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, jobCancelledEntry{name, h})
	}
	if h, ok := e.(JobTimedOut); ok {
		r.jobTimedOut = append(r.jobTimedOut, jobTimedOutEntry{name, h})
	}
	if h, ok := e.(JobPreempted); ok {
		r.jobPreempted = append(r.jobPreempted, jobPreemptedEntry{name, h})
	}
	if h, ok := e.(JobAborted); ok {
		r.jobAborted = append(r.jobAborted, jobAbortedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobSubmitted notifies all extensions that implement JobSubmitted.
func (r *Registry) EmitJobSubmitted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobSubmitted {
		if err := e.hook.OnJobSubmitted(ctx, j); err != nil {
			r.logHookError("OnJobSubmitted", e.name, err)
		}
	}
}

// EmitJobRejected notifies all extensions that implement JobRejected.
func (r *Registry) EmitJobRejected(ctx context.Context, name string, submitErr error) {
	for _, e := range r.jobRejected {
		if err := e.hook.OnJobRejected(ctx, name, submitErr); err != nil {
			r.logHookError("OnJobRejected", e.name, err)
		}
	}
}

// EmitJobStarted notifies all extensions that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobCancelled notifies all extensions that implement JobCancelled.
func (r *Registry) EmitJobCancelled(ctx context.Context, j *job.Job, state bridge.CancelState) {
	for _, e := range r.jobCancelled {
		if err := e.hook.OnJobCancelled(ctx, j, state); err != nil {
			r.logHookError("OnJobCancelled", e.name, err)
		}
	}
}

// EmitJobTimedOut notifies all extensions that implement JobTimedOut.
func (r *Registry) EmitJobTimedOut(ctx context.Context, j *job.Job) {
	for _, e := range r.jobTimedOut {
		if err := e.hook.OnJobTimedOut(ctx, j); err != nil {
			r.logHookError("OnJobTimedOut", e.name, err)
		}
	}
}

// EmitJobPreempted notifies all extensions that implement JobPreempted.
func (r *Registry) EmitJobPreempted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobPreempted {
		if err := e.hook.OnJobPreempted(ctx, j); err != nil {
			r.logHookError("OnJobPreempted", e.name, err)
		}
	}
}

// EmitJobAborted notifies all extensions that implement JobAborted.
func (r *Registry) EmitJobAborted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobAborted {
		if err := e.hook.OnJobAborted(ctx, j); err != nil {
			r.logHookError("OnJobAborted", e.name, err)
		}
	}
}

// EmitOutcome routes a resolved outcome to the matching job hook.
func (r *Registry) EmitOutcome(ctx context.Context, j *job.Job, o bridge.Outcome, elapsed time.Duration) {
	switch o.Kind {
	case bridge.KindValue:
		r.EmitJobCompleted(ctx, j, elapsed)
	case bridge.KindFailed:
		r.EmitJobFailed(ctx, j, o.Err)
	case bridge.KindCancelled:
		r.EmitJobCancelled(ctx, j, o.Cancel)
	case bridge.KindTimedOut:
		r.EmitJobTimedOut(ctx, j)
	case bridge.KindPreempted:
		r.EmitJobPreempted(ctx, j)
	case bridge.KindShutdownAborted:
		r.EmitJobAborted(ctx, j)
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context, mode bridge.ShutdownMode) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx, mode); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
