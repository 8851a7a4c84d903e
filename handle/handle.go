package handle

import (
	"context"
	"sync"

	"github.com/b97tsk/async"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
)

// Canceler requests cancellation of a job by ID.
type Canceler interface {
	Cancel(jobID id.JobID) error
}

type claim uint8

const (
	claimIdle claim = iota
	claimAwaiting
	claimConsumed
)

// Handle resolves exactly once with the outcome of a job.
type Handle struct {
	id       id.JobID
	canceler Canceler
	done     chan struct{}

	mu       sync.Mutex
	resolved bool
	outcome  bridge.Outcome
	claim    claim
	exec     *async.Executor
	sig      *async.Signal
}

// New returns a pending Handle for jobID. canceler may be nil.
func New(jobID id.JobID, canceler Canceler) *Handle {
	return &Handle{
		id:       jobID,
		canceler: canceler,
		done:     make(chan struct{}),
	}
}

// ID returns the job ID the handle tracks.
func (h *Handle) ID() id.JobID { return h.id }

// Done returns a channel that is closed once the handle is resolved.
// Observing Done does not consume the outcome.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Resolved reports whether an outcome has been stored.
func (h *Handle) Resolved() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolved
}

// Resolve stores o as the handle's outcome and wakes the awaiting caller.
// It returns false, leaving the stored outcome untouched, if the handle was
// already resolved.
func (h *Handle) Resolve(o bridge.Outcome) bool {
	h.mu.Lock()
	if h.resolved {
		h.mu.Unlock()
		return false
	}
	h.resolved = true
	h.outcome = o
	exec, sig := h.exec, h.sig
	h.exec, h.sig = nil, nil
	close(h.done)
	h.mu.Unlock()

	if exec != nil {
		// Notify must run inside a task on the executor that owns sig.
		exec.Spawn(async.Do(sig.Notify))
	}
	return true
}

// Cancel asks the dispatcher to cancel the job. Cancelling an already
// resolved job returns bridge.ErrJobNotFound.
func (h *Handle) Cancel() error {
	if h.canceler == nil {
		return bridge.ErrJobNotFound
	}
	return h.canceler.Cancel(h.id)
}

// Await blocks until the handle resolves or ctx is done, and returns the
// job's result. It returns bridge.ErrAlreadyConsumed if the outcome was
// already taken or another caller is awaiting. When ctx ends first the
// claim is released and ctx's error is returned; the job keeps running.
func (h *Handle) Await(ctx context.Context) (any, error) {
	o, err := h.Outcome(ctx)
	if err != nil {
		return nil, err
	}
	return o.Result()
}

// Outcome is like Await but returns the full outcome, including its kind
// and final cancellation state.
func (h *Handle) Outcome(ctx context.Context) (bridge.Outcome, error) {
	if err := h.acquire(); err != nil {
		return bridge.Outcome{}, err
	}

	select {
	case <-h.done:
	default:
		select {
		case <-h.done:
		case <-ctx.Done():
			if h.release() {
				return bridge.Outcome{}, ctx.Err()
			}
		}
	}
	return h.consume(), nil
}

// Task returns an async task that suspends its coroutine until the handle
// resolves and then calls f with the result. If the handle cannot be
// claimed, f receives bridge.ErrAlreadyConsumed immediately. If the
// coroutine is cancelled before resolution, the claim is released.
func (h *Handle) Task(f func(v any, err error)) async.Task {
	return func(co *async.Coroutine) async.Result {
		sig, err := h.watch(co.Executor())
		if err != nil {
			f(nil, err)
			return co.End()
		}
		co.CleanupFunc(func() { h.unwatch(sig) })
		return co.Await(sig).Until(h.Resolved).Then(async.Do(func() {
			f(h.consume().Result())
		}))
	}
}

func (h *Handle) acquire() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.claim != claimIdle {
		return bridge.ErrAlreadyConsumed
	}
	h.claim = claimAwaiting
	return nil
}

// release gives up an awaiting claim. It returns false if the handle
// resolved in the meantime, in which case the caller should consume.
func (h *Handle) release() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolved {
		return false
	}
	h.claim = claimIdle
	return true
}

func (h *Handle) consume() bridge.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.claim = claimConsumed
	return h.outcome
}

func (h *Handle) watch(exec *async.Executor) (*async.Signal, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.claim != claimIdle {
		return nil, bridge.ErrAlreadyConsumed
	}
	h.claim = claimAwaiting
	sig := new(async.Signal)
	if !h.resolved {
		h.exec, h.sig = exec, sig
	}
	return sig, nil
}

// unwatch runs as a coroutine cleanup: both when the guard passes (the
// claim is then consumed) and when the coroutine is cancelled early.
func (h *Handle) unwatch(sig *async.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sig == sig {
		h.exec, h.sig = nil, nil
	}
	if !h.resolved && h.claim == claimAwaiting {
		h.claim = claimIdle
	}
}
