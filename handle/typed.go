package handle

import (
	"context"
	"fmt"

	"github.com/b97tsk/async"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
)

// Typed is a Handle whose value is statically typed as T.
type Typed[T any] struct {
	h *Handle
}

// NewTyped wraps h.
func NewTyped[T any](h *Handle) *Typed[T] {
	return &Typed[T]{h: h}
}

// Untyped returns the underlying handle.
func (t *Typed[T]) Untyped() *Handle { return t.h }

// ID returns the job ID.
func (t *Typed[T]) ID() id.JobID { return t.h.ID() }

// Done returns a channel that is closed once the handle is resolved.
func (t *Typed[T]) Done() <-chan struct{} { return t.h.Done() }

// Cancel asks the dispatcher to cancel the job.
func (t *Typed[T]) Cancel() error { return t.h.Cancel() }

// Await blocks until the job resolves and returns its value as T.
func (t *Typed[T]) Await(ctx context.Context) (T, error) {
	v, err := t.h.Await(ctx)
	return cast[T](v, err)
}

// Task is the typed form of Handle.Task.
func (t *Typed[T]) Task(f func(v T, err error)) async.Task {
	return t.h.Task(func(v any, err error) {
		f(cast[T](v, err))
	})
}

func cast[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	tv, ok := v.(T)
	if !ok {
		return zero, &bridge.OperationError{Err: fmt.Errorf("result type %T is not %T", v, zero)}
	}
	return tv, nil
}
