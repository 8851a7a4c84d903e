package engine

import (
	"context"

	"github.com/xraph/bridge/handle"
	"github.com/xraph/bridge/job"
)

// Submit queues a typed operation and returns a typed handle.
func Submit[T any](ctx context.Context, d *Dispatcher, op func(ctx context.Context) (T, error), opts ...job.Option) (*handle.Typed[T], error) {
	h, err := d.Submit(ctx, func(ctx context.Context) (any, error) {
		v, err := op(ctx)
		return v, err
	}, opts...)
	if err != nil {
		return nil, err
	}
	return handle.NewTyped[T](h), nil
}

// Call submits op and waits for its result. If ctx ends first, the job is
// cancelled and ctx's error is returned.
func Call[T any](ctx context.Context, d *Dispatcher, op func(ctx context.Context) (T, error), opts ...job.Option) (T, error) {
	h, err := Submit(ctx, d, op, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := h.Await(ctx)
	if err != nil && ctx.Err() != nil {
		_ = h.Cancel()
	}
	return v, err
}
