package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/engine"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/job"
)

// Handler serves one request on a worker. It may block.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

type correlationKey struct{}

// CorrelationID returns the request correlation ID carried by a handler's
// context.
func CorrelationID(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ctx.Value(correlationKey{}).(uuid.UUID)
	return c, ok
}

// Router routes requests to a blocking handler through a dispatcher and
// tracks which are in flight.
type Router[Req, Resp any] struct {
	d       *engine.Dispatcher
	handler Handler[Req, Resp]
	name    string
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]id.JobID
}

// Option configures a Router.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName sets the job name used for routed requests. Default "router".
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the router's logger. Default is the dispatcher's.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Router that serves requests with handler on d's workers.
func New[Req, Resp any](d *engine.Dispatcher, handler Handler[Req, Resp], opts ...Option) *Router[Req, Resp] {
	o := options{name: "router", logger: d.Logger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Router[Req, Resp]{
		d:       d,
		handler: handler,
		name:    o.name,
		logger:  o.logger,
		pending: make(map[uuid.UUID]id.JobID),
	}
}

// NoTimeout disables the per-request timeout of an endpoint.
const NoTimeout time.Duration = -1

// Endpoint returns an endpoint whose requests time out after timeout. A
// zero timeout expires requests on submission, as context.WithTimeout does.
// Pass NoTimeout to wait for the handler indefinitely.
func (r *Router[Req, Resp]) Endpoint(timeout time.Duration) *Endpoint[Req, Resp] {
	return &Endpoint[Req, Resp]{r: r, timeout: timeout}
}

// Pending returns the number of requests submitted and not yet answered.
func (r *Router[Req, Resp]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Cancel cancels the in-flight request with correlation ID c.
func (r *Router[Req, Resp]) Cancel(c uuid.UUID) error {
	r.mu.Lock()
	jobID, ok := r.pending[c]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: request %s", bridge.ErrJobNotFound, c)
	}
	return r.d.Cancel(jobID)
}

func (r *Router[Req, Resp]) track(c uuid.UUID, jobID id.JobID) {
	r.mu.Lock()
	r.pending[c] = jobID
	r.mu.Unlock()
}

func (r *Router[Req, Resp]) untrack(c uuid.UUID) {
	r.mu.Lock()
	delete(r.pending, c)
	r.mu.Unlock()
}

// Endpoint submits requests to its Router with a fixed timeout.
type Endpoint[Req, Resp any] struct {
	r       *Router[Req, Resp]
	timeout time.Duration
}

// Timeout returns the endpoint's per-request timeout.
func (e *Endpoint[Req, Resp]) Timeout() time.Duration { return e.timeout }

// Handle submits req and waits for its response. Timeouts surface as
// bridge.ErrTimedOut, a full queue under the reject policy as
// bridge.ErrQueueFull, and handler errors wrapped in *bridge.OperationError.
// If ctx ends first the request is cancelled and ctx's error returned.
func (e *Endpoint[Req, Resp]) Handle(ctx context.Context, req Req) (Resp, error) {
	r := e.r
	corr, err := uuid.NewV7()
	if err != nil {
		corr = uuid.New()
	}

	opts := []job.Option{job.WithName(r.name), job.WithCorrelationID(corr)}
	if e.timeout >= 0 {
		opts = append(opts, job.WithDeadline(time.Now().Add(e.timeout)))
	}

	h, err := engine.Submit(ctx, r.d, func(ctx context.Context) (Resp, error) {
		return r.handler(context.WithValue(ctx, correlationKey{}, corr), req)
	}, opts...)
	if err != nil {
		var zero Resp
		return zero, err
	}
	r.track(corr, h.ID())
	defer r.untrack(corr)

	resp, err := h.Await(ctx)
	if err != nil && ctx.Err() != nil {
		_ = h.Cancel()
		r.logger.Debug("routed request abandoned",
			slog.String("correlation_id", corr.String()),
			slog.String("job_id", h.ID().String()),
		)
	}
	return resp, err
}
