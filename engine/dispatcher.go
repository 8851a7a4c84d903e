package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/cancellation"
	"github.com/xraph/bridge/ext"
	"github.com/xraph/bridge/handle"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/job"
	mw "github.com/xraph/bridge/middleware"
	"github.com/xraph/bridge/observability"
	"github.com/xraph/bridge/queue"
	"github.com/xraph/bridge/worker"
)

const instrumentationName = "github.com/xraph/bridge"

// entry is the dispatcher's record of a live job. It exists from a
// successful Submit until the job's handle is resolved.
type entry struct {
	job     *job.Job
	handle  *handle.Handle
	timer   *time.Timer
	cancel  context.CancelCauseFunc
	release context.CancelFunc
	claimed time.Time
}

// resolution is an outcome waiting to be written into a handle once the
// dispatcher lock has been released.
type resolution struct {
	handle  *handle.Handle
	outcome bridge.Outcome
	job     job.Job
	elapsed time.Duration
}

// Dispatcher accepts blocking operations from async callers, queues them,
// hands them to workers and routes each outcome back to its handle.
type Dispatcher struct {
	cfg            bridge.Config
	logger         *slog.Logger
	extensions     *ext.Registry
	pendingExts    []ext.Extension
	mws            []mw.Middleware
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	pool           *worker.Pool
	ids            id.Generator

	// mu guards everything below. Handles are never resolved and hooks
	// never run while it is held.
	mu         sync.Mutex
	queue      *queue.Queue
	registry   *cancellation.Registry
	jobs       map[id.JobID]*entry
	running    int
	started    bool
	closing    bool
	baseCtx    context.Context
	workReady  chan struct{}
	spaceFreed chan struct{}
	closed     chan struct{}
	submitted  uint64
	outcomes   map[bridge.Kind]uint64

	shutdownDone chan struct{}
	shutdownErr  error
}

// New creates a Dispatcher. Workers are not started until Start is called;
// jobs submitted before that wait in the queue.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		cfg:          bridge.DefaultConfig(),
		logger:       slog.Default(),
		baseCtx:      context.Background(),
		workReady:    make(chan struct{}),
		spaceFreed:   make(chan struct{}),
		closed:       make(chan struct{}),
		shutdownDone: make(chan struct{}),
		jobs:         make(map[id.JobID]*entry),
		outcomes:     make(map[bridge.Kind]uint64),
		registry:     cancellation.NewRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}

	d.queue = queue.New(d.cfg.QueueCapacity, d.cfg.OverflowPolicy)
	d.extensions = ext.NewRegistry(d.logger)

	var obsExt *observability.MetricsExtension
	if d.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(d.meterProvider.Meter(instrumentationName + "/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	d.extensions.Register(obsExt)
	for _, e := range d.pendingExts {
		d.extensions.Register(e)
	}

	var tracingMw mw.Middleware
	if d.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(d.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	var metricsMw mw.Middleware
	if d.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(d.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Built-in stack: recover → tracing → metrics → logging → user middleware.
	allMws := make([]mw.Middleware, 0, 4+len(d.mws))
	allMws = append(allMws,
		mw.Recover(d.logger),
		tracingMw,
		metricsMw,
		mw.Logging(d.logger),
	)
	allMws = append(allMws, d.mws...)

	d.pool = worker.NewPool(d,
		worker.NewExecutor(d.logger, allMws...),
		d.extensions,
		d.logger,
		worker.WithPoolConcurrency(d.cfg.WorkerCount),
		worker.WithLockOSThread(d.cfg.LockOSThread),
	)

	return d, nil
}

// Config returns the effective configuration.
func (d *Dispatcher) Config() bridge.Config { return d.cfg }

// Logger returns the dispatcher's logger.
func (d *Dispatcher) Logger() *slog.Logger { return d.logger }

// Extensions returns the extension registry.
func (d *Dispatcher) Extensions() *ext.Registry { return d.extensions }

// Start launches the worker pool. Values carried by ctx are inherited by
// every operation context; its cancellation is not.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return bridge.ErrClosed
	}
	if d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = true
	d.baseCtx = context.WithoutCancel(ctx)
	d.mu.Unlock()

	d.logger.Info("bridge dispatcher starting",
		slog.Int("workers", d.cfg.WorkerCount),
		slog.Int("queue_capacity", d.cfg.QueueCapacity),
		slog.String("overflow_policy", d.cfg.OverflowPolicy.String()),
	)
	return d.pool.Start(ctx)
}

// Submit queues op and returns its handle. It does not wait for the job to
// run. Under the block overflow policy it waits for queue space until ctx
// ends; under reject it fails with bridge.ErrQueueFull; under drop_oldest
// the oldest queued job is preempted. A job whose deadline has already
// passed is resolved as timed out without being queued.
func (d *Dispatcher) Submit(ctx context.Context, op job.Operation, opts ...job.Option) (*handle.Handle, error) {
	o := job.Apply(job.Options{Timeout: time.Duration(d.cfg.DefaultDeadline)}, opts...)

	d.mu.Lock()
	for {
		if d.closing {
			d.mu.Unlock()
			return nil, d.reject(ctx, o.Name, bridge.ErrClosed)
		}
		if !d.queue.Full() || d.cfg.OverflowPolicy != bridge.OverflowBlock {
			break
		}
		if !d.started {
			d.mu.Unlock()
			return nil, d.reject(ctx, o.Name, fmt.Errorf("%w: queue full and no workers to drain it", bridge.ErrNotStarted))
		}
		wait := d.spaceFreed
		d.mu.Unlock()

		select {
		case <-wait:
		case <-d.closed:
		case <-ctx.Done():
			return nil, d.reject(ctx, o.Name, ctx.Err())
		}
		d.mu.Lock()
	}

	now := time.Now()
	j := job.New(d.ids.Next(), op, o, now)
	h := handle.New(j.ID, d)
	e := &entry{job: j, handle: h}
	d.submitted++

	if j.Expired(now) {
		d.registry.Acknowledge(j.ID, bridge.ErrTimedOut, now)
		r := d.finishLocked(e, bridge.TimedOutOutcome(), now)
		d.mu.Unlock()

		d.logger.Debug("job deadline already passed",
			slog.String("job_id", j.ID.String()),
			slog.Time("deadline", j.Deadline),
		)
		d.extensions.EmitJobSubmitted(ctx, &r.job)
		d.deliver(ctx, r)
		return h, nil
	}

	evicted, err := d.queue.Push(j)
	if err != nil {
		d.submitted--
		d.mu.Unlock()
		return nil, d.reject(ctx, o.Name, err)
	}
	d.jobs[j.ID] = e
	if j.HasDeadline() {
		jobID := j.ID
		e.timer = time.AfterFunc(j.Deadline.Sub(now), func() { d.expire(jobID) })
	}

	var preempted []resolution
	if evicted != nil {
		if ee, ok := d.jobs[evicted.ID]; ok {
			preempted = append(preempted, d.finishLocked(ee, bridge.PreemptedOutcome(), now))
		}
	}
	snap := j.Snapshot()
	broadcast(&d.workReady)
	d.mu.Unlock()

	d.logger.Debug("job submitted",
		slog.String("job_id", j.ID.String()),
		slog.String("job_name", j.Name),
		slog.String("correlation_id", j.CorrelationID.String()),
	)
	d.extensions.EmitJobSubmitted(ctx, &snap)
	d.deliver(ctx, preempted...)
	return h, nil
}

// Cancel requests cancellation of a job. A queued job is removed and its
// handle resolved as cancelled before Cancel returns. A running job has its
// operation context cancelled with cause bridge.ErrCancelled; the handle
// resolves once the operation returns. Unknown or already resolved jobs
// yield bridge.ErrJobNotFound.
func (d *Dispatcher) Cancel(jobID id.JobID) error {
	return d.cancelWith(jobID, bridge.ErrCancelled)
}

func (d *Dispatcher) cancelWith(jobID id.JobID, cause error) error {
	now := time.Now()

	d.mu.Lock()
	e, ok := d.jobs[jobID]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", bridge.ErrJobNotFound, jobID)
	}

	switch e.job.State {
	case job.StateQueued:
		d.registry.Request(jobID, cause, now)
		d.queue.Remove(jobID)
		d.registry.Acknowledge(jobID, cause, now)
		r := d.finishLocked(e, bridge.OutcomeFor(cause), now)
		broadcast(&d.spaceFreed)
		d.mu.Unlock()

		d.deliver(context.Background(), r)
		return nil

	case job.StateRunning:
		if d.registry.Request(jobID, cause, now) {
			e.cancel(cause)
		}
		d.mu.Unlock()

		d.logger.Debug("cancellation requested for running job",
			slog.String("job_id", jobID.String()),
			slog.String("cause", cause.Error()),
		)
		return nil

	default:
		d.mu.Unlock()
		d.invariant("live job in terminal state",
			slog.String("job_id", jobID.String()),
			slog.String("state", string(e.job.State)),
		)
		return fmt.Errorf("%w: %s", bridge.ErrJobNotFound, jobID)
	}
}

// expire is the deadline timer callback.
func (d *Dispatcher) expire(jobID id.JobID) {
	if err := d.cancelWith(jobID, bridge.ErrTimedOut); err == nil {
		d.logger.Debug("job deadline reached", slog.String("job_id", jobID.String()))
	}
}

// Claim implements worker.Source. It hands the head of the queue to worker
// w, marking it running, and blocks while the queue is empty.
func (d *Dispatcher) Claim(stop <-chan struct{}, w id.WorkerID) (context.Context, *job.Job, bool) {
	for {
		select {
		case <-stop:
			return nil, nil, false
		default:
		}

		now := time.Now()
		var expired []resolution

		d.mu.Lock()
		for j := d.queue.Pop(); j != nil; j = d.queue.Pop() {
			broadcast(&d.spaceFreed)
			e, ok := d.jobs[j.ID]
			if !ok {
				d.invariant("queued job missing from job table", slog.String("job_id", j.ID.String()))
				continue
			}
			if j.Expired(now) {
				d.registry.Acknowledge(j.ID, bridge.ErrTimedOut, now)
				expired = append(expired, d.finishLocked(e, bridge.TimedOutOutcome(), now))
				continue
			}

			ctx, cancel := context.WithCancelCause(d.baseCtx)
			release := context.CancelFunc(func() {})
			if j.HasDeadline() {
				ctx, release = context.WithDeadlineCause(ctx, j.Deadline, bridge.ErrTimedOut)
			}
			if err := j.Transition(job.StateRunning, now); err != nil {
				d.invariant("claim transition failed", slog.String("error", err.Error()))
			}
			j.Worker = w
			e.cancel, e.release, e.claimed = cancel, release, now
			d.running++
			private := *j
			d.mu.Unlock()

			d.deliver(context.Background(), expired...)
			return ctx, &private, true
		}
		ready := d.workReady
		d.mu.Unlock()

		d.deliver(context.Background(), expired...)

		select {
		case <-stop:
			return nil, nil, false
		case <-ready:
		}
	}
}

// Complete implements worker.Source. It converts the operation's result
// into the job's outcome and resolves the handle.
func (d *Dispatcher) Complete(j *job.Job, v any, err error) {
	now := time.Now()

	d.mu.Lock()
	e, ok := d.jobs[j.ID]
	if !ok || e.job.State != job.StateRunning {
		d.mu.Unlock()
		d.logger.Warn("discarding result of abandoned job",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
		)
		return
	}

	// A deadline that passed while running counts as a request even if
	// its timer has not fired yet.
	if !d.registry.Requested(j.ID) && e.job.Expired(now) {
		d.registry.Request(j.ID, bridge.ErrTimedOut, now)
	}

	var o bridge.Outcome
	rec, requested := d.registry.Lookup(j.ID)
	requested = requested && rec.State == bridge.CancelRequested
	switch {
	case err == nil:
		o = bridge.ValueOutcome(v)
		if requested {
			d.registry.TooLate(j.ID, now)
		}
	case requested && observedCancel(err, rec.Reason):
		o = bridge.OutcomeFor(rec.Reason)
		d.registry.Acknowledge(j.ID, rec.Reason, now)
	default:
		o = bridge.FailedOutcome(err)
		if requested {
			d.registry.TooLate(j.ID, now)
		}
	}

	r := d.finishLocked(e, o, now)
	d.mu.Unlock()

	d.deliver(context.Background(), r)
}

// observedCancel reports whether an operation error shows that the
// operation stopped because of the cancellation signal.
func observedCancel(err, cause error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(cause != nil && errors.Is(err, cause))
}

// finishLocked retires e with outcome o and returns the pending
// resolution. It must be called with d.mu held.
func (d *Dispatcher) finishLocked(e *entry, o bridge.Outcome, now time.Time) resolution {
	j := e.job
	wasRunning := j.State == job.StateRunning

	next := job.StateCancelled
	switch o.Kind {
	case bridge.KindValue:
		next = job.StateCompleted
	case bridge.KindFailed:
		next = job.StateFailed
	}
	if err := j.Transition(next, now); err != nil {
		d.invariant("finish transition failed", slog.String("error", err.Error()))
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	if e.cancel != nil {
		e.cancel(nil)
		e.release()
	}

	o.Cancel = d.registry.State(j.ID)
	d.registry.Remove(j.ID)
	delete(d.jobs, j.ID)
	if wasRunning {
		d.running--
	}
	d.outcomes[o.Kind]++

	var elapsed time.Duration
	if !e.claimed.IsZero() {
		elapsed = now.Sub(e.claimed)
	}
	return resolution{handle: e.handle, outcome: o, job: j.Snapshot(), elapsed: elapsed}
}

// deliver resolves handles and emits outcome hooks. It must be called
// without d.mu held, since resolving may run async tasks inline.
func (d *Dispatcher) deliver(ctx context.Context, rs ...resolution) {
	for i := range rs {
		r := &rs[i]
		if !r.handle.Resolve(r.outcome) {
			d.invariant("handle resolved twice",
				slog.String("job_id", r.job.ID.String()),
				slog.String("outcome", r.outcome.Kind.String()),
			)
			continue
		}
		d.extensions.EmitOutcome(ctx, &r.job, r.outcome, r.elapsed)
	}
}

func (d *Dispatcher) reject(ctx context.Context, name string, err error) error {
	d.extensions.EmitJobRejected(ctx, name, err)
	return err
}

// invariant reports a violated internal invariant. It panics in builds
// tagged bridgedebug.
func (d *Dispatcher) invariant(msg string, attrs ...any) {
	if debugAssertions {
		panic(fmt.Sprintf("bridge: invariant violated: %s %v", msg, attrs))
	}
	d.logger.Error("bridge invariant violated: "+msg, attrs...)
}

// broadcast wakes every goroutine waiting on *ch. Callers hold d.mu.
func broadcast(ch *chan struct{}) {
	close(*ch)
	*ch = make(chan struct{})
}
