package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/xraph/bridge/ext"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/job"
)

// Source hands jobs to workers and receives their results. The dispatcher
// implements it.
type Source interface {
	// Claim blocks until a job is ready for worker w or stop is closed.
	// The returned job is the worker's private copy, and the returned
	// context is the job's cancellation context. ok is false once the
	// worker should exit.
	Claim(stop <-chan struct{}, w id.WorkerID) (ctx context.Context, j *job.Job, ok bool)
	// Complete reports the result of running j. It never blocks on the
	// async side.
	Complete(j *job.Job, v any, err error)
}

// Pool manages a fixed set of worker goroutines. Each worker claims one
// job at a time from its Source and runs it to completion through the
// Executor.
type Pool struct {
	source       Source
	executor     *Executor
	extensions   *ext.Registry
	concurrency  int
	lockOSThread bool
	logger       *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stopped bool
	busy    atomic.Int64

	activeMu   sync.Mutex
	activeJobs map[id.WorkerID]id.JobID
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithLockOSThread pins each worker goroutine to its own OS thread for the
// lifetime of the worker. Use it for operations with thread affinity.
func WithLockOSThread(lock bool) PoolOption {
	return func(p *Pool) { p.lockOSThread = lock }
}

// NewPool creates a worker pool.
func NewPool(
	source Source,
	executor *Executor,
	extensions *ext.Registry,
	logger *slog.Logger,
	opts ...PoolOption,
) *Pool {
	p := &Pool{
		source:      source,
		executor:    executor,
		extensions:  extensions,
		concurrency: runtime.NumCPU(),
		logger:      logger,
		stopCh:      make(chan struct{}),
		activeJobs:  make(map[id.WorkerID]id.JobID),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p
}

// Concurrency returns the number of workers.
func (p *Pool) Concurrency() int { return p.concurrency }

// Busy returns the number of workers currently running an operation.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Active returns the job each busy worker is running.
func (p *Pool) Active() map[id.WorkerID]id.JobID {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	out := make(map[id.WorkerID]id.JobID, len(p.activeJobs))
	for w, j := range p.activeJobs {
		out[w] = j
	}
	return out
}

// Start launches the worker goroutines. It returns immediately. A pool
// cannot be restarted once stopped.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.stopped {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.Int("concurrency", p.concurrency),
		slog.Bool("lock_os_thread", p.lockOSThread),
	)

	for i := range p.concurrency {
		p.wg.Add(1)
		go p.claimLoop(id.WorkerID(i + 1))
	}

	return nil
}

// Stop signals all workers to exit after their current job and waits for
// them. If ctx ends first, Stop returns an error wrapping ctx's error and
// leaves the remaining workers to exit when their operations return.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.stopped = true
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.stopped = true
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.Int("busy", p.Busy()))

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, abandoning active jobs",
			slog.Int("busy", p.Busy()),
		)
		return fmt.Errorf("worker pool stop: %w", context.Cause(ctx))
	}
}

// claimLoop is run by each worker goroutine.
func (p *Pool) claimLoop(w id.WorkerID) {
	defer p.wg.Done()

	if p.lockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for {
		ctx, j, ok := p.source.Claim(p.stopCh, w)
		if !ok {
			return
		}
		p.run(ctx, w, j)
	}
}

func (p *Pool) run(ctx context.Context, w id.WorkerID, j *job.Job) {
	p.busy.Add(1)
	p.trackJob(w, j.ID)
	defer func() {
		p.untrackJob(w)
		p.busy.Add(-1)
	}()

	p.extensions.EmitJobStarted(ctx, j)

	v, err := p.executor.Execute(ctx, j)
	if err != nil {
		p.logger.Debug("job operation returned error",
			slog.String("job_id", j.ID.String()),
			slog.String("job_name", j.Name),
			slog.String("worker", w.String()),
			slog.String("error", err.Error()),
		)
	}

	p.source.Complete(j, v, err)
}

func (p *Pool) trackJob(w id.WorkerID, jobID id.JobID) {
	p.activeMu.Lock()
	p.activeJobs[w] = jobID
	p.activeMu.Unlock()
}

func (p *Pool) untrackJob(w id.WorkerID) {
	p.activeMu.Lock()
	delete(p.activeJobs, w)
	p.activeMu.Unlock()
}
