package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/job"
)

// Shutdown closes intake and tears the worker pool down according to the
// configured shutdown mode. Queued jobs resolve as shutdown aborted right
// away. In graceful mode running jobs are given the grace timeout (and
// ctx) to finish; the remainder is abandoned and Shutdown returns an error
// wrapping bridge.ErrShutdownAborted. In immediate mode running jobs are
// abandoned at once.
//
// Concurrent and repeated calls wait for the first one and return its
// result.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		select {
		case <-d.shutdownDone:
			return d.shutdownErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.closing = true
	close(d.closed)
	mode := d.cfg.Shutdown
	started := d.started
	now := time.Now()

	var rs []resolution
	for _, j := range d.queue.Drain() {
		if e, ok := d.jobs[j.ID]; ok {
			rs = append(rs, d.finishLocked(e, bridge.AbortedOutcome(), now))
		}
	}
	if mode.Kind == bridge.ShutdownImmediate {
		rs = append(rs, d.abandonRunningLocked(now)...)
	}
	broadcast(&d.spaceFreed)
	broadcast(&d.workReady)
	d.mu.Unlock()

	d.logger.Info("bridge dispatcher shutting down",
		slog.String("mode", mode.String()),
		slog.Int("aborted", len(rs)),
	)
	d.extensions.EmitShutdown(ctx, mode)
	d.deliver(ctx, rs...)

	err := d.stopPool(ctx, mode, started)
	d.shutdownErr = err
	close(d.shutdownDone)
	return err
}

func (d *Dispatcher) stopPool(ctx context.Context, mode bridge.ShutdownMode, started bool) error {
	if !started {
		return nil
	}

	stopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	switch {
	case mode.Kind == bridge.ShutdownImmediate:
		cancel()
	case mode.Timeout > 0:
		stopCtx, cancel = context.WithTimeout(stopCtx, mode.Timeout)
		defer cancel()
	}

	if d.pool.Stop(stopCtx) == nil || mode.Kind == bridge.ShutdownImmediate {
		return nil
	}

	d.mu.Lock()
	rs := d.abandonRunningLocked(time.Now())
	d.mu.Unlock()
	d.deliver(ctx, rs...)

	if len(rs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d running jobs abandoned after grace period", bridge.ErrShutdownAborted, len(rs))
}

// abandonRunningLocked cancels every running job with cause
// bridge.ErrShutdownAborted and retires it. Callers hold d.mu.
func (d *Dispatcher) abandonRunningLocked(now time.Time) []resolution {
	var rs []resolution
	for jobID, e := range d.jobs {
		if e.job.State != job.StateRunning {
			continue
		}
		d.registry.Request(jobID, bridge.ErrShutdownAborted, now)
		e.cancel(bridge.ErrShutdownAborted)
		d.logger.Warn("abandoning running job",
			slog.String("job_id", jobID.String()),
			slog.String("job_name", e.job.Name),
			slog.String("worker", e.job.Worker.String()),
		)
		rs = append(rs, d.finishLocked(e, bridge.AbortedOutcome(), now))
	}
	return rs
}

// Closed returns a channel that is closed once Shutdown has begun.
func (d *Dispatcher) Closed() <-chan struct{} { return d.closed }
