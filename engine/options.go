package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/ext"
	mw "github.com/xraph/bridge/middleware"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfig replaces the whole configuration. Options applied after it
// override individual fields.
func WithConfig(cfg bridge.Config) Option {
	return func(d *Dispatcher) { d.cfg = cfg }
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(n int) Option {
	return func(d *Dispatcher) { d.cfg.WorkerCount = n }
}

// WithQueueCapacity sets the job queue bound.
func WithQueueCapacity(n int) Option {
	return func(d *Dispatcher) { d.cfg.QueueCapacity = n }
}

// WithOverflowPolicy sets what Submit does when the queue is full.
func WithOverflowPolicy(p bridge.OverflowPolicy) Option {
	return func(d *Dispatcher) { d.cfg.OverflowPolicy = p }
}

// WithShutdownMode sets how Shutdown treats running jobs.
func WithShutdownMode(m bridge.ShutdownMode) Option {
	return func(d *Dispatcher) { d.cfg.Shutdown = m }
}

// WithDefaultDeadline applies a relative timeout to jobs submitted without
// one.
func WithDefaultDeadline(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.cfg.DefaultDeadline = bridge.Duration(timeout) }
}

// WithLockOSThread pins each worker goroutine to its own OS thread.
func WithLockOSThread(lock bool) Option {
	return func(d *Dispatcher) { d.cfg.LockOSThread = lock }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(d *Dispatcher) { d.pendingExts = append(d.pendingExts, e) }
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(d *Dispatcher) { d.mws = append(d.mws, m) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the tracing
// middleware. If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) { d.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for both the metrics
// middleware and the observability extension. If not set, the global
// otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(d *Dispatcher) { d.meterProvider = mp }
}
