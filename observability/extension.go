package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/ext"
	"github.com/xraph/bridge/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobSubmitted = (*MetricsExtension)(nil)
	_ ext.JobRejected  = (*MetricsExtension)(nil)
	_ ext.JobStarted   = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.JobCancelled = (*MetricsExtension)(nil)
	_ ext.JobTimedOut  = (*MetricsExtension)(nil)
	_ ext.JobPreempted = (*MetricsExtension)(nil)
	_ ext.JobAborted   = (*MetricsExtension)(nil)
)

// meterName is the instrumentation scope used by NewMetricsExtension.
const meterName = "github.com/xraph/bridge/observability"

// MetricsExtension records system-wide lifecycle metrics through an OTel
// meter. The dispatcher registers one automatically; it tracks submission
// and rejection rates, queue wait time and terminal outcomes.
//
// Instruments:
//   - bridge.job.submitted, bridge.job.rejected (Int64Counter)
//   - bridge.job.outcomes (Int64Counter) with attribute outcome
//     ("value", "failed", "cancelled", "timed_out", "preempted",
//     "shutdown_aborted") and, for cancellations, cancel_state
//   - bridge.job.queue_wait (Float64Histogram, seconds)
type MetricsExtension struct {
	submitted metric.Int64Counter
	rejected  metric.Int64Counter
	outcomes  metric.Int64Counter
	queueWait metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on the given
// meter. On instrument errors the API hands back noops.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	submitted, _ := meter.Int64Counter("bridge.job.submitted",
		metric.WithDescription("Jobs accepted into the queue"),
		metric.WithUnit("{job}"),
	)
	rejected, _ := meter.Int64Counter("bridge.job.rejected",
		metric.WithDescription("Submissions refused by the dispatcher"),
		metric.WithUnit("{job}"),
	)
	outcomes, _ := meter.Int64Counter("bridge.job.outcomes",
		metric.WithDescription("Terminal job resolutions by outcome"),
		metric.WithUnit("{job}"),
	)
	queueWait, _ := meter.Float64Histogram("bridge.job.queue_wait",
		metric.WithDescription("Time jobs spent queued before a worker claimed them"),
		metric.WithUnit("s"),
	)
	return &MetricsExtension{
		submitted: submitted,
		rejected:  rejected,
		outcomes:  outcomes,
		queueWait: queueWait,
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobSubmitted implements ext.JobSubmitted.
func (m *MetricsExtension) OnJobSubmitted(ctx context.Context, _ *job.Job) error {
	m.submitted.Add(ctx, 1)
	return nil
}

// OnJobRejected implements ext.JobRejected.
func (m *MetricsExtension) OnJobRejected(ctx context.Context, _ string, _ error) error {
	m.rejected.Add(ctx, 1)
	return nil
}

// OnJobStarted implements ext.JobStarted.
func (m *MetricsExtension) OnJobStarted(ctx context.Context, j *job.Job) error {
	m.queueWait.Record(ctx, j.WaitTime().Seconds())
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, _ *job.Job, _ time.Duration) error {
	m.outcome(ctx, bridge.KindValue)
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, _ *job.Job, _ error) error {
	m.outcome(ctx, bridge.KindFailed)
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, _ *job.Job, state bridge.CancelState) error {
	m.outcome(ctx, bridge.KindCancelled, attribute.String("cancel_state", state.String()))
	return nil
}

// OnJobTimedOut implements ext.JobTimedOut.
func (m *MetricsExtension) OnJobTimedOut(ctx context.Context, _ *job.Job) error {
	m.outcome(ctx, bridge.KindTimedOut)
	return nil
}

// OnJobPreempted implements ext.JobPreempted.
func (m *MetricsExtension) OnJobPreempted(ctx context.Context, _ *job.Job) error {
	m.outcome(ctx, bridge.KindPreempted)
	return nil
}

// OnJobAborted implements ext.JobAborted.
func (m *MetricsExtension) OnJobAborted(ctx context.Context, _ *job.Job) error {
	m.outcome(ctx, bridge.KindShutdownAborted)
	return nil
}

func (m *MetricsExtension) outcome(ctx context.Context, k bridge.Kind, extra ...attribute.KeyValue) {
	attrs := append([]attribute.KeyValue{attribute.String("outcome", k.String())}, extra...)
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}
