package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/bridge/job"
)

// meterName is the instrumentation scope name for bridge metrics.
const meterName = "github.com/xraph/bridge"

// unnamedJob is the job_name attribute for jobs submitted without a name.
const unnamedJob = "unnamed"

// Metrics returns middleware that records per-job execution metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - bridge.job.duration (Float64Histogram): operation run time in seconds,
//     with attributes: job_name ("unnamed" when the job has no name),
//     status ("ok", "error" or "cancelled")
//   - bridge.job.executions (Int64Counter): total executions,
//     with the same attributes
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments.
	duration, _ := meter.Float64Histogram(
		"bridge.job.duration",
		metric.WithDescription("Duration of operation execution in seconds"),
		metric.WithUnit("s"),
	)
	executions, _ := meter.Int64Counter(
		"bridge.job.executions",
		metric.WithDescription("Total number of operation executions"),
		metric.WithUnit("{execution}"),
	)

	return func(ctx context.Context, j *job.Job, next Handler) (any, error) {
		start := time.Now()
		v, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		switch {
		case err != nil && ctx.Err() != nil:
			status = "cancelled"
		case err != nil:
			status = "error"
		}

		name := j.Name
		if name == "" {
			name = unnamedJob
		}
		attrs := metric.WithAttributes(
			attribute.String("job_name", name),
			attribute.String("status", status),
		)

		// Record against a context that outlives cancellation.
		rctx := context.WithoutCancel(ctx)
		duration.Record(rctx, elapsed, attrs)
		executions.Add(rctx, 1, attrs)

		return v, err
	}
}
