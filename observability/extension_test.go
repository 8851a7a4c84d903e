package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/job"
	"github.com/xraph/bridge/observability"
)

func newTestJob() *job.Job {
	now := time.Now()
	j := job.New(id.JobID(7), nil, job.Options{Name: "send-email"}, now.Add(-time.Second))
	started := now.Add(-500 * time.Millisecond)
	j.StartedAt = &started
	j.FinishedAt = &now
	return j
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func sumOf(rm metricdata.ResourceMetrics, name string, match func(attribute.Set) bool) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if match == nil || match(dp.Attributes) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func outcomeIs(k bridge.Kind) func(attribute.Set) bool {
	return func(s attribute.Set) bool {
		v, ok := s.Value("outcome")
		return ok && v.AsString() == k.String()
	}
}

func newOTel() (*sdkmetric.ManualReader, *observability.MetricsExtension) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, observability.NewMetricsExtensionWithMeter(mp.Meter("test"))
}

func TestMetricsExtension_Name(t *testing.T) {
	_, e := newOTel()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_SubmittedAndRejected(t *testing.T) {
	reader, e := newOTel()
	ctx := context.Background()

	_ = e.OnJobSubmitted(ctx, newTestJob())
	_ = e.OnJobSubmitted(ctx, newTestJob())
	_ = e.OnJobRejected(ctx, "send-email", bridge.ErrQueueFull)

	rm := collect(t, reader)
	if got := sumOf(rm, "bridge.job.submitted", nil); got != 2 {
		t.Errorf("submitted: want 2, got %d", got)
	}
	if got := sumOf(rm, "bridge.job.rejected", nil); got != 1 {
		t.Errorf("rejected: want 1, got %d", got)
	}
}

func TestMetricsExtension_Outcomes(t *testing.T) {
	reader, e := newOTel()
	ctx := context.Background()
	j := newTestJob()

	_ = e.OnJobCompleted(ctx, j, time.Millisecond)
	_ = e.OnJobFailed(ctx, j, errors.New("smtp down"))
	_ = e.OnJobCancelled(ctx, j, bridge.CancelAcknowledged)
	_ = e.OnJobTimedOut(ctx, j)
	_ = e.OnJobPreempted(ctx, j)
	_ = e.OnJobAborted(ctx, j)

	rm := collect(t, reader)
	for _, k := range []bridge.Kind{
		bridge.KindValue, bridge.KindFailed, bridge.KindCancelled,
		bridge.KindTimedOut, bridge.KindPreempted, bridge.KindShutdownAborted,
	} {
		if got := sumOf(rm, "bridge.job.outcomes", outcomeIs(k)); got != 1 {
			t.Errorf("outcome %s: want 1, got %d", k, got)
		}
	}

	acked := sumOf(rm, "bridge.job.outcomes", func(s attribute.Set) bool {
		v, ok := s.Value("cancel_state")
		return ok && v.AsString() == bridge.CancelAcknowledged.String()
	})
	if acked != 1 {
		t.Errorf("cancel_state attribute: want 1, got %d", acked)
	}
}

func TestMetricsExtension_QueueWait(t *testing.T) {
	reader, e := newOTel()
	_ = e.OnJobStarted(context.Background(), newTestJob())

	rm := collect(t, reader)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "bridge.job.queue_wait" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatal("expected Histogram[float64] data type")
			}
			if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
				t.Fatalf("expected one sample, got %+v", hist.DataPoints)
			}
			if hist.DataPoints[0].Sum < 0.4 {
				t.Errorf("expected ~0.5s wait, got %v", hist.DataPoints[0].Sum)
			}
			return
		}
	}
	t.Fatal("bridge.job.queue_wait metric not found")
}

type fakeGauges struct{ queued, running int }

func (f fakeGauges) Queued() int  { return f.queued }
func (f fakeGauges) Running() int { return f.running }

func TestPrometheusExtension_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := observability.NewPrometheusExtension(reg)
	ctx := context.Background()
	j := newTestJob()

	_ = p.OnJobSubmitted(ctx, j)
	_ = p.OnJobRejected(ctx, j.Name, bridge.ErrQueueFull)
	_ = p.OnJobCompleted(ctx, j, 20*time.Millisecond)
	_ = p.OnJobPreempted(ctx, j)

	if got := testutil.ToFloat64(p.Submitted.WithLabelValues("send-email")); got != 1 {
		t.Errorf("submitted: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(p.Rejected); got != 1 {
		t.Errorf("rejected: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(p.Outcomes.WithLabelValues("value")); got != 1 {
		t.Errorf("value outcomes: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(p.Outcomes.WithLabelValues("preempted")); got != 1 {
		t.Errorf("preempted outcomes: want 1, got %v", got)
	}
	if got := testutil.CollectAndCount(p.RunTime); got != 1 {
		t.Errorf("run time series: want 1, got %d", got)
	}
}

func TestPrometheusExtension_RunTimeFromTimestamps(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := observability.NewPrometheusExtension(reg)
	ctx := context.Background()

	// The job ran for 500ms; the hook's elapsed argument spans more.
	_ = p.OnJobCompleted(ctx, newTestJob(), 3*time.Second)
	_ = p.OnJobFailed(ctx, newTestJob(), errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := 0
	for _, mf := range mfs {
		if mf.GetName() != "bridge_job_run_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			seen++
			if got := m.GetHistogram().GetSampleSum(); got < 0.49 || got > 0.51 {
				t.Errorf("%v: run time = %vs, want 0.5s", m.GetLabel(), got)
			}
		}
	}
	if seen != 2 {
		t.Fatalf("want 2 run time series, got %d", seen)
	}
}

func TestPrometheusExtension_Gauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := observability.NewPrometheusExtension(reg)
	if err := p.WatchGauges(fakeGauges{queued: 3, running: 2}); err != nil {
		t.Fatalf("WatchGauges: %v", err)
	}

	expected := `
# HELP bridge_queue_length Current number of jobs waiting for a worker
# TYPE bridge_queue_length gauge
bridge_queue_length 3
# HELP bridge_running_jobs Current number of jobs being executed
# TYPE bridge_running_jobs gauge
bridge_running_jobs 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"bridge_queue_length", "bridge_running_jobs"); err != nil {
		t.Fatal(err)
	}

	if err := p.WatchGauges(fakeGauges{}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
