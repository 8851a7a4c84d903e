package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/ext"
	"github.com/xraph/bridge/job"
)

var (
	_ ext.Extension    = (*PrometheusExtension)(nil)
	_ ext.JobSubmitted = (*PrometheusExtension)(nil)
	_ ext.JobRejected  = (*PrometheusExtension)(nil)
	_ ext.JobStarted   = (*PrometheusExtension)(nil)
	_ ext.JobCompleted = (*PrometheusExtension)(nil)
	_ ext.JobFailed    = (*PrometheusExtension)(nil)
	_ ext.JobCancelled = (*PrometheusExtension)(nil)
	_ ext.JobTimedOut  = (*PrometheusExtension)(nil)
	_ ext.JobPreempted = (*PrometheusExtension)(nil)
	_ ext.JobAborted   = (*PrometheusExtension)(nil)
)

// Gauges exposes live dispatcher counts. *engine.Dispatcher implements it.
type Gauges interface {
	Queued() int
	Running() int
}

// PrometheusExtension exports lifecycle counters and run-time histograms to
// a Prometheus registry.
type PrometheusExtension struct {
	reg prometheus.Registerer

	Submitted *prometheus.CounterVec
	Rejected  prometheus.Counter
	Outcomes  *prometheus.CounterVec
	QueueWait prometheus.Histogram
	RunTime   *prometheus.HistogramVec
}

// NewPrometheusExtension creates the collectors and registers them with
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusExtension(reg prometheus.Registerer) *PrometheusExtension {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PrometheusExtension{
		reg: reg,
		Submitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_jobs_submitted_total",
			Help: "Total number of jobs accepted into the queue",
		}, []string{"job_name"}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "bridge_jobs_rejected_total",
			Help: "Total number of refused submissions",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_jobs_resolved_total",
			Help: "Total number of resolved jobs by outcome",
		}, []string{"outcome"}),
		QueueWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_job_queue_wait_seconds",
			Help:    "Time jobs waited in the queue before a worker claimed them",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}),
		RunTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_job_run_seconds",
			Help:    "Time from worker claim to resolution",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"outcome"}),
	}
}

// WatchGauges registers queue-depth and running-job gauges read from g.
func (p *PrometheusExtension) WatchGauges(g Gauges) error {
	queued := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bridge_queue_length",
		Help: "Current number of jobs waiting for a worker",
	}, func() float64 { return float64(g.Queued()) })
	running := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bridge_running_jobs",
		Help: "Current number of jobs being executed",
	}, func() float64 { return float64(g.Running()) })

	if err := p.reg.Register(queued); err != nil {
		return err
	}
	return p.reg.Register(running)
}

// Name implements ext.Extension.
func (p *PrometheusExtension) Name() string { return "prometheus" }

// OnJobSubmitted implements ext.JobSubmitted.
func (p *PrometheusExtension) OnJobSubmitted(_ context.Context, j *job.Job) error {
	p.Submitted.WithLabelValues(j.Name).Inc()
	return nil
}

// OnJobRejected implements ext.JobRejected.
func (p *PrometheusExtension) OnJobRejected(_ context.Context, _ string, _ error) error {
	p.Rejected.Inc()
	return nil
}

// OnJobStarted implements ext.JobStarted.
func (p *PrometheusExtension) OnJobStarted(_ context.Context, j *job.Job) error {
	p.QueueWait.Observe(j.WaitTime().Seconds())
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (p *PrometheusExtension) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	p.observe(bridge.KindValue, ranFor(j))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (p *PrometheusExtension) OnJobFailed(_ context.Context, j *job.Job, _ error) error {
	p.observe(bridge.KindFailed, ranFor(j))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (p *PrometheusExtension) OnJobCancelled(_ context.Context, j *job.Job, _ bridge.CancelState) error {
	p.observe(bridge.KindCancelled, ranFor(j))
	return nil
}

// OnJobTimedOut implements ext.JobTimedOut.
func (p *PrometheusExtension) OnJobTimedOut(_ context.Context, j *job.Job) error {
	p.observe(bridge.KindTimedOut, ranFor(j))
	return nil
}

// OnJobPreempted implements ext.JobPreempted.
func (p *PrometheusExtension) OnJobPreempted(_ context.Context, _ *job.Job) error {
	p.Outcomes.WithLabelValues(bridge.KindPreempted.String()).Inc()
	return nil
}

// OnJobAborted implements ext.JobAborted.
func (p *PrometheusExtension) OnJobAborted(_ context.Context, j *job.Job) error {
	p.observe(bridge.KindShutdownAborted, ranFor(j))
	return nil
}

func (p *PrometheusExtension) observe(k bridge.Kind, elapsed time.Duration) {
	p.Outcomes.WithLabelValues(k.String()).Inc()
	if elapsed > 0 {
		p.RunTime.WithLabelValues(k.String()).Observe(elapsed.Seconds())
	}
}

// ranFor returns how long a finished job ran, or zero if it never started.
func ranFor(j *job.Job) time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}
