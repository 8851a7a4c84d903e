package job

import (
	"time"

	"github.com/google/uuid"
)

// Options configures a single submission.
type Options struct {
	// Name labels the job in logs, spans and metrics.
	Name string

	// Deadline is an absolute timeout. It takes precedence over Timeout.
	Deadline time.Time

	// Timeout is a relative timeout measured from submission.
	Timeout time.Duration

	// CorrelationID overrides the generated correlation ID.
	CorrelationID uuid.UUID
}

// Option is a functional option for configuring a submission.
type Option func(*Options)

// WithName sets the job's label.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithDeadline sets an absolute deadline for the job.
func WithDeadline(t time.Time) Option {
	return func(o *Options) {
		o.Deadline = t
	}
}

// WithTimeout sets a deadline relative to submission time.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithCorrelationID tags the job with an externally chosen correlation ID.
func WithCorrelationID(c uuid.UUID) Option {
	return func(o *Options) {
		o.CorrelationID = c
	}
}

// Apply folds opts over base.
func Apply(base Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
