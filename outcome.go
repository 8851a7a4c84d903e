package bridge

import (
	"errors"
	"fmt"
)

// Kind classifies the terminal resolution of a job.
type Kind uint8

const (
	// KindValue means the operation returned a value.
	KindValue Kind = iota + 1
	// KindFailed means the operation returned an error or panicked.
	KindFailed
	// KindCancelled means the job was cancelled before or during execution.
	KindCancelled
	// KindTimedOut means the job's deadline passed before it finished.
	KindTimedOut
	// KindShutdownAborted means the pool was torn down while the job was
	// queued or running.
	KindShutdownAborted
	// KindPreempted means the job was evicted from a full queue under the
	// drop-oldest policy.
	KindPreempted
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindFailed:
		return "failed"
	case KindCancelled:
		return "cancelled"
	case KindTimedOut:
		return "timed_out"
	case KindShutdownAborted:
		return "shutdown_aborted"
	case KindPreempted:
		return "preempted"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// CancelState is the cancellation registry state of a job.
type CancelState uint8

const (
	// CancelNone means no cancellation was ever requested.
	CancelNone CancelState = iota
	// CancelRequested means cancellation was requested and not yet settled.
	CancelRequested
	// CancelAcknowledged means the request took effect: the job was removed
	// from the queue, or the running operation observed the signal.
	CancelAcknowledged
	// CancelTooLate means the operation ran to completion ignoring the
	// signal and its real result was delivered.
	CancelTooLate
)

// String returns the lower-case name of the state.
func (s CancelState) String() string {
	switch s {
	case CancelNone:
		return "none"
	case CancelRequested:
		return "requested"
	case CancelAcknowledged:
		return "acknowledged"
	case CancelTooLate:
		return "too_late"
	default:
		return fmt.Sprintf("cancel(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s CancelState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome is the single resolution written into a Bridge Handle.
type Outcome struct {
	Kind  Kind
	Value any
	// Err is set for every kind except KindValue. For KindFailed it is an
	// *OperationError.
	Err error
	// Cancel is the final cancellation registry state of the job.
	Cancel CancelState
}

// ValueOutcome builds a successful outcome.
func ValueOutcome(v any) Outcome {
	return Outcome{Kind: KindValue, Value: v}
}

// FailedOutcome builds an OperationFailed outcome around err.
func FailedOutcome(err error) Outcome {
	return Outcome{Kind: KindFailed, Err: &OperationError{Err: err}}
}

// CancelledOutcome builds a Cancelled outcome.
func CancelledOutcome() Outcome {
	return Outcome{Kind: KindCancelled, Err: ErrCancelled}
}

// TimedOutOutcome builds a TimedOut outcome.
func TimedOutOutcome() Outcome {
	return Outcome{Kind: KindTimedOut, Err: ErrTimedOut}
}

// AbortedOutcome builds a ShutdownAborted outcome.
func AbortedOutcome() Outcome {
	return Outcome{Kind: KindShutdownAborted, Err: ErrShutdownAborted}
}

// PreemptedOutcome builds a Preempted outcome.
func PreemptedOutcome() Outcome {
	return Outcome{Kind: KindPreempted, Err: ErrPreempted}
}

// OutcomeFor maps a cancellation cause (ErrCancelled, ErrTimedOut,
// ErrShutdownAborted) to the matching outcome.
func OutcomeFor(cause error) Outcome {
	switch {
	case errors.Is(cause, ErrTimedOut):
		return TimedOutOutcome()
	case errors.Is(cause, ErrShutdownAborted):
		return AbortedOutcome()
	default:
		return CancelledOutcome()
	}
}

// Result returns the value and error the awaiting caller sees.
func (o Outcome) Result() (any, error) {
	if o.Kind == KindValue {
		return o.Value, nil
	}
	return nil, o.Err
}
