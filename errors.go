package bridge

import (
	"errors"
	"fmt"
)

var (
	// Submission errors.
	ErrQueueFull  = errors.New("bridge: queue full")
	ErrClosed     = errors.New("bridge: dispatcher closed")
	ErrNotStarted = errors.New("bridge: dispatcher not started")

	// Outcome errors.
	ErrPreempted       = errors.New("bridge: job preempted")
	ErrCancelled       = errors.New("bridge: job cancelled")
	ErrTimedOut        = errors.New("bridge: job timed out")
	ErrShutdownAborted = errors.New("bridge: job aborted by shutdown")
	ErrOperationFailed = errors.New("bridge: operation failed")

	// Misuse errors.
	ErrAlreadyConsumed = errors.New("bridge: handle already consumed")
	ErrJobNotFound     = errors.New("bridge: job not found")
	ErrInvalidConfig   = errors.New("bridge: invalid configuration")
	ErrInvalidState    = errors.New("bridge: invalid state transition")
)

// OperationError is the error carried by an OperationFailed outcome. The
// payload is whatever the blocking operation returned; the bridge never
// inspects it.
type OperationError struct {
	Err error
}

// Error implements error.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrOperationFailed.Error(), e.Err)
}

// Unwrap exposes both the operation's own error and ErrOperationFailed.
func (e *OperationError) Unwrap() []error {
	return []error{ErrOperationFailed, e.Err}
}

// PanicError is produced when an operation panics on a worker. It is
// surfaced to the caller wrapped in an OperationError.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("bridge: operation panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
