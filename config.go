package bridge

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"
)

// OverflowPolicy decides what Submit does when the job queue is full.
type OverflowPolicy uint8

const (
	// OverflowBlock suspends the submitter until space frees up.
	OverflowBlock OverflowPolicy = iota
	// OverflowReject fails the submission with ErrQueueFull.
	OverflowReject
	// OverflowDropOldest evicts the head of the queue, resolving its handle
	// with ErrPreempted.
	OverflowDropOldest
)

// String implements fmt.Stringer.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowBlock:
		return "block"
	case OverflowReject:
		return "reject"
	case OverflowDropOldest:
		return "drop_oldest"
	default:
		return fmt.Sprintf("overflow(%d)", uint8(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p OverflowPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *OverflowPolicy) UnmarshalText(b []byte) error {
	switch string(b) {
	case "block", "Block":
		*p = OverflowBlock
	case "reject", "RejectImmediately", "reject_immediately":
		*p = OverflowReject
	case "drop_oldest", "DropOldest":
		*p = OverflowDropOldest
	default:
		return fmt.Errorf("%w: unknown overflow policy %q", ErrInvalidConfig, b)
	}
	return nil
}

// ShutdownKind selects how in-flight jobs are treated at teardown.
type ShutdownKind uint8

const (
	// ShutdownGraceful lets running jobs finish, up to ShutdownMode.Timeout.
	ShutdownGraceful ShutdownKind = iota
	// ShutdownImmediate abandons running jobs right away.
	ShutdownImmediate
)

// ShutdownMode configures pool teardown.
type ShutdownMode struct {
	Kind ShutdownKind `json:"-"`
	// Timeout bounds a graceful shutdown. Zero waits as long as the
	// caller's context allows.
	Timeout time.Duration `json:"-"`
}

// Graceful returns a graceful shutdown mode with the given grace timeout.
func Graceful(timeout time.Duration) ShutdownMode {
	return ShutdownMode{Kind: ShutdownGraceful, Timeout: timeout}
}

// Immediate returns the immediate shutdown mode.
func Immediate() ShutdownMode {
	return ShutdownMode{Kind: ShutdownImmediate}
}

// String returns "immediate" or "graceful(<timeout>)".
func (m ShutdownMode) String() string {
	if m.Kind == ShutdownImmediate {
		return "immediate"
	}
	return fmt.Sprintf("graceful(%s)", m.Timeout)
}

type shutdownJSON struct {
	Mode    string   `json:"mode"`
	Timeout Duration `json:"timeout,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m ShutdownMode) MarshalJSON() ([]byte, error) {
	mode := "graceful"
	if m.Kind == ShutdownImmediate {
		mode = "immediate"
	}
	return json.Marshal(shutdownJSON{Mode: mode, Timeout: Duration(m.Timeout)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *ShutdownMode) UnmarshalJSON(b []byte) error {
	var raw shutdownJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Mode {
	case "graceful", "":
		*m = Graceful(time.Duration(raw.Timeout))
	case "immediate":
		*m = Immediate()
	default:
		return fmt.Errorf("%w: unknown shutdown mode %q", ErrInvalidConfig, raw.Mode)
	}
	return nil
}

// Duration is a time.Duration that reads and writes Go duration strings
// ("250ms", "5s") in JSON.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	*d = Duration(v)
	return nil
}

// Config holds configuration for the Dispatcher.
type Config struct {
	// WorkerCount is the number of parallel blocking-execution units.
	WorkerCount int `json:"worker_count"`

	// QueueCapacity is the maximum number of queued jobs before the
	// overflow policy applies.
	QueueCapacity int `json:"queue_capacity"`

	// OverflowPolicy decides what happens when the queue is full.
	OverflowPolicy OverflowPolicy `json:"overflow_policy"`

	// Shutdown selects graceful or immediate teardown.
	Shutdown ShutdownMode `json:"shutdown_mode"`

	// DefaultDeadline is applied as a relative timeout to jobs submitted
	// without one. Zero means no implicit timeout.
	DefaultDeadline Duration `json:"default_deadline,omitempty"`

	// LockOSThread pins every worker goroutine to its own OS thread, for
	// operations that rely on thread-local state (cgo, FFI handles).
	LockOSThread bool `json:"lock_os_thread,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:    runtime.NumCPU(),
		QueueCapacity:  1024,
		OverflowPolicy: OverflowBlock,
		Shutdown:       Graceful(30 * time.Second),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be at least 1, got %d", ErrInvalidConfig, c.WorkerCount)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue_capacity must be at least 1, got %d", ErrInvalidConfig, c.QueueCapacity)
	}
	if c.OverflowPolicy > OverflowDropOldest {
		return fmt.Errorf("%w: unknown overflow policy %d", ErrInvalidConfig, c.OverflowPolicy)
	}
	if c.Shutdown.Kind > ShutdownImmediate {
		return fmt.Errorf("%w: unknown shutdown kind %d", ErrInvalidConfig, c.Shutdown.Kind)
	}
	if c.Shutdown.Timeout < 0 || c.DefaultDeadline < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig decodes a JSON document over DefaultConfig and validates it.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
