// Package id defines the identity types used by the bridge.
//
// Job IDs are assigned from a per-dispatcher monotonic sequence so that
// submission order can be recovered from the identifier alone. They render
// as "job_<n>" and parse back from the same form.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Prefix identifies the entity type encoded in an ID string.
type Prefix string

// Prefix constants for all bridge entity types.
const (
	PrefixJob    Prefix = "job"
	PrefixWorker Prefix = "wkr"
)

// JobID is a monotonically assigned job identifier. The zero value is Nil.
type JobID uint64

// Nil is the zero-value JobID. No generator ever returns it.
const Nil JobID = 0

// String returns the "job_<n>" representation, or "" for Nil.
func (i JobID) String() string {
	if i == Nil {
		return ""
	}
	return string(PrefixJob) + "_" + strconv.FormatUint(uint64(i), 10)
}

// IsNil reports whether i is the zero value.
func (i JobID) IsNil() bool { return i == Nil }

// MarshalText implements encoding.TextMarshaler.
func (i JobID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *JobID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := ParseJobID(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ParseJobID parses "job_<n>" or a bare decimal sequence number.
func ParseJobID(s string) (JobID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	raw := s
	if p, rest, ok := strings.Cut(s, "_"); ok {
		if Prefix(p) != PrefixJob {
			return Nil, fmt.Errorf("id: expected prefix %q, got %q", PrefixJob, p)
		}
		raw = rest
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	if n == 0 {
		return Nil, fmt.Errorf("id: parse %q: zero is not a valid job id", s)
	}
	return JobID(n), nil
}

// MustParseJobID is like ParseJobID but panics on error. Use for hardcoded
// values in tests.
func MustParseJobID(s string) JobID {
	parsed, err := ParseJobID(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// Generator hands out strictly increasing JobIDs. It is safe for
// concurrent use; the zero value starts at 1.
type Generator struct {
	last atomic.Uint64
}

// Next returns the next JobID.
func (g *Generator) Next() JobID {
	return JobID(g.last.Add(1))
}

// Last returns the most recently issued JobID, or Nil.
func (g *Generator) Last() JobID {
	return JobID(g.last.Load())
}

// WorkerID identifies one goroutine of the worker pool (1-based).
type WorkerID int

// String returns the "wkr_<n>" representation.
func (w WorkerID) String() string {
	return string(PrefixWorker) + "_" + strconv.Itoa(int(w))
}
