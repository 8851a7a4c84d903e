package id_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/xraph/bridge/id"
)

func TestGenerator_Monotonic(t *testing.T) {
	var g id.Generator
	prev := id.Nil
	for range 100 {
		next := g.Next()
		if next <= prev {
			t.Fatalf("Next() = %d after %d, want strictly increasing", next, prev)
		}
		prev = next
	}
	if g.Last() != prev {
		t.Errorf("Last() = %d, want %d", g.Last(), prev)
	}
}

func TestGenerator_ConcurrentUnique(t *testing.T) {
	var g id.Generator
	const n = 64
	seen := make(chan id.JobID, n*100)

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for range 100 {
				seen <- g.Next()
			}
		})
	}
	wg.Wait()
	close(seen)

	uniq := make(map[id.JobID]struct{}, n*100)
	for v := range seen {
		if _, dup := uniq[v]; dup {
			t.Fatalf("duplicate id %s", v)
		}
		uniq[v] = struct{}{}
	}
}

func TestJobID_StringRoundTrip(t *testing.T) {
	orig := id.JobID(42)
	if got := orig.String(); got != "job_42" {
		t.Fatalf("String() = %q, want %q", got, "job_42")
	}
	parsed, err := id.ParseJobID(orig.String())
	if err != nil {
		t.Fatalf("ParseJobID: %v", err)
	}
	if parsed != orig {
		t.Errorf("parsed = %d, want %d", parsed, orig)
	}

	bare, err := id.ParseJobID("7")
	if err != nil || bare != 7 {
		t.Errorf("ParseJobID(7) = %d, %v", bare, err)
	}
}

func TestParseJobID_Errors(t *testing.T) {
	for _, in := range []string{"", "wkr_1", "job_", "job_x", "0", "job_0"} {
		if _, err := id.ParseJobID(in); err == nil {
			t.Errorf("ParseJobID(%q): expected error", in)
		}
	}
}

func TestJobID_JSON(t *testing.T) {
	type payload struct {
		ID id.JobID `json:"id"`
	}
	data, err := json.Marshal(payload{ID: 9})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"id":"job_9"}` {
		t.Fatalf("marshal = %s", data)
	}
	var back payload
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != 9 {
		t.Errorf("ID = %d, want 9", back.ID)
	}
}

func TestNil(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Error("Nil.IsNil() = false")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", id.Nil.String())
	}
	if id.WorkerID(3).String() != "wkr_3" {
		t.Errorf("WorkerID(3).String() = %q", id.WorkerID(3).String())
	}
}
