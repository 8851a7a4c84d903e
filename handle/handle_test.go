package handle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/b97tsk/async"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/handle"
)

type recordingCanceler struct {
	mu  sync.Mutex
	ids []id.JobID
}

func (c *recordingCanceler) Cancel(jobID id.JobID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, jobID)
	return nil
}

func TestHandle_ResolveOnce(t *testing.T) {
	h := handle.New(1, nil)

	if !h.Resolve(bridge.ValueOutcome("first")) {
		t.Fatal("first resolve should win")
	}
	if h.Resolve(bridge.CancelledOutcome()) {
		t.Fatal("second resolve should be a no-op")
	}

	v, err := h.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "first" {
		t.Fatalf("value = %v, want first", v)
	}
}

func TestHandle_AwaitBlocksUntilResolved(t *testing.T) {
	h := handle.New(1, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Resolve(bridge.ValueOutcome(5))
	}()

	v, err := h.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("value = %v, want 5", v)
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("Done should be closed after resolution")
	}
}

func TestHandle_SecondAwaitAlreadyConsumed(t *testing.T) {
	h := handle.New(1, nil)
	h.Resolve(bridge.ValueOutcome(1))

	if _, err := h.Await(context.Background()); err != nil {
		t.Fatalf("first await: %v", err)
	}
	if _, err := h.Await(context.Background()); !errors.Is(err, bridge.ErrAlreadyConsumed) {
		t.Fatalf("second await: expected ErrAlreadyConsumed, got %v", err)
	}
}

func TestHandle_ConcurrentAwaitRejected(t *testing.T) {
	h := handle.New(1, nil)

	result := make(chan error, 1)
	go func() {
		_, err := h.Await(context.Background())
		result <- err
	}()
	time.Sleep(20 * time.Millisecond)

	if _, err := h.Await(context.Background()); !errors.Is(err, bridge.ErrAlreadyConsumed) {
		t.Fatalf("second awaiter: expected ErrAlreadyConsumed, got %v", err)
	}

	h.Resolve(bridge.ValueOutcome(nil))
	if err := <-result; err != nil {
		t.Fatalf("first awaiter: %v", err)
	}
}

func TestHandle_AbandonedAwaitReleasesClaim(t *testing.T) {
	h := handle.New(1, nil)

	_, err := h.Await(ctxWithTimeout(t, 5*time.Millisecond))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	h.Resolve(bridge.TimedOutOutcome())
	o, err := h.Outcome(context.Background())
	if err != nil {
		t.Fatalf("await after abandon: %v", err)
	}
	if o.Kind != bridge.KindTimedOut {
		t.Fatalf("kind = %s, want timed_out", o.Kind)
	}
}

func TestHandle_ErrorOutcomes(t *testing.T) {
	cause := errors.New("disk on fire")
	cases := []struct {
		name    string
		outcome bridge.Outcome
		want    error
	}{
		{"failed", bridge.FailedOutcome(cause), cause},
		{"failed-kind", bridge.FailedOutcome(cause), bridge.ErrOperationFailed},
		{"cancelled", bridge.CancelledOutcome(), bridge.ErrCancelled},
		{"timed-out", bridge.TimedOutOutcome(), bridge.ErrTimedOut},
		{"aborted", bridge.AbortedOutcome(), bridge.ErrShutdownAborted},
		{"preempted", bridge.PreemptedOutcome(), bridge.ErrPreempted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := handle.New(1, nil)
			h.Resolve(tc.outcome)
			_, err := h.Await(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHandle_CancelDelegates(t *testing.T) {
	c := &recordingCanceler{}
	h := handle.New(9, c)
	if err := h.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.ids) != 1 || c.ids[0] != 9 {
		t.Fatalf("canceler saw %v, want [9]", c.ids)
	}

	if err := handle.New(1, nil).Cancel(); !errors.Is(err, bridge.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound without canceler, got %v", err)
	}
}

func TestHandle_ConcurrentResolveSingleWinner(t *testing.T) {
	for range 100 {
		h := handle.New(1, nil)
		var wins sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := range 8 {
			wins.Go(func() {
				if h.Resolve(bridge.ValueOutcome(i)) {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			})
		}
		wins.Wait()
		if winners != 1 {
			t.Fatalf("expected exactly one winner, got %d", winners)
		}
	}
}

func TestHandle_TaskResumesCoroutine(t *testing.T) {
	var wg sync.WaitGroup
	var exec async.Executor
	exec.Autorun(func() { wg.Go(exec.Run) })

	h := handle.New(1, nil)
	got := make(chan any, 1)

	exec.Spawn(h.Task(func(v any, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		got <- v
	}))

	// Resolve from a non-executor goroutine, as a worker would.
	go h.Resolve(bridge.ValueOutcome("from-worker"))

	select {
	case v := <-got:
		if v != "from-worker" {
			t.Fatalf("value = %v, want from-worker", v)
		}
	case <-time.After(time.Second):
		t.Fatal("coroutine was never resumed")
	}
	wg.Wait()

	if _, err := h.Await(context.Background()); !errors.Is(err, bridge.ErrAlreadyConsumed) {
		t.Fatalf("expected ErrAlreadyConsumed after task consumed, got %v", err)
	}
}

func TestHandle_TaskOnResolvedHandle(t *testing.T) {
	var exec async.Executor
	exec.Autorun(exec.Run)

	h := handle.New(1, nil)
	h.Resolve(bridge.CancelledOutcome())

	var gotErr error
	called := false
	exec.Spawn(h.Task(func(_ any, err error) {
		called = true
		gotErr = err
	}))

	if !called {
		t.Fatal("task should complete synchronously for a resolved handle")
	}
	if !errors.Is(gotErr, bridge.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", gotErr)
	}
}

func TestTyped_Await(t *testing.T) {
	h := handle.New(1, nil)
	typed := handle.NewTyped[int](h)
	h.Resolve(bridge.ValueOutcome(41))

	v, err := typed.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 41 {
		t.Fatalf("value = %d, want 41", v)
	}
}

func TestTyped_Untyped(t *testing.T) {
	h := handle.New(1, nil)
	typed := handle.NewTyped[string](h)
	if typed.Untyped() != h {
		t.Fatal("Untyped should return the wrapped handle")
	}
	h.Resolve(bridge.TimedOutOutcome())

	o, err := typed.Untyped().Outcome(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Kind != bridge.KindTimedOut {
		t.Fatalf("kind = %v, want %v", o.Kind, bridge.KindTimedOut)
	}
}

func TestTyped_WrongType(t *testing.T) {
	h := handle.New(1, nil)
	h.Resolve(bridge.ValueOutcome("not an int"))

	_, err := handle.NewTyped[int](h).Await(context.Background())
	if !errors.Is(err, bridge.ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed, got %v", err)
	}
}

func ctxWithTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
