// Package bridge runs blocking operations off an asynchronous scheduler's
// execution path and delivers their outcomes back as resolvable handles.
//
// A blocking call (a socket read, a legacy RPC client, a cgo function) is
// submitted to a Dispatcher, queued in a bounded FIFO, executed by a fixed
// pool of workers, and resolved exactly once through a Bridge Handle.
//
// # Quick Start
//
//	d, err := engine.New(
//	    engine.WithWorkerCount(8),
//	    engine.WithQueueCapacity(256),
//	    engine.WithOverflowPolicy(bridge.OverflowReject),
//	)
//	if err != nil { ... }
//	_ = d.Start(ctx)
//	defer d.Shutdown(context.Background())
//
//	h, err := engine.Submit(ctx, d, func(ctx context.Context) ([]byte, error) {
//	    return legacyClient.Fetch(key) // blocks
//	})
//	data, err := h.Await(ctx)
//
// # Architecture
//
// This root package holds the shared vocabulary: Config, the overflow and
// shutdown policies, the Outcome carried by every resolved handle, and the
// error taxonomy. The engine package wires the job queue, cancellation
// registry, worker pool and handles together.
//
// Handles can be awaited from plain goroutines (Handle.Await, Handle.Done)
// or from coroutines of a github.com/b97tsk/async Executor (Handle.Task),
// which never blocks the executor.
package bridge
