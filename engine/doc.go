// Package engine wires the bridge subsystems together. It owns the job
// queue, the cancellation registry, the worker pool and the extension
// registry, and exposes them through the Dispatcher.
//
// This package sits above every subsystem package and below the
// application layer; the root bridge package only defines shared types.
//
// # Creating a Dispatcher
//
//	d, err := engine.New(
//	    engine.WithWorkerCount(16),
//	    engine.WithQueueCapacity(512),
//	    engine.WithOverflowPolicy(bridge.OverflowDropOldest),
//	    engine.WithShutdownMode(bridge.Graceful(10*time.Second)),
//	    engine.WithExtension(promExt),
//	)
//	if err := d.Start(ctx); err != nil { ... }
//
// # Submitting Work
//
//	h, err := d.Submit(ctx, func(ctx context.Context) (any, error) {
//	    return conn.ReadFrame() // blocking
//	}, job.WithTimeout(2*time.Second))
//
//	// Or with a static result type:
//	th, err := engine.Submit(ctx, d, readFrame)
//	frame, err := th.Await(ctx)
//
// Submit never blocks on the worker side. Under the block overflow policy
// it waits for queue space, bounded by ctx.
//
// # Cancellation and Deadlines
//
// Cancelling a queued job removes it and resolves its handle right away.
// Cancelling a running job cancels the context passed to its operation
// with cause bridge.ErrCancelled; if the operation returns without
// observing it, the real result is delivered and the cancellation is
// recorded as too late. Deadlines use the same path with cause
// bridge.ErrTimedOut, and a running job's context carries its deadline.
//
// # Shutdown
//
// Shutdown closes intake and resolves every queued job as shutdown
// aborted. In graceful mode running jobs may finish within the grace
// timeout; whatever is still running afterwards is abandoned. Abandoned
// jobs resolve as shutdown aborted immediately. Their worker goroutines
// exit when the operation eventually returns, and the late result is
// discarded.
package engine
