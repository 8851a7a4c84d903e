// Package queue provides the bounded FIFO of jobs waiting for a worker.
//
// A [Queue] holds jobs in submission order up to a fixed capacity. When it
// is full, [Queue.Push] applies the configured overflow policy:
//
//   - block: Push fails with bridge.ErrQueueFull and the caller waits for
//     space (the dispatcher suspends the submitter)
//   - reject: Push fails with bridge.ErrQueueFull
//   - drop_oldest: the head job is evicted and returned to the caller,
//     which resolves it as preempted
//
// The queue cannot be peeked or reordered from outside. Apart from Pop,
// the only way to take a job out is [Queue.Remove], targeted by ID, which
// serves cancellation and timeouts.
//
// A Queue is not safe for concurrent use. The dispatcher serializes every
// queue mutation under its own lock together with the cancellation
// registry.
package queue
