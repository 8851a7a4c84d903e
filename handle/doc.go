// Package handle implements the Bridge Handle: the async-facing proxy for
// one in-flight job.
//
// A [Handle] moves from pending to resolved exactly once. The first call to
// [Handle.Resolve] stores the outcome; every later call is a no-op that
// reports false. Resolution is safe from any goroutine, including worker
// goroutines and timer callbacks.
//
// Handles are single-consumer. One caller may await the outcome, either by
// blocking in [Handle.Await] or by running the task returned from
// [Handle.Task] on a github.com/b97tsk/async executor. An await abandoned
// through its context releases the claim. Once the outcome has been
// delivered, further awaits fail with bridge.ErrAlreadyConsumed.
//
// [Typed] wraps a Handle with a static result type.
package handle
