// Package audithook is a bridge extension that writes job lifecycle events
// to an audit trail backend.
//
// Every job hook emits a structured audit event through the [Recorder]
// interface: info severity for normal progress, warning for cancellations,
// timeouts, preemptions and refused submissions, critical for operation
// failures and shutdown aborts. [SlogRecorder] writes events to a
// *slog.Logger.
//
// # Usage
//
//	d, _ := engine.New(
//	    engine.WithExtension(audithook.New(audithook.SlogRecorder(logger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionJobCancelled,
//	        audithook.ActionJobAborted,
//	    ),
//	)
package audithook
