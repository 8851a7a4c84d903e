package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithActions limits auditing to the listed job and dispatcher actions,
// for example only terminal outcomes. Without it all ten actions in
// [AllActions] are recorded, from job.submitted through dispatcher.shutdown.
// Names outside that set match no hook and record nothing.
//
//	audithook.New(audithook.SlogRecorder(logger),
//	    audithook.WithActions(
//	        audithook.ActionJobCancelled,
//	        audithook.ActionJobTimedOut,
//	        audithook.ActionJobAborted,
//	    ),
//	)
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
