// Package router layers a request/response API over a dispatcher.
//
// A Router owns one blocking handler. Endpoints created from it submit each
// request as a job tagged with a fresh UUID correlation ID, wait for the
// handler's response, and map dispatcher outcomes to errors:
//
//	r := router.New(d, func(ctx context.Context, name string) (string, error) {
//	    time.Sleep(200 * time.Millisecond)
//	    return "hello " + name, nil
//	})
//	resp, err := r.Endpoint(500 * time.Millisecond).Handle(ctx, "gopher")
//
// A request whose timeout passes resolves with bridge.ErrTimedOut whether
// it was still queued or already running.
package router
