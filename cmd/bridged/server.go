package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/xraph/bridge"
	"github.com/xraph/bridge/engine"
	"github.com/xraph/bridge/id"
	"github.com/xraph/bridge/job"
	"github.com/xraph/bridge/router"
)

// maxSleep bounds background jobs submitted through POST /jobs.
const maxSleep = time.Minute

type server struct {
	d       *engine.Dispatcher
	greeter *router.Router[string, string]
	logger  *slog.Logger
}

func newServer(addr string, d *engine.Dispatcher, greeter *router.Router[string, string], reg *prometheus.Registry, rps float64, logger *slog.Logger) *http.Server {
	s := &server{d: d, greeter: greeter, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{greeting}", s.handleGreet)
	mux.HandleFunc("POST /jobs", s.handleSubmit)
	mux.HandleFunc("GET /jobs/{id}", s.handleJobState)
	mux.HandleFunc("DELETE /jobs/{id}", s.handleCancel)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	var h http.Handler = mux
	if rps > 0 {
		h = limit(rate.NewLimiter(rate.Limit(rps), max(1, int(rps))), h)
	}

	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// limit sheds requests above the limiter's rate with 429.
func limit(l *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleGreet serves /{timeout}-{name}, timeout in milliseconds.
func (s *server) handleGreet(w http.ResponseWriter, r *http.Request) {
	ms, name, ok := strings.Cut(r.PathValue("greeting"), "-")
	if !ok || name == "" {
		http.Error(w, "expected /{timeout}-{name}", http.StatusNotFound)
		return
	}
	n, err := strconv.ParseUint(ms, 10, 32)
	if err != nil {
		http.Error(w, "timeout must be milliseconds", http.StatusBadRequest)
		return
	}
	timeout := time.Duration(n) * time.Millisecond

	resp, err := s.greeter.Endpoint(timeout).Handle(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(resp))
}

// handleSubmit queues a job that sleeps for ?ms= and returns its id
// without waiting.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.ParseInt(r.URL.Query().Get("ms"), 10, 64)
	if err != nil || ms < 0 {
		http.Error(w, "ms must be a non-negative integer", http.StatusBadRequest)
		return
	}
	sleep := min(time.Duration(ms)*time.Millisecond, maxSleep)

	opts := []job.Option{job.WithName("sleep")}
	if t := r.URL.Query().Get("timeout_ms"); t != "" {
		tms, err := strconv.ParseInt(t, 10, 64)
		if err != nil || tms <= 0 {
			http.Error(w, "timeout_ms must be a positive integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, job.WithTimeout(time.Duration(tms)*time.Millisecond))
	}

	h, err := s.d.Submit(r.Context(), func(ctx context.Context) (any, error) {
		select {
		case <-time.After(sleep):
			return sleep.String(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": h.ID().String()})
}

func (s *server) handleJobState(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, cancel, ok := s.d.State(jobID)
	if !ok {
		http.Error(w, "job not found or already resolved", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           jobID,
		"state":        state,
		"cancellation": cancel,
	})
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.d.Cancel(jobID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		engine.Stats
		PendingRequests int `json:"pending_requests"`
	}{s.d.Stats(), s.greeter.Pending()})
}

// writeError maps bridge errors to HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bridge.ErrTimedOut):
		status = http.StatusGatewayTimeout
	case errors.Is(err, bridge.ErrQueueFull), errors.Is(err, bridge.ErrPreempted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrClosed), errors.Is(err, bridge.ErrShutdownAborted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bridge.ErrCancelled):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled):
		// Client went away.
		return
	}
	if status == http.StatusInternalServerError {
		s.logger.Warn("request failed", slog.String("error", err.Error()))
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
