// Command bridged serves blocking work to HTTP clients through a bridge
// dispatcher.
//
// Usage:
//
//	go run ./cmd/bridged -workers 4
//
// Then in another terminal:
//
//	# Greet after a 200ms blocking call, giving up after 500ms (504 on timeout)
//	curl http://localhost:8080/500-gopher
//
//	# Submit a background job that sleeps 5s, inspect and cancel it
//	curl -X POST 'http://localhost:8080/jobs?ms=5000'
//	curl http://localhost:8080/jobs/1
//	curl -X DELETE http://localhost:8080/jobs/1
//
//	curl http://localhost:8080/stats
//	curl http://localhost:8080/metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/bridge"
	audithook "github.com/xraph/bridge/audit_hook"
	"github.com/xraph/bridge/engine"
	"github.com/xraph/bridge/observability"
	"github.com/xraph/bridge/router"
)

// greetDelay is how long the demo handler blocks per request.
const greetDelay = 200 * time.Millisecond

func main() {
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		configPath = flag.String("config", "", "path to a JSON dispatcher config")
		workers    = flag.Int("workers", 0, "worker count (overrides config)")
		rps        = flag.Float64("rate", 100, "admitted requests per second, 0 for unlimited")
		debug      = flag.Bool("debug", false, "enable debug logging")
		audit      = flag.Bool("audit", false, "write job lifecycle audit events to the log")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *addr, *configPath, *workers, *rps, *audit); err != nil {
		logger.Error("bridged exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, configPath string, workers int, rps float64, audit bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.WorkerCount = workers
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewPrometheusExtension(reg)

	opts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
		engine.WithExtension(prom),
	}
	if audit {
		auditLog := logger.With(slog.String("component", "audit"))
		opts = append(opts, engine.WithExtension(audithook.New(audithook.SlogRecorder(auditLog))))
	}
	d, err := engine.New(opts...)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	if err := prom.WatchGauges(d); err != nil {
		return fmt.Errorf("register gauges: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	greeter := router.New(d, greet, router.WithName("greet"))
	srv := newServer(addr, d, greeter, reg, rps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bridged listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("bridged shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout+5*time.Second)
		defer cancel()
		httpErr := srv.Shutdown(shutdownCtx)
		return errors.Join(httpErr, d.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func loadConfig(path string) (bridge.Config, error) {
	if path == "" {
		return bridge.DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return bridge.LoadConfig(f)
}

// greet is the blocking handler behind GET /{timeout}-{name}.
func greet(ctx context.Context, name string) (string, error) {
	select {
	case <-time.After(greetDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("Hello %s\n", name), nil
}
