// Package observability provides metrics extensions for the bridge.
//
// MetricsExtension records system-wide counters through OpenTelemetry and
// is registered by every dispatcher. PrometheusExtension exports the same
// lifecycle events to a Prometheus registry, plus queue-depth and
// running-job gauges via WatchGauges.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
