// Package metrics exposes Prometheus counters for the monitor's telemetry.
// Solve results never flow back into control logic; this package and the log
// output are the only places they surface.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hcaptcha_monitor"

// Metrics bundles every instrument the monitor records. Each process (and
// each test) constructs its own instance with a fresh registry.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests  prometheus.Counter
	APIRetries   prometheus.Counter
	APIFailures  prometheus.Counter
	Detections   prometheus.Counter
	SolveStarted prometheus.Counter
	SolveSuccess prometheus.Counter
	SolveFailure prometheus.Counter
	SolveSkipped prometheus.Counter

	ActiveMonitors prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		APIRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Completed AdsPower API requests, including failed ones.",
		}),
		APIRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "AdsPower API attempts that were retried after a transient failure.",
		}),
		APIFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_failures_total",
			Help:      "AdsPower API calls that exhausted every retry.",
		}),
		Detections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_detected_total",
			Help:      "Tabs observed with a visible hCaptcha widget.",
		}),
		SolveStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_started_total",
			Help:      "Solve jobs dispatched.",
		}),
		SolveSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_succeeded_total",
			Help:      "Solve jobs that reported success.",
		}),
		SolveFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_failed_total",
			Help:      "Solve jobs that reported failure or raised an error.",
		}),
		SolveSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_skipped_total",
			Help:      "Dispatches skipped because the tab's solve lock was held.",
		}),
		ActiveMonitors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitors_active",
			Help:      "Profile monitors currently running.",
		}),
	}
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
