// Package metrics exposes dispatcher activity as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/neoclaw-ai/roombot/internal/handler"
	"github.com/neoclaw-ai/roombot/internal/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ runtime.Observer = (*Metrics)(nil)

// Metrics holds all dispatcher collectors.
type Metrics struct {
	EventsTotal             *prometheus.CounterVec
	HandlerInvocationsTotal *prometheus.CounterVec
	HandlerSkippedTotal     *prometheus.CounterVec
	HandlerDurationSeconds  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New registers all collectors with registry.
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		EventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roombot_events_total",
				Help: "Events delivered to the dispatcher by listener",
			},
			[]string{"listener"},
		),
		HandlerInvocationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roombot_handler_invocations_total",
				Help: "Handler invocations by listener, handler and status",
			},
			[]string{"listener", "handler", "status"}, // status: success, error, panic
		),
		HandlerSkippedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "roombot_handler_skipped_total",
				Help: "Handlers not invoked for a delivered event by reason",
			},
			[]string{"listener", "handler", "reason"}, // reason: prefix, unresolved
		),
		HandlerDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roombot_handler_duration_seconds",
				Help:    "Handler run time in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"listener", "handler"},
		),
		registry: registry,
	}
}

// EventDispatched implements runtime.Observer.
func (m *Metrics) EventDispatched(listener handler.ListenerTag) {
	m.EventsTotal.WithLabelValues(string(listener)).Inc()
}

// HandlerSkipped implements runtime.Observer.
func (m *Metrics) HandlerSkipped(listener handler.ListenerTag, name, reason string) {
	m.HandlerSkippedTotal.WithLabelValues(string(listener), name, reason).Inc()
}

// HandlerFinished implements runtime.Observer.
func (m *Metrics) HandlerFinished(listener handler.ListenerTag, name string, elapsed time.Duration, err error) {
	m.HandlerInvocationsTotal.WithLabelValues(string(listener), name, status(err)).Inc()
	m.HandlerDurationSeconds.WithLabelValues(string(listener), name).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func status(err error) string {
	if err == nil {
		return "success"
	}
	var invErr *runtime.HandlerInvocationError
	if errors.As(err, &invErr) && invErr.Panic != nil {
		return "panic"
	}
	return "error"
}
