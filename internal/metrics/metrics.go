// Package metrics exposes coordinator counters to prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bubbleshell"

// Metrics holds the collectors for one coordinator.
type Metrics struct {
	registry *prometheus.Registry

	sessions       *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
	staleFavicons  prometheus.Counter
	faviconFetches *prometheus.CounterVec
	persistFails   prometheus.Counter
}

// New creates Metrics registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live sessions by display state.",
		}, []string{"state"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Session lifecycle transitions by kind.",
		}, []string{"kind"}),
		staleFavicons: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favicon_stale_discards_total",
			Help:      "Favicon results discarded because the session closed or navigated.",
		}),
		faviconFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favicon_fetches_total",
			Help:      "Favicon fetches by result.",
		}, []string{"result"}),
		persistFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed session snapshot writes.",
		}),
	}
}

// Registry returns the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetSessions records the current session counts.
func (m *Metrics) SetSessions(collapsed, expanded, popups int) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("collapsed").Set(float64(collapsed))
	m.sessions.WithLabelValues("expanded").Set(float64(expanded))
	m.sessions.WithLabelValues("popup").Set(float64(popups))
}

// Transition counts one lifecycle transition.
func (m *Metrics) Transition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

// StaleFavicon counts a discarded favicon result.
func (m *Metrics) StaleFavicon() {
	if m == nil {
		return
	}
	m.staleFavicons.Inc()
}

// FaviconFetch counts a favicon result ("ok", "stale", "error", "host").
func (m *Metrics) FaviconFetch(result string) {
	if m == nil {
		return
	}
	m.faviconFetches.WithLabelValues(result).Inc()
}

// PersistFailure counts a failed snapshot write.
func (m *Metrics) PersistFailure() {
	if m == nil {
		return
	}
	m.persistFails.Inc()
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the registry on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
