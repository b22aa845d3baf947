// Package metrics exposes Prometheus instrumentation for card sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session outcomes.
const (
	OutcomeIdentified = "identified"
	OutcomeEmpty      = "empty"
	OutcomeNoApp      = "no_application"
	OutcomeNoCard     = "connect_failed"
)

// Exchange kinds and outcomes.
const (
	KindSelect = "select"
	KindGPO    = "gpo"
	KindRecord = "read_record"

	ExchangeOK       = "ok"
	ExchangeTimeout  = "timeout"
	ExchangeRejected = "rejected"
	ExchangeError    = "error"
)

// Metrics tracks card sessions and the exchanges inside them.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Sessions         *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	Exchanges        *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
}

// New registers the reader metrics on reg. A nil reg falls back to the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_reader_sessions_total",
			Help: "Card read sessions by outcome",
		}, []string{"outcome"}),

		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kiosk_reader_session_duration_seconds",
			Help:    "Duration of a card read, from connect to close",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2.5, 5},
		}),

		Exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_reader_exchanges_total",
			Help: "Command/response exchanges by kind and outcome",
		}, []string{"kind", "outcome"}),

		ExchangeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiosk_reader_exchange_duration_seconds",
			Help:    "Duration of a single command/response exchange by kind",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.4},
		}, []string{"kind"}),
	}
}

// IncrementSession records the outcome of a finished session.
func (m *Metrics) IncrementSession(outcome string) {
	if m != nil {
		m.Sessions.WithLabelValues(outcome).Inc()
	}
}

// ObserveSession records the elapsed time of a session.
func (m *Metrics) ObserveSession(d time.Duration) {
	if m != nil {
		m.SessionDuration.Observe(d.Seconds())
	}
}

// ObserveExchange records one exchange. Call with time.Now() taken before
// the command was sent.
func (m *Metrics) ObserveExchange(kind, outcome string, start time.Time) {
	if m != nil {
		m.Exchanges.WithLabelValues(kind, outcome).Inc()
		m.ExchangeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// Register mounts the scrape endpoint for g on r.
func Register(r chi.Router, g prometheus.Gatherer) {
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Handler returns a router serving only /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	Register(r, g)
	return r
}
