// Package metrics exposes quiz lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"science-quiz/internal/app"
)

const namespace = "science_quiz"

// Metrics implements app.Metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions      prometheus.Gauge
	AttemptsFinalized   *prometheus.CounterVec
	AttemptScoreRatio   prometheus.Histogram
	HistoryWriteErrors  prometheus.Counter
	ExplanationRequests *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open quiz sessions",
		}),
		AttemptsFinalized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_finalized_total",
				Help:      "Finished attempts by how they ended",
			},
			[]string{"reason"},
		),
		AttemptScoreRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_score_ratio",
			Help:      "Score divided by question count of finished attempts",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		HistoryWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_write_errors_total",
			Help:      "Failed attempts to persist history",
		}),
		ExplanationRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "explanation_requests_total",
				Help:      "Explanation requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) SessionOpened() { m.ActiveSessions.Inc() }
func (m *Metrics) SessionClosed() { m.ActiveSessions.Dec() }

func (m *Metrics) AttemptFinalized(reason app.FinishReason, score, total int) {
	m.AttemptsFinalized.WithLabelValues(string(reason)).Inc()
	if total > 0 {
		m.AttemptScoreRatio.Observe(float64(score) / float64(total))
	}
}

func (m *Metrics) HistoryPersistFailed() { m.HistoryWriteErrors.Inc() }

func (m *Metrics) ExplanationServed(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.ExplanationRequests.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ app.Metrics = (*Metrics)(nil)
