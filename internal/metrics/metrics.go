package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/skinoai/internal/predictor"
)

// Analysis statuses recorded by AnalysesTotal.
const (
	StatusSuccess = "success"
	StatusNoImage = "no_image"
	StatusFailed  = "failed"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	AnalysesTotal   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		AttemptsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skinoai_backend_attempts_total",
				Help: "Total number of predict attempts per backend endpoint",
			},
			[]string{"endpoint", "outcome"}, // outcome: success/transport_error/server_error
		),
		AttemptDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skinoai_backend_attempt_duration_seconds",
				Help:    "Duration of predict attempts per backend endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		AnalysesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "skinoai_analyses_total",
				Help: "Total number of analysis requests by result",
			},
			[]string{"status"},
		),
	}
}

// ObserveAttempt implements predictor.Observer.
func (m *Metrics) ObserveAttempt(attempt predictor.Attempt) {
	m.AttemptsTotal.WithLabelValues(attempt.Endpoint, string(attempt.Outcome)).Inc()
	m.AttemptDuration.WithLabelValues(attempt.Endpoint).Observe(attempt.Duration.Seconds())
}

// ObserveAnalysis counts one finished analysis under status.
func (m *Metrics) ObserveAnalysis(status string) {
	m.AnalysesTotal.WithLabelValues(status).Inc()
}
