package condition

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultError     = "error"
)

// EvaluationMetrics counts filter evaluations by outcome and records their
// duration. It implements filter.Observer.
type EvaluationMetrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
}

func NewEvaluationMetrics(registerer prometheus.Registerer) *EvaluationMetrics {
	factory := promauto.With(registerer)
	m := &EvaluationMetrics{}

	m.EvaluationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condition_evaluations_total",
			Help: "Total number of condition evaluations",
		},
		[]string{"result"},
	)

	m.EvaluationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "condition_evaluation_duration_seconds",
			Help:    "Duration of condition evaluations in seconds",
			Buckets: []float64{.000001, .00001, .0001, .001, .01, .1},
		},
	)

	return m
}

func (m *EvaluationMetrics) ObserveEvaluation(matched bool, err error, elapsed time.Duration) {
	result := ResultUnmatched
	switch {
	case err != nil:
		result = ResultError
	case matched:
		result = ResultMatched
	}
	m.EvaluationsTotal.WithLabelValues(result).Inc()
	m.EvaluationDuration.Observe(elapsed.Seconds())
}
