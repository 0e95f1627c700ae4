package condition

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/filter"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/parser"
)

func TestEvaluationMetrics(t *testing.T) {
	m := NewEvaluationMetrics(prometheus.NewRegistry())

	m.ObserveEvaluation(true, nil, time.Millisecond)
	m.ObserveEvaluation(false, nil, time.Millisecond)
	m.ObserveEvaluation(false, nil, time.Millisecond)
	m.ObserveEvaluation(false, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(ResultMatched)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(ResultUnmatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(ResultError)))
}

func TestEvaluationMetricsObserveFilter(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEvaluationMetrics(registry)

	tree, err := parser.ParseImplicit(`Status = "Opened"`, "Case")
	require.NoError(t, err)
	records := []map[string]any{
		{"Status": "Opened"},
		{"Status": "Closed"},
		{"Status": "Opened"},
	}
	_, err = filter.Collect(filter.Filter(tree, slices.Values(records), filter.MapAdapter("Case"), filter.WithObserver(m)))
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(ResultMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(ResultUnmatched)))

	count, err := testutil.GatherAndCount(registry, "condition_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
