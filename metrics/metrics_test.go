package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncGenerated()
	m.ObserveResult(OutcomeAdvanced)
	m.ObserveResult(OutcomeAdvanced)
	m.ObserveResult(OutcomeDuplicate)
	m.IncReset()
	m.IncChampion()
	m.ObserveAdvance(time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BracketsGenerated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchResults.WithLabelValues(OutcomeAdvanced)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchResults.WithLabelValues(OutcomeDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BracketResets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Champions))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncGenerated()
		m.ObserveResult(OutcomeRejected)
		m.ObserveAdvance(time.Now())
		m.IncReset()
		m.IncChampion()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncGenerated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "darts_brackets_generated_total 1")
}
