// Package metrics exposes the bracket service counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result outcomes recorded on the match results counter.
const (
	OutcomeAdvanced  = "advanced"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
)

type Metrics struct {
	registry *prometheus.Registry

	BracketsGenerated prometheus.Counter
	MatchResults      *prometheus.CounterVec
	BracketResets     prometheus.Counter
	Champions         prometheus.Counter
	AdvanceDuration   prometheus.Histogram
}

// New registers every collector on reg. Tests pass a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		BracketsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "darts",
			Name:      "brackets_generated_total",
			Help:      "Double-elimination brackets generated.",
		}),
		MatchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "darts",
			Name:      "match_results_total",
			Help:      "Match result submissions by outcome.",
		}, []string{"outcome"}),
		BracketResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "darts",
			Name:      "bracket_resets_total",
			Help:      "Grand finals that needed a deciding game.",
		}),
		Champions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "darts",
			Name:      "champions_total",
			Help:      "Tournaments finished with a champion.",
		}),
		AdvanceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "darts",
			Name:      "advance_duration_seconds",
			Help:      "Time spent applying a result, store round trip included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.BracketsGenerated, m.MatchResults, m.BracketResets, m.Champions, m.AdvanceDuration)
	return m
}

// NewDefault uses a registry that also carries the Go runtime and process
// collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The helpers below are nil-safe so callers may run without metrics.

func (m *Metrics) ObserveResult(outcome string) {
	if m == nil {
		return
	}
	m.MatchResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAdvance(started time.Time) {
	if m == nil {
		return
	}
	m.AdvanceDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) IncGenerated() {
	if m != nil {
		m.BracketsGenerated.Inc()
	}
}

func (m *Metrics) IncReset() {
	if m != nil {
		m.BracketResets.Inc()
	}
}

func (m *Metrics) IncChampion() {
	if m != nil {
		m.Champions.Inc()
	}
}
