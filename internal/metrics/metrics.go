// Package metrics exposes Prometheus instrumentation for a pipeline run:
// edges emitted and resolution-level distribution per stage, and each
// stage's wall-clock duration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector the pipeline driver updates. It works
// as a plain in-process collector set; this package serves no /metrics
// endpoint of its own.
type Registry struct {
	EdgesEmitted   *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	UnresolvedLeft *prometheus.GaugeVec
}

// New registers a fresh set of collectors against reg (pass
// prometheus.NewRegistry() for test isolation, or
// prometheus.DefaultRegisterer to expose on the process-wide endpoint).
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		EdgesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tscg",
			Name:      "edges_emitted_total",
			Help:      "Call edges emitted, partitioned by resolution level.",
		}, []string{"resolution"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tscg",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		UnresolvedLeft: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tscg",
			Name:      "unresolved_candidates",
			Help:      "Call candidates still unresolved after a given stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.EdgesEmitted, m.StageDuration, m.UnresolvedLeft)
	return m
}

// ObserveEdges records the resolution-level breakdown of one stage's
// freshly emitted edges.
func (m *Registry) ObserveEdges(counts map[string]int) {
	for resolution, n := range counts {
		m.EdgesEmitted.WithLabelValues(resolution).Add(float64(n))
	}
}

// ObserveStage records a stage's duration and its unresolved residue.
func (m *Registry) ObserveStage(stage string, seconds float64, unresolved int) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
	m.UnresolvedLeft.WithLabelValues(stage).Set(float64(unresolved))
}
