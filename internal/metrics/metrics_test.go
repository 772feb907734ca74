package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveEdgesIncrementsPerResolution(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEdges(map[string]int{"local_exact": 3, "cha_resolved": 2})
	m.ObserveEdges(map[string]int{"local_exact": 1})

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() != "tscg_edges_emitted_total" {
			continue
		}
		found = true
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "resolution" && label.GetValue() == "local_exact" {
					if got := m.GetCounter().GetValue(); got != 4 {
						t.Errorf("expected local_exact count 4, got %v", got)
					}
				}
			}
		}
	}
	if !found {
		t.Fatal("expected tscg_edges_emitted_total metric family to be registered")
	}
}

func TestObserveStageRecordsDurationAndUnresolved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStage("stage1.local_exact", 0.25, 7)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var sawGauge bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "tscg_unresolved_candidates" {
			sawGauge = true
			for _, metric := range mf.GetMetric() {
				if got := metric.GetGauge().GetValue(); got != 7 {
					t.Errorf("expected unresolved gauge 7, got %v", got)
				}
			}
		}
	}
	if !sawGauge {
		t.Fatal("expected tscg_unresolved_candidates gauge to be registered")
	}
}
