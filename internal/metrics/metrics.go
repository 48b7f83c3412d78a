// Package metrics exposes the Prometheus instrumentation for the scan
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all the Prometheus metrics for the scan pipeline.
type Metrics struct {
	ScansTotal       *prometheus.CounterVec
	ScansIncomplete  prometheus.Counter
	GateShortCircuit prometheus.Counter
	EarlyExits       prometheus.Counter
	PolicyOverrides  *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
}

// New creates a Metrics instance registered against reg. Pass nil to use
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "threatscore_scans_total",
			Help: "Completed scans by reachability branch and risk band",
		}, []string{"branch", "band"}),
		ScansIncomplete: factory.NewCounter(prometheus.CounterOpts{
			Name: "threatscore_scans_incomplete_total",
			Help: "Scans that hit the deadline and returned partial results",
		}),
		GateShortCircuit: factory.NewCounter(prometheus.CounterOpts{
			Name: "threatscore_intel_gate_total",
			Help: "Scans short-circuited by the threat-intel gate",
		}),
		EarlyExits: factory.NewCounter(prometheus.CounterOpts{
			Name: "threatscore_stage1_early_exits_total",
			Help: "Scans where stage-1 confidence skipped stage 2",
		}),
		PolicyOverrides: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "threatscore_policy_overrides_total",
			Help: "Policy rule overrides by rule ID",
		}, []string{"rule"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "threatscore_stage_duration_seconds",
			Help:    "Wall time per pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
	}
}
