// Package metrics exposes Prometheus instrumentation for the content
// pipeline: per-stage outcomes and whole-run latency.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	stageOutcomes *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

// New creates and registers the pipeline collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		stageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_outcomes_total",
			Help: "Stage executions by stage name and outcome (ok, fallback, failed).",
		}, []string{"stage", "outcome"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Completed pipeline runs by result (success, failure).",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "pipeline_run_duration_seconds",
			Help: "End-to-end pipeline run duration.",
			// Runs span from sub-second fixture mode to a two-minute
			// worst case when every poll budget is exhausted.
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90, 120, 180},
		}),
	}

	registry.MustRegister(m.stageOutcomes, m.runsTotal, m.runDuration)

	return m
}

// ObserveStage records the outcome of a single stage.
func (m *Metrics) ObserveStage(stage, outcome string) {
	m.stageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// ObserveRun records a finished run and its duration in seconds.
func (m *Metrics) ObserveRun(succeeded bool, seconds float64) {
	result := "failure"
	if succeeded {
		result = "success"
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(seconds)
}

// Handler returns a gin handler serving the /metrics scrape endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
