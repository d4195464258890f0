// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hoa_scout"

// Enrichment outcomes.
const (
	OutcomeCached         = "cached"
	OutcomeFound          = "found"
	OutcomeNotFound       = "not_found"
	OutcomeProviderFailed = "provider_failed"
	OutcomeError          = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	EnrichmentRuns   *prometheus.CounterVec
	ProviderDuration prometheus.Histogram
	CitiesCache      *prometheus.CounterVec
	AnalysisTasks    *prometheus.CounterVec
	AnalysisQueue    prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EnrichmentRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_runs_total",
			Help:      "Enrichment workflow invocations by outcome.",
		}, []string{"outcome"}),
		ProviderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of web-search provider lookups.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40},
		}),
		CitiesCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_cache_requests_total",
			Help:      "City list requests by cache result.",
		}, []string{"result"}),
		AnalysisTasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_tasks_total",
			Help:      "Analysis tasks by terminal state.",
		}, []string{"state"}),
		AnalysisQueue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_queue_depth",
			Help:      "Analysis tasks waiting for a worker.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
