// Package metrics exposes Prometheus collectors for the pipeline, the query
// router and the HTTP endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signal outcome labels.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	SignalRuns        *prometheus.CounterVec
	QueryRoutes       *prometheus.CounterVec
	NarrativeFailures prometheus.Counter
	PostsLoaded       prometheus.Gauge
	RunDuration       prometheus.Histogram
	PostsFetched      *prometheus.CounterVec
	DatasetReloads    *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		SignalRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_signal_runs_total",
				Help: "Signal extractions by signal and outcome",
			},
			[]string{"signal", "status"},
		),
		QueryRoutes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_query_routes_total",
				Help: "Answered queries by selected route",
			},
			[]string{"route"},
		),
		NarrativeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pulse_narrative_failures_total",
			Help: "Narrative generations that fell back to the failure text",
		}),
		PostsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_posts_loaded",
			Help: "Rows in the currently served post collection",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_run_duration_seconds",
			Help:    "Batch report duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		PostsFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_posts_fetched_total",
				Help: "New posts acquired per subreddit",
			},
			[]string{"subreddit"},
		),
		DatasetReloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_dataset_reloads_total",
				Help: "Dataset reloads by outcome",
			},
			[]string{"status"},
		),
	}
}

// ObserveSignal counts one extractor run. Safe on a nil Metrics.
func (m *Metrics) ObserveSignal(signal string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusDegraded
	}
	m.SignalRuns.WithLabelValues(signal, status).Inc()
}

// ObserveRoute counts one answered query. Safe on a nil Metrics.
func (m *Metrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.QueryRoutes.WithLabelValues(route).Inc()
}

// ObserveNarrativeFailure counts a failed narrative. Safe on a nil Metrics.
func (m *Metrics) ObserveNarrativeFailure() {
	if m == nil {
		return
	}
	m.NarrativeFailures.Inc()
}

// SetPostsLoaded records the size of the collection being analyzed or
// served. Safe on a nil Metrics.
func (m *Metrics) SetPostsLoaded(n int) {
	if m == nil {
		return
	}
	m.PostsLoaded.Set(float64(n))
}

// ObserveRun records one batch report duration. Safe on a nil Metrics.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

// ObserveFetch counts new posts acquired from subreddit. Safe on a nil Metrics.
func (m *Metrics) ObserveFetch(subreddit string, n int) {
	if m == nil {
		return
	}
	m.PostsFetched.WithLabelValues(subreddit).Add(float64(n))
}

// ObserveReload counts one dataset reload. Safe on a nil Metrics.
func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = "failed"
	}
	m.DatasetReloads.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
