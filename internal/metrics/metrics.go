package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weddingplanner"

// Metrics holds the application's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	BackendErrors   *prometheus.CounterVec
	RSVPSubmissions *prometheus.CounterVec
	MigratedGroups  *prometheus.CounterVec
	SearchQueries   prometheus.Counter
	SearchResults   prometheus.Histogram
	Refreshes       *prometheus.CounterVec
	SuppressedEchos prometheus.Counter
	AutosaveWrites  *prometheus.CounterVec
	LiveWorkspaces  prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Backend failures collapsed at the data-access boundary, by operation.",
		}, []string{"op"}),
		RSVPSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvp_submissions_total",
			Help:      "Public RSVP submissions by result.",
		}, []string{"result"}),
		MigratedGroups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_groups_total",
			Help:      "Legacy guest groups processed by migration, by status.",
		}, []string{"status"}),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Public household searches with at least one usable word.",
		}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Households returned per search.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_refreshes_total",
			Help:      "Workspace reconciliations by source table.",
		}, []string{"source"}),
		SuppressedEchos: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_suppressed_settings_total",
			Help:      "Settings notifications ignored because they matched the last applied snapshot.",
		}),
		AutosaveWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_writes_total",
			Help:      "Debounced settings writes by result.",
		}, []string{"result"}),
		LiveWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_workspaces",
			Help:      "Owner workspaces currently held in memory.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BackendErrors,
		m.RSVPSubmissions,
		m.MigratedGroups,
		m.SearchQueries,
		m.SearchResults,
		m.Refreshes,
		m.SuppressedEchos,
		m.AutosaveWrites,
		m.LiveWorkspaces,
	)
	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
