package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_map"

// Metrics holds the Prometheus collectors for dataset loading and map rendering.
type Metrics struct {
	DatasetsReady prometheus.Gauge
	RowsLoaded    *prometheus.GaugeVec // labels: dataset={provinces,trigger_values,adjusted_results}

	// Rendering metrics, labeled by map name.
	RendersTotal       *prometheus.CounterVec
	RenderErrors       *prometheus.CounterVec
	RenderDuration     *prometheus.HistogramVec
	UnmatchedProvinces *prometheus.GaugeVec

	// Snapshot publishing.
	SnapshotsPublished prometheus.Counter
	SnapshotErrors     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DatasetsReady,
		m.RowsLoaded,
		m.RendersTotal,
		m.RenderErrors,
		m.RenderDuration,
		m.UnmatchedProvinces,
		m.SnapshotsPublished,
		m.SnapshotErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datasets_ready",
			Help:      "1 once the input files are loaded and the default maps rendered.",
		}),
		RowsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      "Rows read from each input file.",
		}, []string{"dataset"}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Maps rendered, by map.",
		}, []string{"map"}),
		RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Failed map renders, by map.",
		}, []string{"map"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time to filter, join and render one map.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"map"}),
		UnmatchedProvinces: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_provinces",
			Help:      "Provinces with geometry but no data in the last render, by map.",
		}, []string{"map"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Rendered views published to Kafka.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshot publish failures.",
		}),
	}
}
