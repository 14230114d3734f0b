package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sighting_analytics"

// Metrics holds the Prometheus counters, histograms, and gauges for snapshot
// builds and analytics queries.
type Metrics struct {
	RecordsLoaded   prometheus.Counter
	ParseWarnings   *prometheus.CounterVec // labels: field={datetime,latitude,longitude,encounter_duration}
	SnapshotWrites  *prometheus.CounterVec // labels: table={normalized,clustered}, outcome={success,error}
	DatasetRows     prometheus.Gauge
	DatasetYears    prometheus.Gauge
	RecordsExported prometheus.Counter

	// Query metrics.
	Queries *prometheus.CounterVec // labels: query={years,count,map,top,timeseries,clusters}, outcome={success,error}

	// Clustering metrics.
	ClusterDuration   prometheus.Histogram
	ClusterIterations prometheus.Histogram
	ClusterCache      *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsLoaded,
		m.ParseWarnings,
		m.SnapshotWrites,
		m.DatasetRows,
		m.DatasetYears,
		m.RecordsExported,
		m.Queries,
		m.ClusterDuration,
		m.ClusterIterations,
		m.ClusterCache,
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
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Total raw rows read from the source snapshot.",
		}),
		ParseWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Fields degraded to absent during normalization, by field.",
		}, []string{"field"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Snapshot file writes by table and outcome.",
		}, []string{"table", "outcome"}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the currently served dataset.",
		}),
		DatasetYears: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_years",
			Help:      "Distinct years in the currently served dataset.",
		}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      "Clustered rows published to the export topic.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Analytics queries by name and outcome.",
		}, []string{"query", "outcome"}),
		ClusterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_duration_seconds",
			Help:      "Duration of a full k-means run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ClusterIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_iterations",
			Help:      "Lloyd iterations until convergence or the cap.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 300},
		}),
		ClusterCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_cache_total",
			Help:      "Memoized clustering lookups by result.",
		}, []string{"result"}),
	}
}
