package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sensor_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	IngestRuns     *prometheus.CounterVec // labels: outcome={success,fetch_error,parse_error}
	IngestDuration prometheus.Histogram
	RowsIngested   prometheus.Counter
	RowsSkipped    prometheus.Counter
	MalformedCells prometheus.Counter

	// Registry state after the last mutation.
	Markers            prometheus.Gauge
	VisibleMarkers     prometheus.Gauge
	UnplaceableMarkers prometheus.Gauge

	// Downstream fan-out.
	PublishErrors    prometheus.Counter
	WebsocketClients prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestRuns,
		m.IngestDuration,
		m.RowsIngested,
		m.RowsSkipped,
		m.MalformedCells,
		m.Markers,
		m.VisibleMarkers,
		m.UnplaceableMarkers,
		m.PublishErrors,
		m.WebsocketClients,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Feed ingestion runs by outcome.",
		}, []string{"outcome"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete fetch-parse-register cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Feed rows registered as markers.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Feed rows dropped (unnamed or unreadable).",
		}),
		MalformedCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_cells_total",
			Help:      "Non-empty feed cells that could not be parsed.",
		}),
		Markers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "markers",
			Help:      "Markers currently registered.",
		}),
		VisibleMarkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_markers",
			Help:      "Markers currently visible after filtering.",
		}),
		UnplaceableMarkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unplaceable_markers",
			Help:      "Registered markers without a usable position.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed marker publications to the sink topic.",
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected map clients.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding placement is enabled, 0 otherwise.",
		}),
	}
}
