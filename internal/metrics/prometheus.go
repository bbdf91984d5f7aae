package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the preview service.
type Metrics struct {
	loads            *prometheus.CounterVec
	loadLatency      *prometheus.HistogramVec
	metadataWarnings prometheus.Counter
	droppedEntries   *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	cacheLookups     *prometheus.CounterVec
	uploads          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_session_loads_total",
				Help: "Viewer session loads by final state",
			},
			[]string{"state"},
		),
		loadLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "preview_session_load_latency_ms",
				Help:    "Latency of viewer session load stages in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
			[]string{"stage"},
		),
		metadataWarnings: f.NewCounter(
			prometheus.CounterOpts{
				Name: "preview_metadata_warnings_total",
				Help: "Loads that completed without layer metadata",
			},
		),
		droppedEntries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_metadata_dropped_entries_total",
				Help: "Metadata entries dropped during normalization",
			},
			[]string{"kind"},
		),
		activeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "preview_active_sessions",
				Help: "Number of open viewer sessions",
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_asset_cache_lookups_total",
				Help: "Asset cache lookups by layer and result",
			},
			[]string{"layer", "result"},
		),
		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_uploads_total",
				Help: "Preview uploads by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveLoad records a settled load.
func (m *Metrics) ObserveLoad(state string, stages map[string]time.Duration) {
	m.loads.WithLabelValues(state).Inc()
	for stage, d := range stages {
		m.loadLatency.WithLabelValues(stage).Observe(toMs(d))
	}
}

func (m *Metrics) IncMetadataWarning() { m.metadataWarnings.Inc() }

// AddDropped counts metadata entries dropped for kind ("layer" or "legend").
func (m *Metrics) AddDropped(kind string, n int) {
	if n > 0 {
		m.droppedEntries.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// CacheLookup records a hit or miss on a cache layer.
func (m *Metrics) CacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(layer, result).Inc()
}

func (m *Metrics) Upload(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.uploads.WithLabelValues(result).Inc()
}
