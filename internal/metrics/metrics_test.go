package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyHeaders(t *testing.T) {
	m := NewLatencyMetrics()
	m.Record("metadata", 1500*time.Microsecond)
	m.Record("db_lookup", 2*time.Millisecond)
	m.RecordCache(true, "MEMORY")
	m.SetObjectSize(42)
	m.Finalize()

	h := m.GetHeaders()
	assert.Equal(t, "1.50", h["X-Latency-Metadata-Ms"])
	assert.Equal(t, "2.00", h["X-Latency-DB-Lookup-Ms"])
	assert.Equal(t, "true", h["X-Cache-Hit"])
	assert.Equal(t, "MEMORY", h["X-Cache-Layer-Used"])
	assert.Equal(t, "42", h["X-Object-Size-Bytes"])
	assert.Contains(t, h, "X-Latency-Total-Ms")
}

func TestLatencyTime(t *testing.T) {
	m := NewLatencyMetrics()
	err := m.Time("minio_get", func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, m.GetHeaders(), "X-Latency-MinIO-Get-Ms")
	assert.Equal(t, "false", m.GetHeaders()["X-Cache-Hit"])
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveLoad("ready", map[string]time.Duration{"total": 20 * time.Millisecond})
	m.ObserveLoad("error", nil)
	m.AddDropped("layer", 2)
	m.AddDropped("legend", 0)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.CacheLookup("MEMORY", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("ready")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.droppedEntries.WithLabelValues("layer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("MEMORY", "hit")))

	// a second set on a fresh registry must not collide
	assert.NotPanics(t, func() { NewMetrics(prometheus.NewRegistry()) })
}
