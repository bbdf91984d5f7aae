package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// LatencyMetrics is the per-request latency breakdown returned to clients as
// X-Latency-* headers.
type LatencyMetrics struct {
	mu sync.RWMutex

	start time.Time

	TotalLatencyMs float64            `json:"totalLatencyMs"`
	Stages         map[string]float64 `json:"stages"`
	CacheHit       bool               `json:"cacheHit"`
	CacheLayerUsed string             `json:"cacheLayerUsed,omitempty"`
	ObjectSize     int64              `json:"objectSize,omitempty"`
}

// NewLatencyMetrics starts the total clock.
func NewLatencyMetrics() *LatencyMetrics {
	return &LatencyMetrics{
		start:  time.Now(),
		Stages: make(map[string]float64),
	}
}

// Record stores the duration of a named stage, e.g. "metadata" or "asset".
func (m *LatencyMetrics) Record(stage string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stages[stage] = toMs(d)
}

// Time runs fn and records its duration under stage.
func (m *LatencyMetrics) Time(stage string, fn func() error) error {
	t0 := time.Now()
	err := fn()
	m.Record(stage, time.Since(t0))
	return err
}

// RecordCache notes which cache layer, if any, served the bytes.
func (m *LatencyMetrics) RecordCache(hit bool, layer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHit = hit
	if hit {
		m.CacheLayerUsed = layer
	}
}

func (m *LatencyMetrics) SetObjectSize(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ObjectSize = size
}

// Finalize stops the total clock.
func (m *LatencyMetrics) Finalize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalLatencyMs = toMs(time.Since(m.start))
}

// GetHeaders returns HTTP headers with latency metrics.
func (m *LatencyMetrics) GetHeaders() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	headers := map[string]string{
		"X-Latency-Total-Ms": formatFloat(m.TotalLatencyMs),
		"X-Cache-Hit":        fmt.Sprintf("%t", m.CacheHit),
	}
	if m.CacheHit && m.CacheLayerUsed != "" {
		headers["X-Cache-Layer-Used"] = m.CacheLayerUsed
	}
	stages := make([]string, 0, len(m.Stages))
	for s := range m.Stages {
		stages = append(stages, s)
	}
	sort.Strings(stages)
	for _, s := range stages {
		headers["X-Latency-"+headerName(s)+"-Ms"] = formatFloat(m.Stages[s])
	}
	if m.ObjectSize > 0 {
		headers["X-Object-Size-Bytes"] = fmt.Sprintf("%d", m.ObjectSize)
	}
	return headers
}

// headerName turns "db_lookup" into "DB-Lookup" style header segments.
func headerName(stage string) string {
	parts := strings.FieldsFunc(stage, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		switch strings.ToLower(p) {
		case "db":
			parts[i] = "DB"
		case "minio":
			parts[i] = "MinIO"
		default:
			parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return strings.Join(parts, "-")
}

func toMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
