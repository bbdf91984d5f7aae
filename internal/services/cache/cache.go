package cache

import "errors"

// ErrMiss is returned by Get when a layer does not hold the key.
var ErrMiss = errors.New("cache miss")

// CacheLayer is one tier of the asset byte cache.
type CacheLayer interface {
	Name() string
	Store(key string, data []byte) error
	Get(key string) ([]byte, error)
	Exists(key string) (bool, error)
	Delete(key string) error
	Clear() error
	GetStats() LayerStats
}

type LayerStats struct {
	Name      string  `json:"name"`
	Objects   int     `json:"objects"`
	SizeBytes int64   `json:"sizeBytes"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hitRate"`
}

// HitRate is hits over lookups in percent, 0 without lookups.
func HitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}
