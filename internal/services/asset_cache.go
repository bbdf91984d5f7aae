package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"preview-service/internal/metrics"
	"preview-service/internal/services/cache"
)

// AssetCache picks a cache layer by asset size: small assets stay in memory,
// large ones go to the large layer (Redis or disk) when one is configured and
// are not cached otherwise.
// Concurrent misses for one key share a single load.
type AssetCache struct {
	memory         cache.CacheLayer
	large          cache.CacheLayer
	largeThreshold int64
	metrics        *metrics.Metrics
	loads          singleflight.Group
}

type CacheStats struct {
	Layers         []cache.LayerStats `json:"layers"`
	LargeThreshold int64              `json:"largeThreshold"`
}

// NewAssetCache builds the cache. large and m may be nil.
func NewAssetCache(memory, large cache.CacheLayer, largeThreshold int64, m *metrics.Metrics) *AssetCache {
	return &AssetCache{
		memory:         memory,
		large:          large,
		largeThreshold: largeThreshold,
		metrics:        m,
	}
}

func (ac *AssetCache) layers() []cache.CacheLayer {
	out := []cache.CacheLayer{ac.memory}
	if ac.large != nil {
		out = append(out, ac.large)
	}
	return out
}

// GetOptimalCache returns the layer for an asset of size bytes, nil when the
// asset should not be cached.
func (ac *AssetCache) GetOptimalCache(size int) cache.CacheLayer {
	if int64(size) <= ac.largeThreshold {
		return ac.memory
	}
	return ac.large
}

// Get returns the cached bytes and the serving layer, or loads them and
// stores them in the optimal layer. layer is "" after a load. A shared load
// is not cancelled when the caller that started it goes away.
func (ac *AssetCache) Get(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, string, error) {
	for _, l := range ac.layers() {
		data, err := l.Get(key)
		hit := err == nil
		ac.observe(l.Name(), hit)
		if hit {
			return data, l.Name(), nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("Asset cache %s lookup for %s failed: %v", l.Name(), key, err)
		}
	}

	v, err, _ := ac.loads.Do(key, func() (any, error) {
		data, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if l := ac.GetOptimalCache(len(data)); l != nil {
			if err := l.Store(key, data); err != nil {
				log.Warnf("Failed to cache %s in %s: %v", key, l.Name(), err)
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, "", err
	}
	return v.([]byte), "", nil
}

// GetOrLoad is Get reporting only whether the bytes came from a cache.
func (ac *AssetCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	data, layer, err := ac.Get(ctx, key, load)
	return data, layer != "", err
}

// Invalidate removes key from every layer.
func (ac *AssetCache) Invalidate(key string) error {
	var errs []error
	for _, l := range ac.layers() {
		if err := l.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearAll empties every layer.
func (ac *AssetCache) ClearAll() error {
	var errs []error
	for _, l := range ac.layers() {
		if err := l.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ac *AssetCache) Stats() CacheStats {
	stats := CacheStats{LargeThreshold: ac.largeThreshold}
	for _, l := range ac.layers() {
		stats.Layers = append(stats.Layers, l.GetStats())
	}
	return stats
}

func (ac *AssetCache) observe(layer string, hit bool) {
	if ac.metrics != nil {
		ac.metrics.CacheLookup(layer, hit)
	}
}
