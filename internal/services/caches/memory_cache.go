package caches

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"preview-service/internal/services/cache"
)

// MemoryCache keeps small assets in process memory with LRU eviction and a
// TTL enforced by a background sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	maxSize int64
	size    int64
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	data       []byte
	createdAt  time.Time
	lastAccess time.Time
}

// NewMemoryCache returns a cache holding at most maxSizeBytes. A positive
// sweep interval starts the expiry goroutine; stop it with Close.
func NewMemoryCache(maxSizeBytes int64, ttl, sweep time.Duration) *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: maxSizeBytes,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweep > 0 {
		go mc.cleanupExpired(sweep)
	}
	return mc
}

func (mc *MemoryCache) Name() string {
	return "MEMORY"
}

func (mc *MemoryCache) Store(key string, data []byte) error {
	size := int64(len(data))
	if size > mc.maxSize {
		return fmt.Errorf("object of size %d exceeds memory cache capacity %d", size, mc.maxSize)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.removeLocked(key)
	for mc.size+size > mc.maxSize {
		if !mc.evictLRULocked() {
			return fmt.Errorf("unable to free space for object of size %d", size)
		}
	}
	now := mc.now()
	mc.entries[key] = &memoryEntry{data: data, createdAt: now, lastAccess: now}
	mc.size += size
	log.Debugf("Memory cache: stored %s (%d bytes)", key, size)
	return nil
}

func (mc *MemoryCache) Get(key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	e, ok := mc.entries[key]
	if !ok || mc.expiredLocked(e) {
		mc.misses.Add(1)
		return nil, cache.ErrMiss
	}
	e.lastAccess = mc.now()
	mc.hits.Add(1)
	return e.data, nil
}

func (mc *MemoryCache) Exists(key string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	e, ok := mc.entries[key]
	return ok && !mc.expiredLocked(e), nil
}

func (mc *MemoryCache) Delete(key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.removeLocked(key)
	return nil
}

func (mc *MemoryCache) Clear() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]*memoryEntry)
	mc.size = 0
	mc.hits.Store(0)
	mc.misses.Store(0)
	log.Debugf("Memory cache: cleared all objects")
	return nil
}

func (mc *MemoryCache) GetStats() cache.LayerStats {
	mc.mu.Lock()
	objects, size := len(mc.entries), mc.size
	mc.mu.Unlock()

	hits, misses := mc.hits.Load(), mc.misses.Load()
	return cache.LayerStats{
		Name:      "Memory",
		Objects:   objects,
		SizeBytes: size,
		Hits:      hits,
		Misses:    misses,
		HitRate:   cache.HitRate(hits, misses),
	}
}

// Close stops the expiry goroutine.
func (mc *MemoryCache) Close() {
	mc.stopOnce.Do(func() { close(mc.stop) })
}

func (mc *MemoryCache) expiredLocked(e *memoryEntry) bool {
	return mc.ttl > 0 && mc.now().Sub(e.createdAt) > mc.ttl
}

func (mc *MemoryCache) removeLocked(key string) {
	if e, ok := mc.entries[key]; ok {
		mc.size -= int64(len(e.data))
		delete(mc.entries, key)
	}
}

func (mc *MemoryCache) evictLRULocked() bool {
	var oldestKey string
	var oldest time.Time
	for key, e := range mc.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey, oldest = key, e.lastAccess
		}
	}
	if oldestKey == "" {
		return false
	}
	log.Debugf("Memory cache: evicting %s", oldestKey)
	mc.removeLocked(oldestKey)
	return true
}

// Sweep drops expired entries and returns how many were dropped.
func (mc *MemoryCache) Sweep() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	n := 0
	for key, e := range mc.entries {
		if mc.expiredLocked(e) {
			mc.removeLocked(key)
			n++
		}
	}
	return n
}

func (mc *MemoryCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case <-ticker.C:
			if n := mc.Sweep(); n > 0 {
				log.Infof("Memory cache: cleaned up %d expired objects", n)
			}
		}
	}
}
