package caches

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preview-service/internal/services/cache"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(max int64, ttl time.Duration) (*MemoryCache, *clock) {
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(max, ttl, 0)
	mc.now = c.now
	return mc, c
}

func TestMemoryCacheStoreGet(t *testing.T) {
	mc, _ := newTestCache(100, time.Minute)

	require.NoError(t, mc.Store("a", []byte("hello")))
	data, err := mc.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = mc.Get("b")
	assert.ErrorIs(t, err, cache.ErrMiss)

	stats := mc.GetStats()
	assert.Equal(t, 1, stats.Objects)
	assert.Equal(t, int64(5), stats.SizeBytes)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 50.0, stats.HitRate)
}

func TestMemoryCacheReplaceKeepsSize(t *testing.T) {
	mc, _ := newTestCache(100, time.Minute)
	require.NoError(t, mc.Store("a", make([]byte, 40)))
	require.NoError(t, mc.Store("a", make([]byte, 60)))
	assert.Equal(t, int64(60), mc.GetStats().SizeBytes)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc, clk := newTestCache(10, time.Hour)

	require.NoError(t, mc.Store("a", make([]byte, 4)))
	clk.t = clk.t.Add(time.Second)
	require.NoError(t, mc.Store("b", make([]byte, 4)))
	clk.t = clk.t.Add(time.Second)
	_, err := mc.Get("a")
	require.NoError(t, err)

	clk.t = clk.t.Add(time.Second)
	require.NoError(t, mc.Store("c", make([]byte, 4)))

	ok, _ := mc.Exists("a")
	assert.True(t, ok)
	ok, _ = mc.Exists("b")
	assert.False(t, ok)
	ok, _ = mc.Exists("c")
	assert.True(t, ok)

	assert.Error(t, mc.Store("huge", make([]byte, 11)))
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc, clk := newTestCache(100, time.Minute)
	require.NoError(t, mc.Store("a", []byte("x")))

	clk.t = clk.t.Add(2 * time.Minute)
	_, err := mc.Get("a")
	assert.ErrorIs(t, err, cache.ErrMiss)
	assert.Equal(t, 1, mc.Sweep())
	assert.Zero(t, mc.GetStats().Objects)
}

func TestMemoryCacheDeleteClear(t *testing.T) {
	mc, _ := newTestCache(100, time.Minute)
	require.NoError(t, mc.Store("a", []byte("x")))
	require.NoError(t, mc.Store("b", []byte("y")))

	require.NoError(t, mc.Delete("a"))
	require.NoError(t, mc.Delete("missing"))
	assert.Equal(t, 1, mc.GetStats().Objects)

	require.NoError(t, mc.Clear())
	stats := mc.GetStats()
	assert.Zero(t, stats.Objects)
	assert.Zero(t, stats.SizeBytes)
}

func TestMemoryCacheCloseStopsSweeper(t *testing.T) {
	mc := NewMemoryCache(100, time.Millisecond, time.Millisecond)
	require.NoError(t, mc.Store("a", []byte("x")))
	assert.Eventually(t, func() bool { return mc.GetStats().Objects == 0 }, time.Second, time.Millisecond)
	mc.Close()
	mc.Close()
}
