package caches

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preview-service/internal/services/cache"
)

func newTestFileCache(t *testing.T, max int64, ttl time.Duration) (*FileSystemCache, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	fsc, err := NewFileSystemCache(t.TempDir(), max, ttl, 0)
	require.NoError(t, err)
	fsc.now = c.now
	return fsc, c
}

func TestFileCacheStoreGet(t *testing.T) {
	fsc, _ := newTestFileCache(t, 100, time.Hour)

	require.NoError(t, fsc.Store("minio://a/model.glb", []byte("hello")))
	data, err := fsc.Get("minio://a/model.glb")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = fsc.Get("minio://b/model.glb")
	assert.ErrorIs(t, err, cache.ErrMiss)

	ok, err := fsc.Exists("minio://a/model.glb")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fsc.Store("minio://a/model.glb", []byte("hi")))
	stats := fsc.GetStats()
	assert.Equal(t, 1, stats.Objects)
	assert.EqualValues(t, 2, stats.SizeBytes)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestFileCacheExpiry(t *testing.T) {
	fsc, c := newTestFileCache(t, 100, time.Minute)
	require.NoError(t, fsc.Store("a", []byte("x")))
	require.NoError(t, fsc.Store("b", []byte("y")))

	c.t = c.t.Add(2 * time.Minute)
	_, err := fsc.Get("a")
	assert.ErrorIs(t, err, cache.ErrMiss)
	assert.Equal(t, 1, fsc.Sweep())
	assert.Zero(t, fsc.GetStats().Objects)
	assert.Zero(t, fsc.GetStats().SizeBytes)
}

func TestFileCacheEvictsLeastRecentlyUsed(t *testing.T) {
	fsc, c := newTestFileCache(t, 10, time.Hour)
	require.NoError(t, fsc.Store("a", []byte("aaaa")))
	c.t = c.t.Add(time.Second)
	require.NoError(t, fsc.Store("b", []byte("bbbb")))
	c.t = c.t.Add(time.Second)
	_, err := fsc.Get("a")
	require.NoError(t, err)
	c.t = c.t.Add(time.Second)

	require.NoError(t, fsc.Store("c", []byte("cccc")))
	_, err = fsc.Get("b")
	assert.ErrorIs(t, err, cache.ErrMiss)
	_, err = fsc.Get("a")
	assert.NoError(t, err)

	assert.Error(t, fsc.Store("huge", make([]byte, 11)))
}

func TestFileCacheReopenAndClear(t *testing.T) {
	dir := t.TempDir()
	fsc, err := NewFileSystemCache(dir, 100, 0, 0)
	require.NoError(t, err)
	require.NoError(t, fsc.Store("a", []byte("abc")))

	reopened, err := NewFileSystemCache(dir, 100, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, reopened.GetStats().SizeBytes)
	data, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	require.NoError(t, reopened.Clear())
	assert.Zero(t, reopened.GetStats().Objects)
	require.NoError(t, reopened.Delete("a"))
}
