package caches

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"preview-service/internal/services/cache"
)

const fileCacheExt = ".asset"

// FileSystemCache keeps assets as files under a directory. A file's mtime is
// its last access; entries older than the TTL are expired and the least
// recently accessed files are evicted when the size limit is reached.
type FileSystemCache struct {
	basePath    string
	maxSize     int64
	currentSize atomic.Int64
	ttl         time.Duration
	mu          sync.Mutex
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// NewFileSystemCache creates basePath if needed and picks up files left by a
// previous run. A positive sweep starts a background expiry loop.
func NewFileSystemCache(basePath string, maxSizeBytes int64, ttl, sweep time.Duration) (*FileSystemCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.Wrap(err, "create file cache directory")
	}
	fsc := &FileSystemCache{
		basePath: basePath,
		maxSize:  maxSizeBytes,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, f := range fsc.files() {
		fsc.currentSize.Add(f.size)
	}
	if sweep > 0 {
		go fsc.cleanupExpired(sweep)
	}
	return fsc, nil
}

func (fsc *FileSystemCache) Name() string {
	return "FILESYSTEM"
}

// path derives a stable file name from the key.
func (fsc *FileSystemCache) path(key string) string {
	return filepath.Join(fsc.basePath, uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()+fileCacheExt)
}

func (fsc *FileSystemCache) Store(key string, data []byte) error {
	fsc.mu.Lock()
	defer fsc.mu.Unlock()

	size := int64(len(data))
	if size > fsc.maxSize {
		return errors.Errorf("asset of %d bytes exceeds file cache size %d", size, fsc.maxSize)
	}
	path := fsc.path(key)
	if info, err := os.Stat(path); err == nil {
		fsc.removeLocked(path, info.Size())
	}
	for fsc.currentSize.Load()+size > fsc.maxSize {
		if !fsc.evictOldestLocked() {
			return errors.Errorf("unable to free space for file of size %d", size)
		}
	}

	// write then rename so readers never see a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to commit cache file")
	}
	now := fsc.now()
	os.Chtimes(path, now, now)
	fsc.currentSize.Add(size)
	log.Debugf("File cache: stored %s (%d bytes)", key, size)
	return nil
}

func (fsc *FileSystemCache) Get(key string) ([]byte, error) {
	fsc.mu.Lock()
	defer fsc.mu.Unlock()

	path := fsc.path(key)
	info, err := os.Stat(path)
	if err != nil {
		fsc.misses.Add(1)
		if os.IsNotExist(err) {
			return nil, cache.ErrMiss
		}
		return nil, errors.Wrap(err, "stat cache file")
	}
	if fsc.expired(info.ModTime()) {
		fsc.removeLocked(path, info.Size())
		fsc.misses.Add(1)
		return nil, cache.ErrMiss
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fsc.misses.Add(1)
		return nil, errors.Wrap(err, "failed to read cache file")
	}
	now := fsc.now()
	os.Chtimes(path, now, now)
	fsc.hits.Add(1)
	return data, nil
}

func (fsc *FileSystemCache) Exists(key string) (bool, error) {
	fsc.mu.Lock()
	defer fsc.mu.Unlock()
	info, err := os.Stat(fsc.path(key))
	if err != nil {
		return false, nil
	}
	return !fsc.expired(info.ModTime()), nil
}

func (fsc *FileSystemCache) Delete(key string) error {
	fsc.mu.Lock()
	defer fsc.mu.Unlock()
	path := fsc.path(key)
	if info, err := os.Stat(path); err == nil {
		fsc.removeLocked(path, info.Size())
	}
	return nil
}

func (fsc *FileSystemCache) Clear() error {
	fsc.mu.Lock()
	defer fsc.mu.Unlock()
	files := fsc.files()
	for _, f := range files {
		fsc.removeLocked(f.path, f.size)
	}
	fsc.hits.Store(0)
	fsc.misses.Store(0)
	log.Infof("File cache: cleared %d objects", len(files))
	return nil
}

func (fsc *FileSystemCache) GetStats() cache.LayerStats {
	fsc.mu.Lock()
	objects := len(fsc.files())
	fsc.mu.Unlock()
	hits, misses := fsc.hits.Load(), fsc.misses.Load()
	return cache.LayerStats{
		Name:      "FileSystem",
		Objects:   objects,
		SizeBytes: fsc.currentSize.Load(),
		Hits:      hits,
		Misses:    misses,
		HitRate:   cache.HitRate(hits, misses),
	}
}

// Sweep removes expired files and returns how many were removed.
func (fsc *FileSystemCache) Sweep() int {
	fsc.mu.Lock()
	defer fsc.mu.Unlock()
	n := 0
	for _, f := range fsc.files() {
		if fsc.expired(f.modTime) {
			fsc.removeLocked(f.path, f.size)
			n++
		}
	}
	return n
}

// Close stops the expiry loop. Cached files stay on disk.
func (fsc *FileSystemCache) Close() {
	fsc.stopOnce.Do(func() { close(fsc.stop) })
}

func (fsc *FileSystemCache) expired(modTime time.Time) bool {
	return fsc.ttl > 0 && fsc.now().Sub(modTime) > fsc.ttl
}

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (fsc *FileSystemCache) files() []cacheFile {
	entries, err := os.ReadDir(fsc.basePath)
	if err != nil {
		return nil
	}
	var out []cacheFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileCacheExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, cacheFile{
			path:    filepath.Join(fsc.basePath, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	return out
}

func (fsc *FileSystemCache) removeLocked(path string, size int64) {
	if err := os.Remove(path); err == nil {
		fsc.currentSize.Add(-size)
	}
}

func (fsc *FileSystemCache) evictOldestLocked() bool {
	var oldest *cacheFile
	files := fsc.files()
	for i := range files {
		if oldest == nil || files[i].modTime.Before(oldest.modTime) {
			oldest = &files[i]
		}
	}
	if oldest == nil {
		return false
	}
	fsc.removeLocked(oldest.path, oldest.size)
	return true
}

func (fsc *FileSystemCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := fsc.Sweep(); n > 0 {
				log.Infof("File cache: cleaned up %d expired files", n)
			}
		case <-fsc.stop:
			return
		}
	}
}
