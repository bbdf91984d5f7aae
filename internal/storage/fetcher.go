package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// MaxFetchBytes caps a single download.
const MaxFetchBytes = 512 << 20

// ByteCache caches model bytes by key.
type ByteCache interface {
	GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, bool, error)
}

// Fetcher resolves preview and metadata urls. http and https urls are fetched
// over HTTP; minio://key reads from the default bucket and s3://bucket/key from
// a named one. Model bytes go through Cache when one is set; metadata is
// always fetched fresh.
type Fetcher struct {
	HTTP          *http.Client
	Store         ObjectStore
	DefaultBucket string
	Cache         ByteCache
	Timeout       time.Duration
}

// NewFetcher returns a fetcher with a plain HTTP client.
func NewFetcher(store ObjectStore, bucket string, cache ByteCache, timeout time.Duration) *Fetcher {
	return &Fetcher{
		HTTP:          &http.Client{},
		Store:         store,
		DefaultBucket: bucket,
		Cache:         cache,
		Timeout:       timeout,
	}
}

func (f *Fetcher) FetchAsset(ctx context.Context, rawURL string) ([]byte, error) {
	if f.Cache == nil {
		return f.fetch(ctx, rawURL)
	}
	data, hit, err := f.Cache.GetOrLoad(ctx, rawURL, func(ctx context.Context) ([]byte, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		log.Debugf("Asset cache hit for %s", rawURL)
	}
	return data, nil
}

func (f *Fetcher) FetchMetadata(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, rawURL)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse url %q", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u.String())
	case "minio", "s3":
		bucket, key, err := f.objectLocation(u)
		if err != nil {
			return nil, err
		}
		if f.Store == nil {
			return nil, fmt.Errorf("no object store configured for %s", rawURL)
		}
		return f.Store.Get(ctx, bucket, key)
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// objectLocation splits minio://key (default bucket) and s3://bucket/key.
func (f *Fetcher) objectLocation(u *url.URL) (string, string, error) {
	if u.Scheme == "s3" {
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("s3 url needs a bucket and a key: %s", u)
		}
		return u.Host, key, nil
	}
	key := strings.TrimPrefix(u.Host+u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("minio url needs a key: %s", u)
	}
	return f.DefaultBucket, key, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", rawURL)
	}
	if len(data) > MaxFetchBytes {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", rawURL, MaxFetchBytes)
	}
	return data, nil
}
