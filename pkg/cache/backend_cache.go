// Package cache keeps deserialized ANN backends in memory. Entries are
// keyed by (bucket, index, blob etag), so a rebuild naturally misses and the
// superseded entry ages out of the LRU instead of being tracked.
package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"s3vectors/pkg/ann"
)

// BackendCache is a bounded cache of loaded backends. Concurrent misses for
// the same blob collapse into one load.
type BackendCache struct {
	entries *lru.Cache[string, ann.Backend]
	group   singleflight.Group
}

// NewBackendCache creates a cache holding up to size backends
func NewBackendCache(size int) (*BackendCache, error) {
	entries, err := lru.New[string, ann.Backend](size)
	if err != nil {
		return nil, err
	}
	return &BackendCache{entries: entries}, nil
}

// Key builds the cache key for an index blob version
func Key(bucket, index, etag string) string {
	return bucket + "/" + index + "@" + etag
}

// Get returns the cached backend for key, calling load on a miss. A load
// error is returned to every collapsed caller and nothing is cached.
func (c *BackendCache) Get(key string, load func() (ann.Backend, error)) (ann.Backend, error) {
	if backend, ok := c.entries.Get(key); ok {
		return backend, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if backend, ok := c.entries.Get(key); ok {
			return backend, nil
		}
		backend, err := load()
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, backend)
		return backend, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ann.Backend), nil
}

// InvalidateIndex drops every cached version of an index. Used when the
// index is deleted; plain rebuilds rely on etag keying instead.
func (c *BackendCache) InvalidateIndex(bucket, index string) {
	prefix := bucket + "/" + index + "@"
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}

// Len returns the number of cached backends
func (c *BackendCache) Len() int { return c.entries.Len() }
