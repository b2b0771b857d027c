package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

const megabyte = 1024 * 1024

// LocalCache keeps reports in a process-local freecache. Records versions live in a plain map:
// an evicted version would reset to zero and resurrect stale reports.
type LocalCache struct {
	cache    *freecache.Cache
	ttl      time.Duration
	mu       sync.Mutex
	versions map[string]int64
}

// NewLocalCache allocates a cache of sizeMegabytes.
func NewLocalCache(sizeMegabytes int, ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalCache{
		cache:    freecache.NewCache(sizeMegabytes * megabyte),
		ttl:      ttl,
		versions: make(map[string]int64),
	}
}

// Get returns the cached value, reporting false when the key is absent or expired.
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := c.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value with the cache TTL.
func (c *LocalCache) Set(_ context.Context, key string, value []byte) error {
	return c.cache.Set([]byte(key), value, int(c.ttl.Seconds()))
}

// RecordsVersion returns the user's records version.
func (c *LocalCache) RecordsVersion(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[userID], nil
}

// BumpRecordsVersion increments the user's records version.
func (c *LocalCache) BumpRecordsVersion(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	return nil
}

// EntryCount reports the number of live entries.
func (c *LocalCache) EntryCount() int64 {
	return c.cache.EntryCount()
}
