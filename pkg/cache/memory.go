package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lborres/tala/core"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxSize = 500
)

var _ core.CacheWithStats = (*InMemoryCache)(nil)

// InMemoryCache implements an in-memory session cache backed by an expiring LRU.
// Entries leave the cache when their TTL runs out, when the session itself
// expires, or when capacity forces out the least recently used one.
type InMemoryCache struct {
	lru *expirable.LRU[string, *core.Session]
	ttl time.Duration

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache(c core.CacheConfig) *InMemoryCache {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSize
	}

	return &InMemoryCache{
		lru: expirable.NewLRU[string, *core.Session](c.MaxSize, nil, c.TTL),
		ttl: c.TTL,
	}
}

// Get retrieves a session from cache
func (c *InMemoryCache) Get(tokenHash string) (*core.Session, error) {
	session, ok := c.lru.Get(tokenHash)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, core.ErrCacheNotFound
	}

	if session.Expired(time.Now()) {
		c.lru.Remove(tokenHash)
		atomic.AddInt64(&c.misses, 1)
		return nil, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return session, nil
}

// Set stores a session in cache
func (c *InMemoryCache) Set(tokenHash string, session *core.Session) error {
	if evicted := c.lru.Add(tokenHash, session); evicted {
		atomic.AddInt64(&c.evictions, 1)
	}
	atomic.AddInt64(&c.sets, 1)
	return nil
}

// Delete removes a session from cache
func (c *InMemoryCache) Delete(tokenHash string) error {
	if c.lru.Remove(tokenHash) {
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

// Len returns the number of live entries
func (c *InMemoryCache) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of cache counters
func (c *InMemoryCache) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.lru.Len(),
		TTL:       c.ttl,
	}
}
