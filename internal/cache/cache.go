// Package cache implements the Metadata Cache (C3): a read-through LRU in
// front of the Index Gateway for hot keys (object DirEntry+attrs, user
// records, bucket instances), per spec.md §4.3.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	hits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sal_metadata_cache_hits_total",
		Help: "Metadata cache hits by cache name.",
	}, []string{"cache"})
	misses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sal_metadata_cache_misses_total",
		Help: "Metadata cache misses by cache name.",
	}, []string{"cache"})
)

func init() {
	prometheus.MustRegister(hits, misses)
}

// Entry is one cached payload: the raw encoded record value plus the
// mtime it was written with, per spec.md §4.3.
type Entry struct {
	Value []byte
	MTime time.Time
}

// Cache is a single read-through LRU keyed by indexName + "\x00" + key
// strings.
// It is advisory: callers are responsible for calling Put or
// InvalidateRemove after every index write succeeds (spec.md §4.3
// "Consistency").
type Cache struct {
	name    string
	mu      sync.RWMutex
	enabled bool
	lru     *lru.Cache
}

// New constructs a Cache of the given size. name is used only for metric
// labeling (e.g. "objects", "users", "bucket-instances" — spec.md §4.3
// "Coverage").
func New(name string, size int) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{name: name, enabled: true, lru: l}, nil
}

func key(indexName string, k []byte) string {
	return indexName + "\x00" + string(k)
}

// SetEnabled toggles the cache; when disabled it behaves as pure
// pass-through (spec.md §6.4 use_metadata_cache=false).
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.lru.Purge()
	}
}

// Get returns the cached entry for (indexName, k), if present and the
// cache is enabled.
func (c *Cache) Get(indexName string, k []byte) (Entry, bool) {
	c.mu.RLock()
	enabled := c.enabled
	c.mu.RUnlock()
	if !enabled {
		misses.WithLabelValues(c.name).Inc()
		return Entry{}, false
	}
	v, ok := c.lru.Get(key(indexName, k))
	if !ok {
		misses.WithLabelValues(c.name).Inc()
		return Entry{}, false
	}
	hits.WithLabelValues(c.name).Inc()
	return v.(Entry), true
}

// Put inserts or updates the cached entry for (indexName, k). Called
// after an index write that should become visible to subsequent reads.
func (c *Cache) Put(indexName string, k []byte, e Entry) {
	c.mu.RLock()
	enabled := c.enabled
	c.mu.RUnlock()
	if !enabled {
		return
	}
	c.lru.Add(key(indexName, k), e)
}

// InvalidateRemove drops the cached entry for (indexName, k). Called
// after an index delete, and from the cross-process invalidation hook.
func (c *Cache) InvalidateRemove(indexName string, k []byte) {
	c.lru.Remove(key(indexName, k))
}

// OnInvalidation is the cross-process notification hook spec.md §4.3
// describes: "a no-op that must exist and be callable"; production
// wiring (e.g. a pub/sub subscriber) calls this on receipt of a remote
// invalidation message.
func (c *Cache) OnInvalidation(indexName string, k []byte) {
	c.InvalidateRemove(indexName, k)
}
