// AngelaMos | 2026
// cache.go

package core

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_cache_hits_total",
		Help: "In-process cache hits by cache name.",
	}, []string{"cache"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigmarket_cache_misses_total",
		Help: "In-process cache misses by cache name.",
	}, []string{"cache"})
)

// Cache is a per-instance LRU with a TTL. Entries are not shared between
// replicas, so writers must invalidate locally and tolerate staleness up to
// the TTL elsewhere.
type Cache[V any] struct {
	name string
	lru  *expirable.LRU[string, V]
}

func NewCache[V any](name string, size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = 1024
	}
	return &Cache[V]{
		name: name,
		lru:  expirable.NewLRU[string, V](size, nil, ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		cacheHits.WithLabelValues(c.name).Inc()
	} else {
		cacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

func (c *Cache[V]) Set(key string, v V) {
	c.lru.Add(key, v)
}

func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
