// Package hotcache is the process-local first tier: a bounded, sharded LRU whose
// entries expire a fixed TTL after insertion. It knows nothing about the store;
// values are the serialized payloads promoted by the cache service.
package hotcache

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/piekstra/tirds/config"
	"github.com/piekstra/tirds/internal/shared/cachedtime"
	"github.com/zeebo/xxh3"
)

type HotCache interface {
	Get(key string) ([]byte, bool)
	Insert(key string, value []byte)
	Invalidate(key string) bool
	Len() int64
	Mem() int64
	Clear()
	HotCacheMetrics() (hits, misses, inserts, evicted, expired int64)
	Close() error
}

type Cache struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.HotCacheCfg
	logger   *slog.Logger
	ttl      int64
	shards   []*shard
	counters *counters
}

// New returns a NoOpHotCache when cfg is nil. The janitor, if configured,
// stops when ctx ends or Close is called.
func New(ctx context.Context, cfg *config.HotCacheCfg, logger *slog.Logger) HotCache {
	if !cfg.Enabled() {
		return &NoOpHotCache{}
	}
	return newCache(ctx, cfg, logger)
}

func newCache(ctx context.Context, cfg *config.HotCacheCfg, logger *slog.Logger) *Cache {
	capacity := max(cfg.Capacity, 1)
	n := min(max(cfg.Shards, 1), capacity)

	ctx, cancel := context.WithCancel(ctx)
	c := &Cache{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		ttl:      cfg.TTL.Nanoseconds(),
		shards:   make([]*shard, n),
		counters: newCounters(),
	}

	// capacities add up to exactly the configured bound
	base, rem := capacity/n, capacity%n
	for i := range c.shards {
		shardCap := base
		if i < rem {
			shardCap++
		}
		c.shards[i] = newShard(i, shardCap)
	}

	cachedtime.RunIfEnabled(ctx, cfg.CachedTime)
	if cfg.JanitorRate > 0 {
		newJanitor(ctx, c, cfg.JanitorRate, logger).run()
	}
	return c
}

func (c *Cache) Get(key string) ([]byte, bool) {
	value, hit, expired := c.shardOf(key).get(key, cachedtime.UnixNano(), c.ttl)
	if expired {
		c.counters.expired.Add(1)
	}
	if !hit {
		c.counters.misses.Add(1)
		return nil, false
	}
	c.counters.hits.Add(1)
	return bytes.Clone(value), true
}

// Insert stores a private copy of value and restarts its TTL clock.
func (c *Cache) Insert(key string, value []byte) {
	if c.shardOf(key).set(key, bytes.Clone(value), cachedtime.UnixNano()) {
		c.counters.evicted.Add(1)
	}
	c.counters.inserts.Add(1)
}

func (c *Cache) Invalidate(key string) bool {
	return c.shardOf(key).remove(key)
}

// Len is the number of resident entries, expired ones not yet swept included.
func (c *Cache) Len() int64 {
	var n int64
	for _, sh := range c.shards {
		n += sh.Len()
	}
	return n
}

// Mem is the approximate resident size of keys and values in bytes.
func (c *Cache) Mem() int64 {
	var n int64
	for _, sh := range c.shards {
		n += sh.Mem()
	}
	return n
}

func (c *Cache) Clear() {
	for _, sh := range c.shards {
		sh.clear()
	}
}

func (c *Cache) Capacity() int { return max(c.cfg.Capacity, 1) }

func (c *Cache) HotCacheMetrics() (hits, misses, inserts, evicted, expired int64) {
	return c.counters.snapshot()
}

func (c *Cache) Close() error {
	c.cancel()
	return nil
}

func (c *Cache) shardOf(key string) *shard {
	return c.shards[xxh3.HashString(key)%uint64(len(c.shards))]
}

// sweep drops TTL-expired entries of one shard.
func (c *Cache) sweep(idx int) int64 {
	removed := c.shards[idx].sweep(cachedtime.UnixNano(), c.ttl)
	if removed > 0 {
		c.counters.expired.Add(removed)
	}
	return removed
}
