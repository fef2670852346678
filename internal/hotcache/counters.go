package hotcache

import "sync/atomic"

type counters struct {
	hits    atomic.Int64
	misses  atomic.Int64
	inserts atomic.Int64
	evicted atomic.Int64 // capacity-driven
	expired atomic.Int64 // TTL-driven, on read or by the janitor
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) snapshot() (hits, misses, inserts, evicted, expired int64) {
	return c.hits.Load(), c.misses.Load(), c.inserts.Load(), c.evicted.Load(), c.expired.Load()
}
