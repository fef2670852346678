package cache

import "sync/atomic"

type counters struct {
	hotHits      atomic.Int64
	storeQueries atomic.Int64
	promotions   atomic.Int64
	misses       atomic.Int64
	decodeErrors atomic.Int64
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) snapshot() (hotHits, storeQueries, promotions, misses, decodeErrors int64) {
	return c.hotHits.Load(), c.storeQueries.Load(), c.promotions.Load(), c.misses.Load(), c.decodeErrors.Load()
}
