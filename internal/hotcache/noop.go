package hotcache

// NoOpHotCache is used when the hot tier is disabled.
// It stores nothing, so every lookup falls through to the store.
type NoOpHotCache struct{}

func (NoOpHotCache) Get(string) ([]byte, bool) { return nil, false }

func (NoOpHotCache) Insert(string, []byte) {}

func (NoOpHotCache) Invalidate(string) bool { return false }

func (NoOpHotCache) Len() int64 { return 0 }

func (NoOpHotCache) Mem() int64 { return 0 }

func (NoOpHotCache) Clear() {}

// HotCacheMetrics always returns zero values.
func (NoOpHotCache) HotCacheMetrics() (hits, misses, inserts, evicted, expired int64) {
	return 0, 0, 0, 0, 0
}

func (NoOpHotCache) Close() error { return nil }
