package telemetry

// HotCacheSource is implemented by the hot tier.
type HotCacheSource interface {
	HotCacheMetrics() (hits, misses, inserts, evicted, expired int64)
	Len() int64
	Mem() int64
}

// ServiceSource is implemented by the read-through cache service.
type ServiceSource interface {
	CacheMetrics() (hotHits, storeQueries, promotions, misses, decodeErrors int64)
}

// DaemonSource is implemented by the ingestion daemon.
type DaemonSource interface {
	DaemonMetrics() (refreshCycles, refreshFailures, streamEvents, streamDropped, cleanupDeleted, rowsWritten, writeFailures int64)
}

type sampler struct {
	hot    HotCacheSource
	svc    ServiceSource
	daemon DaemonSource
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hotHits, hotMisses, hotInserts, hotEvicted, hotExpired uint64

	svcHotHits, svcStoreQueries, svcPromotions, svcMisses, svcDecodeErrors uint64

	refreshCycles, refreshFailures uint64
	streamEvents, streamDropped    uint64
	cleanupDeleted                 uint64
	rowsWritten, writeFailures     uint64
}

func (s sampler) snapshot() snapshot {
	var out snapshot
	if s.hot != nil {
		h, m, i, ev, ex := s.hot.HotCacheMetrics()
		out.hotHits, out.hotMisses, out.hotInserts, out.hotEvicted, out.hotExpired = u(h), u(m), u(i), u(ev), u(ex)
	}
	if s.svc != nil {
		h, q, p, m, d := s.svc.CacheMetrics()
		out.svcHotHits, out.svcStoreQueries, out.svcPromotions, out.svcMisses, out.svcDecodeErrors = u(h), u(q), u(p), u(m), u(d)
	}
	if s.daemon != nil {
		rc, rf, se, sd, cd, rw, wf := s.daemon.DaemonMetrics()
		out.refreshCycles, out.refreshFailures = u(rc), u(rf)
		out.streamEvents, out.streamDropped = u(se), u(sd)
		out.cleanupDeleted = u(cd)
		out.rowsWritten, out.writeFailures = u(rw), u(wf)
	}
	return out
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hotHits:    delta(prev.hotHits, cur.hotHits),
		hotMisses:  delta(prev.hotMisses, cur.hotMisses),
		hotInserts: delta(prev.hotInserts, cur.hotInserts),
		hotEvicted: delta(prev.hotEvicted, cur.hotEvicted),
		hotExpired: delta(prev.hotExpired, cur.hotExpired),

		svcHotHits:      delta(prev.svcHotHits, cur.svcHotHits),
		svcStoreQueries: delta(prev.svcStoreQueries, cur.svcStoreQueries),
		svcPromotions:   delta(prev.svcPromotions, cur.svcPromotions),
		svcMisses:       delta(prev.svcMisses, cur.svcMisses),
		svcDecodeErrors: delta(prev.svcDecodeErrors, cur.svcDecodeErrors),

		refreshCycles:   delta(prev.refreshCycles, cur.refreshCycles),
		refreshFailures: delta(prev.refreshFailures, cur.refreshFailures),
		streamEvents:    delta(prev.streamEvents, cur.streamEvents),
		streamDropped:   delta(prev.streamDropped, cur.streamDropped),
		cleanupDeleted:  delta(prev.cleanupDeleted, cur.cleanupDeleted),
		rowsWritten:     delta(prev.rowsWritten, cur.rowsWritten),
		writeFailures:   delta(prev.writeFailures, cur.writeFailures),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}

func u(v int64) uint64 { return uint64(max(v, 0)) }
