package daemon

import "sync/atomic"

type daemonCounters struct {
	refreshCycles   atomic.Int64
	refreshFailures atomic.Int64
	streamEvents    atomic.Int64
	streamDropped   atomic.Int64
	cleanupRuns     atomic.Int64
	cleanupDeleted  atomic.Int64
	rowsWritten     atomic.Int64
	writeFailures   atomic.Int64
}

func newDaemonCounters() *daemonCounters {
	return &daemonCounters{}
}

// Metrics is a point-in-time copy of the daemon counters.
type Metrics struct {
	RefreshCycles   int64
	RefreshFailures int64
	StreamEvents    int64
	StreamDropped   int64
	CleanupRuns     int64
	CleanupDeleted  int64
	RowsWritten     int64
	WriteFailures   int64
}

func (c *daemonCounters) snapshot() Metrics {
	return Metrics{
		RefreshCycles:   c.refreshCycles.Load(),
		RefreshFailures: c.refreshFailures.Load(),
		StreamEvents:    c.streamEvents.Load(),
		StreamDropped:   c.streamDropped.Load(),
		CleanupRuns:     c.cleanupRuns.Load(),
		CleanupDeleted:  c.cleanupDeleted.Load(),
		RowsWritten:     c.rowsWritten.Load(),
		WriteFailures:   c.writeFailures.Load(),
	}
}
