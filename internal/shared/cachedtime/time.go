// Package cachedtime serves a coarse wall clock refreshed by one ticker
// so hot paths avoid a vDSO call per lookup. Until Run is called, and after
// its context ends, every function falls back to time.Now.
package cachedtime

import (
	"context"
	"sync/atomic"
	"time"
)

const resolution = 10 * time.Millisecond

var (
	nowUnix atomic.Int64
	running atomic.Bool
)

// Run starts the ticker once; concurrent or repeated calls are no-ops while it runs.
func Run(ctx context.Context) {
	if !running.CompareAndSwap(false, true) {
		return
	}
	nowUnix.Store(time.Now().UnixNano())

	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()
		defer running.Store(false)
		for {
			select {
			case <-ctx.Done():
				return
			case tt := <-ticker.C:
				nowUnix.Store(tt.UnixNano())
			}
		}
	}()
}

// RunIfEnabled calls Run when enabled is true.
func RunIfEnabled(ctx context.Context, enabled bool) {
	if enabled {
		Run(ctx)
	}
}

func Now() time.Time {
	if !running.Load() {
		return time.Now()
	}
	return time.Unix(0, nowUnix.Load())
}

func UnixNano() int64 {
	if !running.Load() {
		return time.Now().UnixNano()
	}
	return nowUnix.Load()
}

func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
