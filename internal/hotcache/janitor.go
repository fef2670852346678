package hotcache

import (
	"context"
	"log/slog"

	"github.com/piekstra/tirds/internal/shared/rate"
)

// janitor visits one shard per jitter tick, round robin, and drops expired entries.
// Reads never depend on it: an expired entry is also dropped when it is looked up.
type janitor struct {
	ctx    context.Context
	cache  *Cache
	jitter *rate.Jitter
	logger *slog.Logger
	next   int
}

func newJanitor(ctx context.Context, c *Cache, perSecond int, logger *slog.Logger) *janitor {
	return &janitor{ctx: ctx, cache: c, jitter: rate.NewJitter(ctx, perSecond), logger: logger}
}

func (j *janitor) run() {
	j.logger.Info("hot cache janitor is running", "shards", len(j.cache.shards), "rate", j.jitter.Limit())

	go func() {
		defer j.logger.Info("hot cache janitor is stopped")
		for {
			select {
			case <-j.ctx.Done():
				return
			case _, ok := <-j.jitter.Chan():
				if !ok {
					return
				}
				j.cache.sweep(j.next)
				j.next = (j.next + 1) % len(j.cache.shards)
			}
		}
	}()
}
