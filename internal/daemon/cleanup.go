package daemon

import (
	"context"
	"time"
)

// cleanupLoop deletes expired rows once per cleanup interval.
func (d *Daemon) cleanupLoop(ctx context.Context, ww *writeWorker) error {
	ticker := time.NewTicker(d.cfg.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("cleanup loop shutting down")
			return nil
		case <-ticker.C:
			d.cleanup(ctx, ww)
		}
	}
}

func (d *Daemon) cleanup(ctx context.Context, ww *writeWorker) {
	var deleted int64
	err := ww.do(ctx, func(ctx context.Context, w Writer) (err error) {
		deleted, err = w.ExpireStale(ctx)
		return err
	})
	d.counters.cleanupRuns.Add(1)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("stale cleanup failed", "err", err)
		}
		return
	}
	if deleted > 0 {
		d.counters.cleanupDeleted.Add(deleted)
		d.in.RowsExpired(ctx, deleted)
		d.logger.Info("cleaned up stale cache entries", "deleted", deleted)
	}
}
