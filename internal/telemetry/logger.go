package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/piekstra/tirds/config"
	"github.com/piekstra/tirds/internal/shared/bytes"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

// Logs periodically writes per-interval counter deltas of whichever sources are set.
type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.TelemetryCfg
	logger   *slog.Logger
	sampler  sampler
	interval time.Duration
	done     chan struct{}
}

// New starts the loop only when cfg is enabled. Any source may be nil.
func New(
	ctx context.Context,
	cfg *config.TelemetryCfg,
	logger *slog.Logger,
	hot HotCacheSource,
	svc ServiceSource,
	daemon DaemonSource,
) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	l := &Logs{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		logger:  logger,
		sampler: sampler{hot: hot, svc: svc, daemon: daemon},
		done:    make(chan struct{}),
	}
	if cfg.Enabled() {
		l.interval = cfg.Interval
		if l.interval <= 0 {
			l.interval = config.DefaultTelemetryEvery
		}
	}
	return l.run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

// Close stops the loop and waits for it to return.
func (l *Logs) Close() error {
	l.cancel()
	<-l.done
	return nil
}

func (l *Logs) run() *Logs {
	if l.interval <= 0 {
		close(l.done)
		return l
	}
	go func() {
		defer close(l.done)
		l.loop()
	}()
	return l
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	prev := l.sampler.snapshot()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			cur := l.sampler.snapshot()
			l.log(deltaSnapshot(prev, cur))
			prev = cur
		}
	}
}

func (l *Logs) log(d snapshot) {
	common := []any{"interval", l.interval.String()}

	if hot := l.sampler.hot; hot != nil {
		l.logger.Info("hot_cache",
			append(common,
				"hits", int64(d.hotHits),
				"misses", int64(d.hotMisses),
				"inserts", int64(d.hotInserts),
				"evicted", int64(d.hotEvicted),
				"expired", int64(d.hotExpired),
				"entries", hot.Len(),
				"size", bytes.FmtMem(uint64(max(hot.Mem(), 0))),
			)...,
		)
	}

	if l.sampler.svc != nil {
		l.logger.Info("cache_service",
			append(common,
				"hot_hits", int64(d.svcHotHits),
				"store_queries", int64(d.svcStoreQueries),
				"promotions", int64(d.svcPromotions),
				"misses", int64(d.svcMisses),
				"decode_errors", int64(d.svcDecodeErrors),
			)...,
		)
	}

	if l.sampler.daemon != nil {
		l.logger.Info("loader",
			append(common,
				"refresh_cycles", int64(d.refreshCycles),
				"refresh_failures", int64(d.refreshFailures),
				"stream_events", int64(d.streamEvents),
				"stream_dropped", int64(d.streamDropped),
				"cleanup_deleted", int64(d.cleanupDeleted),
				"rows_written", int64(d.rowsWritten),
				"write_failures", int64(d.writeFailures),
			)...,
		)
	}
}
