// Package tirds is the consumer side of the shared market-data cache: a
// read-through view over the SQLite file maintained by tirds-loader, with a
// process-local hot tier in front of it.
package tirds

import (
	"context"
	"io"
	"log/slog"

	"github.com/piekstra/tirds/config"
	"github.com/piekstra/tirds/internal/cache"
	"github.com/piekstra/tirds/internal/hotcache"
	"github.com/piekstra/tirds/internal/store"
	"github.com/piekstra/tirds/internal/telemetry"
	"github.com/piekstra/tirds/model"
	"go.opentelemetry.io/otel/metric"
)

type (
	Row       = model.Row
	Snapshot  = cache.Snapshot
	QueryHook = cache.QueryHook
	Option    = cache.Option
)

// ErrDecode is returned by Get when a payload does not decode into the requested type.
var ErrDecode = cache.ErrDecode

func WithQueryHook(hook QueryHook) Option { return cache.WithQueryHook(hook) }

func WithMeterProvider(mp metric.MeterProvider) Option { return cache.WithMeterProvider(mp) }

type TieredCache interface {
	cache.Cacher
	telemetry.Logger
	io.Closer
}

type Cache struct {
	*cache.Service
	telemetry.Logger
	hot    hotcache.HotCache
	reader *store.Reader
	cls    context.CancelFunc
}

// Open connects to the store named by cfg and builds the tiers. Each call gets its
// own hot tier; nothing is shared between Cache values.
func Open(ctx context.Context, cfg *config.Cache, logger *slog.Logger, opts ...Option) (*Cache, error) {
	ctx, cancel := context.WithCancel(ctx)

	var storeOpts []store.Option
	if cfg.Store.BusyTimeout > 0 {
		storeOpts = append(storeOpts, store.WithBusyTimeout(cfg.Store.BusyTimeout))
	}
	if cfg.Store.MaxOpenConns > 0 {
		storeOpts = append(storeOpts, store.WithMaxOpenConns(cfg.Store.MaxOpenConns))
	}

	reader, err := store.OpenReader(ctx, cfg.Store.Path, logger, storeOpts...)
	if err != nil {
		cancel()
		return nil, err
	}

	hot := hotcache.New(ctx, cfg.HotCache, logger)
	svc, err := cache.New(reader, hot, logger, opts...)
	if err != nil {
		cancel()
		_ = reader.Close()
		return nil, err
	}

	logs := telemetry.New(ctx, cfg.Telemetry, logger, hot, svc, nil)
	return &Cache{Service: svc, Logger: logs, hot: hot, reader: reader, cls: cancel}, nil
}

// Get decodes the payload under key into T.
// A missing or expired key yields (zero, false, nil).
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	return cache.GetAs[T](ctx, c.Service, key)
}

// Close stops background work and releases the store handle. It is idempotent.
func (c *Cache) Close() error {
	c.cls()
	_ = c.Logger.Close()
	_ = c.hot.Close()
	return c.reader.Close()
}
