// Package cache is the tiered read-through layer: hot tier first, then the
// persistent store, promoting store hits into the hot tier on the way out.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/internal/hotcache"
	"github.com/piekstra/tirds/internal/telemetry"
	"github.com/piekstra/tirds/model"
	"golang.org/x/sync/singleflight"
)

// ErrDecode wraps payloads that cannot be decoded into the requested type.
var ErrDecode = errors.New("cache payload decode failed")

// RowReader is the read side of the persistent store.
type RowReader interface {
	Get(ctx context.Context, key string) (model.Row, bool, error)
	GetBySymbol(ctx context.Context, symbol string) ([]model.Row, error)
	GetByPrefix(ctx context.Context, prefix string) ([]model.Row, error)
}

// Snapshot maps row keys to their parsed payloads.
type Snapshot map[string]any

type Cacher interface {
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	GetRow(ctx context.Context, key string) (model.Row, bool, error)
	GetBySymbol(ctx context.Context, symbol string) ([]model.Row, error)
	GetByPrefix(ctx context.Context, prefix string) ([]model.Row, error)
	BuildDomainSnapshot(ctx context.Context, symbol string) (Snapshot, error)
	Invalidate(key string) bool
	HotCacheSize() int64
	CacheMetrics() (hotHits, storeQueries, promotions, misses, decodeErrors int64)
}

type Service struct {
	reader      RowReader
	hot         hotcache.HotCache
	logger      *slog.Logger
	hook        QueryHook
	group       singleflight.Group
	counters    *counters
	instruments *telemetry.CacheInstruments
}

func New(reader RowReader, hot hotcache.HotCache, logger *slog.Logger, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	instruments, err := telemetry.NewCacheInstruments(o.meterProvider)
	if err != nil {
		return nil, err
	}
	if hot == nil {
		hot = hotcache.NoOpHotCache{}
	}

	return &Service{
		reader:      reader,
		hot:         hot,
		logger:      logger,
		hook:        o.hook,
		counters:    newCounters(),
		instruments: instruments,
	}, nil
}

// GetRaw returns the payload stored under key. Misses are (nil, false, nil).
// Concurrent misses on one key share a single store query.
func (s *Service) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok := s.hot.Get(key); ok {
		s.counters.hotHits.Add(1)
		s.instruments.HotHit(ctx)
		return value, true, nil
	}

	// the flight outlives any single caller, so it must not inherit its cancellation
	flight := s.group.DoChan(key, func() (any, error) {
		qctx := context.WithoutCancel(ctx)
		row, found, err := s.get(qctx, key)
		if err != nil || !found {
			return nil, err
		}
		value := []byte(row.ValueJSON)
		s.hot.Insert(key, value)
		s.counters.promotions.Add(1)
		s.instruments.Promotion(qctx)
		return value, nil
	})

	var res any
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-flight:
		if r.Err != nil {
			return nil, false, r.Err
		}
		res = r.Val
	}
	if res == nil {
		s.counters.misses.Add(1)
		s.instruments.Miss(ctx)
		return nil, false, nil
	}
	return bytes.Clone(res.([]byte)), true, nil
}

// GetRow returns the full row from the store; the hot tier holds payloads only.
func (s *Service) GetRow(ctx context.Context, key string) (model.Row, bool, error) {
	s.observe(ctx, "get_row", key)
	return s.reader.Get(ctx, key)
}

// GetBySymbol always reads the store.
func (s *Service) GetBySymbol(ctx context.Context, symbol string) ([]model.Row, error) {
	s.observe(ctx, "get_by_symbol", symbol)
	return s.reader.GetBySymbol(ctx, symbol)
}

// GetByPrefix always reads the store.
func (s *Service) GetByPrefix(ctx context.Context, prefix string) ([]model.Row, error) {
	s.observe(ctx, "get_by_prefix", prefix)
	return s.reader.GetByPrefix(ctx, prefix)
}

// BuildDomainSnapshot merges every unexpired row of symbol into one map.
// Rows whose payload is not valid JSON are logged and left out.
func (s *Service) BuildDomainSnapshot(ctx context.Context, symbol string) (Snapshot, error) {
	rows, err := s.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "build snapshot for %s", symbol)
	}

	snap := make(Snapshot, len(rows))
	for _, row := range rows {
		var value any
		if err := json.Unmarshal([]byte(row.ValueJSON), &value); err != nil {
			s.recordDecodeError(ctx)
			s.logger.Warn("skipping unparsable cache row", "key", row.Key, "symbol", symbol, "error", err)
			continue
		}
		snap[row.Key] = value
	}
	return snap, nil
}

func (s *Service) Invalidate(key string) bool {
	return s.hot.Invalidate(key)
}

func (s *Service) HotCacheSize() int64 {
	return s.hot.Len()
}

func (s *Service) CacheMetrics() (hotHits, storeQueries, promotions, misses, decodeErrors int64) {
	return s.counters.snapshot()
}

// GetAs decodes the payload under key into T at the consumer boundary.
func GetAs[T any](ctx context.Context, s *Service, key string) (T, bool, error) {
	var out T
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err = json.Unmarshal(raw, &out); err != nil {
		s.recordDecodeError(ctx)
		return out, false, errors.Mark(errors.Wrapf(err, "decode %s", key), ErrDecode)
	}
	return out, true, nil
}

func (s *Service) get(ctx context.Context, key string) (model.Row, bool, error) {
	s.observe(ctx, "get", key)
	return s.reader.Get(ctx, key)
}

func (s *Service) observe(ctx context.Context, op, arg string) {
	s.counters.storeQueries.Add(1)
	s.instruments.StoreQuery(ctx)
	if s.hook != nil {
		s.hook(op, arg)
	}
}

func (s *Service) recordDecodeError(ctx context.Context) {
	s.counters.decodeErrors.Add(1)
	s.instruments.DecodeError(ctx)
}
