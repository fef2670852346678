package telemetry

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/piekstra/tirds"

// CacheInstruments count how the read-through service resolves lookups.
type CacheInstruments struct {
	hotHits      metric.Int64Counter
	storeQueries metric.Int64Counter
	promotions   metric.Int64Counter
	misses       metric.Int64Counter
	decodeErrors metric.Int64Counter
}

// NewCacheInstruments registers the cache counters on mp; a nil mp records nothing.
func NewCacheInstruments(mp metric.MeterProvider) (*CacheInstruments, error) {
	m := meter(mp)
	var (
		in  CacheInstruments
		err error
	)
	if in.hotHits, err = counter(m, "tirds.cache.hot_hits", "Lookups served by the hot tier", "{lookup}"); err != nil {
		return nil, err
	}
	if in.storeQueries, err = counter(m, "tirds.cache.store_queries", "Queries sent to the persistent store", "{query}"); err != nil {
		return nil, err
	}
	if in.promotions, err = counter(m, "tirds.cache.promotions", "Store hits copied into the hot tier", "{entry}"); err != nil {
		return nil, err
	}
	if in.misses, err = counter(m, "tirds.cache.misses", "Lookups found in neither tier", "{lookup}"); err != nil {
		return nil, err
	}
	if in.decodeErrors, err = counter(m, "tirds.cache.decode_errors", "Payloads that failed typed decoding", "{error}"); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *CacheInstruments) HotHit(ctx context.Context)      { in.hotHits.Add(ctx, 1) }
func (in *CacheInstruments) StoreQuery(ctx context.Context)  { in.storeQueries.Add(ctx, 1) }
func (in *CacheInstruments) Promotion(ctx context.Context)   { in.promotions.Add(ctx, 1) }
func (in *CacheInstruments) Miss(ctx context.Context)        { in.misses.Add(ctx, 1) }
func (in *CacheInstruments) DecodeError(ctx context.Context) { in.decodeErrors.Add(ctx, 1) }

// DaemonInstruments count what the ingestion daemon writes and reclaims.
type DaemonInstruments struct {
	rowsWritten   metric.Int64Counter
	writeFailures metric.Int64Counter
	rowsExpired   metric.Int64Counter
	streamDropped metric.Int64Counter
}

func NewDaemonInstruments(mp metric.MeterProvider) (*DaemonInstruments, error) {
	m := meter(mp)
	var (
		in  DaemonInstruments
		err error
	)
	if in.rowsWritten, err = counter(m, "tirds.loader.rows_written", "Rows committed by the writer", "{row}"); err != nil {
		return nil, err
	}
	if in.writeFailures, err = counter(m, "tirds.loader.write_failures", "Failed writer calls", "{error}"); err != nil {
		return nil, err
	}
	if in.rowsExpired, err = counter(m, "tirds.loader.rows_expired", "Rows deleted by the cleanup loop", "{row}"); err != nil {
		return nil, err
	}
	if in.streamDropped, err = counter(m, "tirds.loader.stream_dropped", "Stream events lost to backpressure", "{event}"); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *DaemonInstruments) RowsWritten(ctx context.Context, n int)   { in.rowsWritten.Add(ctx, int64(n)) }
func (in *DaemonInstruments) WriteFailure(ctx context.Context)         { in.writeFailures.Add(ctx, 1) }
func (in *DaemonInstruments) RowsExpired(ctx context.Context, n int64) { in.rowsExpired.Add(ctx, n) }
func (in *DaemonInstruments) StreamDropped(ctx context.Context, n int64) {
	in.streamDropped.Add(ctx, n)
}

func meter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	return mp.Meter(meterName)
}

func counter(m metric.Meter, name, desc, unit string) (metric.Int64Counter, error) {
	c, err := m.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		return nil, errors.Wrapf(err, "create counter %s", name)
	}
	return c, nil
}
