package tirds

import (
	"testing"
	"time"

	"github.com/piekstra/tirds/config"
	"github.com/piekstra/tirds/internal/help"
	"github.com/piekstra/tirds/internal/store"
	"github.com/piekstra/tirds/model"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T, path string) *Cache {
	t.Helper()
	cfg := &config.Cache{
		Store:     config.StoreCfg{Path: path},
		HotCache:  &config.HotCacheCfg{Capacity: 32, TTL: time.Minute},
		Telemetry: &config.TelemetryCfg{Interval: time.Hour},
	}
	cfg.AdjustConfig()

	c, err := Open(t.Context(), cfg, help.Silent())
	require.NoError(t, err)
	return c
}

// TestCache_EndToEnd reads rows written by a separate writer handle.
func TestCache_EndToEnd(t *testing.T) {
	ctx := t.Context()
	path := help.DBPath(t, "tirds")

	w, err := store.OpenWriter(ctx, path, help.Silent())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	c := openCache(t, path)
	defer func() { _ = c.Close() }()

	row, err := model.NewJSONRow(model.IndicatorKey("rsi_14", "AAPL"), model.CategoryIndicator,
		map[string]any{"latest": 28.0, "series": []float64{30, 28}}, "market-calculations", "AAPL", time.Minute, time.Now())
	require.NoError(t, err)
	require.NoError(t, w.Upsert(ctx, row))

	type indicator struct {
		Latest float64   `json:"latest"`
		Series []float64 `json:"series"`
	}
	got, ok, err := Get[indicator](ctx, c, "indicator:rsi_14:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 28.0, got.Latest)
	require.Equal(t, []float64{30, 28}, got.Series)
	require.Equal(t, int64(1), c.HotCacheSize())

	snap, err := c.BuildDomainSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	require.Contains(t, snap, "indicator:rsi_14:AAPL")
	require.Equal(t, time.Hour, c.Interval())
}

// TestCache_IndependentHotTiers never shares hot entries between instances.
func TestCache_IndependentHotTiers(t *testing.T) {
	ctx := t.Context()
	path := help.DBPath(t, "independent")

	w, err := store.OpenWriter(ctx, path, help.Silent())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	require.NoError(t, w.Upsert(ctx, help.Row("ref:SPY", "SPY", 1, time.Minute)))

	a := openCache(t, path)
	defer func() { _ = a.Close() }()
	b := openCache(t, path)
	defer func() { _ = b.Close() }()

	_, ok, err := a.GetRaw(ctx, "ref:SPY")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, int64(1), a.HotCacheSize())
	require.Zero(t, b.HotCacheSize())
}

// TestCache_Close is idempotent and closes the store handle.
func TestCache_Close(t *testing.T) {
	c := openCache(t, help.DBPath(t, "close"))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err := c.GetRaw(t.Context(), "k")
	require.ErrorIs(t, err, store.ErrClosed)
}
