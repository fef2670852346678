package model

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestKeys renders every key pattern.
func TestKeys(t *testing.T) {
	require.Equal(t, "bars:AAPL:5m", BarsKey("AAPL", "5m"))
	require.Equal(t, "quote:AAPL", QuoteKey("AAPL"))
	require.Equal(t, "indicator:rsi_14:AAPL", IndicatorKey("rsi_14", "AAPL"))
	require.Equal(t, "ref:SPY", RefKey("SPY"))
	require.Equal(t, "ref:econ:CPI", EconKey("CPI"))
	require.Equal(t, "sentiment:twitter:TSLA", SentimentKey("twitter", "TSLA"))
	require.Equal(t, "sentiment:news:_general_42", GeneralSentimentKey("news", "42"))
	require.Equal(t, "indicator:rsi_14:", IndicatorPrefix("rsi_14"))
}

// TestFormatTime_SortsChronologically keeps text order equal to time order.
func TestFormatTime_SortsChronologically(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("EST", -5*3600))
	times := []time.Time{
		base.Add(time.Second),
		base,
		base.Add(time.Nanosecond),
		base.Add(100 * time.Millisecond),
		base.Add(-time.Hour),
	}

	stamps := make([]string, len(times))
	for i, ts := range times {
		stamps[i] = FormatTime(ts)
		require.Len(t, stamps[i], len("2026-01-02T08:04:05.000000000Z"))
	}
	sort.Strings(stamps)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i, s := range stamps {
		parsed, err := ParseTime(s)
		require.NoError(t, err)
		require.True(t, parsed.Equal(times[i]))
	}
}

// TestParseTime_AcceptsRFC3339 reads the fixed layout and zoned RFC3339.
func TestParseTime_AcceptsRFC3339(t *testing.T) {
	got, err := ParseTime("2026-01-02T03:04:05+01:00")
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2026, 1, 2, 2, 4, 5, 0, time.UTC)))

	_, err = ParseTime("yesterday")
	require.Error(t, err)
}

// TestNewRow stamps created, updated and expiry times from now.
func TestNewRow(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := NewRow("quote:AAPL", CategoryMarketData, `{"price":"1"}`, "market-data", "AAPL", time.Minute, now)

	require.Equal(t, "market_data", row.Category)
	require.Equal(t, "AAPL", row.SymbolOrEmpty())
	require.Equal(t, row.CreatedAt, row.UpdatedAt)
	require.Equal(t, FormatTime(now.Add(time.Minute)), row.ExpiresAt)
	require.False(t, row.IsExpiredAt(now))
	require.True(t, row.IsExpiredAt(now.Add(time.Minute)))

	general := NewRow("ref:econ:CPI", CategoryReferenceSymbol, `{}`, "tds:fred", "", time.Minute, now)
	require.Nil(t, general.Symbol)
	require.Empty(t, general.SymbolOrEmpty())

	general.ExpiresAt = "garbage"
	require.True(t, general.IsExpiredAt(now))
}

// TestNewJSONRow marshals the payload into the row.
func TestNewJSONRow(t *testing.T) {
	row, err := NewJSONRow("indicator:rsi_14:AAPL", CategoryIndicator, map[string]any{"value": []float64{28}}, "test", "AAPL", time.Minute, time.Now())
	require.NoError(t, err)
	require.JSONEq(t, `{"value":[28]}`, row.ValueJSON)

	_, err = NewJSONRow("k", CategoryIndicator, make(chan int), "test", "", time.Minute, time.Now())
	require.Error(t, err)
}

// TestCategories lists every category by its stored name.
func TestCategories(t *testing.T) {
	require.Len(t, Categories(), 5)
	require.Contains(t, Categories(), CategorySentiment)
}
