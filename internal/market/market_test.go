package market

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/piekstra/tirds/model"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC) // Monday

func sampleCandles(d time.Time) []Candle {
	open := time.Date(d.Year(), d.Month(), d.Day(), 14, 30, 0, 0, time.UTC)
	return []Candle{
		{Timestamp: open, Open: 150, High: 151.5, Low: 149.5, Close: 151, Volume: 100_000},
		{Timestamp: open.Add(5 * time.Minute), Open: 151, High: 152, Low: 150.5, Close: 151.75, Volume: 85_000},
	}
}

// TestFormatPrice keeps at least two decimals.
func TestFormatPrice(t *testing.T) {
	require.Equal(t, "151.00", FormatPrice(151))
	require.Equal(t, "151.75", FormatPrice(151.75))
	require.Equal(t, "0.125", FormatPrice(0.125))
}

// TestCandle_JSONRoundTrip encodes prices as strings and decodes them back.
func TestCandle_JSONRoundTrip(t *testing.T) {
	in := sampleCandles(day)[0]
	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"timestamp":"2025-01-13T14:30:00Z","open":"150.00","high":"151.50","low":"149.50","close":"151.00","volume":100000}`, string(data))

	var out Candle
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)

	require.Error(t, json.Unmarshal([]byte(`{"timestamp":"2025-01-13T14:30:00Z","open":"x"}`), &out))
}

// TestCandlesToRows builds the bars and quote rows.
func TestCandlesToRows(t *testing.T) {
	now := time.Now()
	rows, err := CandlesToRows("AAPL", sampleCandles(day), model.CategoryMarketData, 10*time.Minute, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "bars:AAPL:5m", rows[0].Key)
	require.Equal(t, model.CategoryMarketData.String(), rows[0].Category)
	require.Equal(t, Source, rows[0].Source)
	require.Equal(t, "AAPL", rows[0].SymbolOrEmpty())
	require.Contains(t, rows[0].ValueJSON, `"151.00"`)

	require.Equal(t, "quote:AAPL", rows[1].Key)
	require.JSONEq(t, `{"price":"151.75","volume":85000,"timestamp":"2025-01-13T14:35:00Z"}`, rows[1].ValueJSON)

	ref, err := CandlesToRows("SPY", sampleCandles(day), model.CategoryReferenceSymbol, time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, model.CategoryReferenceSymbol.String(), ref[0].Category)

	none, err := CandlesToRows("AAPL", nil, model.CategoryMarketData, time.Minute, now)
	require.NoError(t, err)
	require.Empty(t, none)
}

// TestFileStore_ReadRange merges days in order and skips missing ones.
func TestFileStore_ReadRange(t *testing.T) {
	s := NewFileStore(t.TempDir())
	next := day.AddDate(0, 0, 1)

	require.NoError(t, s.WriteDay("aapl", next, sampleCandles(next)))
	require.NoError(t, s.WriteDay("AAPL", day, sampleCandles(day)))

	got, err := s.Candles(t.Context(), "AAPL", day.AddDate(0, 0, -3), next)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		require.True(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}

	empty, err := s.Candles(t.Context(), "MSFT", day, next)
	require.NoError(t, err)
	require.Empty(t, empty)
}

// TestFileStore_MissingDaysSkipsWeekends lists absent weekdays only.
func TestFileStore_MissingDaysSkipsWeekends(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.WriteDay("TEST", day, sampleCandles(day)))

	// Saturday Jan 11 through Tuesday Jan 14.
	missing := s.MissingDays("TEST", day.AddDate(0, 0, -2), day.AddDate(0, 0, 1))
	require.Equal(t, []time.Time{day.AddDate(0, 0, 1)}, missing)
}

// TestFileStore_CorruptDay fails on an unreadable day file.
func TestFileStore_CorruptDay(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.WriteDay("TEST", day, nil))
	require.NoError(t, writeRaw(s.dayPath("TEST", day), "{not json"))

	_, err := s.Candles(t.Context(), "TEST", day, day)
	require.Error(t, err)
}

// TestLookbackWindow spans whole days ending today.
func TestLookbackWindow(t *testing.T) {
	start, end := LookbackWindow(time.Date(2025, 1, 13, 18, 0, 0, 0, time.UTC), 5)
	require.Equal(t, day, end)
	require.Equal(t, day.AddDate(0, 0, -5), start)
}

func writeRaw(path, data string) error {
	return os.WriteFile(path, []byte(data), 0o644)
}
