package market

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/model"
)

// Source is the producer label on every market row.
const Source = "market-data"

type quote struct {
	Price     string `json:"price"`
	Volume    int64  `json:"volume"`
	Timestamp string `json:"timestamp"`
}

// CandlesToRows builds the bars row holding every candle and the quote row taken
// from the most recent one. No candles, no rows.
func CandlesToRows(symbol string, candles []Candle, category model.Category, ttl time.Duration, now time.Time) ([]model.Row, error) {
	if len(candles) == 0 {
		return nil, nil
	}

	bars, err := model.NewJSONRow(model.BarsKey(symbol, Timeframe), category, candles, Source, symbol, ttl, now)
	if err != nil {
		return nil, errors.Wrapf(err, "encode bars for %s", symbol)
	}

	latest := candles[len(candles)-1]
	q, err := model.NewJSONRow(model.QuoteKey(symbol), category, quote{
		Price:     FormatPrice(latest.Close),
		Volume:    latest.Volume,
		Timestamp: latest.Timestamp.UTC().Format(time.RFC3339),
	}, Source, symbol, ttl, now)
	if err != nil {
		return nil, errors.Wrapf(err, "encode quote for %s", symbol)
	}

	return []model.Row{bars, q}, nil
}
