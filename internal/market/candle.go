// Package market turns locally stored intraday candles into cache rows.
package market

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

// Timeframe of the bars kept in the local store.
const Timeframe = "5m"

type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// candleJSON carries prices as decimal strings so consumers never see float noise.
type candleJSON struct {
	Timestamp string `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    int64  `json:"volume"`
}

func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleJSON{
		Timestamp: c.Timestamp.UTC().Format(time.RFC3339),
		Open:      FormatPrice(c.Open),
		High:      FormatPrice(c.High),
		Low:       FormatPrice(c.Low),
		Close:     FormatPrice(c.Close),
		Volume:    c.Volume,
	})
}

func (c *Candle) UnmarshalJSON(data []byte) error {
	var raw candleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return errors.Wrap(err, "candle timestamp")
	}

	var out Candle
	out.Timestamp, out.Volume = ts.UTC(), raw.Volume
	for _, f := range []struct {
		dst *float64
		src string
	}{{&out.Open, raw.Open}, {&out.High, raw.High}, {&out.Low, raw.Low}, {&out.Close, raw.Close}} {
		if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
			return errors.Wrapf(err, "candle price %q", f.src)
		}
	}
	*c = out
	return nil
}

// FormatPrice renders p with two decimals, or more when p needs them.
func FormatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if two := strconv.FormatFloat(p, 'f', 2, 64); len(two) > len(s) {
		return two
	}
	return s
}

// Closes extracts the close series in candle order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
