package market

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const dayLayout = "2006-01-02"

// CandleSource yields the candles of symbol between two calendar days, inclusive.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error)
}

// FileStore keeps one JSON file per symbol and trading day under
// {root}/data/{SYMBOL}/{YYYY-MM-DD}.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) dayPath(symbol string, day time.Time) string {
	return filepath.Join(s.root, "data", strings.ToUpper(symbol), day.Format(dayLayout)+".json")
}

// Candles reads every stored day in range; days without a file are skipped.
func (s *FileStore) Candles(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error) {
	var out []Candle
	for day := truncateDay(start); !day.After(truncateDay(end)); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candles, err := s.readDay(symbol, day)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out = append(out, candles...)
	}
	slices.SortStableFunc(out, func(a, b Candle) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

func (s *FileStore) readDay(symbol string, day time.Time) ([]Candle, error) {
	path := s.dayPath(symbol, day)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var candles []Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return candles, nil
}

// WriteDay replaces the stored candles of one day.
func (s *FileStore) WriteDay(symbol string, day time.Time, candles []Candle) error {
	path := s.dayPath(symbol, truncateDay(day))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	data, err := json.Marshal(candles)
	if err != nil {
		return errors.Wrap(err, "encode candles")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, path), "rename %s", tmp)
}

// MissingDays lists the weekdays in range that have no stored file.
func (s *FileStore) MissingDays(symbol string, start, end time.Time) []time.Time {
	var missing []time.Time
	for day := truncateDay(start); !day.After(truncateDay(end)); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if _, err := os.Stat(s.dayPath(symbol, day)); err != nil {
			missing = append(missing, day)
		}
	}
	return missing
}

// LookbackWindow returns the calendar range covering the last days days up to now.
func LookbackWindow(now time.Time, days int) (start, end time.Time) {
	end = truncateDay(now)
	return end.AddDate(0, 0, -days), end
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
