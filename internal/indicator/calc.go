package indicator

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrUnknown          = errors.New("unknown indicator")
	ErrInsufficientData = errors.New("not enough data points")
)

// Func maps a close series to an indicator series.
type Func func(closes []float64, period int) ([]float64, error)

type calculator struct {
	fn            Func
	defaultPeriod int
}

var registry = map[string]calculator{
	"sma": {fn: SMA, defaultPeriod: 20},
	"ema": {fn: EMA, defaultPeriod: 12},
	"rsi": {fn: RSI, defaultPeriod: 14},
}

// Names lists the built-in calculators.
func Names() []string {
	return []string{"ema", "rsi", "sma"}
}

// Known reports whether spec names a built-in calculator.
func Known(spec Spec) bool {
	_, ok := registry[spec.Name]
	return ok
}

// Run evaluates spec over closes.
func Run(spec Spec, closes []float64) ([]float64, error) {
	c, ok := registry[spec.Name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknown, "%q", spec.Raw)
	}
	period := spec.Period
	if period == 0 {
		period = c.defaultPeriod
	}
	return c.fn(closes, period)
}

// SMA is the simple moving average; the series starts at the first full window.
func SMA(closes []float64, period int) ([]float64, error) {
	if err := check(closes, period); err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(closes)-period+1)
	var sum float64
	for i, v := range closes {
		sum += v
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// EMA is seeded with the SMA of the first window.
func EMA(closes []float64, period int) ([]float64, error) {
	if err := check(closes, period); err != nil {
		return nil, err
	}
	k := 2 / float64(period+1)

	var seed float64
	for _, v := range closes[:period] {
		seed += v
	}
	prev := seed / float64(period)

	out := make([]float64, 0, len(closes)-period+1)
	out = append(out, prev)
	for _, v := range closes[period:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out, nil
}

// RSI uses Wilder smoothing and needs period+1 closes for its first value.
func RSI(closes []float64, period int) ([]float64, error) {
	if err := check(closes, period+1); err != nil {
		return nil, err
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsi(gain, loss))
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*float64(period-1) + up) / float64(period)
		loss = (loss*float64(period-1) + down) / float64(period)
		out = append(out, rsi(gain, loss))
	}
	return out, nil
}

func rsi(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

func check(closes []float64, need int) error {
	if need < 1 {
		return errors.Newf("invalid period %d", need)
	}
	if len(closes) < need {
		return errors.Wrapf(ErrInsufficientData, "have %d, need %d", len(closes), need)
	}
	return nil
}
