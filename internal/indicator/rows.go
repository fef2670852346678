package indicator

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/model"
)

// Source is the producer label on every indicator row.
const Source = "market-calculations"

type value struct {
	Latest float64   `json:"latest"`
	Series []float64 `json:"series"`
}

// Rows evaluates every spec over closes. Specs that fail are skipped and
// reported through the joined error; the rows that succeeded are still returned.
func Rows(symbol string, closes []float64, specs []Spec, ttl time.Duration, now time.Time) ([]model.Row, error) {
	if len(closes) == 0 {
		return nil, nil
	}

	var (
		rows []model.Row
		errs []error
	)
	for _, spec := range specs {
		series, err := Run(spec, closes)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "%s %s", spec.Raw, symbol))
			continue
		}
		row, err := model.NewJSONRow(model.IndicatorKey(spec.Raw, symbol), model.CategoryIndicator,
			value{Latest: series[len(series)-1], Series: series}, Source, symbol, ttl, now)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "encode %s %s", spec.Raw, symbol))
			continue
		}
		rows = append(rows, row)
	}
	return rows, errors.Join(errs...)
}
