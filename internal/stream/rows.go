package stream

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/piekstra/tirds/model"
)

type rowTarget struct {
	keyPrefix     string
	category      model.Category
	withSentiment bool
}

var targets = map[Kind]rowTarget{
	KindNews:           {keyPrefix: "news", category: model.CategorySentiment, withSentiment: true},
	KindSocialPost:     {keyPrefix: "social", category: model.CategorySentiment, withSentiment: true},
	KindFiling:         {keyPrefix: "filing", category: model.CategorySubscription},
	KindCorporateEvent: {keyPrefix: "event", category: model.CategorySubscription},
	KindRaw:            {keyPrefix: "raw", category: model.CategorySentiment},
}

// Rows converts an event into cache rows: one per ticker, or one generic row when
// it names none. Economic data is keyed by its indicator and never per ticker.
func Rows(e Event, ttl time.Duration, now time.Time) ([]model.Row, error) {
	e.normalize()

	value := make(map[string]any, len(e.Payload)+2)
	maps.Copy(value, e.Payload)
	value["source_timestamp"] = model.FormatTime(e.Timestamp)
	source := "tds:" + e.Source

	if e.Kind == KindEconomicData {
		indicator, _ := e.Payload["indicator"].(string)
		if indicator == "" {
			return nil, errors.Newf("economic event %s has no indicator", e.ID)
		}
		row, err := model.NewJSONRow(model.EconKey(indicator), model.CategoryReferenceSymbol, value, source, "", ttl, now)
		if err != nil {
			return nil, errors.Wrapf(err, "encode event %s", e.ID)
		}
		return []model.Row{row}, nil
	}

	target, ok := targets[e.Kind]
	if !ok {
		target = targets[KindRaw]
	}
	if target.withSentiment {
		if e.Sentiment != nil {
			value["sentiment"] = *e.Sentiment
		} else {
			value["sentiment"] = nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "encode event %s", e.ID)
	}

	if len(e.Tickers) == 0 {
		key := model.GeneralSentimentKey(target.keyPrefix, e.ID)
		return []model.Row{model.NewRow(key, target.category, string(data), source, "", ttl, now)}, nil
	}

	rows := make([]model.Row, 0, len(e.Tickers))
	for _, ticker := range e.Tickers {
		if ticker == "" {
			continue
		}
		key := model.SentimentKey(target.keyPrefix, ticker)
		rows = append(rows, model.NewRow(key, target.category, string(data), source, ticker, ttl, now))
	}
	if len(rows) == 0 {
		return nil, errors.Newf("event %s lists only empty tickers", e.ID)
	}
	return rows, nil
}
