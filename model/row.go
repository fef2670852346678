package model

import (
	"encoding/json"
	"time"
)

// Row is the sole persisted entity of the shared cache.
// ValueJSON is opaque to the store and returned byte for byte.
type Row struct {
	Key       string  `json:"key"`
	Category  string  `json:"category"`
	ValueJSON string  `json:"value_json"`
	Source    string  `json:"source"`
	Symbol    *string `json:"symbol,omitempty"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt string  `json:"expires_at"`
	UpdatedAt string  `json:"updated_at"`
}

// NewRow stamps created/updated with now and expires with now+ttl.
// An empty symbol leaves Symbol nil.
func NewRow(key string, category Category, valueJSON string, source, symbol string, ttl time.Duration, now time.Time) Row {
	stamp := FormatTime(now)
	row := Row{
		Key:       key,
		Category:  category.String(),
		ValueJSON: valueJSON,
		Source:    source,
		CreatedAt: stamp,
		ExpiresAt: FormatTime(now.Add(ttl)),
		UpdatedAt: stamp,
	}
	if symbol != "" {
		row.Symbol = &symbol
	}
	return row
}

// NewJSONRow marshals value and builds a row from it.
func NewJSONRow(key string, category Category, value any, source, symbol string, ttl time.Duration, now time.Time) (Row, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Row{}, err
	}
	return NewRow(key, category, string(data), source, symbol, ttl, now), nil
}

// SymbolOrEmpty dereferences Symbol.
func (r Row) SymbolOrEmpty() string {
	if r.Symbol == nil {
		return ""
	}
	return *r.Symbol
}

// IsExpiredAt reports whether the row is no longer visible at now.
// Rows with an unparsable expiry are treated as expired.
func (r Row) IsExpiredAt(now time.Time) bool {
	exp, err := ParseTime(r.ExpiresAt)
	if err != nil {
		return true
	}
	return !exp.After(now)
}
