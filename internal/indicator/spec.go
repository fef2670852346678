// Package indicator computes technical indicators over candle closes.
package indicator

import (
	"strconv"
	"strings"
)

// Spec is a parsed indicator name such as "rsi_14".
type Spec struct {
	Raw    string // written into the cache key unchanged
	Name   string
	Period int // 0 selects the calculator's default
}

// ParseSpec splits "name_period"; a name without a numeric suffix keeps the default period.
func ParseSpec(raw string) Spec {
	s := Spec{Raw: raw, Name: raw}
	i := strings.LastIndexByte(raw, '_')
	if i <= 0 || i == len(raw)-1 {
		return s
	}
	if period, err := strconv.Atoi(raw[i+1:]); err == nil && period > 0 {
		s.Name, s.Period = raw[:i], period
	}
	return s
}

func ParseSpecs(raw []string) []Spec {
	out := make([]Spec, 0, len(raw))
	for _, r := range raw {
		out = append(out, ParseSpec(r))
	}
	return out
}
