package model

import "strings"

// Key patterns shared by producers and consumers. The store never parses keys;
// these helpers only keep both sides agreeing on the naming convention.
const (
	prefixBars      = "bars"
	prefixQuote     = "quote"
	prefixIndicator = "indicator"
	prefixRef       = "ref"
	prefixSentiment = "sentiment"
	keySep          = ":"
)

// BarsKey returns "bars:{symbol}:{timeframe}".
func BarsKey(symbol, timeframe string) string {
	return join(prefixBars, symbol, timeframe)
}

// QuoteKey returns "quote:{symbol}".
func QuoteKey(symbol string) string {
	return join(prefixQuote, symbol)
}

// IndicatorKey returns "indicator:{name}:{symbol}".
func IndicatorKey(name, symbol string) string {
	return join(prefixIndicator, name, symbol)
}

// RefKey returns "ref:{symbol}".
func RefKey(symbol string) string {
	return join(prefixRef, symbol)
}

// EconKey returns "ref:econ:{indicator}".
func EconKey(indicator string) string {
	return join(prefixRef, "econ", indicator)
}

// SentimentKey returns "sentiment:{source}:{symbol}".
func SentimentKey(source, symbol string) string {
	return join(prefixSentiment, source, symbol)
}

// GeneralSentimentKey is used for stream events that mention no subject.
func GeneralSentimentKey(kind, id string) string {
	return join(prefixSentiment, kind, "_general_"+id)
}

// IndicatorPrefix returns the prefix that matches every indicator row of a symbol-agnostic name,
// e.g. "indicator:rsi_14:".
func IndicatorPrefix(name string) string {
	return join(prefixIndicator, name) + keySep
}

func join(parts ...string) string {
	return strings.Join(parts, keySep)
}
