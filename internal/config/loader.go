// Package config describes the ingestion daemon configuration.
package config

import (
	"log/slog"
	"time"

	rootcfg "github.com/piekstra/tirds/config"
)

// Loader is the tirds-loader file. Durations accept Go syntax ("5m"); the
// matching *_seconds integer keys are honored when the duration is absent.
type Loader struct {
	Cache        CacheCfg              `yaml:"cache" toml:"cache"`
	MarketData   MarketDataCfg         `yaml:"market_data" toml:"market_data"`
	Calculations CalculationsCfg       `yaml:"calculations" toml:"calculations"`
	Stream       StreamCfg             `yaml:"stream" toml:"stream"`
	Log          LogCfg                `yaml:"log" toml:"log"`
	Telemetry    *rootcfg.TelemetryCfg `yaml:"telemetry" toml:"telemetry"`
}

type CacheCfg struct {
	// SQLitePath is the shared database file every reader process opens too.
	SQLitePath  string        `yaml:"sqlite_path" toml:"sqlite_path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" toml:"busy_timeout"`

	// CleanupInterval paces expire_stale.
	CleanupInterval        time.Duration `yaml:"cleanup_interval" toml:"cleanup_interval"`
	CleanupIntervalSeconds int64         `yaml:"cleanup_interval_seconds" toml:"cleanup_interval_seconds"`
}

type MarketDataCfg struct {
	// DataPath is the candle store root; candles live under {DataPath}/data.
	DataPath         string   `yaml:"data_path" toml:"data_path"`
	Symbols          []string `yaml:"symbols" toml:"symbols"`
	ReferenceSymbols []string `yaml:"reference_symbols" toml:"reference_symbols"`

	RefreshInterval        time.Duration `yaml:"refresh_interval" toml:"refresh_interval"`
	RefreshIntervalSeconds int64         `yaml:"refresh_interval_seconds" toml:"refresh_interval_seconds"`

	// LookbackDays of candles are loaded per symbol on every refresh.
	LookbackDays int `yaml:"lookback_days" toml:"lookback_days"`

	TTL        time.Duration `yaml:"ttl" toml:"ttl"`
	TTLSeconds int64         `yaml:"ttl_seconds" toml:"ttl_seconds"`

	// FetchRate caps candle reads per second, <= 0 disables pacing.
	FetchRate int `yaml:"fetch_rate" toml:"fetch_rate"`
}

type CalculationsCfg struct {
	// Indicators are "name" or "name_period", e.g. "sma_20".
	Indicators []string      `yaml:"indicators" toml:"indicators"`
	TTL        time.Duration `yaml:"ttl" toml:"ttl"`
	TTLSeconds int64         `yaml:"ttl_seconds" toml:"ttl_seconds"`
}

type StreamCfg struct {
	Enabled    bool          `yaml:"enabled" toml:"enabled"`
	TTL        time.Duration `yaml:"ttl" toml:"ttl"`
	TTLSeconds int64         `yaml:"ttl_seconds" toml:"ttl_seconds"`

	// Buffer is the per-subscriber backlog before events are dropped.
	Buffer int `yaml:"buffer" toml:"buffer"`

	// URL of a websocket event feed; empty keeps the stream in-process only.
	URL string `yaml:"url" toml:"url"`
}

type LogCfg struct {
	Level string `yaml:"level" toml:"level"`
	// Env tags every log line, e.g. "prod" or "staging".
	Env string `yaml:"env" toml:"env"`
}

// SlogLevel parses Level, defaulting to info.
func (cfg LogCfg) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if cfg.Level == "" {
		return slog.LevelInfo, nil
	}
	err := lvl.UnmarshalText([]byte(cfg.Level))
	return lvl, err
}

// AllSymbols returns tracked symbols followed by reference symbols, without duplicates.
func (cfg *MarketDataCfg) AllSymbols() []string {
	seen := make(map[string]struct{}, len(cfg.Symbols)+len(cfg.ReferenceSymbols))
	out := make([]string, 0, len(cfg.Symbols)+len(cfg.ReferenceSymbols))
	for _, s := range append(append([]string(nil), cfg.Symbols...), cfg.ReferenceSymbols...) {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (cfg *MarketDataCfg) IsReference(symbol string) bool {
	for _, s := range cfg.ReferenceSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}
