package config

import (
	"time"

	"github.com/cockroachdb/errors"
	rootcfg "github.com/piekstra/tirds/config"
	"github.com/piekstra/tirds/internal/indicator"
)

const DefaultPath = "config/tirds-loader.toml"

const (
	DefaultCleanupInterval = 300 * time.Second
	DefaultRefreshInterval = 300 * time.Second
	DefaultLookbackDays    = 5
	DefaultMarketTTL       = 600 * time.Second
	DefaultIndicatorTTL    = 600 * time.Second
	DefaultStreamTTL       = 1800 * time.Second
	DefaultStreamBuffer    = 256
	DefaultFetchRate       = 10
	DefaultDataPath        = "data/market"
	DefaultEnv             = "prod"
)

var DefaultReferenceSymbols = []string{"SPY", "VIX", "QQQ"}

// Default is the configuration a missing key falls back to.
func Default() *Loader {
	cfg := &Loader{
		Cache: CacheCfg{SQLitePath: rootcfg.DefaultSQLitePath},
		MarketData: MarketDataCfg{
			DataPath:         DefaultDataPath,
			ReferenceSymbols: append([]string(nil), DefaultReferenceSymbols...),
			FetchRate:        DefaultFetchRate,
		},
		Calculations: CalculationsCfg{Indicators: []string{"sma_20", "ema_12", "rsi_14"}},
		Stream:       StreamCfg{Enabled: true},
		Log:          LogCfg{Level: "info", Env: DefaultEnv},
	}
	cfg.AdjustConfig()
	return cfg
}

// LoadConfig decodes path over Default, so keys absent from the file keep their defaults.
func LoadConfig(path string) (*Loader, error) {
	cfg := Default()
	if err := rootcfg.Decode(path, cfg); err != nil {
		return nil, err
	}
	cfg.AdjustConfig()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// AdjustConfig resolves *_seconds keys and fills zero values.
func (cfg *Loader) AdjustConfig() {
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = rootcfg.DefaultSQLitePath
	}
	seconds(&cfg.Cache.CleanupInterval, cfg.Cache.CleanupIntervalSeconds, DefaultCleanupInterval)

	seconds(&cfg.MarketData.RefreshInterval, cfg.MarketData.RefreshIntervalSeconds, DefaultRefreshInterval)
	seconds(&cfg.MarketData.TTL, cfg.MarketData.TTLSeconds, DefaultMarketTTL)
	if cfg.MarketData.LookbackDays == 0 {
		cfg.MarketData.LookbackDays = DefaultLookbackDays
	}

	seconds(&cfg.Calculations.TTL, cfg.Calculations.TTLSeconds, DefaultIndicatorTTL)

	seconds(&cfg.Stream.TTL, cfg.Stream.TTLSeconds, DefaultStreamTTL)
	if cfg.Stream.Buffer <= 0 {
		cfg.Stream.Buffer = DefaultStreamBuffer
	}

	if cfg.Log.Env == "" {
		cfg.Log.Env = DefaultEnv
	}

	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = rootcfg.DefaultTelemetryEvery
	}
}

func seconds(d *time.Duration, secs int64, def time.Duration) {
	if *d > 0 {
		return
	}
	if secs > 0 {
		*d = time.Duration(secs) * time.Second
		return
	}
	*d = def
}

// Validate reports every problem at once.
func (cfg *Loader) Validate() error {
	var errs []error
	if cfg.MarketData.DataPath == "" {
		errs = append(errs, errors.New("market_data.data_path is required"))
	}
	if cfg.MarketData.LookbackDays < 0 {
		errs = append(errs, errors.Newf("market_data.lookback_days must be positive, got %d", cfg.MarketData.LookbackDays))
	}
	for _, raw := range cfg.Calculations.Indicators {
		if !indicator.Known(indicator.ParseSpec(raw)) {
			errs = append(errs, errors.WithHintf(errors.Newf("calculations.indicators: unknown %q", raw),
				"built-in indicators: %v", indicator.Names()))
		}
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, errors.Wrap(err, "log.level"))
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "telemetry"))
	}
	return errors.Join(errs...)
}
