package config

import (
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultHotCacheCapacity = 10_000
	DefaultHotCacheTTL      = 60 * time.Second
	DefaultHotCacheShards   = 16
	DefaultJanitorRate      = 64
	DefaultTelemetryEvery   = 5 * time.Second
	DefaultSQLitePath       = "data/tirds_cache.db"
)

// Cache configures a consumer-side cache: the shared store it reads and the
// process-local hot tier in front of it. Optional sections are nil when disabled.
type Cache struct {
	Store StoreCfg `yaml:"store" toml:"store"`

	// HotCache configures the in-process tier. If nil, every read goes to the store.
	HotCache *HotCacheCfg `yaml:"hot_cache" toml:"hot_cache"`

	// Telemetry enables periodic stat logs. If nil, nothing is logged periodically.
	Telemetry *TelemetryCfg `yaml:"telemetry" toml:"telemetry"`
}

type StoreCfg struct {
	// Path of the SQLite file shared by the loader and every reader.
	Path string `yaml:"path" toml:"path"`

	// BusyTimeout is how long a connection waits on a locked file. Example: "5s".
	BusyTimeout time.Duration `yaml:"busy_timeout" toml:"busy_timeout"`

	// MaxOpenConns caps the reader pool; zero means GOMAXPROCS.
	MaxOpenConns int `yaml:"max_open_conns" toml:"max_open_conns"`
}

type HotCacheCfg struct {
	// Capacity is the maximum number of entries held at once.
	Capacity int `yaml:"capacity" toml:"capacity"`

	// TTL is counted from insertion and is independent of a row's expires_at.
	TTL time.Duration `yaml:"ttl" toml:"ttl"`

	// Shards splits the capacity across independently locked segments.
	Shards int `yaml:"shards" toml:"shards"`

	// JanitorRate is how many shards per second the background sweeper visits
	// to drop TTL-expired entries. Zero disables the sweeper; expired entries are
	// still never returned.
	JanitorRate int `yaml:"janitor_rate" toml:"janitor_rate"`

	// CachedTime serves TTL checks from a 10ms ticker clock instead of time.Now.
	CachedTime bool `yaml:"cached_time" toml:"cached_time"`
}

func (cfg *HotCacheCfg) Enabled() bool {
	return cfg != nil
}

type TelemetryCfg struct {
	Interval time.Duration `yaml:"interval" toml:"interval"`

	// MetricsExporter ships OTel counters: "none" (default), "stdout" or "otlp".
	// "otlp" reads its endpoint from OTEL_EXPORTER_OTLP_ENDPOINT.
	MetricsExporter string `yaml:"metrics_exporter" toml:"metrics_exporter"`

	// ExportInterval is how often the exporter is pushed; zero keeps the SDK default.
	ExportInterval time.Duration `yaml:"export_interval" toml:"export_interval"`
}

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}

// Exporter is the configured metrics exporter, "none" when unset.
func (cfg *TelemetryCfg) Exporter() string {
	if cfg == nil || cfg.MetricsExporter == "" {
		return ExporterNone
	}
	return cfg.MetricsExporter
}

func (cfg *TelemetryCfg) Validate() error {
	switch cfg.Exporter() {
	case ExporterNone, ExporterStdout, ExporterOTLP:
		return nil
	default:
		return errors.WithHint(
			errors.Newf("unknown metrics exporter %q", cfg.MetricsExporter),
			"use one of: none, stdout, otlp",
		)
	}
}
