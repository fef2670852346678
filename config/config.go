package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Default returns a configuration with a hot tier and the default store path.
func Default() *Cache {
	cfg := &Cache{
		Store:    StoreCfg{Path: DefaultSQLitePath},
		HotCache: &HotCacheCfg{},
	}
	cfg.AdjustConfig()
	return cfg
}

// AdjustConfig fills zero values with defaults.
func (cfg *Cache) AdjustConfig() {
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultSQLitePath
	}

	if cfg.HotCache.Enabled() {
		if cfg.HotCache.Capacity <= 0 {
			cfg.HotCache.Capacity = DefaultHotCacheCapacity
		}
		if cfg.HotCache.TTL <= 0 {
			cfg.HotCache.TTL = DefaultHotCacheTTL
		}
		if cfg.HotCache.Shards <= 0 {
			cfg.HotCache.Shards = DefaultHotCacheShards
		}
		// never more shards than entries, every shard holds at least one
		cfg.HotCache.Shards = min(cfg.HotCache.Shards, cfg.HotCache.Capacity)
	}

	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = DefaultTelemetryEvery
	}
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file.
func LoadConfig(path string) (*Cache, error) {
	cfg := &Cache{}
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	cfg.AdjustConfig()
	if err := cfg.Telemetry.Validate(); err != nil {
		return nil, errors.Wrapf(err, "telemetry in %s", path)
	}
	return cfg, nil
}

// Decode unmarshals the file at path into out, picking the format by extension.
// It is shared with the loader configuration.
func Decode(path string, out any) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, "stat config path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	case ".toml":
		_, err = toml.Decode(string(data), out)
	default:
		return errors.WithHint(errors.Newf("unsupported config format %q", ext), "use .yaml, .yml or .toml")
	}
	if err != nil {
		return errors.Wrapf(err, "unmarshal config from %s", path)
	}
	return nil
}
