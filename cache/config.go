package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cache-subject/internal/cacheinfra"
	"github.com/spf13/viper"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory = string(cacheinfra.BackendMemory)
	BackendDisk   = string(cacheinfra.BackendDisk)
	BackendShared = string(cacheinfra.BackendShared)
	BackendSQL    = string(cacheinfra.BackendSQL)
)

// EnvPrefix is the prefix LoadConfig uses for environment overrides,
// e.g. CACHE_DISK_DIR.
const EnvPrefix = "CACHE"

// Config exposes store configuration options for consumers of the cache package.
type Config struct {
	Backend string       `mapstructure:"backend"`
	Codec   string       `mapstructure:"codec"`
	Disk    DiskConfig   `mapstructure:"disk"`
	Shared  SharedConfig `mapstructure:"shared"`
	SQL     SQLConfig    `mapstructure:"sql"`
}

// DiskConfig configures the file backed store.
type DiskConfig struct {
	Dir       string `mapstructure:"dir"`
	Extension string `mapstructure:"extension"`
}

// SharedConfig sizes the in-process shared store.
type SharedConfig struct {
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval"`
}

// SQLConfig configures the database backed store.
type SQLConfig struct {
	Driver  string        `mapstructure:"driver"`
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.ToInternal().Validate()
}

// LoadConfig reads a config file (any format viper understands) on top of
// DefaultConfig. Environment variables prefixed with EnvPrefix override both.
// An empty path loads defaults and environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read cache config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode cache config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigError names the first invalid field of a Config.
type ConfigError = cacheinfra.ConfigError

// IsConfigError reports whether err came from Config validation.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// setDefaults registers every key so AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("codec", cfg.Codec)
	v.SetDefault("disk.dir", cfg.Disk.Dir)
	v.SetDefault("disk.extension", cfg.Disk.Extension)
	v.SetDefault("shared.capacity", cfg.Shared.Capacity)
	v.SetDefault("shared.num_shards", cfg.Shared.NumShards)
	v.SetDefault("shared.ttl", cfg.Shared.TTL)
	v.SetDefault("shared.eviction_percentage", cfg.Shared.EvictionPercentage)
	v.SetDefault("shared.eviction_interval", cfg.Shared.EvictionInterval)
	v.SetDefault("sql.driver", cfg.SQL.Driver)
	v.SetDefault("sql.dsn", cfg.SQL.DSN)
	v.SetDefault("sql.timeout", cfg.SQL.Timeout)
}

// ToInternal converts the public configuration to the infrastructure one.
func (c Config) ToInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend: cacheinfra.Backend(c.Backend),
		Codec:   c.Codec,
		Disk: cacheinfra.DiskConfig{
			Dir:       c.Disk.Dir,
			Extension: c.Disk.Extension,
		},
		Shared: cacheinfra.SharedConfig{
			Capacity:           c.Shared.Capacity,
			NumShards:          c.Shared.NumShards,
			TTL:                c.Shared.TTL,
			EvictionPercentage: c.Shared.EvictionPercentage,
			EvictionInterval:   c.Shared.EvictionInterval,
		},
		SQL: cacheinfra.SQLConfig{
			Driver:  c.SQL.Driver,
			DSN:     c.SQL.DSN,
			Timeout: c.SQL.Timeout,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend: string(cfg.Backend),
		Codec:   cfg.Codec,
		Disk: DiskConfig{
			Dir:       cfg.Disk.Dir,
			Extension: cfg.Disk.Extension,
		},
		Shared: SharedConfig{
			Capacity:           cfg.Shared.Capacity,
			NumShards:          cfg.Shared.NumShards,
			TTL:                cfg.Shared.TTL,
			EvictionPercentage: cfg.Shared.EvictionPercentage,
			EvictionInterval:   cfg.Shared.EvictionInterval,
		},
		SQL: SQLConfig{
			Driver:  cfg.SQL.Driver,
			DSN:     cfg.SQL.DSN,
			Timeout: cfg.SQL.Timeout,
		},
	}
}
