package cacheinfra

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Backend names the medium a store persists to.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendDisk   Backend = "disk"
	BackendShared Backend = "shared"
	BackendSQL    Backend = "sql"
)

// Codec names understood by NewCodec.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// DefaultExtension is appended to every disk store file name.
const DefaultExtension = ".cache"

// Config holds the configuration for the store backends.
type Config struct {
	// Backend selects which store implementation backs a subject.
	Backend Backend `mapstructure:"backend"`

	// Codec selects the payload encoding for the disk and sql backends.
	Codec string `mapstructure:"codec"`

	Disk   DiskConfig   `mapstructure:"disk"`
	Shared SharedConfig `mapstructure:"shared"`
	SQL    SQLConfig    `mapstructure:"sql"`
}

// DiskConfig configures the file backed store.
type DiskConfig struct {
	// Dir is the directory holding one file per cache key.
	Dir string `mapstructure:"dir"`

	// Extension is appended to the file name derived from the key.
	Extension string `mapstructure:"extension"`
}

// SharedConfig sizes the process wide sturdyc client used by the shared backend.
type SharedConfig struct {
	// Capacity defines the maximum number of entries the client can hold.
	Capacity int `mapstructure:"capacity"`

	// NumShards determines the number of shards for concurrent access.
	NumShards int `mapstructure:"num_shards"`

	// TTL is how long a value stays readable before it degrades to a miss.
	TTL time.Duration `mapstructure:"ttl"`

	// EvictionPercentage is the share of entries evicted once capacity is reached.
	EvictionPercentage int `mapstructure:"eviction_percentage"`

	// EvictionInterval sets how often expired entries are swept. Zero keeps sturdyc's default.
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

// SQLConfig configures the bun backed store.
type SQLConfig struct {
	// Driver is either "sqlite3" or "postgres".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// Timeout bounds every read and write.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Codec:   CodecJSON,
		Disk: DiskConfig{
			Extension: DefaultExtension,
		},
		Shared: SharedConfig{
			Capacity:           10000,
			NumShards:          256,
			TTL:                24 * time.Hour,
			EvictionPercentage: 10,
		},
		SQL: SQLConfig{
			Driver:  DriverSQLite,
			Timeout: 5 * time.Second,
		},
	}
}

// ToSturdycOptions converts the shared settings that are not constructor
// arguments of sturdyc.New.
func (c SharedConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
// Only the section of the selected backend is inspected.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendMemory, BackendDisk, BackendShared, BackendSQL)),
		validation.Field(&c.Codec, validation.Required, validation.In(CodecJSON, CodecMsgpack)),
	)
	if err != nil {
		return asConfigError("", err)
	}

	switch c.Backend {
	case BackendDisk:
		return c.Disk.Validate()
	case BackendShared:
		return c.Shared.Validate()
	case BackendSQL:
		return c.SQL.Validate()
	}
	return nil
}

// Validate checks the disk section.
func (c DiskConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Length(2, 16)),
	)
	return asConfigError("Disk.", err)
}

// Validate checks the shared section.
func (c SharedConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	return asConfigError("Shared.", err)
}

// Validate checks the sql section.
func (c SQLConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	)
	return asConfigError("SQL.", err)
}

// asConfigError reports the first failing field, in name order, as a ConfigError.
func asConfigError(prefix string, err error) error {
	if err == nil {
		return nil
	}

	var fields validation.Errors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	first := names[0]
	return &ConfigError{Field: prefix + first, Message: fields[first].Error()}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
