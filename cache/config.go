package cache

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-census/internal/cacheinfra"
	"github.com/goliatone/go-census/internal/errs"
)

// Config is the per-type cache record supplied at type registration.
//
// Size is the maximum number of entries; zero disables the cache. TTU is the
// time-to-use after which an entry is re-fetched regardless of how often it
// is read; zero disables age based expiry.
type Config struct {
	Size int           `yaml:"size"`
	TTU  time.Duration `yaml:"ttu"`
}

// Validate rejects negative sizes and windows. It never clamps.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Size, validation.Min(0)),
		validation.Field(&c.TTU, validation.Min(time.Duration(0))),
	)
	return errs.FromValidation(err, "invalid cache configuration")
}

// ResponseConfig exposes the response cache options for consumers of the cache package.
type ResponseConfig struct {
	Capacity           int                 `yaml:"capacity"`
	NumShards          int                 `yaml:"num_shards"`
	TTL                time.Duration       `yaml:"ttl"`
	EvictionPercentage int                 `yaml:"eviction_percentage"`
	EarlyRefresh       *EarlyRefreshConfig `yaml:"early_refresh"`
	EvictionInterval   time.Duration       `yaml:"eviction_interval"`
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `yaml:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `yaml:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `yaml:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
}

// DefaultResponseConfig returns a ResponseConfig populated with sensible defaults.
func DefaultResponseConfig() ResponseConfig {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c ResponseConfig) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the default cache service implementation using the provided configuration.
func NewCacheService(cfg ResponseConfig) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c ResponseConfig) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) ResponseConfig {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return ResponseConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

// Settings is the file level configuration: per-type cache overrides keyed by
// type name and an optional response cache block.
type Settings struct {
	Types    map[string]Config `yaml:"types"`
	Response *ResponseConfig   `yaml:"response_cache"`
}

// Validate checks every type override and the response cache block.
func (s Settings) Validate() error {
	for name, cfg := range s.Types {
		if err := cfg.Validate(); err != nil {
			return errs.Configuration("types."+name, err.Error())
		}
	}
	if s.Response != nil {
		return s.Response.Validate()
	}
	return nil
}

// ParseSettings decodes YAML settings and validates them.
func ParseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings yaml: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// LoadSettings reads and validates a YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}

	settings, err := ParseSettings(data)
	if err != nil {
		return nil, fmt.Errorf("load settings from %s: %w", path, err)
	}
	return settings, nil
}
