package cacheinfra

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-census/internal/errs"
)

// Config holds the configuration for the sturdyc response cache adapter.
type Config struct {
	// Capacity defines the maximum number of envelopes the cache can store.
	Capacity int `yaml:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int `yaml:"num_shards"`

	// TTL is how long a cached envelope stays valid.
	TTL time.Duration `yaml:"ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int `yaml:"eviction_percentage"`

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig `yaml:"early_refresh"`

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration `yaml:"eviction_interval"`
}

// EarlyRefreshConfig configures sturdyc early refreshes, which re-run a query
// in the background before its cached envelope expires.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `yaml:"min_async_refresh_time"`
	MaxAsyncRefreshTime time.Duration `yaml:"max_async_refresh_time"`
	SyncRefreshTime     time.Duration `yaml:"sync_refresh_time"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
}

// DefaultConfig returns a Config sized for an interactive client. Census data
// changes slowly, but online status and outfit rosters do not, so the TTL
// stays short.
func DefaultConfig() Config {
	return Config{
		Capacity:           2000,
		NumShards:          16,
		TTL:                30 * time.Second,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return errs.FromValidation(err, "invalid response cache configuration")
	}

	if c.EarlyRefresh != nil {
		er := c.EarlyRefresh
		err = validation.ValidateStruct(er,
			validation.Field(&er.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.MaxAsyncRefreshTime, validation.Min(er.MinAsyncRefreshTime)),
			validation.Field(&er.SyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&er.RetryBaseDelay, validation.Min(time.Duration(0))),
		)
		if err != nil {
			return errs.FromValidation(err, "invalid early refresh configuration")
		}
	}

	return nil
}

// sturdycService wraps a sturdyc client providing caching behaviour.
type sturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and creates a sturdyc backed cache service.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &sturdycService{client: client}, nil
}

// GetOrFetch returns the value cached under key, running fetchFn on a miss.
// Concurrent misses for the same key share one fetchFn call; errors are not cached.
func (s *sturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if fetchFn == nil {
		return nil, errs.Configuration("fetchFn", "cannot be nil")
	}
	v, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		value, err := fetchFn(ctx)
		if err != nil {
			return boxed{}, err
		}
		return boxed{value: value}, nil
	})
	if err != nil {
		return nil, err
	}
	b, ok := v.(boxed)
	if !ok {
		return v, nil
	}
	return b.value, nil
}

// boxed keeps nil fetch results storable: sturdyc rejects nil values.
type boxed struct {
	value any
}

// Delete removes a single entry from the cache.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *sturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys removes multiple entries from the cache.
func (s *sturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
