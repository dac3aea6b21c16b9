package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-census/internal/errs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 2000 {
		t.Errorf("expected Capacity to be 2000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 16 {
		t.Errorf("expected NumShards to be 16, got %d", cfg.NumShards)
	}

	if cfg.TTL != 30*time.Second {
		t.Errorf("expected TTL to be 30 seconds, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.EarlyRefresh != nil {
		t.Error("expected EarlyRefresh to be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func(mutate func(*Config)) Config {
		cfg := DefaultConfig()
		mutate(&cfg)
		return cfg
	}

	tests := []struct {
		name      string
		cfg       Config
		wantError bool
	}{
		{name: "valid default config", cfg: DefaultConfig()},
		{name: "zero capacity", cfg: base(func(c *Config) { c.Capacity = 0 }), wantError: true},
		{name: "negative capacity", cfg: base(func(c *Config) { c.Capacity = -5 }), wantError: true},
		{name: "zero shards", cfg: base(func(c *Config) { c.NumShards = 0 }), wantError: true},
		{name: "zero ttl", cfg: base(func(c *Config) { c.TTL = 0 }), wantError: true},
		{name: "eviction percentage too high", cfg: base(func(c *Config) { c.EvictionPercentage = 101 }), wantError: true},
		{name: "negative eviction interval", cfg: base(func(c *Config) { c.EvictionInterval = -time.Second }), wantError: true},
		{
			name: "valid early refresh",
			cfg: base(func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: time.Second,
					MaxAsyncRefreshTime: 2 * time.Second,
					SyncRefreshTime:     5 * time.Second,
					RetryBaseDelay:      10 * time.Millisecond,
				}
			}),
		},
		{
			name: "early refresh max below min",
			cfg: base(func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: 5 * time.Second,
					MaxAsyncRefreshTime: time.Second,
				}
			}),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errs.HasTextCode(err, errs.TextCodeConfiguration) {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options for defaults, got %d", got)
	}

	cfg.EvictionInterval = time.Minute
	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      time.Millisecond,
	}
	if got := len(cfg.ToSturdycOptions()); got != 2 {
		t.Errorf("expected 2 options, got %d", got)
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	svc, err := NewSturdycService(Config{})
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	if svc != nil {
		t.Error("expected nil service on error")
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return "envelope", nil
	}

	for i := 0; i < 3; i++ {
		got, err := svc.GetOrFetch(ctx, "Execute::faction::1", fetch)
		if err != nil {
			t.Fatalf("GetOrFetch() error: %v", err)
		}
		if got != "envelope" {
			t.Errorf("GetOrFetch() = %v, want envelope", got)
		}
	}

	if calls != 1 {
		t.Errorf("expected fetch to run once, ran %d times", calls)
	}
}

func TestSturdycService_GetOrFetch_ErrorsAreNotCached(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	ctx := context.Background()
	transport := errors.New("connection reset")
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return nil, transport
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.GetOrFetch(ctx, "Execute::outfit::2", fetch); !errors.Is(err, transport) {
			t.Fatalf("expected transport error, got %v", err)
		}
	}

	if calls != 2 {
		t.Errorf("expected fetch to run twice, ran %d times", calls)
	}
}

func TestSturdycService_GetOrFetch_NilValue(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		got, err := svc.GetOrFetch(ctx, "Count::outfit::3", fetch)
		if err != nil {
			t.Fatalf("GetOrFetch() error: %v", err)
		}
		if got != nil {
			t.Errorf("GetOrFetch() = %v, want nil", got)
		}
	}

	if calls != 1 {
		t.Errorf("expected fetch to run once, ran %d times", calls)
	}
}

func TestSturdycService_GetOrFetch_NilFetch(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	if _, err := svc.GetOrFetch(context.Background(), "key", nil); err == nil {
		t.Error("expected error for nil fetch function")
	}
}

func TestSturdycService_Delete(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := svc.GetOrFetch(ctx, "Count::character", fetch); err != nil {
		t.Fatalf("GetOrFetch() error: %v", err)
	}
	if err := svc.Delete(ctx, "Count::character"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	got, err := svc.GetOrFetch(ctx, "Count::character", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch() error: %v", err)
	}
	if got != 2 {
		t.Errorf("expected refetched value 2, got %v", got)
	}
}

func TestSturdycService_DeleteByPrefix(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	ctx := context.Background()
	calls := map[string]int{}
	fetchFor := func(key string) func(context.Context) (any, error) {
		return func(ctx context.Context) (any, error) {
			calls[key]++
			return key, nil
		}
	}

	keys := []string{"Execute::outfit::1", "Execute::outfit::2", "Execute::faction::1"}
	for _, key := range keys {
		if _, err := svc.GetOrFetch(ctx, key, fetchFor(key)); err != nil {
			t.Fatalf("GetOrFetch(%s) error: %v", key, err)
		}
	}

	if err := svc.DeleteByPrefix(ctx, "Execute::outfit::"); err != nil {
		t.Fatalf("DeleteByPrefix() error: %v", err)
	}

	for _, key := range keys {
		if _, err := svc.GetOrFetch(ctx, key, fetchFor(key)); err != nil {
			t.Fatalf("GetOrFetch(%s) error: %v", key, err)
		}
	}

	if calls["Execute::outfit::1"] != 2 || calls["Execute::outfit::2"] != 2 {
		t.Errorf("expected outfit keys to be refetched, got %v", calls)
	}
	if calls["Execute::faction::1"] != 1 {
		t.Errorf("expected faction key to stay cached, got %d fetches", calls["Execute::faction::1"])
	}
}

func TestSturdycService_InvalidateKeys(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService() failed: %v", err)
	}

	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	for _, key := range []string{"a", "b"} {
		if _, err := svc.GetOrFetch(ctx, key, fetch); err != nil {
			t.Fatalf("GetOrFetch(%s) error: %v", key, err)
		}
	}
	if err := svc.InvalidateKeys(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("InvalidateKeys() error: %v", err)
	}
	for _, key := range []string{"a", "b"} {
		if _, err := svc.GetOrFetch(ctx, key, fetch); err != nil {
			t.Fatalf("GetOrFetch(%s) error: %v", key, err)
		}
	}

	if calls != 4 {
		t.Errorf("expected 4 fetches after invalidation, got %d", calls)
	}
}
