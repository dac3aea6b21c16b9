package entitycache

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/pkg/testsupport"
	"github.com/goliatone/go-census/query"
)

type testItem struct {
	census.Object
	name census.Locale
	Code string
}

func (i *testItem) Name(locale string) string {
	s, _ := i.name.Get(locale)
	return s
}

type itemKind struct{}

func (itemKind) TypeName() string   { return "Item" }
func (itemKind) Collection() string { return "item" }
func (itemKind) IDField() string    { return "item_id" }

func (itemKind) Build(obj census.Object, d *census.Decoder) (*testItem, error) {
	return &testItem{
		Object: obj,
		name:   d.Locale("name"),
		Code:   d.String("code"),
	}, nil
}

type fallbackItemKind struct {
	itemKind
	StaticFallback
}

// codeNameKind looks names up through the lowercase code field.
type codeNameKind struct {
	itemKind
}

func (codeNameKind) NameQuery(name, _ string) *query.Query {
	return query.New("item").Where("code_lower", name)
}

func itemRow(id int, en, code string) census.Payload {
	return census.Payload{
		"item_id": query.FormatValue(id),
		"name":    map[string]any{"en": en, "de": en + " (de)"},
		"code":    code,
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	seen  map[int][]string
	calls int
}

func (r *recordingObserver) UnexpectedKeys(_ string, id int, keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[int][]string)
	}
	r.seen[id] = keys
	r.calls++
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_600_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestRegistry(opts ...Option) *Registry {
	return NewRegistry(append([]Option{WithLogger(discardLogger()), WithObserver(&recordingObserver{})}, opts...)...)
}

func registerItems(t *testing.T, reg *Registry, cfg Config) *Cached[*testItem] {
	t.Helper()
	items, err := Register[*testItem](reg, itemKind{}, cfg)
	require.NoError(t, err)
	return items
}

func seededExecutor(rows ...census.Payload) *testsupport.MemoryExecutor {
	return testsupport.NewMemoryExecutor(nil).Seed("item", rows...)
}

func defaultConfig() Config {
	return Config{Cache: cacheConfig(10, 0)}
}

func cacheConfig(size int, ttu time.Duration) cache.Config {
	return cache.Config{Size: size, TTU: ttu}
}
