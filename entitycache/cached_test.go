package entitycache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/pkg/testsupport"
	"github.com/goliatone/go-census/query"
)

func TestGetByID_ReturnsTheCachedInstance(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	exec := seededExecutor(itemRow(1, "Admin", "ADM"))
	ctx := context.Background()

	first, ok, err := items.GetByID(ctx, exec, 1)
	require.NoError(t, err)
	require.True(t, ok)

	second, ok, err := items.GetByID(ctx, exec, 1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Same(t, first, second)
	assert.Equal(t, 1, exec.CallCount())

	q := exec.Calls()[0].Query
	assert.Equal(t, []query.Term{{Field: "item_id", Op: query.Equals, Value: "1"}}, q.Terms)
	assert.Equal(t, 1, q.MaxResults)
}

func TestGetByID_NotFoundIsNotAnError(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())

	item, ok, err := items.GetByID(context.Background(), seededExecutor(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, item)
}

func TestGetByID_FallbackPrecedence(t *testing.T) {
	var logs bytes.Buffer
	reg := newTestRegistry(WithLogger(bufferLogger(&logs)))
	kind := fallbackItemKind{StaticFallback: StaticFallback{
		42: itemRow(42, "Local", "LOC"),
		7:  itemRow(7, "Stale", "OLD"),
	}}
	items, err := Register[*testItem](reg, kind, defaultConfig())
	require.NoError(t, err)

	exec := seededExecutor(itemRow(7, "Live", "NEW"))
	ctx := context.Background()

	local, ok, err := items.GetByID(ctx, exec, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Local", local.Name("en"))
	assert.Equal(t, 1, exec.CallCount(), "the live collection is always asked first")

	live, ok, err := items.GetByID(ctx, exec, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NEW", live.Code)
	assert.Contains(t, logs.String(), "local fallback")

	cached, ok := items.Lookup(42)
	require.True(t, ok, "fallback entities are cached like live ones")
	assert.Same(t, local, cached)
}

func TestGetByID_ExpiredEntriesAreRefetched(t *testing.T) {
	clock := newFakeClock()
	items := registerItems(t, newTestRegistry(WithClock(clock.Now)), Config{Cache: cacheConfig(10, 5*time.Second)})
	exec := seededExecutor(itemRow(1, "Admin", "ADM"))
	ctx := context.Background()

	first, _, err := items.GetByID(ctx, exec, 1)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	_, ok := items.Lookup(1)
	assert.False(t, ok)

	second, _, err := items.GetByID(ctx, exec, 1)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, exec.CallCount())
	assert.True(t, census.Equal(first, second))
}

func TestGetByID_PayloadErrorIsNotCached(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	exec := seededExecutor(census.Payload{"item_id": "3", "name": map[string]any{"en": "Broken"}})

	_, ok, err := items.GetByID(context.Background(), exec, 3)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, census.IsPayloadError(err))

	_, cached := items.Lookup(3)
	assert.False(t, cached)
}

func TestGetByID_TransportErrorsPassThrough(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	exec := seededExecutor()
	boom := errors.New("service unavailable")
	exec.FailNext(boom)

	_, _, err := items.GetByID(context.Background(), exec, 1)
	assert.Same(t, boom, err)
}

func TestGetByID_CancelledLookupCachesNothing(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	exec := testsupport.ExecutorFunc{
		ExecuteFn: func(_ context.Context, q *query.Query) (census.Envelope, error) {
			cancel()
			return census.NewEnvelope(q.Collection, []census.Payload{itemRow(1, "Admin", "ADM")}), nil
		},
	}

	_, ok, err := items.GetByID(ctx, exec, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)

	_, cached := items.Lookup(1)
	assert.False(t, cached)
}

func TestAlterCache(t *testing.T) {
	items := registerItems(t, newTestRegistry(), Config{Cache: cacheConfig(5, 0)})
	_, err := items.Construct(itemRow(1, "Admin", "ADM"), nil)
	require.NoError(t, err)

	err = items.AlterCache(0, nil)
	require.Error(t, err)
	assert.True(t, cache.IsConfigurationError(err))

	_, ok := items.Lookup(1)
	assert.True(t, ok, "a rejected resize keeps the contents")
	assert.Equal(t, 5, items.Stats()[0].Size)

	ttu := time.Minute
	require.NoError(t, items.AlterCache(3, &ttu))
	_, ok = items.Lookup(1)
	assert.False(t, ok, "altering the cache clears it")
	assert.Equal(t, 3, items.Stats()[0].Size)
	assert.Equal(t, time.Minute, items.Stats()[0].TTU)

	bad := -time.Second
	assert.True(t, cache.IsConfigurationError(items.AlterCache(3, &bad)))
}

func TestFind_AlwaysDispatchesAndRegisters(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	exec := seededExecutor(
		itemRow(1, "Admin", "ADM"),
		itemRow(2, "Administrator", "ADX"),
		itemRow(3, "Guest", "GST"),
	)
	ctx := context.Background()
	search := Search{
		Terms:        []query.Term{query.NewTerm("code", query.StartsWith, "ad")},
		IgnoreCase:   true,
		PromoteExact: true,
	}

	found, err := items.Find(ctx, exec, search)
	require.NoError(t, err)
	require.Len(t, found, 2)

	_, err = items.Find(ctx, exec, search)
	require.NoError(t, err)
	assert.Equal(t, 2, exec.CallCount(), "searches are never served from cache")

	q := exec.Calls()[0].Query
	assert.Equal(t, 10, q.MaxResults)
	assert.False(t, q.CaseSensitive)
	assert.True(t, q.ExactFirst)

	byID, ok, err := items.GetByID(ctx, exec, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, exec.CallCount(), "searched entities are registered by id")
	assert.True(t, census.Equal(found[1], byID))
}

func TestGetAndCount(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	exec := seededExecutor(itemRow(1, "Admin", "ADM"), itemRow(2, "Guest", "GST"))
	ctx := context.Background()

	item, ok, err := items.Get(ctx, exec, Search{Terms: []query.Term{query.NewTerm("code", query.Equals, "GST")}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, item.ID())
	assert.Equal(t, 1, exec.Calls()[0].Query.MaxResults)

	_, ok, err = items.Get(ctx, exec, Search{Terms: []query.Term{query.NewTerm("code", query.Equals, "NOPE")}})
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := items.Count(ctx, exec, query.NewTerm("item_id", query.Greater, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "count", exec.Calls()[2].Verb)
}

func TestMaxResultsCapsEveryQuery(t *testing.T) {
	items := registerItems(t, newTestRegistry(), Config{Cache: cacheConfig(10, 0), MaxResults: 3})
	exec := seededExecutor()

	_, err := items.Find(context.Background(), exec, Search{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 3, exec.Calls()[0].Query.MaxResults)
	assert.Equal(t, 3, items.MaxResults())
}

func TestGetByIDs_KeepsInputOrder(t *testing.T) {
	items := registerItems(t, newTestRegistry(), defaultConfig())
	exec := seededExecutor(
		itemRow(1, "One", "ONE"),
		itemRow(2, "Two", "TWO"),
		itemRow(3, "Three", "THR"),
	)
	ctx := context.Background()

	_, _, err := items.GetByID(ctx, exec, 2)
	require.NoError(t, err)

	got, err := items.GetByIDs(ctx, exec, 3, 2, 1, 99, 3)
	require.NoError(t, err)

	ids := make([]int, len(got))
	for i, item := range got {
		ids[i] = item.ID()
	}
	assert.Equal(t, []int{3, 2, 1, 3}, ids)
	require.Equal(t, 2, exec.CallCount())

	q := exec.Calls()[1].Query
	assert.Equal(t, "3,1,99", q.Terms[0].Value, "only uncached ids are fetched, once each")
	assert.Equal(t, 3, q.MaxResults)
}

func TestGetByIDs_BatchesByMaxResults(t *testing.T) {
	items := registerItems(t, newTestRegistry(), Config{Cache: cacheConfig(10, 0), MaxResults: 2})
	exec := seededExecutor(
		itemRow(1, "One", "ONE"),
		itemRow(2, "Two", "TWO"),
		itemRow(3, "Three", "THR"),
	)

	got, err := items.GetByIDs(context.Background(), exec, 1, 2, 3)
	require.NoError(t, err)

	ids := make([]int, len(got))
	for i, item := range got {
		ids[i] = item.ID()
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
	require.Equal(t, 2, exec.CallCount())
	assert.Equal(t, "1,2", exec.Calls()[0].Query.Terms[0].Value)
	assert.Equal(t, "3", exec.Calls()[1].Query.Terms[0].Value)
	assert.Equal(t, 1, exec.Calls()[1].Query.MaxResults)
}

func TestConstruct_ReportsDriftButIgnoresJoins(t *testing.T) {
	observer := &recordingObserver{}
	reg := newTestRegistry(WithObserver(observer))
	items := registerItems(t, reg, defaultConfig())

	exec := seededExecutor(func() census.Payload {
		row := itemRow(1, "Admin", "ADM")
		row["rarity"] = "3"
		return row
	}())
	exec.Seed("item_tag", census.Payload{"item_id": "1", "tag": "x"})

	q := items.Query().Where("item_id", 1)
	q.CreateJoin("item_tag").List(true).InjectAt("tags")
	q.CreateJoin("item_tag")

	found, err := items.FindQuery(context.Background(), exec, q)
	require.NoError(t, err)
	require.Len(t, found, 1)

	assert.Equal(t, 1, observer.calls)
	assert.Equal(t, []string{"rarity"}, observer.seen[1])
	assert.Empty(t, q.Joins[1].OnField, "the caller's query is not modified")
}
