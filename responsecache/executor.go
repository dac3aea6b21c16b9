package responsecache

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/query"
)

const (
	methodExecute = "Execute"
	methodCount   = "Count"
)

var _ census.Executor = (*Executor)(nil)

// entry is what the key registry remembers about a cached response.
type entry struct {
	collection string
	tags       []string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor decorates a base executor with a read-through response cache.
type Executor struct {
	base          census.Executor
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	keyRegistry   *xsync.MapOf[string, entry]
	logger        *slog.Logger
}

// New wraps base. A nil key serializer uses cache.NewDefaultKeySerializer.
func New(base census.Executor, svc cache.CacheService, ks cache.KeySerializer, opts ...Option) *Executor {
	if ks == nil {
		ks = cache.NewDefaultKeySerializer()
	}
	e := &Executor{
		base:          base,
		cache:         svc,
		keySerializer: ks,
		keyRegistry:   xsync.NewMapOf[string, entry](),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute returns the cached envelope for q or dispatches it to the base
// executor and caches the result.
func (e *Executor) Execute(ctx context.Context, q *query.Query) (census.Envelope, error) {
	key := e.key(methodExecute, q)
	e.trackKey(ctx, key, q.Collection)

	fetched := false
	env, err := cache.GetOrFetch(ctx, e.cache, key, func(ctx context.Context) (census.Envelope, error) {
		fetched = true
		return e.base.Execute(ctx, q)
	})
	if err != nil {
		e.keyRegistry.Delete(key)
		return nil, err
	}
	if env == nil {
		// Unexpected value type under key.
		e.logger.WarnContext(ctx, "response cache returned an unexpected value", "key", key)
		return e.base.Execute(ctx, q)
	}
	if !fetched {
		e.logger.DebugContext(ctx, "response cache hit", "collection", q.Collection, "key", key)
	}
	return env, nil
}

// Count returns the cached count for q or dispatches it.
func (e *Executor) Count(ctx context.Context, q *query.Query) (int, error) {
	key := e.key(methodCount, q)
	e.trackKey(ctx, key, q.Collection)

	n, err := cache.GetOrFetch(ctx, e.cache, key, func(ctx context.Context) (int, error) {
		return e.base.Count(ctx, q)
	})
	if err != nil {
		e.keyRegistry.Delete(key)
		return 0, err
	}
	return n, nil
}

// Invalidate drops the cached responses of q, both envelope and count.
func (e *Executor) Invalidate(ctx context.Context, q *query.Query) error {
	return e.deleteKeys(ctx, []string{e.key(methodExecute, q), e.key(methodCount, q)})
}

// InvalidateCollection drops every cached response whose top level
// collection is collection. Backends implementing cache.PrefixInvalidator
// also lose entries the registry no longer tracks.
func (e *Executor) InvalidateCollection(ctx context.Context, collection string) error {
	match := func(en entry) bool {
		return en.collection == collection
	}
	pi, ok := e.cache.(cache.PrefixInvalidator)
	if !ok {
		return e.deleteWhere(ctx, match)
	}

	prefixes := []string{e.prefix(methodExecute, collection), e.prefix(methodCount, collection)}
	for _, prefix := range prefixes {
		if err := pi.DeleteByPrefix(ctx, prefix); err != nil {
			e.logger.WarnContext(ctx, "response cache prefix delete failed", "prefix", prefix, "error", err)
			return err
		}
	}

	// Keys from serializers with another layout are deleted one by one.
	var rest []string
	e.keyRegistry.Range(func(key string, en entry) bool {
		if !match(en) {
			return true
		}
		if hasAnyPrefix(key, prefixes) {
			e.keyRegistry.Delete(key)
			return true
		}
		rest = append(rest, key)
		return true
	})
	e.logger.DebugContext(ctx, "response cache invalidated", "collection", collection)
	return e.deleteKeys(ctx, rest)
}

// InvalidateTag drops every cached response registered under tag.
func (e *Executor) InvalidateTag(ctx context.Context, tag string) error {
	return e.deleteWhere(ctx, func(en entry) bool {
		return slices.Contains(en.tags, tag)
	})
}

// Purge drops every tracked response.
func (e *Executor) Purge(ctx context.Context) error {
	return e.deleteWhere(ctx, func(entry) bool { return true })
}

// Keys returns the number of tracked cache keys.
func (e *Executor) Keys() int {
	return e.keyRegistry.Size()
}

func (e *Executor) key(method string, q *query.Query) string {
	return e.keySerializer.SerializeKey(method, q.Collection, q)
}

// prefix is the key prefix shared by every method response of collection.
func (e *Executor) prefix(method, collection string) string {
	return e.keySerializer.SerializeKey(method, collection) + cache.KeySeparator
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func (e *Executor) trackKey(ctx context.Context, key, collection string) {
	tags := tagsFromContext(ctx)
	e.keyRegistry.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded {
			old.tags = dedupe(append(old.tags, tags...))
			return old, false
		}
		return entry{collection: collection, tags: tags}, false
	})
}

func (e *Executor) deleteWhere(ctx context.Context, match func(entry) bool) error {
	var keys []string
	e.keyRegistry.Range(func(key string, en entry) bool {
		if match(en) {
			keys = append(keys, key)
		}
		return true
	})
	return e.deleteKeys(ctx, keys)
}

func (e *Executor) deleteKeys(ctx context.Context, keys []string) error {
	if bi, ok := e.cache.(cache.BatchInvalidator); ok && len(keys) > 1 {
		if err := bi.InvalidateKeys(ctx, keys); err != nil {
			e.logger.WarnContext(ctx, "response cache batch delete failed", "keys", len(keys), "error", err)
			return err
		}
		for _, key := range keys {
			e.keyRegistry.Delete(key)
		}
		e.logger.DebugContext(ctx, "response cache invalidated", "keys", len(keys))
		return nil
	}

	var firstErr error
	for _, key := range keys {
		if err := e.cache.Delete(ctx, key); err != nil {
			e.logger.WarnContext(ctx, "response cache delete failed", "key", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.keyRegistry.Delete(key)
	}
	if len(keys) > 0 {
		e.logger.DebugContext(ctx, "response cache invalidated", "keys", len(keys))
	}
	return firstErr
}
