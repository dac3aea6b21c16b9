package entitycache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/internal/errs"
	"github.com/goliatone/go-census/query"
)

// Cached resolves entities of one kind through the kind's id cache.
type Cached[T census.Entity] struct {
	kind     census.Kind[T]
	cfg      Config
	byID     *cache.TLRU[int, T]
	fallback FallbackProvider
	observer census.Observer
	logger   *slog.Logger
}

// Register sets up the id cache of kind and adds it to reg. Registering the
// same type name twice is a ConfigurationError.
func Register[T census.Entity](reg *Registry, kind census.Kind[T], cfg Config) (*Cached[T], error) {
	c, err := newCached(reg, kind, cfg)
	if err != nil {
		return nil, err
	}
	if err := reg.add(c); err != nil {
		return nil, err
	}
	return c, nil
}

func newCached[T census.Entity](reg *Registry, kind census.Kind[T], cfg Config) (*Cached[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	logger := reg.logger.With("type", kind.TypeName())
	logger.Debug("setting up cache",
		"size", cfg.Cache.Size,
		"ttu", cfg.Cache.TTU,
	)

	byID, err := cache.New[int, T](cacheName(kind.TypeName()), cfg.Cache.Size, cfg.Cache.TTU, reg.cacheOptions()...)
	if err != nil {
		return nil, err
	}

	c := &Cached[T]{
		kind:     kind,
		cfg:      cfg,
		byID:     byID,
		observer: reg.observer,
		logger:   logger,
	}
	if fb, ok := any(kind).(FallbackProvider); ok {
		c.fallback = fb
	}
	return c, nil
}

func (c *Cached[T]) TypeName() string { return c.kind.TypeName() }

func (c *Cached[T]) Collection() string { return c.kind.Collection() }

func (c *Cached[T]) IDField() string { return c.kind.IDField() }

// Kind returns the registered kind.
func (c *Cached[T]) Kind() census.Kind[T] { return c.kind }

// MaxResults is the cap applied to every dispatched query.
func (c *Cached[T]) MaxResults() int { return c.cfg.MaxResults }

func (c *Cached[T]) Stats() []cache.Stats {
	return []cache.Stats{c.byID.Stats()}
}

func (c *Cached[T]) Clear() {
	c.byID.Clear()
}

func (c *Cached[T]) alter(target string, cfg cache.Config) error {
	if target != c.TypeName() {
		return errs.Configuration("type", fmt.Sprintf("%s has no cache named %s", c.TypeName(), target))
	}
	ttu := cfg.TTU
	return c.AlterCache(cfg.Size, &ttu)
}

// AlterCache clears the id cache and applies a new bound and, when ttu is not
// nil, a new time-to-use. A size below one is a ConfigurationError and leaves
// the cache untouched.
func (c *Cached[T]) AlterCache(size int, ttu *time.Duration) error {
	return alterCache(c.byID, size, ttu)
}

func alterCache[K comparable, V any](tlru *cache.TLRU[K, V], size int, ttu *time.Duration) error {
	if size < 1 {
		return errs.Configuration("size", fmt.Sprintf("%d is not a valid cache size", size))
	}
	if ttu != nil && *ttu < 0 {
		return errs.Configuration("ttu", fmt.Sprintf("%s is not a valid time-to-use", *ttu))
	}

	tlru.Clear()
	if err := tlru.Resize(size); err != nil {
		return err
	}
	if ttu != nil {
		return tlru.SetTTU(*ttu)
	}
	return nil
}

// Query returns an empty query on the kind's collection.
func (c *Cached[T]) Query() *query.Query {
	return query.New(c.Collection())
}

// Lookup probes the id cache without dispatching.
func (c *Cached[T]) Lookup(id int) (T, bool) {
	return c.byID.Get(id)
}

// Construct builds an entity from payload and registers it in the id cache.
// joinKeys are the injection keys of the joins the payload was fetched with.
func (c *Cached[T]) Construct(payload census.Payload, exec census.Executor, joinKeys ...string) (T, error) {
	entity, err := census.Construct(c.kind, payload, exec, census.ConstructOptions{
		Observer: c.observer,
		JoinKeys: joinKeys,
		Logger:   c.logger,
	})
	if err != nil {
		var zero T
		return zero, err
	}
	c.byID.Add(entity.ID(), entity)
	return entity, nil
}

// GetByID returns the entity with id, from cache when possible. A missing
// entity is reported with false, never as an error.
func (c *Cached[T]) GetByID(ctx context.Context, exec census.Executor, id int) (T, bool, error) {
	var zero T

	c.logger.DebugContext(ctx, "entity requested", "id", id)
	if entity, ok := c.byID.Get(id); ok {
		c.logger.DebugContext(ctx, "entity restored from cache", "id", id)
		return entity, true, nil
	}
	c.logger.DebugContext(ctx, "entity not cached, generating query", "id", id)

	q := c.Query().Where(c.IDField(), id).Limit(1)
	rows, err := c.dispatch(ctx, exec, q)
	if err != nil {
		return zero, false, err
	}

	if c.fallback != nil {
		if data, ok := c.fallback.Fallback(id); ok {
			if len(rows) > 0 {
				c.logger.InfoContext(ctx, "type provides a local fallback despite the entry being available online", "id", id)
			} else {
				c.logger.DebugContext(ctx, "instantiating entity through local copy", "id", id)
				rows = []census.Payload{data}
			}
		}
	}
	if len(rows) == 0 {
		return zero, false, nil
	}

	entity, err := c.Construct(rows[0], exec)
	if err != nil {
		return zero, false, err
	}
	return entity, true, nil
}

// GetByIDs resolves several ids. Cached ids are served locally and the rest
// is fetched in queries of at most MaxResults ids. The result keeps the order of ids and
// omits entities that could not be found.
func (c *Cached[T]) GetByIDs(ctx context.Context, exec census.Executor, ids ...int) ([]T, error) {
	found := make(map[int]T, len(ids))
	var missing []int
	for _, id := range ids {
		if _, seen := found[id]; seen || containsInt(missing, id) {
			continue
		}
		if entity, ok := c.byID.Get(id); ok {
			found[id] = entity
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		batch := c.cfg.MaxResults
		if batch < 1 {
			batch = len(missing)
		}
		for start := 0; start < len(missing); start += batch {
			chunk := missing[start:min(start+batch, len(missing))]
			q := c.Query().Where(c.IDField(), chunk).Limit(len(chunk))
			rows, err := c.dispatch(ctx, exec, q)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				entity, err := c.Construct(row, exec)
				if err != nil {
					return nil, err
				}
				found[entity.ID()] = entity
			}
		}
		if c.fallback != nil {
			for _, id := range missing {
				if _, ok := found[id]; ok {
					continue
				}
				if data, ok := c.fallback.Fallback(id); ok {
					entity, err := c.Construct(data, exec)
					if err != nil {
						return nil, err
					}
					found[id] = entity
				}
			}
		}
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if entity, ok := found[id]; ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

// Find returns the entities matching s. It always dispatches.
func (c *Cached[T]) Find(ctx context.Context, exec census.Executor, s Search) ([]T, error) {
	return c.FindQuery(ctx, exec, s.query(c.Collection()))
}

// FindQuery dispatches q, which must target the kind's collection, and
// constructs every result. Joined keys are excluded from drift reports.
func (c *Cached[T]) FindQuery(ctx context.Context, exec census.Executor, q *query.Query) ([]T, error) {
	q = q.Clone()
	rows, err := c.dispatch(ctx, exec, q)
	if err != nil {
		return nil, err
	}

	joinKeys := q.InjectKeys(c.IDField())
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		entity, err := c.Construct(row, exec, joinKeys...)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// Get returns the first entity matching s.
func (c *Cached[T]) Get(ctx context.Context, exec census.Executor, s Search) (T, bool, error) {
	var zero T
	s.Limit = 1
	found, err := c.Find(ctx, exec, s)
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

// Count returns the number of entries matching terms.
func (c *Cached[T]) Count(ctx context.Context, exec census.Executor, terms ...query.Term) (int, error) {
	q := c.Query().AddTerms(terms...)
	n, err := exec.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// dispatch caps and executes q. Nothing is returned once ctx is done, so a
// cancelled lookup never constructs or caches anything.
func (c *Cached[T]) dispatch(ctx context.Context, exec census.Executor, q *query.Query) ([]census.Payload, error) {
	q.CapLimit(c.cfg.MaxResults).ResolveDefaults(c.IDField())

	env, err := exec.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return env.List(c.Collection())
}

// Proxy returns a lazy single result proxy building entities through c.
func (c *Cached[T]) Proxy(q *query.Query, exec census.Executor) *InstanceProxy[T] {
	return NewInstanceProxy(q, exec, c.constructor(q))
}

// Sequence returns a lazy multi result proxy building entities through c.
func (c *Cached[T]) Sequence(q *query.Query, exec census.Executor) *SequenceProxy[T] {
	return NewSequenceProxy(q.Clone().CapLimit(c.cfg.MaxResults), exec, c.constructor(q))
}

// Ref returns a proxy for the entity with id. Unlike GetByID it always dispatches.
func (c *Cached[T]) Ref(id int, exec census.Executor) *InstanceProxy[T] {
	return c.Proxy(c.Query().Where(c.IDField(), id), exec)
}

func (c *Cached[T]) constructor(q *query.Query) Constructor[T] {
	joinKeys := q.InjectKeys(c.IDField())
	return func(payload census.Payload, exec census.Executor) (T, error) {
		return c.Construct(payload, exec, joinKeys...)
	}
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
