package entitycache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-census/cache"
	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/internal/errs"
	"github.com/goliatone/go-census/query"
)

// NamedEntity is an entity with a (possibly localised) unique name.
type NamedEntity interface {
	census.Entity
	// Name returns the name for locale. Types without localised names
	// ignore the locale.
	Name(locale string) string
}

// NameQuerier is implemented by kinds whose names are not stored as a
// "name.<locale>" locale object.
type NameQuerier interface {
	NameQuery(name, locale string) *query.Query
}

// NameKey returns the name cache key for name in locale. Only case is
// normalised.
func NameKey(name, locale string) string {
	if locale == "" {
		locale = DefaultLocale
	}
	return locale + "_" + strings.ToLower(name)
}

// Named extends Cached with a second cache keyed by locale and name.
type Named[T NamedEntity] struct {
	*Cached[T]
	byName  *cache.TLRU[string, T]
	querier NameQuerier
}

// RegisterNamed sets up the id and name caches of kind and adds it to reg.
// Either cache may be disabled with a size of zero.
func RegisterNamed[T NamedEntity](reg *Registry, kind census.Kind[T], cfg Config) (*Named[T], error) {
	base, err := newCached(reg, kind, cfg)
	if err != nil {
		return nil, err
	}

	nc := base.cfg.NameCache
	byName, err := cache.New[string, T](cacheName(kind.TypeName(), "name"), nc.Size, nc.TTU, reg.cacheOptions()...)
	if err != nil {
		return nil, err
	}

	n := &Named[T]{Cached: base, byName: byName}
	if q, ok := any(kind).(NameQuerier); ok {
		n.querier = q
	}
	if err := reg.add(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Named[T]) Stats() []cache.Stats {
	return []cache.Stats{n.byID.Stats(), n.byName.Stats()}
}

func (n *Named[T]) Clear() {
	n.byID.Clear()
	n.byName.Clear()
}

func (n *Named[T]) alter(target string, cfg cache.Config) error {
	ttu := cfg.TTU
	switch target {
	case n.TypeName():
		return n.AlterCache(cfg.Size, &ttu)
	case n.TypeName() + NameCacheSuffix:
		return n.AlterNameCache(cfg.Size, &ttu)
	}
	return errs.Configuration("type", fmt.Sprintf("%s has no cache named %s", n.TypeName(), target))
}

// AlterNameCache is AlterCache for the name cache.
func (n *Named[T]) AlterNameCache(size int, ttu *time.Duration) error {
	return alterCache(n.byName, size, ttu)
}

// LookupName probes the name cache without dispatching.
func (n *Named[T]) LookupName(name, locale string) (T, bool) {
	return n.byName.Get(NameKey(name, locale))
}

// ConstructNamed builds an entity and registers it under its id and under
// its name in locale.
func (n *Named[T]) ConstructNamed(payload census.Payload, exec census.Executor, locale string, joinKeys ...string) (T, error) {
	entity, err := n.Construct(payload, exec, joinKeys...)
	if err != nil {
		return entity, err
	}
	if locale == "" {
		locale = DefaultLocale
	}
	n.byName.Add(NameKey(entity.Name(locale), locale), entity)
	return entity, nil
}

// GetByName returns the entity called name in locale. The match is always
// case-insensitive. A missing entity is reported with false.
func (n *Named[T]) GetByName(ctx context.Context, exec census.Executor, name, locale string) (T, bool, error) {
	var zero T
	if locale == "" {
		locale = DefaultLocale
	}

	key := NameKey(name, locale)
	n.logger.DebugContext(ctx, "entity requested by name", "name", name, "locale", locale)
	if entity, ok := n.byName.Get(key); ok {
		n.logger.DebugContext(ctx, "entity restored from cache", "name", name, "locale", locale)
		return entity, true, nil
	}
	n.logger.DebugContext(ctx, "entity not cached, generating query", "name", name, "locale", locale)

	rows, err := n.dispatch(ctx, exec, n.nameQuery(name, locale))
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}

	entity, err := n.Construct(rows[0], exec)
	if err != nil {
		return zero, false, err
	}
	n.byName.Add(key, entity)
	return entity, true, nil
}

func (n *Named[T]) nameQuery(name, locale string) *query.Query {
	if n.querier != nil {
		return n.querier.NameQuery(name, locale).Limit(1)
	}
	return n.Query().Where("name."+locale, name).Case(false).Limit(1)
}
