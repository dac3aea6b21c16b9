package entitycache

import (
	"context"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/query"
)

// Constructor builds an entity from one result payload.
type Constructor[T any] func(payload census.Payload, exec census.Executor) (T, error)

// InstanceProxy is a deferred fetch of at most one entity. It holds no
// result: every Resolve dispatches again.
type InstanceProxy[T any] struct {
	q     *query.Query
	exec  census.Executor
	build Constructor[T]
}

// NewInstanceProxy returns a proxy for the first result of q.
func NewInstanceProxy[T any](q *query.Query, exec census.Executor, build Constructor[T]) *InstanceProxy[T] {
	return &InstanceProxy[T]{q: q.Clone(), exec: exec, build: build}
}

// Query returns a copy of the proxied query.
func (p *InstanceProxy[T]) Query() *query.Query {
	return p.q.Clone()
}

// Resolve dispatches the query with a limit of one. Absence is reported
// with false.
func (p *InstanceProxy[T]) Resolve(ctx context.Context) (T, bool, error) {
	var zero T

	q := p.q.Clone().Limit(1)
	env, err := p.exec.Execute(ctx, q)
	if err != nil {
		return zero, false, err
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	row, ok, err := env.Single(q.Collection)
	if err != nil || !ok {
		return zero, false, err
	}
	entity, err := p.build(row, p.exec)
	if err != nil {
		return zero, false, err
	}
	return entity, true, nil
}

// SequenceProxy is a deferred fetch of an ordered list of entities.
type SequenceProxy[T any] struct {
	q     *query.Query
	exec  census.Executor
	build Constructor[T]
}

// NewSequenceProxy returns a proxy for the results of q.
func NewSequenceProxy[T any](q *query.Query, exec census.Executor, build Constructor[T]) *SequenceProxy[T] {
	return &SequenceProxy[T]{q: q.Clone(), exec: exec, build: build}
}

// Limit is the declared maximum number of results. Zero means the server default.
func (p *SequenceProxy[T]) Limit() int {
	return p.q.MaxResults
}

// Query returns a copy of the proxied query.
func (p *SequenceProxy[T]) Query() *query.Query {
	return p.q.Clone()
}

// Resolve dispatches the query and builds the results in server order. An
// executor returning more rows than the declared limit is cut at the limit.
func (p *SequenceProxy[T]) Resolve(ctx context.Context) ([]T, error) {
	q := p.q.Clone()
	env, err := p.exec.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := env.List(q.Collection)
	if err != nil {
		return nil, err
	}
	if limit := q.MaxResults; limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		entity, err := p.build(row, p.exec)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// Each resolves the proxy and calls fn for every entity until fn returns false.
func (p *SequenceProxy[T]) Each(ctx context.Context, fn func(T) bool) error {
	items, err := p.Resolve(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if !fn(item) {
			break
		}
	}
	return nil
}
