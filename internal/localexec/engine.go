// Package localexec answers Census queries from a local row source. It is
// shared by the repository mirror and the in-memory test executor.
package localexec

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/query"
)

// Selection is the part of a query a row source has to honour.
type Selection struct {
	Collection    string
	Terms         []query.Term
	CaseSensitive bool
	ExactFirst    bool
	Sort          []string
	Limit         int
	Offset        int
}

// SelectionFor extracts the selection of q.
func SelectionFor(q *query.Query) Selection {
	return Selection{
		Collection:    q.Collection,
		Terms:         append([]query.Term(nil), q.Terms...),
		CaseSensitive: q.CaseSensitive,
		ExactFirst:    q.ExactFirst,
		Sort:          q.SortFields,
		Limit:         q.MaxResults,
		Offset:        q.Start,
	}
}

// Source returns filtered, ordered and paginated rows for one collection.
type Source interface {
	Select(ctx context.Context, sel Selection) ([]census.Payload, error)
	Count(ctx context.Context, sel Selection) (int, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDField overrides how the id field of a collection is derived. It is
// the default join field. The default is "<collection>_id".
func WithIDField(fn func(collection string) string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.idField = fn
		}
	}
}

// WithIDFields sets explicit id fields per collection; others keep the default.
func WithIDFields(fields map[string]string) Option {
	return WithIDField(func(collection string) string {
		if f, ok := fields[collection]; ok {
			return f
		}
		return defaultIDField(collection)
	})
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine implements census.Executor on top of a Source.
type Engine struct {
	src     Source
	idField func(string) string
	logger  *slog.Logger
}

var _ census.Executor = (*Engine)(nil)

// New returns an engine reading from src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{
		src:     src,
		idField: defaultIDField,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultIDField(collection string) string {
	return collection + "_id"
}

// Execute selects the parent rows, resolves joins and wraps the result.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (census.Envelope, error) {
	if len(q.ResolveFields) > 0 {
		e.logger.DebugContext(ctx, "resolves are not supported locally, ignoring",
			"collection", q.Collection, "resolve", q.ResolveFields)
	}

	rows, err := e.src.Select(ctx, SelectionFor(q))
	if err != nil {
		return nil, err
	}
	rows, err = e.join(ctx, q.Collection, q.Joins, rows)
	if err != nil {
		return nil, err
	}
	rows = project(rows, q.ShowFields, q.HideFields)
	return census.NewEnvelope(q.Collection, rows), nil
}

// Count counts the rows matching q, ignoring pagination.
func (e *Engine) Count(ctx context.Context, q *query.Query) (int, error) {
	sel := SelectionFor(q)
	sel.Limit, sel.Offset = 0, 0
	return e.src.Count(ctx, sel)
}

// join injects the joined rows into copies of rows. Inner joins drop parents
// without a match.
func (e *Engine) join(ctx context.Context, parent string, joins []*query.Join, rows []census.Payload) ([]census.Payload, error) {
	if len(joins) == 0 {
		return rows, nil
	}

	parentID := e.idField(parent)
	out := make([]census.Payload, 0, len(rows))
	for _, row := range rows {
		row = row.Clone()
		keep := true

		for _, j := range joins {
			children, err := e.children(ctx, j, parentID, row)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				if !j.IsOuter {
					keep = false
					break
				}
				continue
			}

			key := j.Key(parentID)
			if j.IsList {
				list := make([]any, len(children))
				for i, c := range children {
					list[i] = map[string]any(c)
				}
				row[key] = list
			} else {
				row[key] = map[string]any(children[0])
			}
		}

		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

func (e *Engine) children(ctx context.Context, j *query.Join, parentID string, row census.Payload) ([]census.Payload, error) {
	value, ok := Lookup(row, j.OnOr(parentID))
	if !ok || isNull(value) {
		return nil, nil
	}

	sel := SelectionFor(j.Inner)
	sel.Terms = append(sel.Terms, query.NewTerm(j.ToOr(parentID), query.Equals, text(value)))
	if !j.IsList {
		sel.Limit = 1
	}

	children, err := e.src.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	children, err = e.join(ctx, j.Collection(), j.Inner.Joins, children)
	if err != nil {
		return nil, err
	}
	return project(children, j.ShowFields, j.HideFields), nil
}
