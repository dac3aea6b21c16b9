package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/internal/localexec"
	"github.com/goliatone/go-census/query"
)

const (
	// TextCodeUnknownCollection marks queries for collections the mirror does not hold.
	TextCodeUnknownCollection = "UNKNOWN_COLLECTION"

	// TextCodeUnknownModifier marks terms whose search modifier has no SQL form.
	TextCodeUnknownModifier = "UNKNOWN_MODIFIER"
)

// Executor answers Census queries from mirrored collections.
type Executor struct {
	router *router
	engine *localexec.Engine
}

var _ census.Executor = (*Executor)(nil)

// New returns an executor over collections. Later collections replace
// earlier ones with the same name.
func New(collections ...*Collection) *Executor {
	r := &router{collections: make(map[string]*Collection, len(collections))}
	for _, c := range collections {
		r.collections[c.Name()] = c
	}
	e := &Executor{router: r}
	return e.WithLogger(slog.Default())
}

// WithLogger sets the logger used by the query engine.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.engine = localexec.New(e.router,
		localexec.WithIDField(e.router.idField),
		localexec.WithLogger(logger),
	)
	return e
}

// Collections lists the mirrored collection names.
func (e *Executor) Collections() []string {
	names := make([]string, 0, len(e.router.collections))
	for name := range e.router.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Executor) Execute(ctx context.Context, q *query.Query) (census.Envelope, error) {
	return e.engine.Execute(ctx, q)
}

func (e *Executor) Count(ctx context.Context, q *query.Query) (int, error) {
	return e.engine.Count(ctx, q)
}

// router dispatches selections to the collection they name.
type router struct {
	collections map[string]*Collection
}

func (r *router) Select(ctx context.Context, sel localexec.Selection) ([]census.Payload, error) {
	c, err := r.collection(sel.Collection)
	if err != nil {
		return nil, err
	}
	return c.Select(ctx, sel)
}

func (r *router) Count(ctx context.Context, sel localexec.Selection) (int, error) {
	c, err := r.collection(sel.Collection)
	if err != nil {
		return 0, err
	}
	return c.Count(ctx, sel)
}

func (r *router) collection(name string) (*Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("collection %q is not mirrored", name), goerrors.CategoryNotFound).
			WithTextCode(TextCodeUnknownCollection).
			WithMetadata(map[string]any{"collection": name})
	}
	return c, nil
}

func (r *router) idField(collection string) string {
	if c, ok := r.collections[collection]; ok {
		return c.IDField()
	}
	return collection + "_id"
}
