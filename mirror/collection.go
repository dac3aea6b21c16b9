package mirror

import (
	"context"
	"encoding/json"
	"strings"

	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/internal/errs"
	"github.com/goliatone/go-census/internal/localexec"
)

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithColumn maps a Census field, possibly dotted, to a table column.
// Unmapped fields use the field name with dots replaced by underscores.
func WithColumn(field, column string) CollectionOption {
	return func(c *Collection) {
		c.columns[field] = column
	}
}

// WithIDField sets the id field used as the default join key. The default
// is "<name>_id".
func WithIDField(field string) CollectionOption {
	return func(c *Collection) {
		if field != "" {
			c.idField = field
		}
	}
}

// WithLocalFiltering loads the whole table and evaluates queries in memory.
// It suits small reference tables and repositories that cannot express
// every filter in SQL.
func WithLocalFiltering() CollectionOption {
	return func(c *Collection) {
		c.local = true
	}
}

// Collection adapts a repository to the rows of one Census collection.
type Collection struct {
	name    string
	idField string
	columns map[string]string
	local   bool
	list    func(ctx context.Context, criteria ...repository.SelectCriteria) ([]census.Payload, error)
	count   func(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
}

var _ localexec.Source = (*Collection)(nil)

// NewCollection adapts repo as the collection name.
func NewCollection[T any](name string, repo repository.Repository[T], opts ...CollectionOption) *Collection {
	c := &Collection{
		name:    name,
		idField: name + "_id",
		columns: make(map[string]string),
		list: func(ctx context.Context, criteria ...repository.SelectCriteria) ([]census.Payload, error) {
			records, _, err := repo.List(ctx, criteria...)
			if err != nil {
				return nil, err
			}
			return encodeRecords(name, records)
		},
		count: repo.Count,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// IDField returns the id field of the collection.
func (c *Collection) IDField() string { return c.idField }

func (c *Collection) column(field string) string {
	if col, ok := c.columns[field]; ok {
		return col
	}
	return strings.ReplaceAll(field, ".", "_")
}

// Select returns the rows matching sel. Exact match promotion has no SQL
// form, so those selections only push the filters down and order and
// paginate in memory.
func (c *Collection) Select(ctx context.Context, sel localexec.Selection) ([]census.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkTerms(sel); err != nil {
		return nil, err
	}

	switch {
	case c.local:
		rows, err := c.list(ctx, noLimit)
		if err != nil {
			return nil, err
		}
		return localexec.Apply(rows, sel), nil

	case sel.ExactFirst:
		rows, err := c.list(ctx, append(c.filters(sel), noLimit)...)
		if err != nil {
			return nil, err
		}
		return localexec.Apply(rows, sel), nil
	}

	criteria := append(c.filters(sel), c.ordering(sel)...)
	return c.list(ctx, criteria...)
}

// Count counts the rows matching the terms of sel.
func (c *Collection) Count(ctx context.Context, sel localexec.Selection) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkTerms(sel); err != nil {
		return 0, err
	}
	if c.local {
		rows, err := c.list(ctx, noLimit)
		if err != nil {
			return 0, err
		}
		sel.Limit, sel.Offset = 0, 0
		return len(localexec.Apply(rows, sel)), nil
	}
	return c.count(ctx, c.filters(sel)...)
}

func encodeRecords[T any](collection string, records []T) ([]census.Payload, error) {
	out := make([]census.Payload, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, errs.WrapPayload(err, "cannot encode record", map[string]any{"collection": collection})
		}
		var p census.Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errs.WrapPayload(err, "record is not an object", map[string]any{"collection": collection})
		}
		out = append(out, p)
	}
	return out, nil
}
