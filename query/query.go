// Package query describes Census fetches: a collection, ANDed filter terms,
// pagination, matching flags and nested joins. Building a query never
// performs I/O; executors turn the description into a response envelope.
package query

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Query is a declarative fetch against one collection.
//
// The zero CaseSensitive value is false, so use New to get the Census
// default of case-sensitive matching.
type Query struct {
	Collection    string
	Terms         []Term
	MaxResults    int
	Start         int
	CaseSensitive bool
	ExactFirst    bool
	ShowFields    []string
	HideFields    []string
	ResolveFields []string
	SortFields    []string
	Joins         []*Join
}

// New returns an empty, case-sensitive query for collection.
func New(collection string) *Query {
	return &Query{Collection: collection, CaseSensitive: true}
}

// Where adds an equality term.
func (q *Query) Where(field string, value any) *Query {
	return q.WhereOp(field, Equals, value)
}

// WhereOp adds a term using op. Terms are ANDed in the order they are added.
func (q *Query) WhereOp(field string, op Op, value any) *Query {
	q.Terms = append(q.Terms, NewTerm(field, op, value))
	return q
}

// AddTerms appends already built terms.
func (q *Query) AddTerms(terms ...Term) *Query {
	q.Terms = append(q.Terms, terms...)
	return q
}

// Limit sets the maximum number of results. Zero leaves the server default.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		n = 0
	}
	q.MaxResults = n
	return q
}

// Offset sets the number of results to skip.
func (q *Query) Offset(n int) *Query {
	if n < 0 {
		n = 0
	}
	q.Start = n
	return q
}

// CapLimit applies a call site maximum: an unset or larger limit is lowered to max.
func (q *Query) CapLimit(max int) *Query {
	if max > 0 && (q.MaxResults == 0 || q.MaxResults > max) {
		q.MaxResults = max
	}
	return q
}

// Case toggles case-sensitive matching. Case-insensitive lookups are
// considerably more expensive for the server.
func (q *Query) Case(sensitive bool) *Query {
	q.CaseSensitive = sensitive
	return q
}

// ExactMatchFirst sorts exact matches ahead of partial ones. It only has an
// effect together with non-exact terms such as StartsWith or Contains.
func (q *Query) ExactMatchFirst(enabled bool) *Query {
	q.ExactFirst = enabled
	return q
}

// Show restricts the returned fields.
func (q *Query) Show(fields ...string) *Query {
	q.ShowFields = append(q.ShowFields, fields...)
	return q
}

// Hide removes fields from the result.
func (q *Query) Hide(fields ...string) *Query {
	q.HideFields = append(q.HideFields, fields...)
	return q
}

// Resolve asks the server to inline named resolves such as "online_status".
func (q *Query) Resolve(names ...string) *Query {
	q.ResolveFields = append(q.ResolveFields, names...)
	return q
}

// Sort orders results. Use "field:-1" for descending order.
func (q *Query) Sort(fields ...string) *Query {
	q.SortFields = append(q.SortFields, fields...)
	return q
}

// CreateJoin attaches a join on collection and returns it for configuration.
func (q *Query) CreateJoin(collection string) *Join {
	j := newJoin(collection)
	q.Joins = append(q.Joins, j)
	return j
}

// AddJoin attaches an existing join.
func (q *Query) AddJoin(j *Join) *Query {
	q.Joins = append(q.Joins, j)
	return q
}

// ResolveDefaults fills the empty On and To fields of the top level joins
// with the parent's id field.
func (q *Query) ResolveDefaults(idField string) *Query {
	for _, j := range q.Joins {
		if j.OnField == "" {
			j.OnField = idField
		}
		if j.ToField == "" {
			j.ToField = j.OnField
		}
	}
	return q
}

// InjectKeys returns the payload keys the top level joins inject into each
// result. idField is used for joins whose On field is still unset.
func (q *Query) InjectKeys(idField string) []string {
	keys := make([]string, 0, len(q.Joins))
	for _, j := range q.Joins {
		keys = append(keys, j.Key(idField))
	}
	return keys
}

// Clone returns a deep copy.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := *q
	c.Terms = append([]Term(nil), q.Terms...)
	c.ShowFields = append([]string(nil), q.ShowFields...)
	c.HideFields = append([]string(nil), q.HideFields...)
	c.ResolveFields = append([]string(nil), q.ResolveFields...)
	c.SortFields = append([]string(nil), q.SortFields...)
	c.Joins = nil
	for _, j := range q.Joins {
		c.Joins = append(c.Joins, j.Clone())
	}
	return &c
}

// Values encodes the query the way the Census REST API expects it.
func (q *Query) Values() url.Values {
	v := url.Values{}
	for _, t := range q.Terms {
		key, value := t.Encode()
		v.Add(key, value)
	}
	if q.MaxResults > 0 {
		v.Set("c:limit", strconv.Itoa(q.MaxResults))
	}
	if q.Start > 0 {
		v.Set("c:start", strconv.Itoa(q.Start))
	}
	if !q.CaseSensitive {
		v.Set("c:case", "false")
	}
	if q.ExactFirst {
		v.Set("c:exactMatchFirst", "true")
	}
	if len(q.ShowFields) > 0 {
		v.Set("c:show", strings.Join(q.ShowFields, ","))
	}
	if len(q.HideFields) > 0 {
		v.Set("c:hide", strings.Join(q.HideFields, ","))
	}
	if len(q.ResolveFields) > 0 {
		v.Set("c:resolve", strings.Join(q.ResolveFields, ","))
	}
	if len(q.SortFields) > 0 {
		v.Set("c:sort", strings.Join(q.SortFields, ","))
	}
	if len(q.Joins) > 0 {
		joins := make([]string, len(q.Joins))
		for i, j := range q.Joins {
			joins[i] = j.encode()
		}
		v.Set("c:join", strings.Join(joins, ","))
	}
	return v
}

// String renders "collection?key=value&..." without URL escaping.
func (q *Query) String() string {
	encoded, err := url.QueryUnescape(q.Values().Encode())
	if err != nil {
		encoded = q.Values().Encode()
	}
	if encoded == "" {
		return q.Collection
	}
	return q.Collection + "?" + encoded
}

// Fingerprint returns a stable hash of the query. Two queries with the same
// collection, terms, flags and joins share a fingerprint.
func (q *Query) Fingerprint() uint64 {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(q); err != nil {
		return xxhash.Sum64String(q.String())
	}
	return xxhash.Sum64(buf.Bytes())
}
