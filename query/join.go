package query

import (
	"strconv"
	"strings"
)

// Join inlines a related collection into each result of its parent query.
//
// The joined collection, its terms, limit and nested joins live on Inner.
// OnField is the parent field to match, ToField the child field it is
// compared against; both default to the parent's id field.
type Join struct {
	Inner      *Query
	IsList     bool
	OnField    string
	ToField    string
	ShowFields []string
	HideFields []string
	InjectKey  string
	IsOuter    bool
}

func newJoin(collection string) *Join {
	inner := New(collection)
	return &Join{Inner: inner, IsOuter: true}
}

// NewJoin returns a detached join, see Query.AddJoin.
func NewJoin(collection string) *Join {
	return newJoin(collection)
}

// Collection returns the joined collection.
func (j *Join) Collection() string {
	return j.Inner.Collection
}

// List marks the relation as one-to-many; the result is injected as a list.
func (j *Join) List(enabled bool) *Join {
	j.IsList = enabled
	return j
}

// On sets the parent field used for matching.
func (j *Join) On(field string) *Join {
	j.OnField = field
	return j
}

// To sets the child field used for matching.
func (j *Join) To(field string) *Join {
	j.ToField = field
	return j
}

// Fields sets both sides of the mapping. An empty to reuses on.
func (j *Join) Fields(on, to string) *Join {
	if to == "" {
		to = on
	}
	j.OnField = on
	j.ToField = to
	return j
}

// Show restricts the fields of the joined objects.
func (j *Join) Show(fields ...string) *Join {
	j.ShowFields = append(j.ShowFields, fields...)
	return j
}

// Hide removes fields from the joined objects.
func (j *Join) Hide(fields ...string) *Join {
	j.HideFields = append(j.HideFields, fields...)
	return j
}

// InjectAt sets the key under which joined data is added to the parent.
func (j *Join) InjectAt(key string) *Join {
	j.InjectKey = key
	return j
}

// Outer controls whether parents without a match are kept (the default).
func (j *Join) Outer(enabled bool) *Join {
	j.IsOuter = enabled
	return j
}

// Where adds an equality term to the joined collection.
func (j *Join) Where(field string, value any) *Join {
	j.Inner.Where(field, value)
	return j
}

// WhereOp adds a term with a modifier to the joined collection.
func (j *Join) WhereOp(field string, op Op, value any) *Join {
	j.Inner.WhereOp(field, op, value)
	return j
}

// Limit caps the number of joined objects per parent.
func (j *Join) Limit(n int) *Join {
	j.Inner.Limit(n)
	return j
}

// CreateJoin nests a join inside this one.
func (j *Join) CreateJoin(collection string) *Join {
	return j.Inner.CreateJoin(collection)
}

// OnOr returns the effective parent field, falling back to parentIDField.
func (j *Join) OnOr(parentIDField string) string {
	if j.OnField != "" {
		return j.OnField
	}
	return parentIDField
}

// ToOr returns the effective child field.
func (j *Join) ToOr(parentIDField string) string {
	if j.ToField != "" {
		return j.ToField
	}
	return j.OnOr(parentIDField)
}

// Key returns the injection key. Without an explicit key Census uses
// "<on>_join_<collection>".
func (j *Join) Key(parentIDField string) string {
	if j.InjectKey != "" {
		return j.InjectKey
	}
	return j.OnOr(parentIDField) + "_join_" + j.Collection()
}

// Clone returns a deep copy including nested joins.
func (j *Join) Clone() *Join {
	if j == nil {
		return nil
	}
	c := *j
	c.Inner = j.Inner.Clone()
	c.ShowFields = append([]string(nil), j.ShowFields...)
	c.HideFields = append([]string(nil), j.HideFields...)
	return &c
}

func (j *Join) encode() string {
	parts := []string{"type:" + j.Collection()}
	if j.OnField != "" {
		parts = append(parts, "on:"+j.OnField)
	}
	if j.ToField != "" {
		parts = append(parts, "to:"+j.ToField)
	}
	if j.IsList {
		parts = append(parts, "list:1")
	}
	if len(j.ShowFields) > 0 {
		parts = append(parts, "show:"+strings.Join(j.ShowFields, "'"))
	}
	if len(j.HideFields) > 0 {
		parts = append(parts, "hide:"+strings.Join(j.HideFields, "'"))
	}
	if j.InjectKey != "" {
		parts = append(parts, "inject_at:"+j.InjectKey)
	}
	if len(j.Inner.Terms) > 0 {
		terms := make([]string, len(j.Inner.Terms))
		for i, t := range j.Inner.Terms {
			terms[i] = t.String()
		}
		parts = append(parts, "terms:"+strings.Join(terms, "'"))
	}
	if j.Inner.MaxResults > 0 {
		parts = append(parts, "limit:"+strconv.Itoa(j.Inner.MaxResults))
	}
	if !j.IsOuter {
		parts = append(parts, "outer:0")
	}

	out := strings.Join(parts, "^")
	if len(j.Inner.Joins) > 0 {
		nested := make([]string, len(j.Inner.Joins))
		for i, n := range j.Inner.Joins {
			nested[i] = n.encode()
		}
		out += "(" + strings.Join(nested, ",") + ")"
	}
	return out
}
