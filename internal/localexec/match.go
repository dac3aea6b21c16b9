package localexec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-census/census"
	"github.com/goliatone/go-census/query"
)

// Lookup resolves a possibly dotted field inside p.
func Lookup(p census.Payload, field string) (any, bool) {
	if v, ok := p[field]; ok {
		return v, true
	}
	var cur any = map[string]any(p)
	for _, part := range strings.Split(field, ".") {
		obj, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Matches reports whether p satisfies every term.
func Matches(p census.Payload, terms []query.Term, caseSensitive bool) bool {
	for _, t := range terms {
		if !matchTerm(p, t, caseSensitive) {
			return false
		}
	}
	return true
}

// Apply filters rows and then applies exact match promotion, sorting,
// offset and limit in that order, the way the server does.
func Apply(rows []census.Payload, sel Selection) []census.Payload {
	out := make([]census.Payload, 0, len(rows))
	for _, row := range rows {
		if Matches(row, sel.Terms, sel.CaseSensitive) {
			out = append(out, row)
		}
	}

	if len(sel.Sort) > 0 {
		sortRows(out, sel.Sort)
	}
	if sel.ExactFirst {
		promoteExact(out, sel.Terms, sel.CaseSensitive)
	}

	if sel.Offset > 0 {
		if sel.Offset >= len(out) {
			return nil
		}
		out = out[sel.Offset:]
	}
	if sel.Limit > 0 && len(out) > sel.Limit {
		out = out[:sel.Limit]
	}
	return out
}

func matchTerm(p census.Payload, t query.Term, caseSensitive bool) bool {
	raw, ok := Lookup(p, t.Field)
	if !ok {
		return t.Op == query.NotEquals
	}
	actual := text(raw)

	if t.Op == query.NotEquals {
		for _, want := range t.Values() {
			if equal(actual, want, caseSensitive) {
				return false
			}
		}
		return true
	}

	for _, want := range t.Values() {
		if compare(actual, t.Op, want, caseSensitive) {
			return true
		}
	}
	return false
}

func compare(actual string, op query.Op, want string, caseSensitive bool) bool {
	switch op {
	case query.Equals:
		return equal(actual, want, caseSensitive)
	case query.StartsWith:
		a, w := fold(actual, want, caseSensitive)
		return strings.HasPrefix(a, w)
	case query.Contains:
		a, w := fold(actual, want, caseSensitive)
		return strings.Contains(a, w)
	case query.Less, query.LessOrEqual, query.Greater, query.GreaterOrEqual:
		c := order(actual, want)
		switch op {
		case query.Less:
			return c < 0
		case query.LessOrEqual:
			return c <= 0
		case query.Greater:
			return c > 0
		default:
			return c >= 0
		}
	}
	return false
}

func equal(actual, want string, caseSensitive bool) bool {
	if caseSensitive {
		return actual == want
	}
	return strings.EqualFold(actual, want)
}

func fold(a, b string, caseSensitive bool) (string, string) {
	if caseSensitive {
		return a, b
	}
	return strings.ToLower(a), strings.ToLower(b)
}

// order compares numerically when both sides are numbers.
func order(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// promoteExact moves rows whose non-exact terms match exactly to the front,
// keeping the relative order otherwise.
func promoteExact(rows []census.Payload, terms []query.Term, caseSensitive bool) {
	var partial []query.Term
	for _, t := range terms {
		if t.Op == query.StartsWith || t.Op == query.Contains {
			partial = append(partial, t)
		}
	}
	if len(partial) == 0 {
		return
	}

	exact := func(row census.Payload) bool {
		for _, t := range partial {
			raw, ok := Lookup(row, t.Field)
			if !ok || !equal(text(raw), t.Value, caseSensitive) {
				return false
			}
		}
		return true
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return exact(rows[i]) && !exact(rows[j])
	})
}

func sortRows(rows []census.Payload, fields []string) {
	type key struct {
		field string
		desc  bool
	}
	keys := make([]key, 0, len(fields))
	for _, f := range fields {
		name, dir, _ := strings.Cut(f, ":")
		keys = append(keys, key{field: name, desc: dir == "-1"})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, _ := Lookup(rows[i], k.field)
			b, _ := Lookup(rows[j], k.field)
			c := order(text(a), text(b))
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// project applies show and hide lists to top level keys.
func project(rows []census.Payload, show, hide []string) []census.Payload {
	if len(show) == 0 && len(hide) == 0 {
		return rows
	}
	out := make([]census.Payload, len(rows))
	for i, row := range rows {
		p := row.Clone()
		if len(show) > 0 {
			keep := make(map[string]struct{}, len(show))
			for _, f := range show {
				top, _, _ := strings.Cut(f, ".")
				keep[top] = struct{}{}
			}
			for k := range p {
				if _, ok := keep[k]; !ok {
					delete(p, k)
				}
			}
		}
		for _, f := range hide {
			delete(p, f)
		}
		out[i] = p
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case census.Payload:
		return m, true
	}
	return nil, false
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "1"
		}
		return "0"
	}
	return query.FormatValue(v)
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == census.NullValue
}
