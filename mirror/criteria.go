package mirror

import (
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-census/internal/localexec"
	"github.com/goliatone/go-census/query"
)

// predicate is one WHERE clause with its arguments.
type predicate struct {
	expr string
	args []any
}

func (p predicate) criteria() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(p.expr, p.args...)
	}
}

var comparisons = map[query.Op]string{
	query.Less:           "<",
	query.LessOrEqual:    "<=",
	query.Greater:        ">",
	query.GreaterOrEqual: ">=",
}

// predicateFor translates a Census term on column into SQL. Multiple values
// match any of them; ordering comparisons use the first value.
func predicateFor(t query.Term, column string, caseSensitive bool) predicate {
	col := bun.Ident(column)
	values := t.Values()

	switch t.Op {
	case query.Equals, query.NotEquals:
		not := t.Op == query.NotEquals
		if !caseSensitive && !numeric(values) {
			lowered := make([]string, len(values))
			for i, v := range values {
				lowered[i] = strings.ToLower(v)
			}
			if len(lowered) == 1 {
				return predicate{expr: "LOWER(?) " + eq(not) + " ?", args: []any{col, lowered[0]}}
			}
			return predicate{expr: "LOWER(?) " + in(not) + " (?)", args: []any{col, bun.In(lowered)}}
		}
		if len(values) == 1 {
			return predicate{expr: "? " + eq(not) + " ?", args: []any{col, sqlValue(values[0])}}
		}
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = sqlValue(v)
		}
		return predicate{expr: "? " + in(not) + " (?)", args: []any{col, bun.In(args)}}

	case query.StartsWith, query.Contains:
		target := "?"
		if !caseSensitive {
			target = "LOWER(?)"
		}
		clauses := make([]string, len(values))
		args := make([]any, 0, len(values)*2)
		for i, v := range values {
			if !caseSensitive {
				v = strings.ToLower(v)
			}
			pattern := escapeLike(v) + "%"
			if t.Op == query.Contains {
				pattern = "%" + pattern
			}
			clauses[i] = target + ` LIKE ? ESCAPE '\'`
			args = append(args, col, pattern)
		}
		if len(clauses) == 1 {
			return predicate{expr: clauses[0], args: args}
		}
		return predicate{expr: "(" + strings.Join(clauses, " OR ") + ")", args: args}
	}

	return predicate{expr: "? " + comparisons[t.Op] + " ?", args: []any{col, sqlValue(values[0])}}
}

func eq(not bool) string {
	if not {
		return "<>"
	}
	return "="
}

func in(not bool) string {
	if not {
		return "NOT IN"
	}
	return "IN"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// sqlValue binds integers as numbers so comparisons on numeric columns
// order numerically.
func sqlValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func numeric(values []string) bool {
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// checkTerms rejects terms with a modifier outside the Census set.
func checkTerms(sel localexec.Selection) error {
	for _, t := range sel.Terms {
		if !t.Op.Valid() {
			return goerrors.New(fmt.Sprintf("unknown search modifier %q", string(t.Op)), goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnknownModifier).
				WithMetadata(map[string]any{"collection": sel.Collection, "field": t.Field})
		}
	}
	return nil
}

// filters returns one criteria per term.
func (c *Collection) filters(sel localexec.Selection) []repository.SelectCriteria {
	out := make([]repository.SelectCriteria, 0, len(sel.Terms))
	for _, t := range sel.Terms {
		out = append(out, predicateFor(t, c.column(t.Field), sel.CaseSensitive).criteria())
	}
	return out
}

// noLimit clears the default page size repositories apply to List, so
// every matching row is returned.
func noLimit(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0)
}

// ordering returns the sort and pagination criteria. A selection without
// a limit clears the repository's default page size.
func (c *Collection) ordering(sel localexec.Selection) []repository.SelectCriteria {
	var out []repository.SelectCriteria
	for _, s := range sel.Sort {
		field, dir, _ := strings.Cut(s, ":")
		expr := "? ASC"
		if dir == "-1" {
			expr = "? DESC"
		}
		col := bun.Ident(c.column(field))
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr(expr, col)
		})
	}
	limit := 0
	if sel.Limit > 0 {
		limit = sel.Limit
	}
	out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(limit)
	})
	if sel.Offset > 0 {
		offset := sel.Offset
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Offset(offset)
		})
	}
	return out
}
