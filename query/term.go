package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a Census search modifier. It is written in front of the value in the
// encoded term, e.g. "battle_rank.value=]100".
type Op string

const (
	Equals         Op = ""
	NotEquals      Op = "!"
	Less           Op = "<"
	LessOrEqual    Op = "["
	Greater        Op = ">"
	GreaterOrEqual Op = "]"
	StartsWith     Op = "^"
	Contains       Op = "*"
)

// Valid reports whether op is one of the known modifiers.
func (op Op) Valid() bool {
	switch op {
	case Equals, NotEquals, Less, LessOrEqual, Greater, GreaterOrEqual, StartsWith, Contains:
		return true
	}
	return false
}

// Term is a single filter. Value holds the rendered value; multiple values
// are comma separated and match any of them.
type Term struct {
	Field string
	Op    Op
	Value string
}

// NewTerm renders value and returns the term.
func NewTerm(field string, op Op, value any) Term {
	return Term{Field: field, Op: op, Value: FormatValue(value)}
}

// Values splits a comma separated value into its parts.
func (t Term) Values() []string {
	if t.Value == "" {
		return []string{""}
	}
	return strings.Split(t.Value, ",")
}

// Encode returns the key/value pair as it appears in a Census URL.
func (t Term) Encode() (string, string) {
	return t.Field, string(t.Op) + t.Value
}

func (t Term) String() string {
	k, v := t.Encode()
	return k + "=" + v
}

// FormatValue renders a filter value the way the Census API expects it.
// Slices become comma separated lists, booleans become 1 or 0.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
