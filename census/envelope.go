package census

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-census/internal/errs"
)

// Payload is one raw object as returned by the API.
type Payload map[string]any

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Envelope is a decoded response: {"<collection>_list": [...], "returned": n}.
type Envelope map[string]any

// NewEnvelope wraps rows in the list envelope of collection.
func NewEnvelope(collection string, rows []Payload) Envelope {
	list := make([]any, len(rows))
	for i, row := range rows {
		list[i] = map[string]any(row)
	}
	return Envelope{
		ListKey(collection): list,
		"returned":          len(rows),
	}
}

// ListKey returns the envelope key holding the results for collection.
func ListKey(collection string) string {
	return collection + "_list"
}

// List returns the ordered raw objects for collection. A missing list key or
// a list holding something other than objects is a PayloadError.
func (e Envelope) List(collection string) ([]Payload, error) {
	key := ListKey(collection)
	raw, ok := e[key]
	if !ok {
		return nil, errs.Payload(fmt.Sprintf("missing key %q in response", key), map[string]any{
			"collection": collection,
			"key":        key,
		})
	}

	items, ok := raw.([]any)
	if !ok {
		if typed, isPayloads := raw.([]Payload); isPayloads {
			return typed, nil
		}
		return nil, errs.Payload(fmt.Sprintf("key %q is not a list", key), map[string]any{
			"collection": collection,
			"key":        key,
		})
	}

	out := make([]Payload, 0, len(items))
	for i, item := range items {
		obj, ok := asObject(item)
		if !ok {
			return nil, errs.Payload(fmt.Sprintf("item %d of %q is not an object", i, key), map[string]any{
				"collection": collection,
				"index":      i,
			})
		}
		out = append(out, obj)
	}
	return out, nil
}

// Single returns the first object for collection. An empty list is reported
// as not found, not as an error.
func (e Envelope) Single(collection string) (Payload, bool, error) {
	items, err := e.List(collection)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	return items[0], true, nil
}

// Returned reports the "returned" counter, or -1 when it is absent or unreadable.
func (e Envelope) Returned() int {
	n, err := toInt(e["returned"])
	if err != nil {
		return -1
	}
	return n
}

// ParseCount reads the "count" key of a count response.
func ParseCount(raw map[string]any) (int, error) {
	value, ok := raw["count"]
	if !ok {
		return 0, errs.Payload(`missing key "count" in response`, nil)
	}
	n, err := toInt(value)
	if err != nil {
		return 0, errs.Payload(fmt.Sprintf("invalid count: %v", value), map[string]any{"count": value})
	}
	return n, nil
}

func asObject(v any) (Payload, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return Payload(obj), true
	case Payload:
		return obj, true
	}
	return nil, false
}

// toInt accepts the shapes numbers take after JSON or YAML decoding,
// including Census' habit of quoting them.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	case nil:
		return 0, fmt.Errorf("value is missing")
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}
