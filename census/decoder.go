package census

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-census/internal/errs"
)

// NullValue is how the Census API spells a missing optional value.
const NullValue = "NULL"

// Locale is a localised string keyed by language code (de, en, es, fr, it, ...).
type Locale map[string]string

// Get returns the text for lang.
func (l Locale) Get(lang string) (string, bool) {
	s, ok := l[lang]
	return s, ok
}

// Decoder reads typed fields out of a payload and remembers which top level
// keys were consumed. The first failure is kept and reported by Err; later
// reads return zero values.
type Decoder struct {
	data     Payload
	path     string
	root     *Decoder
	consumed map[string]struct{}
	err      error
}

// NewDecoder returns a decoder over p. p is not modified.
func NewDecoder(p Payload) *Decoder {
	d := &Decoder{data: p, consumed: make(map[string]struct{})}
	d.root = d
	return d
}

// Err returns the first decoding failure as a PayloadError, or nil.
func (d *Decoder) Err() error {
	return d.root.err
}

// Unconsumed returns the sorted top level keys no accessor has read.
func (d *Decoder) Unconsumed() []string {
	var keys []string
	for k := range d.data {
		if _, ok := d.consumed[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is present and not null, without consuming it.
func (d *Decoder) Has(key string) bool {
	v, ok := d.find(key)
	return ok && !isNull(v)
}

// Skip marks keys as consumed without reading them.
func (d *Decoder) Skip(keys ...string) {
	for _, k := range keys {
		d.consume(k)
	}
}

// Raw returns the untyped value under key.
func (d *Decoder) Raw(key string) (any, bool) {
	d.consume(key)
	return d.find(key)
}

// Int reads a required integer.
func (d *Decoder) Int(key string) int {
	v, ok := d.required(key)
	if !ok {
		return 0
	}
	n, err := toInt(v)
	if err != nil {
		d.invalid(key, v, err)
		return 0
	}
	return n
}

// OptionalInt reads an integer that may be absent or null.
func (d *Decoder) OptionalInt(key string) *int {
	v, ok := d.optional(key)
	if !ok {
		return nil
	}
	n, err := toInt(v)
	if err != nil {
		d.invalid(key, v, err)
		return nil
	}
	return &n
}

// Float reads a required number.
func (d *Decoder) Float(key string) float64 {
	v, ok := d.required(key)
	if !ok {
		return 0
	}
	f, err := toFloat(v)
	if err != nil {
		d.invalid(key, v, err)
		return 0
	}
	return f
}

// String reads a required string. Numbers are rendered as text.
func (d *Decoder) String(key string) string {
	v, ok := d.required(key)
	if !ok {
		return ""
	}
	return toString(v)
}

// OptionalString reads a string that may be absent or null.
func (d *Decoder) OptionalString(key string) *string {
	v, ok := d.optional(key)
	if !ok {
		return nil
	}
	s := toString(v)
	return &s
}

// Bool reads a required flag. Census encodes flags as "1"/"0" or "true"/"false".
func (d *Decoder) Bool(key string) bool {
	v, ok := d.required(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			d.invalid(key, v, err)
			return false
		}
		return parsed
	}
	n, err := toInt(v)
	if err != nil {
		d.invalid(key, v, err)
		return false
	}
	return n != 0
}

// Time reads a required UTC unix timestamp in seconds.
func (d *Decoder) Time(key string) time.Time {
	v, ok := d.required(key)
	if !ok {
		return time.Time{}
	}
	n, err := toInt(v)
	if err != nil {
		d.invalid(key, v, err)
		return time.Time{}
	}
	return time.Unix(int64(n), 0).UTC()
}

// Locale reads a localised string object.
func (d *Decoder) Locale(key string) Locale {
	v, ok := d.required(key)
	if !ok {
		return nil
	}
	obj, ok := asObject(v)
	if !ok || len(obj) == 0 {
		d.invalid(key, v, fmt.Errorf("expected a locale object"))
		return nil
	}
	out := make(Locale, len(obj))
	for lang, text := range obj {
		out[lang] = toString(text)
	}
	return out
}

// Object returns a decoder for a required nested object. Failures inside it
// are reported by the parent's Err.
func (d *Decoder) Object(key string) *Decoder {
	v, ok := d.required(key)
	obj, isObj := asObject(v)
	if ok && !isObj {
		d.invalid(key, v, fmt.Errorf("expected an object"))
	}
	if obj == nil {
		obj = Payload{}
	}
	return &Decoder{
		data:     obj,
		path:     d.qualify(key) + ".",
		root:     d.root,
		consumed: make(map[string]struct{}),
	}
}

// Ints reads a list of integers, given either as a list or a comma separated string.
func (d *Decoder) Ints(key string) []int {
	v, ok := d.optional(key)
	if !ok {
		return nil
	}

	var raw []any
	switch list := v.(type) {
	case []any:
		raw = list
	case string:
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				raw = append(raw, part)
			}
		}
	default:
		d.invalid(key, v, fmt.Errorf("expected a list"))
		return nil
	}

	out := make([]int, 0, len(raw))
	for _, item := range raw {
		n, err := toInt(item)
		if err != nil {
			d.invalid(key, item, err)
			return nil
		}
		out = append(out, n)
	}
	return out
}

// Params reads the numbered optional slots prefix1..prefixN into a fixed
// size slice. Absent and null slots are left empty.
func (d *Decoder) Params(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		key := prefix + strconv.Itoa(i+1)
		if v, ok := d.optional(key); ok {
			out[i] = toString(v)
		}
	}
	return out
}

func (d *Decoder) required(key string) (any, bool) {
	d.consume(key)
	v, ok := d.find(key)
	if !ok || v == nil {
		d.fail(key, fmt.Sprintf("missing key %q", d.qualify(key)))
		return nil, false
	}
	return v, true
}

func (d *Decoder) optional(key string) (any, bool) {
	d.consume(key)
	v, ok := d.find(key)
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

// find resolves dotted keys through nested objects.
func (d *Decoder) find(key string) (any, bool) {
	if v, ok := d.data[key]; ok {
		return v, true
	}
	parts := strings.Split(key, ".")
	if len(parts) == 1 {
		return nil, false
	}
	var cur any = map[string]any(d.data)
	for _, part := range parts {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (d *Decoder) consume(key string) {
	if _, ok := d.data[key]; ok {
		d.consumed[key] = struct{}{}
		return
	}
	top, _, _ := strings.Cut(key, ".")
	d.consumed[top] = struct{}{}
}

func (d *Decoder) qualify(key string) string {
	return d.path + key
}

func (d *Decoder) invalid(key string, value any, cause error) {
	d.fail(key, fmt.Sprintf("invalid value %v for key %q: %v", value, d.qualify(key), cause))
}

func (d *Decoder) fail(key, message string) {
	if d.root.err != nil {
		return
	}
	d.root.err = errs.Payload(message, map[string]any{"key": d.qualify(key)})
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == NullValue
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
