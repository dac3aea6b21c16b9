package cache

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Fingerprinter is implemented by values that already know a stable hash of
// themselves, such as query descriptions.
type Fingerprinter interface {
	Fingerprint() uint64
}

// defaultKeySerializer renders scalars verbatim and hashes everything else.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey joins method and the serialized args with KeySeparator.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case Fingerprinter:
		return fmt.Sprintf("%016x", val.Fingerprint())
	case string:
		return val
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", val)
	}
	return s.hashFallback(v)
}

// hashFallback encodes v as msgpack with sorted map keys so equal values
// always produce the same digest.
func (s *defaultKeySerializer) hashFallback(v any) string {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(buf.Bytes()))
}
