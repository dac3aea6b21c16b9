package census

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-census/internal/errs"
)

// Entity is a typed object identified by its type name and numeric id.
type Entity interface {
	ID() int
	TypeName() string
}

// Object carries the identity shared by every entity. Embed it by value.
type Object struct {
	id       int
	typeName string
	exec     Executor
}

// NewObject returns the identity of a typeName entity.
func NewObject(typeName string, id int, exec Executor) Object {
	return Object{id: id, typeName: typeName, exec: exec}
}

func (o Object) ID() int { return o.id }

func (o Object) TypeName() string { return o.typeName }

// Executor returns the executor the entity was loaded through. Relations
// resolve through it.
func (o Object) Executor() Executor { return o.exec }

func (o Object) String() string {
	return fmt.Sprintf("<%s:%d>", o.typeName, o.id)
}

// Equal reports whether a and b are the same entity: same type, same id.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.TypeName() == b.TypeName() && a.ID() == b.ID()
}

// Hash derives a hash from the entity's type and id.
func Hash(e Entity) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(e.ID()))
	d := xxhash.New()
	_, _ = d.WriteString(e.TypeName())
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

// Kind describes how an entity type maps onto its collection and how it is
// built from a payload.
type Kind[T Entity] interface {
	TypeName() string
	Collection() string
	IDField() string
	// Build reads the type's fields through d. obj already holds the id.
	Build(obj Object, d *Decoder) (T, error)
}

// ConstructOptions tune Construct.
type ConstructOptions struct {
	// Observer receives unexpected payload keys. Nil disables reporting.
	Observer Observer
	// JoinKeys are injected join keys that must not be reported.
	JoinKeys []string
	Logger   *slog.Logger
}

// Construct builds an entity of kind from payload. A missing or non numeric
// id, a missing required field or a failed coercion is a PayloadError.
// Payload keys the kind did not read are reported to the observer; keys
// containing "_join_" and the given join keys are ignored.
func Construct[T Entity](kind Kind[T], payload Payload, exec Executor, opts ConstructOptions) (T, error) {
	var zero T
	meta := map[string]any{"type": kind.TypeName(), "collection": kind.Collection()}

	rawID, ok := payload[kind.IDField()]
	if !ok {
		return zero, errs.Payload(
			fmt.Sprintf("unable to populate %s due to a missing key: %s", kind.TypeName(), kind.IDField()), meta)
	}
	id, err := toInt(rawID)
	if err != nil {
		return zero, errs.WrapPayload(err,
			fmt.Sprintf("unable to populate %s: invalid id %v", kind.TypeName(), rawID), meta)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("instantiating entity", "type", kind.TypeName(), "id", id)

	d := NewDecoder(payload)
	d.Skip(kind.IDField())

	entity, err := kind.Build(NewObject(kind.TypeName(), id, exec), d)
	if err == nil {
		err = d.Err()
	}
	if err != nil {
		meta["id"] = id
		return zero, errs.WrapPayload(err, fmt.Sprintf("unable to instantiate %s", kind.TypeName()), meta)
	}

	if opts.Observer != nil {
		if extra := unexpectedKeys(d.Unconsumed(), opts.JoinKeys); len(extra) > 0 {
			opts.Observer.UnexpectedKeys(kind.TypeName(), id, extra)
		}
	}
	return entity, nil
}

func unexpectedKeys(keys, joinKeys []string) []string {
	var out []string
	for _, k := range keys {
		if strings.Contains(k, "_join_") || contains(joinKeys, k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
