package schema

import (
	"fmt"
	"strings"
)

// Type describes the host-side shape a wire value is raised into. It is a
// recursive tree: scalars are leaves, arrays and collections carry an element
// type, maps carry key and value types. Descriptors are read-only once built.
type Type struct {
	Kind       Kind           `json:"kind"`                 // scalar, array, collection, map, opaque
	Scalar     ScalarType     `json:"scalar,omitempty"`     // for scalar types
	Collection CollectionKind `json:"collection,omitempty"` // for collection types
	MapKind    MapKind        `json:"map_kind,omitempty"`   // for map types
	Elem       *Type          `json:"elem,omitempty"`       // for array and collection element type
	Key        *Type          `json:"key,omitempty"`        // for map key type
	Value      *Type          `json:"value,omitempty"`      // for map value type
	Nullable   bool           `json:"nullable,omitempty"`   // scalar accepts null

	// New optionally constructs an empty container for a collection. The
	// result must have an Add(...interface{}) or Enqueue(interface{}) method.
	// When nil a default container is chosen from Collection.
	New func() interface{} `json:"-"`
}

// Kind represents the kind of a type descriptor
type Kind string

const (
	KindScalar     Kind = "scalar"
	KindArray      Kind = "array"
	KindCollection Kind = "collection"
	KindMap        Kind = "map"
	KindOpaque     Kind = "opaque"
)

// ScalarType represents the scalar host types
type ScalarType string

const (
	TypeBool          ScalarType = "bool"
	TypeInt           ScalarType = "int"    // int32
	TypeLong          ScalarType = "long"   // int64
	TypeFloat         ScalarType = "float"  // float32
	TypeDouble        ScalarType = "double" // float64
	TypeString        ScalarType = "string"
	TypeBinary        ScalarType = "binary"         // []byte
	TypeDateTime      ScalarType = "datetime"       // time.Time with zone
	TypeLocalDateTime ScalarType = "local_datetime" // wire.LocalDateTime
	TypeTimestamp     ScalarType = "timestamp"      // *timestamppb.Timestamp
)

// CollectionKind represents the abstract collection shapes
type CollectionKind string

const (
	CollectionList      CollectionKind = "list"
	CollectionSet       CollectionKind = "set"
	CollectionSortedSet CollectionKind = "sorted_set"
	CollectionQueue     CollectionKind = "queue"
	CollectionDeque     CollectionKind = "deque"
)

// MapKind represents the map shapes
type MapKind string

const (
	MapHash   MapKind = "map"
	MapSorted MapKind = "sorted_map"
)

var primitiveScalars = map[ScalarType]struct{}{
	TypeBool:   {},
	TypeInt:    {},
	TypeLong:   {},
	TypeFloat:  {},
	TypeDouble: {},
}

var orderableScalars = map[ScalarType]struct{}{
	TypeInt:       {},
	TypeLong:      {},
	TypeFloat:     {},
	TypeDouble:    {},
	TypeString:    {},
	TypeDateTime:  {},
	TypeTimestamp: {},
}

var knownScalars = map[ScalarType]struct{}{
	TypeBool:          {},
	TypeInt:           {},
	TypeLong:          {},
	TypeFloat:         {},
	TypeDouble:        {},
	TypeString:        {},
	TypeBinary:        {},
	TypeDateTime:      {},
	TypeLocalDateTime: {},
	TypeTimestamp:     {},
}

// IsPrimitive reports whether t is a non-nullable bool or numeric scalar,
// the types that cannot hold null.
func (t *Type) IsPrimitive() bool {
	if t.Kind != KindScalar || t.Nullable {
		return false
	}
	_, ok := primitiveScalars[t.Scalar]
	return ok
}

// IsOrderable reports whether values of t have a natural order.
func (t *Type) IsOrderable() bool {
	if t.Kind != KindScalar || t.Nullable {
		return false
	}
	_, ok := orderableScalars[t.Scalar]
	return ok
}

// String renders t as e.g. "map<string, list<long>>".
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	var b strings.Builder
	t.format(&b)
	return b.String()
}

func (t *Type) format(b *strings.Builder) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}

	switch t.Kind {
	case KindScalar:
		b.WriteString(string(t.Scalar))
		if t.Nullable {
			b.WriteByte('?')
		}
	case KindArray:
		b.WriteString("array<")
		t.Elem.format(b)
		b.WriteByte('>')
	case KindCollection:
		b.WriteString(string(t.Collection))
		b.WriteByte('<')
		t.Elem.format(b)
		b.WriteByte('>')
	case KindMap:
		b.WriteString(string(t.MapKind))
		b.WriteByte('<')
		t.Key.format(b)
		b.WriteString(", ")
		t.Value.format(b)
		b.WriteByte('>')
	case KindOpaque:
		b.WriteString("opaque")
	default:
		fmt.Fprintf(b, "unknown(%s)", t.Kind)
	}
}
