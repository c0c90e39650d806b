package schema

// Scalar descriptors. Each call returns a fresh descriptor so callers may set
// New or Nullable without affecting others.

func BoolType() *Type          { return ScalarOf(TypeBool) }
func IntType() *Type           { return ScalarOf(TypeInt) }
func LongType() *Type          { return ScalarOf(TypeLong) }
func FloatType() *Type         { return ScalarOf(TypeFloat) }
func DoubleType() *Type        { return ScalarOf(TypeDouble) }
func StringType() *Type        { return ScalarOf(TypeString) }
func BinaryType() *Type        { return ScalarOf(TypeBinary) }
func DateTimeType() *Type      { return ScalarOf(TypeDateTime) }
func LocalDateTimeType() *Type { return ScalarOf(TypeLocalDateTime) }
func TimestampType() *Type     { return ScalarOf(TypeTimestamp) }

// ScalarOf returns a scalar descriptor.
func ScalarOf(s ScalarType) *Type {
	return &Type{Kind: KindScalar, Scalar: s}
}

// NullableType returns a copy of t that accepts null.
func NullableType(t *Type) *Type {
	c := *t
	c.Nullable = true
	return &c
}

// OpaqueType accepts any decoded value as-is.
func OpaqueType() *Type {
	return &Type{Kind: KindOpaque}
}

// ArrayOf describes a Go slice of elem.
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// CollectionOf describes a container of the given kind.
func CollectionOf(kind CollectionKind, elem *Type) *Type {
	return &Type{Kind: KindCollection, Collection: kind, Elem: elem}
}

func ListOf(elem *Type) *Type      { return CollectionOf(CollectionList, elem) }
func SetOf(elem *Type) *Type       { return CollectionOf(CollectionSet, elem) }
func SortedSetOf(elem *Type) *Type { return CollectionOf(CollectionSortedSet, elem) }
func QueueOf(elem *Type) *Type     { return CollectionOf(CollectionQueue, elem) }
func DequeOf(elem *Type) *Type     { return CollectionOf(CollectionDeque, elem) }

// WithConstructor returns a copy of collection descriptor t that builds its
// container with fn.
func WithConstructor(t *Type, fn func() interface{}) *Type {
	c := *t
	c.New = fn
	return &c
}

// MapOf describes a Go map[string]V.
func MapOf(key, value *Type) *Type {
	return &Type{Kind: KindMap, MapKind: MapHash, Key: key, Value: value}
}

// SortedMapOf describes a map kept in key order.
func SortedMapOf(key, value *Type) *Type {
	return &Type{Kind: KindMap, MapKind: MapSorted, Key: key, Value: value}
}
