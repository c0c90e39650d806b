package convert

import (
	"fmt"
	"reflect"

	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/maps/treemap"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Raise converts a decoded wire value into the Go value described by t.
//
// Scalars must match exactly, except that an int-sized integer satisfies a
// long descriptor and a double that survives float32 satisfies a float
// descriptor; nothing is narrowed. Null satisfies every descriptor except the
// non-nullable bool and numeric scalars and yields nil. Arrays become slices
// or collections, structs become maps, and a date-time becomes whichever of
// time.Time, wire.LocalDateTime or *timestamppb.Timestamp t asks for.
//
// On failure the returned *Error carries the path to the offending value.
func Raise(v wire.Value, t *schema.Type) (interface{}, error) {
	if err := checkDescriptor(t); err != nil {
		return nil, err
	}
	return raise(v, t)
}

// RaiseInto raises v into the variable ptr points to, deriving the
// descriptor from the variable's Go type.
func RaiseInto(v wire.Value, ptr interface{}) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return NewError(PhaseRaise, KindUnsupported).
			Wire(wireKind(v)).
			GoType(fmt.Sprintf("%T", ptr)).
			Detail("target must be a non-nil pointer").Build()
	}

	target := rv.Elem()
	t, err := schema.Of(target.Type())
	if err != nil {
		return NewError(PhaseRaise, KindUnsupported).
			Wire(wireKind(v)).
			Target(target.Type()).
			Cause(err).Build()
	}

	raised, err := Raise(v, t)
	if err != nil {
		return err
	}
	return assign(target, raised, v)
}

// assign stores a raised value into target, converting between named and
// unnamed forms of the same Go type.
func assign(target reflect.Value, raised interface{}, v wire.Value) error {
	if raised == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	rv := reflect.ValueOf(raised)
	switch {
	case rv.Type().AssignableTo(target.Type()):
		target.Set(rv)
	case rv.Type().ConvertibleTo(target.Type()):
		target.Set(rv.Convert(target.Type()))
	default:
		return NewError(PhaseRaise, KindTypeMismatch).
			Wire(wireKind(v)).
			Target(target.Type()).
			GoType(rv.Type().String()).Build()
	}
	return nil
}

func raise(v wire.Value, t *schema.Type) (interface{}, error) {
	if v == nil {
		v = wire.Null{}
	}

	if t.Kind == schema.KindOpaque {
		return Native(v), nil
	}

	if _, ok := v.(wire.Null); ok {
		if t.IsPrimitive() {
			return nil, NewError(PhaseRaise, KindNull).Wire("null").Target(t).Build()
		}
		return nil, nil
	}

	switch t.Kind {
	case schema.KindScalar:
		return raiseScalar(v, t)
	case schema.KindArray:
		if arr, ok := v.(wire.Array); ok {
			return raiseArray(arr, t)
		}
	case schema.KindCollection:
		if arr, ok := v.(wire.Array); ok {
			return raiseCollection(arr, t)
		}
	case schema.KindMap:
		if s, ok := v.(wire.Struct); ok {
			return raiseMap(s, t)
		}
	}
	return nil, mismatch(v, t)
}

func raiseScalar(v wire.Value, t *schema.Type) (interface{}, error) {
	switch t.Scalar {
	case schema.TypeBool:
		if b, ok := v.(wire.Bool); ok {
			return bool(b), nil
		}
	case schema.TypeInt:
		if i, ok := v.(wire.Int); ok {
			if !i.Fits32() {
				return nil, NewError(PhaseRaise, KindNarrowing).Wire(wireKind(v)).Target(t).
					Detail("%d does not fit in 32 bits", int64(i)).Build()
			}
			return int32(i), nil
		}
	case schema.TypeLong:
		if i, ok := v.(wire.Int); ok {
			return int64(i), nil
		}
	case schema.TypeFloat:
		if f, ok := v.(wire.Double); ok {
			if !f.Fits32() {
				return nil, NewError(PhaseRaise, KindNarrowing).Wire(wireKind(v)).Target(t).
					Detail("%g loses precision as float32", float64(f)).Build()
			}
			return float32(f), nil
		}
	case schema.TypeDouble:
		if f, ok := v.(wire.Double); ok {
			return float64(f), nil
		}
	case schema.TypeString:
		if s, ok := v.(wire.String); ok {
			return string(s), nil
		}
	case schema.TypeBinary:
		if b, ok := v.(wire.Binary); ok {
			return []byte(b), nil
		}
	case schema.TypeDateTime:
		if dt, ok := v.(wire.DateTime); ok {
			return dt.Time(), nil
		}
	case schema.TypeLocalDateTime:
		if dt, ok := v.(wire.DateTime); ok {
			return dt.Local(), nil
		}
	case schema.TypeTimestamp:
		if dt, ok := v.(wire.DateTime); ok {
			return timestamppb.New(dt.Time()), nil
		}
	}
	return nil, mismatch(v, t)
}

func raiseArray(arr wire.Array, t *schema.Type) (interface{}, error) {
	out := reflect.MakeSlice(GoType(t), len(arr), len(arr))
	for i, e := range arr {
		x, err := raise(e, t.Elem)
		if err != nil {
			return nil, WithPath(err, ElementSegment(i))
		}
		if x != nil {
			out.Index(i).Set(reflect.ValueOf(x))
		}
	}
	return out.Interface(), nil
}

func raiseCollection(arr wire.Array, t *schema.Type) (interface{}, error) {
	c, add, err := constructorFor(t)()
	if err != nil {
		return nil, err
	}

	builtin := t.New == nil
	for i, e := range arr {
		x, err := raise(e, t.Elem)
		if err != nil {
			return nil, WithPath(err, ElementSegment(i))
		}

		switch {
		case builtin && t.Collection == schema.CollectionSortedSet && x == nil:
			return nil, WithPath(NewError(PhaseRaise, KindNull).Wire("null").Target(t.Elem).
				Detail("sorted set elements cannot be null").Build(), ElementSegment(i))
		case builtin && t.Collection == schema.CollectionSet && x != nil && !reflect.TypeOf(x).Comparable():
			return nil, WithPath(NewError(PhaseRaise, KindUnsupported).Wire(wireKind(e)).Target(t.Elem).
				Detail("set elements must be comparable").Build(), ElementSegment(i))
		}
		add(x)
	}
	return c, nil
}

func raiseMap(s wire.Struct, t *schema.Type) (interface{}, error) {
	if t.MapKind == schema.MapSorted {
		m := treemap.NewWithStringComparator()
		for _, member := range s {
			x, err := raise(member.Value, t.Value)
			if err != nil {
				return nil, WithPath(err, KeySegment(member.Name))
			}
			m.Put(member.Name, x)
		}
		return m, nil
	}

	mapType := GoType(t)
	out := reflect.MakeMapWithSize(mapType, len(s))
	for _, member := range s {
		x, err := raise(member.Value, t.Value)
		if err != nil {
			return nil, WithPath(err, KeySegment(member.Name))
		}

		value := reflect.Zero(mapType.Elem())
		if x != nil {
			value = reflect.ValueOf(x)
		}
		out.SetMapIndex(reflect.ValueOf(member.Name), value)
	}
	return out.Interface(), nil
}

func mismatch(v wire.Value, t *schema.Type) error {
	return NewError(PhaseRaise, KindTypeMismatch).Wire(wireKind(v)).Target(t).Build()
}

// wireKind names a decoded value the way descriptors name scalars: integers
// and doubles report their range-reduced size.
func wireKind(v wire.Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case wire.Int:
		if x.Fits32() {
			return "int"
		}
		return "long"
	case wire.Double:
		if x.Fits32() {
			return "float"
		}
		return "double"
	}
	return v.Kind().String()
}
