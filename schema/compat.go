package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/sets/hashset"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ErrInvalidType reports a structurally invalid descriptor.
var ErrInvalidType = errors.New("invalid type descriptor")

// ErrUnsupportedGoType reports a Go type with no descriptor.
var ErrUnsupportedGoType = errors.New("unsupported Go type")

// Validate checks that t is structurally sound: element, key and value
// descriptors are present, map keys are strings (or opaque), and sorted set
// elements have a natural order.
func Validate(t *Type) error {
	if t == nil {
		return fmt.Errorf("%w: nil", ErrInvalidType)
	}

	switch t.Kind {
	case KindOpaque:
		return nil
	case KindScalar:
		if _, ok := knownScalars[t.Scalar]; !ok {
			return fmt.Errorf("%w: unknown scalar %q", ErrInvalidType, t.Scalar)
		}
		return nil
	case KindArray:
		return validateChild(t, t.Elem, "element")
	case KindCollection:
		switch t.Collection {
		case CollectionList, CollectionSet, CollectionQueue, CollectionDeque:
		case CollectionSortedSet:
			if t.Elem != nil && !t.Elem.IsOrderable() && t.New == nil {
				return fmt.Errorf("%w: %s: element %s has no natural order", ErrInvalidType, t, t.Elem)
			}
		default:
			return fmt.Errorf("%w: unknown collection %q", ErrInvalidType, t.Collection)
		}
		return validateChild(t, t.Elem, "element")
	case KindMap:
		if t.MapKind != MapHash && t.MapKind != MapSorted {
			return fmt.Errorf("%w: unknown map kind %q", ErrInvalidType, t.MapKind)
		}
		if t.Key == nil {
			return fmt.Errorf("%w: %s: missing key", ErrInvalidType, t)
		}
		if t.Key.Kind != KindOpaque && (t.Key.Kind != KindScalar || t.Key.Scalar != TypeString) {
			return fmt.Errorf("%w: %s: map keys must be strings", ErrInvalidType, t)
		}
		return validateChild(t, t.Value, "value")
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidType, t.Kind)
}

func validateChild(parent, child *Type, role string) error {
	if child == nil {
		return fmt.Errorf("%w: %s: missing %s", ErrInvalidType, parent, role)
	}
	return Validate(child)
}

// GO TYPE MAPPING

var (
	typeCache sync.Map // reflect.Type -> *Type

	bytesType         = reflect.TypeOf([]byte(nil))
	timeType          = reflect.TypeOf(time.Time{})
	localDateTimeType = reflect.TypeOf(wire.LocalDateTime{})
	timestampType     = reflect.TypeOf((*timestamppb.Timestamp)(nil))

	containerTypes = map[reflect.Type]func() *Type{
		reflect.TypeOf((*arraylist.List)(nil)):        func() *Type { return ListOf(OpaqueType()) },
		reflect.TypeOf((*hashset.Set)(nil)):           func() *Type { return SetOf(OpaqueType()) },
		reflect.TypeOf((*linkedlistqueue.Queue)(nil)): func() *Type { return QueueOf(OpaqueType()) },
		reflect.TypeOf((*doublylinkedlist.List)(nil)): func() *Type { return DequeOf(OpaqueType()) },
		reflect.TypeOf((*treemap.Map)(nil)):           func() *Type { return SortedMapOf(StringType(), OpaqueType()) },
	}
)

// Of returns the descriptor for Go type rt. Results are cached and must not
// be modified.
func Of(rt reflect.Type) (*Type, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedGoType)
	}
	if cached, ok := typeCache.Load(rt); ok {
		return cached.(*Type), nil
	}

	t, err := of(rt)
	if err != nil {
		return nil, err
	}
	actual, _ := typeCache.LoadOrStore(rt, t)
	return actual.(*Type), nil
}

// Supported reports whether rt can be a raise target.
func Supported(rt reflect.Type) bool {
	_, err := Of(rt)
	return err == nil
}

func of(rt reflect.Type) (*Type, error) {
	switch rt {
	case bytesType:
		return BinaryType(), nil
	case timeType:
		return DateTimeType(), nil
	case localDateTimeType:
		return LocalDateTimeType(), nil
	case timestampType:
		return TimestampType(), nil
	}
	if build, ok := containerTypes[rt]; ok {
		return build(), nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		return BoolType(), nil
	case reflect.Int32:
		return IntType(), nil
	case reflect.Int64:
		return LongType(), nil
	case reflect.Float32:
		return FloatType(), nil
	case reflect.Float64:
		return DoubleType(), nil
	case reflect.String:
		return StringType(), nil
	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return OpaqueType(), nil
		}
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return BinaryType(), nil
		}
		elem, err := Of(rt.Elem())
		if err != nil {
			return nil, err
		}
		return ArrayOf(elem), nil
	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: %s: map keys must be strings", ErrUnsupportedGoType, rt)
		}
		value, err := Of(rt.Elem())
		if err != nil {
			return nil, err
		}
		return MapOf(StringType(), value), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedGoType, rt)
}
