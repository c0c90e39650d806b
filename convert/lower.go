package convert

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/containers"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// keyedContainer is a gods map: hashmap, treemap, linkedhashmap.
type keyedContainer interface {
	Keys() []interface{}
	Get(key interface{}) (interface{}, bool)
}

// Lower converts a Go value into its wire form without a descriptor.
//
// Slices, arrays and gods lists, sets, queues and deques become arrays. Maps
// with string keys and gods maps become structs with members in key order.
// bool, int32, int64, int, float32, float64, string and []byte become their
// scalar variants; time.Time, wire.LocalDateTime (taken as UTC) and
// *timestamppb.Timestamp become date-times. nil, nil pointers, nil maps and
// nil slices become Null. Any other wire.Value passes through unchanged.
func Lower(v interface{}) (wire.Value, error) {
	if v == nil {
		return wire.Null{}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return wire.Null{}, nil
	}
	if wv, ok := v.(wire.Value); ok {
		return wv, nil
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return wire.Null{}, nil
		}
	}

	switch x := v.(type) {
	case bool:
		return wire.Bool(x), nil
	case int32:
		return wire.Int(x), nil
	case int64:
		return wire.Int(x), nil
	case int:
		return wire.Int(x), nil
	case float32:
		return wire.Double(x), nil
	case float64:
		return wire.Double(x), nil
	case string:
		return wire.String(x), nil
	case []byte:
		return wire.Binary(x), nil
	case time.Time:
		return wire.NewDateTime(x), nil
	case wire.LocalDateTime:
		return wire.NewDateTime(x.In(time.UTC)), nil
	case *timestamppb.Timestamp:
		return wire.NewDateTime(x.AsTime()), nil
	case proto.Message:
		if wv, ok, err := lowerProto(x); ok {
			return wv, err
		}
	case keyedContainer:
		return lowerKeyed(x)
	case containers.Container:
		return lowerValues(x.Values())
	}

	return lowerReflect(rv)
}

func lowerValues(values []interface{}) (wire.Value, error) {
	arr := make(wire.Array, len(values))
	for i, e := range values {
		wv, err := Lower(e)
		if err != nil {
			return nil, WithPath(err, ElementSegment(i))
		}
		arr[i] = wv
	}
	return arr, nil
}

func lowerKeyed(m keyedContainer) (wire.Value, error) {
	keys := m.Keys()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name, ok := k.(string)
		if !ok {
			return nil, nonStringKey(fmt.Sprintf("%T", m), fmt.Sprintf("%T", k))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	s := make(wire.Struct, 0, len(names))
	for _, name := range names {
		value, _ := m.Get(name)
		wv, err := Lower(value)
		if err != nil {
			return nil, WithPath(err, KeySegment(name))
		}
		s = append(s, wire.Member{Name: name, Value: wv})
	}
	return s, nil
}

func lowerReflect(rv reflect.Value) (wire.Value, error) {
	switch rv.Kind() {
	case reflect.Ptr:
		return Lower(rv.Elem().Interface())
	case reflect.Bool:
		return wire.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return wire.Int(rv.Int()), nil
	case reflect.Float32, reflect.Float64:
		return wire.Double(rv.Float()), nil
	case reflect.String:
		return wire.String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return wire.Binary(rv.Bytes()), nil
		}
		arr := make(wire.Array, rv.Len())
		for i := range arr {
			wv, err := Lower(rv.Index(i).Interface())
			if err != nil {
				return nil, WithPath(err, ElementSegment(i))
			}
			arr[i] = wv
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nonStringKey(rv.Type().String(), rv.Type().Key().String())
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		s := make(wire.Struct, len(keys))
		for i, k := range keys {
			wv, err := Lower(rv.MapIndex(k).Interface())
			if err != nil {
				return nil, WithPath(err, KeySegment(k.String()))
			}
			s[i] = wire.Member{Name: k.String(), Value: wv}
		}
		return s, nil
	}

	return nil, NewError(PhaseLower, KindUnsupported).GoType(rv.Type().String()).Build()
}

func nonStringKey(container, key string) error {
	return NewError(PhaseLower, KindUnsupported).GoType(container).
		Detail("map key of type %s is not a string", key).Build()
}
