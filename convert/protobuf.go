package convert

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/anirudhraja/frpc/wire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Protobuf well-known types bridge. structpb values lower to the matching
// wire shapes and wrapperspb scalars to their wrapped value; ToProtoValue
// goes the other way for display as protobuf JSON.

// maxExactDouble is the largest integer magnitude a float64 holds exactly.
const maxExactDouble = 1 << 53

// lowerProto lowers the well-known types it recognizes and reports whether m
// was one of them.
func lowerProto(m proto.Message) (wire.Value, bool, error) {
	switch x := m.(type) {
	case *structpb.Value:
		v, err := lowerStructValue(x)
		return v, true, err
	case *structpb.Struct:
		v, err := lowerStructFields(x.GetFields())
		return v, true, err
	case *structpb.ListValue:
		v, err := lowerListValue(x)
		return v, true, err
	case *wrapperspb.BoolValue:
		return wire.Bool(x.GetValue()), true, nil
	case *wrapperspb.Int32Value:
		return wire.Int(x.GetValue()), true, nil
	case *wrapperspb.Int64Value:
		return wire.Int(x.GetValue()), true, nil
	case *wrapperspb.UInt32Value:
		return wire.Int(x.GetValue()), true, nil
	case *wrapperspb.UInt64Value:
		if x.GetValue() > math.MaxInt64 {
			return nil, true, NewError(PhaseLower, KindUnsupported).GoType("*wrapperspb.UInt64Value").
				Detail("%d exceeds the signed 64-bit range", x.GetValue()).Build()
		}
		return wire.Int(x.GetValue()), true, nil
	case *wrapperspb.FloatValue:
		return wire.Double(x.GetValue()), true, nil
	case *wrapperspb.DoubleValue:
		return wire.Double(x.GetValue()), true, nil
	case *wrapperspb.StringValue:
		return wire.String(x.GetValue()), true, nil
	case *wrapperspb.BytesValue:
		return wire.Binary(x.GetValue()), true, nil
	}
	return nil, false, nil
}

func lowerStructValue(v *structpb.Value) (wire.Value, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return wire.Bool(k.BoolValue), nil
	case *structpb.Value_NumberValue:
		return wire.Double(k.NumberValue), nil
	case *structpb.Value_StringValue:
		return wire.String(k.StringValue), nil
	case *structpb.Value_StructValue:
		return lowerStructFields(k.StructValue.GetFields())
	case *structpb.Value_ListValue:
		return lowerListValue(k.ListValue)
	}
	return wire.Null{}, nil
}

func lowerListValue(l *structpb.ListValue) (wire.Value, error) {
	values := l.GetValues()
	arr := make(wire.Array, len(values))
	for i, e := range values {
		wv, err := lowerStructValue(e)
		if err != nil {
			return nil, WithPath(err, ElementSegment(i))
		}
		arr[i] = wv
	}
	return arr, nil
}

func lowerStructFields(fields map[string]*structpb.Value) (wire.Value, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	s := make(wire.Struct, len(names))
	for i, name := range names {
		wv, err := lowerStructValue(fields[name])
		if err != nil {
			return nil, WithPath(err, KeySegment(name))
		}
		s[i] = wire.Member{Name: name, Value: wv}
	}
	return s, nil
}

// ToProtoValue renders a wire value as a structpb.Value. Values JSON cannot
// carry exactly are rendered as strings: integers beyond 2^53, non-finite
// doubles, binary (base64) and date-times (RFC 3339). A fault becomes a
// struct with faultCode and faultString members.
func ToProtoValue(v wire.Value) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil, wire.Null:
		return structpb.NewNullValue(), nil
	case wire.Bool:
		return structpb.NewBoolValue(bool(x)), nil
	case wire.Int:
		if x > maxExactDouble || x < -maxExactDouble {
			return structpb.NewStringValue(strconv.FormatInt(int64(x), 10)), nil
		}
		return structpb.NewNumberValue(float64(x)), nil
	case wire.Double:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return structpb.NewStringValue(strconv.FormatFloat(f, 'g', -1, 64)), nil
		}
		return structpb.NewNumberValue(f), nil
	case wire.String:
		return structpb.NewStringValue(string(x)), nil
	case wire.Binary:
		return structpb.NewStringValue(base64.StdEncoding.EncodeToString(x)), nil
	case wire.DateTime:
		return structpb.NewStringValue(x.Time().Format(time.RFC3339)), nil
	case wire.Array:
		list := &structpb.ListValue{Values: make([]*structpb.Value, len(x))}
		for i, e := range x {
			pv, err := ToProtoValue(e)
			if err != nil {
				return nil, WithPath(err, ElementSegment(i))
			}
			list.Values[i] = pv
		}
		return structpb.NewListValue(list), nil
	case wire.Struct:
		st := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(x))}
		for _, m := range x {
			pv, err := ToProtoValue(m.Value)
			if err != nil {
				return nil, WithPath(err, KeySegment(m.Name))
			}
			st.Fields[m.Name] = pv
		}
		return structpb.NewStructValue(st), nil
	case *wire.Fault:
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"faultCode":   structpb.NewNumberValue(float64(x.Status)),
			"faultString": structpb.NewStringValue(x.Message),
		}}), nil
	}
	return nil, NewError(PhaseLower, KindUnsupported).GoType(fmt.Sprintf("%T", v)).Build()
}
