package convert

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/sets/treeset"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestRaise_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		value    wire.Value
		typ      *schema.Type
		expected interface{}
	}{
		{"bool", wire.Bool(true), schema.BoolType(), true},
		{"int", wire.Int(-7), schema.IntType(), int32(-7)},
		{"int max", wire.Int(math.MaxInt32), schema.IntType(), int32(math.MaxInt32)},
		{"int widened to long", wire.Int(5), schema.LongType(), int64(5)},
		{"long", wire.Int(1 << 40), schema.LongType(), int64(1 << 40)},
		{"float", wire.Double(0.5), schema.FloatType(), float32(0.5)},
		{"float widened to double", wire.Double(0.5), schema.DoubleType(), float64(0.5)},
		{"double", wire.Double(0.1), schema.DoubleType(), 0.1},
		{"string", wire.String("hi"), schema.StringType(), "hi"},
		{"binary", wire.Binary{1, 2}, schema.BinaryType(), []byte{1, 2}},
		{"nullable int", wire.Int(3), schema.NullableType(schema.IntType()), int32(3)},
		{"opaque int", wire.Int(3), schema.OpaqueType(), int32(3)},
		{"opaque long", wire.Int(1 << 33), schema.OpaqueType(), int64(1 << 33)},
		{"opaque struct", wire.Struct{{Name: "k", Value: wire.String("v")}}, schema.OpaqueType(), map[string]interface{}{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raise(tt.value, tt.typ)
			if err != nil {
				t.Fatalf("Raise: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %#v, got %#v", tt.expected, got)
			}
		})
	}
}

func TestRaise_Null(t *testing.T) {
	primitives := []*schema.Type{schema.BoolType(), schema.IntType(), schema.LongType(), schema.FloatType(), schema.DoubleType()}
	for _, typ := range primitives {
		if _, err := Raise(wire.Null{}, typ); !IsKind(err, KindNull) {
			t.Errorf("Raise(null, %s): expected null error, got %v", typ, err)
		}
	}

	accepting := []*schema.Type{
		schema.StringType(),
		schema.BinaryType(),
		schema.DateTimeType(),
		schema.NullableType(schema.IntType()),
		schema.ArrayOf(schema.IntType()),
		schema.ListOf(schema.IntType()),
		schema.MapOf(schema.StringType(), schema.IntType()),
		schema.OpaqueType(),
	}
	for _, typ := range accepting {
		got, err := Raise(wire.Null{}, typ)
		if err != nil {
			t.Errorf("Raise(null, %s): %v", typ, err)
		}
		if got != nil {
			t.Errorf("Raise(null, %s): expected nil, got %#v", typ, got)
		}
	}
}

func TestRaise_Errors(t *testing.T) {
	tests := []struct {
		name    string
		value   wire.Value
		typ     *schema.Type
		kind    Kind
		message string
	}{
		{
			"string to long",
			wire.String("x"), schema.LongType(),
			KindTypeMismatch, "cannot raise string to long",
		},
		{
			"long-sized to int",
			wire.Int(1 << 32), schema.IntType(),
			KindNarrowing, "cannot raise long to int (4294967296 does not fit in 32 bits)",
		},
		{
			"double to float",
			wire.Double(0.1), schema.FloatType(),
			KindNarrowing, "cannot raise double to float (0.1 loses precision as float32)",
		},
		{
			"int to double",
			wire.Int(1), schema.DoubleType(),
			KindTypeMismatch, "cannot raise int to double",
		},
		{
			"array to map",
			wire.Array{}, schema.MapOf(schema.StringType(), schema.IntType()),
			KindTypeMismatch, "cannot raise array to map<string, int>",
		},
		{
			"nested failure path",
			wire.Struct{{Name: "a", Value: wire.Array{wire.Int(1), wire.String("x")}}},
			schema.MapOf(schema.StringType(), schema.ListOf(schema.LongType())),
			KindTypeMismatch, `key "a", element #2: cannot raise string to long`,
		},
		{
			"null inside slice",
			wire.Array{wire.Int(1), wire.Null{}},
			schema.ArrayOf(schema.IntType()),
			KindNull, "element #2: cannot raise null to int",
		},
		{
			"invalid descriptor",
			wire.Struct{}, schema.MapOf(schema.IntType(), schema.IntType()),
			KindInvalidDescriptor, "",
		},
		{
			"unhashable set element",
			wire.Array{wire.Binary{1}}, schema.SetOf(schema.BinaryType()),
			KindUnsupported, "element #1: cannot raise binary to binary (set elements must be comparable)",
		},
		{
			"null sorted set element",
			wire.Array{wire.String("a"), wire.Null{}}, schema.SortedSetOf(schema.StringType()),
			KindNull, "element #2: cannot raise null to string (sorted set elements cannot be null)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raise(tt.value, tt.typ)
			if err == nil {
				t.Fatalf("Expected error, got %#v", got)
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("Expected %s error, got %v", tt.kind, err)
			}
			if tt.message != "" && err.Error() != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestRaise_Arrays(t *testing.T) {
	tests := []struct {
		name     string
		value    wire.Value
		typ      *schema.Type
		expected interface{}
	}{
		{
			"longs",
			wire.Array{wire.Int(1), wire.Int(1 << 40)},
			schema.ArrayOf(schema.LongType()),
			[]int64{1, 1 << 40},
		},
		{
			"empty",
			wire.Array{},
			schema.ArrayOf(schema.StringType()),
			[]string{},
		},
		{
			"nested",
			wire.Array{wire.Array{wire.String("a")}, wire.Array{}},
			schema.ArrayOf(schema.ArrayOf(schema.StringType())),
			[][]string{{"a"}, {}},
		},
		{
			"nullable elements",
			wire.Array{wire.Int(1), wire.Null{}},
			schema.ArrayOf(schema.NullableType(schema.IntType())),
			[]interface{}{int32(1), nil},
		},
		{
			"string elements with null",
			wire.Array{wire.Null{}, wire.String("b")},
			schema.ArrayOf(schema.StringType()),
			[]string{"", "b"},
		},
		{
			"maps",
			wire.Array{wire.Struct{{Name: "x", Value: wire.Bool(true)}}},
			schema.ArrayOf(schema.MapOf(schema.StringType(), schema.BoolType())),
			[]map[string]bool{{"x": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raise(tt.value, tt.typ)
			if err != nil {
				t.Fatalf("Raise: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %#v, got %#v", tt.expected, got)
			}
		})
	}
}

func TestRaise_Collections(t *testing.T) {
	arr := wire.Array{wire.String("b"), wire.String("c"), wire.String("a"), wire.String("b")}

	tests := []struct {
		name     string
		typ      *schema.Type
		goType   reflect.Type
		expected []interface{}
		sorted   bool
	}{
		{"list", schema.ListOf(schema.StringType()), reflect.TypeOf(arraylist.New()), []interface{}{"b", "c", "a", "b"}, false},
		{"set", schema.SetOf(schema.StringType()), reflect.TypeOf(hashset.New()), []interface{}{"a", "b", "c"}, true},
		{"sorted set", schema.SortedSetOf(schema.StringType()), reflect.TypeOf(treeset.NewWithStringComparator()), []interface{}{"a", "b", "c"}, false},
		{"queue", schema.QueueOf(schema.StringType()), reflect.TypeOf(linkedlistqueue.New()), []interface{}{"b", "c", "a", "b"}, false},
		{"deque", schema.DequeOf(schema.StringType()), reflect.TypeOf(doublylinkedlist.New()), []interface{}{"b", "c", "a", "b"}, false},
		{
			"custom constructor",
			schema.WithConstructor(schema.ListOf(schema.StringType()), func() interface{} { return doublylinkedlist.New() }),
			reflect.TypeOf(doublylinkedlist.New()),
			[]interface{}{"b", "c", "a", "b"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raise(arr, tt.typ)
			if err != nil {
				t.Fatalf("Raise: %v", err)
			}
			if reflect.TypeOf(got) != tt.goType {
				t.Fatalf("Expected %s, got %T", tt.goType, got)
			}
			if GoType(tt.typ) != tt.goType {
				t.Errorf("GoType: expected %s, got %s", tt.goType, GoType(tt.typ))
			}

			values := got.(interface{ Values() []interface{} }).Values()
			if tt.sorted {
				values = sortedStrings(values)
			}
			if !reflect.DeepEqual(values, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, values)
			}
		})
	}
}

func TestRaise_SortedSetOrders(t *testing.T) {
	tests := []struct {
		name     string
		value    wire.Array
		elem     *schema.Type
		expected []interface{}
	}{
		{"ints", wire.Array{wire.Int(3), wire.Int(-1), wire.Int(2)}, schema.IntType(), []interface{}{int32(-1), int32(2), int32(3)}},
		{"longs", wire.Array{wire.Int(1 << 40), wire.Int(1)}, schema.LongType(), []interface{}{int64(1), int64(1 << 40)}},
		{"doubles", wire.Array{wire.Double(2.5), wire.Double(-0.5)}, schema.DoubleType(), []interface{}{-0.5, 2.5}},
		{
			"date-times",
			wire.Array{
				wire.NewDateTime(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)),
				wire.NewDateTime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
			schema.DateTimeType(),
			[]interface{}{
				time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raise(tt.value, schema.SortedSetOf(tt.elem))
			if err != nil {
				t.Fatalf("Raise: %v", err)
			}
			values := got.(*treeset.Set).Values()
			if !reflect.DeepEqual(values, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, values)
			}
		})
	}
}

func TestRaise_TimestampSortedSet(t *testing.T) {
	later := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)

	got, err := Raise(wire.Array{wire.NewDateTime(later), wire.NewDateTime(earlier)}, schema.SortedSetOf(schema.TimestampType()))
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	values := got.(*treeset.Set).Values()
	if len(values) != 2 || !values[0].(*timestamppb.Timestamp).AsTime().Equal(earlier) {
		t.Errorf("Expected timestamps in order, got %v", values)
	}
}

func TestRaise_BadConstructor(t *testing.T) {
	typ := schema.WithConstructor(schema.ListOf(schema.IntType()), func() interface{} { return map[string]int{} })
	if _, err := Raise(wire.Array{wire.Int(1)}, typ); !IsKind(err, KindUnsupported) {
		t.Errorf("Expected unsupported error, got %v", err)
	}
}

func TestRaise_Maps(t *testing.T) {
	s := wire.Struct{
		{Name: "b", Value: wire.Array{wire.Int(2)}},
		{Name: "a", Value: wire.Array{wire.Int(1), wire.Int(1 << 35)}},
	}

	got, err := Raise(s, schema.MapOf(schema.StringType(), schema.ArrayOf(schema.LongType())))
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	expected := map[string][]int64{"a": {1, 1 << 35}, "b": {2}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	sorted, err := Raise(s, schema.SortedMapOf(schema.StringType(), schema.OpaqueType()))
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	m := sorted.(*treemap.Map)
	if !reflect.DeepEqual(m.Keys(), []interface{}{"a", "b"}) {
		t.Errorf("Expected sorted keys, got %v", m.Keys())
	}
	if v, _ := m.Get("a"); !reflect.DeepEqual(v, []interface{}{int32(1), int64(1 << 35)}) {
		t.Errorf("Unexpected value for a: %#v", v)
	}

	opaqueKeys, err := Raise(s, schema.MapOf(schema.OpaqueType(), schema.OpaqueType()))
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if len(opaqueKeys.(map[string]interface{})) != 2 {
		t.Errorf("Unexpected map %v", opaqueKeys)
	}
}

func TestRaise_DateTime(t *testing.T) {
	instant := time.Date(2024, 2, 29, 14, 45, 30, 0, time.FixedZone("", 3600))
	dt := wire.NewDateTime(instant)

	zoned, err := Raise(dt, schema.DateTimeType())
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if !zoned.(time.Time).Equal(instant) {
		t.Errorf("Expected %v, got %v", instant, zoned)
	}
	if _, offset := zoned.(time.Time).Zone(); offset != 3600 {
		t.Errorf("Expected the +01:00 offset to be kept, got %d", offset)
	}

	local, err := Raise(dt, schema.LocalDateTimeType())
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	expectedLocal := wire.LocalDateTime{Year: 2024, Month: time.February, Day: 29, Hour: 14, Minute: 45, Second: 30}
	if local != expectedLocal {
		t.Errorf("Expected %v, got %v", expectedLocal, local)
	}

	ts, err := Raise(dt, schema.TimestampType())
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if !proto.Equal(ts.(*timestamppb.Timestamp), timestamppb.New(instant)) {
		t.Errorf("Expected %v, got %v", timestamppb.New(instant), ts)
	}
}

type userIDs []int64

func TestRaiseInto(t *testing.T) {
	var ids []int64
	if err := RaiseInto(wire.Array{wire.Int(1), wire.Int(2)}, &ids); err != nil {
		t.Fatalf("RaiseInto: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{1, 2}) {
		t.Errorf("Unexpected %v", ids)
	}

	var named userIDs
	if err := RaiseInto(wire.Array{wire.Int(7)}, &named); err != nil {
		t.Fatalf("RaiseInto: %v", err)
	}
	if !reflect.DeepEqual(named, userIDs{7}) {
		t.Errorf("Unexpected %v", named)
	}

	var m map[string][]string
	if err := RaiseInto(wire.Struct{{Name: "k", Value: wire.Array{wire.String("v")}}}, &m); err != nil {
		t.Fatalf("RaiseInto: %v", err)
	}
	if !reflect.DeepEqual(m, map[string][]string{"k": {"v"}}) {
		t.Errorf("Unexpected %v", m)
	}

	s := "previous"
	if err := RaiseInto(wire.Null{}, &s); err != nil {
		t.Fatalf("RaiseInto: %v", err)
	}
	if s != "" {
		t.Errorf("Expected null to reset the string, got %q", s)
	}

	var plain int
	if err := RaiseInto(wire.Int(1), &plain); !IsKind(err, KindUnsupported) {
		t.Errorf("Expected unsupported error for int, got %v", err)
	}
	if err := RaiseInto(wire.Int(1), plain); !IsKind(err, KindUnsupported) {
		t.Errorf("Expected unsupported error for non-pointer, got %v", err)
	}

	var narrow int32
	err := RaiseInto(wire.Int(1<<40), &narrow)
	if !errors.Is(err, &Error{Kind: KindNarrowing}) {
		t.Errorf("Expected narrowing error, got %v", err)
	}
}

func TestRaise_Scenario(t *testing.T) {
	call := &wire.MethodCall{Name: "add", Params: []wire.Value{wire.Int(3), wire.Int(2)}}
	data, err := wire.MarshalEnvelope(call)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := wire.UnmarshalEnvelope(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, call) {
		t.Errorf("Expected %#v, got %#v", call, decoded)
	}

	lowered, err := Lower(int64(5))
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	raised, err := Raise(lowered, schema.IntType())
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if raised != int32(5) {
		t.Errorf("Expected int32(5), got %#v", raised)
	}
}

func TestRaise_Concurrent(t *testing.T) {
	typ := schema.MapOf(schema.StringType(), schema.SortedSetOf(schema.LongType()))
	value := wire.Struct{{Name: "k", Value: wire.Array{wire.Int(2), wire.Int(1)}}}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Raise(value, typ)
			if err != nil {
				errs <- err
				return
			}
			set := got.(map[string]*treeset.Set)["k"]
			if !reflect.DeepEqual(set.Values(), []interface{}{int64(1), int64(2)}) {
				errs <- errors.New("unexpected order")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func sortedStrings(values []interface{}) []interface{} {
	set := treeset.NewWithStringComparator(values...)
	return set.Values()
}
