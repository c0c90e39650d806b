package convert

import (
	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
	"github.com/emirpasic/gods/utils"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Native converts a wire value to its untyped Go form: integers and doubles
// narrowed to the smallest exact type, date-times as time.Time, arrays as
// []interface{} and structs as map[string]interface{}. Faults are returned
// as *wire.Fault.
func Native(v wire.Value) interface{} {
	switch x := v.(type) {
	case nil, wire.Null:
		return nil
	case wire.Bool:
		return bool(x)
	case wire.Int:
		return x.Native()
	case wire.Double:
		return x.Native()
	case wire.String:
		return string(x)
	case wire.Binary:
		return []byte(x)
	case wire.DateTime:
		return x.Time()
	case wire.Array:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = Native(e)
		}
		return out
	case wire.Struct:
		out := make(map[string]interface{}, len(x))
		for _, m := range x {
			out[m.Name] = Native(m.Value)
		}
		return out
	case *wire.Fault:
		return x
	}
	return v
}

// comparatorFor returns the natural order of an orderable scalar descriptor.
func comparatorFor(t *schema.Type) utils.Comparator {
	switch t.Scalar {
	case schema.TypeInt:
		return utils.Int32Comparator
	case schema.TypeLong:
		return utils.Int64Comparator
	case schema.TypeFloat:
		return utils.Float32Comparator
	case schema.TypeDouble:
		return utils.Float64Comparator
	case schema.TypeString:
		return utils.StringComparator
	case schema.TypeDateTime:
		return utils.TimeComparator
	case schema.TypeTimestamp:
		return timestampComparator
	}
	return nil
}

func timestampComparator(a, b interface{}) int {
	return utils.TimeComparator(a.(*timestamppb.Timestamp).AsTime(), b.(*timestamppb.Timestamp).AsTime())
}
