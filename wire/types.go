package wire

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ===== FRPC WIRE FORMAT TYPES =====

// Type tags. The high 5 bits of a tag byte select the type, the low 3 bits
// carry the byte width minus one of the length or magnitude that follows.
const (
	TagBool           byte = 0x10
	TagDouble         byte = 0x18
	TagString         byte = 0x20
	TagDateTime       byte = 0x28
	TagBinary         byte = 0x30
	TagIntPositive    byte = 0x38
	TagIntNegative    byte = 0x40
	TagStruct         byte = 0x50
	TagArray          byte = 0x58
	TagNull           byte = 0x60
	TagMethodCall     byte = 0x68
	TagMethodResponse byte = 0x70
	TagFault          byte = 0x78

	typeMask   byte = 0xF8
	lengthMask byte = 0x07
)

// Magic is the prefix of every top-level message: magic bytes, major and
// minor protocol version.
var Magic = [4]byte{0xCA, 0x11, 0x02, 0x01}

const (
	// MaxNameLength is the longest struct member or method name, in bytes.
	MaxNameLength = 255

	// YearOffset is subtracted from the calendar year before packing.
	YearOffset = 1600

	// MaxYear is the last calendar year representable in 11 bits.
	MaxYear = YearOffset + 0x7FF
)

// Kind identifies a wire value variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindBinary
	KindDateTime
	KindArray
	KindStruct
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindDateTime:
		return "datetime"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFault:
		return "fault"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a decoded, protocol-level FRPC value. The set of implementations
// is closed: Null, Bool, Int, Double, String, Binary, DateTime, Array,
// Struct and *Fault.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int is an integer value. The wire stores magnitude and sign separately.
type Int int64

// Double is an IEEE-754 64-bit floating point value.
type Double float64

// String is a UTF-8 string value.
type String string

// Binary is an opaque byte blob.
type Binary []byte

// Array is an ordered list of values.
type Array []Value

// Member is a named struct member.
type Member struct {
	Name  string
	Value Value
}

// Struct is an ordered mapping of unique member names to values.
type Struct []Member

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Double) Kind() Kind   { return KindDouble }
func (String) Kind() Kind   { return KindString }
func (Binary) Kind() Kind   { return KindBinary }
func (DateTime) Kind() Kind { return KindDateTime }
func (Array) Kind() Kind    { return KindArray }
func (Struct) Kind() Kind   { return KindStruct }
func (*Fault) Kind() Kind   { return KindFault }

func (Null) isValue()     {}
func (Bool) isValue()     {}
func (Int) isValue()      {}
func (Double) isValue()   {}
func (String) isValue()   {}
func (Binary) isValue()   {}
func (DateTime) isValue() {}
func (Array) isValue()    {}
func (Struct) isValue()   {}
func (*Fault) isValue()   {}

// Fits32 reports whether the integer is int-sized.
func (i Int) Fits32() bool {
	return int64(i) >= math.MinInt32 && int64(i) <= math.MaxInt32
}

// Native returns the narrowest Go integer that represents i exactly: int32
// when it fits in 32 bits, int64 otherwise.
func (i Int) Native() interface{} {
	if i.Fits32() {
		return int32(i)
	}
	return int64(i)
}

// Fits32 reports whether the value survives a round trip through float32.
func (f Double) Fits32() bool {
	return float64(float32(f)) == float64(f)
}

// Native returns float32 when no precision is lost, float64 otherwise.
func (f Double) Native() interface{} {
	if f.Fits32() {
		return float32(f)
	}
	return float64(f)
}

// Get returns the value of the named member.
func (s Struct) Get(name string) (Value, bool) {
	for _, m := range s {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of an existing member in place, or appends a new one.
func (s *Struct) Set(name string, v Value) {
	for i := range *s {
		if (*s)[i].Name == name {
			(*s)[i].Value = v
			return
		}
	}
	*s = append(*s, Member{Name: name, Value: v})
}

// Names returns the member names in order.
func (s Struct) Names() []string {
	names := make([]string, len(s))
	for i, m := range s {
		names[i] = m.Name
	}
	return names
}

// ===== DATE-TIME =====

// DateTime is the broken-down FRPC date-time. The calendar fields are in the
// local time of the zone given by TZ, the signed offset east of UTC in
// quarter hours. Unix holds the same instant as seconds since the epoch, or
// -1 when it does not fit in 32 bits.
type DateTime struct {
	Unix    int32
	TZ      int8
	Weekday uint8
	Year    uint16
	Month   uint8
	Day     uint8
	Hour    uint8
	Minute  uint8
	Second  uint8
}

// NewDateTime builds a DateTime from t, keeping t's zone offset truncated
// to whole quarter hours.
func NewDateTime(t time.Time) DateTime {
	_, offset := t.Zone()
	tz := offset / (15 * 60)
	local := t.In(time.FixedZone("", tz*15*60))

	unix := int32(-1)
	if sec := t.Unix(); sec >= math.MinInt32 && sec <= math.MaxInt32 {
		unix = int32(sec)
	}

	// Years that do not fit uint16 are left at zero so encoding rejects them.
	var year uint16
	if y := local.Year(); y >= 0 && y <= math.MaxUint16 {
		year = uint16(y)
	}

	return DateTime{
		Unix:    unix,
		TZ:      int8(tz),
		Weekday: uint8(local.Weekday()),
		Year:    year,
		Month:   uint8(local.Month()),
		Day:     uint8(local.Day()),
		Hour:    uint8(local.Hour()),
		Minute:  uint8(local.Minute()),
		Second:  uint8(local.Second()),
	}
}

// Location returns the fixed zone described by TZ.
func (dt DateTime) Location() *time.Location {
	if dt.TZ == 0 {
		return time.UTC
	}
	return time.FixedZone("", int(dt.TZ)*15*60)
}

// Time returns the instant described by the calendar fields in the zone
// described by TZ.
func (dt DateTime) Time() time.Time {
	return time.Date(int(dt.Year), time.Month(dt.Month), int(dt.Day),
		int(dt.Hour), int(dt.Minute), int(dt.Second), 0, dt.Location())
}

// Local returns the zone-less calendar fields.
func (dt DateTime) Local() LocalDateTime {
	return LocalDateTime{
		Year:   int(dt.Year),
		Month:  time.Month(dt.Month),
		Day:    int(dt.Day),
		Hour:   int(dt.Hour),
		Minute: int(dt.Minute),
		Second: int(dt.Second),
	}
}

// LocalDateTime is a calendar date and wall-clock time without a zone.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// In returns the instant at which the wall clock in loc shows ldt.
func (ldt LocalDateTime) In(loc *time.Location) time.Time {
	return time.Date(ldt.Year, ldt.Month, ldt.Day, ldt.Hour, ldt.Minute, ldt.Second, 0, loc)
}

func (ldt LocalDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		ldt.Year, int(ldt.Month), ldt.Day, ldt.Hour, ldt.Minute, ldt.Second)
}

// ===== ENVELOPES =====

// Envelope is an outermost framed message: *MethodCall, *MethodResponse or
// *Fault.
type Envelope interface {
	isEnvelope()
}

// MethodCall invokes Name with positional Params.
type MethodCall struct {
	Name   string
	Params []Value
}

// MethodResponse carries a successful return value.
type MethodResponse struct {
	Value Value
}

// Fault is a wire-level error response. It is both an Envelope and, when
// decoded from one, a Value.
type Fault struct {
	Status  int32
	Message string
}

func (*MethodCall) isEnvelope()     {}
func (*MethodResponse) isEnvelope() {}
func (*Fault) isEnvelope()          {}

// Error lets a fault travel as a Go error.
func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Status, f.Message)
}

// ===== FORMATTING =====

// Format renders v in a compact human-readable form.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil, Null:
		b.WriteString("null")
	case Bool:
		fmt.Fprintf(b, "%t", bool(x))
	case Int:
		fmt.Fprintf(b, "%d", int64(x))
	case Double:
		fmt.Fprintf(b, "%g", float64(x))
	case String:
		fmt.Fprintf(b, "%q", string(x))
	case Binary:
		fmt.Fprintf(b, "b\"%x\"", []byte(x))
	case DateTime:
		b.WriteString(x.Time().Format(time.RFC3339))
	case Array:
		b.WriteByte('(')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, e)
		}
		b.WriteByte(')')
	case Struct:
		b.WriteByte('{')
		for i, m := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: ", m.Name)
			format(b, m.Value)
		}
		b.WriteByte('}')
	case *Fault:
		fmt.Fprintf(b, "fault(%d, %q)", x.Status, x.Message)
	default:
		fmt.Fprintf(b, "%v", v)
	}
}
