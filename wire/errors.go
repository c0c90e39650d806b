package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Codec errors. They are reported wrapped in an *Error and can be matched
// with errors.Is.
var (
	ErrUnexpectedEOF   = errors.New("unexpected end of stream")
	ErrBadMagic        = errors.New("bad magic or unsupported protocol version")
	ErrUnknownType     = errors.New("unknown type tag")
	ErrIntOverflow     = errors.New("integer magnitude out of range")
	ErrNegativeZero    = errors.New("negative integer with zero magnitude")
	ErrNameTooLong     = errors.New("name longer than 255 bytes")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidUTF8     = errors.New("invalid UTF-8")
	ErrYearRange       = errors.New("year outside 1600..3647")
	ErrDateField       = errors.New("date-time field out of range")
	ErrNestedFault     = errors.New("fault cannot be nested inside a value")
	ErrMalformedFault  = errors.New("malformed fault")
	ErrDepth           = errors.New("nesting too deep")
	ErrTooLong         = errors.New("length exceeds configured maximum")
	ErrNilValue        = errors.New("nil value")
	ErrDuplicateMember = errors.New("duplicate struct member")
)

// Class separates terminal framing failures from values that cannot be
// represented on the wire.
type Class uint8

const (
	// Framing errors come from the byte stream: truncation, unknown tags,
	// bad magic.
	Framing Class = iota + 1
	// Encoding errors come from values the format cannot carry.
	Encoding
)

func (c Class) String() string {
	switch c {
	case Framing:
		return "framing"
	case Encoding:
		return "encoding"
	}
	return "unknown"
}

// Error is a codec failure with the byte offset (decoding only, -1 when not
// known) and the path of array elements and struct members leading to it.
type Error struct {
	Class  Class
	Offset int64
	Path   []string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("frpc ")
	b.WriteString(e.Class.String())
	b.WriteString(" error")
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if len(e.Path) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Path, ", "))
		b.WriteByte(')')
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsFraming reports whether err is a framing error.
func IsFraming(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == Framing
}

// IsEncoding reports whether err is an encoding-domain error.
func IsEncoding(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Class == Encoding
}

func framingError(offset int64, err error) error {
	return &Error{Class: Framing, Offset: offset, Err: err}
}

func framingErrorf(offset int64, err error, format string, args ...interface{}) error {
	return &Error{Class: Framing, Offset: offset, Err: fmt.Errorf("%w: "+format, append([]interface{}{err}, args...)...)}
}

func encodingError(err error) error {
	return &Error{Class: Encoding, Offset: -1, Err: err}
}

func encodingErrorf(err error, format string, args ...interface{}) error {
	return &Error{Class: Encoding, Offset: -1, Err: fmt.Errorf("%w: "+format, append([]interface{}{err}, args...)...)}
}

// wrapWithPath prepends a path segment to a codec error.
func wrapWithPath(err error, segment string) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*Error); ok {
		return &Error{
			Class:  e.Class,
			Offset: e.Offset,
			Path:   append([]string{segment}, e.Path...),
			Err:    e.Err,
		}
	}

	return &Error{
		Class:  Encoding,
		Offset: -1,
		Path:   []string{segment},
		Err:    err,
	}
}

func elementSegment(i int) string {
	return fmt.Sprintf("element #%d", i+1)
}

func memberSegment(name string) string {
	return fmt.Sprintf("member %q", name)
}
