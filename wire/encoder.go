package wire

// Encoder handles FRPC wire format encoding into an in-memory buffer
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 64),
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Marshal encodes a single value without an envelope.
func Marshal(v Value) ([]byte, error) {
	e := NewEncoder()
	if err := e.EncodeValue(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeValue encodes v with its tag. On error the buffer is left as it was
// before the call.
func (e *Encoder) EncodeValue(v Value) error {
	mark := len(e.buf)
	if err := e.encodeValue(v); err != nil {
		e.buf = e.buf[:mark]
		return err
	}
	return nil
}

func (e *Encoder) encodeValue(v Value) error {
	switch x := v.(type) {
	case nil:
		return encodingError(ErrNilValue)
	case Null:
		e.EncodeNull()
	case Bool:
		e.EncodeBool(bool(x))
	case Int:
		return e.EncodeInt(int64(x))
	case Double:
		e.EncodeDouble(float64(x))
	case String:
		e.EncodeString(string(x))
	case Binary:
		e.EncodeBinary(x)
	case DateTime:
		return e.EncodeDateTime(x)
	case Array:
		return e.EncodeArray(x)
	case Struct:
		return e.EncodeStruct(x)
	case *Fault:
		return encodingError(ErrNestedFault)
	default:
		return encodingErrorf(ErrUnknownType, "%T", v)
	}
	return nil
}

// EncodeNull encodes the null value.
func (e *Encoder) EncodeNull() {
	e.buf = append(e.buf, TagNull)
}

// EncodeBool encodes a boolean in the low bit of its tag.
func (e *Encoder) EncodeBool(b bool) {
	if b {
		e.buf = append(e.buf, TagBool|0x01)
		return
	}
	e.buf = append(e.buf, TagBool)
}
