package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// byteReader is the input a Decoder consumes.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// Decoder handles FRPC wire format decoding from a byte slice or stream.
// It tracks the byte offset so errors can point at the failing position.
type Decoder struct {
	r      byteReader
	pos    int64
	depth  int
	config Config
}

// NewDecoder creates a decoder over an in-memory message
func NewDecoder(data []byte) *Decoder {
	return NewStreamDecoder(bytes.NewReader(data))
}

// NewStreamDecoder creates a decoder that reads from r. Readers without
// ReadByte are buffered.
func NewStreamDecoder(r io.Reader) *Decoder {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{
		r:      br,
		config: DefaultConfig(),
	}
}

// NewDecoderWithConfig creates a decoder over data with explicit limits
func NewDecoderWithConfig(data []byte, c Config) *Decoder {
	d := NewDecoder(data)
	d.config = c
	return d
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.pos
}

// Unmarshal decodes a single value from data.
func Unmarshal(data []byte) (Value, error) {
	return NewDecoder(data).DecodeValue()
}

// DecodeValue decodes the next value, including its tag.
func (d *Decoder) DecodeValue() (Value, error) {
	start := d.pos
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.decodeTagged(tag, start)
}

// decodeTagged decodes the value introduced by tag, read at offset start.
func (d *Decoder) decodeTagged(tag byte, start int64) (Value, error) {
	n := int(tag&lengthMask) + 1

	switch tag & typeMask {
	case TagNull:
		return Null{}, nil
	case TagBool:
		return Bool(tag&0x01 == 1), nil
	case TagIntPositive, TagIntNegative:
		return d.decodeInt(tag, start)
	case TagDouble:
		return NewFixedDecoder(d).DecodeDouble()
	case TagDateTime:
		return NewFixedDecoder(d).DecodeDateTime()
	case TagString:
		return NewBytesDecoder(d).DecodeString(n)
	case TagBinary:
		data, err := NewBytesDecoder(d).DecodeBytes(n)
		if err != nil {
			return nil, err
		}
		return Binary(data), nil
	case TagArray:
		return NewCompositeDecoder(d).DecodeArray(n)
	case TagStruct:
		return NewCompositeDecoder(d).DecodeStruct(n)
	}
	return nil, framingErrorf(start, ErrUnknownType, "tag 0x%02x", tag)
}

func (d *Decoder) enter() error {
	d.depth++
	if d.config.MaxDepth > 0 && d.depth > d.config.MaxDepth {
		d.depth--
		return framingErrorf(d.pos, ErrDepth, "limit %d", d.config.MaxDepth)
	}
	return nil
}

func (d *Decoder) leave() {
	d.depth--
}

// READ PRIMITIVES

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.streamError(err)
	}
	d.pos++
	return b, nil
}

func (d *Decoder) readFull(buf []byte) error {
	n, err := io.ReadFull(d.r, buf)
	d.pos += int64(n)
	if err != nil {
		return d.streamError(err)
	}
	return nil
}

// streamError maps reader failures to framing errors at the current offset.
func (d *Decoder) streamError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return framingError(d.pos, ErrUnexpectedEOF)
	}
	return framingError(d.pos, err)
}
