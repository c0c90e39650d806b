package wire

import (
	"bytes"
	"io"
	"unicode/utf8"
)

// BytesDecoder handles length-prefixed string, binary and name decoding
type BytesDecoder struct {
	decoder *Decoder
}

// BytesEncoder handles length-prefixed string, binary and name encoding
type BytesEncoder struct {
	encoder *Encoder
}

// NewBytesDecoder creates a new bytes decoder
func NewBytesDecoder(d *Decoder) *BytesDecoder {
	return &BytesDecoder{decoder: d}
}

// NewBytesEncoder creates a new bytes encoder
func NewBytesEncoder(e *Encoder) *BytesEncoder {
	return &BytesEncoder{encoder: e}
}

// readChunk is the largest payload read with a single up-front allocation.
// Longer payloads grow with the bytes that actually arrive, so a forged
// length cannot reserve memory the stream does not back.
const readChunk = 64 << 10

// DECODER METHODS

// DecodeBytes decodes a payload whose n-byte length follows the tag.
func (bd *BytesDecoder) DecodeBytes(n int) ([]byte, error) {
	d := bd.decoder
	length, err := d.readLength(n)
	if err != nil {
		return nil, err
	}

	if length <= readChunk {
		data := make([]byte, length)
		if err := d.readFull(data); err != nil {
			return nil, err
		}
		return data, nil
	}

	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, d.r, int64(length))
	d.pos += copied
	if err != nil {
		return nil, d.streamError(err)
	}
	return buf.Bytes(), nil
}

// DecodeString decodes a string payload. It is checked for valid UTF-8 only
// when the decoder is configured to.
func (bd *BytesDecoder) DecodeString(n int) (String, error) {
	start := bd.decoder.pos
	data, err := bd.DecodeBytes(n)
	if err != nil {
		return "", err
	}
	if bd.decoder.config.ValidateStrings && !utf8.Valid(data) {
		return "", framingError(start, ErrInvalidUTF8)
	}
	return String(data), nil
}

// DecodeName decodes a 1-byte length followed by a non-empty UTF-8 name.
func (bd *BytesDecoder) DecodeName() (string, error) {
	d := bd.decoder
	start := d.pos
	length, err := d.readByte()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", framingError(start, ErrEmptyName)
	}

	name := make([]byte, length)
	if err := d.readFull(name); err != nil {
		return "", err
	}
	if !utf8.Valid(name) {
		return "", framingError(start, ErrInvalidUTF8)
	}
	return string(name), nil
}

// ENCODER METHODS

// EncodeBytes encodes a length-prefixed payload under the given type tag.
func (be *BytesEncoder) EncodeBytes(tag byte, data []byte) {
	e := be.encoder
	e.putTagged(tag, uint64(len(data)))
	e.buf = append(e.buf, data...)
}

// EncodeString encodes a string value.
func (be *BytesEncoder) EncodeString(s string) {
	e := be.encoder
	e.putTagged(TagString, uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// EncodeName encodes a struct member or method name. Names longer than 255
// bytes, empty names and invalid UTF-8 are rejected rather than truncated.
func (be *BytesEncoder) EncodeName(name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	e := be.encoder
	e.buf = append(e.buf, byte(len(name)))
	e.buf = append(e.buf, name...)
	return nil
}

// UTILITY FUNCTIONS

// CheckName reports whether name can be written as a member or method name.
func CheckName(name string) error {
	switch {
	case name == "":
		return encodingError(ErrEmptyName)
	case len(name) > MaxNameLength:
		return encodingErrorf(ErrNameTooLong, "%d bytes", len(name))
	case !utf8.ValidString(name):
		return encodingErrorf(ErrInvalidUTF8, "name %q", name)
	}
	return nil
}

// BytesSize returns the encoded size of a string or binary payload including
// its tag byte.
func BytesSize(n int) int {
	return 1 + UintSize(uint64(n)) + n
}

// Convenience methods

// EncodeString encodes a string using the bytes encoder.
func (e *Encoder) EncodeString(s string) {
	NewBytesEncoder(e).EncodeString(s)
}

// EncodeBinary encodes a binary blob using the bytes encoder.
func (e *Encoder) EncodeBinary(data []byte) {
	NewBytesEncoder(e).EncodeBytes(TagBinary, data)
}
