package wire

import (
	"math"
	"math/bits"
)

// Variable-width quantities (integer magnitudes, string/binary lengths,
// array/struct counts) are little-endian and use the fewest bytes that hold
// the value, between 1 and 8. The byte count minus one rides in the low 3 bits
// of the preceding type tag.

// DECODER METHODS

// readUint reads an n-byte little-endian quantity.
func (d *Decoder) readUint(n int) (uint64, error) {
	var buf [8]byte
	if err := d.readFull(buf[:n]); err != nil {
		return 0, err
	}

	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// readLength reads an n-byte length or count and checks it against the
// configured maximum.
func (d *Decoder) readLength(n int) (uint64, error) {
	start := d.pos
	v, err := d.readUint(n)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 || (d.config.MaxLength > 0 && v > d.config.MaxLength) {
		return 0, framingErrorf(start, ErrTooLong, "%d", v)
	}
	return v, nil
}

// DecodeInt decodes an integer whose tag byte has already been read.
func (d *Decoder) decodeInt(tag byte, start int64) (Value, error) {
	magnitude, err := d.readUint(int(tag&lengthMask) + 1)
	if err != nil {
		return nil, err
	}

	if magnitude > math.MaxInt64 {
		return nil, framingErrorf(start, ErrIntOverflow, "magnitude %d", magnitude)
	}

	if tag&typeMask == TagIntNegative {
		if magnitude == 0 {
			return nil, framingError(start, ErrNegativeZero)
		}
		return Int(-int64(magnitude)), nil
	}
	return Int(magnitude), nil
}

// ENCODER METHODS

// putUint appends v as an n-byte little-endian quantity.
func (e *Encoder) putUint(v uint64, n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, byte(v))
		v >>= 8
	}
}

// putTagged appends a type tag carrying the width of v, followed by v.
func (e *Encoder) putTagged(typ byte, v uint64) {
	n := UintSize(v)
	e.buf = append(e.buf, typ|byte(n-1))
	e.putUint(v, n)
}

// EncodeInt encodes a signed integer as a sign-selected tag and its
// magnitude. math.MinInt64 has no representable magnitude and is rejected.
func (e *Encoder) EncodeInt(v int64) error {
	if v == math.MinInt64 {
		return encodingErrorf(ErrIntOverflow, "cannot negate %d", v)
	}
	if v < 0 {
		e.putTagged(TagIntNegative, uint64(-v))
		return nil
	}
	e.putTagged(TagIntPositive, uint64(v))
	return nil
}

// UTILITY FUNCTIONS

// UintSize returns the number of bytes needed to encode v: max(1,
// ceil(bitlen(v)/8)).
func UintSize(v uint64) int {
	n := (bits.Len64(v) + 7) / 8
	if n == 0 {
		return 1
	}
	return n
}

// IntSize returns the encoded size of v including its tag byte.
func IntSize(v int64) int {
	if v < 0 {
		return 1 + UintSize(uint64(-v))
	}
	return 1 + UintSize(uint64(v))
}
