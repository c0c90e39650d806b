package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FixedDecoder handles fixed-width decoding operations
type FixedDecoder struct {
	decoder *Decoder
}

// FixedEncoder handles fixed-width encoding operations
type FixedEncoder struct {
	encoder *Encoder
}

// NewFixedDecoder creates a new fixed decoder
func NewFixedDecoder(d *Decoder) *FixedDecoder {
	return &FixedDecoder{decoder: d}
}

// NewFixedEncoder creates a new fixed encoder
func NewFixedEncoder(e *Encoder) *FixedEncoder {
	return &FixedEncoder{encoder: e}
}

const (
	doubleSize   = 8
	dateTimeSize = 10
)

// DECODER METHODS

// DecodeDouble decodes the 8-byte little-endian IEEE-754 payload of a double.
func (fd *FixedDecoder) DecodeDouble() (Double, error) {
	var buf [doubleSize]byte
	if err := fd.decoder.readFull(buf[:]); err != nil {
		return 0, err
	}
	return Double(math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))), nil
}

// DecodeDateTime decodes the 10-byte date-time payload: zone byte, 32-bit
// unix timestamp and 5 bytes of packed calendar fields. Calendar fields out
// of range are rejected rather than normalized.
func (fd *FixedDecoder) DecodeDateTime() (DateTime, error) {
	start := fd.decoder.pos
	var buf [dateTimeSize]byte
	if err := fd.decoder.readFull(buf[:]); err != nil {
		return DateTime{}, err
	}

	b := buf[5:]
	dt := DateTime{
		TZ:      int8(buf[0]),
		Unix:    int32(binary.LittleEndian.Uint32(buf[1:5])),
		Weekday: b[0] & 0x07,
		Second:  b[0]>>3 | (b[1]&0x01)<<5,
		Minute:  (b[1] >> 1) & 0x3f,
		Hour:    b[1]>>7 | (b[2]&0x0f)<<1,
		Day:     b[2]>>4 | (b[3]&0x01)<<4,
		Month:   (b[3] >> 1) & 0x0f,
		Year:    (uint16(b[3]>>5) | uint16(b[4])<<3) + YearOffset,
	}
	if err := dateTimeFieldError(dt); err != nil {
		return DateTime{}, framingError(start, err)
	}
	return dt, nil
}

// ENCODER METHODS

// EncodeDouble encodes a double with its tag.
func (fe *FixedEncoder) EncodeDouble(f float64) {
	e := fe.encoder
	e.buf = append(e.buf, TagDouble)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(f))
}

// EncodeDateTime encodes a date-time with its tag. Every calendar field is
// range-checked; nothing is silently truncated.
func (fe *FixedEncoder) EncodeDateTime(dt DateTime) error {
	if err := checkDateTime(dt); err != nil {
		return err
	}

	e := fe.encoder
	year := dt.Year - YearOffset
	e.buf = append(e.buf, TagDateTime, byte(dt.TZ))
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(dt.Unix))
	e.buf = append(e.buf,
		(dt.Second&0x1f)<<3|dt.Weekday&0x07,
		(dt.Minute&0x3f)<<1|(dt.Second&0x20)>>5|(dt.Hour&0x01)<<7,
		(dt.Hour&0x1e)>>1|(dt.Day&0x0f)<<4,
		(dt.Day&0x10)>>4|(dt.Month&0x0f)<<1|byte(year&0x07)<<5,
		byte((year&0x7f8)>>3),
	)
	return nil
}

// UTILITY FUNCTIONS

func checkDateTime(dt DateTime) error {
	if err := dateTimeFieldError(dt); err != nil {
		return encodingError(err)
	}
	return nil
}

// dateTimeFieldError reports the first calendar field outside its range.
func dateTimeFieldError(dt DateTime) error {
	if dt.Year < YearOffset || dt.Year > MaxYear {
		return fmt.Errorf("%w: year %d", ErrYearRange, dt.Year)
	}

	switch {
	case dt.Month < 1 || dt.Month > 12:
		return fmt.Errorf("%w: month %d", ErrDateField, dt.Month)
	case dt.Day < 1 || dt.Day > 31:
		return fmt.Errorf("%w: day %d", ErrDateField, dt.Day)
	case dt.Hour > 23:
		return fmt.Errorf("%w: hour %d", ErrDateField, dt.Hour)
	case dt.Minute > 59:
		return fmt.Errorf("%w: minute %d", ErrDateField, dt.Minute)
	case dt.Second > 60:
		return fmt.Errorf("%w: second %d", ErrDateField, dt.Second)
	case dt.Weekday > 6:
		return fmt.Errorf("%w: weekday %d", ErrDateField, dt.Weekday)
	}
	return nil
}

// Convenience methods

// DecodeDouble decodes a double payload using the fixed decoder.
func (d *Decoder) DecodeDouble() (Double, error) {
	return NewFixedDecoder(d).DecodeDouble()
}

// EncodeDouble encodes a double using the fixed encoder.
func (e *Encoder) EncodeDouble(f float64) {
	NewFixedEncoder(e).EncodeDouble(f)
}

// EncodeDateTime encodes a date-time using the fixed encoder.
func (e *Encoder) EncodeDateTime(dt DateTime) error {
	return NewFixedEncoder(e).EncodeDateTime(dt)
}
