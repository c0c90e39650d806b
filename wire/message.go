package wire

import (
	"errors"
	"fmt"
	"io"
)

// Top-level messages: every call, response and fault starts with Magic
// followed by a single envelope tag.

// DECODER METHODS

// UnmarshalEnvelope decodes a complete call, response or fault.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	return NewDecoder(data).DecodeEnvelope()
}

// ReadEnvelope decodes an envelope from r. A non-negative contentLength
// bounds the bytes read; a negative one reads to end of stream. Call
// parameters run until that bound or end of stream.
func ReadEnvelope(r io.Reader, contentLength int64) (Envelope, error) {
	if contentLength >= 0 {
		r = io.LimitReader(r, contentLength)
	}
	return NewStreamDecoder(r).DecodeEnvelope()
}

// DecodeEnvelope decodes the magic header and the envelope that follows.
// Any minor version of protocol major 2 is accepted.
func (d *Decoder) DecodeEnvelope() (Envelope, error) {
	var hdr [4]byte
	if err := d.readFull(hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != Magic[0] || hdr[1] != Magic[1] || hdr[2] != Magic[2] {
		return nil, framingErrorf(0, ErrBadMagic, "% x", hdr[:])
	}

	start := d.pos
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch tag & typeMask {
	case TagMethodCall:
		return d.decodeCall()
	case TagMethodResponse:
		v, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		return &MethodResponse{Value: v}, nil
	case TagFault:
		return d.decodeFault(start)
	}
	return nil, framingErrorf(start, ErrUnknownType, "envelope tag 0x%02x", tag)
}

// decodeCall reads the method name and then parameters until the input is
// exhausted. End of input is only graceful between parameters.
func (d *Decoder) decodeCall() (*MethodCall, error) {
	name, err := NewBytesDecoder(d).DecodeName()
	if err != nil {
		return nil, err
	}

	call := &MethodCall{Name: name}
	for i := 0; ; i++ {
		start := d.pos
		tag, err := d.r.ReadByte()
		if errors.Is(err, io.EOF) {
			return call, nil
		}
		if err != nil {
			return nil, d.streamError(err)
		}
		d.pos++

		v, err := d.decodeTagged(tag, start)
		if err != nil {
			return nil, wrapWithPath(err, paramSegment(i))
		}
		call.Params = append(call.Params, v)
	}
}

// decodeFault reads the Int status and String message of a fault.
func (d *Decoder) decodeFault(start int64) (*Fault, error) {
	status, err := d.DecodeValue()
	if err != nil {
		return nil, err
	}
	code, ok := status.(Int)
	if !ok || !code.Fits32() {
		return nil, framingErrorf(start, ErrMalformedFault, "status is %s", Format(status))
	}

	msg, err := d.DecodeValue()
	if err != nil {
		return nil, err
	}
	text, ok := msg.(String)
	if !ok {
		return nil, framingErrorf(start, ErrMalformedFault, "message is %s", msg.Kind())
	}
	return &Fault{Status: int32(code), Message: string(text)}, nil
}

// ENCODER METHODS

// MarshalEnvelope encodes a complete call, response or fault.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	e := NewEncoder()
	if err := e.EncodeEnvelope(env); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// WriteEnvelope encodes env and writes it to w.
func WriteEnvelope(w io.Writer, env Envelope) error {
	data, err := MarshalEnvelope(env)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeEnvelope encodes a complete call, response or fault.
func (e *Encoder) EncodeEnvelope(env Envelope) error {
	switch x := env.(type) {
	case *MethodCall:
		return e.EncodeCall(x.Name, x.Params...)
	case *MethodResponse:
		return e.EncodeResponse(x.Value)
	case *Fault:
		if x == nil {
			return encodingErrorf(ErrNilValue, "fault")
		}
		return e.EncodeFault(x.Status, x.Message)
	}
	return encodingErrorf(ErrUnknownType, "envelope %T", env)
}

// EncodeCall encodes a method call with positional parameters.
func (e *Encoder) EncodeCall(name string, params ...Value) error {
	mark := len(e.buf)
	e.writeMagic()
	e.buf = append(e.buf, TagMethodCall)
	if err := NewBytesEncoder(e).EncodeName(name); err != nil {
		e.buf = e.buf[:mark]
		return err
	}

	for i, p := range params {
		if err := e.EncodeValue(p); err != nil {
			e.buf = e.buf[:mark]
			return wrapWithPath(err, paramSegment(i))
		}
	}
	return nil
}

// EncodeResponse encodes a successful response. A *Fault value is written as
// a fault envelope instead.
func (e *Encoder) EncodeResponse(v Value) error {
	if f, ok := v.(*Fault); ok {
		if f == nil {
			return encodingErrorf(ErrNilValue, "fault")
		}
		return e.EncodeFault(f.Status, f.Message)
	}

	mark := len(e.buf)
	e.writeMagic()
	e.buf = append(e.buf, TagMethodResponse)
	if err := e.EncodeValue(v); err != nil {
		e.buf = e.buf[:mark]
		return err
	}
	return nil
}

// EncodeFault encodes a fault response.
func (e *Encoder) EncodeFault(status int32, message string) error {
	e.writeMagic()
	e.buf = append(e.buf, TagFault)
	// int32 always has a magnitude
	_ = e.EncodeInt(int64(status))
	e.EncodeString(message)
	return nil
}

func (e *Encoder) writeMagic() {
	e.buf = append(e.buf, Magic[:]...)
}

func paramSegment(i int) string {
	return fmt.Sprintf("parameter #%d", i+1)
}
