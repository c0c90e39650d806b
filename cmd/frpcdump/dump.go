package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/anirudhraja/frpc"
	"github.com/anirudhraja/frpc/convert"
	"github.com/anirudhraja/frpc/wire"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Dumper renders envelopes, one per line.
type Dumper struct {
	frpc *frpc.FRPC
	json bool
}

// ServeFramed reads one length-prefixed envelope from r and dumps it to w.
// It reports true once r is exhausted.
func (d *Dumper) ServeFramed(r io.Reader, w io.Writer) (bool, error) {
	var lenBuf [4]byte
	_, err := io.ReadFull(r, lenBuf[:])
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read length: %w", err)
	}

	// the buffer grows with the bytes that arrive, not with the declared length
	inLen := binary.LittleEndian.Uint32(lenBuf[:])
	var in bytes.Buffer
	if _, err := io.CopyN(&in, r, int64(inLen)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return false, fmt.Errorf("read envelope: %w", err)
	}
	return false, d.Dump(in.Bytes(), w)
}

// Dump decodes a single envelope and writes its rendering to w. A call to a
// registered method whose parameters do not fit the signature is an error.
func (d *Dumper) Dump(data []byte, w io.Writer) error {
	env, err := wire.NewDecoder(data).DecodeEnvelope()
	if err != nil {
		return err
	}

	if call, ok := env.(*wire.MethodCall); ok {
		if _, known := d.frpc.GetRegistry().Lookup(call.Name); known {
			if _, err := d.frpc.UnmarshalCall(data); err != nil {
				return fmt.Errorf("%s: %w", call.Name, err)
			}
		}
	}

	var line string
	if d.json {
		line, err = renderJSON(env)
		if err != nil {
			return err
		}
	} else {
		line = renderText(env)
	}
	_, err = fmt.Fprintln(w, line)
	return err
}

func renderText(env wire.Envelope) string {
	switch x := env.(type) {
	case *wire.MethodCall:
		params := make([]string, len(x.Params))
		for i, p := range x.Params {
			params[i] = wire.Format(p)
		}
		return fmt.Sprintf("call %s(%s)", x.Name, strings.Join(params, ", "))
	case *wire.MethodResponse:
		return "response " + wire.Format(x.Value)
	case *wire.Fault:
		return wire.Format(x)
	}
	return fmt.Sprintf("%T", env)
}

func renderJSON(env wire.Envelope) (string, error) {
	fields := make(map[string]*structpb.Value)

	switch x := env.(type) {
	case *wire.MethodCall:
		params, err := convert.ToProtoValue(wire.Array(x.Params))
		if err != nil {
			return "", err
		}
		fields["method"] = structpb.NewStringValue(x.Name)
		fields["params"] = params
	case *wire.MethodResponse:
		result, err := convert.ToProtoValue(x.Value)
		if err != nil {
			return "", err
		}
		fields["result"] = result
	case *wire.Fault:
		fault, err := convert.ToProtoValue(x)
		if err != nil {
			return "", err
		}
		fields["fault"] = fault
	}

	out, err := protojson.Marshal(&structpb.Struct{Fields: fields})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
