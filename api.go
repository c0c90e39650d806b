package frpc

import (
	"fmt"

	"github.com/anirudhraja/frpc/convert"
	"github.com/anirudhraja/frpc/logging"
	"github.com/anirudhraja/frpc/registry"
	"github.com/anirudhraja/frpc/wire"
	"go.uber.org/zap"
)

// ===== SCHEMA-AWARE API =====

// FRPC marshals and unmarshals FRPC calls and responses, converting between
// Go values and wire values with the method signatures in its registry.
type FRPC struct {
	registry *registry.Registry
	config   *wire.Config
}

// Option configures an FRPC instance.
type Option func(*FRPC)

// WithRegistry uses reg instead of an empty registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(f *FRPC) { f.registry = reg }
}

// WithConfig decodes with c instead of the package default.
func WithConfig(c wire.Config) Option {
	return func(f *FRPC) { f.config = &c }
}

// WithProtoDirectories sets the search path for LoadSchema.
func WithProtoDirectories(dirs ...string) Option {
	return func(f *FRPC) { f.registry = registry.NewRegistry(dirs) }
}

// New creates a new FRPC instance
func New(opts ...Option) *FRPC {
	f := &FRPC{}
	for _, opt := range opts {
		opt(f)
	}
	if f.registry == nil {
		f.registry = registry.NewRegistry(nil)
	}
	return f
}

// Call is a decoded method call. Signature is nil for unregistered methods,
// whose parameters are returned in their untyped form.
type Call struct {
	Method    string
	Params    []interface{}
	Signature *registry.Signature
}

// MarshalCall lowers params and encodes a call to method.
func (f *FRPC) MarshalCall(method string, params ...interface{}) ([]byte, error) {
	values := make([]wire.Value, len(params))
	for i, p := range params {
		v, err := convert.Lower(p)
		if err != nil {
			return nil, convert.WithPath(err, convert.ParameterSegment(i))
		}
		values[i] = v
	}

	e := wire.NewEncoder()
	if err := e.EncodeCall(method, values...); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// UnmarshalCall decodes a call and raises its parameters against the
// registered signature. Parameters beyond the declared ones are opaque, and
// trailing declared parameters may be absent.
func (f *FRPC) UnmarshalCall(data []byte) (*Call, error) {
	call, err := f.decodeCall(data)
	if err != nil {
		return nil, err
	}

	sig, ok := f.registry.Lookup(call.Name)
	if !ok {
		logging.Logger().Warn("unknown method", zap.String("method", call.Name), zap.Int("params", len(call.Params)))
	}

	out := &Call{Method: call.Name, Params: make([]interface{}, len(call.Params)), Signature: sig}
	for i, p := range call.Params {
		if sig == nil {
			out.Params[i] = convert.Native(p)
			continue
		}
		x, err := convert.Raise(p, sig.Param(i))
		if err != nil {
			return nil, convert.WithPath(err, convert.ParameterSegment(i))
		}
		out.Params[i] = x
	}
	return out, nil
}

// UnmarshalParams decodes a call and raises its parameters into the
// variables targets point to, in order. Parameters without a target are
// ignored; targets without a parameter are left untouched.
func (f *FRPC) UnmarshalParams(data []byte, targets ...interface{}) (string, error) {
	call, err := f.decodeCall(data)
	if err != nil {
		return "", err
	}

	for i, target := range targets {
		if i >= len(call.Params) {
			break
		}
		if err := convert.RaiseInto(call.Params[i], target); err != nil {
			return call.Name, convert.WithPath(err, convert.ParameterSegment(i))
		}
	}
	return call.Name, nil
}

func (f *FRPC) decodeCall(data []byte) (*wire.MethodCall, error) {
	env, err := f.decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	call, ok := env.(*wire.MethodCall)
	if !ok {
		return nil, fmt.Errorf("expected a method call, got %T", env)
	}
	return call, nil
}

// MarshalResponse lowers result and encodes a successful response. A
// *wire.Fault result is encoded as a fault.
func (f *FRPC) MarshalResponse(result interface{}) ([]byte, error) {
	v, err := convert.Lower(result)
	if err != nil {
		return nil, err
	}

	e := wire.NewEncoder()
	if err := e.EncodeResponse(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// MarshalFault encodes a fault response.
func (f *FRPC) MarshalFault(status int32, message string) ([]byte, error) {
	e := wire.NewEncoder()
	if err := e.EncodeFault(status, message); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// UnmarshalResponse decodes a response to method and raises its value
// against the registered result descriptor. A fault response is returned as
// a *wire.Fault error.
func (f *FRPC) UnmarshalResponse(data []byte, method string) (interface{}, error) {
	env, err := f.decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch x := env.(type) {
	case *wire.Fault:
		return nil, x
	case *wire.MethodResponse:
		sig, ok := f.registry.Lookup(method)
		if !ok || sig.Result == nil {
			return convert.Native(x.Value), nil
		}
		return convert.Raise(x.Value, sig.Result)
	}
	return nil, fmt.Errorf("expected a response, got %T", env)
}

func (f *FRPC) decodeEnvelope(data []byte) (wire.Envelope, error) {
	d := wire.NewDecoder(data)
	if f.config != nil {
		d = wire.NewDecoderWithConfig(data, *f.config)
	}

	env, err := d.DecodeEnvelope()
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("envelope decoded", zap.String("envelope", fmt.Sprintf("%T", env)), zap.Int64("bytes", d.Offset()))
	return env, nil
}

// ===== REGISTRY ACCESS =====

// LoadSchema registers the services declared in a .proto file or directory.
func (f *FRPC) LoadSchema(protoPath string) error { return f.registry.LoadSchema(protoPath) }

// Register adds a method signature.
func (f *FRPC) Register(sig *registry.Signature) error { return f.registry.Register(sig) }

func (f *FRPC) GetRegistry() *registry.Registry { return f.registry }
func (f *FRPC) ListMethods() []string           { return f.registry.ListMethods() }
