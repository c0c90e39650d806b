package registry

import (
	"fmt"
	"strings"

	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
)

// Signature describes a method: the descriptors its positional parameters
// are raised against and the descriptor of its result. A nil Result accepts
// any value.
type Signature struct {
	Method string
	Params []*schema.Type
	Result *schema.Type
}

// String renders the signature as `name(p1, p2) result`.
func (s *Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	result := "any"
	if s.Result != nil {
		result = s.Result.String()
	}
	return fmt.Sprintf("%s(%s) %s", s.Method, strings.Join(params, ", "), result)
}

// Param returns the descriptor of the i-th (0-based) parameter. Parameters
// beyond the declared ones are opaque.
func (s *Signature) Param(i int) *schema.Type {
	if i < len(s.Params) {
		return s.Params[i]
	}
	return opaque
}

var opaque = schema.OpaqueType()

// SignatureBuilder assembles a Signature.
type SignatureBuilder struct {
	sig Signature
}

// NewSignature starts a signature for method.
func NewSignature(method string) *SignatureBuilder {
	return &SignatureBuilder{sig: Signature{Method: method}}
}

// Params appends parameter descriptors.
func (b *SignatureBuilder) Params(types ...*schema.Type) *SignatureBuilder {
	b.sig.Params = append(b.sig.Params, types...)
	return b
}

// Returns sets the result descriptor.
func (b *SignatureBuilder) Returns(t *schema.Type) *SignatureBuilder {
	b.sig.Result = t
	return b
}

// Build validates the method name and every descriptor.
func (b *SignatureBuilder) Build() (*Signature, error) {
	if err := wire.CheckName(b.sig.Method); err != nil {
		return nil, fmt.Errorf("method %q: %w", b.sig.Method, err)
	}
	for i, p := range b.sig.Params {
		if err := schema.Validate(p); err != nil {
			return nil, fmt.Errorf("method %q parameter #%d: %w", b.sig.Method, i+1, err)
		}
	}
	if b.sig.Result != nil {
		if err := schema.Validate(b.sig.Result); err != nil {
			return nil, fmt.Errorf("method %q result: %w", b.sig.Method, err)
		}
	}

	sig := b.sig
	sig.Params = append([]*schema.Type(nil), b.sig.Params...)
	return &sig, nil
}

// MustBuild is like Build but panics on error.
func (b *SignatureBuilder) MustBuild() *Signature {
	sig, err := b.Build()
	if err != nil {
		panic(err)
	}
	return sig
}
