package convert

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates the direction of the failed conversion
type Phase string

const (
	PhaseRaise Phase = "raise" // wire to Go
	PhaseLower Phase = "lower" // Go to wire
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindNarrowing         Kind = "narrowing"
	KindNull              Kind = "null"
	KindUnsupported       Kind = "unsupported"
	KindInvalidDescriptor Kind = "invalid_descriptor"
)

// Error is a conversion failure. Path lists the positions leading to the
// failing value from the outside in, e.g. `key "a"`, `element #2`.
type Error struct {
	Phase  Phase
	Kind   Kind
	Path   []string
	Wire   string // wire kind of the offending value
	Target string // requested descriptor
	GoType string // offending Go type, when lowering
	Detail string
	Cause  error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if len(e.Path) > 0 {
		b.WriteString(strings.Join(e.Path, ", "))
		b.WriteString(": ")
	}

	switch {
	case e.Kind == KindInvalidDescriptor:
		b.WriteString("invalid descriptor")
		if e.Target != "" {
			b.WriteByte(' ')
			b.WriteString(e.Target)
		}
	case e.Phase == PhaseLower:
		b.WriteString("cannot lower ")
		if e.GoType != "" {
			b.WriteString(e.GoType)
		} else {
			b.WriteString("value")
		}
	default:
		fmt.Fprintf(&b, "cannot raise %s to %s", e.Wire, e.Target)
	}

	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind, and phase when the
// target names one.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && (t.Phase == "" || e.Phase == t.Phase)
	}
	return false
}

// IsKind reports whether err is a conversion error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// NewError creates a new error builder
func NewError(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Wire sets the offending wire kind
func (b *Builder) Wire(kind string) *Builder {
	b.err.Wire = kind
	return b
}

// Target sets the requested descriptor
func (b *Builder) Target(t fmt.Stringer) *Builder {
	b.err.Target = t.String()
	return b
}

// GoType sets the offending Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...interface{}) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WithPath prepends a path segment to a conversion error. Other errors are
// returned unchanged.
func WithPath(err error, segment string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	c := *e
	c.Path = append([]string{segment}, e.Path...)
	return &c
}

// ElementSegment names the i-th (0-based) element as a 1-based position.
func ElementSegment(i int) string {
	return fmt.Sprintf("element #%d", i+1)
}

// KeySegment names a struct member / map key.
func KeySegment(key string) string {
	return fmt.Sprintf("key %q", key)
}

// ParameterSegment names the i-th (0-based) call parameter.
func ParameterSegment(i int) string {
	return fmt.Sprintf("parameter #%d", i+1)
}
