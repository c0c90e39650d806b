package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/anirudhraja/frpc/logging"
	"github.com/anirudhraja/frpc/schema"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
	"go.uber.org/zap"
)

const (
	wellKnownPrefix = "google.protobuf."
	emptyMessage    = "google.protobuf.Empty"
)

var protoScalars = map[string]func() *schema.Type{
	"double":   schema.DoubleType,
	"float":    schema.FloatType,
	"int32":    schema.IntType,
	"sint32":   schema.IntType,
	"sfixed32": schema.IntType,
	"uint32":   schema.IntType,
	"fixed32":  schema.IntType,
	"int64":    schema.LongType,
	"sint64":   schema.LongType,
	"sfixed64": schema.LongType,
	"uint64":   schema.LongType,
	"fixed64":  schema.LongType,
	"bool":     schema.BoolType,
	"string":   schema.StringType,
	"bytes":    schema.BinaryType,
}

var wellKnownTypes = map[string]func() *schema.Type{
	"google.protobuf.Timestamp":   schema.TimestampType,
	"google.protobuf.DoubleValue": nullable(schema.DoubleType),
	"google.protobuf.FloatValue":  nullable(schema.FloatType),
	"google.protobuf.Int64Value":  nullable(schema.LongType),
	"google.protobuf.UInt64Value": nullable(schema.LongType),
	"google.protobuf.Int32Value":  nullable(schema.IntType),
	"google.protobuf.UInt32Value": nullable(schema.IntType),
	"google.protobuf.BoolValue":   nullable(schema.BoolType),
	"google.protobuf.StringValue": nullable(schema.StringType),
	"google.protobuf.BytesValue":  nullable(schema.BinaryType),
	"google.protobuf.Struct":      messageType,
	"google.protobuf.ListValue":   func() *schema.Type { return schema.ArrayOf(schema.OpaqueType()) },
	"google.protobuf.Value":       schema.OpaqueType,
}

func nullable(scalar func() *schema.Type) func() *schema.Type {
	return func() *schema.Type { return schema.NullableType(scalar()) }
}

// messageType is the descriptor of a message-typed value: a struct with
// unchecked members.
func messageType() *schema.Type {
	return schema.MapOf(schema.StringType(), schema.OpaqueType())
}

// symbolTable holds every message and enum of the parsed files by fully
// qualified name.
type symbolTable struct {
	messages map[string]*protoparserparser.Message
	enums    map[string]struct{}
	all      map[string]struct{}
}

// buildSymbolTable registers the message and enum names of every parsed file.
func (r *Registry) buildSymbolTable() *symbolTable {
	symbols := &symbolTable{
		messages: make(map[string]*protoparserparser.Message),
		enums:    make(map[string]struct{}),
		all:      make(map[string]struct{}),
	}
	for file, body := range r.parsedProtoBody {
		pkg := ""
		if entity, ok := r.protoEntities[file]; ok {
			pkg = entity.pkg
		}
		symbols.registerNames(pkg, body.ProtoBody)
	}
	return symbols
}

// registerNames registers messages and enums declared in body, recursing
// into nested declarations.
func (s *symbolTable) registerNames(scope string, body []protoparserparser.Visitee) {
	for _, v := range body {
		switch b := v.(type) {
		case *protoparserparser.Message:
			fullName := getFullName(scope, b.MessageName)
			s.messages[fullName] = b
			s.all[fullName] = struct{}{}
			s.registerNames(fullName, b.MessageBody)
		case *protoparserparser.Enum:
			fullName := getFullName(scope, b.EnumName)
			s.enums[fullName] = struct{}{}
			s.all[fullName] = struct{}{}
		}
	}
}

// buildServices registers a method named Service.Rpc for every unary rpc
// declared in file. Services registered by an earlier load are skipped.
func (r *Registry) buildServices(file string, symbols *symbolTable) error {
	pkg := r.protoEntities[file].pkg

	for _, v := range r.parsedProtoBody[file].ProtoBody {
		service, ok := v.(*protoparserparser.Service)
		if !ok {
			continue
		}
		serviceName := getFullName(pkg, service.ServiceName)
		if _, done := r.services[serviceName]; done {
			continue
		}

		for _, body := range service.ServiceBody {
			rpc, ok := body.(*protoparserparser.RPC)
			if !ok {
				continue
			}
			method := service.ServiceName + "." + rpc.RPCName
			if rpc.RPCRequest.IsStream || rpc.RPCResponse.IsStream {
				logging.Logger().Debug("skipping streaming rpc", zap.String("method", method))
				continue
			}

			sig, err := symbols.signature(method, pkg, rpc)
			if err != nil {
				return fmt.Errorf("service %s: %w", serviceName, err)
			}
			if err := r.register(sig); err != nil {
				return err
			}
		}
		r.services[serviceName] = struct{}{}
	}
	return nil
}

func (s *symbolTable) signature(method, pkg string, rpc *protoparserparser.RPC) (*Signature, error) {
	builder := NewSignature(method)

	request := rpc.RPCRequest.MessageType
	switch {
	case strings.TrimPrefix(request, ".") == emptyMessage:
	case s.isWellKnown(request):
		builder.Params(s.wellKnown(request))
	default:
		fields, err := s.messageFields(request, pkg)
		if err != nil {
			return nil, fmt.Errorf("rpc %s request: %w", rpc.RPCName, err)
		}
		for _, f := range fields {
			builder.Params(f.typ)
		}
	}

	response := rpc.RPCResponse.MessageType
	switch {
	case strings.TrimPrefix(response, ".") == emptyMessage:
	case s.isWellKnown(response):
		builder.Returns(s.wellKnown(response))
	default:
		fields, err := s.messageFields(response, pkg)
		if err != nil {
			return nil, fmt.Errorf("rpc %s response: %w", rpc.RPCName, err)
		}
		if len(fields) == 1 {
			builder.Returns(fields[0].typ)
		} else {
			builder.Returns(messageType())
		}
	}

	return builder.Build()
}

type protoField struct {
	name   string
	number int64
	typ    *schema.Type
}

// messageFields resolves a message reference from scope and returns its
// fields in field-number order.
func (s *symbolTable) messageFields(typeName, scope string) ([]protoField, error) {
	fullName, err := getReferencedType(typeName, scope, s.all)
	if err != nil {
		return nil, err
	}
	msg, ok := s.messages[fullName]
	if !ok {
		return nil, fmt.Errorf("%s is not a message", fullName)
	}

	var fields []protoField
	add := func(name, number, typeName string, repeated, optional bool) error {
		n, err := strconv.ParseInt(number, 0, 32)
		if err != nil {
			return fmt.Errorf("field %s.%s: bad number %q", fullName, name, number)
		}
		typ, err := s.fieldType(typeName, fullName)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", fullName, name, err)
		}
		switch {
		case repeated:
			typ = schema.ArrayOf(typ)
		case optional && typ.Kind == schema.KindScalar:
			typ = schema.NullableType(typ)
		}
		fields = append(fields, protoField{name: name, number: n, typ: typ})
		return nil
	}

	for _, v := range msg.MessageBody {
		var err error
		switch f := v.(type) {
		case *protoparserparser.Field:
			err = add(f.FieldName, f.FieldNumber, f.Type, f.IsRepeated, f.IsOptional)
		case *protoparserparser.MapField:
			var value *schema.Type
			if value, err = s.fieldType(f.Type, fullName); err == nil {
				n, perr := strconv.ParseInt(f.FieldNumber, 0, 32)
				if perr != nil {
					err = fmt.Errorf("field %s.%s: bad number %q", fullName, f.MapName, f.FieldNumber)
					break
				}
				fields = append(fields, protoField{
					name:   f.MapName,
					number: n,
					typ:    schema.MapOf(schema.StringType(), value),
				})
			}
		case *protoparserparser.Oneof:
			for _, of := range f.OneofFields {
				if err = add(of.FieldName, of.FieldNumber, of.Type, false, true); err != nil {
					break
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].number < fields[j].number })
	return fields, nil
}

// fieldType maps a proto field type, resolved from scope, to a descriptor.
func (s *symbolTable) fieldType(typeName, scope string) (*schema.Type, error) {
	if scalar, ok := protoScalars[typeName]; ok {
		return scalar(), nil
	}
	if s.isWellKnown(typeName) {
		return s.wellKnown(typeName), nil
	}

	fullName, err := getReferencedType(typeName, scope, s.all)
	if err != nil {
		return nil, err
	}
	if _, ok := s.enums[fullName]; ok {
		return schema.IntType(), nil
	}
	return messageType(), nil
}

func (s *symbolTable) isWellKnown(typeName string) bool {
	typeName = strings.TrimPrefix(typeName, ".")
	if !strings.HasPrefix(typeName, wellKnownPrefix) {
		return false
	}
	// a user package may itself be named google.protobuf
	_, shadowed := s.all[typeName]
	return !shadowed
}

// wellKnown maps a google.protobuf type. Types without a closer descriptor
// are opaque.
func (s *symbolTable) wellKnown(typeName string) *schema.Type {
	if t, ok := wellKnownTypes[strings.TrimPrefix(typeName, ".")]; ok {
		return t()
	}
	return schema.OpaqueType()
}
