package registry

import (
	"testing"

	"github.com/anirudhraja/frpc/schema"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
)

func emptySymbols() *symbolTable {
	return &symbolTable{
		messages: make(map[string]*protoparserparser.Message),
		enums:    make(map[string]struct{}),
		all:      make(map[string]struct{}),
	}
}

func TestSymbolTable_WrapperTypeDetection(t *testing.T) {
	symbols := emptySymbols()

	tests := []struct {
		protoType string
		expected  string
	}{
		{"google.protobuf.DoubleValue", "double?"},
		{"google.protobuf.FloatValue", "float?"},
		{"google.protobuf.Int64Value", "long?"},
		{"google.protobuf.UInt64Value", "long?"},
		{"google.protobuf.Int32Value", "int?"},
		{"google.protobuf.UInt32Value", "int?"},
		{"google.protobuf.BoolValue", "bool?"},
		{"google.protobuf.StringValue", "string?"},
		{"google.protobuf.BytesValue", "binary?"},
		{".google.protobuf.StringValue", "string?"},
		{"google.protobuf.Timestamp", "timestamp"},
		{"google.protobuf.Struct", "map<string, opaque>"},
		{"google.protobuf.ListValue", "array<opaque>"},
		{"google.protobuf.Value", "opaque"},
		{"google.protobuf.Any", "opaque"},
		{"google.protobuf.Duration", "opaque"},
	}

	for _, tt := range tests {
		t.Run(tt.protoType, func(t *testing.T) {
			fieldType, err := symbols.fieldType(tt.protoType, "")
			if err != nil {
				t.Fatalf("Expected no error for type resolution, got: %v", err)
			}
			if fieldType.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, fieldType)
			}
		})
	}
}

func TestSymbolTable_ScalarTypes(t *testing.T) {
	symbols := emptySymbols()

	tests := map[string]schema.ScalarType{
		"int32":    schema.TypeInt,
		"sint32":   schema.TypeInt,
		"sfixed32": schema.TypeInt,
		"uint32":   schema.TypeInt,
		"fixed32":  schema.TypeInt,
		"int64":    schema.TypeLong,
		"uint64":   schema.TypeLong,
		"fixed64":  schema.TypeLong,
		"float":    schema.TypeFloat,
		"double":   schema.TypeDouble,
		"bool":     schema.TypeBool,
		"string":   schema.TypeString,
		"bytes":    schema.TypeBinary,
	}

	for protoType, expected := range tests {
		fieldType, err := symbols.fieldType(protoType, "")
		if err != nil {
			t.Fatalf("fieldType(%s): %v", protoType, err)
		}
		if fieldType.Kind != schema.KindScalar || fieldType.Scalar != expected || fieldType.Nullable {
			t.Errorf("fieldType(%s): expected %s, got %s", protoType, expected, fieldType)
		}
	}
}

func TestSymbolTable_NonWrapperTypes(t *testing.T) {
	symbols := emptySymbols()
	symbols.all["google.protobuf.StringValue"] = struct{}{}
	symbols.all["com.example.User"] = struct{}{}

	// a user message shadowing a well-known name is a plain message
	fieldType, err := symbols.fieldType("google.protobuf.StringValue", "")
	if err != nil {
		t.Fatalf("fieldType: %v", err)
	}
	if fieldType.String() != "map<string, opaque>" {
		t.Errorf("Expected message descriptor, got %s", fieldType)
	}

	if _, err := symbols.fieldType("MyMessage", "com.example"); err == nil {
		t.Error("Expected error for unknown message")
	}
}
