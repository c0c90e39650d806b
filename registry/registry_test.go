package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/anirudhraja/frpc/logging"
	"github.com/anirudhraja/frpc/schema"
	"github.com/anirudhraja/frpc/wire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const commonProto = `syntax = "proto3";
package test.common;

message Point {
  int32 x = 1;
  int32 y = 2;
}

enum Color {
  RED = 0;
  GREEN = 1;
}
`

const calcProto = `syntax = "proto3";
package test.calc;

import "common.proto";
import "google/protobuf/timestamp.proto";
import "google/protobuf/wrappers.proto";
import "google/protobuf/empty.proto";

message AddRequest {
  int32 b = 2;
  int32 a = 1;
}

message AddResponse {
  int64 sum = 1;
}

message DescribeRequest {
  message Inner {
    bool flag = 1;
  }

  repeated string tags = 1;
  map<string, double> weights = 2;
  test.common.Point origin = 3;
  test.common.Color color = 4;
  google.protobuf.Timestamp at = 5;
  google.protobuf.StringValue note = 6;
  Inner inner = 7;
  oneof choice {
    string name = 9;
    int32 id = 10;
  }
  bytes payload = 8;
}

message DescribeResponse {
  string text = 1;
  int32 code = 2;
}

service Calculator {
  rpc Add(AddRequest) returns (AddResponse);
  rpc Describe(DescribeRequest) returns (DescribeResponse);
  rpc Ping(google.protobuf.Empty) returns (google.protobuf.Empty);
  rpc Now(google.protobuf.Empty) returns (google.protobuf.Timestamp);
  rpc Watch(AddRequest) returns (stream AddResponse);
}
`

func writeProto(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func paramStrings(sig *Signature) []string {
	out := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		out[i] = p.String()
	}
	return out
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(nil)

	if registry == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if !reflect.DeepEqual(registry.ProtoDirectories, []string{""}) {
		t.Errorf("Expected the working directory as the only proto directory, got %v", registry.ProtoDirectories)
	}
	if len(registry.ListMethods()) != 0 {
		t.Error("Expected no methods initially")
	}
}

func TestRegister(t *testing.T) {
	registry := NewRegistry(nil)

	add := NewSignature("add").Params(schema.IntType(), schema.IntType()).Returns(schema.IntType()).MustBuild()
	concat := NewSignature("concat").Params(schema.ArrayOf(schema.StringType())).MustBuild()

	for _, sig := range []*Signature{concat, add} {
		if err := registry.Register(sig); err != nil {
			t.Fatalf("Register(%s): %v", sig.Method, err)
		}
	}

	got, ok := registry.Lookup("add")
	if !ok || got != add {
		t.Errorf("Lookup(add) = %v, %v", got, ok)
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Error("Expected missing method not to be found")
	}

	if err := registry.Register(add); !errors.Is(err, ErrDuplicateMethod) {
		t.Errorf("Expected ErrDuplicateMethod, got %v", err)
	}

	if names := registry.ListMethods(); !reflect.DeepEqual(names, []string{"add", "concat"}) {
		t.Errorf("Expected sorted methods, got %v", names)
	}
}

func TestRegister_Concurrent(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(NewSignature("add").MustBuild())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Lookup("add")
		}()
		go func(i int) {
			defer wg.Done()
			registry.Register(NewSignature("m" + string(rune('a'+i))).MustBuild())
		}(i)
	}
	wg.Wait()

	if n := len(registry.ListMethods()); n != 9 {
		t.Errorf("Expected 9 methods, got %d", n)
	}
}

func TestSignatureBuilder(t *testing.T) {
	sig, err := NewSignature("add").Params(schema.IntType()).Params(schema.LongType()).Returns(schema.LongType()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sig.String() != "add(int, long) long" {
		t.Errorf("Unexpected signature %s", sig)
	}
	if sig.Param(1).String() != "long" || sig.Param(5).Kind != schema.KindOpaque {
		t.Errorf("Unexpected parameter lookup")
	}

	tests := []struct {
		name    string
		builder *SignatureBuilder
		target  error
	}{
		{"empty name", NewSignature(""), wire.ErrEmptyName},
		{"long name", NewSignature(strings.Repeat("m", 256)), wire.ErrNameTooLong},
		{"bad param", NewSignature("m").Params(schema.SortedSetOf(schema.BoolType())), schema.ErrInvalidType},
		{"bad result", NewSignature("m").Returns(schema.MapOf(schema.IntType(), schema.IntType())), schema.ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestLoadSchema_NonExistentPath(t *testing.T) {
	registry := NewRegistry(nil)

	err := registry.LoadSchema("/nonexistent/path.proto")
	if err == nil {
		t.Fatal("Expected error for non-existent path")
	}
	if !strings.Contains(err.Error(), "path does not exist") {
		t.Errorf("Expected 'path does not exist' error, got: %v", err)
	}
}

func TestLoadSchema_NonProtoFile(t *testing.T) {
	path := writeProto(t, t.TempDir(), "test.txt", "not a proto")

	registry := NewRegistry(nil)
	err := registry.LoadSchema(path)
	if err == nil {
		t.Fatal("Expected error for non-proto file")
	}
	if !strings.Contains(err.Error(), "is not a .proto file") {
		t.Errorf("Expected 'is not a .proto file' error, got: %v", err)
	}
}

func TestLoadSchema_Service(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "common.proto", commonProto)
	writeProto(t, dir, "calc.proto", calcProto)

	core, logs := observer.New(zapcore.InfoLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	registry := NewRegistry([]string{dir})
	if err := registry.LoadSchema("calc.proto"); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	expected := []string{"Calculator.Add", "Calculator.Describe", "Calculator.Now", "Calculator.Ping"}
	if names := registry.ListMethods(); !reflect.DeepEqual(names, expected) {
		t.Fatalf("Expected %v, got %v", expected, names)
	}

	tests := []struct {
		method string
		params []string
		result string
	}{
		{"Calculator.Add", []string{"int", "int"}, "long"},
		{
			"Calculator.Describe",
			[]string{
				"array<string>",
				"map<string, double>",
				"map<string, opaque>",
				"int",
				"timestamp",
				"string?",
				"map<string, opaque>",
				"binary",
				"string?",
				"int?",
			},
			"map<string, opaque>",
		},
		{"Calculator.Ping", []string{}, "any"},
		{"Calculator.Now", []string{}, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			sig, ok := registry.Lookup(tt.method)
			if !ok {
				t.Fatalf("Method %s not registered", tt.method)
			}
			if params := paramStrings(sig); !reflect.DeepEqual(params, tt.params) {
				t.Errorf("Expected params %v, got %v", tt.params, params)
			}
			result := "any"
			if sig.Result != nil {
				result = sig.Result.String()
			}
			if result != tt.result {
				t.Errorf("Expected result %s, got %s", tt.result, result)
			}
		})
	}

	if _, ok := registry.Lookup("Calculator.Watch"); ok {
		t.Error("Expected streaming rpc to be skipped")
	}

	entries := logs.FilterMessage("schema loaded").All()
	if len(entries) != 1 || entries[0].ContextMap()["methods"] != int64(4) {
		t.Errorf("Expected one schema load of 4 methods, got %v", entries)
	}

	// loading again is a no-op for services already registered
	if err := registry.LoadSchema("calc.proto"); err != nil {
		t.Errorf("Second LoadSchema: %v", err)
	}
}

func TestLoadSchema_Directory(t *testing.T) {
	dir := t.TempDir()
	writeProto(t, dir, "common.proto", commonProto)
	writeProto(t, dir, "calc.proto", calcProto)
	writeProto(t, dir, "nested/echo.proto", `syntax = "proto3";
package echo;

message EchoRequest { string text = 1; }

service Echo {
  rpc Echo(EchoRequest) returns (EchoRequest);
}
`)

	registry := NewRegistry([]string{dir})
	if err := registry.LoadSchema(dir); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}

	sig, ok := registry.Lookup("Echo.Echo")
	if !ok {
		t.Fatal("Echo.Echo not registered")
	}
	if sig.String() != "Echo.Echo(string) string" {
		t.Errorf("Unexpected signature %s", sig)
	}
	if len(registry.ListMethods()) != 5 {
		t.Errorf("Expected 5 methods, got %v", registry.ListMethods())
	}
}

func TestLoadSchema_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{
			"missing import",
			`syntax = "proto3";
import "absent.proto";
`,
			"path does not exist",
		},
		{
			"unresolved type",
			`syntax = "proto3";
message Req { Missing m = 1; }
service S { rpc M(Req) returns (Req); }
`,
			"unable to resolve type name: Missing",
		},
		{
			"enum request",
			`syntax = "proto3";
enum E { A = 0; }
service S { rpc M(E) returns (E); }
`,
			"E is not a message",
		},
		{
			"syntax error",
			`syntax = "proto3";
message {
`,
			"failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeProto(t, dir, "broken.proto", tt.content)

			registry := NewRegistry([]string{dir})
			err := registry.LoadSchema(path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected %q in %v", tt.message, err)
			}
		})
	}
}

func TestGetReferencedType(t *testing.T) {
	entities := map[string]struct{}{
		"pkg.Outer":         {},
		"pkg.Outer.Inner":   {},
		"other.Shared":      {},
		"pkg.sub.Deep":      {},
		"pkg.sub.Deep.Leaf": {},
	}

	tests := []struct {
		typeName string
		prefix   string
		expected string
	}{
		{"Inner", "pkg.Outer", "pkg.Outer.Inner"},
		{"Outer", "pkg.Outer.Inner", "pkg.Outer"},
		{"other.Shared", "pkg", "other.Shared"},
		{".pkg.Outer", "other", "pkg.Outer"},
		{"sub.Deep.Leaf", "pkg.Outer", "pkg.sub.Deep.Leaf"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			got, err := getReferencedType(tt.typeName, tt.prefix, entities)
			if err != nil {
				t.Fatalf("getReferencedType: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	if _, err := getReferencedType(".Inner", "pkg.Outer", entities); err == nil {
		t.Error("Expected fully qualified lookup to fail")
	}
}
