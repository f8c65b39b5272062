package bytecodefmt_test

import (
	"testing"

	"github.com/agenthands/bilex/pkg/bytecodefmt"
	"github.com/agenthands/bilex/pkg/compiler"
	"github.com/agenthands/bilex/pkg/parser"
	"github.com/agenthands/bilex/pkg/value"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	prog, err := parser.Parse(`fun fib(n){ if n<2 { return n } return fib(n-1)+fib(n-2) } print(fib(10))`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	mod, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	data, err := bytecodefmt.Serialize(mod)
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}

	got, err := bytecodefmt.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize error: %v", err)
	}

	if len(got.Constants) != len(mod.Constants) {
		t.Errorf("constants: got %d, want %d", len(got.Constants), len(mod.Constants))
	}
	if len(got.Globals) != len(mod.Globals) {
		t.Errorf("globals: got %d, want %d", len(got.Globals), len(mod.Globals))
	}
	if len(got.Functions) != len(mod.Functions) {
		t.Errorf("functions: got %d, want %d", len(got.Functions), len(mod.Functions))
	}
	if got.MainLocalCount != mod.MainLocalCount {
		t.Errorf("MainLocalCount: got %d, want %d", got.MainLocalCount, mod.MainLocalCount)
	}
	if len(got.MainCode) != len(mod.MainCode) {
		t.Errorf("MainCode length: got %d, want %d", len(got.MainCode), len(mod.MainCode))
	}
	for i := range mod.MainCode {
		if got.MainCode[i] != mod.MainCode[i] {
			t.Errorf("MainCode[%d]: got %+v, want %+v", i, got.MainCode[i], mod.MainCode[i])
		}
	}
}

func TestDeserializeBadMagicIsLinkError(t *testing.T) {
	bad := []byte{4, 0, 0, 0, 'N', 'O', 'P', 'E'}
	_, err := bytecodefmt.Deserialize(bad)
	if err == nil {
		t.Fatal("expected a LinkError for bad magic")
	}
	if _, ok := err.(*bytecodefmt.LinkError); !ok {
		t.Fatalf("expected *LinkError, got %T: %v", err, err)
	}
}

func TestDeserializeTruncatedDataIsLinkError(t *testing.T) {
	_, err := bytecodefmt.Deserialize([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected a LinkError for truncated data")
	}
	if _, ok := err.(*bytecodefmt.LinkError); !ok {
		t.Fatalf("expected *LinkError, got %T: %v", err, err)
	}
}

func TestDeserializeUnknownVersionIsLinkError(t *testing.T) {
	var buf []byte
	buf = append(buf, 4, 0, 0, 0)
	buf = append(buf, 'U', 'A', 'B', 'C')
	buf = append(buf, 99, 0) // version 99, little-endian u16
	_, err := bytecodefmt.Deserialize(buf)
	if err == nil {
		t.Fatal("expected a LinkError for unsupported version")
	}
	if _, ok := err.(*bytecodefmt.LinkError); !ok {
		t.Fatalf("expected *LinkError, got %T: %v", err, err)
	}
}

func TestSerializeUnserializableConstantErrors(t *testing.T) {
	mod := &bytecodefmt.Module{
		Constants: []value.Value{{Kind: value.KindInstance, Obj: nil}},
	}
	_, err := bytecodefmt.Serialize(mod)
	if err == nil {
		t.Fatal("expected an error serializing an instance constant")
	}
}
