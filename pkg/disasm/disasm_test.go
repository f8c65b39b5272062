package disasm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/agenthands/bilex/pkg/compiler"
	"github.com/agenthands/bilex/pkg/disasm"
	"github.com/agenthands/bilex/pkg/parser"
)

func TestModuleDisassemblyListsFunctionsAndMain(t *testing.T) {
	prog, err := parser.Parse(`fun fib(n){ if n<2 { return n } return fib(n-1)+fib(n-2) } print(fib(10))`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	mod, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	var buf bytes.Buffer
	disasm.Module(&buf, mod)
	out := buf.String()

	if !strings.Contains(out, "fn fib") {
		t.Errorf("expected disassembly to mention fn fib, got:\n%s", out)
	}
	if !strings.Contains(out, "<main>") {
		t.Errorf("expected disassembly to mention <main>, got:\n%s", out)
	}
	if !strings.Contains(out, "LOAD_CONST") && !strings.Contains(out, "CALL") {
		t.Errorf("expected disassembly to contain recognizable mnemonics, got:\n%s", out)
	}
}
