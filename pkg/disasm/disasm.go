// Package disasm renders a compiled Module as human-readable text, the way
// `bilex disasm` inspects a .uabc container without running it.
package disasm

import (
	"fmt"
	"io"

	"github.com/agenthands/bilex/pkg/bytecodefmt"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

// Module writes a full disassembly of m to w.
func Module(w io.Writer, m *bytecodefmt.Module) {
	fmt.Fprintf(w, "constants: %d\n", len(m.Constants))
	for i, c := range m.Constants {
		fmt.Fprintf(w, "  [%d] %s\n", i, constantLabel(c))
	}
	fmt.Fprintf(w, "globals: %d\n", len(m.Globals))
	for i, g := range m.Globals {
		fmt.Fprintf(w, "  [%d] %s\n", i, g)
	}
	fmt.Fprintf(w, "functions: %d\n", len(m.Functions))
	for _, fn := range m.Functions {
		Function(w, fn)
	}
	fmt.Fprintf(w, "<main> (locals=%d)\n", m.MainLocalCount)
	code(w, m.MainCode)
}

// Function writes one function's disassembly to w.
func Function(w io.Writer, fn *value.Function) {
	fmt.Fprintf(w, "fn %s(arity=%d, locals=%d, upvalues=%d)\n", fn.Name, fn.Arity, fn.LocalCount, len(fn.Upvalues))
	code(w, fn.Code)
}

func code(w io.Writer, instrs []value.Instruction) {
	for i, ins := range instrs {
		fmt.Fprintf(w, "  %04d %-16s %d\n", i, vm.Mnemonic(ins.Op), ins.Arg)
	}
}

func constantLabel(v value.Value) string {
	switch v.Kind {
	case value.KindFunction:
		return "<function " + v.Obj.(*value.Function).Name + ">"
	case value.KindClass:
		return "<class " + v.Obj.(*value.Class).Name + ">"
	default:
		return value.Display(v)
	}
}
