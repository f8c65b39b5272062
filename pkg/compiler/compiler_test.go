package compiler_test

import (
	"testing"

	"github.com/agenthands/bilex/pkg/bytecodefmt"
	"github.com/agenthands/bilex/pkg/compiler"
	"github.com/agenthands/bilex/pkg/parser"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

func compileSrc(t *testing.T, src string) *bytecodefmt.Module {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	mod, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return mod
}

func TestIntConstantDeduplication(t *testing.T) {
	mod := compileSrc(t, `let a = 5; let b = 5; let c = 6`)
	fives := 0
	sixes := 0
	for _, c := range mod.Constants {
		if c.Kind == value.KindInt && c.Int == 5 {
			fives++
		}
		if c.Kind == value.KindInt && c.Int == 6 {
			sixes++
		}
	}
	if fives != 1 {
		t.Errorf("expected exactly one constant pool entry for 5, got %d", fives)
	}
	if sixes != 1 {
		t.Errorf("expected exactly one constant pool entry for 6, got %d", sixes)
	}
}

func TestFunctionConstantsAreNeverDeduplicated(t *testing.T) {
	mod := compileSrc(t, `fun f(){ return 1 } fun g(){ return 2 }`)
	fnConsts := 0
	for _, c := range mod.Constants {
		if c.Kind == value.KindFunction {
			fnConsts++
		}
	}
	if fnConsts != 2 {
		t.Errorf("expected 2 function constants, got %d", fnConsts)
	}
	if len(mod.Functions) != 2 {
		t.Errorf("expected 2 entries in the function table, got %d", len(mod.Functions))
	}
}

func TestClosureCapturesEnclosingLocalAsUpvalue(t *testing.T) {
	mod := compileSrc(t, `
fun outer(){
	let x = 10
	fun inner(){
		return x
	}
	return inner
}
`)
	var inner *value.Function
	for _, fn := range mod.Functions {
		if fn.Name == "inner" {
			inner = fn
		}
	}
	if inner == nil {
		t.Fatal("expected to find a compiled function named inner")
	}
	if len(inner.Upvalues) != 1 {
		t.Fatalf("expected inner to capture exactly one upvalue, got %d", len(inner.Upvalues))
	}
	if !inner.Upvalues[0].IsLocal {
		t.Errorf("expected inner's upvalue to capture outer's local directly (IsLocal=true), got %+v", inner.Upvalues[0])
	}
}

func TestTransitiveUpvalueChaining(t *testing.T) {
	mod := compileSrc(t, `
fun a(){
	let x = 1
	fun b(){
		fun c(){
			return x
		}
		return c
	}
	return b
}
`)
	var fnC *value.Function
	for _, fn := range mod.Functions {
		if fn.Name == "c" {
			fnC = fn
		}
	}
	if fnC == nil {
		t.Fatal("expected to find a compiled function named c")
	}
	if len(fnC.Upvalues) != 1 {
		t.Fatalf("expected c to capture exactly one upvalue, got %d", len(fnC.Upvalues))
	}
	// c's direct enclosing function b never declares x as a local itself;
	// b must re-export its own upvalue (IsLocal=false) for c to chain to it.
	var fnB *value.Function
	for _, fn := range mod.Functions {
		if fn.Name == "b" {
			fnB = fn
		}
	}
	if fnB == nil {
		t.Fatal("expected to find a compiled function named b")
	}
	if len(fnB.Upvalues) != 1 || !fnB.Upvalues[0].IsLocal {
		t.Fatalf("expected b to capture a's local directly, got %+v", fnB.Upvalues)
	}
	if fnC.Upvalues[0].IsLocal {
		t.Errorf("expected c's upvalue to re-export b's upvalue (IsLocal=false), got %+v", fnC.Upvalues[0])
	}
}

func TestConstructorArityMismatchIsLinkError(t *testing.T) {
	prog, err := parser.Parse(`class Point(x,y){} let p = new Point(1)`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = compiler.Compile(prog)
	if err == nil {
		t.Fatal("expected a link error for constructor arity mismatch")
	}
	if _, ok := err.(*compiler.LinkError); !ok {
		t.Fatalf("expected *compiler.LinkError, got %T: %v", err, err)
	}
}

func TestTopLevelBindingsBecomeGlobals(t *testing.T) {
	mod := compileSrc(t, `let x = 1`)
	if len(mod.Globals) != 1 || mod.Globals[0] != "x" {
		t.Fatalf("expected a single global named x, got %v", mod.Globals)
	}
}

func TestUnimplementedConstructsEmitTrap(t *testing.T) {
	mod := compileSrc(t, `for i in [1,2,3] { print(i) }`)
	found := false
	for _, ins := range mod.MainCode {
		if ins.Op == vm.OP_TRAP {
			found = true
		}
	}
	if !found {
		t.Error("expected the unimplemented for-in construct to compile to an OP_TRAP")
	}
}
