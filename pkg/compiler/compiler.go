// Package compiler lowers an AST into a bytecodefmt.Module: constant pool,
// global table, function registry, and instruction streams.
package compiler

import (
	"fmt"

	"github.com/agenthands/bilex/pkg/ast"
	"github.com/agenthands/bilex/pkg/bytecodefmt"
	"github.com/agenthands/bilex/pkg/value"
	"github.com/agenthands/bilex/pkg/vm"
)

// LinkError reports a name that the compiler could not bind to a local,
// upvalue, or global slot, or another structural resolution failure.
type LinkError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

type local struct {
	name  string
	depth int
	slot  int
}

// funcState tracks the function currently being compiled: its locals,
// upvalue descriptors, and emitted code.
type funcState struct {
	enclosing  *funcState
	fn         *value.Function
	locals     []local
	scopeDepth int
	isMethod   bool
}

// Compiler lowers one Program into one Module.
type Compiler struct {
	module      *bytecodefmt.Module
	top         *funcState
	globalSlot  map[string]int
	constInt    map[int64]int
	constFloat  map[float64]int
	constStr    map[string]int
	constBool   map[bool]int
	constNoneIx int
	classes     map[string]int // class/data name -> constant index
}

// Compile lowers prog into a Module ready for serialization or execution.
func Compile(prog *ast.Program) (*bytecodefmt.Module, error) {
	c := &Compiler{
		module:      &bytecodefmt.Module{},
		globalSlot:  make(map[string]int),
		constInt:    make(map[int64]int),
		constFloat:  make(map[float64]int),
		constStr:    make(map[string]int),
		constBool:   make(map[bool]int),
		constNoneIx: -1,
		classes:     make(map[string]int),
	}
	c.top = &funcState{fn: &value.Function{Name: "<script>"}}

	for _, s := range prog.Statements {
		if err := c.compileStmt(s); err != nil {
			return nil, err
		}
	}
	c.emit(vm.OP_HALT, 0)
	c.module.MainCode = c.top.fn.Code
	c.module.MainLocalCount = c.top.fn.LocalCount
	c.module.Globals = c.orderedGlobals()
	return c.module, nil
}

func (c *Compiler) orderedGlobals() []string {
	names := make([]string, len(c.globalSlot))
	for name, idx := range c.globalSlot {
		names[idx] = name
	}
	return names
}

// ---- emission helpers ----

func (c *Compiler) emit(op uint8, arg uint32) int {
	c.top.fn.Code = append(c.top.fn.Code, value.Instruction{Op: op, Arg: arg})
	return len(c.top.fn.Code) - 1
}

func (c *Compiler) here() int { return len(c.top.fn.Code) }

func (c *Compiler) patchTo(idx int, target int) {
	c.top.fn.Code[idx].Arg = uint32(target)
}

// ---- constant pool ----

func (c *Compiler) addConstant(v value.Value) int {
	c.module.Constants = append(c.module.Constants, v)
	return len(c.module.Constants) - 1
}

func (c *Compiler) intConst(i int64) int {
	if idx, ok := c.constInt[i]; ok {
		return idx
	}
	idx := c.addConstant(value.Int(i))
	c.constInt[i] = idx
	return idx
}

func (c *Compiler) floatConst(f float64) int {
	if idx, ok := c.constFloat[f]; ok {
		return idx
	}
	idx := c.addConstant(value.Float64(f))
	c.constFloat[f] = idx
	return idx
}

func (c *Compiler) strConst(s string) int {
	if idx, ok := c.constStr[s]; ok {
		return idx
	}
	idx := c.addConstant(value.Str(s))
	c.constStr[s] = idx
	return idx
}

func (c *Compiler) boolConst(b bool) int {
	if idx, ok := c.constBool[b]; ok {
		return idx
	}
	idx := c.addConstant(value.Bool(b))
	c.constBool[b] = idx
	return idx
}

func (c *Compiler) noneConst() int {
	if c.constNoneIx >= 0 {
		return c.constNoneIx
	}
	idx := c.addConstant(value.None())
	c.constNoneIx = idx
	return idx
}

// ---- globals ----

func (c *Compiler) globalIndex(name string) int {
	if idx, ok := c.globalSlot[name]; ok {
		return idx
	}
	idx := len(c.globalSlot)
	c.globalSlot[name] = idx
	return idx
}

// ---- scopes and locals ----

func (c *Compiler) beginScope() { c.top.scopeDepth++ }

func (c *Compiler) endScope() {
	c.top.scopeDepth--
	n := len(c.top.locals)
	for n > 0 && c.top.locals[n-1].depth > c.top.scopeDepth {
		n--
	}
	c.top.locals = c.top.locals[:n]
}

// atTopLevel reports whether a binding here belongs in the globals table:
// the outermost script scope, outside every function and every block.
func (c *Compiler) atTopLevel() bool {
	return c.top.enclosing == nil && c.top.scopeDepth == 0
}

func (c *Compiler) declareLocal(name string) int {
	slot := c.top.fn.LocalCount
	c.top.fn.LocalCount++
	c.top.locals = append(c.top.locals, local{name: name, depth: c.top.scopeDepth, slot: slot})
	return slot
}

// tempLocal allocates a slot for compiler-internal bookkeeping (e.g.
// holding an object evaluated once so a compound assignment can both read
// and write its attribute/index) that no identifier can ever name.
func (c *Compiler) tempLocal() int {
	return c.declareLocal("<tmp>")
}

// resolution kinds returned by resolveName.
const (
	resLocal = iota
	resUpvalue
	resGlobal
)

func (c *Compiler) resolveName(fs *funcState, name string) (kind int, idx int) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return resLocal, fs.locals[i].slot
		}
	}
	if fs.enclosing != nil {
		if k, i := c.resolveName(fs.enclosing, name); k == resLocal {
			return resUpvalue, c.addUpvalue(fs, value.UpvalueDesc{IsLocal: true, ParentIndex: i})
		} else if k == resUpvalue {
			return resUpvalue, c.addUpvalue(fs, value.UpvalueDesc{IsLocal: false, ParentIndex: i})
		}
	}
	return resGlobal, c.globalIndex(name)
}

func (c *Compiler) addUpvalue(fs *funcState, desc value.UpvalueDesc) int {
	for i, uv := range fs.fn.Upvalues {
		if uv == desc {
			return i
		}
	}
	fs.fn.Upvalues = append(fs.fn.Upvalues, desc)
	return len(fs.fn.Upvalues) - 1
}

// loadName / storeName emit the right opcode for whatever resolveName finds.
func (c *Compiler) loadName(name string) {
	switch kind, idx := c.resolveName(c.top, name); kind {
	case resLocal:
		c.emit(vm.OP_LOAD_VAR, uint32(idx))
	case resUpvalue:
		c.emit(vm.OP_LOAD_UPVALUE, uint32(idx))
	default:
		c.emit(vm.OP_LOAD_GLOBAL, uint32(idx))
	}
}

func (c *Compiler) storeName(name string) {
	switch kind, idx := c.resolveName(c.top, name); kind {
	case resLocal:
		c.emit(vm.OP_STORE_VAR, uint32(idx))
	case resUpvalue:
		c.emit(vm.OP_STORE_UPVALUE, uint32(idx))
	default:
		c.emit(vm.OP_STORE_GLOBAL, uint32(idx))
	}
}

// bindNewName declares name as a fresh local (inside a function, or inside
// any block) or a fresh global (true top level) and emits the store.
// Callers compile the bound value before calling this.
func (c *Compiler) bindNewName(name string) {
	if c.atTopLevel() {
		c.emit(vm.OP_STORE_GLOBAL, uint32(c.globalIndex(name)))
		return
	}
	slot := c.declareLocal(name)
	c.emit(vm.OP_STORE_VAR, uint32(slot))
}
