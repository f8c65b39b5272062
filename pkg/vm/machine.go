// Package vm executes a bytecodefmt.Module: the opcode set, the stack
// machine, and the fatal RuntimeError raised on a failed operation.
package vm

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/agenthands/bilex/pkg/bytecodefmt"
	"github.com/agenthands/bilex/pkg/value"
)

type frame struct {
	fn     *value.Function
	cells  []*value.Cell
	upvals []*value.Cell
	ip     int
}

// defaultMaxCallDepth bounds the depth of the VM's own frame stack so
// unbounded bilex recursion raises a clean RuntimeError instead of growing
// m.frames without limit. Overridable via bilex.toml's
// limits.max_call_depth (internal/config).
const defaultMaxCallDepth = 1024

// Machine is one VM instance bound to a single Module.
type Machine struct {
	module       *bytecodefmt.Module
	globals      []*value.Cell
	stack        []value.Value
	frames       []*frame
	stdout       io.Writer
	maxCallDepth int
}

// NewMachine links a Module's global names against builtins (unmatched
// names start as none, ready for the program's own bindings) and returns a
// Machine ready to Run.
func NewMachine(m *bytecodefmt.Module, builtins map[string]*value.Native, stdout io.Writer) *Machine {
	globals := make([]*value.Cell, len(m.Globals))
	for i, name := range m.Globals {
		if nat, ok := builtins[name]; ok {
			globals[i] = value.NewCell(value.Value{Kind: value.KindNative, Obj: nat})
		} else {
			globals[i] = value.NewCell(value.None())
		}
	}
	return &Machine{module: m, globals: globals, stdout: stdout, maxCallDepth: defaultMaxCallDepth}
}

// SetMaxCallDepth overrides the default call-depth ceiling. n<=0 is ignored
// (the default stands).
func (m *Machine) SetMaxCallDepth(n int) {
	if n > 0 {
		m.maxCallDepth = n
	}
}

// Run executes the module's top-level code to completion and returns its
// final value per the embedding contract: whatever is left on the stack when
// the top-level code runs out, or an explicit top-level `return`'s value.
func (m *Machine) Run() (value.Value, error) {
	mainFn := &value.Function{Name: "<main>", LocalCount: m.module.MainLocalCount, Code: m.module.MainCode}
	m.frames = []*frame{newFrame(mainFn, nil)}
	return m.run()
}

func newFrame(fn *value.Function, upvals []*value.Cell) *frame {
	cells := make([]*value.Cell, fn.LocalCount)
	for i := range cells {
		cells[i] = value.NewCell(value.None())
	}
	return &frame{fn: fn, cells: cells, upvals: upvals}
}

func (m *Machine) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *Machine) pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) peek() value.Value { return m.stack[len(m.stack)-1] }

func (m *Machine) errf(fr *frame, format string, args ...any) *RuntimeError {
	return &RuntimeError{Func: fr.fn.Name, IP: fr.ip, Msg: fmt.Sprintf(format, args...)}
}

func (m *Machine) run() (value.Value, error) {
	for {
		fr := m.frames[len(m.frames)-1]
		if fr.ip >= len(fr.fn.Code) {
			return m.finalValue(), nil
		}
		ins := fr.fn.Code[fr.ip]
		fr.ip++

		switch ins.Op {
		case OP_LOAD_CONST:
			m.push(m.module.Constants[ins.Arg])

		case OP_LOAD_VAR:
			m.push(fr.cells[ins.Arg].V)
		case OP_STORE_VAR:
			fr.cells[ins.Arg].V = m.peek()

		case OP_LOAD_GLOBAL:
			m.push(m.globals[ins.Arg].V)
		case OP_STORE_GLOBAL:
			m.globals[ins.Arg].V = m.peek()

		case OP_LOAD_UPVALUE:
			m.push(fr.upvals[ins.Arg].V)
		case OP_STORE_UPVALUE:
			fr.upvals[ins.Arg].V = m.peek()

		case OP_POP:
			m.pop()
		case OP_DUP:
			m.push(m.peek())

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD, OP_POW:
			if err := m.binaryArith(fr, ins.Op); err != nil {
				return value.None(), err
			}
		case OP_NEG:
			a := m.pop()
			switch a.Kind {
			case value.KindInt:
				m.push(value.Int(-a.Int))
			case value.KindFloat:
				m.push(value.Float64(-a.Float))
			default:
				return value.None(), m.errf(fr, "cannot negate a %v", a.Kind)
			}
		case OP_NOT:
			m.push(value.Bool(!value.Truthy(m.pop())))

		case OP_EQ:
			b, a := m.pop(), m.pop()
			m.push(value.Bool(value.Equal(a, b)))
		case OP_NE:
			b, a := m.pop(), m.pop()
			m.push(value.Bool(!value.Equal(a, b)))
		case OP_LT, OP_GT, OP_LE, OP_GE:
			if err := m.compare(fr, ins.Op); err != nil {
				return value.None(), err
			}

		case OP_AND:
			b, a := m.pop(), m.pop()
			m.push(value.Bool(value.Truthy(a) && value.Truthy(b)))
		case OP_OR:
			b, a := m.pop(), m.pop()
			m.push(value.Bool(value.Truthy(a) || value.Truthy(b)))

		case OP_JUMP:
			fr.ip = int(ins.Arg)
		case OP_JUMP_IF_FALSE:
			if !value.Truthy(m.peek()) {
				fr.ip = int(ins.Arg)
			}
		case OP_JUMP_IF_TRUE:
			if value.Truthy(m.peek()) {
				fr.ip = int(ins.Arg)
			}

		case OP_CALL:
			if err := m.call(int(ins.Arg)); err != nil {
				return value.None(), err
			}
		case OP_RETURN:
			ret := m.pop()
			m.frames = m.frames[:len(m.frames)-1]
			if len(m.frames) == 0 {
				return ret, nil
			}
			m.push(ret)
			continue

		case OP_MAKE_CLOSURE:
			fn := m.module.Constants[ins.Arg].Obj.(*value.Function)
			cells := make([]*value.Cell, len(fn.Upvalues))
			for i, uv := range fn.Upvalues {
				if uv.IsLocal {
					cells[i] = fr.cells[uv.ParentIndex]
				} else {
					cells[i] = fr.upvals[uv.ParentIndex]
				}
			}
			m.push(value.Value{Kind: value.KindClosure, Obj: &value.Closure{Fn: fn, Cells: cells}})

		case OP_MAKE_LIST:
			n := int(ins.Arg)
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = m.pop()
			}
			m.push(value.Value{Kind: value.KindList, Obj: &value.List{Elems: elems}})

		case OP_MAKE_MAP:
			n := int(ins.Arg)
			entries := make([]struct {
				k string
				v value.Value
			}, n)
			for i := n - 1; i >= 0; i-- {
				v := m.pop()
				k := m.pop()
				if k.Kind != value.KindString {
					return value.None(), m.errf(fr, "map keys must be strings")
				}
				entries[i] = struct {
					k string
					v value.Value
				}{k.Str, v}
			}
			mp := value.NewMap()
			for _, e := range entries {
				mp.Set(e.k, e.v)
			}
			m.push(value.Value{Kind: value.KindMap, Obj: mp})

		case OP_GET_INDEX:
			if err := m.getIndex(fr); err != nil {
				return value.None(), err
			}
		case OP_SET_INDEX:
			if err := m.setIndex(fr); err != nil {
				return value.None(), err
			}

		case OP_GET_ATTR:
			if err := m.getAttr(fr, ins.Arg); err != nil {
				return value.None(), err
			}
		case OP_SET_ATTR:
			if err := m.setAttr(fr, ins.Arg); err != nil {
				return value.None(), err
			}

		case OP_NEW_INSTANCE:
			m.newInstance(ins.Arg)
		case OP_IS_INSTANCE:
			cls := m.module.Constants[ins.Arg].Obj.(*value.Class)
			v := m.pop()
			isInst := v.Kind == value.KindInstance && v.Obj.(*value.Instance).Class == cls
			m.push(value.Bool(isInst))

		case OP_PRINT:
			argc := int(ins.Arg)
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			parts := make([]string, argc)
			for i, a := range args {
				parts[i] = value.Display(a)
			}
			fmt.Fprintln(m.stdout, strings.Join(parts, " "))
			m.push(value.None())

		case OP_NOP:
			// no-op

		case OP_HALT:
			return m.finalValue(), nil

		case OP_TRAP:
			return value.None(), m.errf(fr, TrapReasonString(ins.Arg))

		default:
			return value.None(), m.errf(fr, "unknown opcode %d", ins.Op)
		}
	}
}

// finalValue reports the value left on the stack when the top-level code
// runs out or halts, or none if nothing is left.
func (m *Machine) finalValue() value.Value {
	if len(m.stack) == 0 {
		return value.None()
	}
	return m.stack[len(m.stack)-1]
}

func (m *Machine) binaryArith(fr *frame, op uint8) error {
	b, a := m.pop(), m.pop()

	if op == OP_ADD && a.Kind == value.KindList && b.Kind == value.KindList {
		al, bl := a.Obj.(*value.List).Elems, b.Obj.(*value.List).Elems
		merged := make([]value.Value, 0, len(al)+len(bl))
		merged = append(merged, al...)
		merged = append(merged, bl...)
		m.push(value.Value{Kind: value.KindList, Obj: &value.List{Elems: merged}})
		return nil
	}
	// Any string operand coerces both sides to their display string and
	// concatenates (spec: "x"+5 -> "x5").
	if op == OP_ADD && (a.Kind == value.KindString || b.Kind == value.KindString) {
		m.push(value.Str(value.Display(a) + value.Display(b)))
		return nil
	}
	if op == OP_MUL {
		if a.Kind == value.KindString && b.Kind == value.KindInt {
			if b.Int < 0 {
				return m.errf(fr, "cannot repeat a string a negative number of times")
			}
			m.push(value.Str(strings.Repeat(a.Str, int(b.Int))))
			return nil
		}
		if a.Kind == value.KindInt && b.Kind == value.KindString {
			if a.Int < 0 {
				return m.errf(fr, "cannot repeat a string a negative number of times")
			}
			m.push(value.Str(strings.Repeat(b.Str, int(a.Int))))
			return nil
		}
	}
	if !value.IsNumber(a) || !value.IsNumber(b) {
		return m.errf(fr, "operator requires numbers, got %v and %v", a.Kind, b.Kind)
	}

	if op == OP_DIV {
		x, y := value.AsFloat(a), value.AsFloat(b)
		if y == 0 {
			return m.errf(fr, "division by zero")
		}
		m.push(value.Float64(x / y))
		return nil
	}

	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		x, y := a.Int, b.Int
		switch op {
		case OP_ADD:
			m.push(value.Int(x + y))
		case OP_SUB:
			m.push(value.Int(x - y))
		case OP_MUL:
			m.push(value.Int(x * y))
		case OP_MOD:
			if y == 0 {
				return m.errf(fr, "division by zero")
			}
			m.push(value.Int(x % y))
		case OP_POW:
			if y >= 0 {
				m.push(value.Int(intPow(x, y)))
			} else {
				m.push(value.Float64(math.Pow(float64(x), float64(y))))
			}
		}
		return nil
	}

	if op == OP_POW {
		x, y := value.AsFloat(a), value.AsFloat(b)
		m.push(value.Float64(math.Pow(x, y)))
		return nil
	}

	x, y := value.AsFloat(a), value.AsFloat(b)
	switch op {
	case OP_ADD:
		m.push(value.Float64(x + y))
	case OP_SUB:
		m.push(value.Float64(x - y))
	case OP_MUL:
		m.push(value.Float64(x * y))
	case OP_MOD:
		if y == 0 {
			return m.errf(fr, "division by zero")
		}
		m.push(value.Float64(math.Mod(x, y)))
	}
	return nil
}

// intPow computes x**y for a non-negative integer exponent, the integer-purity
// case of OP_POW (spec: two ints and a non-negative exponent yield an int).
func intPow(x, y int64) int64 {
	result := int64(1)
	for ; y > 0; y-- {
		result *= x
	}
	return result
}

func (m *Machine) compare(fr *frame, op uint8) error {
	b, a := m.pop(), m.pop()
	var lt, eq bool
	switch {
	case value.IsNumber(a) && value.IsNumber(b):
		x, y := value.AsFloat(a), value.AsFloat(b)
		lt, eq = x < y, x == y
	case a.Kind == value.KindString && b.Kind == value.KindString:
		lt, eq = a.Str < b.Str, a.Str == b.Str
	default:
		return m.errf(fr, "cannot compare %v and %v", a.Kind, b.Kind)
	}
	switch op {
	case OP_LT:
		m.push(value.Bool(lt))
	case OP_GT:
		m.push(value.Bool(!lt && !eq))
	case OP_LE:
		m.push(value.Bool(lt || eq))
	case OP_GE:
		m.push(value.Bool(!lt))
	}
	return nil
}

func (m *Machine) getIndex(fr *frame) error {
	idx, obj := m.pop(), m.pop()
	switch obj.Kind {
	case value.KindList:
		if idx.Kind != value.KindInt {
			return m.errf(fr, "list index must be an integer")
		}
		l := obj.Obj.(*value.List)
		if idx.Int < 0 || idx.Int >= int64(len(l.Elems)) {
			return m.errf(fr, "list index %d out of range", idx.Int)
		}
		m.push(l.Elems[idx.Int])
	case value.KindMap:
		if idx.Kind != value.KindString {
			return m.errf(fr, "map key must be a string")
		}
		mp := obj.Obj.(*value.Map)
		v, ok := mp.Get(idx.Str)
		if !ok {
			return m.errf(fr, "map has no key %q", idx.Str)
		}
		m.push(v)
	case value.KindString:
		if idx.Kind != value.KindInt {
			return m.errf(fr, "string index must be an integer")
		}
		runes := []rune(obj.Str)
		if idx.Int < 0 || idx.Int >= int64(len(runes)) {
			return m.errf(fr, "string index %d out of range", idx.Int)
		}
		m.push(value.Str(string(runes[idx.Int])))
	default:
		return m.errf(fr, "cannot index a %v", obj.Kind)
	}
	return nil
}

func (m *Machine) setIndex(fr *frame) error {
	val, idx, obj := m.pop(), m.pop(), m.pop()
	switch obj.Kind {
	case value.KindList:
		if idx.Kind != value.KindInt {
			return m.errf(fr, "list index must be an integer")
		}
		l := obj.Obj.(*value.List)
		if idx.Int < 0 || idx.Int >= int64(len(l.Elems)) {
			return m.errf(fr, "list index %d out of range", idx.Int)
		}
		l.Elems[idx.Int] = val
	case value.KindMap:
		if idx.Kind != value.KindString {
			return m.errf(fr, "map key must be a string")
		}
		obj.Obj.(*value.Map).Set(idx.Str, val)
	default:
		return m.errf(fr, "cannot index-assign a %v", obj.Kind)
	}
	m.push(val)
	return nil
}

func (m *Machine) getAttr(fr *frame, nameIdx uint32) error {
	obj := m.pop()
	name := m.module.Constants[nameIdx].Str

	if name == "length" {
		switch obj.Kind {
		case value.KindList:
			m.push(value.Int(int64(len(obj.Obj.(*value.List).Elems))))
			return nil
		case value.KindMap:
			m.push(value.Int(int64(len(obj.Obj.(*value.Map).Order))))
			return nil
		case value.KindString:
			m.push(value.Int(int64(len([]rune(obj.Str)))))
			return nil
		}
	}

	if obj.Kind != value.KindInstance {
		return m.errf(fr, "cannot access attribute %q of a %v", name, obj.Kind)
	}
	inst := obj.Obj.(*value.Instance)
	if v, ok := inst.Fields[name]; ok {
		m.push(v)
		return nil
	}
	if method, ok := inst.Class.Methods[name]; ok {
		m.push(value.Value{Kind: value.KindBoundMethod, Obj: &value.BoundMethod{Receiver: obj, Method: method}})
		return nil
	}
	return m.errf(fr, "%s has no attribute %q", inst.Class.Name, name)
}

func (m *Machine) setAttr(fr *frame, nameIdx uint32) error {
	val, obj := m.pop(), m.pop()
	name := m.module.Constants[nameIdx].Str
	if obj.Kind != value.KindInstance {
		return m.errf(fr, "cannot set attribute %q of a %v", name, obj.Kind)
	}
	inst := obj.Obj.(*value.Instance)
	found := false
	for _, f := range inst.Class.Fields {
		if f == name {
			found = true
			break
		}
	}
	if !found {
		return m.errf(fr, "%s has no field %q", inst.Class.Name, name)
	}
	inst.Fields[name] = val
	m.push(val)
	return nil
}

func (m *Machine) newInstance(classIdx uint32) {
	cls := m.module.Constants[classIdx].Obj.(*value.Class)
	args := make([]value.Value, len(cls.Fields))
	for i := len(cls.Fields) - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	fields := make(map[string]value.Value, len(cls.Fields))
	for i, name := range cls.Fields {
		fields[name] = args[i]
	}
	m.push(value.Value{Kind: value.KindInstance, Obj: &value.Instance{Class: cls, Fields: fields}})
}

// call pops the operands OP_CALL laid out per the documented stack-layout
// contract: [..., arg1, ..., argN, callee] with the callee on top, so it is
// popped first and the args are recovered beneath it.
func (m *Machine) call(argc int) error {
	callee := m.pop()
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = m.pop()
	}

	switch callee.Kind {
	case value.KindClosure:
		cl := callee.Obj.(*value.Closure)
		if len(args) != cl.Fn.Arity {
			return m.topErr("arity mismatch calling %s: want %d args, got %d", cl.Fn.Name, cl.Fn.Arity, len(args))
		}
		if len(m.frames) >= m.maxCallDepth {
			return m.topErr("call depth exceeded %d calling %s", m.maxCallDepth, cl.Fn.Name)
		}
		fr := newFrame(cl.Fn, cl.Cells)
		copy(fr.cells, cellsFor(args))
		m.frames = append(m.frames, fr)
		return nil

	case value.KindBoundMethod:
		bm := callee.Obj.(*value.BoundMethod)
		wantArgs := bm.Method.Arity - 1 // Arity includes the implicit receiver
		if len(args) != wantArgs {
			return m.topErr("arity mismatch calling %s: want %d args, got %d", bm.Method.Name, wantArgs, len(args))
		}
		if len(m.frames) >= m.maxCallDepth {
			return m.topErr("call depth exceeded %d calling %s", m.maxCallDepth, bm.Method.Name)
		}
		fr := newFrame(bm.Method, bm.ClosureCells)
		fr.cells[0].V = bm.Receiver
		for i, a := range args {
			fr.cells[i+1].V = a
		}
		m.frames = append(m.frames, fr)
		return nil

	case value.KindNative:
		nat := callee.Obj.(*value.Native)
		if nat.Arity >= 0 && len(args) != nat.Arity {
			return m.topErr("arity mismatch calling %s: want %d args, got %d", nat.Name, nat.Arity, len(args))
		}
		result, err := nat.Fn(args)
		if err != nil {
			return m.topErr("%s: %v", nat.Name, err)
		}
		m.push(result)
		return nil

	default:
		return m.topErr("value of kind %v is not callable", callee.Kind)
	}
}

// cellsFor boxes a fresh set of argument values, one Cell per argument, for
// copying into the low slots of a newly created frame.
func cellsFor(args []value.Value) []*value.Cell {
	cells := make([]*value.Cell, len(args))
	for i, a := range args {
		cells[i] = value.NewCell(a)
	}
	return cells
}

func (m *Machine) topErr(format string, args ...any) *RuntimeError {
	fr := m.frames[len(m.frames)-1]
	return m.errf(fr, format, args...)
}
