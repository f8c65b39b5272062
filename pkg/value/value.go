// Package value defines the runtime tagged union of values the VM
// operates on, plus the heap-like shared cells closures capture.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a Value's runtime type.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindNone
	KindList
	KindMap
	KindFunction
	KindNative
	KindClosure
	KindBoundMethod
	KindClass
	KindInstance
)

// Value is the tagged union every stack slot, local, constant, and field
// holds. Composite kinds (list/map/function/closure/...) carry their data
// in Obj; scalar kinds use Int/Float/Str/Bool directly to avoid boxing the
// hot numeric path.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Obj   any
}

func Int(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func Float64(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Str(s string) Value     { return Value{Kind: KindString, Str: s} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func None() Value            { return Value{Kind: KindNone} }

// Cell is a single-slot mutable container shared between a parent frame's
// local and every closure that captures it. Every local slot in every frame
// is backed by a *Cell from frame creation, so capture is always reuse of
// the existing pointer rather than a copy (see DESIGN.md, "closure-cell
// sharing mechanism").
type Cell struct {
	V Value
}

func NewCell(v Value) *Cell { return &Cell{V: v} }

// List is the ordered mutable sequence backing KindList values.
type List struct {
	Elems []Value
}

// Map is the string-keyed mutable map backing KindMap values.
type Map struct {
	Entries map[string]Value
	// Order preserves insertion order for deterministic Display output.
	Order []string
}

func NewMap() *Map {
	return &Map{Entries: make(map[string]Value)}
}

func (m *Map) Set(key string, v Value) {
	if _, exists := m.Entries[key]; !exists {
		m.Order = append(m.Order, key)
	}
	m.Entries[key] = v
}

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.Entries[key]
	return v, ok
}

// UpvalueDesc describes how a function captures one enclosing variable.
// IsLocal=true: capture the defining frame's local Cell at ParentIndex.
// IsLocal=false: reuse the defining frame's own upvalue Cell at ParentIndex.
type UpvalueDesc struct {
	IsLocal     bool
	ParentIndex int
}

// Function is a compiled function: its code lives in the owning Module's
// function table; this struct is the constant-pool-visible descriptor.
type Function struct {
	Name      string
	Arity     int
	LocalCount int
	Upvalues  []UpvalueDesc
	Code      []Instruction
}

// Instruction is one fixed-width bytecode instruction.
type Instruction struct {
	Op  uint8
	Arg uint32
}

// Native is a built-in function the VM consults by name. Arity is negative
// for variadic built-ins (spec.md §6).
type Native struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

// Closure pairs a compiled Function with the Cells it captured at
// MAKE_CLOSURE time.
type Closure struct {
	Fn    *Function
	Cells []*Cell
}

// BoundMethod pairs a receiver Instance with the compiled method it was
// resolved from. It exists only between GET_ATTR and CALL (spec.md §9).
type BoundMethod struct {
	Receiver Value
	Method   *Function
	// ClosureCells becomes the method frame's upvalue cells at CALL time.
	// GET_ATTR does not set it, so it is always nil for bound methods the VM
	// builds.
	ClosureCells []*Cell
}

// Class is a name, ordered constructor field-name vector, and method table.
type Class struct {
	Name    string
	Fields  []string
	Methods map[string]*Function
}

// Instance is a live object: a Class reference plus a field map.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

// Truthy implements spec.md §4.4's truthiness rule.
func Truthy(v Value) bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	case KindNone:
		return false
	case KindList:
		return len(v.Obj.(*List).Elems) > 0
	default:
		return true
	}
}

// Equal implements spec.md §4.4's EQ semantics.
func Equal(a, b Value) bool {
	if a.Kind == KindNone && b.Kind == KindNone {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	case KindNone:
		return true
	case KindList:
		al, bl := a.Obj.(*List).Elems, b.Obj.(*List).Elems
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !Equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	default:
		// Map/function/class/instance equality is not defined by the core
		// (spec.md §9 open question); fall back to reference identity.
		return a.Obj == b.Obj
	}
}

// Display renders a Value the way `print` shows it.
func Display(v Value) string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNone:
		return "none"
	case KindList:
		l := v.Obj.(*List)
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = reprOf(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := v.Obj.(*Map)
		parts := make([]string, 0, len(m.Order))
		for _, k := range m.Order {
			parts = append(parts, fmt.Sprintf("%s: %s", k, reprOf(m.Entries[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.Obj.(*Function).Name)
	case KindNative:
		return fmt.Sprintf("<native %s>", v.Obj.(*Native).Name)
	case KindClosure:
		return fmt.Sprintf("<function %s>", v.Obj.(*Closure).Fn.Name)
	case KindBoundMethod:
		return fmt.Sprintf("<bound method %s>", v.Obj.(*BoundMethod).Method.Name)
	case KindClass:
		return fmt.Sprintf("<class %s>", v.Obj.(*Class).Name)
	case KindInstance:
		return fmt.Sprintf("<instance of %s>", v.Obj.(*Instance).Class.Name)
	default:
		return "<?>"
	}
}

// reprOf renders a nested value inside a list/map display, quoting strings.
func reprOf(v Value) string {
	if v.Kind == KindString {
		return strconv.Quote(v.Str)
	}
	return Display(v)
}

// IsNumber reports whether v is an integer or a float.
func IsNumber(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }

func AsFloat(v Value) float64 {
	if v.Kind == KindFloat {
		return v.Float
	}
	return float64(v.Int)
}

// FormatFloatLike formats f with Go's shortest 'g' representation, the same
// text Display produces for a float.
func FormatFloatLike(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
