package stdlib

import (
	"testing"

	"github.com/agenthands/bilex/pkg/value"
)

func call(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	nat, ok := Builtins()[name]
	if !ok {
		t.Fatalf("no such builtin %q", name)
	}
	if nat.Arity >= 0 && len(args) != nat.Arity {
		t.Fatalf("%s: wrong harness arity %d, want %d", name, len(args), nat.Arity)
	}
	v, err := nat.Fn(args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return v
}

func TestAbs(t *testing.T) {
	if v := call(t, "abs", value.Int(-5)); v.Int != 5 {
		t.Errorf("abs(-5) = %d, want 5", v.Int)
	}
	if v := call(t, "abs", value.Float64(-2.5)); v.Float != 2.5 {
		t.Errorf("abs(-2.5) = %v, want 2.5", v.Float)
	}
}

func TestSqrt(t *testing.T) {
	if v := call(t, "sqrt", value.Int(9)); v.Float != 3 {
		t.Errorf("sqrt(9) = %v, want 3", v.Float)
	}
}

func TestMinMax(t *testing.T) {
	if v := call(t, "min", value.Int(3), value.Int(1), value.Int(2)); v.Int != 1 {
		t.Errorf("min(3,1,2) = %d, want 1", v.Int)
	}
	if v := call(t, "max", value.Int(3), value.Int(1), value.Int(2)); v.Int != 3 {
		t.Errorf("max(3,1,2) = %d, want 3", v.Int)
	}
}

func TestRoundFloorCeil(t *testing.T) {
	if v := call(t, "round", value.Float64(2.6)); v.Int != 3 {
		t.Errorf("round(2.6) = %d, want 3", v.Int)
	}
	if v := call(t, "floor", value.Float64(2.6)); v.Int != 2 {
		t.Errorf("floor(2.6) = %d, want 2", v.Int)
	}
	if v := call(t, "ceil", value.Float64(2.1)); v.Int != 3 {
		t.Errorf("ceil(2.1) = %d, want 3", v.Int)
	}
}

func TestLength(t *testing.T) {
	if v := call(t, "length", value.Str("hello")); v.Int != 5 {
		t.Errorf("length(\"hello\") = %d, want 5", v.Int)
	}
	lst := value.Value{Kind: value.KindList, Obj: &value.List{Elems: []value.Value{value.Int(1), value.Int(2)}}}
	if v := call(t, "length", lst); v.Int != 2 {
		t.Errorf("length(list) = %d, want 2", v.Int)
	}
}

func TestStringHelpers(t *testing.T) {
	if v := call(t, "upper", value.Str("abc")); v.Str != "ABC" {
		t.Errorf("upper(\"abc\") = %q, want ABC", v.Str)
	}
	if v := call(t, "lower", value.Str("ABC")); v.Str != "abc" {
		t.Errorf("lower(\"ABC\") = %q, want abc", v.Str)
	}
	if v := call(t, "trim", value.Str("  x  ")); v.Str != "x" {
		t.Errorf("trim = %q, want x", v.Str)
	}
}

func TestSplitJoin(t *testing.T) {
	v := call(t, "split", value.Str("a,b,c"), value.Str(","))
	list := v.Obj.(*value.List).Elems
	if len(list) != 3 || list[0].Str != "a" || list[2].Str != "c" {
		t.Fatalf("split got %v", list)
	}
	joined := call(t, "join", v, value.Str("-"))
	if joined.Str != "a-b-c" {
		t.Errorf("join = %q, want a-b-c", joined.Str)
	}
}

func TestConversions(t *testing.T) {
	if v := call(t, "int", value.Str("42")); v.Int != 42 {
		t.Errorf("int(\"42\") = %d, want 42", v.Int)
	}
	if v := call(t, "float", value.Int(3)); v.Float != 3.0 {
		t.Errorf("float(3) = %v, want 3.0", v.Float)
	}
	if v := call(t, "str", value.Int(7)); v.Str != "7" {
		t.Errorf("str(7) = %q, want 7", v.Str)
	}
	if v := call(t, "bool", value.Int(0)); v.Bool != false {
		t.Errorf("bool(0) = %v, want false", v.Bool)
	}
}

func TestRangeVariants(t *testing.T) {
	one := call(t, "range", value.Int(3)).Obj.(*value.List).Elems
	if len(one) != 3 || one[0].Int != 0 || one[2].Int != 2 {
		t.Fatalf("range(3) = %v", one)
	}
	two := call(t, "range", value.Int(1), value.Int(4)).Obj.(*value.List).Elems
	if len(two) != 3 || two[0].Int != 1 {
		t.Fatalf("range(1,4) = %v", two)
	}
	three := call(t, "range", value.Int(5), value.Int(0), value.Int(-2)).Obj.(*value.List).Elems
	want := []int64{5, 3, 1}
	if len(three) != len(want) {
		t.Fatalf("range(5,0,-2) = %v", three)
	}
	for i, w := range want {
		if three[i].Int != w {
			t.Errorf("range(5,0,-2)[%d] = %d, want %d", i, three[i].Int, w)
		}
	}
}

func TestRangeZeroStepErrors(t *testing.T) {
	nat := Builtins()["range"]
	_, err := nat.Fn([]value.Value{value.Int(0), value.Int(5), value.Int(0)})
	if err == nil {
		t.Fatal("expected an error for a zero step")
	}
}

func TestSum(t *testing.T) {
	ints := value.Value{Kind: value.KindList, Obj: &value.List{Elems: []value.Value{value.Int(1), value.Int(2), value.Int(3)}}}
	if v := call(t, "sum", ints); v.Kind != value.KindInt || v.Int != 6 {
		t.Errorf("sum(ints) = %+v, want Int(6)", v)
	}
	mixed := value.Value{Kind: value.KindList, Obj: &value.List{Elems: []value.Value{value.Int(1), value.Float64(2.5)}}}
	if v := call(t, "sum", mixed); v.Kind != value.KindFloat || v.Float != 3.5 {
		t.Errorf("sum(mixed) = %+v, want Float(3.5)", v)
	}
}

func TestType(t *testing.T) {
	if v := call(t, "type", value.Int(1)); v.Str != "Int" {
		t.Errorf("type(1) = %q, want Int", v.Str)
	}
	if v := call(t, "type", value.Str("x")); v.Str != "String" {
		t.Errorf("type(\"x\") = %q, want String", v.Str)
	}
	if v := call(t, "type", value.None()); v.Str != "None" {
		t.Errorf("type(none) = %q, want None", v.Str)
	}
}

func TestAbsRejectsNonNumber(t *testing.T) {
	nat := Builtins()["abs"]
	_, err := nat.Fn([]value.Value{value.Str("x")})
	if err == nil {
		t.Fatal("expected an error for abs(\"x\")")
	}
}
