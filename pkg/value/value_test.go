package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Bool(true), true},
		{Bool(false), false},
		{Int(0), false},
		{Int(1), true},
		{Float64(0), false},
		{Str(""), false},
		{Str("x"), true},
		{None(), false},
		{Value{Kind: KindList, Obj: &List{}}, false},
		{Value{Kind: KindList, Obj: &List{Elems: []Value{Int(1)}}}, true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%+v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Int(1), Int(1)) {
		t.Error("Int(1) should equal Int(1)")
	}
	if Equal(Int(1), Float64(1)) {
		t.Error("Int and Float of the same magnitude should not be equal (distinct kinds)")
	}
	if !Equal(None(), None()) {
		t.Error("none should equal none")
	}
	if !Equal(Str("a"), Str("a")) {
		t.Error("equal strings should be equal")
	}
	la := Value{Kind: KindList, Obj: &List{Elems: []Value{Int(1), Int(2)}}}
	lb := Value{Kind: KindList, Obj: &List{Elems: []Value{Int(1), Int(2)}}}
	if !Equal(la, lb) {
		t.Error("structurally equal lists should be equal")
	}
	lc := Value{Kind: KindList, Obj: &List{Elems: []Value{Int(1), Int(3)}}}
	if Equal(la, lc) {
		t.Error("structurally different lists should not be equal")
	}
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Int(42), "42"},
		{Float64(1.5), "1.5"},
		{Float64(2), "2"},
		{Str("hi"), "hi"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{None(), "none"},
		{Value{Kind: KindList, Obj: &List{Elems: []Value{Int(1), Str("a")}}}, `[1, "a"]`},
	}
	for _, c := range cases {
		if got := Display(c.v); got != c.want {
			t.Errorf("Display(%+v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestCellSharing(t *testing.T) {
	c := NewCell(Int(1))
	alias := c
	alias.V = Int(2)
	if c.V.Int != 2 {
		t.Fatalf("expected cell mutation to be visible through any alias, got %d", c.V.Int)
	}
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(2))
	m.Set("a", Int(1))
	m.Set("b", Int(20))
	if len(m.Order) != 2 {
		t.Fatalf("expected 2 distinct keys, got %d", len(m.Order))
	}
	if m.Order[0] != "b" || m.Order[1] != "a" {
		t.Fatalf("expected insertion order [b a], got %v", m.Order)
	}
	v, ok := m.Get("b")
	if !ok || v.Int != 20 {
		t.Fatalf("expected overwritten value 20 for key b, got %+v ok=%v", v, ok)
	}
}

func TestAsFloatAndIsNumber(t *testing.T) {
	if !IsNumber(Int(1)) || !IsNumber(Float64(1)) {
		t.Error("int and float should both be numbers")
	}
	if IsNumber(Str("1")) {
		t.Error("string should not be a number")
	}
	if AsFloat(Int(3)) != 3.0 {
		t.Errorf("AsFloat(Int(3)) = %v, want 3.0", AsFloat(Int(3)))
	}
}
