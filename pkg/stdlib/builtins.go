// Package stdlib is the built-in function registry the VM links its
// globals table against: names the compiler never declares itself, but
// that programs may call like any ordinary function.
package stdlib

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agenthands/bilex/pkg/value"
)

// Builtins returns a fresh registry of every built-in, keyed by name.
func Builtins() map[string]*value.Native {
	list := []*value.Native{
		{Name: "abs", Arity: 1, Fn: biAbs},
		{Name: "sqrt", Arity: 1, Fn: biSqrt},
		{Name: "min", Arity: -1, Fn: biMin},
		{Name: "max", Arity: -1, Fn: biMax},
		{Name: "round", Arity: 1, Fn: biRound},
		{Name: "floor", Arity: 1, Fn: biFloor},
		{Name: "ceil", Arity: 1, Fn: biCeil},
		{Name: "length", Arity: 1, Fn: biLength},
		{Name: "upper", Arity: 1, Fn: biUpper},
		{Name: "lower", Arity: 1, Fn: biLower},
		{Name: "trim", Arity: 1, Fn: biTrim},
		{Name: "split", Arity: 2, Fn: biSplit},
		{Name: "join", Arity: 2, Fn: biJoin},
		{Name: "int", Arity: 1, Fn: biInt},
		{Name: "float", Arity: 1, Fn: biFloat},
		{Name: "str", Arity: 1, Fn: biStr},
		{Name: "bool", Arity: 1, Fn: biBool},
		{Name: "range", Arity: -1, Fn: biRange},
		{Name: "sum", Arity: 1, Fn: biSum},
		{Name: "type", Arity: 1, Fn: biType},
	}
	reg := make(map[string]*value.Native, len(list))
	for _, n := range list {
		reg[n.Name] = n
	}
	return reg
}

func wantNumber(v value.Value) (float64, error) {
	if !value.IsNumber(v) {
		return 0, fmt.Errorf("expected a number, got %v", v.Kind)
	}
	return value.AsFloat(v), nil
}

func biAbs(args []value.Value) (value.Value, error) {
	switch args[0].Kind {
	case value.KindInt:
		n := args[0].Int
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	case value.KindFloat:
		return value.Float64(math.Abs(args[0].Float)), nil
	default:
		return value.Value{}, fmt.Errorf("expected a number, got %v", args[0].Kind)
	}
}

func biSqrt(args []value.Value) (value.Value, error) {
	f, err := wantNumber(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Float64(math.Sqrt(f)), nil
}

func biMin(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, fmt.Errorf("min requires at least one argument")
	}
	best := args[0]
	for _, a := range args[1:] {
		if value.AsFloat(a) < value.AsFloat(best) {
			best = a
		}
	}
	return best, nil
}

func biMax(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, fmt.Errorf("max requires at least one argument")
	}
	best := args[0]
	for _, a := range args[1:] {
		if value.AsFloat(a) > value.AsFloat(best) {
			best = a
		}
	}
	return best, nil
}

func biRound(args []value.Value) (value.Value, error) {
	f, err := wantNumber(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(math.Round(f))), nil
}

func biFloor(args []value.Value) (value.Value, error) {
	f, err := wantNumber(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(math.Floor(f))), nil
}

func biCeil(args []value.Value) (value.Value, error) {
	f, err := wantNumber(args[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(math.Ceil(f))), nil
}

func biLength(args []value.Value) (value.Value, error) {
	switch args[0].Kind {
	case value.KindString:
		return value.Int(int64(len([]rune(args[0].Str)))), nil
	case value.KindList:
		return value.Int(int64(len(args[0].Obj.(*value.List).Elems))), nil
	case value.KindMap:
		return value.Int(int64(len(args[0].Obj.(*value.Map).Order))), nil
	default:
		return value.Value{}, fmt.Errorf("length expects a string, list, or map, got %v", args[0].Kind)
	}
}

func biUpper(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindString {
		return value.Value{}, fmt.Errorf("upper expects a string")
	}
	return value.Str(strings.ToUpper(args[0].Str)), nil
}

func biLower(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindString {
		return value.Value{}, fmt.Errorf("lower expects a string")
	}
	return value.Str(strings.ToLower(args[0].Str)), nil
}

func biTrim(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindString {
		return value.Value{}, fmt.Errorf("trim expects a string")
	}
	return value.Str(strings.TrimSpace(args[0].Str)), nil
}

func biSplit(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindString || args[1].Kind != value.KindString {
		return value.Value{}, fmt.Errorf("split expects two strings")
	}
	parts := strings.Split(args[0].Str, args[1].Str)
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.Str(p)
	}
	return value.Value{Kind: value.KindList, Obj: &value.List{Elems: elems}}, nil
}

func biJoin(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindList || args[1].Kind != value.KindString {
		return value.Value{}, fmt.Errorf("join expects a list and a string")
	}
	elems := args[0].Obj.(*value.List).Elems
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.Kind != value.KindString {
			return value.Value{}, fmt.Errorf("join expects a list of strings")
		}
		parts[i] = e.Str
	}
	return value.Str(strings.Join(parts, args[1].Str)), nil
}

func biInt(args []value.Value) (value.Value, error) {
	switch a := args[0]; a.Kind {
	case value.KindInt:
		return a, nil
	case value.KindFloat:
		return value.Int(int64(a.Float)), nil
	case value.KindBool:
		if a.Bool {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(a.Str), 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("cannot convert %q to Int", a.Str)
		}
		return value.Int(n), nil
	default:
		return value.Value{}, fmt.Errorf("cannot convert %v to Int", a.Kind)
	}
}

func biFloat(args []value.Value) (value.Value, error) {
	switch a := args[0]; a.Kind {
	case value.KindFloat:
		return a, nil
	case value.KindInt:
		return value.Float64(float64(a.Int)), nil
	case value.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(a.Str), 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("cannot convert %q to Float", a.Str)
		}
		return value.Float64(f), nil
	default:
		return value.Value{}, fmt.Errorf("cannot convert %v to Float", a.Kind)
	}
}

func biStr(args []value.Value) (value.Value, error) {
	return value.Str(value.Display(args[0])), nil
}

func biBool(args []value.Value) (value.Value, error) {
	return value.Bool(value.Truthy(args[0])), nil
}

func biRange(args []value.Value) (value.Value, error) {
	var start, stop, step int64
	switch len(args) {
	case 1:
		start, stop, step = 0, args[0].Int, 1
	case 2:
		start, stop, step = args[0].Int, args[1].Int, 1
	case 3:
		start, stop, step = args[0].Int, args[1].Int, args[2].Int
	default:
		return value.Value{}, fmt.Errorf("range expects 1 to 3 arguments")
	}
	if step == 0 {
		return value.Value{}, fmt.Errorf("range step must not be zero")
	}
	var elems []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			elems = append(elems, value.Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			elems = append(elems, value.Int(i))
		}
	}
	return value.Value{Kind: value.KindList, Obj: &value.List{Elems: elems}}, nil
}

func biSum(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.KindList {
		return value.Value{}, fmt.Errorf("sum expects a list")
	}
	elems := args[0].Obj.(*value.List).Elems
	allInt := true
	var fsum float64
	var isum int64
	for _, e := range elems {
		if !value.IsNumber(e) {
			return value.Value{}, fmt.Errorf("sum expects a list of numbers")
		}
		if e.Kind != value.KindInt {
			allInt = false
		}
		fsum += value.AsFloat(e)
		isum += e.Int
	}
	if allInt {
		return value.Int(isum), nil
	}
	return value.Float64(fsum), nil
}

func biType(args []value.Value) (value.Value, error) {
	names := map[value.Kind]string{
		value.KindInt: "Int", value.KindFloat: "Float", value.KindString: "String",
		value.KindBool: "Bool", value.KindNone: "None", value.KindList: "List",
		value.KindMap: "Map", value.KindFunction: "Function", value.KindNative: "Function",
		value.KindClosure: "Function", value.KindBoundMethod: "Function",
		value.KindClass: "Class", value.KindInstance: "Instance",
	}
	if n, ok := names[args[0].Kind]; ok {
		return value.Str(n), nil
	}
	return value.Str("Unknown"), nil
}
