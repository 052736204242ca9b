package verify

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/assure-lang/assure/internal/ast"
)

// ValueKind tags a runtime value produced by the obligation
// evaluator.
type ValueKind int

const (
	NumValue ValueKind = iota
	StrValue
	BoolValue
	NilValue
	ListValue
	RecordValue
)

// Value is the obligation evaluator's runtime value. Numbers are
// exact rationals so range predicates on Decimal samples do not
// suffer binary rounding.
type Value struct {
	Kind ValueKind
	Num  *big.Rat
	Str  string
	Bool bool
	List []Value
	Rec  map[string]Value
}

func Num(r *big.Rat) Value   { return Value{Kind: NumValue, Num: r} }
func NumInt(n int64) Value   { return Value{Kind: NumValue, Num: new(big.Rat).SetInt64(n)} }
func Str(s string) Value     { return Value{Kind: StrValue, Str: s} }
func Bool(b bool) Value      { return Value{Kind: BoolValue, Bool: b} }
func Nil() Value             { return Value{Kind: NilValue} }
func List(vs ...Value) Value { return Value{Kind: ListValue, List: vs} }

func (v Value) String() string {
	switch v.Kind {
	case NumValue:
		if v.Num.IsInt() {
			return v.Num.Num().String()
		}
		return v.Num.FloatString(6)
	case StrValue:
		return fmt.Sprintf("%q", v.Str)
	case BoolValue:
		return fmt.Sprintf("%t", v.Bool)
	case NilValue:
		return "nil"
	case ListValue:
		parts := make([]string, len(v.List))
		for i, el := range v.List {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case RecordValue:
		keys := make([]string, 0, len(v.Rec))
		for k := range v.Rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.Rec[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// size orders failing property samples so the smallest one is
// reported. Numbers order by magnitude, strings and lists by length.
func (v Value) size() *big.Rat {
	switch v.Kind {
	case NumValue:
		return new(big.Rat).Abs(v.Num)
	case StrValue:
		return new(big.Rat).SetInt64(int64(len(v.Str)))
	case ListValue:
		return new(big.Rat).SetInt64(int64(len(v.List)))
	}
	return new(big.Rat)
}

// Env binds names during obligation evaluation.
type Env map[string]Value

// Eval strictly evaluates a pure expression. An error means the
// expression is not evaluable with the given bindings, not that the
// obligation failed; callers decide whether that makes the obligation
// a runtime guard or a hard error.
func Eval(e ast.Expr, env Env) (Value, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return NumInt(ex.Value), nil
	case *ast.FloatLit:
		r := new(big.Rat)
		r.SetFloat64(ex.Value)
		return Num(r), nil
	case *ast.DecimalLit:
		return Num(new(big.Rat).Set(ex.Value)), nil
	case *ast.StringLit:
		return Str(ex.Value), nil
	case *ast.BoolLit:
		return Bool(ex.Value), nil
	case *ast.NilLit:
		return Nil(), nil
	case *ast.Ident:
		if v, ok := env[ex.Name]; ok {
			return v, nil
		}
		return Value{}, fmt.Errorf("unbound name %s", ex.Name)
	case *ast.UnaryExpr:
		return evalUnary(ex, env)
	case *ast.BinaryExpr:
		return evalBinary(ex, env)
	case *ast.CondExpr:
		cond, err := Eval(ex.Cond, env)
		if err != nil {
			return Value{}, err
		}
		if cond.Kind != BoolValue {
			return Value{}, fmt.Errorf("condition is not a boolean")
		}
		if cond.Bool {
			return Eval(ex.Then, env)
		}
		return Eval(ex.Else, env)
	case *ast.MemberExpr:
		left, err := Eval(ex.Left, env)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != RecordValue {
			return Value{}, fmt.Errorf("%s has no member %s", left.String(), ex.Name)
		}
		v, ok := left.Rec[ex.Name]
		if !ok {
			return Value{}, fmt.Errorf("record has no field %s", ex.Name)
		}
		return v, nil
	case *ast.IndexExpr:
		return evalIndex(ex, env)
	case *ast.CallExpr:
		return evalCall(ex, env)
	}
	return Value{}, fmt.Errorf("expression is not evaluable")
}

func evalUnary(e *ast.UnaryExpr, env Env) (Value, error) {
	v, err := Eval(e.Operand, env)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "-":
		if v.Kind != NumValue {
			return Value{}, fmt.Errorf("cannot negate %s", v.String())
		}
		return Num(new(big.Rat).Neg(v.Num)), nil
	case "!":
		if v.Kind != BoolValue {
			return Value{}, fmt.Errorf("cannot invert %s", v.String())
		}
		return Bool(!v.Bool), nil
	}
	return Value{}, fmt.Errorf("unknown operator %s", e.Op)
}

func evalBinary(e *ast.BinaryExpr, env Env) (Value, error) {
	if e.Op == "&&" || e.Op == "||" {
		l, err := Eval(e.Left, env)
		if err != nil {
			return Value{}, err
		}
		if l.Kind != BoolValue {
			return Value{}, fmt.Errorf("operand of %s is not a boolean", e.Op)
		}
		if e.Op == "&&" && !l.Bool {
			return Bool(false), nil
		}
		if e.Op == "||" && l.Bool {
			return Bool(true), nil
		}
		r, err := Eval(e.Right, env)
		if err != nil {
			return Value{}, err
		}
		if r.Kind != BoolValue {
			return Value{}, fmt.Errorf("operand of %s is not a boolean", e.Op)
		}
		return Bool(r.Bool), nil
	}

	l, err := Eval(e.Left, env)
	if err != nil {
		return Value{}, err
	}
	r, err := Eval(e.Right, env)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case "==":
		return Bool(valueEqual(l, r)), nil
	case "!=":
		return Bool(!valueEqual(l, r)), nil
	}

	if l.Kind == StrValue && r.Kind == StrValue && e.Op == "+" {
		return Str(l.Str + r.Str), nil
	}
	if l.Kind != NumValue || r.Kind != NumValue {
		return Value{}, fmt.Errorf("operator %s needs numeric operands, got %s and %s",
			e.Op, l.String(), r.String())
	}

	switch e.Op {
	case "+":
		return Num(new(big.Rat).Add(l.Num, r.Num)), nil
	case "-":
		return Num(new(big.Rat).Sub(l.Num, r.Num)), nil
	case "*":
		return Num(new(big.Rat).Mul(l.Num, r.Num)), nil
	case "/":
		if r.Num.Sign() == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return Num(new(big.Rat).Quo(l.Num, r.Num)), nil
	case "%":
		return evalMod(l.Num, r.Num)
	case "<":
		return Bool(l.Num.Cmp(r.Num) < 0), nil
	case "<=":
		return Bool(l.Num.Cmp(r.Num) <= 0), nil
	case ">":
		return Bool(l.Num.Cmp(r.Num) > 0), nil
	case ">=":
		return Bool(l.Num.Cmp(r.Num) >= 0), nil
	}
	return Value{}, fmt.Errorf("unknown operator %s", e.Op)
}

func evalMod(l, r *big.Rat) (Value, error) {
	if !l.IsInt() || !r.IsInt() {
		return Value{}, fmt.Errorf("%% needs integer operands")
	}
	if r.Sign() == 0 {
		return Value{}, fmt.Errorf("division by zero")
	}
	m := new(big.Int).Rem(l.Num(), r.Num())
	return Num(new(big.Rat).SetInt(m)), nil
}

func evalIndex(e *ast.IndexExpr, env Env) (Value, error) {
	left, err := Eval(e.Left, env)
	if err != nil {
		return Value{}, err
	}
	idx, err := Eval(e.Index, env)
	if err != nil {
		return Value{}, err
	}
	switch left.Kind {
	case ListValue:
		if idx.Kind != NumValue || !idx.Num.IsInt() {
			return Value{}, fmt.Errorf("list index must be an integer")
		}
		i := idx.Num.Num().Int64()
		if i < 0 || i >= int64(len(left.List)) {
			return Value{}, fmt.Errorf("index %d out of range (length %d)", i, len(left.List))
		}
		return left.List[i], nil
	case RecordValue:
		if idx.Kind != StrValue {
			return Value{}, fmt.Errorf("record index must be a string")
		}
		v, ok := left.Rec[idx.Str]
		if !ok {
			return Value{}, fmt.Errorf("no entry %q", idx.Str)
		}
		return v, nil
	}
	return Value{}, fmt.Errorf("%s is not indexable", left.String())
}

// evalCall handles the pure builtins; user functions are not executed
// during verification, so calling one makes the obligation a runtime
// guard instead.
func evalCall(e *ast.CallExpr, env Env) (Value, error) {
	id, ok := e.Fn.(*ast.Ident)
	if !ok {
		return Value{}, fmt.Errorf("call target is not evaluable")
	}
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return callBuiltin(id.Name, args)
}

func callBuiltin(name string, args []Value) (Value, error) {
	switch name {
	case "len":
		if len(args) != 1 {
			break
		}
		switch args[0].Kind {
		case StrValue:
			return NumInt(int64(len(args[0].Str))), nil
		case ListValue:
			return NumInt(int64(len(args[0].List))), nil
		}
	case "abs":
		if len(args) == 1 && args[0].Kind == NumValue {
			return Num(new(big.Rat).Abs(args[0].Num)), nil
		}
	case "min", "max":
		if len(args) == 2 && args[0].Kind == NumValue && args[1].Kind == NumValue {
			cmp := args[0].Num.Cmp(args[1].Num)
			if (name == "min") == (cmp <= 0) {
				return args[0], nil
			}
			return args[1], nil
		}
	case "concat":
		if len(args) == 2 && args[0].Kind == StrValue && args[1].Kind == StrValue {
			return Str(args[0].Str + args[1].Str), nil
		}
	case "toFloat", "toDecimal":
		if len(args) == 1 && args[0].Kind == NumValue {
			return args[0], nil
		}
	case "toInt":
		if len(args) == 1 && args[0].Kind == NumValue {
			n := new(big.Int).Quo(args[0].Num.Num(), args[0].Num.Denom())
			return Num(new(big.Rat).SetInt(n)), nil
		}
	}
	return Value{}, fmt.Errorf("%s is not a pure builtin", name)
}

func valueEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NumValue:
		return a.Num.Cmp(b.Num) == 0
	case StrValue:
		return a.Str == b.Str
	case BoolValue:
		return a.Bool == b.Bool
	case NilValue:
		return true
	case ListValue:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !valueEqual(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case RecordValue:
		if len(a.Rec) != len(b.Rec) {
			return false
		}
		for k, av := range a.Rec {
			bv, ok := b.Rec[k]
			if !ok || !valueEqual(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
