package analyzer

import (
	"math/big"

	"github.com/assure-lang/assure/internal/ast"
)

// ConstKind classifies a statically known value.
type ConstKind int

const (
	ConstNum ConstKind = iota
	ConstStr
	ConstBool
	ConstNil
)

// Const is a statically known value produced by constant folding.
// Numbers are kept exact as rationals so range guards on Decimal
// literals do not suffer binary rounding.
type Const struct {
	Kind ConstKind
	Num  *big.Rat
	Str  string
	Bool bool
}

func NumConst(r *big.Rat) Const  { return Const{Kind: ConstNum, Num: r} }
func StrConst(s string) Const    { return Const{Kind: ConstStr, Str: s} }
func BoolConst(b bool) Const     { return Const{Kind: ConstBool, Bool: b} }

// ConstEnv supplies statically known bindings during folding.
type ConstEnv func(name string) (Const, bool)

// Fold attempts to reduce an expression to a constant. The second
// return is false when any free variable is not statically known or an
// operation cannot be evaluated (division by zero, unknown operator).
func Fold(e ast.Expr, env ConstEnv) (Const, bool) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return NumConst(new(big.Rat).SetInt64(ex.Value)), true
	case *ast.FloatLit:
		r := new(big.Rat)
		r.SetFloat64(ex.Value)
		return NumConst(r), true
	case *ast.DecimalLit:
		return NumConst(new(big.Rat).Set(ex.Value)), true
	case *ast.StringLit:
		return StrConst(ex.Value), true
	case *ast.BoolLit:
		return BoolConst(ex.Value), true
	case *ast.NilLit:
		return Const{Kind: ConstNil}, true
	case *ast.Ident:
		if env != nil {
			return env(ex.Name)
		}
		return Const{}, false
	case *ast.UnaryExpr:
		return foldUnary(ex, env)
	case *ast.BinaryExpr:
		return foldBinary(ex, env)
	case *ast.CondExpr:
		cond, ok := Fold(ex.Cond, env)
		if !ok || cond.Kind != ConstBool {
			return Const{}, false
		}
		if cond.Bool {
			return Fold(ex.Then, env)
		}
		return Fold(ex.Else, env)
	}
	return Const{}, false
}

func foldUnary(e *ast.UnaryExpr, env ConstEnv) (Const, bool) {
	v, ok := Fold(e.Operand, env)
	if !ok {
		return Const{}, false
	}
	switch e.Op {
	case "-":
		if v.Kind != ConstNum {
			return Const{}, false
		}
		return NumConst(new(big.Rat).Neg(v.Num)), true
	case "!":
		if v.Kind != ConstBool {
			return Const{}, false
		}
		return BoolConst(!v.Bool), true
	}
	return Const{}, false
}

func foldBinary(e *ast.BinaryExpr, env ConstEnv) (Const, bool) {
	// Short-circuit operators fold without evaluating the right side
	// when the left side decides the result.
	if e.Op == "&&" || e.Op == "||" {
		l, ok := Fold(e.Left, env)
		if !ok || l.Kind != ConstBool {
			return Const{}, false
		}
		if e.Op == "&&" && !l.Bool {
			return BoolConst(false), true
		}
		if e.Op == "||" && l.Bool {
			return BoolConst(true), true
		}
		r, ok := Fold(e.Right, env)
		if !ok || r.Kind != ConstBool {
			return Const{}, false
		}
		return BoolConst(r.Bool), true
	}

	l, ok := Fold(e.Left, env)
	if !ok {
		return Const{}, false
	}
	r, ok := Fold(e.Right, env)
	if !ok {
		return Const{}, false
	}

	switch e.Op {
	case "==":
		return BoolConst(constEqual(l, r)), true
	case "!=":
		return BoolConst(!constEqual(l, r)), true
	}

	if l.Kind == ConstNum && r.Kind == ConstNum {
		return foldNumeric(e.Op, l.Num, r.Num)
	}
	if l.Kind == ConstStr && r.Kind == ConstStr {
		switch e.Op {
		case "+":
			return StrConst(l.Str + r.Str), true
		case "<":
			return BoolConst(l.Str < r.Str), true
		case "<=":
			return BoolConst(l.Str <= r.Str), true
		case ">":
			return BoolConst(l.Str > r.Str), true
		case ">=":
			return BoolConst(l.Str >= r.Str), true
		}
	}
	return Const{}, false
}

func foldNumeric(op string, l, r *big.Rat) (Const, bool) {
	switch op {
	case "+":
		return NumConst(new(big.Rat).Add(l, r)), true
	case "-":
		return NumConst(new(big.Rat).Sub(l, r)), true
	case "*":
		return NumConst(new(big.Rat).Mul(l, r)), true
	case "/":
		if r.Sign() == 0 {
			return Const{}, false
		}
		return NumConst(new(big.Rat).Quo(l, r)), true
	case "%":
		if !l.IsInt() || !r.IsInt() || r.Sign() == 0 {
			return Const{}, false
		}
		m := new(big.Int).Mod(l.Num(), r.Num())
		return NumConst(new(big.Rat).SetInt(m)), true
	case "<":
		return BoolConst(l.Cmp(r) < 0), true
	case "<=":
		return BoolConst(l.Cmp(r) <= 0), true
	case ">":
		return BoolConst(l.Cmp(r) > 0), true
	case ">=":
		return BoolConst(l.Cmp(r) >= 0), true
	}
	return Const{}, false
}

func constEqual(l, r Const) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case ConstNum:
		return l.Num.Cmp(r.Num) == 0
	case ConstStr:
		return l.Str == r.Str
	case ConstBool:
		return l.Bool == r.Bool
	case ConstNil:
		return true
	}
	return false
}
