package ast

import (
	"math/big"

	"github.com/assure-lang/assure/internal/token"
)

// Expr is a value expression. Contract predicates, initializers, and
// function bodies are built from these.
type Expr interface {
	Node
	exprNode()
}

// IntLit is an integer literal.
type IntLit struct {
	Token token.Token
	Value int64
}

func (e *IntLit) exprNode() {}
func (e *IntLit) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Token token.Token
	Value float64
}

func (e *FloatLit) exprNode() {}
func (e *FloatLit) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// DecimalLit is an exact decimal literal; the value is kept as a
// rational to avoid binary-float rounding in constraint checks.
type DecimalLit struct {
	Token token.Token
	Value *big.Rat
}

func (e *DecimalLit) exprNode() {}
func (e *DecimalLit) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// StringLit is a string literal.
type StringLit struct {
	Token token.Token
	Value string
}

func (e *StringLit) exprNode() {}
func (e *StringLit) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Token token.Token
	Value bool
}

func (e *BoolLit) exprNode() {}
func (e *BoolLit) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// NilLit is the nil literal.
type NilLit struct {
	Token token.Token
}

func (e *NilLit) exprNode() {}
func (e *NilLit) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// Ident references a name in scope.
type Ident struct {
	Token token.Token
	Name  string
}

func (e *Ident) exprNode() {}
func (e *Ident) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// UnaryExpr applies a prefix operator: !x, -x.
type UnaryExpr struct {
	Token   token.Token
	Op      string
	Operand Expr
}

func (e *UnaryExpr) exprNode() {}
func (e *UnaryExpr) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// BinaryExpr applies an infix operator: a + b, x != 0, p && q.
type BinaryExpr struct {
	Token token.Token
	Op    string
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) exprNode() {}
func (e *BinaryExpr) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// CallExpr calls a function or method.
type CallExpr struct {
	Token token.Token
	Fn    Expr
	Args  []Expr
}

func (e *CallExpr) exprNode() {}
func (e *CallExpr) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// MemberExpr accesses a named member: obj.field, conn.send.
type MemberExpr struct {
	Token token.Token
	Left  Expr
	Name  string
}

func (e *MemberExpr) exprNode() {}
func (e *MemberExpr) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// IndexExpr indexes into an array or map: xs[i].
type IndexExpr struct {
	Token token.Token
	Left  Expr
	Index Expr
}

func (e *IndexExpr) exprNode() {}
func (e *IndexExpr) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// CondExpr is a ternary conditional: cond ? a : b.
type CondExpr struct {
	Token token.Token
	Cond  Expr
	Then  Expr
	Else  Expr
}

func (e *CondExpr) exprNode() {}
func (e *CondExpr) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}
