package ast

import (
	"github.com/assure-lang/assure/internal/token"
)

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmtNode()
}

// BlockStmt is a brace-delimited statement sequence with its own scope.
type BlockStmt struct {
	Token token.Token
	Stmts []Stmt
}

func (s *BlockStmt) stmtNode() {}
func (s *BlockStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	Token token.Token
	Expr  Expr
}

func (s *ExprStmt) stmtNode() {}
func (s *ExprStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// LetStmt introduces a local binding.
// let x: Int = 1
type LetStmt struct {
	Token token.Token
	Name  string
	Type  TypeExpr // optional
	Value Expr
}

func (s *LetStmt) stmtNode() {}
func (s *LetStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// AssignStmt reassigns an existing binding or member.
type AssignStmt struct {
	Token  token.Token
	Target Expr
	Value  Expr
}

func (s *AssignStmt) stmtNode() {}
func (s *AssignStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// ReturnStmt exits the enclosing function.
type ReturnStmt struct {
	Token token.Token
	Value Expr // nil for bare return
}

func (s *ReturnStmt) stmtNode() {}
func (s *ReturnStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// IfStmt branches on a condition.
type IfStmt struct {
	Token token.Token
	Cond  Expr
	Then  *BlockStmt
	Else  *BlockStmt // nil when absent
}

func (s *IfStmt) stmtNode() {}
func (s *IfStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// LoopStmt repeats its body while the condition holds. A nil
// condition loops until an explicit exit.
type LoopStmt struct {
	Token token.Token
	Cond  Expr
	Body  *BlockStmt
}

func (s *LoopStmt) stmtNode() {}
func (s *LoopStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// IsolateStmt is an effect-isolation block: its body may only perform
// operations within the named effect, independent of the enclosing
// function's declared set.
// isolate("filesystem") { ... }
type IsolateStmt struct {
	Token  token.Token
	Effect string
	Body   *BlockStmt
}

func (s *IsolateStmt) stmtNode() {}
func (s *IsolateStmt) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}
