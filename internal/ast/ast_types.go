package ast

import (
	"github.com/assure-lang/assure/internal/token"
)

// TypeExpr is an unresolved type expression as produced by the parser.
// The analyzer resolves these into typesystem values.
type TypeExpr interface {
	Node
	typeExprNode()
}

// NamedType references a declared or builtin type by name.
// User, Int, events.Payload
type NamedType struct {
	Token token.Token
	Name  string // possibly dotted for namespace-qualified references
}

func (t *NamedType) typeExprNode() {}
func (t *NamedType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// ConstrainedType refines a base primitive with a predicate.
// Int @range(0..100), String @pattern("^[a-z]+$"), String @oneOf("a", "b")
type ConstrainedType struct {
	Token   token.Token
	Base    TypeExpr
	Range   *RangeBound
	Pattern string // regex source; empty when unused
	Enum    []Expr // explicit enumerated value set; empty when unused
}

func (t *ConstrainedType) typeExprNode() {}
func (t *ConstrainedType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// RangeBound is a numeric range predicate, inclusive on both ends.
// Either bound may be nil for a half-open range.
type RangeBound struct {
	Lo Expr
	Hi Expr
}

// ArrayType is a homogeneous array.
type ArrayType struct {
	Token token.Token
	Elem  TypeExpr
}

func (t *ArrayType) typeExprNode() {}
func (t *ArrayType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// MapType maps keys to values.
type MapType struct {
	Token token.Token
	Key   TypeExpr
	Value TypeExpr
}

func (t *MapType) typeExprNode() {}
func (t *MapType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// TupleType is a fixed-arity heterogeneous sequence.
type TupleType struct {
	Token token.Token
	Elems []TypeExpr
}

func (t *TupleType) typeExprNode() {}
func (t *TupleType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// RecordType is an ordered field list. Field order is preserved for
// diagnostics but equality is by field set.
type RecordType struct {
	Token  token.Token
	Fields []*FieldSpec
}

func (t *RecordType) typeExprNode() {}
func (t *RecordType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// FieldSpec is one record field.
type FieldSpec struct {
	Token    token.Token
	Name     string
	Type     TypeExpr
	Optional bool
}

// UnionType is a set of alternatives. Declaration order is preserved:
// checking against a union tries alternatives in this order and
// succeeds on the first structural match.
type UnionType struct {
	Token token.Token
	Alts  []TypeExpr
}

func (t *UnionType) typeExprNode() {}
func (t *UnionType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// IntersectionType requires all member types simultaneously.
type IntersectionType struct {
	Token token.Token
	Reqs  []TypeExpr
}

func (t *IntersectionType) typeExprNode() {}
func (t *IntersectionType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// GenericInst instantiates a generic type by name.
// List<Int>, Repository<User>
type GenericInst struct {
	Token token.Token
	Name  string
	Args  []TypeExpr
}

func (t *GenericInst) typeExprNode() {}
func (t *GenericInst) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// DependentArrayType is an array indexed by a symbolic length.
// Vector<Float, n>, Matrix<Float, 3>
type DependentArrayType struct {
	Token  token.Token
	Elem   TypeExpr
	Length Expr
}

func (t *DependentArrayType) typeExprNode() {}
func (t *DependentArrayType) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}

// FuncTypeExpr is a function type with its declared effect labels.
// (Int, Int) -> Int @effects("network")
type FuncTypeExpr struct {
	Token   token.Token
	Params  []TypeExpr
	Return  TypeExpr
	Effects []string
}

func (t *FuncTypeExpr) typeExprNode() {}
func (t *FuncTypeExpr) GetToken() token.Token {
	if t == nil {
		return token.Token{}
	}
	return t.Token
}
