package ast

import (
	"github.com/assure-lang/assure/internal/token"
)

// TokenProvider is an interface for any node that can provide its
// primary token. This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all tree nodes. The tree is built by
// an external parser; the engine only reads and annotates it.
type Node interface {
	GetToken() token.Token
}

// Unit is one compilation unit: the root the pipeline analyzes. Units
// with no unresolved cross-references are independent of each other.
type Unit struct {
	Token token.Token
	Name  string // module/file name, used to qualify top-level declarations
	Decls []*Decl
}

func (u *Unit) GetToken() token.Token {
	if u == nil {
		return token.Token{}
	}
	return u.Token
}

// DeclKind distinguishes the entities a declaration can introduce.
type DeclKind int

const (
	VarDecl DeclKind = iota
	FuncDecl
	TypeDecl
	TemplateDecl
	TypestateDecl
	NamespaceDecl
)

func (k DeclKind) String() string {
	switch k {
	case VarDecl:
		return "var"
	case FuncDecl:
		return "function"
	case TypeDecl:
		return "type"
	case TemplateDecl:
		return "template"
	case TypestateDecl:
		return "typestate"
	case NamespaceDecl:
		return "namespace"
	}
	return "unknown"
}

// Decl is a named entity with its parse-time metadata attached.
// Namespace declarations nest their members; type declarations carry
// their methods as nested function declarations.
type Decl struct {
	Token       token.Token
	Kind        DeclKind
	Name        string
	Type        TypeExpr     // declared type; for functions, the return type
	TypeParams  []*TypeParam // generic parameters of a type or function declaration
	Value       Expr         // initializer for var declarations
	Params      []*Param     // function parameters
	Body        *BlockStmt
	Annotations []*Annotation
	Members     []*Decl // namespace members, or methods of a type declaration

	Template  *TemplateSpec  // set when Kind == TemplateDecl
	Instances []*InstanceRef // @implements bindings on a type declaration
	Typestate *TypestateSpec // set when Kind == TypestateDecl

	Public  bool // part of the declaring type's public surface
	Mutates bool // method may mutate its receiver (drives invariant checks)
}

func (d *Decl) GetToken() token.Token {
	if d == nil {
		return token.Token{}
	}
	return d.Token
}

// Annotation returns the first annotation with the given name, or nil.
func (d *Decl) Annotation(name string) *Annotation {
	for _, a := range d.Annotations {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AnnotationsNamed returns every annotation with the given name in
// declaration order.
func (d *Decl) AnnotationsNamed(name string) []*Annotation {
	var out []*Annotation
	for _, a := range d.Annotations {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

// Method returns the member function with the given name, or nil.
func (d *Decl) Method(name string) *Decl {
	for _, m := range d.Members {
		if m.Kind == FuncDecl && m.Name == name {
			return m
		}
	}
	return nil
}

// Param is one function parameter.
type Param struct {
	Token token.Token
	Name  string
	Type  TypeExpr
}

func (p *Param) GetToken() token.Token {
	if p == nil {
		return token.Token{}
	}
	return p.Token
}

// Annotation is an opaque key/argument pair attached at parse time.
// @requires(b != 0, "divisor must be non-zero")
// @effects("network", "filesystem")
// @verify("assoc") forAll x: Int where x > 0 { ... }
type Annotation struct {
	Token   token.Token
	Name    string
	Args    []Expr
	Message string      // human-readable message for contract annotations
	ForAll  *ForAllSpec // quantifier for @verify property annotations
}

func (a *Annotation) GetToken() token.Token {
	if a == nil {
		return token.Token{}
	}
	return a.Token
}

// ForAllSpec describes a universally quantified property domain.
// forAll x: Int where x > 0 { pred(x) }
type ForAllSpec struct {
	Token  token.Token
	Var    string
	Domain string // generator domain name, e.g. "Int", "String"
	Where  Expr   // optional domain filter; nil means unfiltered
	Pred   Expr   // the property body
}

func (f *ForAllSpec) GetToken() token.Token {
	if f == nil {
		return token.Token{}
	}
	return f.Token
}

// TemplateSpec is a named, generic structural contract: a required
// interface plus optional default bodies and verification assertions.
type TemplateSpec struct {
	Token      token.Token
	TypeParams []*TypeParam
	Required   []*OpSig
	Defaults   []*Decl       // default implementations, keyed by name
	Asserts    []*Annotation // template-level @verify assertions
}

// Default returns the default implementation for an operation, or nil.
func (t *TemplateSpec) Default(name string) *Decl {
	for _, d := range t.Defaults {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// TypeParam is a generic parameter with its structural requirements.
// @requires(T has property "id") becomes HasProperties: ["id"].
type TypeParam struct {
	Token         token.Token
	Name          string
	Bound         TypeExpr // optional interface bound
	HasProperties []string
}

// OpSig is one required operation of a template interface.
type OpSig struct {
	Token   token.Token
	Name    string
	Params  []TypeExpr
	Return  TypeExpr
	Effects []string
}

func (o *OpSig) GetToken() token.Token {
	if o == nil {
		return token.Token{}
	}
	return o.Token
}

// InstanceRef binds a template to a target declaration.
// @implements Repository<User>
type InstanceRef struct {
	Token    token.Token
	Template string
	Args     []TypeExpr
}

func (r *InstanceRef) GetToken() token.Token {
	if r == nil {
		return token.Token{}
	}
	return r.Token
}

// TypestateSpec declares a typestate interface: two or more named
// states, each with a state-local method set.
type TypestateSpec struct {
	Token   token.Token
	Initial string // name of the initial state
	States  []*StateSpec
}

// State returns the state with the given name, or nil.
func (t *TypestateSpec) State(name string) *StateSpec {
	for _, s := range t.States {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// StateSpec is one state and the methods callable in it.
type StateSpec struct {
	Token   token.Token
	Name    string
	Methods []*StateMethod
}

// Method returns the state-local method with the given name, or nil.
func (s *StateSpec) Method(name string) *StateMethod {
	for _, m := range s.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// StateMethod is a method available in a particular state. NextState
// names the state of the returned value; empty means the same state.
type StateMethod struct {
	Token     token.Token
	Name      string
	Params    []TypeExpr
	Return    TypeExpr // optional payload type; nil when the method only transitions
	NextState string
}
