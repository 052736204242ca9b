package symbols

import (
	"errors"
	"fmt"

	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/typesystem"
)

type SymbolKind int

const (
	VariableSymbol SymbolKind = iota
	FunctionSymbol
	TypeSymbol
	TemplateSymbol
	TypestateSymbol
	NamespaceSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case VariableSymbol:
		return "variable"
	case FunctionSymbol:
		return "function"
	case TypeSymbol:
		return "type"
	case TemplateSymbol:
		return "template"
	case TypestateSymbol:
		return "typestate"
	case NamespaceSymbol:
		return "namespace"
	}
	return "unknown"
}

// Symbol binds a name to a declaration. Type starts as a Pending
// placeholder for forward references and is filled in by the resolver
// stages; a symbol is immutable once resolved.
type Symbol struct {
	Name      string
	Qualified string // unit-qualified name, e.g. "billing.Invoice"
	Kind      SymbolKind
	Type      typesystem.Type
	Effects   typesystem.EffectSet // declared effect set for functions
	Decl      *ast.Decl
	IsPending bool
	IsBuiltin bool
}

// Sentinel errors for the three symbol-stage failures. Stages wrap
// these into positioned diagnostics.
var (
	ErrDuplicateSymbol  = errors.New("duplicate symbol")
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
	ErrAmbiguousImport  = errors.New("ambiguous import")
)

// DuplicateError reports a name already bound in the same scope.
type DuplicateError struct {
	Name string
	Prev *Symbol
	New  *Symbol
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %q is already declared in this scope", ErrDuplicateSymbol, e.Name)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateSymbol }

// UnresolvedError reports a name with no binding in any enclosing
// scope or imported namespace.
type UnresolvedError struct {
	Name string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %q is not declared in this scope or any enclosing scope", ErrUnresolvedSymbol, e.Name)
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolvedSymbol }

// AmbiguousError reports a name imported from multiple sources with
// incompatible targets.
type AmbiguousError struct {
	Name    string
	Sources []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s: %q is imported from multiple incompatible sources %v", ErrAmbiguousImport, e.Name, e.Sources)
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguousImport }
