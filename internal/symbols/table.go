package symbols

import (
	"strings"

	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/typesystem"
)

// Table is the symbol and scope table for one compilation unit. The
// builtin scope is shared; everything else is owned by the unit.
type Table struct {
	Builtin  *Scope
	Global   *Scope
	Unit     string
	declared []*Symbol // ingestion order, stable across resolver passes

	// nsScopes maps namespace declarations to their scopes so dotted
	// references can resolve into them.
	nsScopes map[string]*Scope

	// owners maps each declared symbol's qualified name to the scope
	// it was declared in, for resolver passes that re-enter the
	// declaration site.
	owners map[string]*Scope

	// index is the shared cross-unit symbol index, consulted when a
	// dotted name matches no import alias or local namespace.
	index *Index
}

// NewTable creates a table for a unit on top of a shared builtin scope.
func NewTable(unit string, builtin *Scope) *Table {
	if builtin == nil {
		builtin = NewScope(ScopeBuiltin, "", nil)
	}
	return &Table{
		Builtin:  builtin,
		Global:   NewScope(ScopeGlobal, unit, builtin),
		Unit:     unit,
		nsScopes: make(map[string]*Scope),
		owners:   make(map[string]*Scope),
	}
}

// Ingest declares every entity of the unit, namespaces included,
// binding each to a pending symbol. Duplicate bindings are collected
// rather than aborting so one pass surfaces every collision.
func (t *Table) Ingest(unit *ast.Unit) []error {
	var errs []error
	for _, d := range unit.Decls {
		errs = append(errs, t.ingestDecl(d, t.Global, t.Unit)...)
	}
	return errs
}

func (t *Table) ingestDecl(d *ast.Decl, scope *Scope, prefix string) []error {
	var errs []error
	qualified := prefix + "." + d.Name
	sym := &Symbol{
		Name:      d.Name,
		Qualified: qualified,
		Kind:      kindFor(d),
		Type:      typesystem.Pending{Name: qualified},
		Decl:      d,
		IsPending: true,
	}
	if err := scope.Declare(d.Name, sym); err != nil {
		errs = append(errs, err)
		return errs
	}
	t.declared = append(t.declared, sym)
	t.owners[qualified] = scope

	if d.Kind == ast.NamespaceDecl {
		child := NewScope(ScopeNamespace, d.Name, scope)
		t.nsScopes[qualified] = child
		for _, m := range d.Members {
			errs = append(errs, t.ingestDecl(m, child, qualified)...)
		}
	}
	return errs
}

func kindFor(d *ast.Decl) SymbolKind {
	switch d.Kind {
	case ast.FuncDecl:
		return FunctionSymbol
	case ast.TypeDecl:
		return TypeSymbol
	case ast.TemplateDecl:
		return TemplateSymbol
	case ast.TypestateDecl:
		return TypestateSymbol
	case ast.NamespaceDecl:
		return NamespaceSymbol
	}
	return VariableSymbol
}

// Declared returns every symbol of the unit in ingestion order. The
// fixed-point resolver iterates this slice by stable index.
func (t *Table) Declared() []*Symbol {
	return t.declared
}

// Owner returns the scope a symbol was declared in.
func (t *Table) Owner(qualified string) (*Scope, bool) {
	s, ok := t.owners[qualified]
	return s, ok
}

// NamespaceScope returns the scope of a namespace by qualified name.
func (t *Table) NamespaceScope(qualified string) (*Scope, bool) {
	s, ok := t.nsScopes[qualified]
	return s, ok
}

// SetIndex links the shared cross-unit index built during ingestion.
func (t *Table) SetIndex(i *Index) { t.index = i }

// Resolve resolves a possibly dotted name from the given scope. Plain
// names walk enclosing scopes then imports; dotted names resolve the
// head as an import alias or namespace, then the tail within it, and
// finally fall back to the cross-unit index by qualified name.
func (t *Table) Resolve(name string, from *Scope) (*Symbol, error) {
	if !strings.Contains(name, ".") {
		return from.Resolve(name)
	}
	head, tail, _ := strings.Cut(name, ".")
	if target, ok := from.resolveAlias(head); ok {
		if sym, found := target.Local(tail); found {
			return sym, nil
		}
		return nil, &UnresolvedError{Name: name}
	}
	if headSym, err := from.Resolve(head); err == nil && headSym.Kind == NamespaceSymbol {
		if ns, ok := t.nsScopes[headSym.Qualified]; ok {
			if sym, found := ns.Local(tail); found {
				return sym, nil
			}
		}
	}
	if t.index != nil {
		if sym, ok := t.index.Lookup(name); ok {
			return sym, nil
		}
	}
	return nil, &UnresolvedError{Name: name}
}

// Index is the global symbol index built in the serial ingestion
// pass. Signature resolution also runs serially, so by the time
// parallel unit workers read the index no symbol is written again.
type Index struct {
	byQualified map[string]*Symbol
}

func NewIndex() *Index {
	return &Index{byQualified: make(map[string]*Symbol)}
}

// AddUnit registers every declared symbol of a unit table. Called only
// during serial ingestion; the index is read-only afterwards.
func (i *Index) AddUnit(t *Table) {
	for _, sym := range t.declared {
		i.byQualified[sym.Qualified] = sym
	}
}

// Lookup finds a symbol by fully qualified name.
func (i *Index) Lookup(qualified string) (*Symbol, bool) {
	sym, ok := i.byQualified[qualified]
	return sym, ok
}
