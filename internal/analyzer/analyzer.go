package analyzer

import (
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/token"
	"github.com/assure-lang/assure/internal/typesystem"
)

// Analyzer is the type and constraint resolver for one compilation
// unit. It fills in symbol types by repeated relaxation passes over
// the declaration list until a fixed point, then checks bodies.
type Analyzer struct {
	table       *symbols.Table
	conformance *typesystem.Conformance
	bag         *diagnostics.Bag

	// TypeMap stores the resolved type of every expression node, for
	// the later effect, typestate, and contract stages.
	TypeMap map[ast.Node]typesystem.Type

	// CallTargets maps call expressions to the symbol they invoke,
	// when the callee is a named function. The effect checker
	// propagates declared effect sets through this map.
	CallTargets map[*ast.CallExpr]*symbols.Symbol

	// Guards are runtime obligations produced when a constraint
	// cannot be discharged statically (unknown value against a
	// constrained type, symbolic dependent-array length).
	Guards []*Guard

	// funcScopes maps function declarations to their parameter scope
	// so later stages can re-resolve names inside bodies.
	funcScopes map[*ast.Decl]*symbols.Scope

	// stateMisses marks member accesses that named a method absent
	// from the receiver's current state. The typestate checker owns
	// that diagnostic; the call checker stays quiet for these.
	stateMisses map[*ast.MemberExpr]bool

	currentDecl string // qualified name, for diagnostics and guards
	changed     bool
}

// GuardKind classifies a runtime obligation produced by the resolver.
type GuardKind int

const (
	GuardConstraint GuardKind = iota // constrained-type predicate on a non-constant value
	GuardLength                      // dependent-array length not statically known
)

// Guard is a runtime check the resolver could not discharge
// statically. The verification compiler lowers guards into checked
// obligations at the enclosing boundary.
type Guard struct {
	Token   token.Token
	Decl    string // qualified name of the enclosing declaration
	Kind    GuardKind
	Pred    *typesystem.Predicate // for GuardConstraint
	Length  typesystem.Length     // for GuardLength
	Expr    ast.Expr              // the guarded value expression
	Message string
}

// appendGuard records a runtime obligation once per site: signature
// types are re-resolved by later passes and body checks, and the same
// guard must not be lowered twice.
func (a *Analyzer) appendGuard(g *Guard) {
	for _, prev := range a.Guards {
		if prev.Kind == g.Kind && prev.Token == g.Token {
			return
		}
	}
	a.Guards = append(a.Guards, g)
}

// New creates an analyzer over an ingested symbol table.
func New(table *symbols.Table, bag *diagnostics.Bag) *Analyzer {
	return &Analyzer{
		table:       table,
		conformance: typesystem.NewConformance(),
		bag:         bag,
		TypeMap:     make(map[ast.Node]typesystem.Type),
		CallTargets: make(map[*ast.CallExpr]*symbols.Symbol),
		funcScopes:  make(map[*ast.Decl]*symbols.Scope),
		stateMisses: make(map[*ast.MemberExpr]bool),
	}
}

// Resolve runs signature resolution to a fixed point, then checks
// every function body. It reports true when the unit has no fatal
// type-stage diagnostics.
func (a *Analyzer) Resolve(unit *ast.Unit) bool {
	a.resolveSignatures()
	if a.bag.HasErrors() {
		return false
	}
	a.CheckBodies()
	return !a.bag.HasErrors()
}

// resolveSignatures relaxes declared types over the arena of symbols
// until no pass changes anything. Mutually recursive declarations see
// each other as Pending placeholders until their cycle resolves; a
// cycle that survives the iteration cap is UnresolvedRecursion.
func (a *Analyzer) resolveSignatures() {
	for pass := 0; pass < config.FixpointIterationCap; pass++ {
		if !a.SignaturePass() {
			break
		}
	}
	a.ReportUnresolved()
}

// SignaturePass runs one relaxation sweep over the unit's pending
// symbols and reports whether any symbol resolved. The cross-unit
// runner interleaves sweeps over every unit so declarations may
// reference other units regardless of ingestion order.
func (a *Analyzer) SignaturePass() bool {
	a.changed = false
	for _, sym := range a.table.Declared() {
		if !sym.IsPending {
			continue
		}
		a.resolveSymbol(sym)
	}
	return a.changed
}

// ReportUnresolved flags every symbol still pending after relaxation
// stopped.
func (a *Analyzer) ReportUnresolved() {
	for _, sym := range a.table.Declared() {
		if sym.IsPending {
			a.bag.Add(diagnostics.NewError(
				diagnostics.UnresolvedRecursion,
				sym.Decl.GetToken(),
				"declaration %s never converged to a concrete type; break the cycle with an explicit annotation",
				sym.Qualified,
			))
		}
	}
}

// resolveSymbol attempts to compute a concrete type for one symbol.
// It leaves the symbol pending when the result still references
// in-progress declarations.
func (a *Analyzer) resolveSymbol(sym *symbols.Symbol) {
	scope, ok := a.table.Owner(sym.Qualified)
	if !ok {
		scope = a.table.Global
	}
	a.currentDecl = sym.Qualified

	var t typesystem.Type
	switch sym.Decl.Kind {
	case ast.VarDecl:
		t = a.resolveVar(sym.Decl, scope)
	case ast.FuncDecl:
		t = a.resolveFuncSignature(sym.Decl, scope)
	case ast.TypeDecl:
		t = a.resolveTypeDecl(sym.Decl, scope)
	case ast.TemplateDecl:
		t = a.resolveTemplateInterface(sym.Decl, scope)
	case ast.TypestateDecl:
		ts := sym.Decl.Typestate
		initial := ts.Initial
		if initial == "" && len(ts.States) > 0 {
			initial = ts.States[0].Name
		}
		t = typesystem.State{Owner: sym.Decl.Name, Name: initial}
	case ast.NamespaceDecl:
		sym.IsPending = false
		return
	}

	if t == nil || typesystem.ContainsPending(t) {
		return
	}
	sym.Type = t
	sym.IsPending = false
	if f, ok := t.(typesystem.Func); ok {
		sym.Effects = f.Effects
	}
	a.changed = true
}

func (a *Analyzer) resolveVar(d *ast.Decl, scope *symbols.Scope) typesystem.Type {
	if d.Type != nil {
		return a.ResolveType(d.Type, scope)
	}
	if d.Value != nil {
		return a.inferExpr(d.Value, scope)
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, d.GetToken(),
		"variable %s has neither a declared type nor an initializer", d.Name))
	return typesystem.Prim{Name: config.NilTypeName}
}

// resolveFuncSignature builds the function type from declared
// parameter types, the declared return type, and effect annotations.
// Bodies are not consulted: callees contribute their declared sets,
// never an inferred closure.
func (a *Analyzer) resolveFuncSignature(d *ast.Decl, scope *symbols.Scope) typesystem.Type {
	params := make([]typesystem.Type, len(d.Params))
	for i, p := range d.Params {
		if p.Type == nil {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, p.GetToken(),
				"parameter %s of %s has no declared type", p.Name, d.Name))
			params[i] = typesystem.Prim{Name: config.NilTypeName}
			continue
		}
		params[i] = a.ResolveType(p.Type, scope)
	}
	ret := typesystem.Type(typesystem.Prim{Name: config.NilTypeName})
	if d.Type != nil {
		ret = a.ResolveType(d.Type, scope)
	}
	return typesystem.Func{
		Params:  params,
		Return:  ret,
		Effects: DeclaredEffects(d),
	}
}

func (a *Analyzer) resolveTypeDecl(d *ast.Decl, scope *symbols.Scope) typesystem.Type {
	declScope := scope
	if len(d.TypeParams) > 0 {
		declScope = symbols.NewScope(symbols.ScopeBlock, d.Name, scope)
		for _, tp := range d.TypeParams {
			param := typesystem.Param{Name: tp.Name, HasProperties: tp.HasProperties}
			if tp.Bound != nil {
				param.Bound = a.ResolveType(tp.Bound, scope)
			}
			_ = declScope.Declare(tp.Name, &symbols.Symbol{
				Name: tp.Name, Qualified: tp.Name,
				Kind: symbols.TypeSymbol, Type: param,
			})
		}
	}
	if d.Type == nil {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, d.GetToken(),
			"type %s has no definition", d.Name))
		return typesystem.Prim{Name: config.NilTypeName}
	}
	return a.ResolveType(d.Type, declScope)
}

// resolveTemplateInterface models the template's required operations
// as a record of function-typed members, with type parameters left
// abstract. Instantiation substitutes them later.
func (a *Analyzer) resolveTemplateInterface(d *ast.Decl, scope *symbols.Scope) typesystem.Type {
	spec := d.Template
	declScope := symbols.NewScope(symbols.ScopeBlock, d.Name, scope)
	for _, tp := range spec.TypeParams {
		param := typesystem.Param{Name: tp.Name, HasProperties: tp.HasProperties}
		if tp.Bound != nil {
			param.Bound = a.ResolveType(tp.Bound, scope)
		}
		_ = declScope.Declare(tp.Name, &symbols.Symbol{
			Name: tp.Name, Qualified: tp.Name,
			Kind: symbols.TypeSymbol, Type: param,
		})
	}
	fields := make([]typesystem.Field, 0, len(spec.Required))
	for _, op := range spec.Required {
		params := make([]typesystem.Type, len(op.Params))
		for i, p := range op.Params {
			params[i] = a.ResolveType(p, declScope)
		}
		ret := typesystem.Type(typesystem.Prim{Name: config.NilTypeName})
		if op.Return != nil {
			ret = a.ResolveType(op.Return, declScope)
		}
		fields = append(fields, typesystem.Field{
			Name: op.Name,
			Type: typesystem.Func{
				Params:  params,
				Return:  ret,
				Effects: typesystem.NewEffectSet(op.Effects...),
			},
		})
	}
	return typesystem.Record{Fields: fields}
}

// DeclaredEffects reads @pure/@effects annotations into an effect set.
// @pure wins: a function cannot be both pure and effectful, and the
// effect checker reports the conflict when the observed set is not
// empty.
func DeclaredEffects(d *ast.Decl) typesystem.EffectSet {
	if d.Annotation(config.PureAnnotation) != nil {
		return typesystem.NewEffectSet()
	}
	set := typesystem.NewEffectSet()
	for _, ann := range d.AnnotationsNamed(config.EffectsAnnotation) {
		for _, arg := range ann.Args {
			if s, ok := arg.(*ast.StringLit); ok {
				set.Add(s.Value)
			}
		}
	}
	return set
}

// FuncScope returns the parameter scope built for a function body.
func (a *Analyzer) FuncScope(d *ast.Decl) (*symbols.Scope, bool) {
	s, ok := a.funcScopes[d]
	return s, ok
}

// Table exposes the unit's symbol table to later stages.
func (a *Analyzer) Table() *symbols.Table { return a.table }

// Conformance exposes the memoized interface-satisfaction table.
func (a *Analyzer) Conformance() *typesystem.Conformance { return a.conformance }
