package analyzer

import (
	"math/big"
	"strings"

	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/token"
	"github.com/assure-lang/assure/internal/typesystem"
)

// ResolveType resolves a type expression against a scope. Resolution
// is idempotent: resolving the produced type again yields an equal
// type. Unresolvable parts come back as Pending so the fixed-point
// driver can retry on a later pass.
func (a *Analyzer) ResolveType(te ast.TypeExpr, scope *symbols.Scope) typesystem.Type {
	switch t := te.(type) {
	case *ast.NamedType:
		return a.resolveNamed(t, scope)
	case *ast.ConstrainedType:
		return a.resolveConstrained(t, scope)
	case *ast.ArrayType:
		return typesystem.Array{Elem: a.ResolveType(t.Elem, scope)}
	case *ast.MapType:
		return typesystem.Map{
			Key:   a.ResolveType(t.Key, scope),
			Value: a.ResolveType(t.Value, scope),
		}
	case *ast.TupleType:
		elems := make([]typesystem.Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = a.ResolveType(e, scope)
		}
		return typesystem.Tuple{Elems: elems}
	case *ast.RecordType:
		fields := make([]typesystem.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = typesystem.Field{
				Name:     f.Name,
				Type:     a.ResolveType(f.Type, scope),
				Optional: f.Optional,
			}
		}
		return typesystem.Record{Fields: fields}
	case *ast.UnionType:
		alts := make([]typesystem.Type, len(t.Alts))
		for i, alt := range t.Alts {
			alts[i] = a.ResolveType(alt, scope)
		}
		return typesystem.Union{Alts: alts}
	case *ast.IntersectionType:
		reqs := make([]typesystem.Type, len(t.Reqs))
		for i, r := range t.Reqs {
			reqs[i] = a.ResolveType(r, scope)
		}
		return typesystem.Intersection{Reqs: reqs}
	case *ast.GenericInst:
		return a.resolveGenericInst(t, scope)
	case *ast.DependentArrayType:
		return a.resolveDepArray(t, scope)
	case *ast.FuncTypeExpr:
		params := make([]typesystem.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = a.ResolveType(p, scope)
		}
		ret := typesystem.Type(typesystem.Prim{Name: config.NilTypeName})
		if t.Return != nil {
			ret = a.ResolveType(t.Return, scope)
		}
		return typesystem.Func{
			Params:  params,
			Return:  ret,
			Effects: typesystem.NewEffectSet(t.Effects...),
		}
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, te.GetToken(),
		"unsupported type expression"))
	return typesystem.Prim{Name: config.NilTypeName}
}

func (a *Analyzer) resolveNamed(t *ast.NamedType, scope *symbols.Scope) typesystem.Type {
	// A dotted name may reference a state of a typestate interface:
	// Connection.Disconnected.
	if head, tail, dotted := strings.Cut(t.Name, "."); dotted {
		if sym, err := a.table.Resolve(head, scope); err == nil && sym.Kind == symbols.TypestateSymbol {
			if sym.Decl.Typestate.State(tail) == nil {
				a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, t.GetToken(),
					"typestate %s has no state %s", head, tail))
				return typesystem.Prim{Name: config.NilTypeName}
			}
			return typesystem.State{Owner: head, Name: tail}
		}
	}

	sym, err := a.table.Resolve(t.Name, scope)
	if err != nil {
		a.bag.Add(symbolDiagnostic(err, t.GetToken()))
		return typesystem.Prim{Name: config.NilTypeName}
	}
	if sym.IsPending {
		return typesystem.Pending{Name: sym.Qualified}
	}
	switch sym.Kind {
	case symbols.TypeSymbol, symbols.TypestateSymbol:
		return sym.Type
	case symbols.TemplateSymbol:
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, t.GetToken(),
			"template %s must be instantiated with type arguments", t.Name))
	default:
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, t.GetToken(),
			"%s is a %s, not a type", t.Name, sym.Kind))
	}
	return typesystem.Prim{Name: config.NilTypeName}
}

// resolveConstrained builds the executable guard of a constrained
// primitive and validates the predicate against the base domain.
func (a *Analyzer) resolveConstrained(t *ast.ConstrainedType, scope *symbols.Scope) typesystem.Type {
	base := a.ResolveType(t.Base, scope)
	if typesystem.ContainsPending(base) {
		return typesystem.Pending{Name: base.String()}
	}
	basePrim, ok := typesystem.BaseOf(base).(typesystem.Prim)
	if !ok {
		a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, t.GetToken(),
			"constraints apply to primitive types, not %s", base.String()))
		return base
	}

	var pred *typesystem.Predicate
	switch {
	case t.Range != nil:
		if !typesystem.IsNumeric(basePrim) {
			a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, t.GetToken(),
				"range constraint on non-numeric base type %s", basePrim.Name))
			return base
		}
		lo := a.foldBound(t.Range.Lo, scope, t)
		hi := a.foldBound(t.Range.Hi, scope, t)
		pred = typesystem.NewRange(lo, hi)
	case t.Pattern != "":
		if basePrim.Name != config.StringTypeName {
			a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, t.GetToken(),
				"pattern constraint on non-string base type %s", basePrim.Name))
			return base
		}
		p, err := typesystem.NewPattern(t.Pattern)
		if err != nil {
			a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, t.GetToken(),
				"%v", err))
			return base
		}
		pred = p
	case len(t.Enum) > 0:
		vals := make([]typesystem.EnumVal, 0, len(t.Enum))
		for _, e := range t.Enum {
			c, ok := Fold(e, a.constEnv(scope))
			if !ok {
				a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, e.GetToken(),
					"enumerated constraint values must be constants"))
				continue
			}
			switch c.Kind {
			case ConstStr:
				if basePrim.Name != config.StringTypeName {
					a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, e.GetToken(),
						"string value in enumeration over %s", basePrim.Name))
					continue
				}
				vals = append(vals, typesystem.EnumVal{IsStr: true, Str: c.Str})
			case ConstNum:
				if !typesystem.IsNumeric(basePrim) {
					a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, e.GetToken(),
						"numeric value in enumeration over %s", basePrim.Name))
					continue
				}
				vals = append(vals, typesystem.EnumVal{Num: c.Num})
			default:
				a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, e.GetToken(),
					"unsupported enumeration value"))
			}
		}
		pred = typesystem.NewEnum(vals)
	default:
		a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, t.GetToken(),
			"constrained type carries no predicate"))
		return base
	}
	return typesystem.Constrained{Base: base, Pred: pred}
}

func (a *Analyzer) foldBound(e ast.Expr, scope *symbols.Scope, t *ast.ConstrainedType) *big.Rat {
	if e == nil {
		return nil
	}
	c, ok := Fold(e, a.constEnv(scope))
	if !ok || c.Kind != ConstNum {
		a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, e.GetToken(),
			"range bounds must be numeric constants"))
		return nil
	}
	return c.Num
}

func (a *Analyzer) resolveGenericInst(t *ast.GenericInst, scope *symbols.Scope) typesystem.Type {
	args := make([]typesystem.Type, len(t.Args))
	for i, arg := range t.Args {
		args[i] = a.ResolveType(arg, scope)
	}

	// Builtin generic containers.
	switch t.Name {
	case "Array", "List":
		if len(args) == 1 {
			return typesystem.Array{Elem: args[0]}
		}
	case "Map":
		if len(args) == 2 {
			return typesystem.Map{Key: args[0], Value: args[1]}
		}
	}

	sym, err := a.table.Resolve(t.Name, scope)
	if err != nil {
		a.bag.Add(symbolDiagnostic(err, t.GetToken()))
		return typesystem.Prim{Name: config.NilTypeName}
	}
	if sym.IsPending {
		return typesystem.Pending{Name: sym.Qualified}
	}
	for _, arg := range args {
		if typesystem.ContainsPending(arg) {
			return typesystem.Pending{Name: sym.Qualified}
		}
	}

	switch sym.Kind {
	case symbols.TypeSymbol:
		return a.instantiateType(t, sym, args)
	case symbols.TemplateSymbol:
		a.CheckTypeParamConstraints(t.GetToken(), sym.Decl.Template.TypeParams, args)
		return typesystem.Inst{Name: sym.Decl.Name, Args: args}
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, t.GetToken(),
		"%s is not a generic type or template", t.Name))
	return typesystem.Prim{Name: config.NilTypeName}
}

// instantiateType substitutes type arguments structurally into a
// generic type declaration and rechecks its parameter constraints.
func (a *Analyzer) instantiateType(t *ast.GenericInst, sym *symbols.Symbol, args []typesystem.Type) typesystem.Type {
	tps := sym.Decl.TypeParams
	if len(tps) != len(args) {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, t.GetToken(),
			"%s expects %d type arguments, got %d", t.Name, len(tps), len(args)))
		return typesystem.Prim{Name: config.NilTypeName}
	}
	if len(tps) == 0 {
		return sym.Type
	}
	a.CheckTypeParamConstraints(t.GetToken(), tps, args)
	subst := make(typesystem.Subst, len(tps))
	for i, tp := range tps {
		subst[tp.Name] = args[i]
	}
	return sym.Type.Apply(subst)
}

// CheckTypeParamConstraints rechecks @requires(T has property ...)
// and interface bounds against concrete arguments, failing with
// ConstraintViolation naming the unmet requirement.
func (a *Analyzer) CheckTypeParamConstraints(tok token.Token, tps []*ast.TypeParam, args []typesystem.Type) {
	for i, tp := range tps {
		if i >= len(args) {
			return
		}
		arg := args[i]
		for _, propName := range tp.HasProperties {
			if !typeHasProperty(arg, propName) {
				a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, tok,
					"type argument %s for %s does not have property %q",
					arg.String(), tp.Name, propName))
			}
		}
		if tp.Bound != nil {
			iface, ok := a.ResolveType(tp.Bound, a.table.Global).(typesystem.Record)
			if !ok {
				continue
			}
			if satisfied, missing := a.conformance.Satisfies(arg, iface); !satisfied {
				a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, tok,
					"type argument %s for %s does not satisfy its bound: missing member %q",
					arg.String(), tp.Name, missing))
			}
		}
	}
}

func typeHasProperty(t typesystem.Type, name string) bool {
	switch tt := t.(type) {
	case typesystem.Record:
		_, ok := tt.Field(name)
		return ok
	case typesystem.Constrained:
		return typeHasProperty(tt.Base, name)
	case typesystem.Intersection:
		for _, r := range tt.Reqs {
			if typeHasProperty(r, name) {
				return true
			}
		}
	}
	return false
}

// resolveDepArray evaluates the length expression symbolically when
// it is a literal constant. Non-constant lengths degrade to a
// runtime-checked obligation rather than a static one.
func (a *Analyzer) resolveDepArray(t *ast.DependentArrayType, scope *symbols.Scope) typesystem.Type {
	elem := a.ResolveType(t.Elem, scope)
	if c, ok := Fold(t.Length, a.constEnv(scope)); ok && c.Kind == ConstNum && c.Num.IsInt() {
		n := c.Num.Num().Int64()
		if n < 0 {
			a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, t.GetToken(),
				"dependent array length must be non-negative, got %d", n))
		}
		return typesystem.DepArray{Elem: elem, Length: typesystem.Length{Known: true, N: n}}
	}
	sym := "n"
	if id, ok := t.Length.(*ast.Ident); ok {
		sym = id.Name
	}
	length := typesystem.Length{Sym: sym}
	a.appendGuard(&Guard{
		Token:   t.GetToken(),
		Decl:    a.currentDecl,
		Kind:    GuardLength,
		Length:  length,
		Expr:    t.Length,
		Message: "array length " + sym + " is not statically known",
	})
	return typesystem.DepArray{Elem: elem, Length: length}
}

// constEnv resolves names to statically known constants through the
// scope chain. It folds variable initializers on demand, guarding
// against cyclic definitions.
func (a *Analyzer) constEnv(scope *symbols.Scope) ConstEnv {
	visiting := make(map[string]bool)
	var env ConstEnv
	env = func(name string) (Const, bool) {
		if visiting[name] {
			return Const{}, false
		}
		sym, err := a.table.Resolve(name, scope)
		if err != nil || sym.Kind != symbols.VariableSymbol || sym.Decl == nil || sym.Decl.Value == nil {
			return Const{}, false
		}
		visiting[name] = true
		defer delete(visiting, name)
		return Fold(sym.Decl.Value, env)
	}
	return env
}
