package analyzer

import (
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/typesystem"
)

// CheckBodies type-checks every function body and var initializer in
// the unit, top-level declarations, namespace members, and type
// methods alike. Call it after signature resolution has converged.
func (a *Analyzer) CheckBodies() {
	for _, sym := range a.table.Declared() {
		a.checkDeclBody(sym.Decl, sym.Qualified)
	}
}

func (a *Analyzer) checkDeclBody(d *ast.Decl, qualified string) {
	a.currentDecl = qualified
	scope, ok := a.table.Owner(qualified)
	if !ok {
		scope = a.table.Global
	}

	switch d.Kind {
	case ast.VarDecl:
		if d.Type != nil && d.Value != nil {
			declared := a.ResolveType(d.Type, scope)
			a.checkAssignable(declared, d.Value, scope)
		}
	case ast.FuncDecl:
		a.checkFuncBody(d, qualified, scope, nil)
	case ast.TypeDecl:
		ownerSym, err := a.table.Resolve(d.Name, scope)
		var ownerType typesystem.Type
		if err == nil {
			ownerType = ownerSym.Type
		}
		for _, m := range d.Members {
			if m.Kind == ast.FuncDecl {
				a.currentDecl = qualified + "." + m.Name
				a.checkFuncBody(m, qualified+"."+m.Name, scope, ownerType)
			}
		}
	}
}

// checkFuncBody builds the parameter scope and walks the body.
// Methods additionally bind self to the owning type.
func (a *Analyzer) checkFuncBody(d *ast.Decl, qualified string, outer *symbols.Scope, receiver typesystem.Type) {
	fnScope := symbols.NewScope(symbols.ScopeFunction, d.Name, outer)
	if receiver != nil {
		_ = fnScope.Declare("self", &symbols.Symbol{
			Name: "self", Qualified: qualified + ".self",
			Kind: symbols.VariableSymbol, Type: receiver,
		})
	}
	for _, p := range d.Params {
		var pt typesystem.Type = typesystem.Prim{Name: config.NilTypeName}
		if p.Type != nil {
			pt = a.ResolveType(p.Type, outer)
		}
		if err := fnScope.Declare(p.Name, &symbols.Symbol{
			Name: p.Name, Qualified: qualified + "." + p.Name,
			Kind: symbols.VariableSymbol, Type: pt,
		}); err != nil {
			a.bag.Add(symbolDiagnostic(err, p.GetToken()))
		}
	}
	a.funcScopes[d] = fnScope

	if d.Body == nil {
		return
	}
	ret := typesystem.Type(typesystem.Prim{Name: config.NilTypeName})
	if d.Type != nil {
		ret = a.ResolveType(d.Type, outer)
	}
	a.walkBlock(d.Body, fnScope, ret)
}

func (a *Analyzer) walkBlock(b *ast.BlockStmt, scope *symbols.Scope, ret typesystem.Type) {
	block := symbols.NewScope(symbols.ScopeBlock, "", scope)
	for _, stmt := range b.Stmts {
		a.walkStmt(stmt, block, ret)
	}
}

func (a *Analyzer) walkStmt(s ast.Stmt, scope *symbols.Scope, ret typesystem.Type) {
	switch st := s.(type) {
	case *ast.LetStmt:
		var t typesystem.Type
		if st.Type != nil {
			t = a.ResolveType(st.Type, scope)
			if st.Value != nil {
				a.checkAssignable(t, st.Value, scope)
			}
		} else if st.Value != nil {
			t = a.inferExpr(st.Value, scope)
		} else {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, st.GetToken(),
				"binding %s has neither a type nor a value", st.Name))
			t = typesystem.Prim{Name: config.NilTypeName}
		}
		a.TypeMap[st] = t
		if err := scope.Declare(st.Name, &symbols.Symbol{
			Name: st.Name, Qualified: a.currentDecl + "." + st.Name,
			Kind: symbols.VariableSymbol, Type: t,
		}); err != nil {
			a.bag.Add(symbolDiagnostic(err, st.GetToken()))
		}
	case *ast.AssignStmt:
		target := a.inferExpr(st.Target, scope)
		a.checkAssignable(target, st.Value, scope)
	case *ast.ReturnStmt:
		if st.Value == nil {
			return
		}
		a.checkAssignable(ret, st.Value, scope)
	case *ast.ExprStmt:
		a.inferExpr(st.Expr, scope)
	case *ast.IfStmt:
		a.requireBool(st.Cond, scope)
		a.walkBlock(st.Then, scope, ret)
		if st.Else != nil {
			a.walkBlock(st.Else, scope, ret)
		}
	case *ast.LoopStmt:
		if st.Cond != nil {
			a.requireBool(st.Cond, scope)
		}
		a.walkBlock(st.Body, scope, ret)
	case *ast.IsolateStmt:
		// Effect legality inside the block is the effect checker's
		// concern; types are checked as usual.
		a.walkBlock(st.Body, scope, ret)
	case *ast.BlockStmt:
		a.walkBlock(st, scope, ret)
	}
}

func (a *Analyzer) requireBool(e ast.Expr, scope *symbols.Scope) {
	t := a.inferExpr(e, scope)
	if typesystem.ContainsPending(t) {
		return
	}
	boolT := typesystem.Prim{Name: config.BoolTypeName}
	if !typesystem.Compatible(boolT, t) {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
			"condition must be Bool, got %s", t.String()))
	}
}

// inferExpr computes and records the type of an expression.
func (a *Analyzer) inferExpr(e ast.Expr, scope *symbols.Scope) typesystem.Type {
	t := a.inferExprUncached(e, scope)
	a.TypeMap[e] = t
	return t
}

func (a *Analyzer) inferExprUncached(e ast.Expr, scope *symbols.Scope) typesystem.Type {
	switch ex := e.(type) {
	case *ast.IntLit:
		return typesystem.Prim{Name: config.IntTypeName}
	case *ast.FloatLit:
		return typesystem.Prim{Name: config.FloatTypeName}
	case *ast.DecimalLit:
		return typesystem.Prim{Name: config.DecimalTypeName}
	case *ast.StringLit:
		return typesystem.Prim{Name: config.StringTypeName}
	case *ast.BoolLit:
		return typesystem.Prim{Name: config.BoolTypeName}
	case *ast.NilLit:
		return typesystem.Prim{Name: config.NilTypeName}
	case *ast.Ident:
		sym, err := a.table.Resolve(ex.Name, scope)
		if err != nil {
			a.bag.Add(symbolDiagnostic(err, ex.GetToken()))
			return typesystem.Prim{Name: config.NilTypeName}
		}
		if sym.IsPending {
			return typesystem.Pending{Name: sym.Qualified}
		}
		a.warnDeprecated(sym, ex.GetToken())
		return sym.Type
	case *ast.UnaryExpr:
		return a.inferUnary(ex, scope)
	case *ast.BinaryExpr:
		return a.inferBinary(ex, scope)
	case *ast.CallExpr:
		return a.inferCall(ex, scope)
	case *ast.MemberExpr:
		return a.inferMember(ex, scope)
	case *ast.IndexExpr:
		return a.inferIndex(ex, scope)
	case *ast.CondExpr:
		a.requireBool(ex.Cond, scope)
		thenT := a.inferExpr(ex.Then, scope)
		elseT := a.inferExpr(ex.Else, scope)
		if typesystem.Equal(thenT, elseT) {
			return thenT
		}
		return typesystem.Union{Alts: []typesystem.Type{thenT, elseT}}
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
		"unsupported expression"))
	return typesystem.Prim{Name: config.NilTypeName}
}

func (a *Analyzer) inferUnary(e *ast.UnaryExpr, scope *symbols.Scope) typesystem.Type {
	t := a.inferExpr(e.Operand, scope)
	if typesystem.ContainsPending(t) {
		return t
	}
	base := typesystem.BaseOf(t)
	switch e.Op {
	case "!":
		if !typesystem.Equal(base, typesystem.Prim{Name: config.BoolTypeName}) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
				"operator ! requires Bool, got %s", t.String()))
		}
		return typesystem.Prim{Name: config.BoolTypeName}
	case "-":
		if !typesystem.IsNumeric(base) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
				"operator - requires a numeric operand, got %s", t.String()))
			return typesystem.Prim{Name: config.IntTypeName}
		}
		return base
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
		"unknown unary operator %s", e.Op))
	return t
}

func (a *Analyzer) inferBinary(e *ast.BinaryExpr, scope *symbols.Scope) typesystem.Type {
	lt := a.inferExpr(e.Left, scope)
	rt := a.inferExpr(e.Right, scope)
	boolT := typesystem.Prim{Name: config.BoolTypeName}
	if typesystem.ContainsPending(lt) || typesystem.ContainsPending(rt) {
		switch e.Op {
		case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
			return boolT
		}
		return typesystem.Pending{Name: "binary"}
	}

	lb, rb := typesystem.BaseOf(lt), typesystem.BaseOf(rt)
	switch e.Op {
	case "&&", "||":
		if !typesystem.Equal(lb, boolT) || !typesystem.Equal(rb, boolT) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
				"operator %s requires Bool operands, got %s and %s", e.Op, lt.String(), rt.String()))
		}
		return boolT
	case "==", "!=":
		a.checkSameNumericClass(e, lb, rb)
		return boolT
	case "<", "<=", ">", ">=":
		a.checkSameNumericClass(e, lb, rb)
		return boolT
	case "+", "-", "*", "/", "%":
		if typesystem.Equal(lb, typesystem.Prim{Name: config.StringTypeName}) && e.Op == "+" {
			if !typesystem.Equal(rb, lb) {
				a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
					"operator + requires String operands, got %s and %s", lt.String(), rt.String()))
			}
			return lb
		}
		if !typesystem.IsNumeric(lb) || !typesystem.IsNumeric(rb) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
				"operator %s requires numeric operands, got %s and %s", e.Op, lt.String(), rt.String()))
			return typesystem.Prim{Name: config.IntTypeName}
		}
		a.checkSameNumericClass(e, lb, rb)
		return lb
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
		"unknown operator %s", e.Op))
	return typesystem.Prim{Name: config.NilTypeName}
}

// checkSameNumericClass enforces that Int, Float, and Decimal never
// mix without explicit conversion. No implicit narrowing or widening.
func (a *Analyzer) checkSameNumericClass(e *ast.BinaryExpr, lb, rb typesystem.Type) {
	if typesystem.IsNumeric(lb) && typesystem.IsNumeric(rb) && !typesystem.Equal(lb, rb) {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
			"cannot compare %s with %s: explicit conversion required", lb.String(), rb.String()))
	}
}

func (a *Analyzer) inferCall(e *ast.CallExpr, scope *symbols.Scope) typesystem.Type {
	var fnType typesystem.Type

	switch fn := e.Fn.(type) {
	case *ast.Ident:
		sym, err := a.table.Resolve(fn.Name, scope)
		if err != nil {
			a.bag.Add(symbolDiagnostic(err, fn.GetToken()))
			return typesystem.Prim{Name: config.NilTypeName}
		}
		if sym.IsPending {
			return typesystem.Pending{Name: sym.Qualified}
		}
		if sym.Kind == symbols.FunctionSymbol {
			a.CallTargets[e] = sym
		}
		a.warnDeprecated(sym, fn.GetToken())
		fnType = sym.Type
		a.TypeMap[fn] = fnType
	case *ast.MemberExpr:
		fnType = a.inferMember(fn, scope)
		a.TypeMap[fn] = fnType
		if a.stateMisses[fn] {
			for _, arg := range e.Args {
				a.inferExpr(arg, scope)
			}
			return typesystem.Prim{Name: config.NilTypeName}
		}
	default:
		fnType = a.inferExpr(e.Fn, scope)
	}

	if typesystem.ContainsPending(fnType) {
		return typesystem.Pending{Name: "call"}
	}

	ft, ok := fnType.(typesystem.Func)
	if !ok {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
			"cannot call a value of type %s", fnType.String()))
		return typesystem.Prim{Name: config.NilTypeName}
	}
	if len(e.Args) != len(ft.Params) {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
			"call expects %d arguments, got %d", len(ft.Params), len(e.Args)))
		return ft.Return
	}
	for i, arg := range e.Args {
		a.checkAssignable(ft.Params[i], arg, scope)
	}
	return ft.Return
}

// inferMember handles record field access, typestate method lookup,
// and namespace member references.
func (a *Analyzer) inferMember(e *ast.MemberExpr, scope *symbols.Scope) typesystem.Type {
	// Namespace-qualified reference: events.publish.
	if id, ok := e.Left.(*ast.Ident); ok {
		if sym, err := a.table.Resolve(id.Name+"."+e.Name, scope); err == nil {
			if sym.IsPending {
				return typesystem.Pending{Name: sym.Qualified}
			}
			return sym.Type
		}
	}

	leftT := a.inferExpr(e.Left, scope)
	if typesystem.ContainsPending(leftT) {
		return leftT
	}

	switch lt := leftT.(type) {
	case typesystem.Record:
		if f, ok := lt.Field(e.Name); ok {
			return f.Type
		}
	case typesystem.Constrained:
		if rec, ok := typesystem.BaseOf(lt).(typesystem.Record); ok {
			if f, found := rec.Field(e.Name); found {
				return f.Type
			}
		}
	case typesystem.State:
		return a.stateMethodType(e, lt, scope)
	case typesystem.Intersection:
		for _, r := range lt.Reqs {
			if rec, ok := r.(typesystem.Record); ok {
				if f, found := rec.Field(e.Name); found {
					return f.Type
				}
			}
		}
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
		"type %s has no member %s", leftT.String(), e.Name))
	return typesystem.Prim{Name: config.NilTypeName}
}

// stateMethodType resolves a state-local method. The returned function
// type's result is the declared return state, so sequential calls
// narrow along the happy path even before the flow checker runs.
// Calling a method not present in the current state is a resolution
// error reported by the typestate checker with full flow context, so
// here it only degrades to Nil.
func (a *Analyzer) stateMethodType(e *ast.MemberExpr, st typesystem.State, scope *symbols.Scope) typesystem.Type {
	ownerSym, err := a.table.Resolve(st.Owner, scope)
	if err != nil || ownerSym.Kind != symbols.TypestateSymbol {
		a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
			"unknown typestate %s", st.Owner))
		return typesystem.Prim{Name: config.NilTypeName}
	}
	stateSpec := ownerSym.Decl.Typestate.State(st.Name)
	if stateSpec == nil {
		a.stateMisses[e] = true
		return typesystem.Prim{Name: config.NilTypeName}
	}
	m := stateSpec.Method(e.Name)
	if m == nil {
		// Not callable in this state; the typestate checker reports
		// InvalidTransition with the tracked flow state.
		a.stateMisses[e] = true
		return typesystem.Prim{Name: config.NilTypeName}
	}
	params := make([]typesystem.Type, len(m.Params))
	for i, p := range m.Params {
		params[i] = a.ResolveType(p, scope)
	}
	next := st.Name
	if m.NextState != "" {
		next = m.NextState
	}
	var ret typesystem.Type = typesystem.State{Owner: st.Owner, Name: next}
	if m.NextState == "" && m.Return != nil {
		ret = a.ResolveType(m.Return, scope)
	}
	return typesystem.Func{Params: params, Return: ret, Effects: typesystem.NewEffectSet()}
}

func (a *Analyzer) inferIndex(e *ast.IndexExpr, scope *symbols.Scope) typesystem.Type {
	leftT := a.inferExpr(e.Left, scope)
	idxT := a.inferExpr(e.Index, scope)
	if typesystem.ContainsPending(leftT) {
		return leftT
	}
	intT := typesystem.Prim{Name: config.IntTypeName}
	switch lt := typesystem.BaseOf(leftT).(type) {
	case typesystem.Array:
		if !typesystem.ContainsPending(idxT) && !typesystem.Compatible(intT, idxT) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.Index.GetToken(),
				"array index must be Int, got %s", idxT.String()))
		}
		return lt.Elem
	case typesystem.DepArray:
		if !typesystem.ContainsPending(idxT) && !typesystem.Compatible(intT, idxT) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.Index.GetToken(),
				"array index must be Int, got %s", idxT.String()))
		}
		return lt.Elem
	case typesystem.Map:
		if !typesystem.ContainsPending(idxT) && !typesystem.Compatible(lt.Key, idxT) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.Index.GetToken(),
				"map key must be %s, got %s", lt.Key.String(), idxT.String()))
		}
		return lt.Value
	}
	a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, e.GetToken(),
		"type %s is not indexable", leftT.String()))
	return typesystem.Prim{Name: config.NilTypeName}
}

// checkAssignable verifies that the value expression may flow into the
// expected type. Constrained targets check statically known values
// against the guard immediately; unknown values produce a runtime
// guard obligation instead of a static error.
func (a *Analyzer) checkAssignable(expected typesystem.Type, value ast.Expr, scope *symbols.Scope) {
	actual := a.inferExpr(value, scope)
	if typesystem.ContainsPending(expected) || typesystem.ContainsPending(actual) {
		return
	}

	if ct, ok := expected.(typesystem.Constrained); ok {
		base := typesystem.BaseOf(ct)
		if !typesystem.Compatible(base, actual) {
			a.bag.Add(diagnostics.NewError(diagnostics.TypeMismatch, value.GetToken(),
				"expected %s, got %s", expected.String(), actual.String()))
			return
		}
		if c, known := Fold(value, a.constEnv(scope)); known {
			a.checkConstAgainstPredicate(c, ct, value)
			return
		}
		a.appendGuard(&Guard{
			Token:   value.GetToken(),
			Decl:    a.currentDecl,
			Kind:    GuardConstraint,
			Pred:    ct.Pred,
			Expr:    value,
			Message: "value must satisfy " + ct.Pred.String(),
		})
		return
	}

	if !typesystem.Compatible(expected, actual) {
		code := diagnostics.TypeMismatch
		msg := "expected %s, got %s"
		if typesystem.IsNumeric(typesystem.BaseOf(expected)) && typesystem.IsNumeric(typesystem.BaseOf(actual)) {
			msg = "expected %s, got %s: explicit conversion required"
		}
		a.bag.Add(diagnostics.NewError(code, value.GetToken(), msg,
			expected.String(), actual.String()))
	}
}

func (a *Analyzer) checkConstAgainstPredicate(c Const, ct typesystem.Constrained, value ast.Expr) {
	ok := false
	switch c.Kind {
	case ConstNum:
		ok = ct.Pred.CheckNumeric(c.Num)
	case ConstStr:
		ok = ct.Pred.CheckString(c.Str)
	}
	if !ok {
		a.bag.Add(diagnostics.NewError(diagnostics.ConstraintViolation, value.GetToken(),
			"value %s does not satisfy %s", constString(c), ct.Pred.String()))
	}
}

func constString(c Const) string {
	switch c.Kind {
	case ConstNum:
		return c.Num.RatString()
	case ConstStr:
		return "\"" + c.Str + "\""
	case ConstBool:
		if c.Bool {
			return "true"
		}
		return "false"
	}
	return "nil"
}
