package effects

import (
	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/typesystem"
)

// Checker verifies that every function's observed effect set is
// permitted by its declared set. The observed set is the union of the
// effects of primitive operations used directly in the body and the
// declared (not observed) sets of every callee.
type Checker struct {
	registry *Registry
	res      *analyzer.Analyzer
	bag      *diagnostics.Bag

	// Observed records the computed observed set per qualified
	// function name, for the validated output representation.
	Observed map[string]typesystem.EffectSet
}

func NewChecker(registry *Registry, res *analyzer.Analyzer, bag *diagnostics.Bag) *Checker {
	return &Checker{
		registry: registry,
		res:      res,
		bag:      bag,
		Observed: make(map[string]typesystem.EffectSet),
	}
}

// Check runs the effect stage over one unit. Contract purity is
// checked here too: @requires/@ensures/@invariant predicates must be
// pure expressions, while @verify bodies may be effectful.
func (c *Checker) Check(unit *ast.Unit) bool {
	for _, d := range unit.Decls {
		c.checkDecl(d, unit.Name+"."+d.Name)
	}
	return !c.bag.HasErrors()
}

func (c *Checker) checkDecl(d *ast.Decl, qualified string) {
	switch d.Kind {
	case ast.FuncDecl:
		c.checkFunc(d, qualified)
	case ast.NamespaceDecl:
		for _, m := range d.Members {
			c.checkDecl(m, qualified+"."+m.Name)
		}
	case ast.TypeDecl:
		for _, m := range d.Members {
			if m.Kind == ast.FuncDecl {
				c.checkFunc(m, qualified+"."+m.Name)
			}
		}
		for _, inv := range d.AnnotationsNamed(config.InvariantAnnotation) {
			c.checkContractPurity(inv, qualified)
		}
	}
}

func (c *Checker) checkFunc(d *ast.Decl, qualified string) {
	declared := analyzer.DeclaredEffects(d)
	for _, label := range declared.Labels() {
		if !c.registry.Known(label) {
			c.bag.Add(diagnostics.NewError(diagnostics.EffectViolation, d.GetToken(),
				"function %s declares unknown effect %q", d.Name, label))
		}
	}

	observed := typesystem.NewEffectSet()
	if d.Body != nil {
		c.walkBlock(d.Body, declared, nil, d, observed)
	}
	c.Observed[qualified] = observed

	for _, ann := range d.Annotations {
		switch ann.Name {
		case config.RequiresAnnotation, config.EnsuresAnnotation, config.InvariantAnnotation:
			c.checkContractPurity(ann, qualified)
		}
	}
}

// walkBlock accumulates observed effects. Inside an isolation block,
// operations are additionally checked against the block's effect;
// the enclosing function's declared set still applies.
func (c *Checker) walkBlock(b *ast.BlockStmt, declared typesystem.EffectSet, isolation typesystem.EffectSet, fn *ast.Decl, observed typesystem.EffectSet) {
	for _, s := range b.Stmts {
		c.walkStmt(s, declared, isolation, fn, observed)
	}
}

func (c *Checker) walkStmt(s ast.Stmt, declared, isolation typesystem.EffectSet, fn *ast.Decl, observed typesystem.EffectSet) {
	switch st := s.(type) {
	case *ast.ExprStmt:
		c.walkExpr(st.Expr, declared, isolation, fn, observed)
	case *ast.LetStmt:
		if st.Value != nil {
			c.walkExpr(st.Value, declared, isolation, fn, observed)
		}
	case *ast.AssignStmt:
		c.walkExpr(st.Target, declared, isolation, fn, observed)
		c.walkExpr(st.Value, declared, isolation, fn, observed)
	case *ast.ReturnStmt:
		if st.Value != nil {
			c.walkExpr(st.Value, declared, isolation, fn, observed)
		}
	case *ast.IfStmt:
		c.walkExpr(st.Cond, declared, isolation, fn, observed)
		c.walkBlock(st.Then, declared, isolation, fn, observed)
		if st.Else != nil {
			c.walkBlock(st.Else, declared, isolation, fn, observed)
		}
	case *ast.LoopStmt:
		if st.Cond != nil {
			c.walkExpr(st.Cond, declared, isolation, fn, observed)
		}
		c.walkBlock(st.Body, declared, isolation, fn, observed)
	case *ast.IsolateStmt:
		if !c.registry.Known(st.Effect) {
			c.bag.Add(diagnostics.NewError(diagnostics.EffectViolation, st.GetToken(),
				"isolation block declares unknown effect %q", st.Effect))
		}
		c.walkBlock(st.Body, declared, typesystem.NewEffectSet(st.Effect), fn, observed)
	case *ast.BlockStmt:
		c.walkBlock(st, declared, isolation, fn, observed)
	}
}

func (c *Checker) walkExpr(e ast.Expr, declared, isolation typesystem.EffectSet, fn *ast.Decl, observed typesystem.EffectSet) {
	switch ex := e.(type) {
	case *ast.CallExpr:
		c.checkCall(ex, declared, isolation, fn, observed)
		for _, arg := range ex.Args {
			c.walkExpr(arg, declared, isolation, fn, observed)
		}
	case *ast.UnaryExpr:
		c.walkExpr(ex.Operand, declared, isolation, fn, observed)
	case *ast.BinaryExpr:
		c.walkExpr(ex.Left, declared, isolation, fn, observed)
		c.walkExpr(ex.Right, declared, isolation, fn, observed)
	case *ast.MemberExpr:
		c.walkExpr(ex.Left, declared, isolation, fn, observed)
	case *ast.IndexExpr:
		c.walkExpr(ex.Left, declared, isolation, fn, observed)
		c.walkExpr(ex.Index, declared, isolation, fn, observed)
	case *ast.CondExpr:
		c.walkExpr(ex.Cond, declared, isolation, fn, observed)
		c.walkExpr(ex.Then, declared, isolation, fn, observed)
		c.walkExpr(ex.Else, declared, isolation, fn, observed)
	}
}

// checkCall charges the callee's declared effect set to the caller.
// Isolation narrows, never widens: a call inside an isolation block
// must satisfy both the block's effect and the declared set, so an
// isolated effectful call cannot slip past a @pure declaration.
func (c *Checker) checkCall(call *ast.CallExpr, declared, isolation typesystem.EffectSet, fn *ast.Decl, observed typesystem.EffectSet) {
	callee := c.calleeName(call)
	effects := c.calleeEffects(call)
	for _, label := range effects.Labels() {
		observed.Add(label)
		if isolation != nil && !c.registry.Permits(isolation, label) {
			c.bag.Add(diagnostics.NewError(diagnostics.EffectViolation, call.GetToken(),
				"call to %s performs %q inside an isolation block limited to %s",
				callee, label, isolation.String()))
			continue
		}
		if !c.registry.Permits(declared, label) {
			if fn.Annotation(config.PureAnnotation) != nil {
				c.bag.Add(diagnostics.NewError(diagnostics.EffectViolation, call.GetToken(),
					"@pure function %s calls %s which has effect %q", fn.Name, callee, label))
			} else {
				c.bag.Add(diagnostics.NewError(diagnostics.EffectViolation, call.GetToken(),
					"function %s calls %s with undeclared effect %q", fn.Name, callee, label))
			}
		}
	}
}

func (c *Checker) calleeEffects(call *ast.CallExpr) typesystem.EffectSet {
	if sym, ok := c.res.CallTargets[call]; ok {
		return sym.Effects
	}
	if t, ok := c.res.TypeMap[call.Fn]; ok {
		if f, isFunc := t.(typesystem.Func); isFunc {
			return f.Effects
		}
	}
	// Contract predicates are not visited by the type stage, so calls
	// inside them have no recorded target; resolve by name instead.
	if id, ok := call.Fn.(*ast.Ident); ok {
		table := c.res.Table()
		if sym, err := table.Resolve(id.Name, table.Global); err == nil {
			return sym.Effects
		}
	}
	return typesystem.NewEffectSet()
}

func (c *Checker) calleeName(call *ast.CallExpr) string {
	switch fn := call.Fn.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.MemberExpr:
		return fn.Name
	}
	return "anonymous function"
}

// checkContractPurity rejects effectful queries inside
// @requires/@ensures/@invariant predicates. Only @verify bodies may
// touch effectful operations.
func (c *Checker) checkContractPurity(ann *ast.Annotation, qualified string) {
	for _, arg := range ann.Args {
		c.checkPureExpr(arg, ann, qualified)
	}
}

func (c *Checker) checkPureExpr(e ast.Expr, ann *ast.Annotation, qualified string) {
	switch ex := e.(type) {
	case *ast.CallExpr:
		effects := c.calleeEffects(ex)
		if !effects.Empty() {
			c.bag.Add(diagnostics.NewError(diagnostics.ImpureContract, ex.GetToken(),
				"@%s predicate on %s calls %s which has effects %s; contract predicates must be pure",
				ann.Name, qualified, c.calleeName(ex), effects.String()))
		}
		for _, arg := range ex.Args {
			c.checkPureExpr(arg, ann, qualified)
		}
	case *ast.UnaryExpr:
		c.checkPureExpr(ex.Operand, ann, qualified)
	case *ast.BinaryExpr:
		c.checkPureExpr(ex.Left, ann, qualified)
		c.checkPureExpr(ex.Right, ann, qualified)
	case *ast.MemberExpr:
		c.checkPureExpr(ex.Left, ann, qualified)
	case *ast.IndexExpr:
		c.checkPureExpr(ex.Left, ann, qualified)
		c.checkPureExpr(ex.Index, ann, qualified)
	case *ast.CondExpr:
		c.checkPureExpr(ex.Cond, ann, qualified)
		c.checkPureExpr(ex.Then, ann, qualified)
		c.checkPureExpr(ex.Else, ann, qualified)
	}
}
