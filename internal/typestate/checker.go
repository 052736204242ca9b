package typestate

import (
	"strings"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/typesystem"
)

// flow is the tracked state of one binding at one program point.
// When two branches leave the binding in different states the flow is
// conflicted, and the conflicting state names are kept for the error
// message issued on the next state-local use.
type flow struct {
	state     typesystem.State
	conflict  bool
	conflicts []string
}

// env maps binding names to their tracked flow state.
type env map[string]flow

func (e env) clone() env {
	out := make(env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// merge joins two branch environments. A binding tracked in only one
// branch survives unchanged; a binding in different states across the
// branches becomes conflicted.
func merge(a, b env) env {
	out := make(env, len(a))
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			out[k] = va
			continue
		}
		if va.conflict || vb.conflict {
			out[k] = flow{conflict: true, conflicts: mergeConflicts(va, vb)}
			continue
		}
		if va.state == vb.state {
			out[k] = va
			continue
		}
		out[k] = flow{conflict: true, conflicts: []string{va.state.Name, vb.state.Name}}
	}
	for k, vb := range b {
		if _, ok := a[k]; !ok {
			out[k] = vb
		}
	}
	return out
}

func mergeConflicts(a, b flow) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f flow) {
		if f.conflict {
			for _, n := range f.conflicts {
				if !seen[n] {
					seen[n] = true
					out = append(out, n)
				}
			}
			return
		}
		if !seen[f.state.Name] {
			seen[f.state.Name] = true
			out = append(out, f.state.Name)
		}
	}
	add(a)
	add(b)
	return out
}

// Checker validates state-local method calls against each binding's
// tracked state, narrowing along control flow.
type Checker struct {
	res *analyzer.Analyzer
	bag *diagnostics.Bag

	// callStates records the state produced by each state-valued call.
	// Payload-returning methods are absent: their value has the
	// declared return type, not the receiver's state.
	callStates map[*ast.CallExpr]typesystem.State
}

func NewChecker(res *analyzer.Analyzer, bag *diagnostics.Bag) *Checker {
	return &Checker{
		res:        res,
		bag:        bag,
		callStates: make(map[*ast.CallExpr]typesystem.State),
	}
}

func (c *Checker) Check(unit *ast.Unit) bool {
	for _, d := range unit.Decls {
		c.checkDecl(d)
	}
	return !c.bag.HasErrors()
}

func (c *Checker) checkDecl(d *ast.Decl) {
	switch d.Kind {
	case ast.NamespaceDecl:
		for _, m := range d.Members {
			c.checkDecl(m)
		}
	case ast.FuncDecl:
		c.checkFunc(d)
	case ast.TypeDecl:
		for _, m := range d.Members {
			if m.Kind == ast.FuncDecl {
				c.checkFunc(m)
			}
		}
	}
}

func (c *Checker) checkFunc(d *ast.Decl) {
	if d.Body == nil {
		return
	}
	scope, ok := c.res.FuncScope(d)
	if !ok {
		return
	}
	e := make(env)
	for _, p := range d.Params {
		if st, isState := c.res.ResolveType(p.Type, scope).(typesystem.State); isState {
			e[p.Name] = flow{state: st}
		}
	}
	c.walkBlock(d.Body, e, scope)
}

// walkBlock threads the environment through the statements in order
// and reports whether the block always returns.
func (c *Checker) walkBlock(b *ast.BlockStmt, e env, scope *symbols.Scope) bool {
	if b == nil {
		return false
	}
	for _, st := range b.Stmts {
		if c.walkStmt(st, e, scope) {
			return true
		}
	}
	return false
}

func (c *Checker) walkStmt(st ast.Stmt, e env, scope *symbols.Scope) bool {
	switch s := st.(type) {
	case *ast.LetStmt:
		c.walkExpr(s.Value, e)
		c.bindResult(s.Name, s.Value, e)
	case *ast.AssignStmt:
		c.walkExpr(s.Value, e)
		if id, ok := s.Target.(*ast.Ident); ok {
			c.bindResult(id.Name, s.Value, e)
		}
	case *ast.ExprStmt:
		c.walkExpr(s.Expr, e)
	case *ast.ReturnStmt:
		c.walkExpr(s.Value, e)
		return true
	case *ast.IfStmt:
		c.walkExpr(s.Cond, e)
		thenEnv := e.clone()
		thenReturns := c.walkBlock(s.Then, thenEnv, scope)
		elseEnv := e.clone()
		elseReturns := false
		if s.Else != nil {
			elseReturns = c.walkBlock(s.Else, elseEnv, scope)
		}
		var joined env
		switch {
		case thenReturns && elseReturns:
			return true
		case thenReturns:
			joined = elseEnv
		case elseReturns:
			joined = thenEnv
		default:
			joined = merge(thenEnv, elseEnv)
		}
		for k := range e {
			delete(e, k)
		}
		for k, v := range joined {
			e[k] = v
		}
	case *ast.LoopStmt:
		c.walkExpr(s.Cond, e)
		// One body pass joined with the pre-loop state covers the
		// zero-iteration path; a binding driven to a different state
		// by the body conflicts at the loop exit.
		bodyEnv := e.clone()
		c.walkBlock(s.Body, bodyEnv, scope)
		joined := merge(e, bodyEnv)
		for k, v := range joined {
			e[k] = v
		}
	case *ast.IsolateStmt:
		c.walkBlock(s.Body, e, scope)
	case *ast.BlockStmt:
		return c.walkBlock(s, e, scope)
	}
	return false
}

// bindResult records the flow state of a fresh or reassigned binding
// from its initializer: either a transition call's result state or a
// value already typed as a state.
func (c *Checker) bindResult(name string, value ast.Expr, e env) {
	if value == nil {
		return
	}
	if call, ok := value.(*ast.CallExpr); ok {
		if st, transitioned := c.transitionResult(call); transitioned {
			e[name] = flow{state: st}
			return
		}
	}
	if st, ok := c.res.TypeMap[value].(typesystem.State); ok {
		e[name] = flow{state: st}
		return
	}
	delete(e, name)
}

func (c *Checker) walkExpr(x ast.Expr, e env) {
	switch v := x.(type) {
	case *ast.CallExpr:
		c.checkCall(v, e)
		for _, arg := range v.Args {
			c.walkExpr(arg, e)
		}
	case *ast.UnaryExpr:
		c.walkExpr(v.Operand, e)
	case *ast.BinaryExpr:
		c.walkExpr(v.Left, e)
		c.walkExpr(v.Right, e)
	case *ast.CondExpr:
		c.walkExpr(v.Cond, e)
		c.walkExpr(v.Then, e)
		c.walkExpr(v.Else, e)
	case *ast.IndexExpr:
		c.walkExpr(v.Left, e)
		c.walkExpr(v.Index, e)
	case *ast.MemberExpr:
		c.walkExpr(v.Left, e)
	}
}

// checkCall validates a state method call against the receiver's
// tracked state and narrows the receiver to the transition's result.
func (c *Checker) checkCall(call *ast.CallExpr, e env) {
	member, ok := call.Fn.(*ast.MemberExpr)
	if !ok {
		return
	}
	recv, ok := member.Left.(*ast.Ident)
	if !ok {
		return
	}
	f, tracked := e[recv.Name]
	if !tracked {
		return
	}
	if f.conflict {
		c.bag.Add(diagnostics.NewError(diagnostics.InvalidTransition, call.GetToken(),
			"cannot call %s on %s: state depends on the path taken (%s)",
			member.Name, recv.Name, strings.Join(f.conflicts, " or ")))
		return
	}
	m := c.lookupMethod(f.state, member.Name)
	if m == nil {
		c.bag.Add(diagnostics.NewError(diagnostics.InvalidTransition, call.GetToken(),
			"%s is in state %s which does not define %s%s",
			recv.Name, f.state.Name, member.Name, c.availableHint(f.state)))
		return
	}
	next := m.NextState
	if next == "" {
		next = f.state.Name
	}
	result := typesystem.State{Owner: f.state.Owner, Name: next}
	e[recv.Name] = flow{state: result}
	if m.NextState != "" || m.Return == nil {
		c.callStates[call] = result
	}
}

// transitionResult reports the state a call expression produces, when
// its callee is a state method of a tracked binding. A method with a
// payload return yields the payload, so its call is never recorded.
func (c *Checker) transitionResult(call *ast.CallExpr) (typesystem.State, bool) {
	st, ok := c.callStates[call]
	return st, ok
}

func (c *Checker) lookupMethod(st typesystem.State, name string) *ast.StateMethod {
	spec := c.typestateSpec(st.Owner)
	if spec == nil {
		return nil
	}
	stateSpec := spec.State(st.Name)
	if stateSpec == nil {
		return nil
	}
	return stateSpec.Method(name)
}

func (c *Checker) typestateSpec(owner string) *ast.TypestateSpec {
	sym, err := c.res.Table().Resolve(owner, c.res.Table().Global)
	if err != nil || sym.Kind != symbols.TypestateSymbol || sym.Decl == nil {
		return nil
	}
	return sym.Decl.Typestate
}

func (c *Checker) availableHint(st typesystem.State) string {
	spec := c.typestateSpec(st.Owner)
	if spec == nil {
		return ""
	}
	stateSpec := spec.State(st.Name)
	if stateSpec == nil || len(stateSpec.Methods) == 0 {
		return ""
	}
	names := make([]string, len(stateSpec.Methods))
	for i, m := range stateSpec.Methods {
		names[i] = m.Name
	}
	return " (available: " + strings.Join(names, ", ") + ")"
}
