package verify

import (
	"time"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/templates"
	"github.com/assure-lang/assure/internal/token"
)

// Status is the resolution of a verification obligation.
type Status int

const (
	StatusProved  Status = iota // discharged at analysis time
	StatusRuntime               // lowered into a runtime check
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusProved:
		return "proved-static"
	case StatusRuntime:
		return "discharged-runtime"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// ObligationKind says which boundary a lowered check guards.
type ObligationKind int

const (
	Precondition ObligationKind = iota
	Postcondition
	Invariant
	Property
	ConstraintGuard
	LengthGuard
	TemplateAssert
)

func (k ObligationKind) String() string {
	switch k {
	case Precondition:
		return "precondition"
	case Postcondition:
		return "postcondition"
	case Invariant:
		return "invariant"
	case Property:
		return "property"
	case ConstraintGuard:
		return "constraint guard"
	case LengthGuard:
		return "length guard"
	case TemplateAssert:
		return "template assertion"
	}
	return "obligation"
}

// Obligation is one checked assertion: either proved during analysis
// or lowered into a runtime check at its boundary. Runtime
// preconditions run at call entry in Order, short-circuiting on the
// first failure; postconditions run on every return path with the
// result bound; invariants run after each public mutating call.
type Obligation struct {
	Token   token.Token
	Decl    string // qualified name of the annotated declaration
	Kind    ObligationKind
	Status  Status
	Expr    ast.Expr
	Message string
	Order   int // position among the declaration's checks of this kind

	// Binding is the name the return value is bound to while a runtime
	// postcondition evaluates. Set only for Postcondition obligations.
	Binding string

	// FailingInput is the minimal known failing sample for a failed
	// property, or the folded value for a failed static check.
	FailingInput string

	// MutatingMethods lists the public mutating operations an
	// invariant check follows. Only set for Invariant obligations.
	MutatingMethods []string
}

// Compiler lowers contract and property annotations into checked
// obligations and runs the verification gate for one unit.
type Compiler struct {
	res  *analyzer.Analyzer
	bag  *diagnostics.Bag
	gens *Generators
	opts *config.Options

	Obligations []*Obligation

	unitDeadline time.Time
	timedOut     bool
}

func NewCompiler(res *analyzer.Analyzer, bag *diagnostics.Bag, gens *Generators, opts *config.Options) *Compiler {
	if gens == nil {
		gens = Builtin()
	}
	o := *opts
	if o.ObligationBudget <= 0 {
		o.ObligationBudget = config.Duration(config.DefaultObligationBudgetMillis * time.Millisecond)
	}
	if o.UnitBudget <= 0 {
		o.UnitBudget = config.Duration(config.DefaultUnitBudgetMillis * time.Millisecond)
	}
	if o.PropertySamples <= 0 {
		o.PropertySamples = config.DefaultPropertySamples
	}
	return &Compiler{res: res, bag: bag, gens: gens, opts: &o}
}

// Run executes the verification gate: every obligation is either
// proved, lowered, or reported as failed. The gate is part of unit
// acceptance, so a false return rejects the unit.
func (c *Compiler) Run(unit *ast.Unit, instances []*templates.Instance) bool {
	c.unitDeadline = time.Now().Add(time.Duration(c.opts.UnitBudget))
	for _, d := range unit.Decls {
		c.compileDecl(d, unit.Name+"."+d.Name)
		if c.timedOut {
			return false
		}
	}
	c.lowerGuards()
	for _, inst := range instances {
		c.compileInstance(inst)
		if c.timedOut {
			return false
		}
	}
	c.checkCallSites()
	return !c.bag.HasErrors()
}

func (c *Compiler) compileDecl(d *ast.Decl, qualified string) {
	switch d.Kind {
	case ast.NamespaceDecl:
		for _, m := range d.Members {
			c.compileDecl(m, qualified+"."+m.Name)
		}
	case ast.FuncDecl:
		c.compileContracts(d, qualified)
		c.compileProperties(d, qualified)
	case ast.TypeDecl:
		c.compileInvariants(d, qualified)
		c.compileProperties(d, qualified)
		for _, m := range d.Members {
			if m.Kind == ast.FuncDecl {
				c.compileDecl(m, qualified+"."+m.Name)
			}
		}
	case ast.VarDecl:
		c.compileProperties(d, qualified)
	}
}

func (c *Compiler) compileContracts(d *ast.Decl, qualified string) {
	for i, ann := range d.AnnotationsNamed(config.RequiresAnnotation) {
		c.compileBoolean(ann, qualified, Precondition, i, nil)
	}
	for i, ann := range d.AnnotationsNamed(config.EnsuresAnnotation) {
		if ob := c.compileBoolean(ann, qualified, Postcondition, i, nil); ob != nil {
			ob.Binding = config.ResultBinding
		}
	}
}

func (c *Compiler) compileInvariants(d *ast.Decl, qualified string) {
	var mutating []string
	for _, m := range d.Members {
		if m.Kind == ast.FuncDecl && m.Public && m.Mutates {
			mutating = append(mutating, m.Name)
		}
	}
	for i, ann := range d.AnnotationsNamed(config.InvariantAnnotation) {
		ob := c.compileBoolean(ann, qualified, Invariant, i, nil)
		if ob != nil {
			ob.MutatingMethods = mutating
		}
	}
}

// compileBoolean attempts static discharge of a boolean assertion and
// lowers it into a runtime check when any free variable stays
// unknown. A predicate that folds to false is a verification failure.
func (c *Compiler) compileBoolean(ann *ast.Annotation, qualified string, kind ObligationKind, order int, env analyzer.ConstEnv) *Obligation {
	if len(ann.Args) == 0 {
		return nil
	}
	pred := ann.Args[0]
	ob := &Obligation{
		Token:   ann.GetToken(),
		Decl:    qualified,
		Kind:    kind,
		Expr:    pred,
		Message: ann.Message,
		Order:   order,
	}
	if v, ok := analyzer.Fold(pred, env); ok {
		if v.Kind == analyzer.ConstBool && v.Bool {
			ob.Status = StatusProved
		} else {
			ob.Status = StatusFailed
			c.bag.Add(diagnostics.NewError(diagnostics.VerificationFailure, ann.GetToken(),
				"%s on %s is always false%s", kind.String(), qualified, messageSuffix(ann.Message)))
		}
	} else {
		ob.Status = StatusRuntime
	}
	c.Obligations = append(c.Obligations, ob)
	return ob
}

func (c *Compiler) compileProperties(d *ast.Decl, qualified string) {
	for i, ann := range d.AnnotationsNamed(config.VerifyAnnotation) {
		if ann.ForAll != nil {
			c.runProperty(ann, qualified, i)
			continue
		}
		c.compileBoolean(ann, qualified, Property, i, nil)
	}
}

// runProperty executes a bounded forAll harness. The harness is part
// of the gate, not an optional post-pass: any failing sample rejects
// the unit, reported with the minimal failing input found.
func (c *Compiler) runProperty(ann *ast.Annotation, qualified string, order int) {
	fa := ann.ForAll
	ob := &Obligation{
		Token:   ann.GetToken(),
		Decl:    qualified,
		Kind:    Property,
		Expr:    fa.Pred,
		Message: ann.Message,
		Order:   order,
	}
	c.Obligations = append(c.Obligations, ob)

	gen, ok := c.gens.Lookup(fa.Domain)
	if !ok {
		ob.Status = StatusFailed
		c.bag.Add(diagnostics.NewError(diagnostics.NoGeneratorForDomain, ann.GetToken(),
			"no sample generator registered for domain %s", fa.Domain))
		return
	}

	deadline := time.Now().Add(time.Duration(c.opts.ObligationBudget))
	if c.unitDeadline.Before(deadline) {
		deadline = c.unitDeadline
	}

	var worst *Value
	var worstErr string
	for _, sample := range gen(c.opts.PropertySamples) {
		if time.Now().After(deadline) {
			ob.Status = StatusFailed
			c.reportTimeout(ann.GetToken(), qualified)
			return
		}
		env := Env{fa.Var: sample}
		if fa.Where != nil {
			keep, err := Eval(fa.Where, env)
			if err != nil || keep.Kind != BoolValue || !keep.Bool {
				continue
			}
		}
		v, err := Eval(fa.Pred, env)
		holds := err == nil && v.Kind == BoolValue && v.Bool
		if holds {
			continue
		}
		if worst == nil || sample.size().Cmp(worst.size()) < 0 {
			s := sample
			worst = &s
			if err != nil {
				worstErr = err.Error()
			} else {
				worstErr = ""
			}
		}
	}
	if worst == nil {
		ob.Status = StatusProved
		return
	}
	ob.Status = StatusFailed
	ob.FailingInput = worst.String()
	detail := messageSuffix(ann.Message)
	if worstErr != "" {
		detail = ": " + worstErr
	}
	c.bag.Add(diagnostics.NewError(diagnostics.VerificationFailure, ann.GetToken(),
		"property on %s failed for %s = %s%s", qualified, fa.Var, worst.String(), detail))
}

// lowerGuards turns the resolver's undischarged constraint and length
// checks into runtime obligations at the value's boundary.
func (c *Compiler) lowerGuards() {
	for i, g := range c.res.Guards {
		kind := ConstraintGuard
		if g.Kind == analyzer.GuardLength {
			kind = LengthGuard
		}
		c.Obligations = append(c.Obligations, &Obligation{
			Token:   g.Token,
			Decl:    g.Decl,
			Kind:    kind,
			Status:  StatusRuntime,
			Expr:    g.Expr,
			Message: g.Message,
			Order:   i,
		})
	}
}

// compileInstance checks a template's own assertions against each
// instantiation target.
func (c *Compiler) compileInstance(inst *templates.Instance) {
	for i, ann := range inst.Asserts {
		if ann.ForAll != nil {
			c.runProperty(ann, inst.Target, i)
			continue
		}
		ob := c.compileBoolean(ann, inst.Target, TemplateAssert, i, nil)
		if ob != nil && ob.Status == StatusRuntime {
			// Default bodies carry the template's assertions into
			// the target, so the guard attaches there.
			ob.Decl = inst.Target
		}
	}
}

// checkCallSites folds preconditions against statically known
// arguments, catching contract violations at the call before any
// runtime guard would.
func (c *Compiler) checkCallSites() {
	for call, sym := range c.res.CallTargets {
		if sym.Decl == nil {
			continue
		}
		reqs := sym.Decl.AnnotationsNamed(config.RequiresAnnotation)
		if len(reqs) == 0 {
			continue
		}
		env, ok := c.argEnv(sym.Decl, call)
		if !ok {
			continue
		}
		for _, ann := range reqs {
			if len(ann.Args) == 0 {
				continue
			}
			v, folded := analyzer.Fold(ann.Args[0], env)
			if !folded || v.Kind != analyzer.ConstBool {
				continue
			}
			if !v.Bool {
				c.bag.Add(diagnostics.NewError(diagnostics.VerificationFailure, call.GetToken(),
					"call to %s violates its precondition%s", sym.Name, messageSuffix(ann.Message)))
				// First failing precondition wins, matching the
				// short-circuit order of the lowered guards.
				break
			}
		}
	}
}

// argEnv binds parameter names to folded argument values; a single
// non-constant argument makes the call site unfoldable.
func (c *Compiler) argEnv(decl *ast.Decl, call *ast.CallExpr) (analyzer.ConstEnv, bool) {
	if len(call.Args) != len(decl.Params) {
		return nil, false
	}
	bound := make(map[string]analyzer.Const, len(call.Args))
	for i, arg := range call.Args {
		v, ok := analyzer.Fold(arg, nil)
		if !ok {
			return nil, false
		}
		bound[decl.Params[i].Name] = v
	}
	return func(name string) (analyzer.Const, bool) {
		v, ok := bound[name]
		return v, ok
	}, true
}

func (c *Compiler) reportTimeout(tok token.Token, qualified string) {
	c.bag.Add(diagnostics.NewError(diagnostics.VerificationTimeout, tok,
		"verification budget exceeded while checking %s", qualified))
	if time.Now().After(c.unitDeadline) {
		c.timedOut = true
	}
}

func messageSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}
