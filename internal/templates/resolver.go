package templates

import (
	"fmt"
	"strings"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/effects"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/typesystem"
)

// ResolvedOp is one operation of an expanded template instance.
type ResolvedOp struct {
	Name        string
	Sig         typesystem.Func
	FromDefault bool      // inherited from the template's default body
	Impl        *ast.Decl // the providing declaration (override or default)
}

// Instance is the product of binding a template to a target: every
// required operation resolved to an implementation with a compatible
// signature.
type Instance struct {
	Template string
	Target   string
	Args     []typesystem.Type
	Ops      []*ResolvedOp
	Asserts  []*ast.Annotation // template verification assertions, to be compiled by the verification gate
	Subst    typesystem.Subst
}

// Key identifies an instance for memoization. Instantiating the same
// template with the same arguments against an unchanged target twice
// yields the identical expansion.
func (i *Instance) Key() string {
	parts := make([]string, len(i.Args))
	for n, a := range i.Args {
		parts[n] = a.String()
	}
	return fmt.Sprintf("%s<%s> for %s", i.Template, strings.Join(parts, ", "), i.Target)
}

// Resolver expands @implements bindings into template instances.
type Resolver struct {
	res      *analyzer.Analyzer
	registry *effects.Registry
	bag      *diagnostics.Bag
	memo     map[string]*Instance

	// Instances collects every successfully expanded instance, part
	// of the validated output representation.
	Instances []*Instance
}

func NewResolver(res *analyzer.Analyzer, registry *effects.Registry, bag *diagnostics.Bag) *Resolver {
	return &Resolver{
		res:      res,
		registry: registry,
		bag:      bag,
		memo:     make(map[string]*Instance),
	}
}

// Resolve expands every template instance in the unit. Multiple
// instances on the same declaration resolve independently, but their
// default implementations may not collide unless the target overrides
// the colliding name.
func (r *Resolver) Resolve(unit *ast.Unit) bool {
	for _, d := range unit.Decls {
		r.resolveDecl(d, unit.Name+"."+d.Name)
	}
	return !r.bag.HasErrors()
}

func (r *Resolver) resolveDecl(d *ast.Decl, qualified string) {
	if d.Kind == ast.NamespaceDecl {
		for _, m := range d.Members {
			r.resolveDecl(m, qualified+"."+m.Name)
		}
		return
	}
	if d.Kind != ast.TypeDecl || len(d.Instances) == 0 {
		return
	}

	// defaultProviders tracks which instance contributed each
	// inherited default, to detect cross-instance name collisions.
	defaultProviders := make(map[string]string)

	for _, ref := range d.Instances {
		inst := r.resolveInstance(d, qualified, ref)
		if inst == nil {
			continue
		}
		for _, op := range inst.Ops {
			if !op.FromDefault {
				continue
			}
			if prev, clash := defaultProviders[op.Name]; clash && prev != inst.Template {
				r.bag.Add(diagnostics.NewError(diagnostics.TemplateConflict, ref.GetToken(),
					"templates %s and %s both provide a default %q for %s; add an override to resolve the ambiguity",
					prev, inst.Template, op.Name, d.Name))
				continue
			}
			defaultProviders[op.Name] = inst.Template
		}
		r.Instances = append(r.Instances, inst)
	}
}

func (r *Resolver) resolveInstance(target *ast.Decl, qualified string, ref *ast.InstanceRef) *Instance {
	scope, ok := r.res.Table().Owner(qualified)
	if !ok {
		scope = r.res.Table().Global
	}

	sym, err := r.res.Table().Resolve(ref.Template, scope)
	if err != nil || sym.Kind != symbols.TemplateSymbol {
		r.bag.Add(diagnostics.NewError(diagnostics.IncompleteInstance, ref.GetToken(),
			"%s does not name a template", ref.Template))
		return nil
	}
	spec := sym.Decl.Template
	if len(ref.Args) != len(spec.TypeParams) {
		r.bag.Add(diagnostics.NewError(diagnostics.IncompleteInstance, ref.GetToken(),
			"template %s expects %d type arguments, got %d",
			ref.Template, len(spec.TypeParams), len(ref.Args)))
		return nil
	}

	args := make([]typesystem.Type, len(ref.Args))
	subst := make(typesystem.Subst, len(ref.Args))
	for i, argExpr := range ref.Args {
		args[i] = r.res.ResolveType(argExpr, scope)
		subst[spec.TypeParams[i].Name] = args[i]
	}
	r.res.CheckTypeParamConstraints(ref.GetToken(), spec.TypeParams, args)

	inst := &Instance{
		Template: ref.Template,
		Target:   qualified,
		Args:     args,
		Asserts:  spec.Asserts,
		Subst:    subst,
	}
	if memoized, hit := r.memo[inst.Key()]; hit {
		return memoized
	}

	iface, ok := sym.Type.(typesystem.Record)
	if !ok {
		r.bag.Add(diagnostics.NewError(diagnostics.IncompleteInstance, ref.GetToken(),
			"template %s has no required interface", ref.Template))
		return nil
	}

	complete := true
	for _, required := range iface.Fields {
		want, isFunc := required.Type.Apply(subst).(typesystem.Func)
		if !isFunc {
			continue
		}
		op := r.resolveOp(target, spec, ref, required.Name, want, scope)
		if op == nil {
			complete = false
			continue
		}
		inst.Ops = append(inst.Ops, op)
	}
	if !complete {
		return nil
	}
	r.memo[inst.Key()] = inst
	return inst
}

// resolveOp looks up the target's own member first, falling back to
// the template default when the target does not override it.
func (r *Resolver) resolveOp(target *ast.Decl, spec *ast.TemplateSpec, ref *ast.InstanceRef, name string, want typesystem.Func, scope *symbols.Scope) *ResolvedOp {
	if member := target.Method(name); member != nil {
		got := r.memberSignature(member, scope)
		if !r.signatureCompatible(want, got) {
			r.bag.Add(diagnostics.NewError(diagnostics.SignatureMismatch, member.GetToken(),
				"%s.%s has signature %s, template %s requires %s",
				target.Name, name, got.String(), ref.Template, want.String()))
			return nil
		}
		return &ResolvedOp{Name: name, Sig: got, Impl: member}
	}
	if def := spec.Default(name); def != nil {
		// Default bodies were checked against the template's abstract
		// signature; instantiation substitutes the arguments in.
		return &ResolvedOp{Name: name, Sig: want, FromDefault: true, Impl: def}
	}
	r.bag.Add(diagnostics.NewError(diagnostics.IncompleteInstance, ref.GetToken(),
		"%s does not implement %q required by template %s and the template provides no default",
		target.Name, name, ref.Template))
	return nil
}

func (r *Resolver) memberSignature(member *ast.Decl, scope *symbols.Scope) typesystem.Func {
	params := make([]typesystem.Type, len(member.Params))
	for i, p := range member.Params {
		params[i] = r.res.ResolveType(p.Type, scope)
	}
	ret := typesystem.Type(typesystem.Prim{Name: config.NilTypeName})
	if member.Type != nil {
		ret = r.res.ResolveType(member.Type, scope)
	}
	return typesystem.Func{Params: params, Return: ret, Effects: analyzer.DeclaredEffects(member)}
}

// signatureCompatible checks type compatibility plus the effect
// policy: the implementation's declared effects must be a subset of
// the template operation's declared set, with the registry's
// single-level hierarchy applied.
func (r *Resolver) signatureCompatible(want, got typesystem.Func) bool {
	if len(want.Params) != len(got.Params) {
		return false
	}
	for i := range want.Params {
		if !typesystem.Compatible(got.Params[i], want.Params[i]) {
			return false
		}
	}
	if !typesystem.Compatible(want.Return, got.Return) {
		return false
	}
	ok, _ := r.registry.PermitsSet(want.Effects, got.Effects)
	return ok
}
