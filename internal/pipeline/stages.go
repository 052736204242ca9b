package pipeline

import (
	"errors"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/effects"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/templates"
	"github.com/assure-lang/assure/internal/token"
	"github.com/assure-lang/assure/internal/typestate"
	"github.com/assure-lang/assure/internal/verify"
)

// Processor is one pipeline stage. Stages run in a fixed order and a
// stage does not start on a unit whose previous stage produced a
// fatal diagnostic; warnings never block.
type Processor interface {
	Name() string
	Process(ctx *UnitContext) *UnitContext
}

// SymbolProcessor ingests the unit's declarations into a fresh scope
// table. Collisions are collected, not aborted on, so one run reports
// every duplicate.
type SymbolProcessor struct{}

func (SymbolProcessor) Name() string { return "symbols" }

func (SymbolProcessor) Process(ctx *UnitContext) *UnitContext {
	ctx.Table = symbols.NewTable(ctx.Unit.Name, analyzer.BuiltinScope())
	for _, err := range ctx.Table.Ingest(ctx.Unit) {
		ctx.Bag.Add(ingestDiagnostic(err))
	}
	return ctx
}

func ingestDiagnostic(err error) *diagnostics.Diagnostic {
	var dup *symbols.DuplicateError
	if errors.As(err, &dup) && dup.New != nil && dup.New.Decl != nil {
		return diagnostics.NewError(diagnostics.DuplicateSymbol, dup.New.Decl.Token,
			"%q is already declared in this scope", dup.Name)
	}
	code := diagnostics.UnresolvedSymbol
	if errors.Is(err, symbols.ErrAmbiguousImport) {
		code = diagnostics.AmbiguousImport
	} else if errors.Is(err, symbols.ErrDuplicateSymbol) {
		code = diagnostics.DuplicateSymbol
	}
	return diagnostics.NewError(code, token.Token{}, "%s", err.Error())
}

// TypeProcessor runs the fixed-point type and constraint resolver and
// the body checker. The cross-unit runner resolves signatures serially
// before the workers start; only the body check runs here then.
type TypeProcessor struct{}

func (TypeProcessor) Name() string { return "types" }

func (TypeProcessor) Process(ctx *UnitContext) *UnitContext {
	if ctx.Analyzer == nil {
		ctx.Analyzer = analyzer.New(ctx.Table, ctx.Bag)
		ctx.Analyzer.Resolve(ctx.Unit)
		return ctx
	}
	ctx.Analyzer.CheckBodies()
	return ctx
}

// EffectProcessor checks observed effects against declared sets.
type EffectProcessor struct{}

func (EffectProcessor) Name() string { return "effects" }

func (EffectProcessor) Process(ctx *UnitContext) *UnitContext {
	specs := ctx.Options.Effects
	if len(specs) == 0 {
		specs = config.BuiltinEffects()
	}
	registry := effects.NewRegistry(specs)
	checker := effects.NewChecker(registry, ctx.Analyzer, ctx.Bag)
	checker.Check(ctx.Unit)
	ctx.Observed = checker.Observed
	return ctx
}

// TemplateProcessor expands template instances and runs the typestate
// flow checker. Both belong to the same stage, so each runs even when
// the other reports errors.
type TemplateProcessor struct{}

func (TemplateProcessor) Name() string { return "templates" }

func (TemplateProcessor) Process(ctx *UnitContext) *UnitContext {
	specs := ctx.Options.Effects
	if len(specs) == 0 {
		specs = config.BuiltinEffects()
	}
	registry := effects.NewRegistry(specs)
	resolver := templates.NewResolver(ctx.Analyzer, registry, ctx.Bag)
	resolver.Resolve(ctx.Unit)
	ctx.Instances = resolver.Instances

	typestate.NewChecker(ctx.Analyzer, ctx.Bag).Check(ctx.Unit)
	return ctx
}

// VerifyProcessor runs the verification gate: contracts, lowered
// guards, template assertions, and forAll property harnesses.
type VerifyProcessor struct{}

func (VerifyProcessor) Name() string { return "verify" }

func (VerifyProcessor) Process(ctx *UnitContext) *UnitContext {
	compiler := verify.NewCompiler(ctx.Analyzer, ctx.Bag, ctx.Generators, ctx.Options)
	compiler.Run(ctx.Unit, ctx.Instances)
	ctx.Obligations = compiler.Obligations
	return ctx
}
