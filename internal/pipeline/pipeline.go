package pipeline

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/templates"
	"github.com/assure-lang/assure/internal/typesystem"
	"github.com/assure-lang/assure/internal/verify"
)

// Pipeline is the fixed sequence of per-unit stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Stages returns the standard stage order for one unit after
// ingestion: types, effects, templates with typestate, verification.
func Stages() *Pipeline {
	return New(TypeProcessor{}, EffectProcessor{}, TemplateProcessor{}, VerifyProcessor{})
}

// Run threads the context through the stages. A stage does not start
// once an earlier stage has produced a fatal diagnostic: later stages
// assume well-typed input. Warnings never stop the chain.
func (p *Pipeline) Run(ctx *UnitContext) *UnitContext {
	for _, proc := range p.processors {
		if ctx.Bag.HasErrors() {
			break
		}
		ctx = proc.Process(ctx)
	}
	return ctx
}

// UnitResult is the outcome for one compilation unit. When the unit
// is rejected no validated representation is produced: Instances,
// Obligations, and Effects are nil and only Diagnostics carries
// information.
type UnitResult struct {
	UnitID      uuid.UUID
	Name        string
	Diagnostics []*diagnostics.Diagnostic
	Accepted    bool
	Instances   []*templates.Instance
	Obligations []*verify.Obligation

	// Effects is the observed effect set per function, keyed by
	// qualified name.
	Effects map[string]typesystem.EffectSet
}

// RunResult is the outcome of analyzing a whole program.
type RunResult struct {
	RunID uuid.UUID
	Units []*UnitResult

	// Index is the cross-unit symbol index built during ingestion.
	Index *symbols.Index
}

// Accepted reports whether every unit passed.
func (r *RunResult) Accepted() bool {
	for _, u := range r.Units {
		if !u.Accepted {
			return false
		}
	}
	return true
}

// Runner analyzes programs unit by unit: ingestion and signature
// resolution are serial so the shared symbol index is complete and
// immutable before any worker starts, then independent units run in
// parallel under the configured worker bound.
type Runner struct {
	opts *config.Options
	gens *verify.Generators
}

func NewRunner(opts *config.Options, gens *verify.Generators) *Runner {
	if opts == nil {
		opts = config.Default()
	}
	return &Runner{opts: opts, gens: gens}
}

func (r *Runner) Run(ctx context.Context, units []*ast.Unit) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New(), Index: symbols.NewIndex()}

	// Serial ingestion pass. Every table is linked to the shared index
	// before any signature resolves, so cross-unit references work
	// regardless of unit order.
	contexts := make([]*UnitContext, len(units))
	for i, unit := range units {
		uc := NewUnitContext(result.RunID, unit, r.opts, r.gens)
		uc = SymbolProcessor{}.Process(uc)
		uc.Table.SetIndex(result.Index)
		if !uc.Bag.HasErrors() {
			result.Index.AddUnit(uc.Table)
		}
		contexts[i] = uc
	}

	// Serial signature resolution interleaves relaxation sweeps over
	// all units, so a declaration may reference any other unit's types
	// and functions. Once this converges no indexed symbol is written
	// again; the parallel workers only read them.
	var live []*UnitContext
	for _, uc := range contexts {
		if uc.Bag.HasErrors() {
			continue
		}
		uc.Analyzer = analyzer.New(uc.Table, uc.Bag)
		live = append(live, uc)
	}
	for pass := 0; pass < config.FixpointIterationCap; pass++ {
		changed := false
		for _, uc := range live {
			if uc.Analyzer.SignaturePass() {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	for _, uc := range live {
		uc.Analyzer.ReportUnresolved()
	}

	workers := r.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, uc := range contexts {
		uc := uc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			Stages().Run(uc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, uc := range contexts {
		ur := &UnitResult{
			UnitID:      uc.UnitID,
			Name:        uc.Unit.Name,
			Diagnostics: uc.Bag.All(),
			Accepted:    uc.Accepted(),
		}
		if ur.Accepted {
			ur.Instances = uc.Instances
			ur.Obligations = uc.Obligations
			ur.Effects = uc.Observed
		}
		result.Units = append(result.Units, ur)
	}
	return result, nil
}
