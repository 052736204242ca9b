package pipeline

import (
	"github.com/google/uuid"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/templates"
	"github.com/assure-lang/assure/internal/typesystem"
	"github.com/assure-lang/assure/internal/verify"
)

// UnitContext carries one compilation unit through the stages. Each
// stage reads what earlier stages produced and adds its own results;
// diagnostics accumulate in the shared bag.
type UnitContext struct {
	RunID  uuid.UUID
	UnitID uuid.UUID

	Unit    *ast.Unit
	Options *config.Options
	Bag     *diagnostics.Bag

	// Generators backs forAll property harnesses; nil selects the
	// built-in primitive domains.
	Generators *verify.Generators

	Table       *symbols.Table
	Analyzer    *analyzer.Analyzer
	Instances   []*templates.Instance
	Obligations []*verify.Obligation

	// Observed is the per-function observed effect set computed by the
	// effect stage, keyed by qualified name.
	Observed map[string]typesystem.EffectSet
}

func NewUnitContext(runID uuid.UUID, unit *ast.Unit, opts *config.Options, gens *verify.Generators) *UnitContext {
	return &UnitContext{
		RunID:      runID,
		UnitID:     uuid.New(),
		Unit:       unit,
		Options:    opts,
		Bag:        diagnostics.NewBag(),
		Generators: gens,
	}
}

// Accepted reports whether the unit passed every stage run so far.
// Warnings never reject a unit.
func (ctx *UnitContext) Accepted() bool {
	return !ctx.Bag.HasErrors()
}
