package engine

import (
	"context"
	"io"

	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/pipeline"
	"github.com/assure-lang/assure/internal/verify"
)

// Unit is one compilation unit of the host frontend's tree.
type Unit = ast.Unit

// Options configures a run; nil means defaults.
type Options = config.Options

// Report is the outcome of analyzing a program.
type Report = pipeline.RunResult

// Generator produces sample values for a forAll property domain.
type Generator = verify.Generator

// Engine is the public entry point: it analyzes parsed units and
// returns per-unit diagnostics plus the validated representation for
// accepted units.
type Engine struct {
	opts *config.Options
	gens *verify.Generators
}

func New(opts *Options) *Engine {
	if opts == nil {
		opts = config.Default()
	}
	return &Engine{opts: opts, gens: verify.Builtin()}
}

// LoadOptions reads YAML options from a file, falling back to
// defaults for anything unset.
func LoadOptions(path string) (*Options, error) {
	return config.Load(path)
}

// RegisterGenerator supplies samples for a forAll domain. Properties
// quantified over a domain with no generator fail with
// NoGeneratorForDomain.
func (e *Engine) RegisterGenerator(domain string, gen Generator) {
	e.gens.Register(domain, gen)
}

// Analyze runs the full stage sequence over the units. The returned
// error only reports cancellation; analysis findings are in the
// report's diagnostics.
func (e *Engine) Analyze(ctx context.Context, units ...*Unit) (*Report, error) {
	return pipeline.NewRunner(e.opts, e.gens).Run(ctx, units)
}

// WriteDiagnostics renders every unit's diagnostics to w, colorized
// when w is a terminal.
func WriteDiagnostics(w io.Writer, report *Report) error {
	f := diagnostics.NewFormatter(w)
	for _, u := range report.Units {
		if err := f.Write(u.Diagnostics); err != nil {
			return err
		}
	}
	return nil
}
