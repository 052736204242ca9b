package analyzer

import (
	"errors"

	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/token"
)

// symbolDiagnostic converts a symbol-stage error into a positioned
// diagnostic with the matching error code.
func symbolDiagnostic(err error, tok token.Token) *diagnostics.Diagnostic {
	code := diagnostics.UnresolvedSymbol
	switch {
	case errors.Is(err, symbols.ErrDuplicateSymbol):
		code = diagnostics.DuplicateSymbol
	case errors.Is(err, symbols.ErrAmbiguousImport):
		code = diagnostics.AmbiguousImport
	}
	return diagnostics.NewError(code, tok, "%s", err.Error())
}

// warnDeprecated flags each use of a declaration annotated
// @deprecated. Warnings never block later stages.
func (a *Analyzer) warnDeprecated(sym *symbols.Symbol, tok token.Token) {
	if sym.Decl == nil {
		return
	}
	ann := sym.Decl.Annotation(config.DeprecatedAnnotation)
	if ann == nil {
		return
	}
	msg := ann.Message
	if msg == "" {
		msg = "marked deprecated"
	}
	a.bag.Add(diagnostics.NewWarning(diagnostics.DeprecatedAnnotation, tok,
		"%s is deprecated: %s", sym.Name, msg))
}
