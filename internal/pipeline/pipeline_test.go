package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/pipeline"
	"github.com/assure-lang/assure/internal/token"
	"github.com/assure-lang/assure/internal/verify"
)

var nextLine int

func tok() token.Token {
	nextLine++
	return token.Token{File: "test.as", Line: nextLine, Column: 1}
}

func intLit(v int64) *ast.IntLit { return &ast.IntLit{Token: tok(), Value: v} }

func ident(name string) *ast.Ident { return &ast.Ident{Token: tok(), Name: name} }

func block(stmts ...ast.Stmt) *ast.BlockStmt { return &ast.BlockStmt{Token: tok(), Stmts: stmts} }

func callStmt(fn string, args ...ast.Expr) ast.Stmt {
	return &ast.ExprStmt{Token: tok(), Expr: &ast.CallExpr{Token: tok(), Fn: ident(fn), Args: args}}
}

func fn(name string, body *ast.BlockStmt, annotations ...*ast.Annotation) *ast.Decl {
	return &ast.Decl{
		Token: tok(), Kind: ast.FuncDecl, Name: name,
		Body: body, Annotations: annotations,
	}
}

func typeDecl(name, base string) *ast.Decl {
	return &ast.Decl{Token: tok(), Kind: ast.TypeDecl, Name: name,
		Type: &ast.NamedType{Token: tok(), Name: base}}
}

func varDecl(name, typeName string, value ast.Expr) *ast.Decl {
	return &ast.Decl{Token: tok(), Kind: ast.VarDecl, Name: name,
		Type: &ast.NamedType{Token: tok(), Name: typeName}, Value: value}
}

func requiresAnn(pred ast.Expr) *ast.Annotation {
	return &ast.Annotation{Token: tok(), Name: config.RequiresAnnotation, Args: []ast.Expr{pred}}
}

func run(t *testing.T, units ...*ast.Unit) *pipeline.RunResult {
	t.Helper()
	res, err := pipeline.NewRunner(nil, nil).Run(context.Background(), units)
	require.NoError(t, err)
	require.Len(t, res.Units, len(units))
	return res
}

func TestRunnerAcceptsCleanUnit(t *testing.T) {
	tautology := &ast.BinaryExpr{Token: tok(), Op: "<", Left: intLit(1), Right: intLit(2)}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		fn("check", block(), requiresAnn(tautology)),
	}}

	res := run(t, unit)
	u := res.Units[0]
	assert.True(t, u.Accepted)
	assert.Empty(t, u.Diagnostics)
	require.Len(t, u.Obligations, 1)
	assert.Equal(t, verify.Precondition, u.Obligations[0].Kind)
	assert.Equal(t, verify.StatusProved, u.Obligations[0].Status)
	assert.True(t, res.Accepted())
}

func TestTypeErrorGatesLaterStages(t *testing.T) {
	// The call target does not exist, so the type stage rejects the
	// unit and the later stages never produce their outputs.
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		fn("broken", block(callStmt("missing"))),
	}}

	res := run(t, unit)
	u := res.Units[0]
	assert.False(t, u.Accepted)
	assert.Nil(t, u.Instances)
	assert.Nil(t, u.Obligations)
	require.NotEmpty(t, u.Diagnostics)
	assert.Equal(t, diagnostics.UnresolvedSymbol, u.Diagnostics[0].Code)
	assert.False(t, res.Accepted())
}

func TestWarningsDoNotReject(t *testing.T) {
	dep := &ast.Annotation{Token: tok(), Name: config.DeprecatedAnnotation, Message: "use renew"}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		fn("old", block(), dep),
		fn("caller", block(callStmt("old"))),
	}}

	res := run(t, unit)
	u := res.Units[0]
	assert.True(t, u.Accepted)
	require.NotEmpty(t, u.Diagnostics)
	d := u.Diagnostics[0]
	assert.Equal(t, diagnostics.SeverityWarning, d.Severity)
	assert.Contains(t, d.Message, "use renew")
}

func TestUnitsRunIndependently(t *testing.T) {
	good := &ast.Unit{Name: "alpha", Decls: []*ast.Decl{fn("ok", block())}}
	bad := &ast.Unit{Name: "beta", Decls: []*ast.Decl{fn("nope", block(callStmt("ghost")))}}

	res := run(t, good, bad)
	assert.True(t, res.Units[0].Accepted)
	assert.False(t, res.Units[1].Accepted)
	assert.False(t, res.Accepted())
	assert.NotEqual(t, res.Units[0].UnitID, res.Units[1].UnitID)
	assert.Equal(t, "alpha", res.Units[0].Name)
	assert.Equal(t, "beta", res.Units[1].Name)
}

func TestCrossUnitReferenceResolves(t *testing.T) {
	// route is ingested before geo, so resolution of geo.Meters must
	// not depend on unit order.
	producer := &ast.Unit{Name: "geo", Decls: []*ast.Decl{typeDecl("Meters", "Int")}}
	consumer := &ast.Unit{Name: "route", Decls: []*ast.Decl{varDecl("span", "geo.Meters", intLit(12))}}

	res := run(t, consumer, producer)
	assert.True(t, res.Units[0].Accepted, "diagnostics: %v", res.Units[0].Diagnostics)
	assert.True(t, res.Units[1].Accepted)
	sym, ok := res.Index.Lookup("geo.Meters")
	require.True(t, ok)
	assert.False(t, sym.IsPending)
}

func TestUnknownCrossUnitReferenceRejected(t *testing.T) {
	unit := &ast.Unit{Name: "route", Decls: []*ast.Decl{varDecl("span", "geo.Meters", intLit(12))}}

	res := run(t, unit)
	u := res.Units[0]
	assert.False(t, u.Accepted)
	require.NotEmpty(t, u.Diagnostics)
	assert.Equal(t, diagnostics.UnresolvedSymbol, u.Diagnostics[0].Code)
}

func TestObservedEffectsSurfaced(t *testing.T) {
	eff := &ast.Annotation{Token: tok(), Name: config.EffectsAnnotation,
		Args: []ast.Expr{&ast.StringLit{Token: tok(), Value: "network"}}}
	unit := &ast.Unit{Name: "api", Decls: []*ast.Decl{
		fn("fetch", block(callStmt("httpGet", &ast.StringLit{Token: tok(), Value: "u"})), eff),
	}}

	res := run(t, unit)
	u := res.Units[0]
	require.True(t, u.Accepted, "diagnostics: %v", u.Diagnostics)
	require.Contains(t, u.Effects, "api.fetch")
	assert.True(t, u.Effects["api.fetch"].Contains("network"))
}

func TestWorkerBoundFromOptions(t *testing.T) {
	opts := config.Default()
	opts.Workers = 1
	units := make([]*ast.Unit, 8)
	for i := range units {
		units[i] = &ast.Unit{
			Name:  string(rune('a' + i)),
			Decls: []*ast.Decl{fn("f", block())},
		}
	}

	res, err := pipeline.NewRunner(opts, nil).Run(context.Background(), units)
	require.NoError(t, err)
	require.Len(t, res.Units, len(units))
	assert.True(t, res.Accepted())
}

func TestCancelledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{fn("f", block())}}

	_, err := pipeline.NewRunner(nil, nil).Run(ctx, []*ast.Unit{unit})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDuplicateDeclarationPositioned(t *testing.T) {
	first := fn("twice", block())
	second := fn("twice", block())
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{first, second}}

	res := run(t, unit)
	u := res.Units[0]
	assert.False(t, u.Accepted)
	require.NotEmpty(t, u.Diagnostics)
	d := u.Diagnostics[0]
	assert.Equal(t, diagnostics.DuplicateSymbol, d.Code)
	assert.Contains(t, d.Message, `"twice"`)
	assert.Equal(t, second.Token.Line, d.Token.Line)
}
