package analyzer_test

import (
	"testing"

	"github.com/assure-lang/assure/internal/analyzer"
	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/diagnostics"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/token"
	"github.com/assure-lang/assure/internal/typesystem"
)

var nextLine int

func tok() token.Token {
	nextLine++
	return token.Token{File: "test.as", Line: nextLine, Column: 1}
}

func named(name string) *ast.NamedType { return &ast.NamedType{Token: tok(), Name: name} }

func intLit(v int64) *ast.IntLit { return &ast.IntLit{Token: tok(), Value: v} }

func strLit(s string) *ast.StringLit { return &ast.StringLit{Token: tok(), Value: s} }

func ident(name string) *ast.Ident { return &ast.Ident{Token: tok(), Name: name} }

func rangedInt(lo, hi int64) *ast.ConstrainedType {
	return &ast.ConstrainedType{
		Token: tok(),
		Base:  named("Int"),
		Range: &ast.RangeBound{Lo: intLit(lo), Hi: intLit(hi)},
	}
}

// analyze runs symbol ingestion and the type stage over a unit.
func analyze(t *testing.T, unit *ast.Unit) (*analyzer.Analyzer, *diagnostics.Bag) {
	t.Helper()
	table := symbols.NewTable(unit.Name, analyzer.BuiltinScope())
	if errs := table.Ingest(unit); len(errs) != 0 {
		t.Fatalf("ingest errors: %v", errs)
	}
	bag := diagnostics.NewBag()
	a := analyzer.New(table, bag)
	a.Resolve(unit)
	return a, bag
}

// expectError asserts that the bag contains at least one diagnostic
// with the given code.
func expectError(t *testing.T, bag *diagnostics.Bag, code diagnostics.ErrorCode) {
	t.Helper()
	for _, d := range bag.All() {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected a %s diagnostic, got %v", code, bag.All())
}

func expectClean(t *testing.T, bag *diagnostics.Bag) {
	t.Helper()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
}

func TestConstrainedLiteralInRange(t *testing.T) {
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Port", Type: rangedInt(1, 65535)},
		{Token: tok(), Kind: ast.VarDecl, Name: "p", Type: named("Port"), Value: intLit(8080)},
	}}
	_, bag := analyze(t, unit)
	expectClean(t, bag)
}

func TestConstrainedLiteralOutOfRange(t *testing.T) {
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Port", Type: rangedInt(1, 65535)},
		{Token: tok(), Kind: ast.VarDecl, Name: "p", Type: named("Port"), Value: intLit(70000)},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.ConstraintViolation)
}

func TestPatternConstraintOnStringLiteral(t *testing.T) {
	email := &ast.ConstrainedType{
		Token:   tok(),
		Base:    named("String"),
		Pattern: `^[^@]+@[^@]+$`,
	}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Email", Type: email},
		{Token: tok(), Kind: ast.VarDecl, Name: "ok", Type: named("Email"), Value: strLit("a@b")},
		{Token: tok(), Kind: ast.VarDecl, Name: "bad", Type: named("Email"), Value: strLit("nope")},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.ConstraintViolation)
	if len(bag.All()) != 1 {
		t.Errorf("only the failing literal should be reported, got %v", bag.All())
	}
}

func TestPatternNeedsStringBase(t *testing.T) {
	bad := &ast.ConstrainedType{Token: tok(), Base: named("Int"), Pattern: "[0-9]+"}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Weird", Type: bad},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.ConstraintViolation)
}

func TestNonConstantConstrainedValueBecomesGuard(t *testing.T) {
	// fun clamp(x: Int) { let p: Port = x } cannot be checked
	// statically, so the resolver records a runtime guard instead of
	// rejecting it.
	body := &ast.BlockStmt{Token: tok(), Stmts: []ast.Stmt{
		&ast.LetStmt{Token: tok(), Name: "p", Type: named("Port"), Value: ident("x")},
	}}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Port", Type: rangedInt(1, 65535)},
		{Token: tok(), Kind: ast.FuncDecl, Name: "clamp",
			Params: []*ast.Param{{Token: tok(), Name: "x", Type: named("Int")}},
			Body:   body},
	}}
	a, bag := analyze(t, unit)
	expectClean(t, bag)
	if len(a.Guards) != 1 {
		t.Fatalf("got %d guards, want 1", len(a.Guards))
	}
	if a.Guards[0].Kind != analyzer.GuardConstraint {
		t.Errorf("guard kind = %v, want GuardConstraint", a.Guards[0].Kind)
	}
}

func TestNumericClassesDoNotMix(t *testing.T) {
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.VarDecl, Name: "x", Type: named("Int"),
			Value: &ast.FloatLit{Token: tok(), Value: 1.5}},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.TypeMismatch)
}

func TestAssignMismatch(t *testing.T) {
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.VarDecl, Name: "s", Type: named("String"), Value: intLit(1)},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.TypeMismatch)
}

func TestUnresolvedRecursionDiverges(t *testing.T) {
	// let a = b and let b = a never converge to concrete types.
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.VarDecl, Name: "a", Value: ident("b")},
		{Token: tok(), Kind: ast.VarDecl, Name: "b", Value: ident("a")},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.UnresolvedRecursion)
}

func TestRecursiveFunctionResolvesThroughAnnotations(t *testing.T) {
	// fun fact(n: Int) Int { return fact(n) } resolves because the
	// signature never depends on the body.
	body := &ast.BlockStmt{Token: tok(), Stmts: []ast.Stmt{
		&ast.ReturnStmt{Token: tok(), Value: &ast.CallExpr{
			Token: tok(), Fn: ident("fact"), Args: []ast.Expr{ident("n")},
		}},
	}}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.FuncDecl, Name: "fact", Type: named("Int"),
			Params: []*ast.Param{{Token: tok(), Name: "n", Type: named("Int")}},
			Body:   body},
	}}
	_, bag := analyze(t, unit)
	expectClean(t, bag)
}

func TestGenericBoundViolation(t *testing.T) {
	shape := &ast.RecordType{Token: tok(), Fields: []*ast.FieldSpec{
		{Token: tok(), Name: "area", Type: named("Float")},
	}}
	circle := &ast.RecordType{Token: tok(), Fields: []*ast.FieldSpec{
		{Token: tok(), Name: "area", Type: named("Float")},
		{Token: tok(), Name: "radius", Type: named("Float")},
	}}
	boxBody := &ast.RecordType{Token: tok(), Fields: []*ast.FieldSpec{
		{Token: tok(), Name: "item", Type: named("T")},
	}}
	decls := []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Shape", Type: shape},
		{Token: tok(), Kind: ast.TypeDecl, Name: "Circle", Type: circle},
		{Token: tok(), Kind: ast.TypeDecl, Name: "Box", Type: boxBody,
			TypeParams: []*ast.TypeParam{{Token: tok(), Name: "T", Bound: named("Shape")}}},
	}

	t.Run("conforming_argument", func(t *testing.T) {
		unit := &ast.Unit{Name: "main", Decls: append(decls[:3:3],
			&ast.Decl{Token: tok(), Kind: ast.VarDecl, Name: "b",
				Type: &ast.GenericInst{Token: tok(), Name: "Box", Args: []ast.TypeExpr{named("Circle")}}})}
		_, bag := analyze(t, unit)
		expectClean(t, bag)
	})

	t.Run("non_conforming_argument", func(t *testing.T) {
		unit := &ast.Unit{Name: "main", Decls: append(decls[:3:3],
			&ast.Decl{Token: tok(), Kind: ast.VarDecl, Name: "b",
				Type: &ast.GenericInst{Token: tok(), Name: "Box", Args: []ast.TypeExpr{named("Int")}}})}
		_, bag := analyze(t, unit)
		expectError(t, bag, diagnostics.ConstraintViolation)
	})
}

func TestHasPropertyConstraint(t *testing.T) {
	printable := &ast.RecordType{Token: tok(), Fields: []*ast.FieldSpec{
		{Token: tok(), Name: "text", Type: named("String")},
	}}
	holder := &ast.RecordType{Token: tok(), Fields: []*ast.FieldSpec{
		{Token: tok(), Name: "item", Type: named("T")},
	}}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Label", Type: printable},
		{Token: tok(), Kind: ast.TypeDecl, Name: "Holder", Type: holder,
			TypeParams: []*ast.TypeParam{{Token: tok(), Name: "T", HasProperties: []string{"text"}}}},
		{Token: tok(), Kind: ast.VarDecl, Name: "bad",
			Type: &ast.GenericInst{Token: tok(), Name: "Holder", Args: []ast.TypeExpr{named("Bool")}}},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.ConstraintViolation)
}

func TestDependentArrayLengths(t *testing.T) {
	t.Run("literal_length_mismatch_is_static", func(t *testing.T) {
		vec3 := &ast.DependentArrayType{Token: tok(), Elem: named("Float"), Length: intLit(3)}
		vec4 := &ast.DependentArrayType{Token: tok(), Elem: named("Float"), Length: intLit(4)}
		body := &ast.BlockStmt{Token: tok(), Stmts: []ast.Stmt{
			&ast.LetStmt{Token: tok(), Name: "w", Type: vec4, Value: ident("v")},
		}}
		unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
			{Token: tok(), Kind: ast.FuncDecl, Name: "f",
				Params: []*ast.Param{{Token: tok(), Name: "v", Type: vec3}},
				Body:   body},
		}}
		_, bag := analyze(t, unit)
		expectError(t, bag, diagnostics.TypeMismatch)
	})

	t.Run("symbolic_length_becomes_guard", func(t *testing.T) {
		symbolic := &ast.DependentArrayType{Token: tok(), Elem: named("Float"), Length: ident("n")}
		unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
			{Token: tok(), Kind: ast.FuncDecl, Name: "f",
				Params: []*ast.Param{
					{Token: tok(), Name: "n", Type: named("Int")},
					{Token: tok(), Name: "v", Type: symbolic},
				}},
		}}
		a, bag := analyze(t, unit)
		expectClean(t, bag)
		found := false
		for _, g := range a.Guards {
			if g.Kind == analyzer.GuardLength {
				found = true
			}
		}
		if !found {
			t.Errorf("symbolic length should record a length guard")
		}
	})
}

func TestDeprecatedUseWarns(t *testing.T) {
	body := &ast.BlockStmt{Token: tok(), Stmts: []ast.Stmt{
		&ast.ExprStmt{Token: tok(), Expr: &ast.CallExpr{
			Token: tok(), Fn: ident("old"), Args: nil,
		}},
	}}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.FuncDecl, Name: "old", Type: named("Int"),
			Annotations: []*ast.Annotation{{Token: tok(), Name: "deprecated", Message: "use fresh instead"}},
			Body: &ast.BlockStmt{Token: tok(), Stmts: []ast.Stmt{
				&ast.ReturnStmt{Token: tok(), Value: intLit(1)},
			}}},
		{Token: tok(), Kind: ast.FuncDecl, Name: "caller", Body: body},
	}}
	_, bag := analyze(t, unit)
	if bag.HasErrors() {
		t.Fatalf("deprecation must stay a warning: %v", bag.All())
	}
	expectError(t, bag, diagnostics.DeprecatedAnnotation)
}

func TestUnionFirstMatchOrder(t *testing.T) {
	intOrString := &ast.UnionType{Token: tok(), Alts: []ast.TypeExpr{named("Int"), named("String")}}
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "IntOrString", Type: intOrString},
		{Token: tok(), Kind: ast.VarDecl, Name: "a", Type: named("IntOrString"), Value: intLit(1)},
		{Token: tok(), Kind: ast.VarDecl, Name: "b", Type: named("IntOrString"), Value: strLit("s")},
		{Token: tok(), Kind: ast.VarDecl, Name: "c", Type: named("IntOrString"),
			Value: &ast.BoolLit{Token: tok(), Value: true}},
	}}
	_, bag := analyze(t, unit)
	expectError(t, bag, diagnostics.TypeMismatch)
	if len(bag.All()) != 1 {
		t.Errorf("only the Bool initializer should fail, got %v", bag.All())
	}
}

func TestResolveTypeIsIdempotent(t *testing.T) {
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{
		{Token: tok(), Kind: ast.TypeDecl, Name: "Port", Type: rangedInt(1, 65535)},
	}}
	a, bag := analyze(t, unit)
	expectClean(t, bag)

	te := named("Port")
	first := a.ResolveType(te, a.Table().Global)
	second := a.ResolveType(te, a.Table().Global)
	if !typesystem.Equal(first, second) {
		t.Errorf("resolving the same expression twice differed: %s vs %s",
			first.String(), second.String())
	}
}
