package symbols

import (
	"errors"
	"testing"

	"github.com/assure-lang/assure/internal/ast"
	"github.com/assure-lang/assure/internal/token"
)

func tok(line, col int) token.Token {
	return token.Token{File: "test.as", Line: line, Column: col}
}

func varDecl(name string, line int) *ast.Decl {
	return &ast.Decl{Token: tok(line, 1), Kind: ast.VarDecl, Name: name}
}

func TestIngestDeclaresEveryEntity(t *testing.T) {
	unit := &ast.Unit{
		Name: "main",
		Decls: []*ast.Decl{
			varDecl("x", 1),
			{Token: tok(2, 1), Kind: ast.FuncDecl, Name: "f"},
			{Token: tok(3, 1), Kind: ast.NamespaceDecl, Name: "util", Members: []*ast.Decl{
				varDecl("y", 4),
			}},
		},
	}

	table := NewTable("main", nil)
	if errs := table.Ingest(unit); len(errs) != 0 {
		t.Fatalf("unexpected ingest errors: %v", errs)
	}

	declared := table.Declared()
	if len(declared) != 4 {
		t.Fatalf("declared %d symbols, want 4", len(declared))
	}
	wantQualified := []string{"main.x", "main.f", "main.util", "main.util.y"}
	for i, q := range wantQualified {
		if declared[i].Qualified != q {
			t.Errorf("declared[%d].Qualified = %q, want %q", i, declared[i].Qualified, q)
		}
		if !declared[i].IsPending {
			t.Errorf("%s should start pending", q)
		}
	}

	sym, err := table.Resolve("util.y", table.Global)
	if err != nil {
		t.Fatalf("dotted resolution failed: %s", err)
	}
	if sym.Qualified != "main.util.y" {
		t.Errorf("resolved %q, want main.util.y", sym.Qualified)
	}
}

func TestIngestReportsEveryDuplicate(t *testing.T) {
	unit := &ast.Unit{
		Name: "main",
		Decls: []*ast.Decl{
			varDecl("x", 1),
			varDecl("x", 2),
			varDecl("x", 3),
		},
	}

	table := NewTable("main", nil)
	errs := table.Ingest(unit)
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2 (one per redeclaration)", len(errs))
	}
	for _, err := range errs {
		if !errors.Is(err, ErrDuplicateSymbol) {
			t.Errorf("error %v should wrap ErrDuplicateSymbol", err)
		}
		var dup *DuplicateError
		if !errors.As(err, &dup) {
			t.Fatalf("error %v is not a DuplicateError", err)
		}
		if dup.New == nil || dup.New.Decl == nil {
			t.Errorf("duplicate error should carry the colliding declaration")
		}
	}
}

func TestResolveWalksOutward(t *testing.T) {
	global := NewScope(ScopeGlobal, "main", nil)
	fn := NewScope(ScopeFunction, "f", global)
	block := NewScope(ScopeBlock, "", fn)

	outer := &Symbol{Name: "x", Qualified: "main.x"}
	inner := &Symbol{Name: "x", Qualified: "main.f.x"}
	if err := global.Declare("x", outer); err != nil {
		t.Fatal(err)
	}
	if err := fn.Declare("x", inner); err != nil {
		t.Fatal(err)
	}

	got, err := block.Resolve("x")
	if err != nil {
		t.Fatalf("resolve failed: %s", err)
	}
	if got != inner {
		t.Errorf("nearest binding should shadow the outer one")
	}

	if _, err := block.Resolve("missing"); !errors.Is(err, ErrUnresolvedSymbol) {
		t.Errorf("unknown name should be ErrUnresolvedSymbol, got %v", err)
	}
}

func TestOpenImportAmbiguity(t *testing.T) {
	libA := NewScope(ScopeNamespace, "a", nil)
	libB := NewScope(ScopeNamespace, "b", nil)
	symA := &Symbol{Name: "parse", Qualified: "a.parse"}
	symB := &Symbol{Name: "parse", Qualified: "b.parse"}
	if err := libA.Declare("parse", symA); err != nil {
		t.Fatal(err)
	}
	if err := libB.Declare("parse", symB); err != nil {
		t.Fatal(err)
	}

	scope := NewScope(ScopeGlobal, "main", nil)
	scope.Import("", "a", libA)
	scope.Import("", "b", libB)

	_, err := scope.Resolve("parse")
	if !errors.Is(err, ErrAmbiguousImport) {
		t.Fatalf("two open imports of the same name should be ambiguous, got %v", err)
	}

	// A local declaration beats imports outright.
	local := &Symbol{Name: "parse", Qualified: "main.parse"}
	if err := scope.Declare("parse", local); err != nil {
		t.Fatal(err)
	}
	got, err := scope.Resolve("parse")
	if err != nil || got != local {
		t.Errorf("local binding should win over imports, got %v, %v", got, err)
	}
}

func TestAliasedImport(t *testing.T) {
	lib := NewScope(ScopeNamespace, "strings", nil)
	sym := &Symbol{Name: "trim", Qualified: "strings.trim"}
	if err := lib.Declare("trim", sym); err != nil {
		t.Fatal(err)
	}

	table := NewTable("main", nil)
	table.Global.Import("str", "strings", lib)

	got, err := table.Resolve("str.trim", table.Global)
	if err != nil {
		t.Fatalf("aliased resolution failed: %s", err)
	}
	if got != sym {
		t.Errorf("resolved wrong symbol: %v", got)
	}

	// The alias does not leak the unqualified name.
	if _, err := table.Resolve("trim", table.Global); !errors.Is(err, ErrUnresolvedSymbol) {
		t.Errorf("aliased import should not bind the bare name, got %v", err)
	}
}

func TestIndexLookup(t *testing.T) {
	unit := &ast.Unit{Name: "main", Decls: []*ast.Decl{varDecl("x", 1)}}
	table := NewTable("main", nil)
	if errs := table.Ingest(unit); len(errs) != 0 {
		t.Fatal(errs)
	}

	idx := NewIndex()
	idx.AddUnit(table)
	if _, ok := idx.Lookup("main.x"); !ok {
		t.Errorf("indexed symbol not found")
	}
	if _, ok := idx.Lookup("main.y"); ok {
		t.Errorf("unknown name should not resolve")
	}
}
