package diagnostics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/assure-lang/assure/internal/token"
)

func at(line, col int) token.Token {
	return token.Token{File: "main.as", Line: line, Column: col}
}

func TestBagDeduplicates(t *testing.T) {
	bag := NewBag()
	bag.Add(NewError(TypeMismatch, at(3, 1), "cannot assign Float to Int"))
	bag.Add(NewError(TypeMismatch, at(3, 1), "cannot assign Float to Int"))
	bag.Add(NewError(TypeMismatch, at(3, 1), "cannot assign String to Int"))
	if bag.Len() != 2 {
		t.Errorf("Len = %d, want 2 after dedup", bag.Len())
	}
}

func TestBagSortsBySourcePosition(t *testing.T) {
	bag := NewBag()
	bag.Add(NewError(EffectViolation, at(9, 1), "third"))
	bag.Add(NewError(TypeMismatch, at(2, 5), "second"))
	bag.Add(NewError(UnresolvedSymbol, at(2, 1), "first"))
	all := bag.All()
	got := make([]string, len(all))
	for i, d := range all {
		got[i] = d.Message
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestWarningsAreNotFatal(t *testing.T) {
	bag := NewBag()
	bag.Add(NewWarning(DeprecatedAnnotation, at(1, 1), "use of deprecated symbol"))
	if bag.HasErrors() {
		t.Error("a warning alone must not make the bag fatal")
	}
	bag.Add(NewError(TypeMismatch, at(2, 1), "boom"))
	if !bag.HasErrors() {
		t.Error("an error makes the bag fatal")
	}
}

func TestDiagnosticError(t *testing.T) {
	d := NewError(ConstraintViolation, at(4, 2), "value 70000 outside @range(1, 65535)")
	want := "main.as:4:2: error [ConstraintViolation]: value 70000 outside @range(1, 65535)"
	if d.Error() != want {
		t.Errorf("Error() = %q, want %q", d.Error(), want)
	}
}

func TestFormatterPlain(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatterColor(&buf, false)
	d := NewWarning(DeprecatedAnnotation, at(7, 3), "marked deprecated")
	d.Decl = "main.fetch"
	if err := f.Write([]*Diagnostic{d}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := buf.String()
	want := "main.as:7:3: warning [DeprecatedAnnotation]: marked deprecated (in main.fetch)\n"
	if got != want {
		t.Errorf("formatted = %q, want %q", got, want)
	}
}

func TestFormatterColor(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatterColor(&buf, true)
	line := f.Line(NewError(TypeMismatch, at(1, 1), "boom"))
	if !strings.Contains(line, ansiRed) || !strings.Contains(line, ansiReset) {
		t.Errorf("colored line missing escapes: %q", line)
	}
	warn := f.Line(NewWarning(DeprecatedAnnotation, at(1, 1), "old"))
	if !strings.Contains(warn, ansiYellow) {
		t.Errorf("warning line not yellow: %q", warn)
	}
}
