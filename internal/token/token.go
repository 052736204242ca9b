package token

import "fmt"

// Token records the source position of a node or diagnostic.
// The engine never sees raw source text; positions are carried over
// from the external parser so diagnostics can point back at it.
type Token struct {
	File    string
	Line    int
	Column  int
	Literal string
}

func (t Token) String() string {
	if t.File == "" {
		return fmt.Sprintf("%d:%d", t.Line, t.Column)
	}
	return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
}

// IsZero reports whether the token carries no position information.
func (t Token) IsZero() bool {
	return t.File == "" && t.Line == 0 && t.Column == 0
}

// Before reports whether t precedes other in source order.
// Used to sort diagnostics deterministically.
func (t Token) Before(other Token) bool {
	if t.File != other.File {
		return t.File < other.File
	}
	if t.Line != other.Line {
		return t.Line < other.Line
	}
	return t.Column < other.Column
}
