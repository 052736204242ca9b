package diagnostics

import (
	"fmt"
	"sort"

	"github.com/assure-lang/assure/internal/token"
)

// ErrorCode identifies the kind of a diagnostic. Codes are grouped by
// the pipeline stage that produces them.
type ErrorCode string

const (
	// Symbol stage.
	DuplicateSymbol  ErrorCode = "DuplicateSymbol"
	UnresolvedSymbol ErrorCode = "UnresolvedSymbol"
	AmbiguousImport  ErrorCode = "AmbiguousImport"

	// Type stage.
	ConstraintViolation ErrorCode = "ConstraintViolation"
	TypeMismatch        ErrorCode = "TypeMismatch"
	UnresolvedRecursion ErrorCode = "UnresolvedRecursion"

	// Effect stage.
	EffectViolation ErrorCode = "EffectViolation"
	ImpureContract  ErrorCode = "ImpureContract"

	// Template / typestate stage.
	IncompleteInstance ErrorCode = "IncompleteInstance"
	SignatureMismatch  ErrorCode = "SignatureMismatch"
	TemplateConflict   ErrorCode = "TemplateConflict"
	InvalidTransition  ErrorCode = "InvalidTransition"

	// Verification stage.
	VerificationFailure  ErrorCode = "VerificationFailure"
	VerificationTimeout  ErrorCode = "VerificationTimeout"
	NoGeneratorForDomain ErrorCode = "NoGeneratorForDomain"

	// Warnings.
	DeprecatedAnnotation ErrorCode = "DeprecatedAnnotation"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single analysis finding tied to a source position
// and the declaration it was produced for.
type Diagnostic struct {
	Code     ErrorCode
	Severity Severity
	Token    token.Token
	Decl     string // qualified name of the originating declaration, if known
	Message  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s [%s]: %s", d.Token, d.Severity, d.Code, d.Message)
}

// IsFatal reports whether this diagnostic blocks later stages.
func (d *Diagnostic) IsFatal() bool {
	return d.Severity == SeverityError
}

// NewError creates an error-severity diagnostic.
func NewError(code ErrorCode, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Token:    tok,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NewWarning creates a warning-severity diagnostic. Warnings never
// block stage progression.
func NewWarning(code ErrorCode, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		Token:    tok,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Bag collects diagnostics for one compilation unit, deduplicating by
// position and code so repeated resolution passes do not multiply
// findings.
type Bag struct {
	set map[string]*Diagnostic
}

func NewBag() *Bag {
	return &Bag{set: make(map[string]*Diagnostic)}
}

func (b *Bag) Add(d *Diagnostic) {
	if d == nil {
		return
	}
	key := fmt.Sprintf("%s:%d:%d:%s:%s", d.Token.File, d.Token.Line, d.Token.Column, d.Code, d.Message)
	b.set[key] = d
}

func (b *Bag) AddAll(ds []*Diagnostic) {
	for _, d := range ds {
		b.Add(d)
	}
}

// HasErrors reports whether the bag contains at least one
// error-severity diagnostic.
func (b *Bag) HasErrors() bool {
	for _, d := range b.set {
		if d.IsFatal() {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int { return len(b.set) }

// All returns the collected diagnostics sorted by source position,
// errors and warnings interleaved in source order.
func (b *Bag) All() []*Diagnostic {
	out := make([]*Diagnostic, 0, len(b.set))
	for _, d := range b.set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Token != out[j].Token {
			return out[i].Token.Before(out[j].Token)
		}
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Message < out[j].Message
	})
	return out
}
