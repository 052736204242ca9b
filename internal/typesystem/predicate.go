package typesystem

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// EnumVal is one member of an explicit enumerated value set.
type EnumVal struct {
	IsStr bool
	Str   string
	Num   *big.Rat
}

func (v EnumVal) String() string {
	if v.IsStr {
		return fmt.Sprintf("%q", v.Str)
	}
	return v.Num.RatString()
}

// Predicate is the executable guard of a constrained primitive.
// Exactly one of the three forms is populated: a numeric range, a
// compiled pattern, or an enumerated value set.
type Predicate struct {
	Lo, Hi *big.Rat       // inclusive bounds; either may be nil
	Re     *regexp.Regexp // compiled pattern
	ReSrc  string
	Enum   []EnumVal
}

// NewRange builds a range predicate. Bounds are inclusive.
func NewRange(lo, hi *big.Rat) *Predicate {
	return &Predicate{Lo: lo, Hi: hi}
}

// NewPattern compiles a regex predicate.
func NewPattern(src string) (*Predicate, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	return &Predicate{Re: re, ReSrc: src}, nil
}

// NewEnum builds an enumerated value set predicate.
func NewEnum(vals []EnumVal) *Predicate {
	return &Predicate{Enum: vals}
}

// CheckNumeric evaluates the guard against a statically known number.
func (p *Predicate) CheckNumeric(v *big.Rat) bool {
	if p.Re != nil {
		return false
	}
	if len(p.Enum) > 0 {
		for _, e := range p.Enum {
			if !e.IsStr && e.Num.Cmp(v) == 0 {
				return true
			}
		}
		return false
	}
	if p.Lo != nil && v.Cmp(p.Lo) < 0 {
		return false
	}
	if p.Hi != nil && v.Cmp(p.Hi) > 0 {
		return false
	}
	return true
}

// CheckString evaluates the guard against a statically known string.
func (p *Predicate) CheckString(s string) bool {
	if p.Re != nil {
		return p.Re.MatchString(s)
	}
	if len(p.Enum) > 0 {
		for _, e := range p.Enum {
			if e.IsStr && e.Str == s {
				return true
			}
		}
		return false
	}
	// A range predicate never accepts a string.
	return false
}

func (p *Predicate) String() string {
	switch {
	case p.Re != nil:
		return fmt.Sprintf("@pattern(%q)", p.ReSrc)
	case len(p.Enum) > 0:
		parts := make([]string, len(p.Enum))
		for i, e := range p.Enum {
			parts[i] = e.String()
		}
		return fmt.Sprintf("@oneOf(%s)", strings.Join(parts, ", "))
	default:
		lo, hi := "", ""
		if p.Lo != nil {
			lo = p.Lo.RatString()
		}
		if p.Hi != nil {
			hi = p.Hi.RatString()
		}
		return fmt.Sprintf("@range(%s..%s)", lo, hi)
	}
}

// Equal compares predicates structurally.
func (p *Predicate) Equal(other *Predicate) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.String() == other.String()
}
