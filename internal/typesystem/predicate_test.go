package typesystem

import (
	"math/big"
	"testing"
)

func TestRangePredicate(t *testing.T) {
	p := NewRange(rat(1), rat(65535))

	testCases := []struct {
		name string
		v    int64
		want bool
	}{
		{"low_edge", 1, true},
		{"high_edge", 65535, true},
		{"inside", 8080, true},
		{"below", 0, false},
		{"above", 65536, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.CheckNumeric(rat(tc.v)); got != tc.want {
				t.Errorf("CheckNumeric(%d) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}

	if p.CheckString("8080") {
		t.Errorf("range predicate should reject string values")
	}
}

func TestHalfOpenRange(t *testing.T) {
	noLower := NewRange(nil, rat(10))
	if !noLower.CheckNumeric(rat(-1000000)) {
		t.Errorf("missing lower bound should accept any small value")
	}
	if noLower.CheckNumeric(rat(11)) {
		t.Errorf("upper bound still applies")
	}

	noUpper := NewRange(rat(0), nil)
	if !noUpper.CheckNumeric(rat(1000000)) {
		t.Errorf("missing upper bound should accept any large value")
	}
	if noUpper.CheckNumeric(rat(-1)) {
		t.Errorf("lower bound still applies")
	}
}

func TestPatternPredicate(t *testing.T) {
	p, err := NewPattern(`^[a-z]+@[a-z]+\.[a-z]{2,}$`)
	if err != nil {
		t.Fatalf("pattern failed to compile: %s", err)
	}

	if !p.CheckString("user@example.com") {
		t.Errorf("valid address rejected")
	}
	if p.CheckString("not-an-address") {
		t.Errorf("invalid address accepted")
	}
	if p.CheckNumeric(rat(5)) {
		t.Errorf("pattern predicate should reject numeric values")
	}

	if _, err := NewPattern("(unclosed"); err == nil {
		t.Errorf("invalid regular expression should fail to compile")
	}
}

func TestEnumPredicate(t *testing.T) {
	p := NewEnum([]EnumVal{
		{IsStr: true, Str: "red"},
		{IsStr: true, Str: "green"},
		{Num: rat(404)},
	})

	if !p.CheckString("red") {
		t.Errorf("listed string rejected")
	}
	if p.CheckString("blue") {
		t.Errorf("unlisted string accepted")
	}
	if !p.CheckNumeric(rat(404)) {
		t.Errorf("listed number rejected")
	}
	if p.CheckNumeric(rat(200)) {
		t.Errorf("unlisted number accepted")
	}
}

func TestPredicateString(t *testing.T) {
	r := NewRange(rat(0), rat(100))
	if r.String() != "@range(0..100)" {
		t.Errorf("range String() = %q", r.String())
	}
	fracture := NewRange(new(big.Rat).SetFrac64(1, 2), nil)
	if fracture.String() == "" {
		t.Errorf("half-open range should still render")
	}
}
