package verify

import (
	"math/big"
	"strings"

	"github.com/assure-lang/assure/internal/config"
)

// Generator produces up to n sample values for a forAll domain.
// Samples should come in roughly increasing size so the first failure
// found is close to minimal.
type Generator func(n int) []Value

// Generators is the registry consulted by forAll harnesses. Domains
// are matched by name; user domains are registered externally through
// engine options.
type Generators struct {
	byDomain map[string]Generator
}

func NewGenerators() *Generators {
	return &Generators{byDomain: make(map[string]Generator)}
}

// Register binds a generator to a domain name, replacing any previous
// binding.
func (g *Generators) Register(domain string, gen Generator) {
	g.byDomain[domain] = gen
}

func (g *Generators) Lookup(domain string) (Generator, bool) {
	gen, ok := g.byDomain[domain]
	return gen, ok
}

// Builtin returns a registry covering the primitive domains. The
// sequences are deterministic: verification results must be
// reproducible across runs.
func Builtin() *Generators {
	g := NewGenerators()
	g.Register(config.IntTypeName, intSamples)
	g.Register(config.FloatTypeName, floatSamples)
	g.Register(config.DecimalTypeName, floatSamples)
	g.Register(config.StringTypeName, stringSamples)
	g.Register(config.BoolTypeName, boolSamples)
	return g
}

// intSamples walks outward from zero, then doubles toward the int64
// edges.
func intSamples(n int) []Value {
	out := make([]Value, 0, n)
	emit := func(v int64) bool {
		out = append(out, NumInt(v))
		return len(out) < n
	}
	for i := int64(0); i <= 16; i++ {
		if !emit(i) || (i != 0 && !emit(-i)) {
			return out
		}
	}
	for v := int64(32); v > 0; v *= 2 {
		if !emit(v) || !emit(-v) {
			return out
		}
	}
	emit(int64(1)<<62 - 1)
	return out
}

func floatSamples(n int) []Value {
	seeds := []string{
		"0", "1", "-1", "1/2", "-1/2", "1/10", "-1/10", "3/2",
		"10", "-10", "100", "1000000", "-1000000", "1/1000000",
	}
	out := make([]Value, 0, n)
	for _, s := range seeds {
		if len(out) == n {
			return out
		}
		r, _ := new(big.Rat).SetString(s)
		out = append(out, Num(r))
	}
	step := new(big.Rat).SetInt64(7)
	cur := new(big.Rat).SetInt64(2)
	for len(out) < n {
		cur = new(big.Rat).Mul(cur, step)
		out = append(out, Num(cur))
	}
	return out
}

func stringSamples(n int) []Value {
	seeds := []string{"", "a", " ", "0", "abc", "hello world", "ABC", "\n", "ñ"}
	out := make([]Value, 0, n)
	for _, s := range seeds {
		if len(out) == n {
			return out
		}
		out = append(out, Str(s))
	}
	for i := 1; len(out) < n; i++ {
		out = append(out, Str(strings.Repeat("x", i)))
	}
	return out
}

func boolSamples(n int) []Value {
	out := []Value{Bool(false), Bool(true)}
	if n < len(out) {
		return out[:n]
	}
	return out
}
