package analyzer

import (
	"sync"

	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/symbols"
	"github.com/assure-lang/assure/internal/typesystem"
)

var (
	builtinOnce  sync.Once
	builtinScope *symbols.Scope
)

// BuiltinScope returns the shared scope of builtin types and
// effect-producing primitive operations. It is built once and shared
// read-only across all unit tables.
func BuiltinScope() *symbols.Scope {
	builtinOnce.Do(func() {
		builtinScope = buildBuiltins()
	})
	return builtinScope
}

func prim(name string) typesystem.Prim { return typesystem.Prim{Name: name} }

var (
	intT     = prim(config.IntTypeName)
	floatT   = prim(config.FloatTypeName)
	decimalT = prim(config.DecimalTypeName)
	stringT  = prim(config.StringTypeName)
	boolT    = prim(config.BoolTypeName)
	nilT     = prim(config.NilTypeName)
)

func buildBuiltins() *symbols.Scope {
	scope := symbols.NewScope(symbols.ScopeBuiltin, "", nil)

	defineType := func(name string, t typesystem.Type) {
		_ = scope.Declare(name, &symbols.Symbol{
			Name: name, Qualified: name, Kind: symbols.TypeSymbol,
			Type: t, IsBuiltin: true,
		})
	}
	defineFunc := func(name string, params []typesystem.Type, ret typesystem.Type, effects ...string) {
		es := typesystem.NewEffectSet(effects...)
		_ = scope.Declare(name, &symbols.Symbol{
			Name: name, Qualified: name, Kind: symbols.FunctionSymbol,
			Type:      typesystem.Func{Params: params, Return: ret, Effects: es},
			Effects:   es,
			IsBuiltin: true,
		})
	}

	defineType(config.IntTypeName, intT)
	defineType(config.FloatTypeName, floatT)
	defineType(config.DecimalTypeName, decimalT)
	defineType(config.StringTypeName, stringT)
	defineType(config.BoolTypeName, boolT)
	defineType(config.NilTypeName, nilT)

	// Pure primitives. len measures strings and arrays alike.
	sizable := typesystem.Union{Alts: []typesystem.Type{
		stringT,
		typesystem.Array{Elem: typesystem.Param{Name: "T"}},
	}}
	defineFunc("len", []typesystem.Type{sizable}, intT)
	defineFunc("toFloat", []typesystem.Type{intT}, floatT)
	defineFunc("toInt", []typesystem.Type{floatT}, intT)
	defineFunc("toDecimal", []typesystem.Type{intT}, decimalT)
	defineFunc("abs", []typesystem.Type{intT}, intT)
	defineFunc("min", []typesystem.Type{intT, intT}, intT)
	defineFunc("max", []typesystem.Type{intT, intT}, intT)
	defineFunc("concat", []typesystem.Type{stringT, stringT}, stringT)

	// Effect-producing primitive operations. Using one of these
	// directly contributes its effect to the enclosing function's
	// observed set.
	defineFunc("httpGet", []typesystem.Type{stringT}, stringT, "network")
	defineFunc("httpPost", []typesystem.Type{stringT, stringT}, stringT, "network")
	defineFunc("tcpConnect", []typesystem.Type{stringT, intT}, nilT, "network")
	defineFunc("readFile", []typesystem.Type{stringT}, stringT, "filesystem")
	defineFunc("writeFile", []typesystem.Type{stringT, stringT}, nilT, "filesystem")
	defineFunc("dbQuery", []typesystem.Type{stringT}, typesystem.Array{Elem: stringT}, "database")
	defineFunc("dbExec", []typesystem.Type{stringT}, intT, "database")
	defineFunc("spawn", []typesystem.Type{stringT}, intT, "process")
	defineFunc("now", nil, intT, "time")
	defineFunc("randomInt", []typesystem.Type{intT}, intT, "random")
	defineFunc("print", []typesystem.Type{stringT}, nilT, "io")

	return scope
}
