package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface for all types in our system. Types are
// immutable values; resolution produces new types rather than mutating
// old ones, which keeps ResolveType idempotent.
type Type interface {
	String() string
	Apply(Subst) Type
}

// Subst maps generic parameter names to types.
type Subst map[string]Type

// Compose combines two substitutions, s1 taking precedence.
func (s1 Subst) Compose(s2 Subst) Subst {
	out := Subst{}
	for k, v := range s2 {
		out[k] = v
	}
	for k, v := range s1 {
		out[k] = v.Apply(s2)
	}
	return out
}

// Prim is a builtin primitive type.
type Prim struct {
	Name string
}

func (t Prim) String() string   { return t.Name }
func (t Prim) Apply(Subst) Type { return t }

// Constrained refines a base primitive with an executable predicate.
// The predicate is a guard, not metadata: statically known values are
// checked against it at analysis time, everything else gets a runtime
// guard obligation.
type Constrained struct {
	Base Type
	Pred *Predicate
}

func (t Constrained) String() string {
	return fmt.Sprintf("%s %s", t.Base.String(), t.Pred.String())
}

func (t Constrained) Apply(s Subst) Type {
	return Constrained{Base: t.Base.Apply(s), Pred: t.Pred}
}

// Array is a homogeneous array type.
type Array struct {
	Elem Type
}

func (t Array) String() string { return fmt.Sprintf("Array<%s>", t.Elem.String()) }
func (t Array) Apply(s Subst) Type {
	return Array{Elem: t.Elem.Apply(s)}
}

// Map is a key/value map type.
type Map struct {
	Key   Type
	Value Type
}

func (t Map) String() string {
	return fmt.Sprintf("Map<%s, %s>", t.Key.String(), t.Value.String())
}

func (t Map) Apply(s Subst) Type {
	return Map{Key: t.Key.Apply(s), Value: t.Value.Apply(s)}
}

// Tuple is a fixed-arity heterogeneous sequence.
type Tuple struct {
	Elems []Type
}

func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

func (t Tuple) Apply(s Subst) Type {
	elems := make([]Type, len(t.Elems))
	for i, e := range t.Elems {
		elems[i] = e.Apply(s)
	}
	return Tuple{Elems: elems}
}

// Field is one record field.
type Field struct {
	Name     string
	Type     Type
	Optional bool
}

// Record is an ordered field list. Order is preserved for diagnostics;
// equality is by field set.
type Record struct {
	Fields []Field
}

// Field returns the field with the given name and whether it exists.
func (t Record) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (t Record) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		opt := ""
		if f.Optional {
			opt = "?"
		}
		parts[i] = fmt.Sprintf("%s%s: %s", f.Name, opt, f.Type.String())
	}
	return fmt.Sprintf("{ %s }", strings.Join(parts, ", "))
}

func (t Record) Apply(s Subst) Type {
	fields := make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = Field{Name: f.Name, Type: f.Type.Apply(s), Optional: f.Optional}
	}
	return Record{Fields: fields}
}

// Union is a set of alternatives. Declaration order is preserved
// because checking uses a first-match policy; equality ignores order.
type Union struct {
	Alts []Type
}

func (t Union) String() string {
	parts := make([]string, len(t.Alts))
	for i, a := range t.Alts {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (t Union) Apply(s Subst) Type {
	alts := make([]Type, len(t.Alts))
	for i, a := range t.Alts {
		alts[i] = a.Apply(s)
	}
	return Union{Alts: alts}
}

// canonicalAlts returns the alternatives' strings sorted, for
// order-insensitive equality.
func (t Union) canonicalAlts() []string {
	out := make([]string, len(t.Alts))
	for i, a := range t.Alts {
		out[i] = a.String()
	}
	sort.Strings(out)
	return out
}

// Intersection requires all member types simultaneously.
type Intersection struct {
	Reqs []Type
}

func (t Intersection) String() string {
	parts := make([]string, len(t.Reqs))
	for i, r := range t.Reqs {
		parts[i] = r.String()
	}
	return strings.Join(parts, " & ")
}

func (t Intersection) Apply(s Subst) Type {
	reqs := make([]Type, len(t.Reqs))
	for i, r := range t.Reqs {
		reqs[i] = r.Apply(s)
	}
	return Intersection{Reqs: reqs}
}

// Param is a generic parameter with its structural requirements.
type Param struct {
	Name          string
	Bound         Type // optional interface bound; nil when unbounded
	HasProperties []string
}

func (t Param) String() string { return t.Name }

func (t Param) Apply(s Subst) Type {
	if r, ok := s[t.Name]; ok {
		return r
	}
	return t
}

// Inst is an instantiated generic: a named template or generic type
// applied to concrete arguments.
type Inst struct {
	Name string
	Args []Type
}

func (t Inst) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", t.Name, strings.Join(parts, ", "))
}

func (t Inst) Apply(s Subst) Type {
	args := make([]Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.Apply(s)
	}
	return Inst{Name: t.Name, Args: args}
}

// Length is a dependent-array length: either a literal constant or a
// symbolic name whose value is only known at runtime.
type Length struct {
	Known bool
	N     int64
	Sym   string
}

func (l Length) String() string {
	if l.Known {
		return fmt.Sprintf("%d", l.N)
	}
	return l.Sym
}

// DepArray is a length-indexed array. Symbolic lengths degrade length
// checks to runtime obligations.
type DepArray struct {
	Elem   Type
	Length Length
}

func (t DepArray) String() string {
	return fmt.Sprintf("Array<%s, %s>", t.Elem.String(), t.Length.String())
}

func (t DepArray) Apply(s Subst) Type {
	return DepArray{Elem: t.Elem.Apply(s), Length: t.Length}
}

// Func is a function type with its declared effect set.
type Func struct {
	Params  []Type
	Return  Type
	Effects EffectSet
}

func (t Func) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	ret := "Nil"
	if t.Return != nil {
		ret = t.Return.String()
	}
	s := fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), ret)
	if !t.Effects.Empty() {
		s += " " + t.Effects.String()
	}
	return s
}

func (t Func) Apply(s Subst) Type {
	params := make([]Type, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.Apply(s)
	}
	var ret Type
	if t.Return != nil {
		ret = t.Return.Apply(s)
	}
	return Func{Params: params, Return: ret, Effects: t.Effects.Clone()}
}

// State is one state of a typestate interface, treated as a distinct
// type. Owner is the declaring typestate interface.
type State struct {
	Owner string
	Name  string
}

func (t State) String() string   { return fmt.Sprintf("%s.%s", t.Owner, t.Name) }
func (t State) Apply(Subst) Type { return t }

// Pending is the optimistic placeholder used while mutually recursive
// declarations are being resolved. A Pending type surviving the
// fixed-point loop means the cycle never converged.
type Pending struct {
	Name string
}

func (t Pending) String() string   { return fmt.Sprintf("<pending %s>", t.Name) }
func (t Pending) Apply(Subst) Type { return t }

// ContainsPending reports whether any part of t is still unresolved.
func ContainsPending(t Type) bool {
	switch tt := t.(type) {
	case nil:
		return false
	case Pending:
		return true
	case Constrained:
		return ContainsPending(tt.Base)
	case Array:
		return ContainsPending(tt.Elem)
	case Map:
		return ContainsPending(tt.Key) || ContainsPending(tt.Value)
	case Tuple:
		for _, e := range tt.Elems {
			if ContainsPending(e) {
				return true
			}
		}
	case Record:
		for _, f := range tt.Fields {
			if ContainsPending(f.Type) {
				return true
			}
		}
	case Union:
		for _, a := range tt.Alts {
			if ContainsPending(a) {
				return true
			}
		}
	case Intersection:
		for _, r := range tt.Reqs {
			if ContainsPending(r) {
				return true
			}
		}
	case Inst:
		for _, a := range tt.Args {
			if ContainsPending(a) {
				return true
			}
		}
	case DepArray:
		return ContainsPending(tt.Elem)
	case Func:
		for _, p := range tt.Params {
			if ContainsPending(p) {
				return true
			}
		}
		return ContainsPending(tt.Return)
	}
	return false
}

// IsNumeric reports whether t is one of the numeric primitives.
// Int, Float, and Decimal never mix implicitly.
func IsNumeric(t Type) bool {
	p, ok := t.(Prim)
	return ok && (p.Name == "Int" || p.Name == "Float" || p.Name == "Decimal")
}

// BaseOf unwraps constrained types to their base primitive.
func BaseOf(t Type) Type {
	for {
		c, ok := t.(Constrained)
		if !ok {
			return t
		}
		t = c.Base
	}
}
