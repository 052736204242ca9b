package typesystem

import (
	"math/big"
	"testing"
)

func rat(n int64) *big.Rat { return new(big.Rat).SetInt64(n) }

func TestEqualStructural(t *testing.T) {
	intT := Prim{Name: "Int"}
	strT := Prim{Name: "String"}

	testCases := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same_primitive", intT, intT, true},
		{"different_primitive", intT, strT, false},
		{"array_same_elem", Array{Elem: intT}, Array{Elem: intT}, true},
		{"array_different_elem", Array{Elem: intT}, Array{Elem: strT}, false},
		{
			"record_field_order_matters_for_type_not_equality",
			Record{Fields: []Field{{Name: "a", Type: intT}, {Name: "b", Type: strT}}},
			Record{Fields: []Field{{Name: "b", Type: strT}, {Name: "a", Type: intT}}},
			true,
		},
		{
			"record_missing_field",
			Record{Fields: []Field{{Name: "a", Type: intT}}},
			Record{Fields: []Field{{Name: "a", Type: intT}, {Name: "b", Type: strT}}},
			false,
		},
		{
			"union_order_insensitive",
			Union{Alts: []Type{intT, strT}},
			Union{Alts: []Type{strT, intT}},
			true,
		},
		{
			"union_different_alts",
			Union{Alts: []Type{intT, strT}},
			Union{Alts: []Type{intT, Prim{Name: "Bool"}}},
			false,
		},
		{
			"tuple_order_sensitive",
			Tuple{Elems: []Type{intT, strT}},
			Tuple{Elems: []Type{strT, intT}},
			false,
		},
		{
			"func_types",
			Func{Params: []Type{intT}, Return: strT},
			Func{Params: []Type{intT}, Return: strT},
			true,
		},
		{
			"constrained_same_predicate",
			Constrained{Base: intT, Pred: NewRange(rat(0), rat(10))},
			Constrained{Base: intT, Pred: NewRange(rat(0), rat(10))},
			true,
		},
		{
			"constrained_different_range",
			Constrained{Base: intT, Pred: NewRange(rat(0), rat(10))},
			Constrained{Base: intT, Pred: NewRange(rat(0), rat(20))},
			false,
		},
		{"state_same", State{Owner: "Conn", Name: "Open"}, State{Owner: "Conn", Name: "Open"}, true},
		{"state_different", State{Owner: "Conn", Name: "Open"}, State{Owner: "Conn", Name: "Closed"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tc.a.String(), tc.b.String(), got, tc.want)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	intT := Prim{Name: "Int"}
	strT := Prim{Name: "String"}
	floatT := Prim{Name: "Float"}
	port := Constrained{Base: intT, Pred: NewRange(rat(1), rat(65535))}

	testCases := []struct {
		name             string
		expected, actual Type
		want             bool
	}{
		{"identical", intT, intT, true},
		{"mismatch", intT, strT, false},
		{"numeric_classes_never_mix", intT, floatT, false},
		{"constrained_actual_widens_to_base", intT, port, true},
		{"base_does_not_narrow_statically", port, intT, false},
		{"pending_is_optimistic", intT, Pending{Name: "x"}, true},
		{"pending_expected_is_optimistic", Pending{Name: "x"}, strT, true},
		{"free_param_accepts_anything", Param{Name: "T"}, strT, true},
		{"free_param_in_array", Array{Elem: Param{Name: "T"}}, Array{Elem: intT}, true},
		{
			"union_first_match",
			Union{Alts: []Type{intT, strT}},
			strT,
			true,
		},
		{
			"union_no_match",
			Union{Alts: []Type{intT, strT}},
			floatT,
			false,
		},
		{
			"actual_union_needs_every_alt",
			Union{Alts: []Type{intT, strT, floatT}},
			Union{Alts: []Type{intT, strT}},
			true,
		},
		{
			"actual_union_with_stray_alt",
			Union{Alts: []Type{intT, strT}},
			Union{Alts: []Type{intT, floatT}},
			false,
		},
		{
			"record_width_subtyping",
			Record{Fields: []Field{{Name: "id", Type: intT}}},
			Record{Fields: []Field{{Name: "id", Type: intT}, {Name: "name", Type: strT}}},
			true,
		},
		{
			"record_optional_field_may_be_absent",
			Record{Fields: []Field{{Name: "id", Type: intT}, {Name: "tag", Type: strT, Optional: true}}},
			Record{Fields: []Field{{Name: "id", Type: intT}}},
			true,
		},
		{
			"record_required_field_must_be_present",
			Record{Fields: []Field{{Name: "id", Type: intT}, {Name: "tag", Type: strT}}},
			Record{Fields: []Field{{Name: "id", Type: intT}}},
			false,
		},
		{
			"intersection_requires_all",
			Intersection{Reqs: []Type{
				Record{Fields: []Field{{Name: "a", Type: intT}}},
				Record{Fields: []Field{{Name: "b", Type: strT}}},
			}},
			Record{Fields: []Field{{Name: "a", Type: intT}, {Name: "b", Type: strT}}},
			true,
		},
		{
			"actual_intersection_provides_any_member",
			intT,
			Intersection{Reqs: []Type{intT, Record{Fields: []Field{{Name: "a", Type: strT}}}}},
			true,
		},
		{
			"dep_array_same_literal_length",
			DepArray{Elem: intT, Length: Length{Known: true, N: 3}},
			DepArray{Elem: intT, Length: Length{Known: true, N: 3}},
			true,
		},
		{
			"dep_array_literal_length_mismatch",
			DepArray{Elem: intT, Length: Length{Known: true, N: 3}},
			DepArray{Elem: intT, Length: Length{Known: true, N: 4}},
			false,
		},
		{
			"dep_array_symbolic_degrades",
			DepArray{Elem: intT, Length: Length{Known: true, N: 3}},
			DepArray{Elem: intT, Length: Length{Sym: "n"}},
			true,
		},
		{
			"plain_array_accepts_dep_array",
			Array{Elem: intT},
			DepArray{Elem: intT, Length: Length{Known: true, N: 3}},
			true,
		},
		{
			"func_param_contravariance",
			Func{Params: []Type{port}, Return: intT},
			Func{Params: []Type{intT}, Return: intT},
			true,
		},
		{
			"func_return_covariance",
			Func{Params: nil, Return: intT},
			Func{Params: nil, Return: port},
			true,
		},
		{
			"func_effects_must_be_subset",
			Func{Params: nil, Return: intT, Effects: NewEffectSet("network")},
			Func{Params: nil, Return: intT, Effects: NewEffectSet("network", "filesystem")},
			false,
		},
		{
			"func_fewer_effects_ok",
			Func{Params: nil, Return: intT, Effects: NewEffectSet("network", "filesystem")},
			Func{Params: nil, Return: intT, Effects: NewEffectSet("network")},
			true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Compatible(tc.expected, tc.actual); got != tc.want {
				t.Errorf("Compatible(%s, %s) = %v, want %v",
					tc.expected.String(), tc.actual.String(), got, tc.want)
			}
		})
	}
}

func TestSubstApply(t *testing.T) {
	intT := Prim{Name: "Int"}
	sub := Subst{"T": intT}

	arr := Array{Elem: Param{Name: "T"}}
	got := arr.Apply(sub)
	if !Equal(got, Array{Elem: intT}) {
		t.Errorf("Apply left %s, want [Int]", got.String())
	}

	fn := Func{Params: []Type{Param{Name: "T"}}, Return: Param{Name: "U"}}
	applied := fn.Apply(sub).(Func)
	if !Equal(applied.Params[0], intT) {
		t.Errorf("parameter not substituted: %s", applied.Params[0].String())
	}
	if _, stillParam := applied.Return.(Param); !stillParam {
		t.Errorf("unbound parameter should survive substitution, got %s", applied.Return.String())
	}
}

func TestConformanceSatisfies(t *testing.T) {
	intT := Prim{Name: "Int"}
	strT := Prim{Name: "String"}
	iface := Record{Fields: []Field{
		{Name: "id", Type: intT},
		{Name: "name", Type: strT},
	}}

	c := NewConformance()

	full := Record{Fields: []Field{
		{Name: "id", Type: intT},
		{Name: "name", Type: strT},
		{Name: "extra", Type: strT},
	}}
	if ok, _ := c.Satisfies(full, iface); !ok {
		t.Errorf("record with extra members should satisfy the interface")
	}

	partial := Record{Fields: []Field{{Name: "id", Type: intT}}}
	ok, missing := c.Satisfies(partial, iface)
	if ok {
		t.Fatalf("partial record should not satisfy the interface")
	}
	if missing != "name" {
		t.Errorf("missing member = %q, want %q", missing, "name")
	}

	// Memoized second call must agree.
	if ok, _ := c.Satisfies(full, iface); !ok {
		t.Errorf("memoized result changed")
	}
}
