package typesystem

import "testing"

func TestEffectSetSubset(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     EffectSet
		isSubset bool
	}{
		{"empty_of_empty", NewEffectSet(), NewEffectSet(), true},
		{"empty_of_any", NewEffectSet(), NewEffectSet("network"), true},
		{"any_of_empty", NewEffectSet("network"), NewEffectSet(), false},
		{"same", NewEffectSet("network"), NewEffectSet("network"), true},
		{"strict_subset", NewEffectSet("network"), NewEffectSet("network", "filesystem"), true},
		{"disjoint", NewEffectSet("time"), NewEffectSet("network"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.SubsetOf(tc.b); got != tc.isSubset {
				t.Errorf("%s.SubsetOf(%s) = %v, want %v", tc.a.String(), tc.b.String(), got, tc.isSubset)
			}
		})
	}
}

func TestEffectSetString(t *testing.T) {
	if got := NewEffectSet().String(); got != "@pure" {
		t.Errorf("empty set renders %q, want @pure", got)
	}
	if got := NewEffectSet("network", "database").String(); got != "@effects(database, network)" {
		t.Errorf("labels should be sorted: %q", got)
	}
}

func TestEffectSetUnionClone(t *testing.T) {
	a := NewEffectSet("network")
	b := NewEffectSet("time")
	u := a.Union(b)
	if !u.Contains("network") || !u.Contains("time") {
		t.Fatalf("union lost a label: %s", u.String())
	}
	if a.Contains("time") {
		t.Errorf("union must not mutate its receiver")
	}

	c := a.Clone()
	c.Add("random")
	if a.Contains("random") {
		t.Errorf("clone must be independent of the original")
	}
}
