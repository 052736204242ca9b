package typesystem

import (
	"sort"
	"strings"
)

// EffectSet is a set of effect labels attached to a function type or
// declaration. The empty set denotes purity.
type EffectSet map[string]struct{}

// NewEffectSet builds a set from labels.
func NewEffectSet(labels ...string) EffectSet {
	s := make(EffectSet, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

func (s EffectSet) Empty() bool { return len(s) == 0 }

func (s EffectSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

func (s EffectSet) Add(label string) {
	s[label] = struct{}{}
}

// Union returns a new set containing both operands' labels.
func (s EffectSet) Union(other EffectSet) EffectSet {
	out := s.Clone()
	for l := range other {
		out[l] = struct{}{}
	}
	return out
}

func (s EffectSet) Clone() EffectSet {
	out := make(EffectSet, len(s))
	for l := range s {
		out[l] = struct{}{}
	}
	return out
}

// SubsetOf reports whether every label of s is present in other. This
// is the plain label check; hierarchy-aware permission lives in the
// effect checker's registry.
func (s EffectSet) SubsetOf(other EffectSet) bool {
	for l := range s {
		if !other.Contains(l) {
			return false
		}
	}
	return true
}

// Labels returns the labels in sorted order.
func (s EffectSet) Labels() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (s EffectSet) String() string {
	if s.Empty() {
		return "@pure"
	}
	return "@effects(" + strings.Join(s.Labels(), ", ") + ")"
}

// Equal compares sets by membership.
func (s EffectSet) Equal(other EffectSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}
