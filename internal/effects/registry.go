package effects

import (
	"github.com/assure-lang/assure/internal/config"
	"github.com/assure-lang/assure/internal/typesystem"
)

// Registry holds the effect label hierarchy. Effects form a single
// level: a declared parent implicitly permits, but does not require,
// any of its children.
type Registry struct {
	parents map[string]string
	known   map[string]bool
}

// NewRegistry builds a registry from configured effect specs.
func NewRegistry(specs []config.EffectSpec) *Registry {
	r := &Registry{
		parents: make(map[string]string, len(specs)),
		known:   make(map[string]bool, len(specs)),
	}
	for _, s := range specs {
		r.known[s.Name] = true
		if s.Parent != "" {
			r.parents[s.Name] = s.Parent
		}
	}
	return r
}

// Known reports whether a label is registered.
func (r *Registry) Known(label string) bool { return r.known[label] }

// Permits reports whether a declared set allows an operation with the
// given effect label, directly or through the label's parent.
func (r *Registry) Permits(declared typesystem.EffectSet, label string) bool {
	if declared.Contains(label) {
		return true
	}
	if parent, ok := r.parents[label]; ok && declared.Contains(parent) {
		return true
	}
	return false
}

// PermitsSet reports whether declared allows every label in observed,
// returning the first offending label otherwise.
func (r *Registry) PermitsSet(declared, observed typesystem.EffectSet) (bool, string) {
	for _, label := range observed.Labels() {
		if !r.Permits(declared, label) {
			return false, label
		}
	}
	return true, ""
}
