package symbols

type ScopeType int

const (
	ScopeBuiltin ScopeType = iota // built-in symbols (types, effectful primitives)
	ScopeGlobal                   // unit top-level
	ScopeNamespace
	ScopeFunction
	ScopeBlock
)

// Scope is one node of the scope tree. A child scope may shadow but
// never removes a parent binding. Imports are aliasing edges to other
// scopes, not copies of their bindings.
type Scope struct {
	Kind     ScopeType
	Name     string // namespace/function name; empty for blocks
	parent   *Scope
	bindings map[string]*Symbol
	order    []string // declaration order, for deterministic iteration
	imports  []importEdge
}

type importEdge struct {
	alias  string // empty for open imports
	source string // diagnostic label for the import source
	target *Scope
}

func NewScope(kind ScopeType, name string, parent *Scope) *Scope {
	return &Scope{
		Kind:     kind,
		Name:     name,
		parent:   parent,
		bindings: make(map[string]*Symbol),
	}
}

func (s *Scope) Parent() *Scope { return s.parent }

// Declare binds name in this scope. It fails with a DuplicateError if
// the name is already bound here; shadowing an outer binding is fine.
func (s *Scope) Declare(name string, sym *Symbol) error {
	if prev, ok := s.bindings[name]; ok {
		return &DuplicateError{Name: name, Prev: prev, New: sym}
	}
	s.bindings[name] = sym
	s.order = append(s.order, name)
	return nil
}

// Import adds an aliasing edge to another scope. With a non-empty
// alias, names resolve as alias.name; with an empty alias the target's
// bindings become visible unqualified.
func (s *Scope) Import(alias, source string, target *Scope) {
	s.imports = append(s.imports, importEdge{alias: alias, source: source, target: target})
}

// Local returns the binding made directly in this scope, if any.
func (s *Scope) Local(name string) (*Symbol, bool) {
	sym, ok := s.bindings[name]
	return sym, ok
}

// Resolve walks enclosing scopes outward, then imported namespaces,
// returning the nearest binding. Two open imports providing the same
// name with different symbols is an AmbiguousError.
func (s *Scope) Resolve(name string) (*Symbol, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.bindings[name]; ok {
			return sym, nil
		}
	}
	var found *Symbol
	var sources []string
	for cur := s; cur != nil; cur = cur.parent {
		for _, edge := range cur.imports {
			if edge.alias != "" {
				continue
			}
			if sym, ok := edge.target.bindings[name]; ok {
				if found != nil && found != sym {
					sources = append(sources, edge.source)
					continue
				}
				if found == nil {
					found = sym
					sources = append(sources, edge.source)
				}
			}
		}
	}
	if len(sources) > 1 {
		return nil, &AmbiguousError{Name: name, Sources: sources}
	}
	if found != nil {
		return found, nil
	}
	return nil, &UnresolvedError{Name: name}
}

// resolveAlias finds an aliased import edge by name, walking outward.
func (s *Scope) resolveAlias(alias string) (*Scope, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		for _, edge := range cur.imports {
			if edge.alias == alias {
				return edge.target, true
			}
		}
	}
	return nil, false
}

// Names returns locally declared names in declaration order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
