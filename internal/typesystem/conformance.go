package typesystem

import "fmt"

// Conformance memoizes structural interface satisfaction per
// (type, interface) pair. A type satisfies an interface iff its member
// table contains a compatible entry for every required named member:
// width subtyping, no depth coercion beyond compatible field types.
type Conformance struct {
	memo map[string]conformResult
}

type conformResult struct {
	ok      bool
	missing string
}

func NewConformance() *Conformance {
	return &Conformance{memo: make(map[string]conformResult)}
}

// Satisfies checks t against the interface described by iface, which
// models required members as record fields (operations are func-typed
// fields). On failure it returns the first unsatisfied member name.
func (c *Conformance) Satisfies(t Type, iface Record) (bool, string) {
	key := fmt.Sprintf("%s |= %s", t.String(), iface.String())
	if r, ok := c.memo[key]; ok {
		return r.ok, r.missing
	}
	ok, missing := c.check(t, iface)
	c.memo[key] = conformResult{ok: ok, missing: missing}
	return ok, missing
}

func (c *Conformance) check(t Type, iface Record) (bool, string) {
	members, ok := memberTable(t)
	if !ok {
		return false, iface.firstFieldName()
	}
	for _, req := range iface.Fields {
		got, found := members.Field(req.Name)
		if !found {
			if req.Optional {
				continue
			}
			return false, req.Name
		}
		if !Compatible(req.Type, got.Type) {
			return false, req.Name
		}
	}
	return true, ""
}

func (r Record) firstFieldName() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[0].Name
}

// memberTable extracts the named-member table of a type. Records are
// their own table; intersections merge their members.
func memberTable(t Type) (Record, bool) {
	switch tt := t.(type) {
	case Record:
		return tt, true
	case Constrained:
		return memberTable(tt.Base)
	case Intersection:
		merged := Record{}
		for _, r := range tt.Reqs {
			m, ok := memberTable(r)
			if !ok {
				continue
			}
			for _, f := range m.Fields {
				if _, dup := merged.Field(f.Name); !dup {
					merged.Fields = append(merged.Fields, f)
				}
			}
		}
		return merged, len(merged.Fields) > 0
	}
	return Record{}, false
}
