package typesystem

// Equal reports structural equality. Record equality is by field set;
// union equality is order-insensitive. Declaration order inside a
// union still matters for Compatible's first-match policy, just not
// for equality.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch at := a.(type) {
	case Prim:
		bt, ok := b.(Prim)
		return ok && at.Name == bt.Name
	case Constrained:
		bt, ok := b.(Constrained)
		return ok && Equal(at.Base, bt.Base) && at.Pred.Equal(bt.Pred)
	case Array:
		bt, ok := b.(Array)
		return ok && Equal(at.Elem, bt.Elem)
	case Map:
		bt, ok := b.(Map)
		return ok && Equal(at.Key, bt.Key) && Equal(at.Value, bt.Value)
	case Tuple:
		bt, ok := b.(Tuple)
		if !ok || len(at.Elems) != len(bt.Elems) {
			return false
		}
		for i := range at.Elems {
			if !Equal(at.Elems[i], bt.Elems[i]) {
				return false
			}
		}
		return true
	case Record:
		bt, ok := b.(Record)
		if !ok || len(at.Fields) != len(bt.Fields) {
			return false
		}
		for _, f := range at.Fields {
			g, found := bt.Field(f.Name)
			if !found || f.Optional != g.Optional || !Equal(f.Type, g.Type) {
				return false
			}
		}
		return true
	case Union:
		bt, ok := b.(Union)
		if !ok {
			return false
		}
		as, bs := at.canonicalAlts(), bt.canonicalAlts()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	case Intersection:
		bt, ok := b.(Intersection)
		if !ok || len(at.Reqs) != len(bt.Reqs) {
			return false
		}
		for i := range at.Reqs {
			if !Equal(at.Reqs[i], bt.Reqs[i]) {
				return false
			}
		}
		return true
	case Param:
		bt, ok := b.(Param)
		return ok && at.Name == bt.Name
	case Inst:
		bt, ok := b.(Inst)
		if !ok || at.Name != bt.Name || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !Equal(at.Args[i], bt.Args[i]) {
				return false
			}
		}
		return true
	case DepArray:
		bt, ok := b.(DepArray)
		return ok && Equal(at.Elem, bt.Elem) && at.Length == bt.Length
	case Func:
		bt, ok := b.(Func)
		if !ok || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Equal(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return Equal(at.Return, bt.Return) && at.Effects.Equal(bt.Effects)
	case State:
		bt, ok := b.(State)
		return ok && at.Owner == bt.Owner && at.Name == bt.Name
	case Pending:
		bt, ok := b.(Pending)
		return ok && at.Name == bt.Name
	}
	return false
}

// Compatible reports whether a value of type actual may be used where
// expected is required. The relation is directional: width subtyping
// on records, first-match on unions, no implicit numeric conversions.
//
// Pending types are optimistically compatible; the fixed-point driver
// re-checks once they resolve and surviving pendings are fatal.
func Compatible(expected, actual Type) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if _, ok := expected.(Pending); ok {
		return true
	}
	if _, ok := actual.(Pending); ok {
		return true
	}
	// A free generic parameter accepts any argument. Template
	// instantiation substitutes parameters before comparing, so a Param
	// surviving here belongs to a generic builtin signature.
	if _, ok := expected.(Param); ok {
		return true
	}
	if Equal(expected, actual) {
		return true
	}

	// A constrained actual widens to its base: Range<0..100> is usable
	// as Int. The reverse direction is the analyzer's business (literal
	// checks and runtime guards), not a type-level compatibility.
	if ac, ok := actual.(Constrained); ok {
		if _, expectedConstrained := expected.(Constrained); !expectedConstrained {
			return Compatible(expected, ac.Base)
		}
	}

	// An actual intersection provides each of its members.
	if ai, ok := actual.(Intersection); ok {
		for _, r := range ai.Reqs {
			if Compatible(expected, r) {
				return true
			}
		}
		return false
	}

	switch et := expected.(type) {
	case Union:
		// First-match policy: alternatives are tried in declaration
		// order, so order is observable and must be preserved.
		if au, ok := actual.(Union); ok {
			for _, a := range au.Alts {
				if !Compatible(expected, a) {
					return false
				}
			}
			return true
		}
		for _, alt := range et.Alts {
			if Compatible(alt, actual) {
				return true
			}
		}
		return false

	case Intersection:
		for _, r := range et.Reqs {
			if !Compatible(r, actual) {
				return false
			}
		}
		return true

	case Record:
		ar, ok := actual.(Record)
		if !ok {
			return false
		}
		// Width subtyping: actual must contain at least the expected
		// fields with compatible types; extra fields are fine.
		for _, f := range et.Fields {
			g, found := ar.Field(f.Name)
			if !found {
				if f.Optional {
					continue
				}
				return false
			}
			if !Compatible(f.Type, g.Type) {
				return false
			}
		}
		return true

	case Array:
		aa, ok := actual.(Array)
		if ok {
			return Compatible(et.Elem, aa.Elem)
		}
		// A dependent array is usable where a plain array is expected.
		if da, ok := actual.(DepArray); ok {
			return Compatible(et.Elem, da.Elem)
		}
		return false

	case Map:
		am, ok := actual.(Map)
		return ok && Compatible(et.Key, am.Key) && Compatible(et.Value, am.Value)

	case Tuple:
		at, ok := actual.(Tuple)
		if !ok || len(et.Elems) != len(at.Elems) {
			return false
		}
		for i := range et.Elems {
			if !Compatible(et.Elems[i], at.Elems[i]) {
				return false
			}
		}
		return true

	case DepArray:
		ad, ok := actual.(DepArray)
		if !ok {
			return false
		}
		if !Compatible(et.Elem, ad.Elem) {
			return false
		}
		// Literal lengths must agree; symbolic lengths degrade to a
		// runtime obligation recorded by the analyzer.
		if et.Length.Known && ad.Length.Known {
			return et.Length.N == ad.Length.N
		}
		return true

	case Func:
		af, ok := actual.(Func)
		if !ok || len(et.Params) != len(af.Params) {
			return false
		}
		// Parameters are contravariant, the result is covariant, and
		// the actual function may not carry effects beyond the
		// expected declared set.
		for i := range et.Params {
			if !Compatible(af.Params[i], et.Params[i]) {
				return false
			}
		}
		if !Compatible(et.Return, af.Return) {
			return false
		}
		return af.Effects.SubsetOf(et.Effects)
	}

	return false
}
