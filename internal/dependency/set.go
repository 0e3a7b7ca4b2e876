package dependency

import "cryptoscan/internal/ir"

// Set is a set of SSA values. State variable versions are collapsed onto
// their slot, so membership is insensitive to SSA numbering of storage.
type Set map[ir.Value]struct{}

// NewSet creates a set holding vs
func NewSet(vs ...ir.Value) Set {
	s := make(Set, len(vs))
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

// Has reports membership of v
func (s Set) Has(v ir.Value) bool {
	if v == nil {
		return false
	}
	_, ok := s[ir.Canonical(v)]
	return ok
}

// HasAny reports whether any of vs is a member
func (s Set) HasAny(vs ...ir.Value) bool {
	for _, v := range vs {
		if s.Has(v) {
			return true
		}
	}
	return false
}

// Add inserts v and reports whether the set grew
func (s Set) Add(v ir.Value) bool {
	if v == nil {
		return false
	}
	v = ir.Canonical(v)
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Union adds every member of other
func (s Set) Union(other Set) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Union(s)
	return out
}

// Len returns the number of members
func (s Set) Len() int { return len(s) }
