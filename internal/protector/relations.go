package protector

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/ir"
)

// Relations is the caller graph reachable from a set of root functions
type Relations struct {
	// Functions lists the roots followed by every callee in discovery order
	Functions []*ir.Function
	// CalledBy maps a callee to its callers, in discovery order
	CalledBy map[*ir.Function][]*ir.Function

	seen map[*ir.Function]bool
}

func newRelations() *Relations {
	return &Relations{
		CalledBy: map[*ir.Function][]*ir.Function{},
		seen:     map[*ir.Function]bool{},
	}
}

// Contains reports whether fn is a root or a transitive callee
func (r *Relations) Contains(fn *ir.Function) bool { return r.seen[fn] }

func (r *Relations) add(fn *ir.Function) bool {
	if r.seen[fn] {
		return false
	}
	r.seen[fn] = true
	r.Functions = append(r.Functions, fn)
	return true
}

func (r *Relations) collect(fn *ir.Function) {
	for _, callee := range callpath.Callees(fn) {
		if !containsFunc(r.CalledBy[callee], fn) {
			r.CalledBy[callee] = append(r.CalledBy[callee], fn)
		}
		if r.add(callee) {
			r.collect(callee)
		}
	}
}

// CallRelations builds the relations rooted at the functions of path
func CallRelations(path callpath.Path) *Relations {
	return relationsOf(path)
}

func relationsOf(roots []*ir.Function) *Relations {
	r := newRelations()
	for _, fn := range roots {
		r.add(fn)
	}
	for _, fn := range roots {
		r.collect(fn)
	}
	return r
}

// ContractRelations builds the relations rooted at every function and
// modifier of c. The result is shared; callers must not modify it.
func (a *Analyzer) ContractRelations(c *ir.Contract) *Relations {
	if r, ok := a.relations.Load(c); ok {
		return r.(*Relations)
	}
	r, _ := a.relations.LoadOrStore(c, relationsOf(c.FunctionsAndModifiers()))
	return r.(*Relations)
}

// StorageChangingFunctions returns the functions of r that write storage
// or call into an interface, together with all their transitive callers.
func StorageChangingFunctions(r *Relations) map[*ir.Function]bool {
	out := map[*ir.Function]bool{}
	var work []*ir.Function
	for _, fn := range r.Functions {
		if len(fn.StateVariablesWritten()) > 0 || (fn.Contract != nil && fn.Contract.IsInterface()) {
			out[fn] = true
			work = append(work, fn)
		}
	}
	for len(work) > 0 {
		fn := work[len(work)-1]
		work = work[:len(work)-1]
		for _, caller := range r.CalledBy[fn] {
			if !out[caller] {
				out[caller] = true
				work = append(work, caller)
			}
		}
	}
	return out
}

func containsFunc(fns []*ir.Function, fn *ir.Function) bool {
	for _, f := range fns {
		if f == fn {
			return true
		}
	}
	return false
}
