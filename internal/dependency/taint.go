package dependency

import (
	"fmt"

	"cryptoscan/internal/ir"
)

// GenericTaint lists the transaction inputs every contract treats as
// attacker controlled.
var GenericTaint = []ir.Value{ir.MsgSender, ir.MsgValue, ir.MsgData, ir.TxOrigin}

// IsTainted reports whether value can carry attacker influence from any
// externally reachable entry point of the contract.
func (o *Oracle) IsTainted(value ir.Value, c *ir.Contract) bool {
	if value == nil || c == nil {
		return false
	}
	return o.TaintedSet(c).Has(value)
}

// TaintedSet returns the contract-wide taint. It is computed once per
// contract; concurrent callers share one computation.
func (o *Oracle) TaintedSet(c *ir.Contract) Set {
	if s, ok := o.tainted.Load(c); ok {
		return s.(Set)
	}
	v, _, _ := o.group.Do(fmt.Sprintf("%p", c), func() (interface{}, error) {
		if s, ok := o.tainted.Load(c); ok {
			return s, nil
		}
		s := o.computeTaint(c)
		o.tainted.Store(c, s)
		return s, nil
	})
	return v.(Set)
}

// computeTaint iterates until no function adds anything: arguments flow into
// callee parameters, tainted returns flow back to call results, and writes
// to storage are visible to every function of the contract.
func (o *Oracle) computeTaint(c *ir.Contract) Set {
	taint := NewSet(GenericTaint...)
	for _, f := range c.Functions {
		if f.IsExternallyReachable() {
			for _, p := range f.Parameters {
				taint.Add(p)
			}
		}
	}

	taintedReturns := map[*ir.Function]bool{}
	functions := withLibraryCallees(c.FunctionsAndModifiers())
	for round := 0; ; round++ {
		changed := false
		for _, f := range functions {
			s := &sweeper{
				fn:     f,
				rel:    taint,
				filter: o.filter,
				callResult: func(call ir.Call) bool {
					callee := ir.Target(call)
					return callee != nil && taintedReturns[callee]
				},
			}
			for _, n := range f.Nodes {
				for _, ins := range n.Instructions {
					if s.apply(ins) {
						changed = true
					}
					if call, ok := ins.(ir.Call); ok {
						if taintParameters(call, taint) {
							changed = true
						}
					}
				}
			}
			if !taintedReturns[f] && returnsAny(f, taint.Has) {
				taintedReturns[f] = true
				changed = true
			}
		}
		if !changed {
			log.Debugf("taint of %s settled after %d rounds with %d values", c.Name, round+1, taint.Len())
			return taint
		}
	}
}

func taintParameters(call ir.Call, taint Set) bool {
	callee := ir.Target(call)
	if callee == nil {
		return false
	}
	grew := false
	for i, arg := range call.GetArguments() {
		if i < len(callee.Parameters) && taint.Has(arg) {
			grew = taint.Add(callee.Parameters[i]) || grew
		}
	}
	return grew
}

// withLibraryCallees extends fns with the library functions they reach, whose
// bodies execute in the caller's context.
func withLibraryCallees(fns []*ir.Function) []*ir.Function {
	seen := map[*ir.Function]bool{}
	for _, f := range fns {
		seen[f] = true
	}
	out := append([]*ir.Function(nil), fns...)
	for i := 0; i < len(out); i++ {
		for _, g := range append(out[i].InternalCalls(), out[i].LibraryCalls()...) {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}
