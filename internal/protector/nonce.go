package protector

import (
	"golang.org/x/tools/container/intsets"

	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// NonceProtected reports whether path consumes a nonce: storage the path
// both reads and writes that is either keyed by a pre-image parameter or
// read from an address-keyed mapping and fed into the signature.
func (a *Analyzer) NonceProtected(path callpath.Path) bool {
	read, write := ReadWriteSet(path)
	potential := Intersect(read, write)
	if potential.Len() == 0 {
		return false
	}
	mappings := addressMappings(potential)

	for _, fn := range path {
		var derived []ir.Value
		for _, ins := range fn.Instructions() {
			switch ins := ins.(type) {
			case *ir.Index:
				if mappings.Has(ins.Left) {
					derived = append(derived, ins.LValue)
				}
			case ir.Call:
				if callee := ir.Target(ins); callee != nil && ins.GetResult() != nil && readsAny(callee, mappings) {
					derived = append(derived, ins.GetResult())
				}
			}
		}
		for _, v := range derived {
			if a.usedInSignature(fn, v, path) {
				log.Debugf("%s: nonce %s used in signature", path, v)
				return true
			}
		}
	}

	return a.KeyedBy(path, a.PreImageParameters(path, 0), false)
}

// KeyedBy reports whether path indexes storage that it both reads and
// writes with a key derived from a pre-image parameter, or from msg.sender
// when bySender is set, or passes such a parameter to a callee reading that
// storage. Nested mappings are followed through the intermediate reference.
func (a *Analyzer) KeyedBy(path callpath.Path, pre []*intsets.Sparse, bySender bool) bool {
	read, write := ReadWriteSet(path)
	candidates := Intersect(read, write)
	if candidates.Len() == 0 {
		return false
	}
	for i, fn := range path {
		params := PreImage(path, pre, i)
		for _, ins := range fn.Instructions() {
			switch ins := ins.(type) {
			case *ir.Index:
				if !candidates.Has(ins.Left) {
					continue
				}
				if a.Oracle.IsDependentOnAny(ins.Right, params, fn) ||
					(bySender && a.Oracle.IsDependent(ins.Right, ir.MsgSender, fn)) {
					log.Debugf("%s: %s keyed by pre-image", path, ins.Left)
					return true
				}
				candidates.Add(ins.LValue)
			case ir.Call:
				callee := ir.Target(ins)
				if callee == nil || !readsAny(callee, candidates) {
					continue
				}
				for _, arg := range ins.GetArguments() {
					if a.Oracle.IsDependentOnAny(arg, params, fn) {
						return true
					}
				}
			}
		}
	}
	return false
}

func readsAny(fn *ir.Function, s dependency.Set) bool {
	for _, sv := range fn.StateVariablesRead() {
		if s.Has(sv) {
			return true
		}
	}
	return false
}

// usedInSignature reports whether v reaches a hash, a recovery or a call
// to another function of path.
func (a *Analyzer) usedInSignature(fn *ir.Function, v ir.Value, path callpath.Path) bool {
	related := a.Oracle.Closure(fn, v)
	for _, call := range fn.Calls() {
		if !related.HasAny(call.GetArguments()...) {
			continue
		}
		if sc, ok := call.(*ir.SolidityCall); ok && (sc.Builtin.IsHash() || sc.Builtin == ir.Ecrecover) {
			return true
		}
		if callee := ir.Target(call); callee != nil && path.Contains(callee) {
			return true
		}
	}
	return false
}

// BalanceProtected reports whether path indexes, by msg.sender or by a
// parameter, storage that the path both reads and writes and that some
// related function uses in a condition.
func (a *Analyzer) BalanceProtected(path callpath.Path) bool {
	read, write := ReadWriteSet(path)
	potential := Intersect(read, write)
	if potential.Len() == 0 {
		return false
	}
	balances := dependency.NewSet()
	for _, fn := range CallRelations(path).Functions {
		for v := range a.conditionalStorage(fn, potential) {
			if potential.Has(v) {
				balances.Add(v)
			}
		}
	}
	if balances.Len() == 0 {
		return false
	}

	for _, fn := range path {
		keys := append([]ir.Value{ir.MsgSender}, params(fn)...)
		for _, ins := range fn.Instructions() {
			switch ins := ins.(type) {
			case *ir.Index:
				if balances.Has(ins.Left) && a.Oracle.IsDependentOnAny(ins.Right, keys, fn) {
					return true
				}
			case *ir.Member:
				if balances.Has(ins.Base) {
					balances.Add(ins.LValue)
				}
			case ir.Call:
				callee := ir.Target(ins)
				if callee == nil {
					continue
				}
				keyed := false
				for _, arg := range ins.GetArguments() {
					if a.Oracle.IsDependentOnAny(arg, keys, fn) {
						keyed = true
						break
					}
				}
				if !keyed {
					continue
				}
				r, w := ReadWriteSet(callpath.Path{callee})
				for v := range Intersect(r, w) {
					if balances.Has(v) && isMapping(v) {
						return true
					}
				}
			}
		}
	}
	return false
}

// conditionalStorage collects the storage that influences a conditional
// node of fn, directly, through an index into potential, or through the
// result of a call compared in the condition.
func (a *Analyzer) conditionalStorage(fn *ir.Function, potential dependency.Set) dependency.Set {
	called := map[ir.Value]*ir.Function{}
	indexed := map[ir.Value]ir.Value{}
	for _, ins := range fn.Instructions() {
		switch ins := ins.(type) {
		case *ir.Index:
			if potential.Has(ins.Left) {
				indexed[ins.LValue] = ir.Canonical(ins.Left)
			}
		case *ir.Assignment:
			if callee, ok := called[ins.RValue]; ok {
				called[ins.LValue] = callee
			}
			if base, ok := indexed[ins.RValue]; ok {
				indexed[ins.LValue] = base
			}
		case *ir.InternalCall, *ir.HighLevelCall:
			call := ins.(ir.Call)
			if callee := ir.Target(call); callee != nil && call.GetResult() != nil {
				called[call.GetResult()] = callee
			}
		}
	}

	used := dependency.NewSet()
	addReads := func(callee *ir.Function) {
		for _, g := range relationsOf([]*ir.Function{callee}).Functions {
			for _, sv := range g.StateVariablesRead() {
				used.Add(sv)
			}
		}
	}
	for _, n := range fn.Nodes {
		if !n.IsConditional() {
			continue
		}
		for _, sv := range n.StateVariablesRead() {
			used.Add(sv)
		}
		for _, v := range n.VariablesRead() {
			for slot := range potential {
				if a.Oracle.IsDependent(v, slot, fn) {
					used.Add(slot)
				}
			}
			for t, base := range indexed {
				if a.Oracle.IsDependent(v, t, fn) {
					used.Add(base)
				}
			}
		}
		for _, ins := range n.Instructions {
			switch ins := ins.(type) {
			case *ir.Binary:
				if !ins.Op.ReturnsBool() {
					continue
				}
				for t, callee := range called {
					if a.Oracle.IsDependent(ins.Left, t, fn) || a.Oracle.IsDependent(ins.Right, t, fn) {
						addReads(callee)
					}
				}
			case *ir.InternalCall, *ir.HighLevelCall:
				if callee := ir.Target(ins.(ir.Call)); callee != nil {
					addReads(callee)
				}
			}
		}
	}
	return used
}

func params(fn *ir.Function) []ir.Value {
	out := make([]ir.Value, 0, len(fn.Parameters))
	for _, p := range fn.Parameters {
		out = append(out, p)
	}
	return out
}
