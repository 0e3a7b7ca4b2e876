package protector

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// UnprotectedStorageChange reports whether path changes storage, emits an
// event or calls out in a way that depends on msg.sender while nothing on
// the path checks msg.sender.
func (a *Analyzer) UnprotectedStorageChange(path callpath.Path) bool {
	for _, fn := range path {
		if _, sanitized := a.ConditionProtected(fn, ir.MsgSender); sanitized {
			return false
		}
		for _, n := range fn.Nodes {
			if !n.IsConditional() {
				continue
			}
			for _, ins := range n.Instructions {
				call, ok := ins.(ir.Call)
				if !ok {
					continue
				}
				if callee := ir.Target(call); callee != nil {
					if _, sanitized := a.ConditionProtected(callee, ir.MsgSender); sanitized {
						return false
					}
				}
			}
		}
	}

	storage := StorageChangingFunctions(CallRelations(path))
	for _, fn := range path {
		related := a.Oracle.Closure(fn, ir.MsgSender)
		for _, ins := range fn.Instructions() {
			if senderStorageChange(ins, related, storage) {
				log.Debugf("%s: sender-dependent storage change at %s", path, ins)
				return true
			}
		}
	}
	return false
}

func senderStorageChange(ins ir.Instruction, related dependency.Set, storage map[*ir.Function]bool) bool {
	switch ins := ins.(type) {
	case *ir.EventCall:
		return related.HasAny(ins.Args...)
	case *ir.Index, *ir.Member:
		return false
	case ir.Call:
		args := ins.GetArguments()
		callee := ir.Target(ins)
		if callee == nil {
			_, external := ins.(*ir.HighLevelCall)
			return external && containsValue(args, ir.MsgSender)
		}
		if !storage[callee] {
			break
		}
		if related.HasAny(args...) {
			return true
		}
		if _, internal := ins.(*ir.InternalCall); internal && callee.Reads(ir.MsgSender) {
			return true
		}
		if callee.Contract != nil && callee.Contract.IsInterface() && containsValue(args, ir.MsgSender) {
			return true
		}
	}
	lv := ins.GetResult()
	return lv != nil && ir.IsState(ir.Root(lv)) && related.Has(lv)
}

// SenderBound reports whether msg.sender reaches a hash, an encoding or
// the recovery itself along path, binding the signature to the caller.
func (a *Analyzer) SenderBound(path callpath.Path) bool {
	found := false
	seeds := func(int, *ir.Function) []ir.Value { return []ir.Value{ir.MsgSender} }
	a.Oracle.WalkPath(path, seeds, func(l *dependency.Layer) bool {
		steps := l.Instructions()
		if l.Next != nil {
			steps = append(steps, l.Next)
		}
		for _, ins := range steps {
			call, ok := ins.(ir.Call)
			if !ok {
				continue
			}
			args := call.GetArguments()
			if sc, ok := call.(*ir.SolidityCall); ok {
				if _, hashes := isHashOrEncode(sc); (hashes || sc.Builtin == ir.Ecrecover) && l.Relation.HasAny(args...) {
					found = true
				}
				continue
			}
			callee := ir.Target(call)
			if callee == nil || !usesKeccak(callee) {
				continue
			}
			if l.Relation.HasAny(args...) || readsValue(callee, ir.MsgSender) {
				found = true
			}
		}
		return !found
	})
	return found
}
