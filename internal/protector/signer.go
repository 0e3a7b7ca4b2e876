package protector

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

type paramKey struct {
	fn  *ir.Function
	idx int
}

// SignerChecked reports whether the address recovered at the end of path
// is ever compared against something other than the zero address. Each
// layer starts from the result it receives from the next layer, so a
// helper returning the signer can be checked by any caller on the path.
func (a *Analyzer) SignerChecked(path callpath.Path) bool {
	read, write := ReadWriteSet(path)
	nonces := addressMappings(Intersect(read, write))
	visited := map[paramKey]bool{}

	for i, fn := range path {
		var start []ir.Value
		if i == len(path)-1 {
			for _, call := range fn.Calls() {
				if ir.IsBuiltinCall(call, ir.Ecrecover) && call.GetResult() != nil {
					start = append(start, call.GetResult())
				}
			}
		} else if next := dependency.NextCall(fn, path[i+1]); next != nil && next.GetResult() != nil {
			if signerLike(next.GetResult().GetType()) {
				start = append(start, next.GetResult())
			}
		}
		if len(start) > 0 && a.checked(fn, start, nonces, visited) {
			return true
		}
	}
	return false
}

func signerLike(t ir.Type) bool {
	if _, ok := t.(*ir.TupleType); ok {
		return ir.ContainsAddress(t)
	}
	return ir.IsAddressType(t) || ir.SameType(t, ir.Bool)
}

// zeroAddresses lists the conversions of zero to an address inside fn
func zeroAddresses(fn *ir.Function) dependency.Set {
	out := dependency.NewSet()
	for _, ins := range fn.Instructions() {
		if conv, ok := ins.(*ir.TypeConversion); ok && ir.IsAddressType(conv.To) && ir.IsZero(conv.Operand) {
			out.Add(conv.LValue)
		}
	}
	return out
}

func (a *Analyzer) checked(fn *ir.Function, start []ir.Value, nonces dependency.Set, visited map[paramKey]bool) bool {
	zero := zeroAddresses(fn)
	taint := dependency.NewSet(start...)

	for _, ins := range fn.Instructions() {
		switch ins := ins.(type) {
		case *ir.Unpack:
			if taint.Has(ins.Tuple) {
				taint.Add(ins.LValue)
			}
		case *ir.Unary:
			if taint.Has(ins.Operand) {
				taint.Add(ins.LValue)
			}
		case *ir.Member:
			if taint.Has(ins.Base) {
				taint.Add(ins.LValue)
			}
		case *ir.Assignment:
			if taint.Has(ins.RValue) {
				taint.Add(ins.LValue)
			}
		case *ir.TypeConversion:
			if taint.Has(ins.Operand) {
				taint.Add(ins.LValue)
			}
		case *ir.Index:
			if taint.Has(ins.Right) && !nonces.Has(ins.Left) && !ir.SameType(ins.LValue.GetType(), ir.Uint256) {
				taint.Add(ins.LValue)
			}
		case *ir.Binary:
			if !taint.HasAny(ins.Left, ins.Right) {
				break
			}
			if !ins.Op.ReturnsBool() {
				taint.Add(ins.LValue)
			} else if !zero.HasAny(ins.Left, ins.Right) {
				return true
			}
		case *ir.Condition:
			if taint.Has(ins.Value) {
				return true
			}
		case ir.Call:
			args := ins.GetArguments()
			if sc, ok := ins.(*ir.SolidityCall); ok && sc.Builtin.IsGuard() {
				if len(args) > 0 && taint.Has(args[0]) && !zero.Has(args[0]) {
					return true
				}
				continue
			}
			if !taint.HasAny(args...) {
				continue
			}
			taint.Add(ins.GetResult())
			callee := ir.Target(ins)
			if callee == nil {
				continue
			}
			for idx, arg := range args {
				key := paramKey{callee, idx}
				if idx >= len(callee.Parameters) || !taint.Has(arg) || visited[key] {
					continue
				}
				visited[key] = true
				if a.checked(callee, []ir.Value{callee.Parameters[idx]}, nonces, visited) {
					return true
				}
			}
		}
	}
	return false
}

func addressMappings(s dependency.Set) dependency.Set {
	out := dependency.NewSet()
	for v := range s {
		if ir.IsAddressMapping(v.GetType()) {
			out.Add(v)
		}
	}
	return out
}

func isMapping(v ir.Value) bool {
	_, ok := v.GetType().(*ir.MappingType)
	return ok
}
