package protector

import (
	"golang.org/x/tools/container/intsets"

	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// ReadWriteSet collects the state variables read and written along path.
// Storage passed by reference into a callee that writes the parameter
// counts as written.
func ReadWriteSet(path callpath.Path) (read, write dependency.Set) {
	read, write = dependency.NewSet(), dependency.NewSet()
	for _, fn := range path {
		for _, sv := range fn.StateVariablesRead() {
			read.Add(sv)
		}
		for _, sv := range fn.StateVariablesWritten() {
			write.Add(sv)
		}
		for _, call := range fn.Calls() {
			callee := ir.Target(call)
			if callee == nil {
				continue
			}
			for idx, arg := range call.GetArguments() {
				if idx >= len(callee.Parameters) || !ir.IsState(ir.Root(arg)) {
					continue
				}
				if callee.Writes(callee.Parameters[idx]) {
					write.Add(ir.Root(arg))
				}
			}
		}
	}
	return read, write
}

// Intersect returns the members present in both sets
func Intersect(a, b dependency.Set) dependency.Set {
	out := dependency.NewSet()
	for v := range a {
		if b.Has(v) {
			out.Add(v)
		}
	}
	return out
}

// PreImageParameters computes, for every layer of path, the positions of
// the parameters that flow into argument slot of a terminal ecrecover.
func (a *Analyzer) PreImageParameters(path callpath.Path, slot int) []*intsets.Sparse {
	return a.preImage(path, func(call ir.Call) bool {
		return ir.IsBuiltinCall(call, ir.Ecrecover)
	}, slot)
}

// PreImageOf is PreImageParameters for an arbitrary terminal call site
func (a *Analyzer) PreImageOf(path callpath.Path, site ir.Call, slot int) []*intsets.Sparse {
	return a.preImage(path, func(call ir.Call) bool { return call == site }, slot)
}

// preImage resolves layers back to front: a parameter of layer i belongs to
// the pre-image when it reaches a pre-image argument of the call into
// layer i+1.
func (a *Analyzer) preImage(path callpath.Path, terminal func(ir.Call) bool, slot int) []*intsets.Sparse {
	out := make([]*intsets.Sparse, len(path))
	for i := range out {
		out[i] = new(intsets.Sparse)
	}
	for i := len(path) - 1; i >= 0; i-- {
		fn := path[i]
		var targets []ir.Value
		if i == len(path)-1 {
			for _, call := range fn.Calls() {
				args := call.GetArguments()
				if terminal(call) && slot < len(args) {
					targets = append(targets, args[slot])
				}
			}
		} else if next := dependency.NextCall(fn, path[i+1]); next != nil {
			args := next.GetArguments()
			for _, idx := range out[i+1].AppendTo(nil) {
				if idx < len(args) {
					targets = append(targets, args[idx])
				}
			}
		}
		for pidx, p := range fn.Parameters {
			for _, t := range targets {
				if a.Oracle.IsDependent(t, p, fn) {
					out[i].Insert(pidx)
					break
				}
			}
		}
	}
	return out
}

// PreImage returns the pre-image parameters of layer i as values
func PreImage(path callpath.Path, sets []*intsets.Sparse, i int) []ir.Value {
	var out []ir.Value
	for _, idx := range sets[i].AppendTo(nil) {
		if idx < len(path[i].Parameters) {
			out = append(out, path[i].Parameters[idx])
		}
	}
	return out
}
