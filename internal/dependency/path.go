package dependency

import (
	"golang.org/x/tools/container/intsets"

	"cryptoscan/internal/ir"
)

// Layer is the dependency state of one function while walking a call path
type Layer struct {
	Index    int
	Function *ir.Function
	// Relation holds every value of Function related to the layer seeds
	// or to a tainted parameter.
	Relation Set
	// Params are the parameter positions tainted by the previous layer
	Params intsets.Sparse
	// Next is the call that enters the following function; nil at the
	// terminal and when the following function is a declared modifier
	Next ir.Call
}

// Instructions returns the instructions of the layer that execute before
// control moves to the next function on the path.
func (l *Layer) Instructions() []ir.Instruction {
	var out []ir.Instruction
	for _, n := range l.Function.Nodes {
		for _, ins := range n.Instructions {
			if l.Next != nil && ins == ir.Instruction(l.Next) {
				return out
			}
			out = append(out, ins)
		}
	}
	return out
}

// Has reports whether v is related in this layer
func (l *Layer) Has(v ir.Value) bool { return l.Relation.Has(v) }

// WalkPath walks path from the entry, carrying tainted argument positions
// across each call boundary. seeds gives the per-layer sources; visit may
// stop the walk by returning false. The tainted positions belong to this
// walk only, so walks of paths sharing a prefix never contaminate each other.
func (o *Oracle) WalkPath(path []*ir.Function, seeds func(i int, fn *ir.Function) []ir.Value, visit func(*Layer) bool) {
	var tainted intsets.Sparse
	for i, fn := range path {
		layer := &Layer{Index: i, Function: fn}
		layer.Params.Copy(&tainted)

		sources := seeds(i, fn)
		for _, idx := range tainted.AppendTo(nil) {
			if idx < len(fn.Parameters) {
				sources = append(sources, fn.Parameters[idx])
			}
		}
		layer.Relation = o.Closure(fn, sources...)
		if i+1 < len(path) {
			layer.Next = NextCall(fn, path[i+1])
		}

		if !visit(layer) {
			return
		}

		// Declared modifiers are entered without a call instruction.
		tainted.Clear()
		if layer.Next == nil {
			continue
		}
		for idx, arg := range layer.Next.GetArguments() {
			if layer.Relation.Has(arg) {
				tainted.Insert(idx)
			}
		}
	}
}

// NextCall finds the first call in fn that enters callee
func NextCall(fn, callee *ir.Function) ir.Call {
	for _, n := range fn.Nodes {
		for _, ins := range n.Instructions {
			if c, ok := ins.(ir.Call); ok && ir.Target(c) == callee {
				return c
			}
		}
	}
	return nil
}

// ParamsDependent reports whether v depends on one of the parameters of fn
// at the given positions.
func (o *Oracle) ParamsDependent(v ir.Value, fn *ir.Function, positions *intsets.Sparse) bool {
	for _, idx := range positions.AppendTo(nil) {
		if idx < len(fn.Parameters) && o.IsDependent(v, fn.Parameters[idx], fn) {
			return true
		}
	}
	return false
}
