package detectors

import (
	"math/big"

	"cryptoscan/internal/asm"
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/evm"
	"cryptoscan/internal/ir"
	"cryptoscan/internal/protector"
)

// constantInt evaluates literals, constant state variables and file-level
// constants.
func constantInt(v ir.Value) (*big.Int, bool) {
	switch v := v.(type) {
	case *ir.Constant:
		return v.Int()
	case *ir.StateVariable:
		if v.Slot.Constant && v.Slot.Init != "" {
			return evm.ParseInt(v.Slot.Init)
		}
	case *ir.TopLevelVariable:
		if v.Init != "" {
			return evm.ParseInt(v.Init)
		}
	}
	return nil, false
}

func isBound(v ir.Value, bound func(*big.Int) bool) bool {
	n, ok := constantInt(v)
	return ok && bound(n)
}

// SigMalleability reports recoveries whose s value is never compared
// against the lower half of the curve order.
type SigMalleability struct {
	info
	e *Engine
}

func NewSigMalleability(e *Engine) *SigMalleability {
	return &SigMalleability{info{"sig-mal", "Signature malleability", High, High}, e}
}

func (d *SigMalleability) Detect(unit *ir.CompilationUnit) []Finding {
	return d.e.Match(d, unit, Pattern{
		Sink:        recoveries,
		IncludeView: true,
		Protected: func(path callpath.Path) bool {
			for _, fn := range protector.CallRelations(path).Functions {
				if d.checksBound(fn) {
					return true
				}
			}
			return false
		},
		Message: "does not protect against signature malleability",
	})
}

// checksBound reports whether fn branches or reverts on a comparison with
// a malleability bound.
func (d *SigMalleability) checksBound(fn *ir.Function) bool {
	for _, ins := range fn.Instructions() {
		bin, ok := ins.(*ir.Binary)
		if !ok || !bin.Op.IsComparison() {
			continue
		}
		if !isBound(bin.Left, evm.IsMalleabilityBound) && !isBound(bin.Right, evm.IsMalleabilityBound) {
			continue
		}
		if decides(d.e, fn, bin.LValue) {
			return true
		}
	}
	return false
}

// decides reports whether v reaches a condition or a guard of fn
func decides(e *Engine, fn *ir.Function, v ir.Value) bool {
	related := e.Oracle.Closure(fn, v)
	for _, ins := range fn.Instructions() {
		switch ins := ins.(type) {
		case *ir.Condition:
			if related.Has(ins.Value) {
				return true
			}
		case *ir.SolidityCall:
			if ins.Builtin.IsGuard() && related.HasAny(ins.Args...) {
				return true
			}
		}
	}
	return false
}

// ProofMalleability reports ecMul precompile calls whose scalar is never
// compared against the BN254 scalar field order.
type ProofMalleability struct {
	info
	e *Engine
}

func NewProofMalleability(e *Engine) *ProofMalleability {
	return &ProofMalleability{info{"proof-mal", "Proof malleability", High, High}, e}
}

func (d *ProofMalleability) Detect(unit *ir.CompilationUnit) []Finding {
	if scalarAliased(unit) {
		log.Debugf("%s: scalar order is aliased, skipping", d.Argument())
		return nil
	}
	return d.e.Match(d, unit, Pattern{
		Sites: func(path callpath.Path) []callpath.Site {
			return EcMulSites(path.Terminal())
		},
		IncludeView: true,
		Protected: func(path callpath.Path) bool {
			for _, fn := range path {
				if checksScalar(fn) {
					return true
				}
			}
			return false
		},
		Message: "does not protect against proof malleability",
	})
}

// EcMulSites finds calls to the ecMul precompile, in inline assembly or as
// low-level calls.
func EcMulSites(fn *ir.Function) []callpath.Site {
	var out []callpath.Site
	for _, n := range fn.Nodes {
		if n.IsAssembly() {
			for _, call := range asm.ExtractLowLevelCalls(n.Source) {
				if evm.IsPrecompile(call.Address, evm.EcMulAddress) {
					out = append(out, callpath.Site{Node: n})
					break
				}
			}
			continue
		}
		for _, ins := range n.Instructions {
			if ll, ok := ins.(*ir.LowLevelCall); ok && isPrecompileValue(ll.Destination, evm.EcMulAddress) {
				out = append(out, callpath.Site{Node: n, Instruction: ins})
			}
		}
	}
	return out
}

func isPrecompileValue(v ir.Value, address uint64) bool {
	n, ok := constantInt(v)
	return ok && n.IsUint64() && n.Uint64() == address
}

// checksScalar reports whether fn compares against the scalar order or a
// file-level constant.
func checksScalar(fn *ir.Function) bool {
	for _, ins := range fn.Instructions() {
		bin, ok := ins.(*ir.Binary)
		if !ok {
			continue
		}
		for _, side := range []ir.Value{bin.Left, bin.Right} {
			if _, top := side.(*ir.TopLevelVariable); top || isBound(side, evm.IsScalarOrder) {
				return true
			}
		}
	}
	return false
}

// scalarAliased reports whether some function copies the scalar order
// into a variable, which hides later comparisons from checksScalar.
func scalarAliased(unit *ir.CompilationUnit) bool {
	for _, c := range unit.ContractsDerived() {
		for _, fn := range c.Functions {
			for _, ins := range fn.Instructions() {
				if a, ok := ins.(*ir.Assignment); ok && isBound(a.RValue, evm.IsScalarOrder) {
					return true
				}
			}
		}
	}
	return false
}
