package detectors

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// merkleSite is a hash of a sibling pair inside a proof verification loop
type merkleSite struct {
	callpath.Site
	call *ir.SolidityCall
}

// merkleSites finds the pair hashes of the path terminal that fold a
// proof: keccak256 over two bytes32 values, at least one of them a
// previous hash, computed in a loop of the terminal or of its caller. The
// hashed result must reach a comparison.
func (e *Engine) merkleSites(path callpath.Path) []merkleSite {
	fn := path.Terminal()
	callerLoop := false
	if len(path) > 1 {
		if next := dependency.NextCall(path[len(path)-2], fn); next != nil {
			callerLoop = inLoop(next.GetNode())
		}
	}
	hashes := hashValues(fn)

	var out []merkleSite
	for _, n := range fn.Nodes {
		for _, ins := range n.Instructions {
			sc, ok := ins.(*ir.SolidityCall)
			if !ok || !sc.Builtin.IsKeccak() || sc.LValue == nil {
				continue
			}
			pair := hashedPair(fn, sc)
			if len(pair) != 2 || !ir.SameType(pair[0].GetType(), ir.Bytes32) || !ir.SameType(pair[1].GetType(), ir.Bytes32) {
				continue
			}
			folded := hashes.HasAny(pair...)
			switch {
			case inLoop(n) && folded:
			case callerLoop && (folded || isParameter(pair[0]) || isParameter(pair[1])):
			default:
				continue
			}
			if !e.compared(path, sc.LValue) {
				continue
			}
			out = append(out, merkleSite{callpath.Site{Node: n, Instruction: sc}, sc})
		}
	}
	return out
}

func inLoop(n *ir.Node) bool {
	return n != nil && (n.Kind == ir.NodeIfLoop || n.DominatedByKind(ir.NodeIfLoop))
}

func isParameter(v ir.Value) bool {
	l, ok := v.(*ir.LocalVariable)
	return ok && l.IsParameter()
}

// hashedPair returns the values hashed by sc, looking through a single
// abi.encode or abi.encodePacked argument.
func hashedPair(fn *ir.Function, sc *ir.SolidityCall) []ir.Value {
	if len(sc.Args) != 1 {
		return sc.Args
	}
	for _, ins := range fn.Instructions() {
		enc, ok := ins.(*ir.SolidityCall)
		if ok && enc.Builtin.IsEncode() && enc.LValue != nil && enc.LValue == sc.Args[0] {
			return enc.Args
		}
	}
	return nil
}

// hashValues lists the keccak256 results of fn and the variables they are
// copied into.
func hashValues(fn *ir.Function) dependency.Set {
	out := dependency.NewSet()
	for changed := true; changed; {
		changed = false
		for _, ins := range fn.Instructions() {
			switch ins := ins.(type) {
			case *ir.SolidityCall:
				if ins.Builtin.IsKeccak() && ins.LValue != nil {
					changed = out.Add(ins.LValue) || changed
				}
			case *ir.Assignment:
				if out.Has(ins.RValue) {
					changed = out.Add(ins.LValue) || changed
				}
			}
		}
	}
	return out
}

// compared reports whether v reaches a comparison in the terminal, or is
// returned and compared by the caller on the path.
func (e *Engine) compared(path callpath.Path, v ir.Value) bool {
	fn := path.Terminal()
	related := e.Oracle.Closure(fn, v)
	if comparesAny(fn, related) {
		return true
	}
	if len(path) < 2 || !returnsAny(fn, related) {
		return false
	}
	caller := path[len(path)-2]
	next := dependency.NextCall(caller, fn)
	if next == nil || next.GetResult() == nil {
		return false
	}
	return comparesAny(caller, e.Oracle.Closure(caller, next.GetResult()))
}

func comparesAny(fn *ir.Function, related dependency.Set) bool {
	for _, ins := range fn.Instructions() {
		if b, ok := ins.(*ir.Binary); ok && b.Op.IsComparison() && related.HasAny(b.Left, b.Right) {
			return true
		}
	}
	return false
}

func sitesOf(ms []merkleSite) []callpath.Site {
	out := make([]callpath.Site, len(ms))
	for i, m := range ms {
		out[i] = m.Site
	}
	return out
}

// MerkleProofReplay reports Merkle proofs that can be claimed more than
// once: nothing keyed by the proven leaf or by the caller is consumed.
type MerkleProofReplay struct {
	info
	e *Engine
}

func NewMerkleProofReplay(e *Engine) *MerkleProofReplay {
	return &MerkleProofReplay{info{"merkle-proof-replay", "Merkle proof replay", High, High}, e}
}

func (d *MerkleProofReplay) Detect(unit *ir.CompilationUnit) []Finding {
	pa := d.e.Protectors
	return d.e.Match(d, unit, Pattern{
		Sites: func(path callpath.Path) []callpath.Site {
			return sitesOf(d.e.merkleSites(path))
		},
		Protected: func(path callpath.Path) bool {
			if pa.BalanceProtected(path) {
				return true
			}
			for _, m := range d.e.merkleSites(path) {
				if pa.KeyedBy(path, pa.PreImageOf(path, m.call, 0), true) {
					return true
				}
			}
			return false
		},
		Message: "allows Merkle proof replay",
	})
}

// MerkleProofFrontRun reports Merkle proofs not bound to msg.sender on
// paths that credit msg.sender.
type MerkleProofFrontRun struct {
	info
	e *Engine
}

func NewMerkleProofFrontRun(e *Engine) *MerkleProofFrontRun {
	return &MerkleProofFrontRun{info{"merkle-proof-front-run", "Merkle proof front-running", High, High}, e}
}

func (d *MerkleProofFrontRun) Detect(unit *ir.CompilationUnit) []Finding {
	pa := d.e.Protectors
	return d.e.Match(d, unit, Pattern{
		Sites: func(path callpath.Path) []callpath.Site {
			return sitesOf(d.e.merkleSites(path))
		},
		Protected: func(path callpath.Path) bool {
			return pa.SenderBound(path) || !pa.UnprotectedStorageChange(path)
		},
		Message: "allows Merkle proof front-running",
	})
}
