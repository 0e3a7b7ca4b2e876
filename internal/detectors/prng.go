package detectors

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
	"cryptoscan/internal/protector"
)

var chainAttributes = []ir.Value{ir.BlockTimestamp, ir.BlockCoinbase, ir.BlockNumber, ir.Now}

// WeakPRNG reports randomness derived from hashing block attributes that
// reaches storage, a branch or a return value.
type WeakPRNG struct {
	info
	e *Engine
}

func NewWeakPRNG(e *Engine) *WeakPRNG {
	return &WeakPRNG{info{"weak-prng", "Weak PRNG", High, Medium}, e}
}

func (d *WeakPRNG) Detect(unit *ir.CompilationUnit) []Finding {
	var fns []*ir.Function
	for _, c := range unit.ContractsDerived() {
		fns = append(fns, c.Functions...)
	}

	seeds := map[*ir.Function][]ir.Value{}
	for _, fn := range fns {
		seeds[fn] = d.weakHashes(fn)
	}
	// Functions returning weak randomness make their call results weak.
	random := map[*ir.Function]bool{}
	for changed := true; changed; {
		changed = false
		for _, fn := range fns {
			if random[fn] {
				continue
			}
			if returnsAny(fn, d.relation(fn, seeds[fn], random)) {
				random[fn] = true
				changed = true
			}
		}
	}

	var c collector
	for _, fn := range fns {
		rel := d.relation(fn, seeds[fn], random)
		if rel.Len() == 0 {
			continue
		}
		for _, n := range fn.Nodes {
			if d.consumes(n, rel) {
				c.add(newFinding(d, fn, fn, n, "uses a weak PRNG"))
			}
		}
	}
	return c.findings
}

// weakHashes returns the keccak256 results of fn that depend on a block
// attribute or on a blockhash result.
func (d *WeakPRNG) weakHashes(fn *ir.Function) []ir.Value {
	sources := append([]ir.Value{}, chainAttributes...)
	for _, call := range fn.Calls() {
		if ir.IsBuiltinCall(call, ir.Blockhash) && call.GetResult() != nil {
			sources = append(sources, call.GetResult())
		}
	}
	related := d.e.Oracle.Closure(fn, sources...)
	var out []ir.Value
	for _, call := range fn.Calls() {
		if sc, ok := call.(*ir.SolidityCall); ok && sc.Builtin.IsKeccak() && sc.LValue != nil && related.HasAny(sc.Args...) {
			out = append(out, sc.LValue)
		}
	}
	return out
}

// relation closes the weak values of fn, following index bases as well as
// keys.
func (d *WeakPRNG) relation(fn *ir.Function, seeds []ir.Value, random map[*ir.Function]bool) dependency.Set {
	sources := append([]ir.Value{}, seeds...)
	for _, call := range fn.Calls() {
		if callee := ir.Target(call); callee != nil && random[callee] && call.GetResult() != nil {
			sources = append(sources, call.GetResult())
		}
	}
	if len(sources) == 0 {
		return dependency.NewSet()
	}
	rel := d.e.Oracle.Closure(fn, sources...)
	for _, ins := range fn.Instructions() {
		if idx, ok := ins.(*ir.Index); ok && rel.Has(idx.Left) && !rel.Has(idx.LValue) {
			rel.Union(d.e.Oracle.Closure(fn, idx.LValue))
		}
	}
	return rel
}

// consumes reports whether node n writes storage, branches on or returns
// a weak value.
func (d *WeakPRNG) consumes(n *ir.Node, rel dependency.Set) bool {
	for _, ins := range n.Instructions {
		switch ins := ins.(type) {
		case *ir.Return:
			if rel.HasAny(ins.Values...) {
				return true
			}
		case *ir.Condition:
			if rel.Has(ins.Value) {
				return true
			}
		case *ir.Assignment, *ir.Binary:
			lv := ins.GetResult()
			if ir.IsState(ir.Root(lv)) && rel.Has(lv) {
				return true
			}
		}
	}
	return false
}

func returnsAny(fn *ir.Function, rel dependency.Set) bool {
	for _, ins := range fn.Instructions() {
		if r, ok := ins.(*ir.Return); ok && rel.HasAny(r.Values...) {
			return true
		}
	}
	return false
}

// WeakPRNGTx reports randomness derived from hashing msg.sender or
// tx.origin when the hash is not an identity check, a signature digest or
// a mapping key.
type WeakPRNGTx struct {
	info
	e *Engine
}

func NewWeakPRNGTx(e *Engine) *WeakPRNGTx {
	return &WeakPRNGTx{info{"weak-prng-tx", "Weak PRNG from hashing transaction inputs", High, Medium}, e}
}

var txInputs = []ir.Value{ir.MsgSender, ir.TxOrigin}

func (d *WeakPRNGTx) Detect(unit *ir.CompilationUnit) []Finding {
	var c collector
	for _, contract := range unit.ContractsDerived() {
		signing := d.signingFunctions(contract)
		for _, fn := range contract.Functions {
			checked := d.checkedInputs(fn)
			for _, n := range fn.Nodes {
				for _, ins := range n.Instructions {
					sc, ok := ins.(*ir.SolidityCall)
					if !ok || !sc.Builtin.IsKeccak() || sc.LValue == nil {
						continue
					}
					if !d.hashesUncheckedInput(fn, sc, checked) {
						continue
					}
					if signing[fn] || d.identityCheck(unit, fn, sc.LValue) || d.usedAsIndex(unit, fn, sc.LValue) {
						continue
					}
					c.add(newFinding(d, fn, fn, n, "uses a weak PRNG due to hashing tx inputs"))
				}
			}
		}
	}
	return c.findings
}

func (d *WeakPRNGTx) hashesUncheckedInput(fn *ir.Function, sc *ir.SolidityCall, checked dependency.Set) bool {
	for _, src := range txInputs {
		if checked.Has(src) {
			continue
		}
		if d.e.Oracle.IsDependent(sc.LValue, src, fn) {
			return true
		}
	}
	return false
}

// checkedInputs lists the parameters and transaction inputs fn branches
// or reverts on.
func (d *WeakPRNGTx) checkedInputs(fn *ir.Function) dependency.Set {
	out := dependency.NewSet()
	candidates := append([]ir.Value{}, txInputs...)
	for _, p := range fn.Parameters {
		candidates = append(candidates, p)
	}
	for _, src := range candidates {
		related := d.e.Oracle.Closure(fn, src)
		for _, ins := range fn.Instructions() {
			switch ins := ins.(type) {
			case *ir.Condition:
				if related.Has(ins.Value) {
					out.Add(src)
				}
			case *ir.SolidityCall:
				if ins.Builtin.IsGuard() && related.HasAny(ins.Args...) {
					out.Add(src)
				}
			}
		}
	}
	return out
}

// signingFunctions lists every function related to a signature
// verification path of c.
func (d *WeakPRNGTx) signingFunctions(c *ir.Contract) map[*ir.Function]bool {
	out := map[*ir.Function]bool{}
	for _, fn := range c.Functions {
		matches, err := d.e.Explorer.FindPaths(fn, recoveries)
		if err != nil {
			continue
		}
		for _, path := range callpath.UniquePaths(matches) {
			for _, g := range protector.CallRelations(path).Functions {
				out[g] = true
			}
		}
	}
	return out
}

// identityCheck reports whether the hash value is compared as an address
// or digest, recovered from, or handed to a bool/address returning callee,
// in fn or through fn's return value in any caller.
func (d *WeakPRNGTx) identityCheck(unit *ir.CompilationUnit, fn *ir.Function, value ir.Value) bool {
	related := d.e.Oracle.Closure(fn, value)
	if d.checksIdentity(fn, related) {
		return true
	}
	if !returnsAny(fn, related) {
		return false
	}
	for _, caller := range unit.Functions() {
		seeds := callResults(caller, fn)
		if len(seeds) > 0 && d.checksIdentity(caller, d.e.Oracle.Closure(caller, seeds...)) {
			return true
		}
	}
	return false
}

func (d *WeakPRNGTx) checksIdentity(fn *ir.Function, related dependency.Set) bool {
	for _, ins := range fn.Instructions() {
		switch ins := ins.(type) {
		case *ir.Binary:
			if !ins.Op.ReturnsBool() || !related.HasAny(ins.Left, ins.Right) {
				continue
			}
			if identityTyped(ins.Left) || identityTyped(ins.Right) {
				return true
			}
		case *ir.SolidityCall:
			if ins.Builtin == ir.Ecrecover && len(ins.Args) > 0 && related.Has(ins.Args[0]) {
				return true
			}
		case *ir.InternalCall, *ir.LibraryCall, *ir.HighLevelCall:
			call := ins.(ir.Call)
			callee := ir.Target(call)
			if callee == nil || len(callee.Returns) != 1 {
				continue
			}
			if (ir.SameType(callee.Returns[0], ir.Bool) || ir.IsAddressType(callee.Returns[0])) && related.HasAny(call.GetArguments()...) {
				return true
			}
		}
	}
	return false
}

func identityTyped(v ir.Value) bool {
	t := v.GetType()
	return ir.IsAddressType(t) || ir.SameType(t, ir.Bytes32)
}

// usedAsIndex reports whether the hash value, or the result of calling fn,
// keys a mapping anywhere in unit.
func (d *WeakPRNGTx) usedAsIndex(unit *ir.CompilationUnit, fn *ir.Function, value ir.Value) bool {
	for _, g := range unit.Functions() {
		seeds := callResults(g, fn)
		if g == fn {
			seeds = append(seeds, value)
		}
		if len(seeds) == 0 {
			continue
		}
		related := d.e.Oracle.Closure(g, seeds...)
		for _, ins := range g.Instructions() {
			if idx, ok := ins.(*ir.Index); ok && related.Has(idx.Right) {
				return true
			}
		}
	}
	return false
}

// callResults lists the results of calls from fn to callee
func callResults(fn, callee *ir.Function) []ir.Value {
	var out []ir.Value
	for _, call := range fn.Calls() {
		if ir.Target(call) == callee && call.GetResult() != nil {
			out = append(out, call.GetResult())
		}
	}
	return out
}
