package detectors

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

var recoveries = callpath.Calls(ir.Ecrecover)

// SingleSigReplay reports signatures that can be submitted twice to the
// same contract: the recovered digest carries no storage the path consumes
// and no nonce or balance accounting guards the path.
type SingleSigReplay struct {
	info
	e *Engine
}

func NewSingleSigReplay(e *Engine) *SingleSigReplay {
	return &SingleSigReplay{info{"single-sig-replay", "Single-contract signature replay", High, High}, e}
}

func (d *SingleSigReplay) Detect(unit *ir.CompilationUnit) []Finding {
	pa := d.e.Protectors
	return d.e.Match(d, unit, Pattern{
		Sink:    recoveries,
		Operand: firstArgument,
		Sources: func(_ callpath.Path, _ int, fn *ir.Function) []ir.Value {
			return consumedState(fn)
		},
		Protected: func(path callpath.Path) bool {
			if pa.NonceProtected(path) {
				return true
			}
			return pa.BalanceProtected(path) && (pa.SenderBound(path) || !pa.UnprotectedStorageChange(path))
		},
		Message: "allows signature replay",
	})
}

// consumedState lists the state variables fn both reads and writes
func consumedState(fn *ir.Function) []ir.Value {
	written := dependency.NewSet()
	for _, sv := range fn.StateVariablesWritten() {
		written.Add(sv)
	}
	var out []ir.Value
	for _, sv := range fn.StateVariablesRead() {
		if written.Has(sv) {
			out = append(out, sv)
		}
	}
	return out
}

// CrossChainSigReplay reports signatures whose digest is not bound to the
// chain id, so they stay valid on a fork or a sibling deployment.
type CrossChainSigReplay struct {
	info
	e *Engine
}

func NewCrossChainSigReplay(e *Engine) *CrossChainSigReplay {
	return &CrossChainSigReplay{info{"cross-chain-sig", "Cross-chain signature replay", High, High}, e}
}

func (d *CrossChainSigReplay) Detect(unit *ir.CompilationUnit) []Finding {
	pa := d.e.Protectors
	return d.e.Match(d, unit, Pattern{
		Sink:    recoveries,
		Operand: firstArgument,
		Sources: func(path callpath.Path, _ int, fn *ir.Function) []ir.Value {
			return pa.Domain(path.Entry().Contract).ChainSources(fn)
		},
		Stop: func(path callpath.Path, fn *ir.Function) bool {
			return pa.Domain(path.Entry().Contract).ChainHashers[fn]
		},
		Protected: pa.ChainSeparated,
		Message:   "allows cross-chain signature replay",
	})
}

// CrossContractSigReplay reports signatures whose digest is not bound to
// the verifying contract address.
type CrossContractSigReplay struct {
	info
	e *Engine
}

func NewCrossContractSigReplay(e *Engine) *CrossContractSigReplay {
	return &CrossContractSigReplay{info{"cross-contract-sig", "Cross-contract signature replay", High, High}, e}
}

func (d *CrossContractSigReplay) Detect(unit *ir.CompilationUnit) []Finding {
	pa := d.e.Protectors
	return d.e.Match(d, unit, Pattern{
		Sink:    recoveries,
		Operand: firstArgument,
		Sources: func(path callpath.Path, _ int, _ *ir.Function) []ir.Value {
			out := []ir.Value{ir.This}
			for v := range pa.Domain(path.Entry().Contract).ContractState {
				out = append(out, v)
			}
			return out
		},
		Protected: func(path callpath.Path) bool {
			return pa.ContractSeparated(path.Entry().Contract)
		},
		Message: "allows cross-contract signature replay",
	})
}

// SigFrontRun reports signatures not bound to msg.sender on paths that
// credit msg.sender, so anyone watching the mempool can submit them first.
type SigFrontRun struct {
	info
	e *Engine
}

func NewSigFrontRun(e *Engine) *SigFrontRun {
	return &SigFrontRun{info{"sig-front-run", "Signature front-running", High, High}, e}
}

func (d *SigFrontRun) Detect(unit *ir.CompilationUnit) []Finding {
	pa := d.e.Protectors
	return d.e.Match(d, unit, Pattern{
		Sink:    recoveries,
		Operand: firstArgument,
		Sources: func(_ callpath.Path, _ int, fn *ir.Function) []ir.Value {
			out := []ir.Value{ir.MsgSender}
			for _, call := range fn.Calls() {
				if callee := ir.Target(call); callee != nil && call.GetResult() != nil && d.hashesSender(callee) {
					out = append(out, call.GetResult())
				}
			}
			return out
		},
		Protected: func(path callpath.Path) bool {
			return !pa.UnprotectedStorageChange(path)
		},
		Message: "allows signature front-running",
	})
}

// hashesSender reports whether fn hashes a value derived from msg.sender
func (d *SigFrontRun) hashesSender(fn *ir.Function) bool {
	related := d.e.Oracle.Closure(fn, ir.MsgSender)
	for _, call := range fn.Calls() {
		if sc, ok := call.(*ir.SolidityCall); ok && sc.Builtin.IsKeccak() && related.HasAny(sc.Args...) {
			return true
		}
	}
	return false
}

// InsufficientSigCheck reports recovered signers that are never compared
// against an expected address.
type InsufficientSigCheck struct {
	info
	e *Engine
}

func NewInsufficientSigCheck(e *Engine) *InsufficientSigCheck {
	return &InsufficientSigCheck{info{"insufficient-sig-check", "Insufficient signature verification", High, High}, e}
}

func (d *InsufficientSigCheck) Detect(unit *ir.CompilationUnit) []Finding {
	return d.e.Match(d, unit, Pattern{
		Sink:      recoveries,
		Protected: d.e.Protectors.SignerChecked,
		Message:   "never checks the recovered signer",
	})
}
