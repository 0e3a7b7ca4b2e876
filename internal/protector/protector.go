// Package protector recognizes the code patterns that neutralize a
// signature weakness on a call path: nonces, balance checks, sender
// binding, condition checks and domain separators.
package protector

import (
	"sync"

	"github.com/tliron/commonlog"

	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

var log = commonlog.GetLogger("cryptoscan.protector")

// Analyzer evaluates protectors over call paths. Per-contract facts are
// memoized, so one Analyzer should be shared by every detector of a run.
type Analyzer struct {
	Oracle *dependency.Oracle

	relations sync.Map // *ir.Contract -> *Relations
	domains   sync.Map // *ir.Contract -> *Domain
}

// New creates an analyzer backed by oracle
func New(oracle *dependency.Oracle) *Analyzer {
	return &Analyzer{Oracle: oracle}
}

// Whitelist returns the values of fn that never make a check meaningful:
// tx.origin and conversions of zero or the contract itself to an address.
func Whitelist(fn *ir.Function) dependency.Set {
	out := dependency.NewSet(ir.TxOrigin)
	for _, ins := range fn.Instructions() {
		conv, ok := ins.(*ir.TypeConversion)
		if !ok || !ir.IsAddressType(conv.To) {
			continue
		}
		if ir.IsZero(conv.Operand) || conv.Operand == ir.Value(ir.This) {
			out.Add(conv.LValue)
		}
	}
	return out
}

// NonceFilter is an index filter that stops dependency at reads of
// address-keyed mappings the function both reads and writes.
func NonceFilter(fn *ir.Function, index *ir.Index) bool {
	sv, ok := ir.Canonical(index.Left).(*ir.StateVariable)
	if !ok || !ir.IsAddressMapping(sv.GetType()) {
		return false
	}
	return fn.Reads(sv) && fn.Writes(sv)
}

func isHashOrEncode(ins ir.Instruction) (*ir.SolidityCall, bool) {
	sc, ok := ins.(*ir.SolidityCall)
	if !ok || !(sc.Builtin.IsHash() || sc.Builtin.IsEncode()) {
		return nil, false
	}
	return sc, true
}

func usesKeccak(fn *ir.Function) bool {
	return fn.CallsBuiltin(ir.Keccak256) || fn.CallsBuiltin(ir.Sha3)
}

func readsValue(fn *ir.Function, v ir.Value) bool {
	return fn != nil && fn.Reads(v)
}

func containsValue(vs []ir.Value, v ir.Value) bool {
	for _, x := range vs {
		if ir.Canonical(x) == ir.Canonical(v) {
			return true
		}
	}
	return false
}
