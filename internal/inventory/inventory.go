// Package inventory lists the cryptographic primitives a compilation unit
// uses: hash builtins, signature recovery, ABI encoders and precompile
// calls.
package inventory

import (
	"sort"

	"github.com/tliron/commonlog"

	"cryptoscan/internal/asm"
	"cryptoscan/internal/evm"
	"cryptoscan/internal/ir"
)

var log = commonlog.GetLogger("cryptoscan.inventory")

// Kind groups inventory entries
type Kind string

const (
	KindHash       Kind = "hash"
	KindRecover    Kind = "recover"
	KindEncode     Kind = "encode"
	KindPrecompile Kind = "precompile"
)

// Entry is one use of a primitive
type Entry struct {
	Kind     Kind
	Name     string
	Function *ir.Function
	Node     *ir.Node
	// Inputs are the variables passed to a precompile
	Inputs []ir.Value
}

// Collect walks every function and modifier of unit in declaration order
func Collect(unit *ir.CompilationUnit) []Entry {
	var out []Entry
	for _, fn := range unit.Functions() {
		for _, n := range fn.Nodes {
			if n.IsAssembly() {
				for _, call := range asm.ExtractLowLevelCalls(n.Source) {
					if name, ok := precompile(call.Address); ok {
						out = append(out, Entry{Kind: KindPrecompile, Name: name, Function: fn, Node: n, Inputs: asmInputs(fn, call)})
					}
				}
				continue
			}
			for _, ins := range n.Instructions {
				if e, ok := classify(ins); ok {
					e.Function, e.Node = fn, n
					out = append(out, e)
				}
			}
		}
	}
	log.Debugf("inventory: %d entries", len(out))
	return out
}

func classify(ins ir.Instruction) (Entry, bool) {
	switch ins := ins.(type) {
	case *ir.SolidityCall:
		switch {
		case ins.Builtin == ir.Ecrecover:
			return Entry{Kind: KindRecover, Name: string(ins.Builtin)}, true
		case ins.Builtin.IsHash():
			return Entry{Kind: KindHash, Name: string(ins.Builtin)}, true
		case ins.Builtin.IsEncode():
			return Entry{Kind: KindEncode, Name: string(ins.Builtin)}, true
		}
	case *ir.LowLevelCall:
		if c, ok := ins.Destination.(*ir.Constant); ok {
			if name, ok := precompile(c.Text); ok {
				return Entry{Kind: KindPrecompile, Name: name, Inputs: ins.Args}, true
			}
		}
	}
	return Entry{}, false
}

// asmInputs resolves the identifiers of the input argument of call to the
// locals of fn. Opcodes and yul-only names are dropped.
func asmInputs(fn *ir.Function, call asm.LowLevelCall) []ir.Value {
	var out []ir.Value
	for _, name := range call.Inputs {
		if local, ok := fn.LookupLocal(name); ok {
			out = append(out, local)
		}
	}
	return out
}

// precompile names the precompile at the address text, skipping identity,
// which only copies memory.
func precompile(address string) (string, bool) {
	name, ok := evm.Precompile(address)
	if !ok || evm.IsPrecompile(address, evm.IdentityAddress) {
		return "", false
	}
	return name, true
}

// Count tallies entries by name
type Count struct {
	Kind  Kind
	Name  string
	Count int
}

// Summarize counts entries per (kind, name), sorted by kind then name
func Summarize(entries []Entry) []Count {
	index := map[[2]string]int{}
	var out []Count
	for _, e := range entries {
		k := [2]string{string(e.Kind), e.Name}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Count{Kind: e.Kind, Name: e.Name})
		}
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}
