package protector

import (
	"slices"

	"cryptoscan/internal/asm"
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// Domain describes how a contract binds its signed digests to the current
// chain and to its own address.
type Domain struct {
	// ChainReaders read chainid() in inline assembly
	ChainReaders map[*ir.Function]bool
	// ChainHashers hash a value derived from the chain id
	ChainHashers map[*ir.Function]bool
	// ChainState is storage assigned from a chain-bound value
	ChainState dependency.Set
	// ContractHashers hash a value derived from the contract address
	ContractHashers map[*ir.Function]bool
	// ContractState is storage assigned from an address-bound value
	ContractState dependency.Set

	aliases map[*ir.Function][]ir.Value
}

// Domain computes the domain facts of c over every function and modifier
// of c and the functions they reach. The result is memoized.
func (a *Analyzer) Domain(c *ir.Contract) *Domain {
	if d, ok := a.domains.Load(c); ok {
		return d.(*Domain)
	}
	d, _ := a.domains.LoadOrStore(c, a.computeDomain(a.ContractRelations(c).Functions))
	return d.(*Domain)
}

func (a *Analyzer) computeDomain(fns []*ir.Function) *Domain {
	d := &Domain{
		ChainReaders:    map[*ir.Function]bool{},
		ChainHashers:    map[*ir.Function]bool{},
		ChainState:      dependency.NewSet(),
		ContractHashers: map[*ir.Function]bool{},
		ContractState:   dependency.NewSet(),
		aliases:         map[*ir.Function][]ir.Value{},
	}
	for _, fn := range fns {
		for _, n := range fn.Nodes {
			if !n.IsAssembly() {
				continue
			}
			if name, ok := asm.ExtractChainIDAlias(n.Source); ok {
				d.ChainReaders[fn] = true
				if local, ok := fn.LookupLocal(name); ok {
					d.aliases[fn] = append(d.aliases[fn], local)
				}
				continue
			}
			// chainid() consumed inline, typically stored into the buffer
			// the block then hashes.
			if asm.ReadsChainID(n.Source) {
				d.ChainReaders[fn] = true
				if slices.Contains(asm.Identifiers(n.Source), "keccak256") {
					d.ChainHashers[fn] = true
				}
			}
		}
	}

	a.bind(fns, d.ChainSources, d.ChainHashers, d.ChainState)
	a.bind(fns, func(*ir.Function) []ir.Value {
		out := []ir.Value{ir.This}
		for v := range d.ContractState {
			out = append(out, v)
		}
		return out
	}, d.ContractHashers, d.ContractState)
	return d
}

// bind marks the functions hashing a value related to the sources and the
// storage assigned from such values, until no new storage is found.
func (a *Analyzer) bind(fns []*ir.Function, sources func(*ir.Function) []ir.Value, hashers map[*ir.Function]bool, state dependency.Set) {
	for changed := true; changed; {
		changed = false
		for _, fn := range fns {
			related := a.Oracle.Closure(fn, sources(fn)...)
			for _, call := range fn.Calls() {
				if sc, ok := call.(*ir.SolidityCall); ok && sc.Builtin.IsHash() && related.HasAny(sc.Args...) {
					hashers[fn] = true
				}
			}
			for _, sv := range fn.StateVariablesWritten() {
				if related.Has(sv) && state.Add(sv) {
					changed = true
				}
			}
		}
	}
}

// ChainSources returns the values of fn that identify the chain: the chain
// id variables, chain-bound storage, assembly aliases of chainid() and the
// results of calls to functions reading it.
func (d *Domain) ChainSources(fn *ir.Function) []ir.Value {
	out := []ir.Value{ir.BlockChainID, ir.ChainID}
	for v := range d.ChainState {
		out = append(out, v)
	}
	out = append(out, d.aliases[fn]...)
	for _, call := range fn.Calls() {
		if callee := ir.Target(call); callee != nil && d.ChainReaders[callee] && call.GetResult() != nil {
			out = append(out, call.GetResult())
		}
	}
	return out
}

// ChainSeparated reports whether the contract of the path entry, or any
// function related to path, binds digests to the chain id.
func (a *Analyzer) ChainSeparated(path callpath.Path) bool {
	entry := path.Entry()
	if entry == nil {
		return false
	}
	if entry.Contract != nil && len(a.Domain(entry.Contract).ChainHashers) > 0 {
		return true
	}
	d := a.computeDomain(CallRelations(path).Functions)
	return len(d.ChainHashers) > 0
}

// ContractSeparated reports whether a function of c that binds digests to
// the contract address is called from somewhere in c.
func (a *Analyzer) ContractSeparated(c *ir.Contract) bool {
	d := a.Domain(c)
	rel := a.ContractRelations(c)
	for fn := range d.ContractHashers {
		if len(rel.CalledBy[fn]) > 0 {
			return true
		}
	}
	return false
}
