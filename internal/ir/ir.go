// Package ir is the instruction-level intermediate representation consumed by
// the analyses. It models Solidity functions after CFG construction and SSA
// renaming: contracts own functions, functions own nodes, nodes own
// instructions. Everything is built once and then treated as read-only.
package ir

import (
	"fmt"
	"sync/atomic"
)

// Position is a location in the source the IR was loaded from
type Position struct {
	Filename string
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// ContractKind distinguishes contracts, libraries and interfaces
type ContractKind string

const (
	KindContract  ContractKind = "contract"
	KindLibrary   ContractKind = "library"
	KindInterface ContractKind = "interface"
)

// CompilationUnit is the whole program handed to the detectors
type CompilationUnit struct {
	Contracts []*Contract
	Constants []*TopLevelVariable
}

// Contract groups state variables, functions and modifiers
type Contract struct {
	Name           string
	Kind           ContractKind
	StateVariables []*StorageSlot
	Functions      []*Function
	Modifiers      []*Function
	Unit           *CompilationUnit
	Position       Position
}

var functionIDs atomic.Int64

// NewUnit creates an empty compilation unit
func NewUnit() *CompilationUnit {
	return &CompilationUnit{}
}

// NewContract adds a contract to the unit
func (u *CompilationUnit) NewContract(name string, kind ContractKind) *Contract {
	c := &Contract{Name: name, Kind: kind, Unit: u}
	u.Contracts = append(u.Contracts, c)
	return c
}

// NewConstant declares a file-level constant
func (u *CompilationUnit) NewConstant(name string, t Type, init string) *TopLevelVariable {
	v := &TopLevelVariable{Name: name, Type: t, Init: init}
	u.Constants = append(u.Constants, v)
	return v
}

// Contract looks a contract up by name
func (u *CompilationUnit) Contract(name string) *Contract {
	for _, c := range u.Contracts {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Constant looks a file-level constant up by name
func (u *CompilationUnit) Constant(name string) *TopLevelVariable {
	for _, v := range u.Constants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// ContractsDerived returns the contracts that carry deployable code:
// everything except interfaces.
func (u *CompilationUnit) ContractsDerived() []*Contract {
	var out []*Contract
	for _, c := range u.Contracts {
		if c.Kind != KindInterface {
			out = append(out, c)
		}
	}
	return out
}

// Functions returns every function and modifier of every contract
func (u *CompilationUnit) Functions() []*Function {
	var out []*Function
	for _, c := range u.Contracts {
		out = append(out, c.FunctionsAndModifiers()...)
	}
	return out
}

// NewStateVariable declares a state variable. The canonical value is
// created with the slot, so Value never allocates.
func (c *Contract) NewStateVariable(name string, t Type) *StorageSlot {
	s := &StorageSlot{Name: name, Type: t, Contract: c}
	s.base = &StateVariable{Slot: s}
	c.StateVariables = append(c.StateVariables, s)
	return s
}

// NewFunction declares a function with the given visibility
func (c *Contract) NewFunction(name string, vis Visibility) *Function {
	f := newFunction(c, name, vis, FunctionRegular)
	c.Functions = append(c.Functions, f)
	return f
}

// NewModifier declares a modifier
func (c *Contract) NewModifier(name string) *Function {
	f := newFunction(c, name, Internal, FunctionModifier)
	c.Modifiers = append(c.Modifiers, f)
	return f
}

// NewConstructor declares the constructor
func (c *Contract) NewConstructor(vis Visibility) *Function {
	f := newFunction(c, "constructor", vis, FunctionConstructor)
	c.Functions = append(c.Functions, f)
	return f
}

// FunctionsAndModifiers lists functions followed by modifiers
func (c *Contract) FunctionsAndModifiers() []*Function {
	out := make([]*Function, 0, len(c.Functions)+len(c.Modifiers))
	out = append(out, c.Functions...)
	return append(out, c.Modifiers...)
}

// Function finds a function or modifier by name
func (c *Contract) Function(name string) *Function {
	for _, f := range c.FunctionsAndModifiers() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// StateVariable finds a state variable declaration by name
func (c *Contract) StateVariable(name string) *StorageSlot {
	for _, s := range c.StateVariables {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// IsInterface reports whether the contract has no bodies
func (c *Contract) IsInterface() bool { return c.Kind == KindInterface }

func newFunction(c *Contract, name string, vis Visibility, kind FunctionKind) *Function {
	return &Function{
		ID:         int(functionIDs.Add(1)),
		Name:       name,
		Contract:   c,
		Visibility: vis,
		Kind:       kind,
	}
}
