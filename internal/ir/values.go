package ir

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
)

// Value is an SSA value. Values are compared by identity, so they can be
// used directly as map keys.
type Value interface {
	GetName() string
	GetType() Type
	String() string
	isValue()
}

// LocalVariable is a function-scoped variable or parameter
type LocalVariable struct {
	Name     string
	Type     Type
	Function *Function
	Index    int // parameter position, -1 for plain locals
}

// StorageSlot is the mutable state variable declaration that SSA versions point back to
type StorageSlot struct {
	Name     string
	Type     Type
	Contract *Contract
	Constant bool
	Init     string
	Position Position

	base *StateVariable
}

// StateVariable is one SSA version of a storage slot
type StateVariable struct {
	Slot    *StorageSlot
	Version int
}

// TemporaryVariable holds an intermediate result (TMP_n)
type TemporaryVariable struct {
	Name string
	Type Type
}

// ReferenceVariable is the result of an index or member access (REF_n).
// Writes through a reference are writes to the value it points to.
type ReferenceVariable struct {
	Name     string
	Type     Type
	PointsTo Value
}

// TupleVariable holds a multi-value call result (TUPLE_n)
type TupleVariable struct {
	Name string
	Type Type
}

// Constant is a literal
type Constant struct {
	Text string
	Type Type
}

// TopLevelVariable is a file-level constant
type TopLevelVariable struct {
	Name string
	Type Type
	Init string
}

// SolidityVariable is a platform-provided value such as msg.sender
type SolidityVariable struct {
	Name string
	Type Type
}

func (*LocalVariable) isValue()     {}
func (*StateVariable) isValue()     {}
func (*TemporaryVariable) isValue() {}
func (*ReferenceVariable) isValue() {}
func (*TupleVariable) isValue()     {}
func (*Constant) isValue()          {}
func (*TopLevelVariable) isValue()  {}
func (*SolidityVariable) isValue()  {}

func (v *LocalVariable) GetName() string     { return v.Name }
func (v *StateVariable) GetName() string     { return v.Slot.Name }
func (v *TemporaryVariable) GetName() string { return v.Name }
func (v *ReferenceVariable) GetName() string { return v.Name }
func (v *TupleVariable) GetName() string     { return v.Name }
func (v *Constant) GetName() string          { return v.Text }
func (v *TopLevelVariable) GetName() string  { return v.Name }
func (v *SolidityVariable) GetName() string  { return v.Name }

func (v *LocalVariable) GetType() Type     { return v.Type }
func (v *StateVariable) GetType() Type     { return v.Slot.Type }
func (v *TemporaryVariable) GetType() Type { return v.Type }
func (v *ReferenceVariable) GetType() Type { return v.Type }
func (v *TupleVariable) GetType() Type     { return v.Type }
func (v *Constant) GetType() Type          { return v.Type }
func (v *TopLevelVariable) GetType() Type  { return v.Type }
func (v *SolidityVariable) GetType() Type  { return v.Type }

func (v *LocalVariable) String() string     { return v.Name }
func (v *StateVariable) String() string     { return v.Slot.Name }
func (v *TemporaryVariable) String() string { return v.Name }
func (v *ReferenceVariable) String() string { return v.Name }
func (v *TupleVariable) String() string     { return v.Name }
func (v *TopLevelVariable) String() string  { return v.Name }
func (v *SolidityVariable) String() string  { return v.Name }

func (v *Constant) String() string {
	if SameType(v.Type, String) {
		return strconv.Quote(v.Text)
	}
	return v.Text
}

// IsParameter reports whether the local is a declared parameter
func (v *LocalVariable) IsParameter() bool { return v.Index >= 0 }

// Value returns the canonical version of the slot. Every SSA version of a
// slot is collapsed to it by Canonical. Slots must come from
// Contract.NewStateVariable.
func (s *StorageSlot) Value() *StateVariable {
	return s.base
}

// Version creates a new SSA version of the slot
func (s *StorageSlot) Version(n int) *StateVariable {
	if n == 0 {
		return s.Value()
	}
	return &StateVariable{Slot: s, Version: n}
}

// Int returns the numeric value of an integer literal
func (v *Constant) Int() (*big.Int, bool) {
	return math.ParseBig256(v.Text)
}

// NewConstant creates a literal of type t
func NewConstant(text string, t Type) *Constant {
	return &Constant{Text: text, Type: t}
}

// IntConstant creates a uint256 literal
func IntConstant(n int64) *Constant {
	return &Constant{Text: strconv.FormatInt(n, 10), Type: Uint256}
}

// Platform values. They are singletons so identity comparison works across
// the whole compilation unit.
var (
	MsgSender       = &SolidityVariable{Name: "msg.sender", Type: Address}
	MsgValue        = &SolidityVariable{Name: "msg.value", Type: Uint256}
	MsgData         = &SolidityVariable{Name: "msg.data", Type: Bytes}
	MsgSig          = &SolidityVariable{Name: "msg.sig", Type: Elementary("bytes4")}
	TxOrigin        = &SolidityVariable{Name: "tx.origin", Type: Address}
	BlockChainID    = &SolidityVariable{Name: "block.chainid", Type: Uint256}
	ChainID         = &SolidityVariable{Name: "chain.id", Type: Uint256}
	BlockTimestamp  = &SolidityVariable{Name: "block.timestamp", Type: Uint256}
	BlockNumber     = &SolidityVariable{Name: "block.number", Type: Uint256}
	BlockCoinbase   = &SolidityVariable{Name: "block.coinbase", Type: Address}
	BlockDifficulty = &SolidityVariable{Name: "block.difficulty", Type: Uint256}
	BlockPrevrandao = &SolidityVariable{Name: "block.prevrandao", Type: Uint256}
	Now             = &SolidityVariable{Name: "now", Type: Uint256}
	This            = &SolidityVariable{Name: "this", Type: Address}
)

var solidityVariables = map[string]*SolidityVariable{}

func init() {
	for _, v := range []*SolidityVariable{
		MsgSender, MsgValue, MsgData, MsgSig, TxOrigin, BlockChainID, ChainID,
		BlockTimestamp, BlockNumber, BlockCoinbase, BlockDifficulty, BlockPrevrandao, Now, This,
	} {
		solidityVariables[v.Name] = v
	}
}

// LookupSolidityVariable returns the platform value with the given name
func LookupSolidityVariable(name string) (*SolidityVariable, bool) {
	v, ok := solidityVariables[name]
	return v, ok
}

// SolidityVariableNames lists every platform value name
func SolidityVariableNames() []string {
	names := make([]string, 0, len(solidityVariables))
	for name := range solidityVariables {
		names = append(names, name)
	}
	return names
}

// IsAssignable reports whether v may appear as an instruction result
func IsAssignable(v Value) bool {
	switch v.(type) {
	case *LocalVariable, *StateVariable, *TemporaryVariable, *ReferenceVariable, *TupleVariable:
		return true
	}
	return false
}

// Canonical collapses SSA versions of a state variable onto the slot's
// canonical value. Other values are returned unchanged.
func Canonical(v Value) Value {
	if s, ok := v.(*StateVariable); ok {
		return s.Slot.Value()
	}
	return v
}

// Root follows reference chains to the value ultimately written through them
func Root(v Value) Value {
	seen := 0
	for {
		ref, ok := v.(*ReferenceVariable)
		if !ok || ref.PointsTo == nil || seen > 64 {
			return v
		}
		v = ref.PointsTo
		seen++
	}
}

// IsState reports whether v is a state variable or a reference rooted in one
func IsState(v Value) bool {
	_, ok := Root(v).(*StateVariable)
	return ok
}

// IsZero reports whether v is the integer literal zero
func IsZero(v Value) bool {
	c, ok := v.(*Constant)
	if !ok {
		return false
	}
	n, ok := c.Int()
	return ok && n.Sign() == 0
}

func mustAssign(op string, v Value) {
	if v == nil || !IsAssignable(v) {
		panic(fmt.Sprintf("ir: %s: %v is not assignable", op, v))
	}
}
