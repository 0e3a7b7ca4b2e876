package ir

import (
	"fmt"
	"strings"
)

// Instruction is one SSA operation inside a node. The set of
// implementations is closed; analyses switch over the concrete types.
type Instruction interface {
	GetID() int
	GetNode() *Node
	GetResult() Value
	GetOperands() []Value
	String() string
	attach(n *Node, id int)
}

// Call is implemented by every call-kind instruction
type Call interface {
	Instruction
	GetCallee() Callee
	GetArguments() []Value
}

// Callee identifies a call target. Callees compare with ==: functions by
// pointer, builtins by name, unresolved external targets by contract and name.
type Callee interface {
	CalleeName() string
	isCallee()
}

// ExternalFunction is a high-level call target without a known body
type ExternalFunction struct {
	Contract string
	Name     string
}

func (e ExternalFunction) CalleeName() string { return e.Contract + "." + e.Name }
func (ExternalFunction) isCallee()            {}

type base struct {
	ID   int
	Node *Node
}

func (b *base) GetID() int             { return b.ID }
func (b *base) GetNode() *Node         { return b.Node }
func (b *base) attach(n *Node, id int) { b.Node, b.ID = n, id }

// BinaryOp is a binary operator
type BinaryOp string

const (
	OpAdd    BinaryOp = "+"
	OpSub    BinaryOp = "-"
	OpMul    BinaryOp = "*"
	OpDiv    BinaryOp = "/"
	OpMod    BinaryOp = "%"
	OpPow    BinaryOp = "**"
	OpEq     BinaryOp = "=="
	OpNeq    BinaryOp = "!="
	OpLt     BinaryOp = "<"
	OpLe     BinaryOp = "<="
	OpGt     BinaryOp = ">"
	OpGe     BinaryOp = ">="
	OpAnd    BinaryOp = "&&"
	OpOr     BinaryOp = "||"
	OpBitAnd BinaryOp = "&"
	OpBitOr  BinaryOp = "|"
	OpXor    BinaryOp = "^"
	OpShl    BinaryOp = "<<"
	OpShr    BinaryOp = ">>"
)

// IsComparison is true for relational operators
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// ReturnsBool is true when the operator yields a boolean
func (op BinaryOp) ReturnsBool() bool {
	return op.IsComparison() || op == OpAnd || op == OpOr
}

// Assignment copies RValue into LValue
type Assignment struct {
	base
	LValue Value
	RValue Value
}

// Binary applies Op to Left and Right
type Binary struct {
	base
	LValue Value
	Left   Value
	Right  Value
	Op     BinaryOp
}

// Condition is the branch test of an if or loop node
type Condition struct {
	base
	Value Value
}

// Index is LValue -> Left[Right]
type Index struct {
	base
	LValue Value
	Left   Value
	Right  Value
}

// Member is LValue -> Base.Field
type Member struct {
	base
	LValue Value
	Base   Value
	Field  string
}

// Unary applies a prefix operator
type Unary struct {
	base
	LValue  Value
	Operand Value
	Op      string
}

// TypeConversion is an explicit cast
type TypeConversion struct {
	base
	LValue  Value
	Operand Value
	To      Type
}

// Unpack extracts element Index of a tuple
type Unpack struct {
	base
	LValue Value
	Tuple  Value
	Index  int
}

// Length reads the length of an array, string or bytes value
type Length struct {
	base
	LValue  Value
	Operand Value
}

// InternalCall calls a function or modifier of the same contract
type InternalCall struct {
	base
	LValue   Value
	Function *Function
	Args     []Value
}

// HighLevelCall is an external call through a contract interface.
// Function is nil when the target body is unknown.
type HighLevelCall struct {
	base
	LValue       Value
	Destination  Value
	Contract     string
	FunctionName string
	Function     *Function
	Args         []Value
}

// LibraryCall calls a library function
type LibraryCall struct {
	base
	LValue       Value
	Library      string
	FunctionName string
	Function     *Function
	Args         []Value
}

// SolidityCall calls a builtin such as keccak256 or ecrecover
type SolidityCall struct {
	base
	LValue  Value
	Builtin Builtin
	Args    []Value
}

// LowLevelCall is address.call/staticcall/delegatecall
type LowLevelCall struct {
	base
	LValue      Value
	Destination Value
	Kind        string
	Args        []Value
}

// EventCall emits an event
type EventCall struct {
	base
	Name string
	Args []Value
}

// Return leaves the function
type Return struct {
	base
	Values []Value
}

func (i *Assignment) GetResult() Value     { return i.LValue }
func (i *Binary) GetResult() Value         { return i.LValue }
func (i *Condition) GetResult() Value      { return nil }
func (i *Index) GetResult() Value          { return i.LValue }
func (i *Member) GetResult() Value         { return i.LValue }
func (i *Unary) GetResult() Value          { return i.LValue }
func (i *TypeConversion) GetResult() Value { return i.LValue }
func (i *Unpack) GetResult() Value         { return i.LValue }
func (i *Length) GetResult() Value         { return i.LValue }
func (i *InternalCall) GetResult() Value   { return i.LValue }
func (i *HighLevelCall) GetResult() Value  { return i.LValue }
func (i *LibraryCall) GetResult() Value    { return i.LValue }
func (i *SolidityCall) GetResult() Value   { return i.LValue }
func (i *LowLevelCall) GetResult() Value   { return i.LValue }
func (i *EventCall) GetResult() Value      { return nil }
func (i *Return) GetResult() Value         { return nil }

func (i *Assignment) GetOperands() []Value     { return []Value{i.RValue} }
func (i *Binary) GetOperands() []Value         { return []Value{i.Left, i.Right} }
func (i *Condition) GetOperands() []Value      { return []Value{i.Value} }
func (i *Index) GetOperands() []Value          { return []Value{i.Left, i.Right} }
func (i *Member) GetOperands() []Value         { return []Value{i.Base} }
func (i *Unary) GetOperands() []Value          { return []Value{i.Operand} }
func (i *TypeConversion) GetOperands() []Value { return []Value{i.Operand} }
func (i *Unpack) GetOperands() []Value         { return []Value{i.Tuple} }
func (i *Length) GetOperands() []Value         { return []Value{i.Operand} }
func (i *InternalCall) GetOperands() []Value   { return i.Args }
func (i *LibraryCall) GetOperands() []Value    { return i.Args }
func (i *SolidityCall) GetOperands() []Value   { return i.Args }
func (i *EventCall) GetOperands() []Value      { return i.Args }
func (i *Return) GetOperands() []Value         { return i.Values }

func (i *HighLevelCall) GetOperands() []Value {
	return append([]Value{i.Destination}, i.Args...)
}

func (i *LowLevelCall) GetOperands() []Value {
	return append([]Value{i.Destination}, i.Args...)
}

func (i *InternalCall) GetArguments() []Value  { return i.Args }
func (i *HighLevelCall) GetArguments() []Value { return i.Args }
func (i *LibraryCall) GetArguments() []Value   { return i.Args }
func (i *SolidityCall) GetArguments() []Value  { return i.Args }
func (i *LowLevelCall) GetArguments() []Value  { return i.Args }

func (i *InternalCall) GetCallee() Callee { return i.Function }
func (i *SolidityCall) GetCallee() Callee { return i.Builtin }
func (i *LowLevelCall) GetCallee() Callee { return Builtin(i.Kind) }

func (i *HighLevelCall) GetCallee() Callee {
	if i.Function != nil {
		return i.Function
	}
	return ExternalFunction{Contract: i.Contract, Name: i.FunctionName}
}

func (i *LibraryCall) GetCallee() Callee {
	if i.Function != nil {
		return i.Function
	}
	return ExternalFunction{Contract: i.Library, Name: i.FunctionName}
}

// Target returns the resolved function body of a call, if any
func Target(c Call) *Function {
	switch c := c.(type) {
	case *InternalCall:
		return c.Function
	case *HighLevelCall:
		return c.Function
	case *LibraryCall:
		return c.Function
	}
	return nil
}

// IsBuiltinCall reports whether ins calls one of the given builtins
func IsBuiltinCall(ins Instruction, builtins ...Builtin) bool {
	sc, ok := ins.(*SolidityCall)
	if !ok {
		return false
	}
	for _, b := range builtins {
		if sc.Builtin == b {
			return true
		}
	}
	return false
}

// Constructors. Each one rejects a non-assignable result.

func NewAssignment(lv, rv Value) *Assignment {
	mustAssign("assignment", lv)
	return &Assignment{LValue: lv, RValue: rv}
}

func NewBinary(lv Value, left Value, op BinaryOp, right Value) *Binary {
	mustAssign("binary", lv)
	return &Binary{LValue: lv, Left: left, Right: right, Op: op}
}

func NewCondition(v Value) *Condition {
	return &Condition{Value: v}
}

func NewIndex(lv, left, right Value) *Index {
	mustAssign("index", lv)
	if ref, ok := lv.(*ReferenceVariable); ok && ref.PointsTo == nil {
		ref.PointsTo = left
	}
	return &Index{LValue: lv, Left: left, Right: right}
}

func NewMember(lv, b Value, field string) *Member {
	mustAssign("member", lv)
	if ref, ok := lv.(*ReferenceVariable); ok && ref.PointsTo == nil {
		ref.PointsTo = b
	}
	return &Member{LValue: lv, Base: b, Field: field}
}

func NewUnary(lv Value, op string, operand Value) *Unary {
	mustAssign("unary", lv)
	return &Unary{LValue: lv, Operand: operand, Op: op}
}

func NewTypeConversion(lv, operand Value, to Type) *TypeConversion {
	mustAssign("type conversion", lv)
	return &TypeConversion{LValue: lv, Operand: operand, To: to}
}

func NewUnpack(lv, tuple Value, index int) *Unpack {
	mustAssign("unpack", lv)
	return &Unpack{LValue: lv, Tuple: tuple, Index: index}
}

func NewLength(lv, operand Value) *Length {
	mustAssign("length", lv)
	return &Length{LValue: lv, Operand: operand}
}

func NewInternalCall(lv Value, fn *Function, args ...Value) *InternalCall {
	if lv != nil {
		mustAssign("internal call", lv)
	}
	if fn == nil {
		panic("ir: internal call without a target function")
	}
	return &InternalCall{LValue: lv, Function: fn, Args: args}
}

func NewHighLevelCall(lv, dest Value, contract, name string, fn *Function, args ...Value) *HighLevelCall {
	if lv != nil {
		mustAssign("high level call", lv)
	}
	return &HighLevelCall{LValue: lv, Destination: dest, Contract: contract, FunctionName: name, Function: fn, Args: args}
}

func NewLibraryCall(lv Value, library, name string, fn *Function, args ...Value) *LibraryCall {
	if lv != nil {
		mustAssign("library call", lv)
	}
	return &LibraryCall{LValue: lv, Library: library, FunctionName: name, Function: fn, Args: args}
}

func NewSolidityCall(lv Value, b Builtin, args ...Value) *SolidityCall {
	if lv != nil {
		mustAssign("solidity call", lv)
	}
	return &SolidityCall{LValue: lv, Builtin: b, Args: args}
}

func NewLowLevelCall(lv, dest Value, kind string, args ...Value) *LowLevelCall {
	if lv != nil {
		mustAssign("low level call", lv)
	}
	return &LowLevelCall{LValue: lv, Destination: dest, Kind: kind, Args: args}
}

func NewEventCall(name string, args ...Value) *EventCall {
	return &EventCall{Name: name, Args: args}
}

func NewReturn(values ...Value) *Return {
	return &Return{Values: values}
}

// String forms follow the textual IR syntax

func lhs(v Value, op string) string {
	if v == nil {
		return ""
	}
	if t := v.GetType(); t != nil {
		return fmt.Sprintf("%s: %s %s ", v, t, op)
	}
	return fmt.Sprintf("%s %s ", v, op)
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func (i *Assignment) String() string {
	return lhs(i.LValue, ":=") + i.RValue.String()
}

func (i *Binary) String() string {
	return fmt.Sprintf("%s%s %s %s", lhs(i.LValue, "="), i.Left, i.Op, i.Right)
}

func (i *Condition) String() string { return "condition " + i.Value.String() }

func (i *Index) String() string {
	return fmt.Sprintf("%s%s[%s]", lhs(i.LValue, "->"), i.Left, i.Right)
}

func (i *Member) String() string {
	return fmt.Sprintf("%smember %s %s", lhs(i.LValue, "="), i.Base, i.Field)
}

func (i *Unary) String() string {
	return fmt.Sprintf("%s%s %s", lhs(i.LValue, "="), i.Op, i.Operand)
}

func (i *TypeConversion) String() string {
	return fmt.Sprintf("%sconvert %s to %s", lhs(i.LValue, "="), i.Operand, i.To)
}

func (i *Unpack) String() string {
	return fmt.Sprintf("%sunpack %s %d", lhs(i.LValue, "="), i.Tuple, i.Index)
}

func (i *Length) String() string {
	return fmt.Sprintf("%slength %s", lhs(i.LValue, "="), i.Operand)
}

func (i *InternalCall) String() string {
	return fmt.Sprintf("%sinternal %s(%s)", lhs(i.LValue, "="), i.Function.Name, joinValues(i.Args))
}

func (i *HighLevelCall) String() string {
	return fmt.Sprintf("%shigh %s.%s(%s) on %s", lhs(i.LValue, "="), i.Contract, i.FunctionName, joinValues(i.Args), i.Destination)
}

func (i *LibraryCall) String() string {
	return fmt.Sprintf("%slibrary %s.%s(%s)", lhs(i.LValue, "="), i.Library, i.FunctionName, joinValues(i.Args))
}

func (i *SolidityCall) String() string {
	return fmt.Sprintf("%ssolidity %s(%s)", lhs(i.LValue, "="), i.Builtin, joinValues(i.Args))
}

func (i *LowLevelCall) String() string {
	return fmt.Sprintf("%slowlevel %s(%s) on %s", lhs(i.LValue, "="), i.Kind, joinValues(i.Args), i.Destination)
}

func (i *EventCall) String() string {
	return fmt.Sprintf("emit %s(%s)", i.Name, joinValues(i.Args))
}

func (i *Return) String() string {
	if len(i.Values) == 0 {
		return "return"
	}
	return "return " + joinValues(i.Values)
}
