package ir

// Builder appends instructions to the current node of a function. It is a
// convenience over the New* constructors for hand-built IR.
type Builder struct {
	fn   *Function
	node *Node
}

// NewBuilder starts building f; the first node is created lazily
func NewBuilder(f *Function) *Builder {
	return &Builder{fn: f}
}

// Function returns the function under construction
func (b *Builder) Function() *Function { return b.fn }

// Node starts a new node of the given kind
func (b *Builder) Node(kind NodeKind) *Node {
	b.node = b.fn.NewNode(kind)
	return b.node
}

// Current returns the node instructions are appended to
func (b *Builder) Current() *Node {
	if b.node == nil {
		b.Node(NodeExpression)
	}
	return b.node
}

// Add appends an instruction to the current node
func (b *Builder) Add(ins Instruction) Instruction {
	return b.Current().Add(ins)
}

// Assign emits lv := rv
func (b *Builder) Assign(lv, rv Value) Value {
	b.Add(NewAssignment(lv, rv))
	return lv
}

// Binary emits a binary operation into a fresh temporary
func (b *Builder) Binary(left Value, op BinaryOp, right Value) *TemporaryVariable {
	t := Uint256
	if op.ReturnsBool() {
		t = Bool
	}
	tmp := b.fn.NewTemp(t)
	b.Add(NewBinary(tmp, left, op, right))
	return tmp
}

// Eq emits left == right
func (b *Builder) Eq(left, right Value) *TemporaryVariable {
	return b.Binary(left, OpEq, right)
}

// Condition emits a branch test
func (b *Builder) Condition(v Value) {
	b.Add(NewCondition(v))
}

// Index emits REF -> base[key]
func (b *Builder) Index(base, key Value, elem Type) *ReferenceVariable {
	ref := b.fn.NewRef(elem, nil)
	b.Add(NewIndex(ref, base, key))
	return ref
}

// Member emits REF -> base.field
func (b *Builder) Member(base Value, field string, t Type) *ReferenceVariable {
	ref := b.fn.NewRef(t, nil)
	b.Add(NewMember(ref, base, field))
	return ref
}

// Convert emits a type conversion
func (b *Builder) Convert(v Value, to Type) *TemporaryVariable {
	tmp := b.fn.NewTemp(to)
	b.Add(NewTypeConversion(tmp, v, to))
	return tmp
}

// Unpack emits an unpack of element i
func (b *Builder) Unpack(tuple Value, i int, t Type) *TemporaryVariable {
	tmp := b.fn.NewTemp(t)
	b.Add(NewUnpack(tmp, tuple, i))
	return tmp
}

// Length emits a length read
func (b *Builder) Length(v Value) *TemporaryVariable {
	tmp := b.fn.NewTemp(Uint256)
	b.Add(NewLength(tmp, v))
	return tmp
}

// Solidity emits a builtin call into a temporary of the builtin's return
// type. Builtins without a result return nil.
func (b *Builder) Solidity(builtin Builtin, args ...Value) Value {
	t := builtin.ReturnType()
	if t == nil {
		b.Add(NewSolidityCall(nil, builtin, args...))
		return nil
	}
	tmp := b.fn.NewTemp(t)
	b.Add(NewSolidityCall(tmp, builtin, args...))
	return tmp
}

// Keccak emits keccak256(args...)
func (b *Builder) Keccak(args ...Value) Value {
	return b.Solidity(Keccak256, args...)
}

// Encode emits abi.encode or abi.encodePacked
func (b *Builder) Encode(packed bool, args ...Value) Value {
	if packed {
		return b.Solidity(AbiEncodePacked, args...)
	}
	return b.Solidity(AbiEncode, args...)
}

// Ecrecover emits ecrecover(h, v, r, s)
func (b *Builder) Ecrecover(h, v, r, s Value) Value {
	return b.Solidity(Ecrecover, h, v, r, s)
}

// Require emits require(cond)
func (b *Builder) Require(cond Value) {
	b.Solidity(Require, cond)
}

// Call emits an internal call. The result temporary takes the callee's
// first return type; nil when the callee returns nothing.
func (b *Builder) Call(fn *Function, args ...Value) Value {
	if len(fn.Returns) > 0 {
		tmp := b.fn.NewTemp(fn.Returns[0])
		b.Add(NewInternalCall(tmp, fn, args...))
		return tmp
	}
	b.Add(NewInternalCall(nil, fn, args...))
	return nil
}

// Library emits a call to a library function
func (b *Builder) Library(fn *Function, args ...Value) Value {
	lib := ""
	if fn.Contract != nil {
		lib = fn.Contract.Name
	}
	if len(fn.Returns) > 0 {
		tmp := b.fn.NewTemp(fn.Returns[0])
		b.Add(NewLibraryCall(tmp, lib, fn.Name, fn, args...))
		return tmp
	}
	b.Add(NewLibraryCall(nil, lib, fn.Name, fn, args...))
	return nil
}

// High emits an external call to a resolved function on dest
func (b *Builder) High(dest Value, fn *Function, args ...Value) Value {
	contract := ""
	if fn.Contract != nil {
		contract = fn.Contract.Name
	}
	var lv Value
	if len(fn.Returns) > 0 {
		lv = b.fn.NewTemp(fn.Returns[0])
	}
	b.Add(NewHighLevelCall(lv, dest, contract, fn.Name, fn, args...))
	return lv
}

// Emit emits an event
func (b *Builder) Emit(name string, args ...Value) {
	b.Add(NewEventCall(name, args...))
}

// Return emits a return in a dedicated return node
func (b *Builder) Return(values ...Value) {
	b.Node(NodeReturn)
	b.Add(NewReturn(values...))
}
