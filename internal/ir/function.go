package ir

import (
	"fmt"
	"strings"
	"sync"
)

// Visibility of a function
type Visibility string

const (
	Public   Visibility = "public"
	External Visibility = "external"
	Internal Visibility = "internal"
	Private  Visibility = "private"
)

// FunctionKind separates regular functions from modifiers and constructors
type FunctionKind int

const (
	FunctionRegular FunctionKind = iota
	FunctionModifier
	FunctionConstructor
)

// Function is a CFG of nodes. The ID is unique within the process and is
// used to build stable path keys.
type Function struct {
	ID         int
	Name       string
	Contract   *Contract
	Visibility Visibility
	Kind       FunctionKind
	View       bool
	Pure       bool
	Payable    bool
	Parameters []*LocalVariable
	Returns    []Type
	Modifiers  []*Function
	Nodes      []*Node
	Position   Position

	locals   map[string]*LocalVariable
	temps    int
	refs     int
	tuples   int
	instrs   int
	domsOnce sync.Once
}

func (f *Function) CalleeName() string { return f.CanonicalName() }
func (*Function) isCallee()            {}

func (f *Function) String() string { return f.CanonicalName() }

// AddParameter appends a declared parameter
func (f *Function) AddParameter(name string, t Type) *LocalVariable {
	p := &LocalVariable{Name: name, Type: t, Function: f, Index: len(f.Parameters)}
	f.Parameters = append(f.Parameters, p)
	f.register(p)
	return p
}

// Local returns the local variable called name, creating it on first use
func (f *Function) Local(name string, t Type) *LocalVariable {
	if v, ok := f.locals[name]; ok {
		if v.Type == nil {
			v.Type = t
		}
		return v
	}
	v := &LocalVariable{Name: name, Type: t, Function: f, Index: -1}
	f.register(v)
	return v
}

// LookupLocal finds a parameter or local by name
func (f *Function) LookupLocal(name string) (*LocalVariable, bool) {
	v, ok := f.locals[name]
	return v, ok
}

func (f *Function) register(v *LocalVariable) {
	if f.locals == nil {
		f.locals = make(map[string]*LocalVariable)
	}
	f.locals[v.Name] = v
}

// NewTemp creates a fresh temporary
func (f *Function) NewTemp(t Type) *TemporaryVariable {
	v := &TemporaryVariable{Name: fmt.Sprintf("TMP_%d", f.temps), Type: t}
	f.temps++
	return v
}

// NewRef creates a fresh reference. pointsTo may be nil; Index and Member
// constructors fill it in.
func (f *Function) NewRef(t Type, pointsTo Value) *ReferenceVariable {
	v := &ReferenceVariable{Name: fmt.Sprintf("REF_%d", f.refs), Type: t, PointsTo: pointsTo}
	f.refs++
	return v
}

// NewTuple creates a fresh tuple holder
func (f *Function) NewTuple(types ...Type) *TupleVariable {
	v := &TupleVariable{Name: fmt.Sprintf("TUPLE_%d", f.tuples), Type: &TupleType{Elements: types}}
	f.tuples++
	return v
}

// NewNode appends a node. When the previous node has no successors yet and
// does not return, the new node becomes its fallthrough successor.
func (f *Function) NewNode(kind NodeKind) *Node {
	n := &Node{ID: len(f.Nodes), Kind: kind, Function: f}
	if len(f.Nodes) > 0 {
		prev := f.Nodes[len(f.Nodes)-1]
		if len(prev.Sons) == 0 && prev.Kind != NodeReturn {
			prev.Link(n)
		}
	}
	f.Nodes = append(f.Nodes, n)
	return n
}

// Entry returns the first node
func (f *Function) Entry() *Node {
	if len(f.Nodes) == 0 {
		return nil
	}
	return f.Nodes[0]
}

// Instructions returns every instruction in node order
func (f *Function) Instructions() []Instruction {
	var out []Instruction
	for _, n := range f.Nodes {
		out = append(out, n.Instructions...)
	}
	return out
}

// Calls returns every call-kind instruction in node order
func (f *Function) Calls() []Call {
	var out []Call
	for _, n := range f.Nodes {
		for _, ins := range n.Instructions {
			if c, ok := ins.(Call); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// InternalCalls lists distinct internal callees in call order, followed by
// declared modifiers not invoked explicitly.
func (f *Function) InternalCalls() []*Function {
	var out []*Function
	seen := map[*Function]bool{}
	add := func(g *Function) {
		if g != nil && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	for _, c := range f.Calls() {
		if ic, ok := c.(*InternalCall); ok {
			add(ic.Function)
		}
	}
	for _, m := range f.Modifiers {
		add(m)
	}
	return out
}

// LibraryCalls lists distinct resolved library callees
func (f *Function) LibraryCalls() []*Function {
	return f.resolved(func(c Call) *Function {
		if lc, ok := c.(*LibraryCall); ok {
			return lc.Function
		}
		return nil
	})
}

// HighLevelCalls lists distinct resolved external callees
func (f *Function) HighLevelCalls() []*Function {
	return f.resolved(func(c Call) *Function {
		if hc, ok := c.(*HighLevelCall); ok {
			return hc.Function
		}
		return nil
	})
}

func (f *Function) resolved(pick func(Call) *Function) []*Function {
	var out []*Function
	seen := map[*Function]bool{}
	for _, c := range f.Calls() {
		if g := pick(c); g != nil && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// SolidityCalls lists distinct builtins used by the function
func (f *Function) SolidityCalls() []Builtin {
	var out []Builtin
	seen := map[Builtin]bool{}
	for _, c := range f.Calls() {
		if sc, ok := c.(*SolidityCall); ok && !seen[sc.Builtin] {
			seen[sc.Builtin] = true
			out = append(out, sc.Builtin)
		}
	}
	return out
}

// CallsBuiltin reports whether the function uses b directly
func (f *Function) CallsBuiltin(b Builtin) bool {
	for _, got := range f.SolidityCalls() {
		if got == b {
			return true
		}
	}
	return false
}

// StateVariablesRead lists the canonical state variables the function reads
func (f *Function) StateVariablesRead() []*StateVariable {
	var out []*StateVariable
	seen := map[*StateVariable]bool{}
	for _, ins := range f.Instructions() {
		for _, op := range ins.GetOperands() {
			if s, ok := Root(op).(*StateVariable); ok {
				s = s.Slot.Value()
				if !seen[s] {
					seen[s] = true
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// StateVariablesWritten lists the canonical state variables the function
// writes, directly or through references.
func (f *Function) StateVariablesWritten() []*StateVariable {
	var out []*StateVariable
	seen := map[*StateVariable]bool{}
	for _, v := range f.VariablesWritten() {
		if s, ok := v.(*StateVariable); ok {
			s = s.Slot.Value()
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// VariablesRead lists every distinct operand of the function
func (f *Function) VariablesRead() []Value {
	var out []Value
	seen := map[Value]bool{}
	for _, ins := range f.Instructions() {
		for _, op := range ins.GetOperands() {
			op = Canonical(op)
			if op != nil && !seen[op] {
				seen[op] = true
				out = append(out, op)
			}
		}
	}
	return out
}

// VariablesWritten lists the values assigned by the function. Index and
// Member only define references; writes through those references count
// against the value they point to.
func (f *Function) VariablesWritten() []Value {
	var out []Value
	seen := map[Value]bool{}
	for _, ins := range f.Instructions() {
		switch ins.(type) {
		case *Index, *Member:
			continue
		}
		lv := ins.GetResult()
		if lv == nil {
			continue
		}
		for _, v := range []Value{lv, Root(lv)} {
			v = Canonical(v)
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Writes reports whether the function assigns v
func (f *Function) Writes(v Value) bool {
	v = Canonical(v)
	for _, w := range f.VariablesWritten() {
		if w == v {
			return true
		}
	}
	return false
}

// Reads reports whether the function reads v
func (f *Function) Reads(v Value) bool {
	v = Canonical(v)
	for _, r := range f.VariablesRead() {
		if r == v {
			return true
		}
	}
	return false
}

// IsExternallyReachable is true for public and external functions
func (f *Function) IsExternallyReachable() bool {
	return f.Kind != FunctionModifier && (f.Visibility == Public || f.Visibility == External)
}

// IsInternal is true for internal and private functions
func (f *Function) IsInternal() bool {
	return f.Visibility == Internal || f.Visibility == Private
}

// IsModifier reports whether the function is a modifier
func (f *Function) IsModifier() bool { return f.Kind == FunctionModifier }

// Signature is name(type,...)
func (f *Function) Signature() string {
	types := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		if p.Type != nil {
			types[i] = p.Type.String()
		}
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(types, ","))
}

// CanonicalName is Contract.name(type,...)
func (f *Function) CanonicalName() string {
	if f.Contract == nil {
		return f.Signature()
	}
	return f.Contract.Name + "." + f.Signature()
}

// NodeKind classifies CFG nodes
type NodeKind string

const (
	NodeEntry       NodeKind = "entry"
	NodeExpression  NodeKind = "expression"
	NodeIf          NodeKind = "if"
	NodeIfLoop      NodeKind = "ifloop"
	NodeStartLoop   NodeKind = "startloop"
	NodeEndLoop     NodeKind = "endloop"
	NodeReturn      NodeKind = "return"
	NodeAsm         NodeKind = "asm"
	NodeEndAsm      NodeKind = "endasm"
	NodePlaceholder NodeKind = "placeholder"
	NodeOther       NodeKind = "other"
)

// NodeKinds lists every node kind
var NodeKinds = []NodeKind{
	NodeEntry, NodeExpression, NodeIf, NodeIfLoop, NodeStartLoop, NodeEndLoop,
	NodeReturn, NodeAsm, NodeEndAsm, NodePlaceholder, NodeOther,
}

// Node is a basic-block-like unit of a function's CFG
type Node struct {
	ID           int
	Kind         NodeKind
	Function     *Function
	Instructions []Instruction
	Sons         []*Node
	Fathers      []*Node
	Source       string // raw source text, used for inline assembly
	Position     Position

	dominators []*Node
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.Function.Name, n.ID)
}

// Add appends ins to the node and returns it
func (n *Node) Add(ins Instruction) Instruction {
	f := n.Function
	ins.attach(n, f.instrs)
	f.instrs++
	n.Instructions = append(n.Instructions, ins)
	return ins
}

// Link adds CFG edges from n to each son
func (n *Node) Link(sons ...*Node) {
	for _, s := range sons {
		n.Sons = append(n.Sons, s)
		s.Fathers = append(s.Fathers, n)
	}
}

// SetSons replaces the successors of n
func (n *Node) SetSons(sons ...*Node) {
	for _, s := range n.Sons {
		s.Fathers = removeNode(s.Fathers, n)
	}
	n.Sons = nil
	n.Link(sons...)
}

func removeNode(nodes []*Node, n *Node) []*Node {
	out := nodes[:0]
	for _, x := range nodes {
		if x != n {
			out = append(out, x)
		}
	}
	return out
}

// ContainsGuard reports a require or assert in the node
func (n *Node) ContainsGuard() bool {
	for _, ins := range n.Instructions {
		if sc, ok := ins.(*SolidityCall); ok && sc.Builtin.IsGuard() {
			return true
		}
	}
	return false
}

// ContainsIf reports a branch node
func (n *Node) ContainsIf() bool {
	return n.Kind == NodeIf || n.Kind == NodeIfLoop
}

// IsConditional is true for branches and guarded nodes
func (n *Node) IsConditional() bool {
	return n.ContainsIf() || n.ContainsGuard()
}

// IsAssembly reports whether the node holds inline assembly
func (n *Node) IsAssembly() bool { return n.Kind == NodeAsm }

// VariablesRead lists the operands of the node's instructions
func (n *Node) VariablesRead() []Value {
	var out []Value
	seen := map[Value]bool{}
	for _, ins := range n.Instructions {
		for _, op := range ins.GetOperands() {
			op = Canonical(op)
			if !seen[op] {
				seen[op] = true
				out = append(out, op)
			}
		}
	}
	return out
}

// StateVariablesRead lists the canonical state variables the node reads
func (n *Node) StateVariablesRead() []*StateVariable {
	var out []*StateVariable
	for _, v := range n.VariablesRead() {
		if s, ok := Root(v).(*StateVariable); ok {
			out = append(out, s.Slot.Value())
		}
	}
	return out
}

// Dominators returns the nodes that execute before n on every path from
// the function entry, including n itself.
func (n *Node) Dominators() []*Node {
	n.Function.computeDominators()
	return n.dominators
}

// DominatedByKind reports whether some strict dominator of n has the given kind
func (n *Node) DominatedByKind(kind NodeKind) bool {
	for _, d := range n.Dominators() {
		if d != n && d.Kind == kind {
			return true
		}
	}
	return false
}
