package parser

import (
	"sort"
	"strings"

	"cryptoscan/grammar"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/ir"
)

var lowLevelKinds = map[string]bool{
	"call":         true,
	"staticcall":   true,
	"delegatecall": true,
	"callcode":     true,
	"send":         true,
	"transfer":     true,
}

func validKind(kind ir.NodeKind) bool {
	for _, k := range ir.NodeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func nodeKindNames() []string {
	out := make([]string, len(ir.NodeKinds))
	for i, k := range ir.NodeKinds {
		out[i] = string(k)
	}
	return out
}

// lowerNodes creates the CFG. Nodes fall through to the next one unless
// they return or list successors explicitly.
func (s *scope) lowerNodes(gs []*grammar.Node) {
	type pair struct {
		syntax *grammar.Node
		node   *ir.Node
	}
	byID := make(map[int]*ir.Node, len(gs))
	var pairs []pair

	for _, gn := range gs {
		if _, dup := byID[gn.ID]; dup {
			s.l.report(errors.DuplicateNode(gn.ID, s.fn.Name, position(gn.Pos)))
			continue
		}
		kind := ir.NodeKind(gn.Kind.Value)
		if !validKind(kind) {
			s.l.report(errors.UnknownNodeKind(gn.Kind.Value, position(gn.Kind.Pos), nodeKindNames()))
			kind = ir.NodeOther
		}
		n := s.fn.NewNode(kind)
		n.Position = position(gn.Pos)
		if gn.Source != nil {
			n.Source = *gn.Source
		}
		byID[gn.ID] = n
		pairs = append(pairs, pair{gn, n})
	}

	for _, p := range pairs {
		for _, ins := range p.syntax.Instructions {
			s.lowerInstruction(p.node, ins)
		}
	}

	for _, p := range pairs {
		if len(p.syntax.Sons) == 0 {
			continue
		}
		var sons []*ir.Node
		for _, id := range p.syntax.Sons {
			son, ok := byID[id]
			if !ok {
				s.l.report(errors.UndefinedNode(id, s.fn.Name, position(p.syntax.Pos)))
				continue
			}
			sons = append(sons, son)
		}
		p.node.SetSons(sons...)
	}
}

func (s *scope) lowerInstruction(n *ir.Node, ins *grammar.Instruction) {
	switch {
	case ins.Condition != nil:
		if v := s.operand(ins.Condition); v != nil {
			n.Add(ir.NewCondition(v))
		}
	case ins.Emit != nil:
		if args, ok := s.operands(ins.Emit.Args); ok {
			n.Add(ir.NewEventCall(ins.Emit.Name.Value, args...))
		}
	case ins.Return != nil:
		values, ok := s.operands(ins.Return.Values)
		if !ok {
			return
		}
		if len(values) > 0 && len(values) != len(s.fn.Returns) {
			s.l.report(errors.ReturnCount(s.fn.Name, len(s.fn.Returns), len(values), position(ins.Pos)))
			return
		}
		n.Add(ir.NewReturn(values...))
	case ins.Call != nil:
		s.lowerCall(n, nil, nil, ins.Call)
	case ins.Define != nil:
		s.lowerDefine(n, ins.Define)
	}
}

func (s *scope) lowerDefine(n *ir.Node, d *grammar.Define) {
	declared := lowerType(d.Type)

	switch {
	case d.Copy != nil:
		rv := s.operand(d.Copy)
		if rv == nil {
			return
		}
		if lv := s.target(&d.Target, firstType(declared, rv.GetType())); lv != nil {
			n.Add(ir.NewAssignment(lv, rv))
		}
	case d.Index != nil:
		base, key := s.operand(d.Index.Base), s.operand(d.Index.Key)
		if base == nil || key == nil {
			return
		}
		if lv := s.target(&d.Target, firstType(declared, elementType(base.GetType()))); lv != nil {
			n.Add(ir.NewIndex(lv, base, key))
		}
	case d.Value != nil:
		s.lowerExpr(n, d, declared)
	}
}

func (s *scope) lowerExpr(n *ir.Node, d *grammar.Define, declared ir.Type) {
	e := d.Value
	switch {
	case e.Call != nil:
		s.lowerCall(n, &d.Target, declared, e.Call)

	case e.Member != nil:
		base := s.operand(e.Member.Base)
		if base == nil {
			return
		}
		if lv := s.target(&d.Target, declared); lv != nil {
			n.Add(ir.NewMember(lv, base, e.Member.Field.Value))
		}

	case e.Convert != nil:
		v := s.operand(e.Convert.Value)
		if v == nil {
			return
		}
		to := lowerType(e.Convert.To)
		if lv := s.target(&d.Target, firstType(declared, to)); lv != nil {
			n.Add(ir.NewTypeConversion(lv, v, to))
		}

	case e.Unpack != nil:
		tuple := s.operand(e.Unpack.Tuple)
		if tuple == nil {
			return
		}
		var elem ir.Type
		if tt, ok := tuple.GetType().(*ir.TupleType); ok && e.Unpack.Index >= 0 && e.Unpack.Index < len(tt.Elements) {
			elem = tt.Elements[e.Unpack.Index]
		}
		if lv := s.target(&d.Target, firstType(declared, elem)); lv != nil {
			n.Add(ir.NewUnpack(lv, tuple, e.Unpack.Index))
		}

	case e.Length != nil:
		v := s.operand(e.Length)
		if v == nil {
			return
		}
		if lv := s.target(&d.Target, firstType(declared, ir.Uint256)); lv != nil {
			n.Add(ir.NewLength(lv, v))
		}

	case e.Unary != nil:
		v := s.operand(e.Unary.Operand)
		if v == nil {
			return
		}
		t := v.GetType()
		if e.Unary.Op == "!" {
			t = ir.Bool
		}
		if lv := s.target(&d.Target, firstType(declared, t)); lv != nil {
			n.Add(ir.NewUnary(lv, e.Unary.Op, v))
		}

	case e.Binary != nil:
		left, right := s.operand(e.Binary.Left), s.operand(e.Binary.Right)
		if left == nil || right == nil {
			return
		}
		op := ir.BinaryOp(e.Binary.Op)
		t := left.GetType()
		if op.ReturnsBool() {
			t = ir.Bool
		}
		if lv := s.target(&d.Target, firstType(declared, t)); lv != nil {
			n.Add(ir.NewBinary(lv, left, op, right))
		}
	}
}

// lowerCall lowers the five call forms. target is nil for calls whose
// result is discarded.
func (s *scope) lowerCall(n *ir.Node, target *grammar.PosIdent, declared ir.Type, c *grammar.Call) {
	name := c.Callee.Value
	pos := position(c.Callee.Pos)

	var dest ir.Value
	switch c.Kind {
	case "high", "lowlevel":
		if c.On == nil {
			s.l.report(errors.MissingDestination(c.Kind, position(c.Pos)))
			return
		}
		if dest = s.destination(c.On); dest == nil {
			return
		}
	default:
		if c.On != nil {
			s.l.report(errors.UnexpectedDestination(c.Kind, position(c.On.Pos)))
			return
		}
	}

	args, ok := s.operands(c.Args)
	if !ok {
		return
	}

	result := func(inferred ir.Type) (ir.Value, bool) {
		if target == nil {
			return nil, true
		}
		lv := s.target(target, firstType(declared, inferred))
		return lv, lv != nil
	}

	switch c.Kind {
	case "internal":
		fn := s.contract.Function(name)
		if fn == nil {
			s.l.report(errors.UndefinedFunction(name, s.contract.Name, pos, s.functionNames()))
			return
		}
		if lv, ok := result(resultType(fn.Returns)); ok {
			n.Add(ir.NewInternalCall(lv, fn, args...))
		}

	case "high", "library":
		owner, fname, ok := splitCallee(name)
		if !ok {
			s.l.report(errors.MalformedCallee(name, pos))
			return
		}
		fn := s.external(owner, fname)
		var returns []ir.Type
		if fn != nil {
			returns = fn.Returns
		}
		lv, ok := result(resultType(returns))
		if !ok {
			return
		}
		if c.Kind == "high" {
			n.Add(ir.NewHighLevelCall(lv, dest, owner, fname, fn, args...))
		} else {
			n.Add(ir.NewLibraryCall(lv, owner, fname, fn, args...))
		}

	case "solidity":
		if !ir.IsKnownBuiltin(name) {
			known := ir.BuiltinNames()
			sort.Strings(known)
			s.l.report(errors.UnknownBuiltin(name, pos, known))
			return
		}
		b := ir.Builtin(name)
		if lv, ok := result(b.ReturnType()); ok {
			n.Add(ir.NewSolidityCall(lv, b, args...))
		}

	case "lowlevel":
		if !lowLevelKinds[name] {
			s.l.report(errors.UnknownCallKind(name, pos))
			return
		}
		if lv, ok := result(ir.Bool); ok {
			n.Add(ir.NewLowLevelCall(lv, dest, name, args...))
		}
	}
}

// external resolves Contract.function against the unit; unresolved
// targets stay nil and are matched by name.
func (s *scope) external(contract, name string) *ir.Function {
	c := s.l.unit.Contract(contract)
	if c == nil {
		return nil
	}
	return c.Function(name)
}

func splitCallee(name string) (string, string, bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
