package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("  ", level)
}

func (f *File) String() string {
	var b strings.Builder
	for _, c := range f.Constants {
		b.WriteString(c.String() + "\n")
	}
	for i, c := range f.Contracts {
		if i > 0 || len(f.Constants) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.StringWithIndent(0))
	}
	return b.String()
}

func (c *Constant) String() string {
	return fmt.Sprintf("const %s: %s = %s;", c.Name.Value, c.Type, c.Value)
}

func (c *Contract) StringWithIndent(level int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s%s %s {\n", indent(level), c.Kind, c.Name.Value))
	for _, s := range c.States {
		b.WriteString(indent(level+1) + s.String() + "\n")
	}
	for _, f := range c.Functions {
		b.WriteString(f.StringWithIndent(level + 1))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (s *State) String() string {
	var b strings.Builder
	b.WriteString("state ")
	if s.Constant {
		b.WriteString("constant ")
	}
	b.WriteString(fmt.Sprintf("%s: %s", s.Name.Value, s.Type))
	if s.Init != nil {
		b.WriteString(" = " + s.Init.String())
	}
	b.WriteString(";")
	return b.String()
}

func (f *Function) StringWithIndent(level int) string {
	var b strings.Builder
	b.WriteString(indent(level) + f.Kind)
	if f.Name != nil {
		b.WriteString(" " + f.Name.Value)
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name.Value, p.Type)
	}
	b.WriteString("(" + strings.Join(params, ", ") + ")")
	if f.Visibility != "" {
		b.WriteString(" " + f.Visibility)
	}
	for _, flag := range f.Flags {
		b.WriteString(" " + flag)
	}
	if len(f.Modifiers) > 0 {
		names := make([]string, len(f.Modifiers))
		for i, m := range f.Modifiers {
			names[i] = m.Value
		}
		b.WriteString(" modifiers(" + strings.Join(names, ", ") + ")")
	}
	if len(f.Returns) > 0 {
		b.WriteString(" returns(" + joinTypes(f.Returns) + ")")
	}
	b.WriteString(" {\n")
	for _, n := range f.Nodes {
		b.WriteString(n.StringWithIndent(level + 1))
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (n *Node) StringWithIndent(level int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%snode %d %s", indent(level), n.ID, n.Kind.Value))
	if len(n.Sons) > 0 {
		ids := make([]string, len(n.Sons))
		for i, s := range n.Sons {
			ids[i] = strconv.Itoa(s)
		}
		b.WriteString(" -> " + strings.Join(ids, ", "))
	}
	if n.Source != nil {
		b.WriteString(" source " + strconv.Quote(*n.Source))
	}
	if len(n.Instructions) == 0 {
		b.WriteString(" { }\n")
		return b.String()
	}
	b.WriteString(" {\n")
	for _, ins := range n.Instructions {
		b.WriteString(indent(level+1) + ins.String() + ";\n")
	}
	b.WriteString(indent(level) + "}\n")
	return b.String()
}

func (i *Instruction) String() string {
	switch {
	case i.Condition != nil:
		return "condition " + i.Condition.String()
	case i.Emit != nil:
		return fmt.Sprintf("emit %s(%s)", i.Emit.Name.Value, joinOperands(i.Emit.Args))
	case i.Return != nil:
		if len(i.Return.Values) == 0 {
			return "return"
		}
		return "return " + joinOperands(i.Return.Values)
	case i.Call != nil:
		return i.Call.String()
	case i.Define != nil:
		return i.Define.String()
	}
	return ""
}

func (c *Call) String() string {
	s := fmt.Sprintf("%s %s(%s)", c.Kind, c.Callee.Value, joinOperands(c.Args))
	if c.On != nil {
		s += " on " + c.On.String()
	}
	return s
}

func (d *Define) String() string {
	target := d.Target.Value
	if d.Type != nil {
		target += ": " + d.Type.String()
	}
	switch {
	case d.Copy != nil:
		return target + " := " + d.Copy.String()
	case d.Index != nil:
		return fmt.Sprintf("%s -> %s[%s]", target, d.Index.Base, d.Index.Key)
	case d.Value != nil:
		return target + " = " + d.Value.String()
	}
	return target
}

func (e *Expr) String() string {
	switch {
	case e.Call != nil:
		return e.Call.String()
	case e.Member != nil:
		return fmt.Sprintf("member %s %s", e.Member.Base, e.Member.Field.Value)
	case e.Convert != nil:
		return fmt.Sprintf("convert %s to %s", e.Convert.Value, e.Convert.To)
	case e.Unpack != nil:
		return fmt.Sprintf("unpack %s %d", e.Unpack.Tuple, e.Unpack.Index)
	case e.Length != nil:
		return "length " + e.Length.String()
	case e.Unary != nil:
		return fmt.Sprintf("%s %s", e.Unary.Op, e.Unary.Operand)
	case e.Binary != nil:
		return fmt.Sprintf("%s %s %s", e.Binary.Left, e.Binary.Op, e.Binary.Right)
	}
	return ""
}

func (o *Operand) String() string {
	switch {
	case o.Str != nil:
		return strconv.Quote(*o.Str)
	case o.Number != nil:
		return *o.Number
	case o.Name != nil:
		return *o.Name
	}
	return ""
}

func (t *Type) String() string {
	var s string
	switch {
	case t.Mapping != nil:
		s = fmt.Sprintf("mapping(%s => %s)", t.Mapping.Key, t.Mapping.Value)
	case t.Tuple != nil:
		s = "tuple(" + joinTypes(t.Tuple.Elements) + ")"
	default:
		s = t.Name
	}
	for _, d := range t.Dims {
		if d.Length != nil {
			s += "[" + *d.Length + "]"
		} else {
			s += "[]"
		}
	}
	return s
}

func joinOperands(ops []*Operand) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}

func joinTypes(types []*Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
