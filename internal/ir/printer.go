package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Printer renders IR in the textual .sir syntax accepted by the loader
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the textual form of a compilation unit
func Print(unit *CompilationUnit) string {
	p := NewPrinter()
	p.printUnit(unit)
	return p.output.String()
}

// PrintFunction returns the textual form of a single function
func PrintFunction(f *Function) string {
	p := NewPrinter()
	p.printFunction(f)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printUnit(unit *CompilationUnit) {
	for _, c := range unit.Constants {
		p.writeLine("const %s: %s = %s;", c.Name, c.Type, c.Init)
	}
	for i, c := range unit.Contracts {
		if i > 0 || len(unit.Constants) > 0 {
			p.writeLine("")
		}
		p.printContract(c)
	}
}

func (p *Printer) printContract(c *Contract) {
	p.writeLine("%s %s {", c.Kind, c.Name)
	p.indent++
	for _, s := range c.StateVariables {
		decl := "state "
		if s.Constant {
			decl += "constant "
		}
		decl += fmt.Sprintf("%s: %s", s.Name, s.Type)
		if s.Init != "" {
			decl += " = " + s.Init
		}
		p.writeLine("%s;", decl)
	}
	for _, f := range c.FunctionsAndModifiers() {
		p.printFunction(f)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printFunction(f *Function) {
	params := make([]string, len(f.Parameters))
	for i, param := range f.Parameters {
		params[i] = fmt.Sprintf("%s: %s", param.Name, param.Type)
	}

	var header strings.Builder
	switch f.Kind {
	case FunctionModifier:
		fmt.Fprintf(&header, "modifier %s(%s)", f.Name, strings.Join(params, ", "))
	case FunctionConstructor:
		fmt.Fprintf(&header, "constructor(%s) %s", strings.Join(params, ", "), f.Visibility)
	default:
		fmt.Fprintf(&header, "function %s(%s) %s", f.Name, strings.Join(params, ", "), f.Visibility)
	}
	if f.View {
		header.WriteString(" view")
	}
	if f.Pure {
		header.WriteString(" pure")
	}
	if f.Payable {
		header.WriteString(" payable")
	}
	if len(f.Modifiers) > 0 {
		names := make([]string, len(f.Modifiers))
		for i, m := range f.Modifiers {
			names[i] = m.Name
		}
		fmt.Fprintf(&header, " modifiers(%s)", strings.Join(names, ", "))
	}
	if len(f.Returns) > 0 {
		types := make([]string, len(f.Returns))
		for i, t := range f.Returns {
			types[i] = t.String()
		}
		fmt.Fprintf(&header, " returns(%s)", strings.Join(types, ", "))
	}

	p.writeLine("%s {", header.String())
	p.indent++
	for _, n := range f.Nodes {
		p.printNode(n)
	}
	p.indent--
	p.writeLine("}")
}

func (p *Printer) printNode(n *Node) {
	header := fmt.Sprintf("node %d %s", n.ID, n.Kind)
	if len(n.Sons) > 0 {
		ids := make([]string, len(n.Sons))
		for i, s := range n.Sons {
			ids[i] = strconv.Itoa(s.ID)
		}
		header += " -> " + strings.Join(ids, ", ")
	}
	if n.Source != "" {
		header += " source " + strconv.Quote(n.Source)
	}
	if len(n.Instructions) == 0 {
		p.writeLine("%s { }", header)
		return
	}
	p.writeLine("%s {", header)
	p.indent++
	for _, ins := range n.Instructions {
		p.writeLine("%s;", ins)
	}
	p.indent--
	p.writeLine("}")
}
