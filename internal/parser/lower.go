package parser

import (
	"github.com/alecthomas/participle/v2/lexer"

	"cryptoscan/grammar"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/ir"
)

// lowerer turns a syntax tree into IR in two passes: declarations first,
// then bodies, so calls and modifiers may refer forward.
type lowerer struct {
	path  string
	unit  *ir.CompilationUnit
	diags []errors.Diagnostic
}

type declared struct {
	syntax   *grammar.Function
	function *ir.Function
}

func newLowerer(path string) *lowerer {
	return &lowerer{path: path, unit: ir.NewUnit()}
}

func position(p lexer.Position) ir.Position {
	return ir.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

func (l *lowerer) report(d errors.Diagnostic) {
	if d.Position.Filename == "" {
		d.Position.Filename = l.path
	}
	l.diags = append(l.diags, d)
}

func (l *lowerer) lower(file *grammar.File) *ir.CompilationUnit {
	for _, c := range file.Constants {
		l.declareConstant(c)
	}

	var bodies []declared
	for _, gc := range file.Contracts {
		bodies = append(bodies, l.declareContract(gc)...)
	}
	for _, d := range bodies {
		l.resolveModifiers(d)
	}
	for _, d := range bodies {
		newScope(l, d.function).lowerNodes(d.syntax.Nodes)
		if len(d.syntax.Nodes) == 0 && !d.function.Contract.IsInterface() {
			l.report(errors.EmptyFunction(d.function.Name, position(d.syntax.Pos)))
		}
	}
	return l.unit
}

func (l *lowerer) declareConstant(c *grammar.Constant) {
	if l.unit.Constant(c.Name.Value) != nil {
		l.report(errors.DuplicateDeclaration(c.Name.Value, position(c.Name.Pos)))
		return
	}
	l.unit.NewConstant(c.Name.Value, lowerType(c.Type), c.Value.String())
}

func (l *lowerer) declareContract(gc *grammar.Contract) []declared {
	if l.unit.Contract(gc.Name.Value) != nil {
		l.report(errors.DuplicateDeclaration(gc.Name.Value, position(gc.Name.Pos)))
		return nil
	}
	c := l.unit.NewContract(gc.Name.Value, ir.ContractKind(gc.Kind))
	c.Position = position(gc.Pos)

	for _, s := range gc.States {
		if c.StateVariable(s.Name.Value) != nil {
			l.report(errors.DuplicateDeclaration(s.Name.Value, position(s.Name.Pos)))
			continue
		}
		slot := c.NewStateVariable(s.Name.Value, lowerType(s.Type))
		slot.Constant = s.Constant
		slot.Position = position(s.Pos)
		if s.Init != nil {
			slot.Init = s.Init.String()
		}
	}

	var out []declared
	for _, gf := range gc.Functions {
		if f := l.declareFunction(c, gf); f != nil {
			out = append(out, declared{syntax: gf, function: f})
		}
	}
	return out
}

func (l *lowerer) declareFunction(c *ir.Contract, gf *grammar.Function) *ir.Function {
	vis := ir.Visibility(gf.Visibility)
	var f *ir.Function

	switch gf.Kind {
	case "constructor":
		if gf.Name != nil {
			l.report(errors.NamedConstructor(gf.Name.Value, position(gf.Name.Pos)))
		}
		if c.Function("constructor") != nil {
			l.report(errors.DuplicateDeclaration("constructor", position(gf.Pos)))
			return nil
		}
		if vis == "" {
			vis = ir.Public
		}
		f = c.NewConstructor(vis)
	default:
		if gf.Name == nil {
			l.report(errors.MissingName(gf.Kind, position(gf.Pos)))
			return nil
		}
		if c.Function(gf.Name.Value) != nil {
			l.report(errors.DuplicateDeclaration(gf.Name.Value, position(gf.Name.Pos)))
			return nil
		}
		if gf.Kind == "modifier" {
			f = c.NewModifier(gf.Name.Value)
			if vis != "" {
				f.Visibility = vis
			}
		} else {
			if vis == "" {
				vis = ir.Public
			}
			f = c.NewFunction(gf.Name.Value, vis)
		}
	}

	f.Position = position(gf.Pos)
	for _, flag := range gf.Flags {
		switch flag {
		case "view":
			f.View = true
		case "pure":
			f.Pure = true
		case "payable":
			f.Payable = true
		}
	}
	for _, p := range gf.Params {
		if _, dup := f.LookupLocal(p.Name.Value); dup {
			l.report(errors.DuplicateDeclaration(p.Name.Value, position(p.Name.Pos)))
			continue
		}
		f.AddParameter(p.Name.Value, lowerType(p.Type))
	}
	f.Returns = lowerTypes(gf.Returns)
	return f
}

func (l *lowerer) resolveModifiers(d declared) {
	c := d.function.Contract
	for _, name := range d.syntax.Modifiers {
		m := c.Function(name.Value)
		if m == nil || !m.IsModifier() {
			l.report(errors.UndefinedModifier(name.Value, c.Name, position(name.Pos)))
			continue
		}
		d.function.Modifiers = append(d.function.Modifiers, m)
	}
}
