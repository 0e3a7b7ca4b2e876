package parser

import (
	"sort"
	"strings"

	"cryptoscan/grammar"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/ir"
)

// scope resolves names inside one function body. Temporaries, references
// and tuples are created on first definition; every other unknown lvalue
// becomes a local.
type scope struct {
	l        *lowerer
	fn       *ir.Function
	contract *ir.Contract
	values   map[string]ir.Value
	versions map[*ir.StorageSlot]int
}

func newScope(l *lowerer, fn *ir.Function) *scope {
	return &scope{
		l:        l,
		fn:       fn,
		contract: fn.Contract,
		values:   make(map[string]ir.Value),
		versions: make(map[*ir.StorageSlot]int),
	}
}

// lookup resolves a name for reading: locals and parameters, state
// variables, file constants, platform values, then boolean literals.
func (s *scope) lookup(name string) (ir.Value, bool) {
	if v, ok := s.values[name]; ok {
		return v, true
	}
	if v, ok := s.fn.LookupLocal(name); ok {
		return v, true
	}
	if slot := s.contract.StateVariable(name); slot != nil {
		return slot.Value(), true
	}
	if c := s.l.unit.Constant(name); c != nil {
		return c, true
	}
	if v, ok := ir.LookupSolidityVariable(name); ok {
		return v, true
	}
	if name == "true" || name == "false" {
		return ir.NewConstant(name, ir.Bool), true
	}
	return nil, false
}

func (s *scope) operand(o *grammar.Operand) ir.Value {
	switch {
	case o.Str != nil:
		return ir.NewConstant(*o.Str, ir.String)
	case o.Number != nil:
		return ir.NewConstant(*o.Number, ir.Uint256)
	}
	name := *o.Name
	v, ok := s.lookup(name)
	if !ok {
		s.l.report(errors.UndefinedValue(name, position(o.Pos), s.names()))
		return nil
	}
	return v
}

// operands resolves every operand, reporting each failure. ok is false
// when any of them failed.
func (s *scope) operands(ops []*grammar.Operand) ([]ir.Value, bool) {
	out := make([]ir.Value, len(ops))
	ok := true
	for i, o := range ops {
		out[i] = s.operand(o)
		ok = ok && out[i] != nil
	}
	return out, ok
}

// destination resolves the target of a high-level or low-level call.
// Integer literals are addresses.
func (s *scope) destination(o *grammar.Operand) ir.Value {
	if o.Number != nil {
		return ir.NewConstant(*o.Number, ir.Address)
	}
	return s.operand(o)
}

// target resolves a name for writing. The result is always assignable, or
// nil after a diagnostic.
func (s *scope) target(id *grammar.PosIdent, t ir.Type) ir.Value {
	name := id.Value
	if v, ok := s.values[name]; ok {
		setType(v, t)
		return v
	}

	var v ir.Value
	switch {
	case strings.HasPrefix(name, "TMP_"):
		v = &ir.TemporaryVariable{Name: name, Type: t}
	case strings.HasPrefix(name, "REF_"):
		v = &ir.ReferenceVariable{Name: name, Type: t}
	case strings.HasPrefix(name, "TUPLE_"):
		v = &ir.TupleVariable{Name: name, Type: t}
	}
	if v != nil {
		s.values[name] = v
		return v
	}

	if local, ok := s.fn.LookupLocal(name); ok {
		setType(local, t)
		return local
	}
	if slot := s.contract.StateVariable(name); slot != nil {
		s.versions[slot]++
		return slot.Version(s.versions[slot])
	}
	if _, ok := ir.LookupSolidityVariable(name); ok || s.l.unit.Constant(name) != nil || name == "true" || name == "false" {
		s.l.report(errors.NotAssignable(name, position(id.Pos)))
		return nil
	}
	return s.fn.Local(name, t)
}

func setType(v ir.Value, t ir.Type) {
	if t == nil {
		return
	}
	switch v := v.(type) {
	case *ir.TemporaryVariable:
		if v.Type == nil {
			v.Type = t
		}
	case *ir.ReferenceVariable:
		if v.Type == nil {
			v.Type = t
		}
	case *ir.TupleVariable:
		if v.Type == nil {
			v.Type = t
		}
	case *ir.LocalVariable:
		if v.Type == nil {
			v.Type = t
		}
	}
}

// names lists what is visible for did-you-mean suggestions
func (s *scope) names() []string {
	var out []string
	for name := range s.values {
		out = append(out, name)
	}
	for _, p := range s.fn.Parameters {
		out = append(out, p.Name)
	}
	for _, slot := range s.contract.StateVariables {
		out = append(out, slot.Name)
	}
	for _, c := range s.l.unit.Constants {
		out = append(out, c.Name)
	}
	out = append(out, ir.SolidityVariableNames()...)
	sort.Strings(out)
	return out
}

func (s *scope) functionNames() []string {
	var out []string
	for _, f := range s.contract.FunctionsAndModifiers() {
		out = append(out, f.Name)
	}
	return out
}
