package protector

import (
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

type conditionKey struct {
	fn     *ir.Function
	source ir.Value
}

type conditionResult struct {
	tainted   bool
	sanitized bool
}

// ConditionProtected analyzes whether fn makes a check on source. It returns
// whether a return value of fn carries source and whether some condition,
// guard or modifier argument depends on a boolean derived from source.
// Comparisons against whitelisted values and inequality tests never count.
// Callees receiving source are analyzed with the matching parameter as
// their source; a global source is also followed into every callee and
// declared modifier.
func (a *Analyzer) ConditionProtected(fn *ir.Function, source ir.Value) (tainted, sanitized bool) {
	r := a.condition(fn, source, map[conditionKey]*conditionResult{})
	return r.tainted, r.sanitized
}

func (a *Analyzer) condition(fn *ir.Function, source ir.Value, memo map[conditionKey]*conditionResult) *conditionResult {
	key := conditionKey{fn, ir.Canonical(source)}
	if r, ok := memo[key]; ok {
		return r
	}
	res := &conditionResult{}
	memo[key] = res

	wl := Whitelist(fn)
	if wl.Has(source) {
		return res
	}
	global := isGlobalSource(source)
	taint := dependency.NewSet(source)
	potential := dependency.NewSet()

	for _, ins := range fn.Instructions() {
		switch ins := ins.(type) {
		case *ir.Assignment:
			if taint.Has(ins.RValue) && !wl.Has(ins.RValue) {
				taint.Add(ins.LValue)
			}
		case *ir.TypeConversion:
			if taint.Has(ins.Operand) && !wl.Has(ins.LValue) {
				taint.Add(ins.LValue)
			}
		case *ir.Member:
			if taint.Has(ins.Base) {
				taint.Add(ins.LValue)
			}
		case *ir.Unpack:
			if taint.Has(ins.Tuple) {
				taint.Add(ins.LValue)
			}
		case *ir.Unary:
			if taint.Has(ins.Operand) {
				taint.Add(ins.LValue)
				potential.Add(ins.LValue)
			}
		case *ir.Binary:
			left := taint.Has(ins.Left) && !wl.Has(ins.Right)
			right := taint.Has(ins.Right) && !wl.Has(ins.Left)
			if !left && !right {
				break
			}
			switch {
			case !ins.Op.ReturnsBool():
				taint.Add(ins.LValue)
			case ins.Op != ir.OpNeq:
				taint.Add(ins.LValue)
				potential.Add(ins.LValue)
			}
		case *ir.Index:
			if taint.Has(ins.Right) {
				taint.Add(ins.LValue)
				if ir.SameType(ins.LValue.GetType(), ir.Bool) {
					potential.Add(ins.LValue)
				}
			}
		case *ir.Condition:
			if taint.Has(ins.Value) || potential.Has(ins.Value) {
				res.sanitized = true
			}
		case *ir.Return:
			if taint.HasAny(ins.Values...) {
				res.tainted = true
			}
		case ir.Call:
			a.conditionCall(ins, source, global, taint, potential, res, memo)
		}
	}
	if global {
		for _, m := range fn.Modifiers {
			if a.condition(m, source, memo).sanitized {
				res.sanitized = true
			}
		}
	}
	return res
}

func (a *Analyzer) conditionCall(call ir.Call, source ir.Value, global bool, taint, potential dependency.Set, res *conditionResult, memo map[conditionKey]*conditionResult) {
	args := call.GetArguments()
	if sc, ok := call.(*ir.SolidityCall); ok && sc.Builtin.IsGuard() {
		if len(args) > 0 && (taint.Has(args[0]) || potential.Has(args[0])) {
			res.sanitized = true
		}
		return
	}

	callee := ir.Target(call)
	anyTainted := taint.HasAny(args...)
	if callee == nil {
		if anyTainted {
			taint.Add(call.GetResult())
		}
		return
	}
	if callee.IsModifier() && anyTainted {
		res.sanitized = true
	}
	for idx, arg := range args {
		if idx >= len(callee.Parameters) || !taint.Has(arg) {
			continue
		}
		r := a.condition(callee, callee.Parameters[idx], memo)
		if r.sanitized {
			res.sanitized = true
		}
		if r.tainted {
			taint.Add(call.GetResult())
		}
	}
	if global {
		r := a.condition(callee, source, memo)
		if r.sanitized {
			res.sanitized = true
		}
		if r.tainted {
			taint.Add(call.GetResult())
		}
	}
}

func isGlobalSource(v ir.Value) bool {
	switch v.(type) {
	case *ir.SolidityVariable, *ir.StateVariable, *ir.TopLevelVariable:
		return true
	}
	return false
}
