// Package dependency answers data-dependency questions over the IR: whether
// a value is influenced by a source inside a function, and whether it can
// carry attacker influence anywhere in a contract.
package dependency

import (
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"

	"cryptoscan/internal/ir"
)

var log = commonlog.GetLogger("cryptoscan.dependency")

// IndexFilter reports whether the key of an index access must not carry
// dependency into its result. Protector mappings (nonces, permissions) are
// the intended use.
type IndexFilter func(fn *ir.Function, index *ir.Index) bool

// Option configures an Oracle
type Option func(*Oracle)

// WithIndexFilter installs an index filter
func WithIndexFilter(filter IndexFilter) Option {
	return func(o *Oracle) { o.filter = filter }
}

// Oracle computes and memoizes dependency closures. It is safe for
// concurrent use; caches are populated load-or-compute style and every
// cached entry is a pure function of the frozen IR.
type Oracle struct {
	filter   IndexFilter
	closures sync.Map // closureKey -> Set
	tainted  sync.Map // *ir.Contract -> Set
	group    singleflight.Group
}

type closureKey struct {
	fn     *ir.Function
	source ir.Value
}

// query carries the recursion stack of one top-level closure request
type query struct {
	stack map[*ir.Function]bool
	cut   bool
}

// New creates an oracle
func New(opts ...Option) *Oracle {
	o := &Oracle{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsDependent reports whether value is influenced by source inside fn
func (o *Oracle) IsDependent(value, source ir.Value, fn *ir.Function) bool {
	if value == nil || source == nil {
		return false
	}
	if ir.Canonical(value) == ir.Canonical(source) {
		return true
	}
	if fn == nil {
		return false
	}
	return o.closure(fn, ir.Canonical(source)).Has(value)
}

// IsDependentOnAny reports whether value depends on at least one source
func (o *Oracle) IsDependentOnAny(value ir.Value, sources []ir.Value, fn *ir.Function) bool {
	for _, src := range sources {
		if o.IsDependent(value, src, fn) {
			return true
		}
	}
	return false
}

// Closure returns every value of fn that depends on one of the sources.
// The returned set belongs to the caller.
func (o *Oracle) Closure(fn *ir.Function, sources ...ir.Value) Set {
	out := NewSet()
	for _, src := range sources {
		if src == nil {
			continue
		}
		out.Union(o.closure(fn, ir.Canonical(src)))
	}
	return out
}

// Walk replays the forward sweep of fn from source, calling visit after
// every instruction with the relation built so far. Nothing is cached.
func (o *Oracle) Walk(fn *ir.Function, source ir.Value, visit func(ir.Instruction, Set)) {
	q := &query{stack: map[*ir.Function]bool{fn: true}}
	o.sweep(fn, ir.Canonical(source), q, visit)
}

func (o *Oracle) closure(fn *ir.Function, source ir.Value) Set {
	return o.closureIn(fn, source, &query{stack: map[*ir.Function]bool{}})
}

// closureIn computes the closure of source inside fn for one query. Only
// results that never hit the recursion stack are cached; a cut result
// depends on which functions were already being analyzed.
func (o *Oracle) closureIn(fn *ir.Function, source ir.Value, q *query) Set {
	key := closureKey{fn, source}
	if s, ok := o.closures.Load(key); ok {
		return s.(Set)
	}

	outerCut := q.cut
	q.cut = false
	q.stack[fn] = true

	rel := o.sweep(fn, source, q, nil)

	delete(q.stack, fn)
	if !q.cut {
		if prev, loaded := o.closures.LoadOrStore(key, rel); loaded {
			rel = prev.(Set)
		}
	}
	q.cut = q.cut || outerCut
	return rel
}

func (o *Oracle) sweep(fn *ir.Function, source ir.Value, q *query, visit func(ir.Instruction, Set)) Set {
	rel := NewSet(source)
	global := isGlobal(source)
	s := &sweeper{
		fn:     fn,
		rel:    rel,
		filter: o.filter,
		callResult: func(c ir.Call) bool {
			if !global {
				return false
			}
			callee := ir.Target(c)
			if callee == nil {
				return false
			}
			return o.returnsDependent(callee, source, q)
		},
	}
	for _, n := range fn.Nodes {
		for _, ins := range n.Instructions {
			s.apply(ins)
			if visit != nil {
				visit(ins, rel)
			}
		}
	}
	return rel
}

// returnsDependent reports whether some return value of callee depends on
// source. A callee already on the recursion stack is treated as not
// dependent and the cut is recorded on the query.
func (o *Oracle) returnsDependent(callee *ir.Function, source ir.Value, q *query) bool {
	if q.stack[callee] {
		log.Debugf("recursion cut at %s for source %s", callee, source)
		q.cut = true
		return false
	}
	rel := o.closureIn(callee, source, q)
	return returnsAny(callee, rel.Has)
}

func returnsAny(fn *ir.Function, related func(ir.Value) bool) bool {
	for _, n := range fn.Nodes {
		for _, ins := range n.Instructions {
			if r, ok := ins.(*ir.Return); ok {
				for _, v := range r.Values {
					if related(v) {
						return true
					}
				}
			}
		}
	}
	return false
}

// isGlobal reports whether a value is visible outside a single function,
// so that a callee can depend on it without receiving it as an argument.
func isGlobal(v ir.Value) bool {
	switch v.(type) {
	case *ir.SolidityVariable, *ir.StateVariable, *ir.TopLevelVariable:
		return true
	}
	return false
}

// sweeper applies the per-instruction propagation rules to a growing relation
type sweeper struct {
	fn         *ir.Function
	rel        Set
	filter     IndexFilter
	callResult func(ir.Call) bool
}

// apply propagates through one instruction and reports whether the
// relation grew. Unknown instruction kinds never propagate.
func (s *sweeper) apply(ins ir.Instruction) bool {
	var dep bool
	switch ins := ins.(type) {
	case *ir.Assignment:
		dep = s.rel.Has(ins.RValue)
	case *ir.Binary:
		dep = s.rel.HasAny(ins.Left, ins.Right)
	case *ir.Index:
		dep = s.rel.Has(ins.Right) && (s.filter == nil || !s.filter(s.fn, ins))
	case *ir.Member:
		dep = s.rel.Has(ins.Base)
	case *ir.Unary:
		dep = s.rel.Has(ins.Operand)
	case *ir.TypeConversion:
		dep = s.rel.Has(ins.Operand)
	case *ir.Unpack:
		dep = s.rel.Has(ins.Tuple)
	case *ir.Length:
		dep = s.rel.Has(ins.Operand)
	case *ir.InternalCall, *ir.HighLevelCall, *ir.LibraryCall, *ir.SolidityCall, *ir.LowLevelCall:
		c := ins.(ir.Call)
		dep = s.rel.HasAny(c.GetArguments()...) || (s.callResult != nil && c.GetResult() != nil && s.callResult(c))
	case *ir.Condition, *ir.EventCall, *ir.Return:
		return false
	default:
		return false
	}
	if !dep {
		return false
	}
	return mark(s.rel, ins)
}

// mark adds the result of ins. Writes through a reference also relate the
// value the reference points to; defining the reference does not.
func mark(rel Set, ins ir.Instruction) bool {
	lv := ins.GetResult()
	if lv == nil {
		return false
	}
	grew := rel.Add(lv)
	switch ins.(type) {
	case *ir.Index, *ir.Member:
		return grew
	}
	if root := ir.Root(lv); root != lv {
		grew = rel.Add(root) || grew
	}
	return grew
}
