package detectors

import (
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// HashCollision reports keccak256 over abi.encodePacked of two or more
// adjacent attacker-controlled dynamic values: ("a", "bc") and ("ab", "c")
// pack to the same bytes.
type HashCollision struct {
	info
	e *Engine
}

func NewHashCollision(e *Engine) *HashCollision {
	return &HashCollision{info{"hash-collision", "Hash collision", High, High}, e}
}

func (d *HashCollision) Detect(unit *ir.CompilationUnit) []Finding {
	var c collector
	for _, contract := range unit.Contracts {
		for _, site := range d.collisions(contract) {
			c.add(newFinding(d, site.fn, site.fn, site.node, "calls keccak256(abi.encodePacked()) with multiple dynamic arguments"))
		}
	}
	return c.findings
}

type collisionSite struct {
	fn   *ir.Function
	node *ir.Node
}

func isDynamicValue(v ir.Value) bool {
	if _, ok := v.(*ir.Constant); ok {
		return false
	}
	return ir.IsDynamic(v.GetType())
}

func (d *HashCollision) collisions(c *ir.Contract) []collisionSite {
	fns := c.FunctionsAndModifiers()
	packed := dependency.NewSet()
	for _, fn := range fns {
		lengths := dependency.NewSet()
		prefixed := dependency.NewSet()
		for _, ins := range fn.Instructions() {
			switch ins := ins.(type) {
			case *ir.Length:
				lengths.Add(ins.LValue)
			case *ir.InternalCall, *ir.HighLevelCall, *ir.LibraryCall:
				call := ins.(ir.Call)
				lv := call.GetResult()
				if lv != nil && ir.SameType(lv.GetType(), ir.String) && lengths.HasAny(call.GetArguments()...) {
					prefixed.Add(lv)
				}
			case *ir.SolidityCall:
				if ins.Builtin == ir.AbiEncodePacked && ins.LValue != nil && d.adjacentDynamic(ins.Args, c, prefixed) {
					packed.Add(ins.LValue)
				}
			}
		}
	}

	var out []collisionSite
	for _, fn := range fns {
		for _, n := range fn.Nodes {
			for _, ins := range n.Instructions {
				switch ins := ins.(type) {
				case *ir.Assignment:
					if packed.Has(ins.RValue) {
						packed.Add(ins.LValue)
					}
				case *ir.SolidityCall:
					if !ins.Builtin.IsKeccak() {
						continue
					}
					if packed.HasAny(ins.Args...) || (len(ins.Args) > 1 && d.adjacentDynamic(ins.Args, nil, nil)) {
						out = append(out, collisionSite{fn, n})
					}
				}
			}
		}
	}
	return out
}

// adjacentDynamic reports a run of at least two dynamic arguments. With a
// contract, only tainted arguments count; length-prefixed strings reset
// the run.
func (d *HashCollision) adjacentDynamic(args []ir.Value, c *ir.Contract, prefixed dependency.Set) bool {
	run := 0
	for _, arg := range args {
		switch {
		case prefixed != nil && prefixed.Has(arg):
			run = 0
		case isDynamicValue(arg) && (c == nil || d.e.Oracle.IsTainted(arg, c)):
			run++
			if run > 1 {
				return true
			}
		default:
			run = 0
		}
	}
	return false
}
