package detectors

import (
	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// Pattern is the declarative part of a path-walking detector: where the
// sensitive sites are, what taints them, and what protects a path.
type Pattern struct {
	// Sink selects the sensitive instructions of the terminal function
	Sink callpath.Predicate
	// Sites replaces Sink for sites that are not single instructions,
	// such as inline assembly nodes, or that depend on the calling context.
	Sites func(path callpath.Path) []callpath.Site
	// Operand picks the sink operand the sources must reach for the site
	// to be safe; nil makes every site a candidate.
	Operand func(ir.Instruction) ir.Value
	// Sources lists the taint origins of layer i
	Sources func(path callpath.Path, i int, fn *ir.Function) []ir.Value
	// Stop ends the walk at a layer; sites behind it are not reported
	Stop func(path callpath.Path, fn *ir.Function) bool
	// Protected suppresses every site of a path
	Protected func(path callpath.Path) bool
	// IncludeView keeps view and pure entry functions
	IncludeView bool
	// Message describes the weakness in findings
	Message string
}

// isEntry reports whether fn starts paths: externally reachable, with a
// body, and not view or pure unless the pattern asks for them.
func isEntry(fn *ir.Function, includeView bool) bool {
	if !fn.IsExternallyReachable() || len(fn.Nodes) == 0 {
		return false
	}
	return includeView || !(fn.View || fn.Pure)
}

// Entries lists the entry functions of every deployable contract of unit
func Entries(unit *ir.CompilationUnit, includeView bool) []*ir.Function {
	var out []*ir.Function
	for _, c := range unit.ContractsDerived() {
		for _, fn := range c.Functions {
			if isEntry(fn, includeView) {
				out = append(out, fn)
			}
		}
	}
	return out
}

// Match applies p to every entry function of unit on behalf of d
func (e *Engine) Match(d Detector, unit *ir.CompilationUnit, p Pattern) []Finding {
	var c collector
	for _, entry := range Entries(unit, p.IncludeView) {
		matches, err := e.sites(entry, p)
		if err != nil {
			log.Debugf("%s: skipping %s: %v", d.Argument(), entry, err)
			continue
		}

		walks := map[string]dependency.Set{}
		verdicts := map[string]bool{}
		for _, m := range matches {
			key := m.Path.Key()
			rel, walked := walks[key]
			if !walked {
				rel = e.terminalRelation(m.Path, p)
				walks[key] = rel
			}
			if rel == nil {
				continue
			}
			if p.Operand != nil && rel.Has(p.Operand(m.Site.Instruction)) {
				continue
			}
			protected, known := verdicts[key]
			if !known {
				protected = p.Protected != nil && p.Protected(m.Path)
				verdicts[key] = protected
				log.Debugf("%s: %s protected=%t", d.Argument(), m.Path, protected)
			}
			if protected {
				continue
			}
			c.add(newFinding(d, m.Path.Entry(), m.Path.Terminal(), m.Site.Node, p.Message))
		}
	}
	return c.findings
}

// sites enumerates the sensitive sites reachable from entry
func (e *Engine) sites(entry *ir.Function, p Pattern) ([]callpath.Match, error) {
	if p.Sites == nil {
		return e.Explorer.FindPaths(entry, p.Sink)
	}
	var out []callpath.Match
	err := e.Explorer.Explore(entry, func(path callpath.Path) {
		for _, site := range p.Sites(path) {
			out = append(out, callpath.Match{Path: path.Clone(), Site: site})
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// terminalRelation walks path with the pattern sources and returns the
// relation of the terminal layer, or nil when the walk was stopped.
func (e *Engine) terminalRelation(path callpath.Path, p Pattern) dependency.Set {
	var rel dependency.Set
	seeds := func(i int, fn *ir.Function) []ir.Value {
		if p.Sources == nil {
			return nil
		}
		return p.Sources(path, i, fn)
	}
	e.Oracle.WalkPath(path, seeds, func(l *dependency.Layer) bool {
		if p.Stop != nil && p.Stop(path, l.Function) {
			return false
		}
		if l.Index == len(path)-1 {
			rel = l.Relation
		}
		return true
	})
	return rel
}

// firstArgument is the usual sink operand: the digest of a recovery or
// the input of a hash.
func firstArgument(ins ir.Instruction) ir.Value {
	if call, ok := ins.(ir.Call); ok && len(call.GetArguments()) > 0 {
		return call.GetArguments()[0]
	}
	return nil
}
