// Package callpath enumerates simple call paths from an entry function to
// instructions of interest over internal, library and high-level call edges.
package callpath

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"cryptoscan/internal/ir"
)

var log = commonlog.GetLogger("cryptoscan.callpath")

// DefaultLimit caps the number of paths explored from one entry function
const DefaultLimit = 10000

// ErrPathLimit is returned when an entry function has more paths than the
// explorer is allowed to visit. Callers treat the entry as unknown.
var ErrPathLimit = errors.New("callpath: explored path limit exceeded")

// Path is an ordered, cycle-free sequence of functions starting at an entry
type Path []*ir.Function

// Entry returns the first function of the path
func (p Path) Entry() *ir.Function {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// Terminal returns the last function of the path
func (p Path) Terminal() *ir.Function {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// Index returns the position of f in the path, or -1
func (p Path) Index(f *ir.Function) int {
	for i, g := range p {
		if g == f {
			return i
		}
	}
	return -1
}

// Contains reports whether f is on the path
func (p Path) Contains(f *ir.Function) bool { return p.Index(f) >= 0 }

// Next returns the function following position i, or nil at the terminal
func (p Path) Next(i int) *ir.Function {
	if i+1 < len(p) {
		return p[i+1]
	}
	return nil
}

// Key identifies the path by function IDs
func (p Path) Key() string {
	parts := make([]string, len(p))
	for i, f := range p {
		parts[i] = strconv.Itoa(f.ID)
	}
	return strings.Join(parts, "/")
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, f := range p {
		parts[i] = f.CanonicalName()
	}
	return strings.Join(parts, " -> ")
}

// Clone copies the path so it survives further traversal
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// Predicate selects sink instructions
type Predicate func(ir.Instruction) bool

// Site locates an instruction in its node
type Site struct {
	Node        *ir.Node
	Instruction ir.Instruction
}

// Match is a path whose terminal function contains a sink instruction
type Match struct {
	Path Path
	Site Site
}

// Observer is notified about exploration; metrics implement it
type Observer interface {
	PathExplored(entry *ir.Function)
	PathLimitExceeded(entry *ir.Function)
}

// Explorer enumerates call paths. The zero value uses DefaultLimit and no observer.
type Explorer struct {
	Limit    int
	Observer Observer
}

// Callees lists the functions f can transfer control to, in traversal order:
// internal calls (including modifiers), then library calls, then resolved
// high-level calls.
func Callees(f *ir.Function) []*ir.Function {
	var out []*ir.Function
	seen := map[*ir.Function]bool{}
	for _, group := range [][]*ir.Function{f.InternalCalls(), f.LibraryCalls(), f.HighLevelCalls()} {
		for _, g := range group {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// Explore visits every simple path starting at entry in depth-first order.
// The path handed to visit is only valid during the call. A function
// already on the current path is never re-entered.
func (e *Explorer) Explore(entry *ir.Function, visit func(Path)) error {
	limit := e.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	explored := 0
	onPath := map[*ir.Function]bool{}
	var stack Path

	var dfs func(f *ir.Function) error
	dfs = func(f *ir.Function) error {
		if onPath[f] {
			return nil
		}
		explored++
		if explored > limit {
			return ErrPathLimit
		}
		if e.Observer != nil {
			e.Observer.PathExplored(entry)
		}
		onPath[f] = true
		stack = append(stack, f)
		defer func() {
			stack = stack[:len(stack)-1]
			delete(onPath, f)
		}()

		visit(stack)
		for _, g := range Callees(f) {
			if err := dfs(g); err != nil {
				return err
			}
		}
		return nil
	}

	if err := dfs(entry); err != nil {
		log.Debugf("%s: giving up after %d paths", entry, limit)
		if e.Observer != nil {
			e.Observer.PathLimitExceeded(entry)
		}
		return err
	}
	return nil
}

// FindPaths returns every simple path from entry to a function containing a
// sink instruction, once per (path, instruction) pair.
func (e *Explorer) FindPaths(entry *ir.Function, sink Predicate) ([]Match, error) {
	var matches []Match
	seen := map[string]map[ir.Instruction]bool{}
	err := e.Explore(entry, func(p Path) {
		f := p.Terminal()
		for _, n := range f.Nodes {
			for _, ins := range n.Instructions {
				if !sink(ins) {
					continue
				}
				key := p.Key()
				if seen[key] == nil {
					seen[key] = map[ir.Instruction]bool{}
				}
				if seen[key][ins] {
					continue
				}
				seen[key][ins] = true
				matches = append(matches, Match{Path: p.Clone(), Site: Site{Node: n, Instruction: ins}})
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// UniquePaths returns the distinct paths of matches in first-seen order
func UniquePaths(matches []Match) []Path {
	var out []Path
	seen := map[string]bool{}
	for _, m := range matches {
		if k := m.Path.Key(); !seen[k] {
			seen[k] = true
			out = append(out, m.Path)
		}
	}
	return out
}

// Calls is a sink predicate for builtin calls
func Calls(builtins ...ir.Builtin) Predicate {
	return func(ins ir.Instruction) bool {
		return ir.IsBuiltinCall(ins, builtins...)
	}
}
