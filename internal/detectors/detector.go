// Package detectors implements the pattern-matcher framework and every
// cryptographic detector built on it.
package detectors

import (
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"cryptoscan/internal/callpath"
	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
	"cryptoscan/internal/protector"
)

var log = commonlog.GetLogger("cryptoscan.detectors")

// Classification grades the impact and confidence of a detector
type Classification int

const (
	Informational Classification = iota
	Low
	Medium
	High
)

func (c Classification) String() string {
	switch c {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Informational"
	}
}

// Element is one part of a finding: a function, a node or a text fragment
type Element struct {
	Function *ir.Function
	Node     *ir.Node
	Text     string
}

// Finding is the element list produced by a detector. Entry, Terminal and
// Node identify the finding; two findings with the same triple from the
// same detector are the same report.
type Finding struct {
	Detector   string
	Impact     Classification
	Confidence Classification
	Entry      *ir.Function
	Terminal   *ir.Function
	Node       *ir.Node
	Elements   []Element
}

// Key identifies the finding within its detector
func (f Finding) Key() string {
	node := ""
	if f.Node != nil {
		node = f.Node.String()
	}
	return fmt.Sprintf("%s|%s|%s", name(f.Entry), name(f.Terminal), node)
}

func name(fn *ir.Function) string {
	if fn == nil {
		return ""
	}
	return fn.CanonicalName()
}

// Detector is a configured pattern over a compilation unit
type Detector interface {
	Argument() string
	Help() string
	Impact() Classification
	Confidence() Classification
	Detect(unit *ir.CompilationUnit) []Finding
}

// Recorder receives per-detector run statistics
type Recorder interface {
	DetectorFinished(argument string, findings int, elapsed time.Duration)
}

// Engine holds the analyses shared by every detector of a run
type Engine struct {
	Oracle     *dependency.Oracle
	Protectors *protector.Analyzer
	Explorer   *callpath.Explorer
}

// NewEngine creates an engine whose explorer stops after limit paths per
// entry function. observer may be nil.
func NewEngine(limit int, observer callpath.Observer) *Engine {
	oracle := dependency.New(dependency.WithIndexFilter(protector.NonceFilter))
	return &Engine{
		Oracle:     oracle,
		Protectors: protector.New(oracle),
		Explorer:   &callpath.Explorer{Limit: limit, Observer: observer},
	}
}

// info carries the static description every detector exposes
type info struct {
	argument   string
	help       string
	impact     Classification
	confidence Classification
}

func (i info) Argument() string           { return i.argument }
func (i info) Help() string               { return i.help }
func (i info) Impact() Classification     { return i.impact }
func (i info) Confidence() Classification { return i.confidence }

// newFinding builds the usual "entry -> terminal message node" finding
func newFinding(d Detector, entry, terminal *ir.Function, node *ir.Node, message string) Finding {
	elements := []Element{{Function: entry}}
	if terminal != nil && terminal != entry {
		elements = append(elements, Element{Text: " -> "}, Element{Function: terminal})
	}
	elements = append(elements, Element{Text: " " + message})
	if node != nil {
		elements = append(elements, Element{Text: ": "}, Element{Node: node})
	}
	return Finding{
		Detector:   d.Argument(),
		Impact:     d.Impact(),
		Confidence: d.Confidence(),
		Entry:      entry,
		Terminal:   terminal,
		Node:       node,
		Elements:   elements,
	}
}

// collector de-duplicates findings by key, keeping discovery order
type collector struct {
	seen     map[string]bool
	findings []Finding
}

func (c *collector) add(f Finding) {
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	if k := f.Key(); !c.seen[k] {
		c.seen[k] = true
		c.findings = append(c.findings, f)
	}
}
