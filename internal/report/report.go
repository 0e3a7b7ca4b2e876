// Package report renders detector findings as colored text, JSON or SARIF.
package report

import (
	"strings"

	"cryptoscan/internal/detectors"
	"cryptoscan/internal/evm"
	"cryptoscan/internal/ir"
)

// Location is a source position in serialized output
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Element is the serialized form of a finding element
type Element struct {
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"`
	Node     *int      `json:"node,omitempty"`
	Text     string    `json:"text,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Result is the serialized form of a finding
type Result struct {
	Detector    string    `json:"detector"`
	Impact      string    `json:"impact"`
	Confidence  string    `json:"confidence"`
	Description string    `json:"description"`
	Entry       string    `json:"entry,omitempty"`
	Selector    string    `json:"selector,omitempty"`
	Terminal    string    `json:"terminal,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Elements    []Element `json:"elements"`
}

// Results converts findings for serialization, keeping their order
func Results(findings []detectors.Finding) []Result {
	out := make([]Result, len(findings))
	for i, f := range findings {
		out[i] = result(f)
	}
	return out
}

func result(f detectors.Finding) Result {
	r := Result{
		Detector:    f.Detector,
		Impact:      f.Impact.String(),
		Confidence:  f.Confidence.String(),
		Description: Describe(f),
		Location:    Locate(f),
		Elements:    make([]Element, len(f.Elements)),
	}
	if f.Entry != nil {
		r.Entry = f.Entry.CanonicalName()
		r.Selector = Selector(f.Entry)
	}
	if f.Terminal != nil {
		r.Terminal = f.Terminal.CanonicalName()
	}
	for i, el := range f.Elements {
		switch {
		case el.Function != nil:
			r.Elements[i] = Element{Type: "function", Name: el.Function.CanonicalName(), Location: location(el.Function.Position)}
		case el.Node != nil:
			id := el.Node.ID
			r.Elements[i] = Element{Type: "node", Name: el.Node.Function.CanonicalName(), Node: &id, Location: location(el.Node.Position)}
		default:
			r.Elements[i] = Element{Type: "text", Text: el.Text}
		}
	}
	return r
}

// Selector is the 4-byte selector callers use to reach fn, or "" when fn
// has no external entry point.
func Selector(fn *ir.Function) string {
	if fn == nil || !fn.IsExternallyReachable() || fn.Kind != ir.FunctionRegular {
		return ""
	}
	return evm.Selector(fn.Signature())
}

// Describe renders the element list as one line of plain text
func Describe(f detectors.Finding) string {
	var b strings.Builder
	for _, el := range f.Elements {
		switch {
		case el.Function != nil:
			b.WriteString(el.Function.CanonicalName())
		case el.Node != nil:
			b.WriteString(el.Node.String())
		default:
			b.WriteString(el.Text)
		}
	}
	return b.String()
}

// Locate picks the most precise known position of a finding: the sink
// node, then the terminal function, then the entry function.
func Locate(f detectors.Finding) *Location {
	if f.Node != nil {
		if loc := location(f.Node.Position); loc != nil {
			return loc
		}
	}
	for _, fn := range []*ir.Function{f.Terminal, f.Entry} {
		if fn == nil {
			continue
		}
		if loc := location(fn.Position); loc != nil {
			return loc
		}
	}
	return nil
}

func location(p ir.Position) *Location {
	if p.Line <= 0 {
		return nil
	}
	return &Location{File: p.Filename, Line: p.Line, Column: p.Column}
}
