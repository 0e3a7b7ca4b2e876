package parser

import (
	"cryptoscan/grammar"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/ir"
)

// ParseResult contains the loaded unit, its syntax tree and every
// diagnostic raised while loading
type ParseResult struct {
	Unit        *ir.CompilationUnit
	File        *grammar.File
	Diagnostics []errors.Diagnostic
}

// HasErrors reports whether loading produced an error-level diagnostic
func (pr *ParseResult) HasErrors() bool {
	return errors.HasErrors(pr.Diagnostics)
}

// Errors returns the error-level diagnostics
func (pr *ParseResult) Errors() []errors.Diagnostic {
	var out []errors.Diagnostic
	for _, d := range pr.Diagnostics {
		if d.Level == errors.Error {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the warning-level diagnostics
func (pr *ParseResult) Warnings() []errors.Diagnostic {
	var out []errors.Diagnostic
	for _, d := range pr.Diagnostics {
		if d.Level == errors.Warning {
			out = append(out, d)
		}
	}
	return out
}
