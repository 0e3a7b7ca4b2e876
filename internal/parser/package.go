// Package parser loads textual IR (.sir) into an ir.CompilationUnit. Syntax
// errors stop loading; resolution errors are collected and the rest of the
// unit is still built.
package parser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/tliron/commonlog"

	"cryptoscan/grammar"
	"cryptoscan/internal/errors"
	"cryptoscan/internal/ir"
)

var log = commonlog.GetLogger("cryptoscan.parser")

// ParseSource parses and lowers source. The result always carries the
// diagnostics; Unit is nil only when the source does not parse.
func ParseSource(path string, source string) *ParseResult {
	file, err := grammar.ParseString(path, source)
	if err != nil {
		return &ParseResult{Diagnostics: []errors.Diagnostic{syntaxDiagnostic(path, err)}}
	}

	l := newLowerer(path)
	unit := l.lower(file)
	log.Debugf("loaded %s: %d contracts, %d diagnostics", path, len(unit.Contracts), len(l.diags))
	return &ParseResult{Unit: unit, File: file, Diagnostics: l.diags}
}

// ParseFile reads and parses a .sir file
func ParseFile(path string) (*ParseResult, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSource(path, string(source)), string(source), nil
}

func syntaxDiagnostic(path string, err error) errors.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return errors.SyntaxError(err.Error(), ir.Position{Filename: path, Line: 1, Column: 1})
	}
	return errors.SyntaxError(pe.Message(), position(pe.Position()))
}
