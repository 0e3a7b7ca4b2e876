package errors

import (
	"fmt"
	"strings"

	"cryptoscan/internal/ir"
)

// DiagnosticBuilder provides a fluent interface for creating diagnostics with suggestions
type DiagnosticBuilder struct {
	err Diagnostic
}

// NewError creates a new error builder
func NewError(code, message string, pos ir.Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: Diagnostic{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewWarning creates a new warning builder
func NewWarning(code, message string, pos ir.Position) *DiagnosticBuilder {
	return &DiagnosticBuilder{
		err: Diagnostic{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithLength sets the length of the error span
func (b *DiagnosticBuilder) WithLength(length int) *DiagnosticBuilder {
	b.err.Length = length
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *DiagnosticBuilder) WithSuggestion(message string) *DiagnosticBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// withSimilar suggests the near-miss names. A single candidate also
// becomes the replacement for the span.
func (b *DiagnosticBuilder) withSimilar(similar []string) *DiagnosticBuilder {
	switch len(similar) {
	case 0:
	case 1:
		b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: didYouMean(similar), Replacement: similar[0]})
	default:
		b.WithSuggestion(didYouMean(similar))
	}
	return b
}

// WithNote adds a note to the error
func (b *DiagnosticBuilder) WithNote(note string) *DiagnosticBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *DiagnosticBuilder) WithHelp(help string) *DiagnosticBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed diagnostic
func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.err
}

// SyntaxError wraps a grammar error
func SyntaxError(message string, pos ir.Position) Diagnostic {
	return NewError(ErrorSyntax, message, pos).Build()
}

// UndefinedValue creates an error for unresolved operands with suggestions
func UndefinedValue(name string, pos ir.Position, candidates []string) Diagnostic {
	builder := NewError(ErrorUndefinedValue, fmt.Sprintf("undefined value '%s'", name), pos).
		WithLength(len(name))

	if similar := findSimilarNames(name, candidates); len(similar) > 0 {
		builder = builder.withSimilar(similar)
	} else {
		builder = builder.WithNote("names resolve to locals, state variables, file constants, platform values, then literals")
	}
	return builder.Build()
}

// UndefinedFunction creates an error for unresolved internal call targets
func UndefinedFunction(name, contract string, pos ir.Position, candidates []string) Diagnostic {
	builder := NewError(ErrorUndefinedFunction, fmt.Sprintf("function '%s' is not declared in '%s'", name, contract), pos).
		WithLength(len(name))

	builder = builder.withSimilar(findSimilarNames(name, candidates))
	return builder.WithHelp("internal calls resolve against functions and modifiers of the enclosing contract").Build()
}

// UndefinedModifier creates an error for unknown modifier names
func UndefinedModifier(name, contract string, pos ir.Position) Diagnostic {
	return NewError(ErrorUndefinedModifier, fmt.Sprintf("modifier '%s' is not declared in '%s'", name, contract), pos).
		WithLength(len(name)).
		Build()
}

// UnknownBuiltin creates an error for solidity calls to unknown builtins
func UnknownBuiltin(name string, pos ir.Position, known []string) Diagnostic {
	builder := NewError(ErrorUnknownBuiltin, fmt.Sprintf("unknown builtin '%s'", name), pos).
		WithLength(len(name))
	builder = builder.withSimilar(findSimilarNames(name, known))
	return builder.Build()
}

// UndefinedNode creates an error for successors naming no node
func UndefinedNode(id int, fn string, pos ir.Position) Diagnostic {
	return NewError(ErrorUndefinedNode, fmt.Sprintf("function '%s' has no node %d", fn, id), pos).Build()
}

// NotAssignable creates an error for results written to read-only values
func NotAssignable(name string, pos ir.Position) Diagnostic {
	return NewError(ErrorNotAssignable, fmt.Sprintf("cannot assign to '%s'", name), pos).
		WithLength(len(name)).
		WithNote("platform values, file constants and literals are read-only").
		Build()
}

// UnknownNodeKind creates an error for node kinds outside the CFG kinds
func UnknownNodeKind(kind string, pos ir.Position, kinds []string) Diagnostic {
	return NewError(ErrorUnknownNodeKind, fmt.Sprintf("unknown node kind '%s'", kind), pos).
		WithLength(len(kind)).
		WithNote(fmt.Sprintf("node kinds are: %s", strings.Join(kinds, ", "))).
		Build()
}

// UnknownCallKind creates an error for low-level calls of an unknown kind
func UnknownCallKind(kind string, pos ir.Position) Diagnostic {
	return NewError(ErrorUnknownCallKind, fmt.Sprintf("unknown low-level call '%s'", kind), pos).
		WithLength(len(kind)).
		Build()
}

// ReturnCount creates an error for return arity mismatches
func ReturnCount(fn string, expected, actual int, pos ir.Position) Diagnostic {
	return NewError(ErrorReturnCount,
		fmt.Sprintf("function '%s' returns %d value(s), got %d", fn, expected, actual), pos).
		Build()
}

// MissingDestination creates an error for external calls without "on"
func MissingDestination(kind string, pos ir.Position) Diagnostic {
	return NewError(ErrorMissingDestination, fmt.Sprintf("%s call needs a destination", kind), pos).
		WithSuggestion("add 'on <address>' after the arguments").
		Build()
}

// UnexpectedDestination creates an error for "on" used with a local call kind
func UnexpectedDestination(kind string, pos ir.Position) Diagnostic {
	return NewError(ErrorUnexpectedDestination, fmt.Sprintf("%s call takes no destination", kind), pos).Build()
}

// MalformedCallee creates an error for unqualified external callees
func MalformedCallee(name string, pos ir.Position) Diagnostic {
	return NewError(ErrorMalformedCallee, fmt.Sprintf("callee '%s' must be written as Contract.function", name), pos).
		WithLength(len(name)).
		Build()
}

// DuplicateDeclaration creates an error for duplicate declarations
func DuplicateDeclaration(name string, pos ir.Position) Diagnostic {
	return NewError(ErrorDuplicateDeclaration, fmt.Sprintf("duplicate declaration: %s", name), pos).
		WithLength(len(name)).
		WithSuggestion(fmt.Sprintf("rename the duplicate '%s' to a unique name", name)).
		WithNote("identifiers must be unique within their scope").
		Build()
}

// DuplicateNode creates an error for a node ID used twice
func DuplicateNode(id int, fn string, pos ir.Position) Diagnostic {
	return NewError(ErrorDuplicateNode, fmt.Sprintf("node %d is declared twice in '%s'", id, fn), pos).Build()
}

// MissingName creates an error for unnamed functions and modifiers
func MissingName(kind string, pos ir.Position) Diagnostic {
	return NewError(ErrorMissingName, fmt.Sprintf("%s needs a name", kind), pos).Build()
}

// NamedConstructor warns that a constructor name is dropped
func NamedConstructor(name string, pos ir.Position) Diagnostic {
	return NewWarning(WarningNamedConstructor, fmt.Sprintf("constructor name '%s' is ignored", name), pos).
		WithLength(len(name)).
		Build()
}

// EmptyFunction warns about a body without nodes
func EmptyFunction(fn string, pos ir.Position) Diagnostic {
	return NewWarning(WarningEmptyFunction, fmt.Sprintf("function '%s' has no nodes", fn), pos).Build()
}

// Helper functions

func didYouMean(similar []string) string {
	if len(similar) == 1 {
		return fmt.Sprintf("did you mean '%s'?", similar[0])
	}
	return fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '"))
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string

	for _, candidate := range candidates {
		if candidate != target && levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
		}
	}

	return similar
}

// Simple Levenshtein distance implementation for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
