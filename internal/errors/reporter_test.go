package errors

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"cryptoscan/internal/ir"
)

const vaultSource = `contract Vault {
  function f() public {
    node 0 expression {
      TMP_0: bool = ownr == msg.sender;
    }
    node 1 return {
      return TMP_0;
    }
  }
}`

func TestErrorReporter(t *testing.T) {
	color.NoColor = true
	reporter := NewErrorReporter("vault.sir", vaultSource)

	err := UndefinedValue("ownr", ir.Position{Line: 4, Column: 21}, []string{"owner", "signer"})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorUndefinedValue+"]: undefined value 'ownr'")
	assert.Contains(t, formatted, " --> vault.sir:4:21 in Vault.f, node 0\n")
	assert.Contains(t, formatted, "4 |       TMP_0: bool = ownr == msg.sender;\n")
	assert.Contains(t, formatted, "  |                     ^^^^\n")
	assert.Contains(t, formatted, "  = help: did you mean 'owner'?\n")
	assert.Contains(t, formatted, "4 |       TMP_0: bool = owner == msg.sender;\n")
	assert.NotContains(t, formatted, "node 0 expression", "only the offending line is shown")
}

func TestScopeFollowsNesting(t *testing.T) {
	reporter := NewErrorReporter("vault.sir", vaultSource)
	assert.Equal(t, "Vault.f, node 1", reporter.scope(7))
	assert.Equal(t, "Vault.f", reporter.scope(6))
	assert.Equal(t, "Vault", reporter.scope(2))
	assert.Empty(t, reporter.scope(1))
	assert.Empty(t, reporter.scope(99))

	ctor := NewErrorReporter("c.sir", "contract C {\n  constructor() public {\n    node 0 entry {\n      x")
	assert.Equal(t, "C.constructor, node 0", ctor.scope(4))
}

func TestReportCountsLevels(t *testing.T) {
	color.NoColor = true
	reporter := NewErrorReporter("vault.sir", vaultSource)
	var buf bytes.Buffer
	reporter.Report(&buf, []Diagnostic{
		UndefinedValue("ownr", ir.Position{Line: 4, Column: 21}, nil),
		NamedConstructor("init", ir.Position{Line: 2, Column: 3}),
		UndefinedNode(3, "f", ir.Position{Line: 6, Column: 5}),
	})
	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, " --> "))
	assert.True(t, strings.HasSuffix(out, "vault.sir: 2 errors, 1 warning\n"))

	buf.Reset()
	reporter.Report(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestPositionFilenameWins(t *testing.T) {
	reporter := NewErrorReporter("fallback.sir", "x")
	err := SyntaxError("unexpected token", ir.Position{Filename: "real.sir", Line: 1, Column: 1})
	assert.Contains(t, reporter.FormatError(err), "real.sir:1:1")
}

func TestUndefinedValueError(t *testing.T) {
	pos := ir.Position{Line: 1, Column: 5}

	err := UndefinedValue("nonce", pos, []string{"nonces"})
	assert.Equal(t, ErrorUndefinedValue, err.Code)
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "did you mean 'nonces'")
	assert.Equal(t, "nonces", err.Suggestions[0].Replacement)

	err = UndefinedValue("xyz", pos, nil)
	assert.Empty(t, err.Suggestions)
	assert.Len(t, err.Notes, 1)
}

func TestUndefinedFunctionError(t *testing.T) {
	pos := ir.Position{Line: 1, Column: 5}

	err := UndefinedFunction("verfy", "Airdrop", pos, []string{"verify", "claim"})
	assert.Equal(t, ErrorUndefinedFunction, err.Code)
	assert.Contains(t, err.Message, "'verfy' is not declared in 'Airdrop'")
	assert.Contains(t, err.Suggestions[0].Message, "did you mean 'verify'")
	assert.NotEmpty(t, err.HelpText)
}

func TestDiagnosticError(t *testing.T) {
	err := NotAssignable("msg.sender", ir.Position{Filename: "a.sir", Line: 2, Column: 3})
	assert.Equal(t, "a.sir:2:3: error[E0301]: cannot assign to 'msg.sender'", err.Error())
	assert.True(t, HasErrors([]Diagnostic{err}))
	assert.False(t, HasErrors([]Diagnostic{NamedConstructor("init", ir.Position{})}))
}

func TestWarningFormatting(t *testing.T) {
	color.NoColor = true
	source := `constructor init() public {`
	reporter := NewErrorReporter("test.sir", source)

	err := NamedConstructor("init", ir.Position{Line: 1, Column: 13})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning[W0001]")
	assert.Contains(t, formatted, "ignored")
}

func TestUnderline(t *testing.T) {
	assert.Equal(t, "         ^^^^^^^^", underline("TMP_0 := variable;", 10, 8))
	assert.Equal(t, "\t\t  ^", underline("\t\tx := y", 5, 0))
	assert.Equal(t, "   ^^", underline("é := ab", 4, 2), "columns count runes")
	assert.Equal(t, "     ^", underline("ab", 6, 1))
}

func TestSplice(t *testing.T) {
	assert.Equal(t, "x := owner;", splice("x := ownr;", 6, 4, "owner"))
	assert.Equal(t, "é := owner", splice("é := ownr", 6, 4, "owner"))
	assert.Equal(t, "abX", splice("ab", 9, 3, "X"))
}

func TestMultipleSuggestions(t *testing.T) {
	err := UnknownBuiltin("keccak", ir.Position{Line: 1, Column: 1}, []string{"keccak256", "keccak25", "keccak2"})
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "one of")
	assert.Contains(t, err.Suggestions[0].Message, "'keccak25'")
	assert.NotContains(t, err.Suggestions[0].Message, "keccak256")
	assert.Empty(t, err.Suggestions[0].Replacement, "no single fix among several candidates")
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo"))
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestSimilarNameFinding(t *testing.T) {
	candidates := []string{"balance", "amount", "total", "balanceOf", "xyz"}

	similar := findSimilarNames("balace", candidates)
	assert.Contains(t, similar, "balance")
	assert.NotContains(t, similar, "xyz")

	assert.Empty(t, findSimilarNames("verydifferent", candidates))
}

func TestErrorCategories(t *testing.T) {
	assert.Equal(t, "Syntax", GetErrorCategory(ErrorSyntax))
	assert.Equal(t, "Name Resolution", GetErrorCategory(ErrorUndefinedNode))
	assert.Equal(t, "Type", GetErrorCategory(ErrorNotAssignable))
	assert.Equal(t, "Structure", GetErrorCategory(ErrorDuplicateNode))
	assert.Equal(t, "Warning", GetErrorCategory(WarningEmptyFunction))
	assert.True(t, IsWarning(WarningNamedConstructor))
	assert.False(t, IsWarning(ErrorSyntax))
	assert.NotEqual(t, "Unknown error code", GetErrorDescription(ErrorReturnCount))
}

func TestErrorLevels(t *testing.T) {
	color.NoColor = true
	reporter := NewErrorReporter("test.sir", "test")
	pos := ir.Position{Line: 1, Column: 1}

	errorErr := Diagnostic{Level: Error, Message: "test error", Position: pos}
	warningErr := Diagnostic{Level: Warning, Message: "test warning", Position: pos}

	assert.Contains(t, reporter.FormatError(errorErr), "error:")
	assert.Contains(t, reporter.FormatError(warningErr), "warning:")
}
