package grammar

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fatih/color"
)

var sirParser = participle.MustBuild[File](
	participle.Lexer(SirLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

// ParseString parses textual IR held in memory
func ParseString(filename, source string) (*File, error) {
	return sirParser.ParseString(filename, source)
}

func ParseFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	file, err := ParseString(path, string(source))
	if err != nil {
		ReportParseError(color.Error, string(source), err)
		return nil, err
	}
	return file, nil
}

// Tokens lexes source without parsing it. Whitespace is dropped; comments
// are kept.
func Tokens(filename, source string) ([]lexer.Token, error) {
	lex, err := SirLexer.LexString(filename, source)
	if err != nil {
		return nil, err
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}
	ws := SirLexer.Symbols()["Whitespace"]
	out := all[:0]
	for _, tok := range all {
		if tok.Type != ws && !tok.EOF() {
			out = append(out, tok)
		}
	}
	return out, nil
}

// TokenName returns the lexer rule name of a token type
func TokenName(t lexer.TokenType) string {
	for name, sym := range SirLexer.Symbols() {
		if sym == t {
			return name
		}
	}
	return ""
}

// ReportParseError prints a friendly caret-style parse error message.
func ReportParseError(w io.Writer, src string, err error) {
	red := color.New(color.FgRed).SprintFunc()
	pe, ok := err.(participle.Error)
	if !ok {
		fmt.Fprintln(w, red(fmt.Sprintf("Unexpected error: %s", err)))
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		fmt.Fprintln(w, red(fmt.Sprintf("Syntax error at unknown location: %s", err)))
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(0, pos.Column-1)) + "^"

	fmt.Fprintln(w, red(fmt.Sprintf("Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)))
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, color.New(color.FgHiRed).Sprint(caret))
	fmt.Fprintf(w, "→ %s\n", pe.Message())
}
