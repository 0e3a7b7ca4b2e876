// Package asm extracts the few facts the analyses need from raw inline
// assembly text: chain-id aliases and low-level call arguments. Extraction
// is heuristic; text that does not match yields an empty result.
package asm

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var yulLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Hex", Pattern: `0x[0-9a-fA-F]+`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$.]*`},
	{Name: "Assign", Pattern: `:=`},
	{Name: "Punct", Pattern: `[(),{}:\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

var symbols = yulLexer.Symbols()

// CallKinds are the opcodes whose arguments ExtractLowLevelCalls understands
var CallKinds = []string{"call", "staticcall", "delegatecall", "callcode"}

// LowLevelCall is one call opcode found in assembly text
type LowLevelCall struct {
	Kind    string
	Address string   // text of the address argument
	Args    []string // text of every argument
	Inputs  []string // identifiers in the input-offset argument
}

// tokens lexes text, dropping whitespace and comments. Lexing errors end
// the token stream early.
func tokens(text string) []lexer.Token {
	lex, err := yulLexer.LexString("", text)
	if err != nil {
		return nil
	}
	var out []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return out
		}
		if tok.Type == symbols["Whitespace"] || tok.Type == symbols["Comment"] {
			continue
		}
		out = append(out, tok)
	}
}

func isIdent(tok lexer.Token, value string) bool {
	return tok.Type == symbols["Ident"] && (value == "" || tok.Value == value)
}

func isPunct(tok lexer.Token, value string) bool {
	return tok.Type == symbols["Punct"] && tok.Value == value
}

// ExtractChainIDAlias returns the variable assigned from chainid() in
// statements such as `let id := chainid()`.
func ExtractChainIDAlias(text string) (string, bool) {
	toks := tokens(text)
	for i := 0; i+4 < len(toks); i++ {
		if isIdent(toks[i], "") &&
			toks[i+1].Type == symbols["Assign"] &&
			isIdent(toks[i+2], "chainid") &&
			isPunct(toks[i+3], "(") && isPunct(toks[i+4], ")") {
			return toks[i].Value, true
		}
	}
	return "", false
}

// ReadsChainID reports whether the text calls the chainid opcode
func ReadsChainID(text string) bool {
	toks := tokens(text)
	for i := 0; i+1 < len(toks); i++ {
		if isIdent(toks[i], "chainid") && isPunct(toks[i+1], "(") {
			return true
		}
	}
	return false
}

// ExtractLowLevelCalls finds call, staticcall, delegatecall and callcode
// invocations. The address is the second argument; the input offset is the
// fourth for call and callcode and the third for the others.
func ExtractLowLevelCalls(text string) []LowLevelCall {
	toks := tokens(text)
	var out []LowLevelCall
	for i := 0; i+1 < len(toks); i++ {
		kind := toks[i].Value
		if !isIdent(toks[i], "") || !isCallKind(kind) || !isPunct(toks[i+1], "(") {
			continue
		}
		args, ok := splitArgs(toks[i+2:])
		if !ok || len(args) < 2 {
			continue
		}
		call := LowLevelCall{Kind: kind, Address: join(args[1])}
		for _, a := range args {
			call.Args = append(call.Args, join(a))
		}
		input := 2
		if kind == "call" || kind == "callcode" {
			input = 3
		}
		if input < len(args) {
			for _, tok := range args[input] {
				if isIdent(tok, "") {
					call.Inputs = append(call.Inputs, tok.Value)
				}
			}
		}
		out = append(out, call)
	}
	return out
}

// Identifiers returns the identifiers of the text in order of appearance
func Identifiers(text string) []string {
	var out []string
	for _, tok := range tokens(text) {
		if isIdent(tok, "") {
			out = append(out, tok.Value)
		}
	}
	return out
}

func isCallKind(s string) bool {
	for _, k := range CallKinds {
		if s == k {
			return true
		}
	}
	return false
}

// splitArgs splits the tokens following an opening parenthesis into
// top-level arguments, stopping at the matching close.
func splitArgs(toks []lexer.Token) ([][]lexer.Token, bool) {
	var args [][]lexer.Token
	var cur []lexer.Token
	depth := 0
	for _, tok := range toks {
		switch {
		case isPunct(tok, "("):
			depth++
		case isPunct(tok, ")"):
			if depth == 0 {
				if len(cur) > 0 || len(args) > 0 {
					args = append(args, cur)
				}
				return args, true
			}
			depth--
		case isPunct(tok, ",") && depth == 0:
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	return nil, false
}

func join(toks []lexer.Token) string {
	var sb strings.Builder
	for i, tok := range toks {
		if i > 0 && !isPunct(tok, "(") && !isPunct(tok, ")") && !isPunct(toks[i-1], "(") && !isPunct(tok, ",") {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Value)
	}
	return sb.String()
}
