package lsp

import (
	"slices"

	"github.com/alecthomas/participle/v2/lexer"

	"cryptoscan/grammar"
	"cryptoscan/internal/ir"
)

// SemanticToken is one classified token before delta encoding
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// collectSemanticTokens classifies the tokens of source. The IR keywords
// are contextual, so every identifier is looked at together with its
// neighbors. Text that does not lex yields no tokens.
func collectSemanticTokens(source string) []SemanticToken {
	toks, err := grammar.Tokens("", source)
	if err != nil {
		return nil
	}

	var tokens []SemanticToken
	for i, tok := range toks {
		kind, mods, ok := classify(toks, i)
		if !ok {
			continue
		}
		tokens = append(tokens, makeToken(tok, kind, mods...))
	}
	return tokens
}

func classify(toks []lexer.Token, i int) (string, []string, bool) {
	tok := toks[i]
	switch grammar.TokenName(tok.Type) {
	case "Comment":
		return "comment", nil, true
	case "String":
		return "string", nil, true
	case "Integer":
		return "number", nil, true
	case "Operator":
		return "operator", nil, true
	case "Ident":
		kind, mods := classifyIdent(toks, i)
		return kind, mods, true
	}
	return "", nil, false
}

func classifyIdent(toks []lexer.Token, i int) (string, []string) {
	value := toks[i].Value
	prev, next := valueAt(toks, i-1), valueAt(toks, i+1)

	switch {
	case (prev == "contract" || prev == "library" || prev == "interface") && next == "{":
		return "class", []string{"declaration"}
	case prev == "function" || prev == "modifier":
		return "function", []string{"declaration"}
	case next == ":":
		switch prev {
		case "state", "constant":
			return "property", []string{"declaration"}
		case "const":
			return "variable", []string{"declaration", "readonly"}
		case "(", ",":
			return "parameter", []string{"declaration"}
		}
		return "variable", []string{"declaration"}
	case next == "(" && !slices.Contains(grammar.Keywords, value):
		return "function", nil
	case isNodeKind(value) && i > 0 && grammar.TokenName(toks[i-1].Type) == "Integer":
		return "enumMember", nil
	case slices.Contains(grammar.Keywords, value):
		return "keyword", nil
	case ir.IsElementaryName(value) || prev == ":" || prev == "to":
		return "type", nil
	}
	if _, ok := ir.LookupSolidityVariable(value); ok {
		return "variable", []string{"readonly", "static"}
	}
	return "variable", nil
}

func isNodeKind(value string) bool {
	for _, k := range ir.NodeKinds {
		if string(k) == value {
			return true
		}
	}
	return false
}

func valueAt(toks []lexer.Token, i int) string {
	if i < 0 || i >= len(toks) {
		return ""
	}
	return toks[i].Value
}

// Converts a token into a SemanticToken using 0-based line/character offsets
func makeToken(tok lexer.Token, tokenType string, modifiers ...string) SemanticToken {
	mask := 0
	for _, m := range modifiers {
		if idx := indexOf(SemanticTokenModifiers, m); idx >= 0 {
			mask |= 1 << idx
		}
	}
	return SemanticToken{
		Line:           uint32(tok.Pos.Line - 1),
		StartChar:      uint32(tok.Pos.Column - 1),
		Length:         utf16Len(tok.Value),
		TokenType:      indexOf(SemanticTokenTypes, tokenType),
		TokenModifiers: mask,
	}
}

// Returns the index of a string in a slice, or -1 if not found
func indexOf(list []string, item string) int {
	for i, v := range list {
		if v == item {
			return i
		}
	}
	return -1
}
