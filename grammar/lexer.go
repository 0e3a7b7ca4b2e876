package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SirLexer tokenizes the textual IR. Identifiers may carry dots so that
// msg.sender, abi.encodePacked and Token.transfer stay single tokens.
var SirLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `//[^\n]*`, nil},

		// String literals, used for node sources and string constants
		{"String", `"(\\.|[^"\\])*"`, nil},

		// Integer literals
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},

		// Keywords and Identifiers (order matters)
		{"Ident", `[a-zA-Z_$][a-zA-Z0-9_$]*(\.[a-zA-Z_$][a-zA-Z0-9_$]*)*`, nil},

		// Operators
		{"Operator", `(:=|->|=>|==|!=|<=|>=|&&|\|\||\*\*|<<|>>|[-+*/%<>&|^!~=])`, nil},

		// Punctuation (must come after operators)
		{"Punctuation", `[{}()\[\],;:]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
