package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

type PosIdent struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `@Ident`
}

// Operand is a value reference: a name, an integer or a string literal
type Operand struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Str    *string `  @String`
	Number *string `| @Integer`
	Name   *string `| @Ident`
}

// Type is an elementary or user-defined name, a mapping or a tuple,
// followed by array dimensions.
type Type struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Mapping *Mapping `(  @@`
	Tuple   *TupleOf ` | @@`
	Name    string   ` | @Ident )`
	Dims    []*Dim   `@@*`
}

type Mapping struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Key    *Type `"mapping" "(" @@ "=>"`
	Value  *Type `@@ ")"`
}

type TupleOf struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Keyword  string  `@"tuple"`
	Elements []*Type `"(" ( @@ ( "," @@ )* )? ")"`
}

// Dim is one array dimension; a nil Length is a dynamic array
type Dim struct {
	Open   string  `@"["`
	Length *string `@Integer? "]"`
}
