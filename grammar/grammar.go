package grammar

import "github.com/alecthomas/participle/v2/lexer"

// Keywords of the textual IR. Most are only reserved in their position, so
// they also lex as identifiers.
var Keywords = []string{
	"const", "contract", "library", "interface", "state", "constant",
	"function", "modifier", "constructor", "public", "external", "internal", "private",
	"view", "pure", "payable", "modifiers", "returns", "node", "source",
	"condition", "emit", "return", "high", "solidity", "lowlevel", "on",
	"member", "convert", "to", "unpack", "length", "mapping", "tuple",
}

type File struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Constants []*Constant `@@*`
	Contracts []*Contract `@@*`
}

type Constant struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   PosIdent `"const" @@ ":"`
	Type   *Type    `@@ "="`
	Value  *Operand `@@ ";"`
}

type Contract struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Kind      string      `@("contract" | "library" | "interface")`
	Name      PosIdent    `@@ "{"`
	States    []*State    `@@*`
	Functions []*Function `@@* "}"`
}

type State struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Constant bool     `"state" @"constant"?`
	Name     PosIdent `@@ ":"`
	Type     *Type    `@@`
	Init     *Operand `( "=" @@ )? ";"`
}

type Function struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Kind       string      `@("function" | "modifier" | "constructor")`
	Name       *PosIdent   `@@?`
	Params     []*Param    `"(" ( @@ ( "," @@ )* )? ")"`
	Visibility string      `@("public" | "external" | "internal" | "private")?`
	Flags      []string    `@("view" | "pure" | "payable")*`
	Modifiers  []*PosIdent `( "modifiers" "(" ( @@ ( "," @@ )* )? ")" )?`
	Returns    []*Type     `( "returns" "(" ( @@ ( "," @@ )* )? ")" )?`
	Nodes      []*Node     `"{" @@* "}"`
}

type Param struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   PosIdent `@@ ":"`
	Type   *Type    `@@`
}

// Node is one CFG node. Sons are node IDs of the same function.
type Node struct {
	Pos          lexer.Position
	EndPos       lexer.Position
	ID           int            `"node" @Integer`
	Kind         PosIdent       `@@`
	Sons         []int          `( "->" @Integer ( "," @Integer )* )?`
	Source       *string        `( "source" @String )?`
	Instructions []*Instruction `"{" ( @@ ";" )* "}"`
}

type Instruction struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Condition *Operand `(  "condition" @@`
	Emit      *Emit    ` | "emit" @@`
	Return    *Return  ` | @@`
	Call      *Call    ` | @@`
	Define    *Define  ` | @@ )`
}

type Emit struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   PosIdent   `@@`
	Args   []*Operand `"(" ( @@ ( "," @@ )* )? ")"`
}

type Return struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Keyword string     `@"return"`
	Values  []*Operand `( @@ ( "," @@ )* )?`
}

// Call is any of the five call forms. On is the destination of high and
// lowlevel calls.
type Call struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Kind   string     `@("internal" | "high" | "library" | "solidity" | "lowlevel")`
	Callee PosIdent   `@@`
	Args   []*Operand `"(" ( @@ ( "," @@ )* )? ")"`
	On     *Operand   `( "on" @@ )?`
}

// Define is an instruction with a result: a copy (:=), an index (->) or a
// computed value (=).
type Define struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Target PosIdent   `@@`
	Type   *Type      `( ":" @@ )?`
	Copy   *Operand   `(  ":=" @@`
	Index  *IndexExpr ` | "->" @@`
	Value  *Expr      ` | "=" @@ )`
}

type IndexExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Base   *Operand `@@ "["`
	Key    *Operand `@@ "]"`
}

type Expr struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Call    *Call        `(  @@`
	Member  *MemberExpr  ` | "member" @@`
	Convert *ConvertExpr ` | "convert" @@`
	Unpack  *UnpackExpr  ` | "unpack" @@`
	Length  *Operand     ` | "length" @@`
	Unary   *UnaryExpr   ` | @@`
	Binary  *BinaryExpr  ` | @@ )`
}

type MemberExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Base   *Operand `@@`
	Field  PosIdent `@@`
}

type ConvertExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  *Operand `@@ "to"`
	To     *Type    `@@`
}

type UnpackExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Tuple  *Operand `@@`
	Index  int      `@Integer`
}

type UnaryExpr struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Op      string   `@("!" | "~" | "-")`
	Operand *Operand `@@`
}

type BinaryExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *Operand `@@`
	Op     string   `@("**" | "==" | "!=" | "<=" | ">=" | "&&" | "||" | "<<" | ">>" | "+" | "-" | "*" | "/" | "%" | "<" | ">" | "&" | "|" | "^")`
	Right  *Operand `@@`
}
