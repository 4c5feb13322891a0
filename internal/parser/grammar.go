package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Syntax tree produced by participle. Numbers and strings are captured as raw
// token text and converted by the builder so range and escape errors can be
// reported with positions.

type protoFile struct {
	Pos     lexer.Position
	Syntax  *syntaxDecl `@@`
	Entries []*entry    `@@*`
}

type syntaxDecl struct {
	Pos   lexer.Position
	Value string `"syntax" "=" @String ";"`
}

type entry struct {
	Pos     lexer.Position
	Import  *importDecl  `  @@`
	Package *packageDecl `| @@`
	Option  *optionDecl  `| @@`
	Message *messageDecl `| @@`
	Enum    *enumDecl    `| @@`
	Service *serviceDecl `| @@`
	Empty   bool         `| @";"`
}

type importDecl struct {
	Pos      lexer.Position
	Modifier string `"import" @("weak" | "public")?`
	Path     string `@String ";"`
}

type packageDecl struct {
	Pos  lexer.Position
	Name string `"package" @Ident ( @"." @Ident )* ";"`
}

type optionDecl struct {
	Pos    lexer.Position
	Option *option `"option" @@ ";"`
}

type option struct {
	Pos   lexer.Position
	Name  string `( @"(" "."? @Ident ( @"." @Ident )* @")" | @Ident ) ( @"." @Ident )*`
	Value *value `"=" @@`
}

type value struct {
	Pos       lexer.Position
	Strings   []string   `  @String+`
	Float     *string    `| @Float`
	Int       *string    `| @Int`
	Signed    *string    `| @("-" | "+") @Ident`
	Aggregate *aggregate `| @@`
	Ident     *string    `| @Ident ( @"." @Ident )*`
}

type aggregate struct {
	Tokens []*aggregateToken `"{" @@* "}"`
}

type aggregateToken struct {
	Nested *aggregate `  @@`
	Token  string     `| @( String | Float | Int | Ident | ":" | "," | ";" | "[" | "]" | "<" | ">" | "." | "/" | "-" | "+" | "(" | ")" | "=" )`
}

type messageDecl struct {
	Pos     lexer.Position
	Name    string          `"message" @Ident "{"`
	Entries []*messageEntry `@@* "}"`
}

type messageEntry struct {
	Enum     *enumDecl     `  @@`
	Message  *messageDecl  `| @@`
	Oneof    *oneofDecl    `| @@`
	Map      *mapField     `| @@`
	Reserved *reservedDecl `| @@`
	Option   *optionDecl   `| @@`
	Field    *fieldDecl    `| @@`
	Empty    bool          `| @";"`
}

type fieldDecl struct {
	Pos     lexer.Position
	Label   string    `@( "repeated" | "optional" | "required" )?`
	Type    *typeRef  `@@`
	Name    string    `@Ident "="`
	Number  string    `@Int`
	Options []*option `( "[" @@ ( "," @@ )* "]" )? ";"`
}

type typeRef struct {
	Pos  lexer.Position
	Name string `@"."? @Ident ( @"." @Ident )*`
}

type mapField struct {
	Pos     lexer.Position
	Key     string    `"map" "<" @Ident ","`
	Value   *typeRef  `@@ ">"`
	Name    string    `@Ident "="`
	Number  string    `@Int`
	Options []*option `( "[" @@ ( "," @@ )* "]" )? ";"`
}

type oneofDecl struct {
	Pos     lexer.Position
	Name    string        `"oneof" @Ident "{"`
	Entries []*oneofEntry `@@* "}"`
}

type oneofEntry struct {
	Option *optionDecl `  @@`
	Field  *fieldDecl  `| @@`
	Empty  bool        `| @";"`
}

type enumDecl struct {
	Pos     lexer.Position
	Name    string       `"enum" @Ident "{"`
	Entries []*enumEntry `@@* "}"`
}

type enumEntry struct {
	Option   *optionDecl   `  @@`
	Reserved *reservedDecl `| @@`
	Value    *enumValue    `| @@`
	Empty    bool          `| @";"`
}

type enumValue struct {
	Pos     lexer.Position
	Name    string    `@Ident "="`
	Number  string    `@"-"? @Int`
	Options []*option `( "[" @@ ( "," @@ )* "]" )? ";"`
}

type reservedDecl struct {
	Pos    lexer.Position
	Ranges []*reservedRange `"reserved" ( @@ ( "," @@ )*`
	Names  []string         `          | @String ( "," @String )* ) ";"`
}

type reservedRange struct {
	Pos   lexer.Position
	Start string `@Int`
	End   string `( "to" @( Int | "max" ) )?`
}

type serviceDecl struct {
	Pos     lexer.Position
	Name    string          `"service" @Ident "{"`
	Entries []*serviceEntry `@@* "}"`
}

type serviceEntry struct {
	Option *optionDecl `  @@`
	Rpc    *rpcDecl    `| @@`
	Empty  bool        `| @";"`
}

type rpcDecl struct {
	Pos            lexer.Position
	Name           string        `"rpc" @Ident "("`
	RequestStream  bool          `@"stream"?`
	Request        *typeRef      `@@ ")" "returns" "("`
	ResponseStream bool          `@"stream"?`
	Response       *typeRef      `@@ ")"`
	Options        []*optionDecl `( "{" ( @@ | ";" )* "}" | ";" )`
}

var grammar = participle.MustBuild[protoFile](
	participle.Lexer(protoLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(8),
)
