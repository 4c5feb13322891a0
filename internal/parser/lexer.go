package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var protoLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n\f\v]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"|'(?:\\.|[^'\\\n])*'`},
	{Name: "Float", Pattern: `[-+]?(?:\d+\.\d*(?:[eE][-+]?\d+)?|\.\d+(?:[eE][-+]?\d+)?|\d+[eE][-+]?\d+)`},
	{Name: "Int", Pattern: `[-+]?(?:0[xX][0-9a-fA-F]+|\d+)`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[=;{}()\[\]<>,.:/+-]`},
})

// StripComments blanks out // and /* */ comments. Every comment byte except
// newlines becomes a space so offsets, lines and columns are unchanged.
// Comment markers inside string literals are left alone.
func StripComments(src string) string {
	out := []byte(src)
	const (
		code = iota
		str
		lineComment
		blockComment
	)
	state := code
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case code:
			switch {
			case c == '"' || c == '\'':
				state = str
				quote = c
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = lineComment
				out[i] = ' '
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = blockComment
				out[i] = ' '
				out[i+1] = ' '
				i++
			}
		case str:
			switch c {
			case '\\':
				i++
			case quote, '\n':
				state = code
			}
		case lineComment:
			if c == '\n' {
				state = code
				continue
			}
			out[i] = ' '
		case blockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				state = code
				continue
			}
			if c != '\n' {
				out[i] = ' '
			}
		}
	}
	return string(out)
}
