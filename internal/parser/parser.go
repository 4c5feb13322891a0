package parser

import (
	"errors"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jptrs93/pbgen/internal/ir"
)

// Parse parses a proto3 source file into an unresolved ir.File. Type names
// are recorded as written; binding them is left to the resolver.
func Parse(filename string, src []byte) (*ir.File, error) {
	if !utf8.Valid(src) {
		return nil, &SyntaxError{Filename: filename, Line: 1, Column: 1, Msg: "source is not valid UTF-8"}
	}
	tree, err := grammar.ParseString(filename, StripComments(string(src)))
	if err != nil {
		return nil, toSyntaxError(filename, err)
	}
	b := &builder{filename: filename}
	return b.file(tree)
}

type positionedError interface {
	error
	Position() lexer.Position
	Message() string
}

func toSyntaxError(filename string, err error) error {
	var perr positionedError
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &SyntaxError{Filename: filename, Line: pos.Line, Column: pos.Column, Msg: perr.Message()}
	}
	return &SyntaxError{Filename: filename, Msg: err.Error()}
}
