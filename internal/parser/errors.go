package parser

import (
	"fmt"

	"github.com/jptrs93/pbgen/internal/ir"
)

// SyntaxError reports malformed input: a token or grammar mismatch, or a
// construct the grammar accepts but proto3 does not.
type SyntaxError struct {
	Filename string
	Line     int
	Column   int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Msg)
}

func syntaxErrorf(pos ir.Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Filename: pos.Filename,
		Line:     pos.Line,
		Column:   pos.Column,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// DuplicateDefinitionError reports two definitions sharing a name or number
// within one message or enum.
type DuplicateDefinitionError struct {
	Scope  string
	Kind   string
	Name   string
	Number int
	Pos    ir.Position
}

func (e *DuplicateDefinitionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s '%s' is already defined in '%s'.", e.Pos, e.Kind, e.Name, e.Scope)
	}
	return fmt.Sprintf("%s: %s number %d is already used in '%s'.", e.Pos, e.Kind, e.Number, e.Scope)
}
