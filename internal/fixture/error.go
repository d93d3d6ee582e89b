package fixture

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/token"
)

var ErrUnknownTable = errors.New("unknown fixture table")

type TokenPosition = token.Position

// ParseError reports malformed fixture YAML at a document path.
type ParseError struct {
	File         string
	ErrorMessage string
	Path         string
	Position     *TokenPosition
}

func NewParseError(msg string, path string, position *TokenPosition) *ParseError {
	return &ParseError{
		ErrorMessage: msg,
		Path:         path,
		Position:     position,
	}
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Position != nil {
		loc = fmt.Sprintf("%s (line %d, column %d)", e.Path, e.Position.Line, e.Position.Column)
	}
	if e.File != "" {
		loc = e.File + ": " + loc
	}
	return fmt.Sprintf("%s: %s", loc, e.ErrorMessage)
}

func nodeError(node ast.Node, format string, args ...any) *ParseError {
	var pos *TokenPosition
	if tk := node.GetToken(); tk != nil {
		pos = tk.Position
	}
	return NewParseError(fmt.Sprintf(format, args...), node.GetPath(), pos)
}
