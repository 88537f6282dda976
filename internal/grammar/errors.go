package grammar

import (
	"errors"
	"fmt"
)

// Lexer errors.
var (
	ErrUnterminated = errors.New("unterminated literal")
)

// Parser errors.
var (
	ErrUnexpectedToken = errors.New("unexpected token")
	ErrUnexpectedEOF   = errors.New("unexpected end of query")
	ErrUnmatchedParen  = errors.New("unmatched parenthesis")
)

// SyntaxError carries the byte offset of a rejected input.
type SyntaxError struct {
	Pos     int    // byte offset in input
	Message string // human-readable error message
	Err     error  // underlying sentinel error (for errors.Is)
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func newSyntaxError(pos int, err error, msgFmt string, args ...any) *SyntaxError {
	return &SyntaxError{
		Pos:     pos,
		Message: fmt.Sprintf(msgFmt, args...),
		Err:     err,
	}
}
