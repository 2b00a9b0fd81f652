package parser

import (
	"errors"
	"fmt"

	"oris/internal/lexer"
	"oris/internal/token"
)

type ErrorKind int

const (
	// Missing means the input ended while Expected was still required.
	Missing ErrorKind = iota
	// Mismatch means Found appeared where Expected was required.
	Mismatch
)

// Error is a syntax error at a byte offset of the source.
type Error struct {
	Kind     ErrorKind
	Expected string
	Found    token.Token
	Position int
}

func (e *Error) Pos() int { return e.Position }

func (e *Error) Error() string {
	if e.Kind == Missing {
		return fmt.Sprintf("unexpected end of input, expected %s", e.Expected)
	}
	return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found.Describe())
}

// IsIncomplete reports whether err would go away with more input: the
// source ended mid construct or inside a string literal.
func IsIncomplete(err error) bool {
	var parseErr *Error
	if errors.As(err, &parseErr) {
		return parseErr.Kind == Missing
	}
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return lexErr.Kind == lexer.UnterminatedString
	}
	return false
}
