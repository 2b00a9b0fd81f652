package lexer

import "fmt"

type ErrorKind int

const (
	// UnterminatedString is a string literal without its closing quote.
	UnterminatedString ErrorKind = iota
	// Overflow is an integer literal outside the 32-bit signed range.
	Overflow
	// BadDigit is a letter or underscore glued to an integer literal.
	BadDigit
	// Unexpected is a byte that starts no token.
	Unexpected
)

// Error is a lexical error at a byte offset of the source.
type Error struct {
	Kind     ErrorKind
	Position int
	Byte     byte
}

func (e *Error) Pos() int { return e.Position }

func (e *Error) Error() string {
	switch e.Kind {
	case UnterminatedString:
		return "missing right quote for string literal"
	case Overflow:
		return "integer literal is too large"
	case BadDigit:
		return fmt.Sprintf("bad digit `%c` in integer literal", e.Byte)
	default:
		return fmt.Sprintf("unexpected byte (%c)%#02x", printable(e.Byte), e.Byte)
	}
}

func printable(b byte) rune {
	if b < 0x20 || b >= 0x7f {
		return '?'
	}
	return rune(b)
}
