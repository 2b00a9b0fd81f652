package lexer

import (
	"unicode/utf8"

	"oris/internal/token"
)

// readString reads a string literal starting at the opening quote. There are
// no escape sequences: everything up to the next `"` is the literal.
func (l *Lexer) readString() (token.Token, error) {
	startPosition := l.position
	l.readChar() // consume the opening "

	start := l.position
	for l.ch != '"' {
		if l.atEOF() {
			return token.Token{Type: token.ILLEGAL, Position: startPosition},
				&Error{Kind: UnterminatedString, Position: startPosition}
		}
		l.readChar()
	}
	literal := l.input[start:l.position]
	l.readChar() // consume the closing "

	if !utf8.ValidString(literal) {
		offset := firstInvalidByte(literal)
		return token.Token{Type: token.ILLEGAL, Position: startPosition},
			&Error{Kind: Unexpected, Position: start + offset, Byte: literal[offset]}
	}

	return token.Token{Type: token.STRING, Literal: literal, Position: startPosition}, nil
}

func firstInvalidByte(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return 0
}
