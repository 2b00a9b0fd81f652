package lexer

import (
	"oris/internal/token"
)

// Lexer turns source bytes into tokens. It works on bytes, not runes:
// identifiers and operators are ASCII, and string literals are taken
// verbatim between their quotes.
type Lexer struct {
	input        string
	position     int  // current byte position in input (points to current byte)
	readPosition int  // next byte position in input
	ch           byte // current byte under examination; 0 means EOF
	peeked       *lexed
}

type lexed struct {
	tok token.Token
	err error
}

func New(input []byte) *Lexer {
	l := &Lexer{input: string(input)}
	l.readChar()
	return l
}

// Position is the byte offset of the next unread byte.
func (l *Lexer) Position() int {
	if l.peeked != nil {
		return l.peeked.tok.Position
	}
	return l.position
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() (token.Token, error) {
	if l.peeked == nil {
		tok, err := l.NextToken()
		l.peeked = &lexed{tok: tok, err: err}
	}
	return l.peeked.tok, l.peeked.err
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 byte,
	t1 token.TokenType,
) token.Token {
	startPosition := l.position
	if l.peekChar() == ch1 {
		first := l.ch
		l.readChar()
		literal := string([]byte{first, l.ch})
		return token.Token{Type: t1, Literal: literal, Position: startPosition}
	}
	return newToken(t, l.ch, startPosition)
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case isWhitespace(l.ch):
			l.readChar()
		case l.ch == '#':
			l.skipToLineEnd()
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
}

// atEOF distinguishes end of input from a literal NUL byte.
func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// peekChar returns the next byte without advancing; returns 0 at EOF
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// readIdentifier returns the substring covering the identifier bytes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isAtomTail(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads a decimal literal that must fit in a signed 32-bit integer.
func (l *Lexer) readNumber() (string, error) {
	start := l.position
	var num int64
	for isDigit(l.ch) {
		num = num*10 + int64(l.ch-'0')
		if num > maxInt {
			return "", &Error{Kind: Overflow, Position: start}
		}
		l.readChar()
	}
	if isAtomHead(l.ch) {
		return "", &Error{Kind: BadDigit, Position: l.position, Byte: l.ch}
	}
	return l.input[start:l.position], nil
}

const maxInt = 1<<31 - 1

func isWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func isAtomHead(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isAtomTail(ch byte) bool {
	return isAtomHead(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func newToken(tokenType token.TokenType, ch byte, position int) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch), Position: position}
}

// IsIdentifier reports whether s lexes as a single identifier token.
func IsIdentifier(s string) bool {
	if s == "" || !isAtomHead(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isAtomTail(s[i]) {
			return false
		}
	}
	return !token.IsKeyword(s)
}
