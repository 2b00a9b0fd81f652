package lexer

import (
	"oris/internal/token"
)

// NextToken returns the next token, or an *Error when the input cannot be
// tokenized. At end of input it keeps returning an EOF token.
func (l *Lexer) NextToken() (token.Token, error) {
	if l.peeked != nil {
		p := l.peeked
		l.peeked = nil
		return p.tok, p.err
	}

	var tok token.Token

	l.skipWhitespace()

	startPosition := l.position

	if l.atEOF() {
		return token.Token{Type: token.EOF, Position: startPosition}, nil
	}

	switch l.ch {
	case '=':
		tok = l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
	case '!':
		tok = l.handleCompoundToken(token.BANG, '=', token.NOT_EQ)
	case '<':
		tok = l.handleCompoundToken(token.LT, '=', token.LT_EQ)
	case '>':
		tok = l.handleCompoundToken(token.GT, '=', token.GT_EQ)
	case '+':
		tok = newToken(token.PLUS, l.ch, startPosition)
	case '-':
		tok = newToken(token.MINUS, l.ch, startPosition)
	case '*':
		tok = newToken(token.ASTERISK, l.ch, startPosition)
	case '/':
		tok = newToken(token.SLASH, l.ch, startPosition)
	case ',':
		tok = newToken(token.COMMA, l.ch, startPosition)
	case ':':
		tok = newToken(token.COLON, l.ch, startPosition)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, startPosition)
	case '(':
		tok = newToken(token.LPAREN, l.ch, startPosition)
	case ')':
		tok = newToken(token.RPAREN, l.ch, startPosition)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, startPosition)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, startPosition)
	case '{':
		tok = newToken(token.LBRACE, l.ch, startPosition)
	case '}':
		tok = newToken(token.RBRACE, l.ch, startPosition)
	case '"':
		return l.readString()
	default:
		if isAtomHead(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Position = startPosition
			return tok, nil
		} else if isDigit(l.ch) {
			literal, err := l.readNumber()
			if err != nil {
				return token.Token{Type: token.ILLEGAL, Position: startPosition}, err
			}
			return token.Token{Type: token.INT, Literal: literal, Position: startPosition}, nil
		}
		bad := l.ch
		l.readChar()
		return newToken(token.ILLEGAL, bad, startPosition), &Error{Kind: Unexpected, Position: startPosition, Byte: bad}
	}

	l.readChar()
	return tok, nil
}

// Tokens drains the lexer, stopping at EOF or at the first error.
func (l *Lexer) Tokens() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		if tok.Type == token.EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
