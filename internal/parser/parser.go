package parser

import (
	"iter"
	"strconv"

	"oris/internal/ast"
	"oris/internal/lexer"
	"oris/internal/token"
)

const (
	_       int = iota
	LOWEST      // statement level
	COMPARE     // == != < <= > >=
	SUM         // +
	PRODUCT     // *
	PREFIX      // -X or !X
	INDEX       // seq[index]
	CALL        // myFunction(X)
)

var precedences = map[token.TokenType]int{
	token.EQ:       COMPARE,
	token.NOT_EQ:   COMPARE,
	token.LT:       COMPARE,
	token.LT_EQ:    COMPARE,
	token.GT:       COMPARE,
	token.GT_EQ:    COMPARE,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.LBRACKET: INDEX,
	token.LPAREN:   CALL,
}

type (
	prefixParseFn func() (ast.Expression, error)
	infixParseFn  func(ast.Expression) (ast.Expression, error)
)

// Parser reads tokens on demand: it holds the current token and peeks the
// next one through the lexer, so a lexical error further down the input is
// only reported once parsing reaches it.
type Parser struct {
	l *lexer.Lexer

	curToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.IF, p.parseIfExpression)
	p.registerPrefix(token.FUNCTION, p.parseFunctionLiteral)
	p.registerPrefix(token.LBRACKET, p.parseSeqLiteral)
	p.registerPrefix(token.LBRACE, p.parseMapLiteral)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.PLUS, p.parseInfixExpression)
	p.registerInfix(token.MINUS, p.parseInfixExpression)
	p.registerInfix(token.SLASH, p.parseInfixExpression)
	p.registerInfix(token.ASTERISK, p.parseInfixExpression)
	p.registerInfix(token.EQ, p.parseInfixExpression)
	p.registerInfix(token.NOT_EQ, p.parseInfixExpression)
	p.registerInfix(token.LT, p.parseInfixExpression)
	p.registerInfix(token.LT_EQ, p.parseInfixExpression)
	p.registerInfix(token.GT, p.parseInfixExpression)
	p.registerInfix(token.GT_EQ, p.parseInfixExpression)

	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)

	return p
}

// Nodes yields the top-level statements one at a time. Iteration stops after
// the first error, which is yielded with a nil node.
func (p *Parser) Nodes() iter.Seq2[ast.Node, error] {
	return func(yield func(ast.Node, error) bool) {
		for {
			if err := p.nextToken(); err != nil {
				yield(nil, err)
				return
			}
			if p.curTokenIs(token.EOF) {
				return
			}

			stmt, err := p.parseStatement()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(stmt, nil) {
				return
			}
		}
	}
}

// ParseProgram collects every top-level statement.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for node, err := range p.Nodes() {
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, node.(ast.Statement))
	}

	return program, nil
}

func (p *Parser) nextToken() error {
	tok, err := p.l.NextToken()
	p.curToken = tok
	return err
}

func (p *Parser) peekToken() (token.Token, error) {
	return p.l.PeekToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	tok, err := p.peekToken()
	return err == nil && tok.Type == t
}

// expectPeek advances onto the next token if it has type t.
func (p *Parser) expectPeek(t token.TokenType) error {
	if err := p.nextToken(); err != nil {
		return err
	}
	if !p.curTokenIs(t) {
		return p.unexpected("`" + string(t) + "`")
	}
	return nil
}

func (p *Parser) unexpected(expected string) error {
	if p.curTokenIs(token.EOF) {
		return &Error{Kind: Missing, Expected: expected, Position: p.curToken.Position}
	}
	return &Error{Kind: Mismatch, Expected: expected, Found: p.curToken, Position: p.curToken.Position}
}

func (p *Parser) skipOptionalSemicolon() error {
	if p.peekTokenIs(token.SEMICOLON) {
		return p.nextToken()
	}
	return nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case token.LET:
		return p.parseLetStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() (*ast.LetStatement, error) {
	stmt := &ast.LetStatement{Token: p.curToken}

	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if !p.curTokenIs(token.IDENT) {
		return nil, p.unexpected("identifier")
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if err := p.expectPeek(token.ASSIGN); err != nil {
		return nil, err
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Value = value

	return stmt, p.skipOptionalSemicolon()
}

// parseReturnStatement accepts `return;`, `return <expr>` and `return <expr>;`.
// A `return` directly followed by `}` also returns unit.
func (p *Parser) parseReturnStatement() (*ast.ReturnStatement, error) {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	if p.peekTokenIs(token.SEMICOLON) {
		return stmt, p.nextToken()
	}
	if p.peekTokenIs(token.RBRACE) {
		return stmt, nil
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.ReturnValue = value

	return stmt, p.skipOptionalSemicolon()
}

func (p *Parser) parseExpressionStatement() (*ast.ExpressionStatement, error) {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	expression, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Expression = expression

	return stmt, p.skipOptionalSemicolon()
}

func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		return nil, p.unexpected("expression")
	}
	leftExp, err := prefix()
	if err != nil {
		return nil, err
	}

	for {
		peek, err := p.peekToken()
		if err != nil {
			return nil, p.nextToken()
		}
		if precedence >= p.precedenceOf(peek) {
			return leftExp, nil
		}
		infix := p.infixParseFns[peek.Type]
		if infix == nil {
			return leftExp, nil
		}

		if err := p.nextToken(); err != nil {
			return nil, err
		}

		leftExp, err = infix(leftExp)
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) precedenceOf(tok token.Token) int {
	if prec, ok := precedences[tok.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	return p.precedenceOf(p.curToken)
}

func (p *Parser) parseIdentifier() (ast.Expression, error) {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}, nil
}

func (p *Parser) parseIntegerLiteral() (ast.Expression, error) {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	// the lexer has already rejected literals outside the int32 range
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 32)
	if err != nil {
		return nil, &lexer.Error{Kind: lexer.Overflow, Position: p.curToken.Position}
	}

	lit.Value = int32(value)
	return lit, nil
}

func (p *Parser) parseStringLiteral() (ast.Expression, error) {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}, nil
}

func (p *Parser) parseBoolean() (ast.Expression, error) {
	return &ast.Boolean{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}, nil
}

func (p *Parser) parsePrefixExpression() (ast.Expression, error) {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}

	right, err := p.parseExpression(PREFIX)
	if err != nil {
		return nil, err
	}
	expression.Right = right

	return expression, nil
}

// parseInfixExpression is left associative: the right operand is parsed at
// the operator's own precedence.
func (p *Parser) parseInfixExpression(left ast.Expression) (ast.Expression, error) {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	expression.Right = right

	return expression, nil
}

func (p *Parser) parseGroupedExpression() (ast.Expression, error) {
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	exp, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}

	if err := p.expectPeek(token.RPAREN); err != nil {
		return nil, err
	}

	return exp, nil
}

// parseIfExpression parses `if <cond> { ... } else { ... }`. The condition
// needs no parentheses and `else if` chains nest in the else block.
func (p *Parser) parseIfExpression() (ast.Expression, error) {
	expression := &ast.IfExpression{Token: p.curToken}

	if err := p.nextToken(); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expression.Condition = condition

	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}
	if expression.ThenBranch, err = p.parseBlockStatement(); err != nil {
		return nil, err
	}

	if !p.peekTokenIs(token.ELSE) {
		return expression, nil
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	if p.peekTokenIs(token.IF) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		ifToken := p.curToken
		elseIf, err := p.parseIfExpression()
		if err != nil {
			return nil, err
		}
		expression.ElseBranch = &ast.BlockStatement{
			Token: ifToken,
			Statements: []ast.Statement{
				&ast.ExpressionStatement{Token: ifToken, Expression: elseIf},
			},
		}
		return expression, nil
	}

	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}
	if expression.ElseBranch, err = p.parseBlockStatement(); err != nil {
		return nil, err
	}

	return expression, nil
}

// parseBlockStatement starts on the `{` and ends on the matching `}`.
func (p *Parser) parseBlockStatement() (*ast.BlockStatement, error) {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	for {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if p.curTokenIs(token.RBRACE) {
			return block, nil
		}
		if p.curTokenIs(token.EOF) {
			return nil, p.unexpected("`}`")
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

func (p *Parser) parseFunctionLiteral() (ast.Expression, error) {
	lit := &ast.FunctionLiteral{Token: p.curToken}

	if err := p.expectPeek(token.LPAREN); err != nil {
		return nil, err
	}

	parameters, err := p.parseFunctionParameters()
	if err != nil {
		return nil, err
	}
	lit.Parameters = parameters

	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}

	if lit.Body, err = p.parseBlockStatement(); err != nil {
		return nil, err
	}

	return lit, nil
}

func (p *Parser) parseFunctionParameters() ([]*ast.Identifier, error) {
	identifiers := []*ast.Identifier{}

	err := p.parseSeparated(token.RPAREN, func() error {
		if !p.curTokenIs(token.IDENT) {
			return p.unexpected("identifier")
		}
		identifiers = append(identifiers, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
		return nil
	})

	return identifiers, err
}

func (p *Parser) parseCallExpression(function ast.Expression) (ast.Expression, error) {
	exp := &ast.CallExpression{Token: p.curToken, Function: function}

	arguments, err := p.parseExpressionList(token.RPAREN)
	if err != nil {
		return nil, err
	}
	exp.Arguments = arguments

	return exp, nil
}

func (p *Parser) parseExpressionList(end token.TokenType) ([]ast.Expression, error) {
	list := []ast.Expression{}

	err := p.parseSeparated(end, func() error {
		exp, err := p.parseExpression(LOWEST)
		if err != nil {
			return err
		}
		list = append(list, exp)
		return nil
	})

	return list, err
}

// parseSeparated parses comma separated elements up to end, starting on the
// opening delimiter. parseElement is called positioned on each element's first
// token and must leave the parser on its last token.
func (p *Parser) parseSeparated(end token.TokenType, parseElement func() error) error {
	if p.peekTokenIs(end) {
		return p.nextToken()
	}

	for {
		if err := p.nextToken(); err != nil {
			return err
		}
		if err := parseElement(); err != nil {
			return err
		}

		if err := p.nextToken(); err != nil {
			return err
		}
		switch {
		case p.curTokenIs(token.COMMA):
		case p.curTokenIs(end):
			return nil
		default:
			return p.unexpected("`" + string(end) + "`")
		}
	}
}

func (p *Parser) parseSeqLiteral() (ast.Expression, error) {
	seq := &ast.SeqLiteral{Token: p.curToken}

	elements, err := p.parseExpressionList(token.RBRACKET)
	if err != nil {
		return nil, err
	}
	seq.Elements = elements

	return seq, nil
}

func (p *Parser) parseIndexExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.IndexExpression{
		Token: p.curToken, // The '[' token
		Left:  left,
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}

	index, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Index = index

	if err := p.expectPeek(token.RBRACKET); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseMapLiteral parses `{ <key>: <value>, ... }`; keys are ordinary
// expressions evaluated at run time.
func (p *Parser) parseMapLiteral() (ast.Expression, error) {
	m := &ast.MapLiteral{Token: p.curToken}
	m.Entries = []ast.MapEntry{}

	err := p.parseSeparated(token.RBRACE, func() error {
		key, err := p.parseExpression(LOWEST)
		if err != nil {
			return err
		}

		if err := p.expectPeek(token.COLON); err != nil {
			return err
		}

		if err := p.nextToken(); err != nil {
			return err
		}
		value, err := p.parseExpression(LOWEST)
		if err != nil {
			return err
		}

		m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}
