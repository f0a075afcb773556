// Package parser builds the AST from the token stream. Application is
// juxtaposition and newlines terminate statements, so the grammar is LL(1)
// over a one-token cursor.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/larkvm/lark/internal/ast"
	"github.com/larkvm/lark/internal/lexer"
	"github.com/larkvm/lark/internal/token"
)

// ErrIncomplete marks a parse that failed only because the input ended
// early. The REPL uses it to keep reading lines.
var ErrIncomplete = errors.New("incomplete input")

// IsIncomplete reports whether err is an unexpected-end-of-input error.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncomplete)
}

type Parser struct {
	lex *lexer.Lexer
	cur token.Token
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{lex: l}
	p.next()
	return p
}

// Parse is a convenience over the lexer + parser pair.
func Parse(source string) (*ast.Program, error) {
	return New(lexer.New(source)).ParseProgram()
}

func (p *Parser) next() {
	p.cur = p.lex.NextToken()
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("parse error at %d:%d: "+format,
		append([]interface{}{p.cur.Line, p.cur.Column}, args...)...)
}

func (p *Parser) unexpected(want string) error {
	if p.cur.Type == token.EOF {
		return fmt.Errorf("%w: expected %s", ErrIncomplete, want)
	}
	return p.errorf("expected %s, got %s %q", want, p.cur.Type, p.cur.Lexeme)
}

func (p *Parser) expect(t token.TokenType) (token.Token, error) {
	if p.cur.Type != t {
		return p.cur, p.unexpected(string(t))
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func (p *Parser) skipNewlines() {
	for p.cur.Type == token.NEWLINE {
		p.next()
	}
}

// ParseProgram parses the whole source into a statement list.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()
	for p.cur.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		if p.cur.Type != token.EOF && p.cur.Type != token.RBRACE {
			if p.cur.Type != token.NEWLINE {
				return nil, p.unexpected("end of statement")
			}
			p.skipNewlines()
		}
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	if p.cur.Type == token.VAL {
		return p.parseValStatement()
	}
	tok := p.cur
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}, nil
}

// parseValStatement handles the three val forms:
//
//	val name = expr
//	val name (params) = expr        -- function binding
//	val (params) = expr             -- anonymous lambda expression
func (p *Parser) parseValStatement() (ast.Statement, error) {
	valTok := p.cur
	p.next()

	if p.cur.Type == token.LPAREN {
		lambda, err := p.parseLambdaTail(valTok)
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Token: valTok, Expression: lambda}, nil
	}

	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	name := &ast.Identifier{Token: nameTok, Value: nameTok.Lexeme}

	if p.cur.Type == token.LPAREN {
		lambda, err := p.parseLambdaTail(valTok)
		if err != nil {
			return nil, err
		}
		return &ast.ValStatement{Token: valTok, Name: name, Params: lambda.Params, Value: lambda}, nil
	}

	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ValStatement{Token: valTok, Name: name, Value: value}, nil
}

// parseLambdaTail parses `(params) = expr` after a val head.
func (p *Parser) parseLambdaTail(valTok token.Token) (*ast.LambdaExpression, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []*ast.Identifier
	for p.cur.Type != token.RPAREN {
		tok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.Identifier{Token: tok, Value: tok.Lexeme})
	}
	p.next() // RPAREN
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.LambdaExpression{Token: valTok, Params: params, Body: body}, nil
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	switch p.cur.Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.MATCH:
		return p.parseMatch()
	case token.MODULE:
		return p.parseModule()
	default:
		return p.parseApplication()
	}
}

func startsPrimary(t token.TokenType) bool {
	switch t {
	case token.NUMBER, token.STRING, token.IDENT, token.SYMBOL, token.OPERATOR, token.LPAREN:
		return true
	}
	return false
}

// parseApplication parses juxtaposed primaries. A single primary stands
// alone; more than one forms a call.
func (p *Parser) parseApplication() (ast.Expression, error) {
	tok := p.cur
	head, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var args []ast.Expression
	for startsPrimary(p.cur.Type) {
		arg, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		return head, nil
	}
	return &ast.CallExpression{Token: tok, Function: head, Args: args}, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch p.cur.Type {
	case token.NUMBER:
		tok := p.cur
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf("bad number literal %q", tok.Lexeme)
		}
		p.next()
		return &ast.NumberLiteral{Token: tok, Value: n}, nil

	case token.STRING:
		tok := p.cur
		p.next()
		return &ast.StringLiteral{Token: tok, Value: tok.Lexeme}, nil

	case token.SYMBOL:
		tok := p.cur
		p.next()
		return &ast.SymbolLiteral{Token: tok, Name: tok.Lexeme}, nil

	case token.IDENT:
		tok := p.cur
		p.next()
		ident := &ast.Identifier{Token: tok, Value: tok.Lexeme}
		if p.cur.Type == token.DOT {
			p.next()
			field, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			return &ast.FieldAccess{Token: tok, Module: ident, Field: field.Lexeme}, nil
		}
		return ident, nil

	case token.OPERATOR:
		tok := p.cur
		p.next()
		return &ast.Identifier{Token: tok, Value: tok.Lexeme}, nil

	case token.LPAREN:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.unexpected("an expression")
}

func (p *Parser) parseBlock() (ast.Expression, error) {
	braceTok := p.cur
	p.next()
	block := &ast.BlockExpression{Token: braceTok}
	p.skipNewlines()
	for p.cur.Type != token.RBRACE {
		if p.cur.Type == token.EOF {
			return nil, p.unexpected("}")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
		p.skipNewlines()
	}
	p.next() // RBRACE
	return block, nil
}

func (p *Parser) parseMatch() (ast.Expression, error) {
	matchTok := p.cur
	p.next()
	subject, err := p.parseApplication()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	expr := &ast.MatchExpression{Token: matchTok, Subject: subject}
	p.skipNewlines()
	for p.cur.Type != token.RBRACE {
		if p.cur.Type == token.EOF {
			return nil, p.unexpected("}")
		}
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ARROW); err != nil {
			return nil, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		expr.Branches = append(expr.Branches, &ast.MatchArm{Pattern: pat, Body: body})
		p.skipNewlines()
	}
	p.next() // RBRACE
	if len(expr.Branches) == 0 {
		return nil, p.errorf("match needs at least one branch")
	}
	return expr, nil
}

// parsePattern parses a branch pattern. A symbol head takes sub-patterns
// by juxtaposition; nested compound patterns need parentheses.
func (p *Parser) parsePattern() (ast.Pattern, error) {
	pat, err := p.parsePatternPrimary()
	if err != nil {
		return nil, err
	}
	sym, ok := pat.(*ast.SymbolPattern)
	if !ok {
		return pat, nil
	}
	for p.cur.Type == token.NUMBER || p.cur.Type == token.IDENT ||
		p.cur.Type == token.SYMBOL || p.cur.Type == token.LPAREN {
		arg, err := p.parsePatternPrimary()
		if err != nil {
			return nil, err
		}
		sym.Args = append(sym.Args, arg)
	}
	return sym, nil
}

func (p *Parser) parsePatternPrimary() (ast.Pattern, error) {
	switch p.cur.Type {
	case token.NUMBER:
		tok := p.cur
		n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf("bad number literal %q", tok.Lexeme)
		}
		p.next()
		return &ast.NumberPattern{Token: tok, Value: n}, nil

	case token.IDENT:
		tok := p.cur
		p.next()
		if tok.Lexeme == "_" {
			return &ast.WildcardPattern{Token: tok}, nil
		}
		return &ast.VarPattern{Token: tok, Name: tok.Lexeme}, nil

	case token.SYMBOL:
		tok := p.cur
		p.next()
		return &ast.SymbolPattern{Token: tok, Name: tok.Lexeme}, nil

	case token.LPAREN:
		p.next()
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return pat, nil
	}
	return nil, p.unexpected("a pattern")
}

func (p *Parser) parseModule() (ast.Expression, error) {
	modTok := p.cur
	p.next()
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	expr := &ast.ModuleExpression{Token: modTok}
	p.skipNewlines()
	for p.cur.Type != token.RBRACE {
		if p.cur.Type == token.EOF {
			return nil, p.unexpected("}")
		}
		if p.cur.Type != token.VAL {
			return nil, p.unexpected("a val binding")
		}
		stmt, err := p.parseValStatement()
		if err != nil {
			return nil, err
		}
		val, ok := stmt.(*ast.ValStatement)
		if !ok || val.Name == nil {
			return nil, p.errorf("module entries must be named val bindings")
		}
		expr.Bindings = append(expr.Bindings, val)
		p.skipNewlines()
	}
	p.next() // RBRACE
	return expr, nil
}
