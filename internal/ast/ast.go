// Package ast defines the surface syntax tree the parser produces and the
// normalizer consumes.
package ast

import (
	"strings"

	"github.com/larkvm/lark/internal/token"
)

type Node interface {
	Tok() token.Token
	String() string
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// Program is the top-level statement list. Its value is the value of the
// last statement, like a block body.
type Program struct {
	Statements []Statement
}

func (p *Program) Tok() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].Tok()
	}
	return token.Token{}
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Statements {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ValStatement binds a name: `val a = 4` or `val make-adder (x) = { … }`.
// A function form carries its parameter list.
type ValStatement struct {
	Token  token.Token
	Name   *Identifier   // never nil; the anonymous lambda form parses to an ExpressionStatement
	Params []*Identifier // non-nil iff the binding declares a function
	Value  Expression
}

func (s *ValStatement) statementNode()   {}
func (s *ValStatement) Tok() token.Token { return s.Token }
func (s *ValStatement) String() string {
	var sb strings.Builder
	sb.WriteString("val ")
	if s.Name != nil {
		sb.WriteString(s.Name.Value)
	}
	if s.Params != nil {
		sb.WriteString(" (")
		for i, p := range s.Params {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(p.Value)
		}
		sb.WriteString(")")
	}
	sb.WriteString(" = ")
	sb.WriteString(s.Value.String())
	return sb.String()
}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (s *ExpressionStatement) statementNode()   {}
func (s *ExpressionStatement) Tok() token.Token { return s.Token }
func (s *ExpressionStatement) String() string   { return s.Expression.String() }

type NumberLiteral struct {
	Token token.Token
	Value int64
}

func (e *NumberLiteral) expressionNode()  {}
func (e *NumberLiteral) Tok() token.Token { return e.Token }
func (e *NumberLiteral) String() string   { return e.Token.Lexeme }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (e *StringLiteral) expressionNode()  {}
func (e *StringLiteral) Tok() token.Token { return e.Token }
func (e *StringLiteral) String() string   { return "\"" + e.Value + "\"" }

// SymbolLiteral is a bare `:name`. Applied to arguments it becomes a
// compound symbol (the parser wraps it in a CallExpression).
type SymbolLiteral struct {
	Token token.Token
	Name  string
}

func (e *SymbolLiteral) expressionNode()  {}
func (e *SymbolLiteral) Tok() token.Token { return e.Token }
func (e *SymbolLiteral) String() string   { return ":" + e.Name }

type Identifier struct {
	Token token.Token
	Value string
}

func (e *Identifier) expressionNode()  {}
func (e *Identifier) Tok() token.Token { return e.Token }
func (e *Identifier) String() string   { return e.Value }

// FieldAccess is a qualified lookup `mod.name`.
type FieldAccess struct {
	Token  token.Token
	Module Expression
	Field  string
}

func (e *FieldAccess) expressionNode()  {}
func (e *FieldAccess) Tok() token.Token { return e.Token }
func (e *FieldAccess) String() string   { return e.Module.String() + "." + e.Field }

// CallExpression is juxtaposition application: `f a b`, `:sym 2 3`.
type CallExpression struct {
	Token    token.Token
	Function Expression
	Args     []Expression
}

func (e *CallExpression) expressionNode()  {}
func (e *CallExpression) Tok() token.Token { return e.Token }
func (e *CallExpression) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(e.Function.String())
	for _, a := range e.Args {
		sb.WriteString(" ")
		sb.WriteString(a.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// BlockExpression is `{ … }`: a statement sequence whose value is the last
// statement's value.
type BlockExpression struct {
	Token      token.Token
	Statements []Statement
}

func (e *BlockExpression) expressionNode()  {}
func (e *BlockExpression) Tok() token.Token { return e.Token }
func (e *BlockExpression) String() string {
	var sb strings.Builder
	sb.WriteString("{ ")
	for _, s := range e.Statements {
		sb.WriteString(s.String())
		sb.WriteString("; ")
	}
	sb.WriteString("}")
	return sb.String()
}

// LambdaExpression is the anonymous function form `val (x y) = expr`.
// Named function bindings desugar to a ValStatement whose value is one of
// these.
type LambdaExpression struct {
	Token  token.Token
	Params []*Identifier
	Body   Expression
}

func (e *LambdaExpression) expressionNode()  {}
func (e *LambdaExpression) Tok() token.Token { return e.Token }
func (e *LambdaExpression) String() string {
	var sb strings.Builder
	sb.WriteString("val (")
	for i, p := range e.Params {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(p.Value)
	}
	sb.WriteString(") = ")
	sb.WriteString(e.Body.String())
	return sb.String()
}

// MatchExpression dispatches on the first branch whose pattern matches.
type MatchExpression struct {
	Token    token.Token
	Subject  Expression
	Branches []*MatchArm
}

type MatchArm struct {
	Pattern Pattern
	Body    Expression
}

func (e *MatchExpression) expressionNode()  {}
func (e *MatchExpression) Tok() token.Token { return e.Token }
func (e *MatchExpression) String() string {
	var sb strings.Builder
	sb.WriteString("match ")
	sb.WriteString(e.Subject.String())
	sb.WriteString(" { ")
	for _, b := range e.Branches {
		sb.WriteString(b.Pattern.String())
		sb.WriteString(" -> ")
		sb.WriteString(b.Body.String())
		sb.WriteString("; ")
	}
	sb.WriteString("}")
	return sb.String()
}

// ModuleExpression groups named bindings into a first-class module value.
type ModuleExpression struct {
	Token    token.Token
	Bindings []*ValStatement
}

func (e *ModuleExpression) expressionNode()  {}
func (e *ModuleExpression) Tok() token.Token { return e.Token }
func (e *ModuleExpression) String() string {
	var sb strings.Builder
	sb.WriteString("module { ")
	for _, b := range e.Bindings {
		sb.WriteString(b.String())
		sb.WriteString("; ")
	}
	sb.WriteString("}")
	return sb.String()
}

// Patterns

type Pattern interface {
	Node
	patternNode()
}

type NumberPattern struct {
	Token token.Token
	Value int64
}

func (p *NumberPattern) patternNode()     {}
func (p *NumberPattern) Tok() token.Token { return p.Token }
func (p *NumberPattern) String() string   { return p.Token.Lexeme }

// SymbolPattern matches a plain symbol (no args) or a compound symbol with
// the given sub-patterns.
type SymbolPattern struct {
	Token token.Token
	Name  string
	Args  []Pattern
}

func (p *SymbolPattern) patternNode()     {}
func (p *SymbolPattern) Tok() token.Token { return p.Token }
func (p *SymbolPattern) String() string {
	var sb strings.Builder
	sb.WriteString(":")
	sb.WriteString(p.Name)
	for _, a := range p.Args {
		sb.WriteString(" ")
		sb.WriteString(a.String())
	}
	return sb.String()
}

// VarPattern matches anything and binds it. The wildcard `_` parses to a
// WildcardPattern instead.
type VarPattern struct {
	Token token.Token
	Name  string
}

func (p *VarPattern) patternNode()     {}
func (p *VarPattern) Tok() token.Token { return p.Token }
func (p *VarPattern) String() string   { return p.Name }

type WildcardPattern struct {
	Token token.Token
}

func (p *WildcardPattern) patternNode()     {}
func (p *WildcardPattern) Tok() token.Token { return p.Token }
func (p *WildcardPattern) String() string   { return "_" }
