// Package parser compiles condition text into an immutable condition.Tree.
//
// Grammar, keywords and identifiers are case-sensitive:
//
//	Expr       := OrExpr
//	OrExpr     := AndExpr ( "OR" AndExpr )*
//	AndExpr    := Atom ( "AND" Atom )*
//	Atom       := "(" Expr ")" | Comparison
//	Comparison := AttrPath ( "=" | "!=" ) Literal
//	AttrPath   := Identifier ( "." Identifier )?
//	Literal    := "double quoted" | -12.5 | true | false
//
// Parse accepts only Entity.attribute paths whose entity is declared.
// ParseImplicit accepts only bare attribute names of one implicit entity.
package parser

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	condition "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/operators"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

var defaultParser = New()

// Parse compiles text in qualified mode against the declared entity names.
func Parse(text string, entities ...string) (*condition.Tree, error) {
	return defaultParser.Parse(text, entities...)
}

// ParseImplicit compiles text whose attributes all belong to entity.
func ParseImplicit(text string, entity string) (*condition.Tree, error) {
	return defaultParser.ParseImplicit(text, entity)
}

type Option func(*Parser)

// WithSchema makes references to attributes entity does not declare a parse
// error.
func WithSchema(entity string, schema condition.Schema) Option {
	return func(p *Parser) {
		p.schemas[entity] = schema
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// Parser holds parse options. It keeps no state between calls and can be
// shared.
type Parser struct {
	schemas map[string]condition.Schema
	logger  *zap.Logger
}

func New(opts ...Option) *Parser {
	p := &Parser{
		schemas: make(map[string]condition.Schema),
		logger:  zap.NewNop(),
	}
	for i := range opts {
		opts[i](p)
	}
	return p
}

func (p *Parser) Parse(text string, entities ...string) (*condition.Tree, error) {
	if len(entities) == 0 {
		return nil, condition.NewParseError(0, "", condition.ErrInvalidDeclaration, "at least one entity name is required")
	}
	return p.parse(text, condition.ModeQualified, entities)
}

func (p *Parser) ParseImplicit(text string, entity string) (*condition.Tree, error) {
	return p.parse(text, condition.ModeImplicit, []string{entity})
}

func (p *Parser) parse(text string, mode condition.Mode, entities []string) (*condition.Tree, error) {
	tree, err := p.compile(text, mode, entities)
	if err != nil {
		p.logger.Debug("condition rejected",
			zap.String("condition", text),
			zap.Stringer("mode", mode),
			zap.Error(err),
		)
		return nil, err
	}
	p.logger.Debug("condition parsed",
		zap.String("condition", text),
		zap.Stringer("mode", mode),
		zap.Strings("references", tree.References()),
	)
	return tree, nil
}

func (p *Parser) compile(text string, mode condition.Mode, entities []string) (*condition.Tree, error) {
	if err := condition.ValidateDeclarations(entities); err != nil {
		return nil, err
	}
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, err
	}
	s := &state{
		tokens:   tokens,
		mode:     mode,
		entities: entities,
		schemas:  p.schemas,
	}
	root, err := s.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := s.current(); tok.Type != TokenEOF {
		if tok.Type == TokenRParen {
			return nil, condition.NewParseError(tok.Position, tok.Value, condition.ErrUnbalancedParens, "no matching opening parenthesis")
		}
		return nil, condition.NewParseError(tok.Position, tok.Value, condition.ErrUnexpectedToken, `expected "AND", "OR" or end of condition`)
	}
	if mode == condition.ModeImplicit {
		return condition.NewImplicitTree(root, entities[0])
	}
	return condition.NewTree(root, entities...)
}

type state struct {
	tokens   []Token
	index    int
	mode     condition.Mode
	entities []string
	schemas  map[string]condition.Schema
}

func (s *state) current() Token {
	return s.tokens[s.index]
}

func (s *state) advance() Token {
	tok := s.tokens[s.index]
	if tok.Type != TokenEOF {
		s.index++
	}
	return tok
}

func (s *state) unexpected(expected string) error {
	tok := s.current()
	if tok.Type == TokenEOF {
		return condition.NewParseError(tok.Position, "", condition.ErrUnexpectedToken, "unexpected end of condition, expected "+expected)
	}
	return condition.NewParseError(tok.Position, tok.Value, condition.ErrUnexpectedToken, "expected "+expected)
}

func (s *state) parseOr() (condition.Node, error) {
	left, err := s.parseAnd()
	if err != nil {
		return nil, err
	}
	for s.current().Type == TokenOr {
		op := s.advance()
		right, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		left = condition.NewLogicalNode(left, operators.OperatorOr, right, op.Position)
	}
	return left, nil
}

func (s *state) parseAnd() (condition.Node, error) {
	left, err := s.parseAtom()
	if err != nil {
		return nil, err
	}
	for s.current().Type == TokenAnd {
		op := s.advance()
		right, err := s.parseAtom()
		if err != nil {
			return nil, err
		}
		left = condition.NewLogicalNode(left, operators.OperatorAnd, right, op.Position)
	}
	return left, nil
}

func (s *state) parseAtom() (condition.Node, error) {
	switch tok := s.current(); tok.Type {
	case TokenLParen:
	case TokenRParen:
		return nil, condition.NewParseError(tok.Position, tok.Value, condition.ErrUnbalancedParens, "no matching opening parenthesis")
	default:
		return s.parseComparison()
	}
	open := s.advance()
	if s.current().Type == TokenEOF {
		return nil, condition.NewParseError(open.Position, open.Value, condition.ErrUnbalancedParens, "missing closing parenthesis")
	}
	inner, err := s.parseOr()
	if err != nil {
		return nil, err
	}
	switch s.current().Type {
	case TokenRParen:
		s.advance()
		return inner, nil
	case TokenEOF:
		return nil, condition.NewParseError(open.Position, open.Value, condition.ErrUnbalancedParens, "missing closing parenthesis")
	default:
		return nil, s.unexpected(`")", "AND" or "OR"`)
	}
}

func (s *state) parseComparison() (condition.Node, error) {
	attribute, err := s.parseAttributePath()
	if err != nil {
		return nil, err
	}
	var op operators.Operator
	switch s.current().Type {
	case TokenEq:
		op = operators.OperatorEq
	case TokenNe:
		op = operators.OperatorNe
	default:
		return nil, s.unexpected(`"=" or "!="`)
	}
	opToken := s.advance()
	literal, err := s.parseLiteral()
	if err != nil {
		return nil, err
	}
	return condition.NewComparisonNode(attribute, op, literal, opToken.Position), nil
}

func (s *state) parseAttributePath() (condition.AttributeNode, error) {
	if s.current().Type != TokenIdentifier {
		return condition.AttributeNode{}, s.unexpected("an attribute name")
	}
	first := s.advance()
	if s.current().Type != TokenDot {
		return s.bareAttribute(first)
	}
	s.advance()
	if s.current().Type != TokenIdentifier {
		return condition.AttributeNode{}, s.unexpected(fmt.Sprintf("an attribute name after %q", first.Value+"."))
	}
	name := s.advance()
	return s.qualifiedAttribute(first, name)
}

func (s *state) bareAttribute(name Token) (condition.AttributeNode, error) {
	if s.mode != condition.ModeImplicit {
		return condition.AttributeNode{}, condition.NewParseError(
			name.Position, name.Value, condition.ErrQualification,
			fmt.Sprintf("qualify the attribute with one of %s", strings.Join(s.entities, ", ")),
		)
	}
	if err := s.checkSchema(s.entities[0], name); err != nil {
		return condition.AttributeNode{}, err
	}
	return condition.NewAttributeNode("", name.Value, name.Position), nil
}

func (s *state) qualifiedAttribute(entity, name Token) (condition.AttributeNode, error) {
	if s.mode == condition.ModeImplicit {
		return condition.AttributeNode{}, condition.NewParseError(
			entity.Position, entity.Value+"."+name.Value, condition.ErrQualification,
			"an implicit condition takes bare attribute names",
		)
	}
	if !slices.Contains(s.entities, entity.Value) {
		return condition.AttributeNode{}, condition.NewParseError(
			entity.Position, entity.Value, condition.ErrUnknownEntity,
			fmt.Sprintf("declared entities are %s", strings.Join(s.entities, ", ")),
		)
	}
	if err := s.checkSchema(entity.Value, name); err != nil {
		return condition.AttributeNode{}, err
	}
	return condition.NewAttributeNode(entity.Value, name.Value, entity.Position), nil
}

func (s *state) checkSchema(entity string, name Token) error {
	schema, found := s.schemas[entity]
	if !found || schema.HasAttribute(name.Value) {
		return nil
	}
	return condition.NewParseError(
		name.Position, name.Value, condition.ErrUnknownAttribute,
		fmt.Sprintf("%s declares no attribute %q", entity, name.Value),
	)
}

func (s *state) parseLiteral() (condition.LiteralNode, error) {
	tok := s.current()
	var v value.Value
	switch tok.Type {
	case TokenString:
		v = value.String(tok.Value[1 : len(tok.Value)-1])
	case TokenNumber:
		n, err := value.ParseNumber(tok.Value)
		if err != nil {
			return condition.LiteralNode{}, condition.NewParseError(tok.Position, tok.Value, condition.ErrMalformedLiteral, err.Error())
		}
		v = n
	case TokenTrue:
		v = value.Boolean(true)
	case TokenFalse:
		v = value.Boolean(false)
	default:
		return condition.LiteralNode{}, s.unexpected("a string, number or boolean literal")
	}
	s.advance()
	return condition.NewLiteralNode(v, tok.Position), nil
}
