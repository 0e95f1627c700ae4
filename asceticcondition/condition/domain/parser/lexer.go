package parser

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	condition "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
)

type TokenType string

const (
	TokenLParen     TokenType = "LPAREN"
	TokenRParen     TokenType = "RPAREN"
	TokenDot        TokenType = "DOT"
	TokenEq         TokenType = "EQ"
	TokenNe         TokenType = "NE"
	TokenAnd        TokenType = "AND"
	TokenOr         TokenType = "OR"
	TokenTrue       TokenType = "TRUE"
	TokenFalse      TokenType = "FALSE"
	TokenNumber     TokenType = "NUMBER"
	TokenString     TokenType = "STRING"
	TokenIdentifier TokenType = "IDENTIFIER"
	TokenEOF        TokenType = "EOF"

	tokenOperator     TokenType = "OPERATOR"
	tokenUnterminated TokenType = "UNTERMINATED"
	tokenWhitespace   TokenType = "WHITESPACE"
)

type Token struct {
	Type     TokenType
	Value    string
	Position int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Value)
}

type tokenPattern struct {
	Type    TokenType
	Pattern *regexp.Regexp
}

var (
	tokenPatterns = []tokenPattern{
		{TokenLParen, regexp.MustCompile(`^\(`)},
		{TokenRParen, regexp.MustCompile(`^\)`)},
		{TokenDot, regexp.MustCompile(`^\.`)},
		// A whole run of operator characters, so "==" is one unknown operator.
		{tokenOperator, regexp.MustCompile(`^[=!<>&|~]+`)},
		{TokenString, regexp.MustCompile(`^"[^"]*"`)},
		{tokenUnterminated, regexp.MustCompile(`^"[^"]*$`)},
		// Greedy so that "1.2.3" and "12ab" are reported as one malformed literal.
		{TokenNumber, regexp.MustCompile(`^-?[0-9][0-9A-Za-z_.]*`)},
		{TokenIdentifier, regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)},
		{tokenWhitespace, regexp.MustCompile(`^\s+`)},
	}
	numberLiteral = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	keywords      = map[string]TokenType{
		"AND":   TokenAnd,
		"OR":    TokenOr,
		"true":  TokenTrue,
		"false": TokenFalse,
	}
	comparisonOperators = map[string]TokenType{
		"=":  TokenEq,
		"!=": TokenNe,
	}
)

// Lexer splits condition text into tokens. The token list always ends
// with an EOF token positioned at the end of the text.
type Lexer struct {
	text     string
	position int
	tokens   []Token
}

func NewLexer(text string) *Lexer {
	return &Lexer{
		text:     text,
		position: 0,
		tokens:   nil,
	}
}

func (l *Lexer) Tokenize() ([]Token, error) {
	for l.position < len(l.text) {
		matched := false
		remaining := l.text[l.position:]

		for _, pattern := range tokenPatterns {
			loc := pattern.Pattern.FindStringIndex(remaining)
			if loc == nil {
				continue
			}
			text := remaining[:loc[1]]
			token, err := l.classify(pattern.Type, text)
			if err != nil {
				return nil, err
			}
			if token.Type != tokenWhitespace {
				l.tokens = append(l.tokens, token)
			}
			l.position += loc[1]
			matched = true
			break
		}

		if !matched {
			r, _ := utf8.DecodeRuneInString(remaining)
			return nil, condition.NewParseError(
				l.position, string(r), condition.ErrUnexpectedToken,
				"unexpected character",
			)
		}
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Position: len(l.text)})
	return l.tokens, nil
}

func (l *Lexer) classify(tokenType TokenType, text string) (Token, error) {
	token := Token{Type: tokenType, Value: text, Position: l.position}
	switch tokenType {
	case tokenOperator:
		t, ok := comparisonOperators[text]
		if !ok {
			return Token{}, condition.NewParseError(l.position, text, condition.ErrUnknownOperator, `expected "=" or "!="`)
		}
		token.Type = t
	case tokenUnterminated:
		return Token{}, condition.NewParseError(l.position, text, condition.ErrMalformedLiteral, "unterminated string")
	case TokenNumber:
		if !numberLiteral.MatchString(text) {
			return Token{}, condition.NewParseError(l.position, text, condition.ErrMalformedLiteral, "invalid number")
		}
	case TokenIdentifier:
		if t, ok := keywords[text]; ok {
			token.Type = t
		}
	}
	return token, nil
}
