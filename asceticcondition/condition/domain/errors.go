package condition

import (
	"errors"
	"fmt"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/operators"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

// Reasons a condition fails to compile. A *ParseError unwraps to one of them.
var (
	ErrUnbalancedParens   = errors.New("unbalanced parentheses")
	ErrUnknownOperator    = errors.New("unknown operator")
	ErrMalformedLiteral   = errors.New("malformed literal")
	ErrUnknownEntity      = errors.New("unknown entity")
	ErrUnknownAttribute   = errors.New("unknown attribute")
	ErrQualification      = errors.New("attribute qualification does not match the parse mode")
	ErrUnexpectedToken    = errors.New("unexpected token")
	ErrInvalidDeclaration = errors.New("invalid entity declaration")
)

var ErrInvalidContext = errors.New("invalid context")

type ParseError struct {
	Position int
	Token    string
	Err      error
	Detail   string
}

func NewParseError(position int, token string, err error, detail string) *ParseError {
	return &ParseError{
		Position: position,
		Token:    token,
		Err:      err,
		Detail:   detail,
	}
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error at position %d", e.Position)
	if e.Token != "" {
		msg += fmt.Sprintf(" near %q", e.Token)
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// BindingError reports an entity missing from the evaluation Context, or an
// attribute a structured record does not declare.
type BindingError struct {
	Entity    string
	Attribute string
	Reason    string
	Err       error
}

func (e *BindingError) Error() string {
	var msg string
	if e.Attribute == "" {
		msg = fmt.Sprintf("entity %q is not bound in the context", e.Entity)
	} else {
		msg = fmt.Sprintf("attribute %q is not declared by entity %q", e.Attribute, e.Entity)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *BindingError) Unwrap() error {
	return e.Err
}

type TypeError struct {
	Attribute string
	Operator  operators.Operator
	Left      value.Kind
	Right     value.Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf(
		"cannot compare %s attribute %s with %s literal using \"%s\"",
		e.Left, e.Attribute, e.Right, e.Operator,
	)
}

func (e *TypeError) Unwrap() error {
	return value.ErrIncomparableKinds
}
