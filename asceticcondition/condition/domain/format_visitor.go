package condition

import (
	"fmt"
	"strings"
)

// NewFormatVisitor renders a tree as condition text with the fewest
// parentheses that preserve its shape.
func NewFormatVisitor() *FormatVisitor {
	v := &FormatVisitor{
		precedenceMapping: make(map[string]int),
	}
	v.setPrecedence(30, "= NON", "!= NON")
	v.setPrecedence(20, "AND LEFT")
	v.setPrecedence(10, "OR LEFT")
	return v
}

type FormatVisitor struct {
	text              strings.Builder
	precedence        int
	precedenceMapping map[string]int
}

func (v FormatVisitor) getNodePrecedenceKey(n Operable) string {
	return fmt.Sprintf("%s %s", n.Operator(), n.Associativity())
}

func (v FormatVisitor) setPrecedence(precedence int, operators ...string) {
	for _, op := range operators {
		v.precedenceMapping[op] = precedence
	}
}

func (v *FormatVisitor) visit(precedenceKey string, callable func(inner int) error) error {
	outerPrecedence := v.precedence
	innerPrecedence, ok := v.precedenceMapping[precedenceKey]
	if !ok {
		innerPrecedence = outerPrecedence
	}
	v.precedence = innerPrecedence
	if innerPrecedence < outerPrecedence {
		v.text.WriteString("(")
	}
	err := callable(innerPrecedence)
	if err != nil {
		return err
	}
	if innerPrecedence < outerPrecedence {
		v.text.WriteString(")")
	}
	v.precedence = outerPrecedence
	return nil
}

func (v *FormatVisitor) VisitLiteral(n LiteralNode) error {
	v.text.WriteString(n.Value().String())
	return nil
}

func (v *FormatVisitor) VisitAttribute(n AttributeNode) error {
	v.text.WriteString(n.Path())
	return nil
}

func (v *FormatVisitor) VisitComparison(n ComparisonNode) error {
	return v.visit(v.getNodePrecedenceKey(n), func(int) error {
		err := n.Attribute().Accept(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(&v.text, " %s ", n.Operator())
		return n.Literal().Accept(v)
	})
}

func (v *FormatVisitor) VisitLogical(n LogicalNode) error {
	return v.visit(v.getNodePrecedenceKey(n), func(inner int) error {
		err := n.Left().Accept(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(&v.text, " %s ", n.Operator())
		// Logical operators fold to the left, so a right operand of the same
		// operator needs parentheses to keep its grouping.
		v.precedence = inner + 1
		err = n.Right().Accept(v)
		v.precedence = inner
		return err
	})
}

func (v *FormatVisitor) Result() string {
	return v.text.String()
}
