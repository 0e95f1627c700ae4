package condition

import (
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/operators"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

type Associativity string

const (
	LeftAssociative Associativity = "LEFT"
	NonAssociative  Associativity = "NON"
)

type Operable interface {
	Associativity() Associativity
	Operator() operators.Operator
}

type Visitable interface {
	Accept(Visitor) error
}

// Node is an immutable expression tree node. Position is the byte offset of
// the token the node was parsed from, or -1 for nodes built in code.
type Node interface {
	Visitable
	Position() int
	// Equal compares structure, ignoring positions.
	Equal(Node) bool
}

type Visitor interface {
	VisitLiteral(LiteralNode) error
	VisitAttribute(AttributeNode) error
	VisitComparison(ComparisonNode) error
	VisitLogical(LogicalNode) error
}

func Literal(v value.Value) LiteralNode {
	return NewLiteralNode(v, -1)
}

func NewLiteralNode(v value.Value, position int) LiteralNode {
	return LiteralNode{
		value:    v,
		position: position,
	}
}

type LiteralNode struct {
	value    value.Value
	position int
}

func (n LiteralNode) Value() value.Value {
	return n.value
}

func (n LiteralNode) Position() int {
	return n.position
}

func (n LiteralNode) Equal(other Node) bool {
	o, ok := other.(LiteralNode)
	if !ok {
		return false
	}
	if n.value.Kind() != o.value.Kind() {
		return false
	}
	// Literals are never absent, but two absent placeholders are still the same node.
	return n.value.IsAbsent() || value.Equal(n.value, o.value)
}

func (n LiteralNode) Accept(v Visitor) error {
	return v.VisitLiteral(n)
}

// Attribute references attribute name of entity. An empty entity marks a
// bare attribute of the single implicit entity.
func Attribute(entity, name string) AttributeNode {
	return NewAttributeNode(entity, name, -1)
}

func NewAttributeNode(entity, name string, position int) AttributeNode {
	return AttributeNode{
		entity:   entity,
		name:     name,
		position: position,
	}
}

type AttributeNode struct {
	entity   string
	name     string
	position int
}

func (n AttributeNode) Entity() string {
	return n.entity
}

func (n AttributeNode) IsQualified() bool {
	return n.entity != ""
}

func (n AttributeNode) Name() string {
	return n.name
}

func (n AttributeNode) Path() string {
	if n.entity == "" {
		return n.name
	}
	return n.entity + "." + n.name
}

func (n AttributeNode) Position() int {
	return n.position
}

func (n AttributeNode) Equal(other Node) bool {
	o, ok := other.(AttributeNode)
	return ok && n.entity == o.entity && n.name == o.name
}

func (n AttributeNode) Accept(v Visitor) error {
	return v.VisitAttribute(n)
}

func Equal(attribute AttributeNode, literal LiteralNode) ComparisonNode {
	return NewComparisonNode(attribute, operators.OperatorEq, literal, -1)
}

func NotEqual(attribute AttributeNode, literal LiteralNode) ComparisonNode {
	return NewComparisonNode(attribute, operators.OperatorNe, literal, -1)
}

func NewComparisonNode(attribute AttributeNode, operator operators.Operator, literal LiteralNode, position int) ComparisonNode {
	return ComparisonNode{
		attribute: attribute,
		operator:  operator,
		literal:   literal,
		position:  position,
	}
}

type ComparisonNode struct {
	attribute AttributeNode
	operator  operators.Operator
	literal   LiteralNode
	position  int
}

func (n ComparisonNode) Attribute() AttributeNode {
	return n.attribute
}

func (n ComparisonNode) Operator() operators.Operator {
	return n.operator
}

func (n ComparisonNode) Literal() LiteralNode {
	return n.literal
}

func (n ComparisonNode) Associativity() Associativity {
	return NonAssociative
}

func (n ComparisonNode) Position() int {
	return n.position
}

func (n ComparisonNode) Equal(other Node) bool {
	o, ok := other.(ComparisonNode)
	return ok &&
		n.operator == o.operator &&
		n.attribute.Equal(o.attribute) &&
		n.literal.Equal(o.literal)
}

func (n ComparisonNode) Accept(v Visitor) error {
	return v.VisitComparison(n)
}

func And(left Node, rights ...Node) LogicalNode {
	left, right := foldRights(And, left, rights...)
	return NewLogicalNode(left, operators.OperatorAnd, right, -1)
}

func Or(left Node, rights ...Node) LogicalNode {
	left, right := foldRights(Or, left, rights...)
	return NewLogicalNode(left, operators.OperatorOr, right, -1)
}

func foldRights(
	aCallable func(Node, ...Node) LogicalNode,
	aLeft Node,
	aRights ...Node,
) (left, right Node) {
	for len(aRights) > 1 {
		aLeft = aCallable(aLeft, aRights[0])
		aRights = aRights[1:]
	}
	return aLeft, aRights[0]
}

func NewLogicalNode(left Node, operator operators.Operator, right Node, position int) LogicalNode {
	return LogicalNode{
		left:     left,
		operator: operator,
		right:    right,
		position: position,
	}
}

type LogicalNode struct {
	left     Node
	operator operators.Operator
	right    Node
	position int
}

func (n LogicalNode) Left() Node {
	return n.left
}

func (n LogicalNode) Operator() operators.Operator {
	return n.operator
}

func (n LogicalNode) Right() Node {
	return n.right
}

func (n LogicalNode) Associativity() Associativity {
	return LeftAssociative
}

func (n LogicalNode) Position() int {
	return n.position
}

func (n LogicalNode) Equal(other Node) bool {
	o, ok := other.(LogicalNode)
	return ok &&
		n.operator == o.operator &&
		n.left.Equal(o.left) &&
		n.right.Equal(o.right)
}

func (n LogicalNode) Accept(v Visitor) error {
	return v.VisitLogical(n)
}
