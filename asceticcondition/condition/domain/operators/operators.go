package operators

type Operator string

const (
	// Comparison

	OperatorEq Operator = "="
	OperatorNe Operator = "!="

	// Logical operators

	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

func (o Operator) IsComparison() bool {
	return o == OperatorEq || o == OperatorNe
}

func (o Operator) IsLogical() bool {
	return o == OperatorAnd || o == OperatorOr
}
