package operators

import (
	"fmt"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

type BinaryOp func(left, right value.Value) (bool, error)

type binaryKey struct {
	left  value.Kind
	op    Operator
	right value.Kind
}

type OperatorRegistry struct {
	binary map[binaryKey]BinaryOp
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		binary: make(map[binaryKey]BinaryOp),
	}
}

func RegisterBinary(reg *OperatorRegistry, left value.Kind, op Operator, right value.Kind, fn BinaryOp) {
	reg.binary[binaryKey{left: left, op: op, right: right}] = fn
}

// ExecBinary applies a comparison operator.
//
// An Absent operand never matches: "=" yields false and "!=" yields true,
// without consulting the registered functions.
func (r *OperatorRegistry) ExecBinary(left value.Value, op Operator, right value.Value) (bool, error) {
	if left.IsAbsent() || right.IsAbsent() {
		switch op {
		case OperatorEq:
			return false, nil
		case OperatorNe:
			return true, nil
		}
	}

	fn, err := r.lookupBinary(left, op, right)
	if err != nil {
		return false, err
	}
	return fn(left, right)
}

func (r *OperatorRegistry) lookupBinary(left value.Value, op Operator, right value.Value) (BinaryOp, error) {
	key := binaryKey{
		left:  left.Kind(),
		op:    op,
		right: right.Kind(),
	}
	fn, ok := r.binary[key]
	if ok {
		return fn, nil
	}
	if left.Kind() != right.Kind() {
		return nil, fmt.Errorf("operator \"%s\": %w: %s and %s", op, value.ErrIncomparableKinds, left.Kind(), right.Kind())
	}
	return nil, fmt.Errorf("operator \"%s\" is not supported for %s", op, left.Kind())
}

// ExecLogical combines two boolean operands.
func (r *OperatorRegistry) ExecLogical(op Operator, left, right bool) (bool, error) {
	switch op {
	case OperatorAnd:
		return left && right, nil
	case OperatorOr:
		return left || right, nil
	}
	return false, fmt.Errorf("operator \"%s\" is not a logical operator", op)
}
