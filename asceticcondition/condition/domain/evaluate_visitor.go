package condition

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/operators"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

var defaultEvaluator = NewEvaluator()

// Evaluate runs tree against ctx with the default operator registry.
func Evaluate(tree *Tree, ctx Context) (bool, error) {
	return defaultEvaluator.Evaluate(tree, ctx)
}

type EvaluatorOption func(*Evaluator)

func WithRegistry(registry *operators.OperatorRegistry) EvaluatorOption {
	return func(e *Evaluator) {
		e.registry = registry
	}
}

// Evaluator is safe for concurrent use as long as its registry is not
// modified.
type Evaluator struct {
	registry *operators.OperatorRegistry
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{registry: operators.NewDefaultRegistry()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(tree *Tree, ctx Context) (bool, error) {
	if err := CheckBindings(tree, ctx); err != nil {
		return false, err
	}
	v := NewEvaluateVisitor(ctx, e.registry)
	if err := tree.Root().Accept(v); err != nil {
		return false, err
	}
	return v.Result()
}

// CheckBindings reports every entity the tree refers to that ctx lacks.
func CheckBindings(tree *Tree, ctx Context) error {
	if tree.Mode() == ModeImplicit {
		if ctx.Len() != 1 {
			return &BindingError{
				Entity: tree.ImplicitEntity(),
				Reason: fmt.Sprintf("an implicit condition needs exactly one bound entity, got %d", ctx.Len()),
			}
		}
		return nil
	}
	var result error
	for _, name := range tree.References() {
		if _, found := ctx.Lookup(name); !found {
			result = multierror.Append(result, &BindingError{Entity: name})
		}
	}
	return result
}

func NewEvaluateVisitor(ctx Context, registry *operators.OperatorRegistry) *EvaluateVisitor {
	return &EvaluateVisitor{
		context:  ctx,
		registry: registry,
	}
}

// EvaluateVisitor walks one tree against one context. Both operands of a
// logical node are always evaluated, so a binding error on either side
// surfaces regardless of the other side's result.
type EvaluateVisitor struct {
	currentValue  value.Value
	currentResult bool
	hasResult     bool
	context       Context
	registry      *operators.OperatorRegistry
}

func (v *EvaluateVisitor) VisitLiteral(n LiteralNode) error {
	v.currentValue = n.Value()
	return nil
}

func (v *EvaluateVisitor) VisitAttribute(n AttributeNode) error {
	entity, source, err := v.sourceOf(n)
	if err != nil {
		return err
	}
	val, err := source.Resolve(n.Name())
	if err != nil {
		var bindingErr *BindingError
		if errors.As(err, &bindingErr) {
			return err
		}
		return &BindingError{Entity: entity, Attribute: n.Name(), Reason: err.Error(), Err: err}
	}
	v.currentValue = val
	return nil
}

func (v *EvaluateVisitor) sourceOf(n AttributeNode) (string, AttributeSource, error) {
	if !n.IsQualified() {
		name, source, ok := v.context.sole()
		if !ok {
			return "", nil, &BindingError{
				Attribute: n.Name(),
				Reason:    fmt.Sprintf("a bare attribute needs exactly one bound entity, got %d", v.context.Len()),
			}
		}
		return name, source, nil
	}
	source, found := v.context.Lookup(n.Entity())
	if !found {
		return "", nil, &BindingError{Entity: n.Entity()}
	}
	return n.Entity(), source, nil
}

func (v *EvaluateVisitor) VisitComparison(n ComparisonNode) error {
	err := n.Attribute().Accept(v)
	if err != nil {
		return err
	}
	left := v.currentValue
	err = n.Literal().Accept(v)
	if err != nil {
		return err
	}
	right := v.currentValue
	result, err := v.registry.ExecBinary(left, n.Operator(), right)
	if err != nil {
		if errors.Is(err, value.ErrIncomparableKinds) {
			return &TypeError{
				Attribute: n.Attribute().Path(),
				Operator:  n.Operator(),
				Left:      left.Kind(),
				Right:     right.Kind(),
			}
		}
		return err
	}
	v.setResult(result)
	return nil
}

func (v *EvaluateVisitor) VisitLogical(n LogicalNode) error {
	err := n.Left().Accept(v)
	if err != nil {
		return err
	}
	left := v.currentResult
	err = n.Right().Accept(v)
	if err != nil {
		return err
	}
	right := v.currentResult
	result, err := v.registry.ExecLogical(n.Operator(), left, right)
	if err != nil {
		return err
	}
	v.setResult(result)
	return nil
}

func (v *EvaluateVisitor) setResult(result bool) {
	v.currentResult = result
	v.hasResult = true
}

func (v EvaluateVisitor) Result() (bool, error) {
	if !v.hasResult {
		return false, errors.New("the result is not a bool")
	}
	return v.currentResult, nil
}
