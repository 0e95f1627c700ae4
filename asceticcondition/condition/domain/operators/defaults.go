package operators

import "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"

func registerEquality(reg *OperatorRegistry, kind value.Kind) {
	RegisterBinary(reg, kind, OperatorEq, kind, func(a, b value.Value) (bool, error) {
		return value.Equal(a, b), nil
	})
	RegisterBinary(reg, kind, OperatorNe, kind, func(a, b value.Value) (bool, error) {
		return !value.Equal(a, b), nil
	})
}

// NewDefaultRegistry creates a registry with kind-sensitive equality for
// strings, numbers and booleans. Mixed kinds are left unregistered so that
// they surface as incomparable.
func NewDefaultRegistry() *OperatorRegistry {
	reg := NewOperatorRegistry()
	registerEquality(reg, value.KindString)
	registerEquality(reg, value.KindNumber)
	registerEquality(reg, value.KindBoolean)
	return reg
}
