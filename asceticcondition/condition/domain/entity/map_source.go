package entity

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

// MapSource resolves attributes of a loosely typed record. A missing key or
// a nil value resolves to Absent.
type MapSource map[string]any

func NewMapSource(attributes map[string]any) MapSource {
	return MapSource(attributes)
}

func (s MapSource) Resolve(attribute string) (value.Value, error) {
	raw, found := s[attribute]
	if !found {
		return value.Absent(), nil
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Value{}, errors.Wrapf(err, "attribute %q", attribute)
	}
	return v, nil
}
