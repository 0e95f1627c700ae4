package entity

import (
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

// StructSource resolves attributes of a structured record through the schema
// registered for its type. Unknown attribute names are errors.
type StructSource[T any] struct {
	schema *Schema[T]
	record T
}

func NewStructSource[T any](registry *SchemaRegistry, record T) (*StructSource[T], error) {
	schema, err := Lookup[T](registry)
	if err != nil {
		return nil, err
	}
	return FromSchema(schema, record), nil
}

func FromSchema[T any](schema *Schema[T], record T) *StructSource[T] {
	return &StructSource[T]{schema: schema, record: record}
}

func (s *StructSource[T]) Schema() *Schema[T] {
	return s.schema
}

func (s *StructSource[T]) Resolve(attribute string) (value.Value, error) {
	return s.schema.Resolve(s.record, attribute)
}
