package filter

import (
	condition "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/entity"
)

// Adapter turns one record into the context a condition is evaluated
// against. Multi-entity adapters bind several sources per record.
type Adapter[R any] func(record R) (condition.Context, error)

// MapAdapter binds each map record under name.
func MapAdapter(name string) Adapter[map[string]any] {
	return func(record map[string]any) (condition.Context, error) {
		return condition.NewContext(condition.Bind(name, entity.NewMapSource(record)))
	}
}

// JSONAdapter binds each raw JSON object under name.
func JSONAdapter(name string) Adapter[[]byte] {
	return func(record []byte) (condition.Context, error) {
		source, err := entity.NewJSONSource(record)
		if err != nil {
			return condition.Context{}, err
		}
		return condition.NewContext(condition.Bind(name, source))
	}
}

// StructAdapter binds each record under name through the schema registered
// for T. The schema is looked up once.
func StructAdapter[T any](registry *entity.SchemaRegistry, name string) (Adapter[T], error) {
	schema, err := entity.Lookup[T](registry)
	if err != nil {
		return nil, err
	}
	return func(record T) (condition.Context, error) {
		return condition.NewContext(condition.Bind(name, entity.FromSchema(schema, record)))
	}, nil
}
