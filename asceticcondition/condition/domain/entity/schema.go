// Package entity provides the attribute sources a condition is evaluated
// against: structured records described by a schema, loosely typed maps and
// raw JSON documents.
package entity

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

var (
	ErrUndeclaredAttribute = errors.New("undeclared attribute")
	ErrInvalidSchema       = errors.New("invalid schema")
	ErrSchemaNotRegistered = errors.New("schema is not registered")
)

// TagName is the struct tag Reflect reads. `condition:"name"` renames a field,
// `condition:"-"` hides it.
const TagName = "condition"

// FieldDescriptor maps one attribute name to an accessor of T.
type FieldDescriptor[T any] struct {
	name     string
	accessor func(T) any
}

func Field[T any](name string, accessor func(T) any) FieldDescriptor[T] {
	return FieldDescriptor[T]{name: name, accessor: accessor}
}

// Schema lists the attributes of record type T. It is built once and shared.
type Schema[T any] struct {
	recordType reflect.Type
	names      []string
	accessors  map[string]func(T) any
}

// Describe builds a schema from explicit descriptors.
func Describe[T any](fields ...FieldDescriptor[T]) (*Schema[T], error) {
	s := newSchema[T]()
	var result error
	for _, f := range fields {
		if err := s.add(f.name, f.accessor); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		return nil, result
	}
	return s, nil
}

// Reflect builds a schema from the exported fields of struct type T, or of
// the struct T points to. Fields of types a Value cannot hold must be hidden
// with the tag, otherwise registration fails.
func Reflect[T any]() (*Schema[T], error) {
	s := newSchema[T]()
	structType := s.recordType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrInvalidSchema, "%s is not a struct", s.recordType)
	}
	var result error
	for _, sf := range reflect.VisibleFields(structType) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		if !value.SupportsType(sf.Type) {
			result = multierror.Append(result, errors.Wrapf(
				ErrInvalidSchema, "field %s.%s has unsupported type %s", structType.Name(), sf.Name, sf.Type,
			))
			continue
		}
		if err := s.add(name, fieldAccessor[T](sf.Index)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		return nil, result
	}
	return s, nil
}

// MustReflect is like Reflect but panics on error.
func MustReflect[T any]() *Schema[T] {
	s, err := Reflect[T]()
	if err != nil {
		panic(err)
	}
	return s
}

func fieldAccessor[T any](index []int) func(T) any {
	return func(record T) any {
		rv := reflect.ValueOf(&record).Elem()
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil
			}
			rv = rv.Elem()
		}
		f, err := rv.FieldByIndexErr(index)
		if err != nil {
			// nil embedded pointer
			return nil
		}
		return f.Interface()
	}
}

func newSchema[T any]() *Schema[T] {
	return &Schema[T]{
		recordType: reflect.TypeFor[T](),
		accessors:  make(map[string]func(T) any),
	}
}

func (s *Schema[T]) add(name string, accessor func(T) any) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidSchema, "empty attribute name")
	case accessor == nil:
		return errors.Wrapf(ErrInvalidSchema, "attribute %q has no accessor", name)
	}
	if _, found := s.accessors[name]; found {
		return errors.Wrapf(ErrInvalidSchema, "attribute %q declared twice", name)
	}
	s.names = append(s.names, name)
	s.accessors[name] = accessor
	return nil
}

func (s *Schema[T]) RecordType() reflect.Type {
	return s.recordType
}

func (s *Schema[T]) HasAttribute(name string) bool {
	_, found := s.accessors[name]
	return found
}

// Attributes returns attribute names in declaration order.
func (s *Schema[T]) Attributes() []string {
	return slices.Clone(s.names)
}

// Resolve reads attribute name of record. Names outside the schema are an
// error wrapping ErrUndeclaredAttribute.
func (s *Schema[T]) Resolve(record T, name string) (value.Value, error) {
	accessor, found := s.accessors[name]
	if !found {
		return value.Value{}, errors.Wrapf(ErrUndeclaredAttribute, "%s has no attribute %q", s.recordType, name)
	}
	v, err := value.FromAny(accessor(record))
	if err != nil {
		return value.Value{}, errors.Wrapf(err, "attribute %q", name)
	}
	return v, nil
}

// SchemaRegistry holds the schemas of the record types an application
// evaluates conditions against. It is filled at startup and read-only after.
type SchemaRegistry struct {
	schemas map[reflect.Type]any
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[reflect.Type]any),
	}
}

// Register adds schema to r. A record type can be registered only once.
func Register[T any](r *SchemaRegistry, schema *Schema[T]) error {
	if _, found := r.schemas[schema.recordType]; found {
		return errors.Wrapf(ErrInvalidSchema, "%s is already registered", schema.recordType)
	}
	r.schemas[schema.recordType] = schema
	return nil
}

// MustRegister registers schema and returns r for chaining.
func MustRegister[T any](r *SchemaRegistry, schema *Schema[T]) *SchemaRegistry {
	if err := Register(r, schema); err != nil {
		panic(err)
	}
	return r
}

func Lookup[T any](r *SchemaRegistry) (*Schema[T], error) {
	t := reflect.TypeFor[T]()
	s, found := r.schemas[t]
	if !found {
		return nil, errors.Wrapf(ErrSchemaNotRegistered, "%s", t)
	}
	return s.(*Schema[T]), nil
}

func (r *SchemaRegistry) Len() int {
	return len(r.schemas)
}

func (s *Schema[T]) String() string {
	return fmt.Sprintf("Schema[%s]%v", s.recordType, s.names)
}
