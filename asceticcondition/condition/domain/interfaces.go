package condition

import (
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

// AttributeSource resolves attribute names of one entity. A name the source
// does not carry resolves to value.Absent() without error. A non-nil error is
// reserved for records that declare their attributes up front.
type AttributeSource interface {
	Resolve(attribute string) (value.Value, error)
}

// Schema lists the attributes an entity declares. The parser uses it to
// reject unknown attribute references early.
type Schema interface {
	HasAttribute(name string) bool
}

type AttributeSourceFunc func(attribute string) (value.Value, error)

func (f AttributeSourceFunc) Resolve(attribute string) (value.Value, error) {
	return f(attribute)
}
