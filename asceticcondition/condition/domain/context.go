package condition

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type Binding struct {
	name   string
	source AttributeSource
}

func Bind(name string, source AttributeSource) Binding {
	return Binding{name: name, source: source}
}

// Context maps entity names to the sources a condition is evaluated against.
// It is immutable once built.
type Context struct {
	names   []string
	sources map[string]AttributeSource
}

func NewContext(bindings ...Binding) (Context, error) {
	var result error
	ctx := Context{
		names:   make([]string, 0, len(bindings)),
		sources: make(map[string]AttributeSource, len(bindings)),
	}
	for i, b := range bindings {
		if b.name == "" {
			result = multierror.Append(result, fmt.Errorf("%w: binding %d has an empty entity name", ErrInvalidContext, i))
			continue
		}
		if b.source == nil {
			result = multierror.Append(result, fmt.Errorf("%w: entity %q has no source", ErrInvalidContext, b.name))
			continue
		}
		if _, found := ctx.sources[b.name]; found {
			result = multierror.Append(result, fmt.Errorf("%w: entity %q is bound twice", ErrInvalidContext, b.name))
			continue
		}
		ctx.names = append(ctx.names, b.name)
		ctx.sources[b.name] = b.source
	}
	if result != nil {
		return Context{}, result
	}
	return ctx, nil
}

// MustContext is like NewContext but panics on error.
func MustContext(bindings ...Binding) Context {
	ctx, err := NewContext(bindings...)
	if err != nil {
		panic(err)
	}
	return ctx
}

func (c Context) Lookup(name string) (AttributeSource, bool) {
	s, found := c.sources[name]
	return s, found
}

func (c Context) Len() int {
	return len(c.names)
}

func (c Context) Names() []string {
	return append([]string(nil), c.names...)
}

func (c Context) sole() (string, AttributeSource, bool) {
	if len(c.names) != 1 {
		return "", nil, false
	}
	return c.names[0], c.sources[c.names[0]], true
}
