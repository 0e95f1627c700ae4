package condition

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

type Mode uint8

const (
	// ModeQualified requires every attribute to be written as Entity.attr
	// with Entity among the declared entity names.
	ModeQualified Mode = iota
	// ModeImplicit requires bare attribute names of one implicit entity.
	ModeImplicit
)

func (m Mode) String() string {
	if m == ModeImplicit {
		return "implicit"
	}
	return "qualified"
}

// Tree is a compiled condition. It holds no evaluation state and can be
// evaluated concurrently against any number of contexts.
type Tree struct {
	root       Node
	mode       Mode
	entities   []string
	references []string
}

// NewTree builds a qualified-mode tree. Every attribute of root must be
// qualified with one of entities.
func NewTree(root Node, entities ...string) (*Tree, error) {
	if len(entities) == 0 {
		return nil, NewParseError(0, "", ErrInvalidDeclaration, "at least one entity name is required")
	}
	return newTree(root, ModeQualified, entities)
}

// NewImplicitTree builds an implicit-mode tree whose attributes are bare
// names of entity.
func NewImplicitTree(root Node, entity string) (*Tree, error) {
	return newTree(root, ModeImplicit, []string{entity})
}

func newTree(root Node, mode Mode, entities []string) (*Tree, error) {
	if err := ValidateDeclarations(entities); err != nil {
		return nil, err
	}
	switch root.(type) {
	case ComparisonNode, LogicalNode:
	default:
		return nil, NewParseError(positionOf(root), "", ErrUnexpectedToken, "a condition must be a comparison or a logical expression")
	}
	refs := &referencesVisitor{mode: mode, declared: entities}
	if err := root.Accept(refs); err != nil {
		return nil, err
	}
	if refs.errors != nil {
		return nil, refs.errors
	}
	return &Tree{
		root:       root,
		mode:       mode,
		entities:   slices.Clone(entities),
		references: refs.references,
	}, nil
}

var (
	identifier    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedWords = map[string]bool{"AND": true, "OR": true, "true": true, "false": true}
)

// IsIdentifier reports whether name can be written as an entity or
// attribute name in condition text.
func IsIdentifier(name string) bool {
	return identifier.MatchString(name) && !reservedWords[name]
}

// ValidateDeclarations checks entity names declared for a condition. All
// problems are reported together, each wrapping ErrInvalidDeclaration.
func ValidateDeclarations(entities []string) error {
	var result error
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		switch {
		case e == "":
			result = multierror.Append(result, NewParseError(0, e, ErrInvalidDeclaration, "empty entity name"))
		case !identifier.MatchString(e):
			result = multierror.Append(result, NewParseError(0, e, ErrInvalidDeclaration, "entity name is not an identifier"))
		case reservedWords[e]:
			result = multierror.Append(result, NewParseError(0, e, ErrInvalidDeclaration, "entity name is a keyword"))
		case seen[e]:
			result = multierror.Append(result, NewParseError(0, e, ErrInvalidDeclaration, fmt.Sprintf("entity %q declared twice", e)))
		}
		seen[e] = true
	}
	return result
}

func positionOf(n Node) int {
	if n == nil {
		return 0
	}
	return n.Position()
}

func (t *Tree) Root() Node {
	return t.root
}

func (t *Tree) Mode() Mode {
	return t.mode
}

// Entities returns the declared entity names. In implicit mode it holds the
// single implicit entity.
func (t *Tree) Entities() []string {
	return slices.Clone(t.entities)
}

func (t *Tree) ImplicitEntity() string {
	if t.mode != ModeImplicit {
		return ""
	}
	return t.entities[0]
}

// References returns the entities the condition actually mentions, in order
// of first appearance.
func (t *Tree) References() []string {
	return slices.Clone(t.references)
}

// String renders the canonical text of the condition. Parsing it back yields
// a structurally equal tree.
func (t *Tree) String() string {
	f := NewFormatVisitor()
	if err := t.root.Accept(f); err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return f.Result()
}

// Equal compares trees structurally.
func (t *Tree) Equal(other *Tree) bool {
	return other != nil &&
		t.mode == other.mode &&
		slices.Equal(t.entities, other.entities) &&
		t.root.Equal(other.root)
}

type referencesVisitor struct {
	mode       Mode
	declared   []string
	references []string
	errors     error
}

func (v *referencesVisitor) VisitLiteral(n LiteralNode) error {
	return nil
}

func (v *referencesVisitor) VisitAttribute(n AttributeNode) error {
	if !IsIdentifier(n.Name()) {
		v.errors = multierror.Append(v.errors, NewParseError(
			n.Position(), n.Name(), ErrUnexpectedToken, "attribute name is not an identifier",
		))
		return nil
	}
	switch v.mode {
	case ModeImplicit:
		if n.IsQualified() {
			v.errors = multierror.Append(v.errors, NewParseError(
				n.Position(), n.Path(), ErrQualification,
				"implicit conditions take bare attribute names",
			))
			return nil
		}
		if len(v.references) == 0 {
			v.references = append(v.references, v.declared[0])
		}
	default:
		if !n.IsQualified() {
			v.errors = multierror.Append(v.errors, NewParseError(
				n.Position(), n.Path(), ErrQualification,
				"attributes must be qualified with an entity name",
			))
			return nil
		}
		if !slices.Contains(v.declared, n.Entity()) {
			v.errors = multierror.Append(v.errors, NewParseError(
				n.Position(), n.Entity(), ErrUnknownEntity,
				fmt.Sprintf("declared entities are %v", v.declared),
			))
			return nil
		}
		if !slices.Contains(v.references, n.Entity()) {
			v.references = append(v.references, n.Entity())
		}
	}
	return nil
}

func (v *referencesVisitor) VisitComparison(n ComparisonNode) error {
	if !n.Operator().IsComparison() {
		return NewParseError(n.Position(), string(n.Operator()), ErrUnknownOperator, "")
	}
	if n.Literal().Value().IsAbsent() {
		return NewParseError(n.Literal().Position(), "", ErrMalformedLiteral, "a literal must carry a value")
	}
	if text, ok := n.Literal().Value().Text(); ok && strings.Contains(text, `"`) {
		return NewParseError(n.Literal().Position(), text, ErrMalformedLiteral, "string literals cannot contain a double quote")
	}
	return n.Attribute().Accept(v)
}

func (v *referencesVisitor) VisitLogical(n LogicalNode) error {
	if !n.Operator().IsLogical() {
		return NewParseError(n.Position(), string(n.Operator()), ErrUnknownOperator, "")
	}
	for _, child := range []Node{n.Left(), n.Right()} {
		switch child.(type) {
		case ComparisonNode, LogicalNode:
		default:
			return NewParseError(positionOf(child), "", ErrUnexpectedToken, "logical operands must be conditions")
		}
		if err := child.Accept(v); err != nil {
			return err
		}
	}
	return nil
}
