package condition

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	c "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/operators"
)

// Compile renders tree as a PostgreSQL boolean expression with positional
// parameters. A missing column value (NULL) behaves like an Absent
// attribute: it never equals a literal and is always distinct from one.
func Compile(tree *c.Tree, opts ...PostgresqlVisitorOption) (sql string, params []any, err error) {
	v := NewPostgresqlVisitor(opts...)
	err = tree.Root().Accept(v)
	if err != nil {
		return "", nil, err
	}
	return v.Result()
}

// ColumnMapper returns the SQL column expression of an attribute. entity is
// empty for implicit conditions.
type ColumnMapper func(entity, attribute string) (string, error)

// QuotedColumns maps Entity.attribute to "Entity"."attribute" and a bare
// attribute to "attribute".
func QuotedColumns(entity, attribute string) (string, error) {
	if entity == "" {
		return pgx.Identifier{attribute}.Sanitize(), nil
	}
	return pgx.Identifier{entity, attribute}.Sanitize(), nil
}

// ColumnsOf maps attributes through a fixed table. Unmapped attributes are
// an error so that a condition cannot reach columns it was not meant to.
func ColumnsOf(columns map[string]string) ColumnMapper {
	return func(entity, attribute string) (string, error) {
		key := attribute
		if entity != "" {
			key = entity + "." + attribute
		}
		column, ok := columns[key]
		if !ok {
			return "", fmt.Errorf("no column mapped for attribute %s", key)
		}
		return column, nil
	}
}

type PostgresqlVisitorOption func(*PostgresqlVisitor)

// PlaceholderIndex sets how many parameters precede the compiled expression
// in the final statement.
func PlaceholderIndex(index uint8) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.placeholderIndex = index
	}
}

func WithColumnMapper(mapper ColumnMapper) PostgresqlVisitorOption {
	return func(v *PostgresqlVisitor) {
		v.columns = mapper
	}
}

var sqlOperators = map[operators.Operator]string{
	operators.OperatorEq:  "=",
	operators.OperatorNe:  "IS DISTINCT FROM",
	operators.OperatorAnd: "AND",
	operators.OperatorOr:  "OR",
}

func NewPostgresqlVisitor(opts ...PostgresqlVisitorOption) *PostgresqlVisitor {
	v := &PostgresqlVisitor{
		precedenceMapping: make(map[string]int),
		columns:           QuotedColumns,
	}
	// https://www.postgresql.org/docs/14/sql-syntax-lexical.html#SQL-PRECEDENCE-TABLE
	v.setPrecedence(80, "= NON")
	v.setPrecedence(70, "IS DISTINCT FROM NON")
	v.setPrecedence(50, "AND LEFT")
	v.setPrecedence(40, "OR LEFT")
	for i := range opts {
		opts[i](v)
	}
	return v
}

type PostgresqlVisitor struct {
	sql               strings.Builder
	placeholderIndex  uint8
	parameters        []any
	precedence        int
	precedenceMapping map[string]int
	columns           ColumnMapper
}

func (v PostgresqlVisitor) getNodePrecedenceKey(n c.Operable) string {
	return fmt.Sprintf("%s %s", sqlOperators[n.Operator()], n.Associativity())
}

func (v PostgresqlVisitor) setPrecedence(precedence int, operators ...string) {
	for _, op := range operators {
		v.precedenceMapping[op] = precedence
	}
}

func (v *PostgresqlVisitor) visit(precedenceKey string, callable func(inner int) error) error {
	outerPrecedence := v.precedence
	innerPrecedence, ok := v.precedenceMapping[precedenceKey]
	if !ok {
		innerPrecedence = outerPrecedence
	}
	v.precedence = innerPrecedence
	if innerPrecedence < outerPrecedence {
		v.sql.WriteString("(")
	}
	err := callable(innerPrecedence)
	if err != nil {
		return err
	}
	if innerPrecedence < outerPrecedence {
		v.sql.WriteString(")")
	}
	v.precedence = outerPrecedence
	return nil
}

func (v *PostgresqlVisitor) VisitLiteral(n c.LiteralNode) error {
	v.parameters = append(v.parameters, n.Value().Native())
	fmt.Fprintf(&v.sql, "$%d", int(v.placeholderIndex)+len(v.parameters))
	return nil
}

func (v *PostgresqlVisitor) VisitAttribute(n c.AttributeNode) error {
	column, err := v.columns(n.Entity(), n.Name())
	if err != nil {
		return err
	}
	v.sql.WriteString(column)
	return nil
}

func (v *PostgresqlVisitor) VisitComparison(n c.ComparisonNode) error {
	return v.visit(v.getNodePrecedenceKey(n), func(int) error {
		err := n.Attribute().Accept(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(&v.sql, " %s ", sqlOperators[n.Operator()])
		return n.Literal().Accept(v)
	})
}

func (v *PostgresqlVisitor) VisitLogical(n c.LogicalNode) error {
	return v.visit(v.getNodePrecedenceKey(n), func(inner int) error {
		err := n.Left().Accept(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(&v.sql, " %s ", sqlOperators[n.Operator()])
		v.precedence = inner + 1
		err = n.Right().Accept(v)
		v.precedence = inner
		return err
	})
}

func (v PostgresqlVisitor) Result() (sql string, params []any, err error) {
	return v.sql.String(), v.parameters, nil
}
