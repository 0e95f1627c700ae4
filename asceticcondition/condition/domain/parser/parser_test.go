package parser

import (
	"errors"
	"sync"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"

	condition "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/entity"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/operators"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/value"
)

type Case struct {
	CaseId string
	Type   string
	Status string
	State  string
}

// Helper to compare canonical condition text with a readable diff
func assertText(t *testing.T, expected, actual string) {
	t.Helper()
	if expected == actual {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	t.Errorf("Canonical text mismatch:\n%s", dmp.DiffPrettyText(diffs))
}

func mustParse(t *testing.T, text string, entities ...string) *condition.Tree {
	t.Helper()
	tree, err := Parse(text, entities...)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", text, err)
	}
	return tree
}

func str(s string) condition.LiteralNode {
	return condition.Literal(value.String(s))
}

func TestTokenize(t *testing.T) {
	tokens, err := NewLexer(`(Case.Amount != -10.5 OR x = true)`).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	expected := []Token{
		{TokenLParen, "(", 0},
		{TokenIdentifier, "Case", 1},
		{TokenDot, ".", 5},
		{TokenIdentifier, "Amount", 6},
		{TokenNe, "!=", 13},
		{TokenNumber, "-10.5", 16},
		{TokenOr, "OR", 22},
		{TokenIdentifier, "x", 25},
		{TokenEq, "=", 27},
		{TokenTrue, "true", 29},
		{TokenRParen, ")", 33},
		{TokenEOF, "", 34},
	}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i := range expected {
		if tokens[i] != expected[i] {
			t.Errorf("Token %d: expected %v at %d, got %v at %d", i, expected[i], expected[i].Position, tokens[i], tokens[i].Position)
		}
	}
}

func TestParseQualified(t *testing.T) {
	tree := mustParse(t, `(Case.Type = "script" AND Case.State = "NY") OR (Case.Status = "Opened")`, "Case")

	expected := condition.Or(
		condition.And(
			condition.Equal(condition.Attribute("Case", "Type"), str("script")),
			condition.Equal(condition.Attribute("Case", "State"), str("NY")),
		),
		condition.Equal(condition.Attribute("Case", "Status"), str("Opened")),
	)
	if !tree.Root().Equal(expected) {
		t.Errorf("Unexpected tree %s", tree)
	}
	root := tree.Root().(condition.LogicalNode)
	if root.Position() != 45 {
		t.Errorf("Expected OR at position 45, got %d", root.Position())
	}
}

func TestParseImplicit(t *testing.T) {
	tree, err := ParseImplicit(`(Type = "script" AND State = "NY")`, "Case")
	if err != nil {
		t.Fatalf("ParseImplicit failed: %v", err)
	}
	if tree.Mode() != condition.ModeImplicit {
		t.Errorf("Expected implicit mode, got %s", tree.Mode())
	}
	assertText(t, `Type = "script" AND State = "NY"`, tree.String())
}

func TestParsePrecedence(t *testing.T) {
	tree := mustParse(t, `E.a = 1 OR E.b = 2 AND E.c = 3`, "E")
	root, ok := tree.Root().(condition.LogicalNode)
	if !ok || root.Operator() != operators.OperatorOr {
		t.Fatalf("Expected OR at the root, got %s", tree)
	}
	right, ok := root.Right().(condition.LogicalNode)
	if !ok || right.Operator() != operators.OperatorAnd {
		t.Errorf("Expected AND to bind tighter than OR, got %s", tree)
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		text     string
		expected value.Value
	}{
		{`E.a = "with spaces and AND"`, value.String("with spaces and AND")},
		{`E.a = ""`, value.String("")},
		{`E.a = 42`, value.Int(42)},
		{`E.a = -0.50`, mustNumber(t, "-0.5")},
		{`E.a = true`, value.Boolean(true)},
		{`E.a = false`, value.Boolean(false)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tree := mustParse(t, tt.text, "E")
			literal := tree.Root().(condition.ComparisonNode).Literal().Value()
			if !value.Equal(literal, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, literal)
			}
		})
	}
}

func mustNumber(t *testing.T, text string) value.Value {
	t.Helper()
	v, err := value.ParseNumber(text)
	if err != nil {
		t.Fatalf("ParseNumber(%q): %v", text, err)
	}
	return v
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		implicit bool
		expected error
		position int
	}{
		{"missing closing paren", `(Case.State = "NY"`, false, condition.ErrUnbalancedParens, 0},
		{"extra closing paren", `Case.State = "NY")`, false, condition.ErrUnbalancedParens, 17},
		{"leading closing paren", `) Case.State = "NY"`, false, condition.ErrUnbalancedParens, 0},
		{"closing paren after AND", `Case.State = "NY" AND )`, false, condition.ErrUnbalancedParens, 22},
		{"empty parens", `()`, false, condition.ErrUnbalancedParens, 1},
		{"lone open paren", `(`, false, condition.ErrUnbalancedParens, 0},
		{"nested open parens", `Case.State = "NY" AND ((`, false, condition.ErrUnbalancedParens, 23},
		{"double equals", `Case.State == "NY"`, false, condition.ErrUnknownOperator, 11},
		{"greater than", `Case.State > "NY"`, false, condition.ErrUnknownOperator, 11},
		{"unterminated string", `Case.State = "NY`, false, condition.ErrMalformedLiteral, 13},
		{"invalid number", `Case.Amount = 1.2.3`, false, condition.ErrMalformedLiteral, 14},
		{"trailing dot", `Case.Amount = 1.`, false, condition.ErrMalformedLiteral, 14},
		{"undeclared entity", `User.Status = "Active"`, false, condition.ErrUnknownEntity, 0},
		{"bare in qualified mode", `State = "NY"`, false, condition.ErrQualification, 0},
		{"qualified in implicit mode", `Case.State = "NY"`, true, condition.ErrQualification, 0},
		{"dangling AND", `Case.State = "NY" AND`, false, condition.ErrUnexpectedToken, 21},
		{"missing operator", `Case.State "NY"`, false, condition.ErrUnexpectedToken, 11},
		{"bare word literal", `Case.State = NY`, false, condition.ErrUnexpectedToken, 13},
		{"single quotes", `Case.State = 'NY'`, false, condition.ErrUnexpectedToken, 13},
		{"lowercase keyword", `Case.State = "NY" and Case.Type = "x"`, false, condition.ErrUnexpectedToken, 18},
		{"literal on the left", `"NY" = Case.State`, false, condition.ErrUnexpectedToken, 0},
		{"empty", ``, false, condition.ErrUnexpectedToken, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.implicit {
				_, err = ParseImplicit(tt.text, "Case")
			} else {
				_, err = Parse(tt.text, "Case")
			}
			if !errors.Is(err, tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, err)
			}
			var parseErr *condition.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Expected ParseError, got %T", err)
			}
			if parseErr.Position != tt.position {
				t.Errorf("Expected position %d, got %d (%v)", tt.position, parseErr.Position, err)
			}
		})
	}
}

func TestParseInvalidDeclarations(t *testing.T) {
	text := `Case.State = "NY"`
	declarations := [][]string{
		nil,
		{"Case", "Case"},
		{"1Case"},
		{"Case", ""},
		{"AND"},
		{"true"},
		{"Case.User"},
	}
	for _, entities := range declarations {
		_, err := Parse(text, entities...)
		if !errors.Is(err, condition.ErrInvalidDeclaration) {
			t.Errorf("%v: expected ErrInvalidDeclaration, got %v", entities, err)
		}
	}
	_, err := ParseImplicit(`State = "NY"`, "")
	if !errors.Is(err, condition.ErrInvalidDeclaration) {
		t.Errorf("Expected ErrInvalidDeclaration, got %v", err)
	}
}

func TestParseWithSchema(t *testing.T) {
	p := New(WithSchema("Case", entity.MustReflect[Case]()))

	_, err := p.Parse(`Case.State = "NY" AND Case.Foo = "x"`, "Case", "Others")
	if !errors.Is(err, condition.ErrUnknownAttribute) {
		t.Fatalf("Expected ErrUnknownAttribute, got %v", err)
	}
	var parseErr *condition.ParseError
	if errors.As(err, &parseErr) && parseErr.Position != 27 {
		t.Errorf("Expected position 27, got %d", parseErr.Position)
	}

	// Entities without a schema accept any attribute.
	if _, err := p.Parse(`Others.Foo = "x"`, "Case", "Others"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	_, err = p.ParseImplicit(`Foo = "x"`, "Case")
	if !errors.Is(err, condition.ErrUnknownAttribute) {
		t.Errorf("Expected ErrUnknownAttribute, got %v", err)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	text := `(Others.AlwaysPass = "YES") OR ((Case.State = "UT") AND (User.Status = "Active"))`
	first := mustParse(t, text, "Case", "User", "Others")
	for i := 0; i < 5; i++ {
		again := mustParse(t, text, "Case", "User", "Others")
		if !first.Equal(again) {
			t.Fatalf("Parse %d produced a different tree: %s", i, again)
		}
	}
}

func TestParseConcurrently(t *testing.T) {
	text := `(Others.AlwaysPass = "YES") OR ((Case.State = "UT") AND (User.Status = "Active"))`
	expected := mustParse(t, text, "Case", "User", "Others")

	const workers = 8
	trees := make([]*condition.Tree, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			trees[w], errs[w] = Parse(text, "Case", "User", "Others")
		}(w)
	}
	wg.Wait()
	for w := range trees {
		if errs[w] != nil {
			t.Fatalf("Worker %d failed: %v", w, errs[w])
		}
		if !expected.Equal(trees[w]) {
			t.Errorf("Worker %d produced a different tree: %s", w, trees[w])
		}
	}
}

func TestCanonicalTextRoundTrip(t *testing.T) {
	tests := []struct {
		text      string
		canonical string
	}{
		{
			`(Case.Type = "script" AND Case.State = "NY") OR (Case.Status = "Opened")`,
			`Case.Type = "script" AND Case.State = "NY" OR Case.Status = "Opened"`,
		},
		{
			`(Others.AlwaysPass = "YES") OR ((Case.State = "UT") AND (User.Status = "Active"))`,
			`Others.AlwaysPass = "YES" OR Case.State = "UT" AND User.Status = "Active"`,
		},
		{
			`(Case.State = "CA" OR Case.State = "NY") AND User.Active != false`,
			`(Case.State = "CA" OR Case.State = "NY") AND User.Active != false`,
		},
		{
			`Case.Amount = 10.50 AND (Case.Type = "a" AND Case.Type != "b")`,
			`Case.Amount = 10.5 AND (Case.Type = "a" AND Case.Type != "b")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tree := mustParse(t, tt.text, "Case", "User", "Others")
			assertText(t, tt.canonical, tree.String())

			again := mustParse(t, tree.String(), "Case", "User", "Others")
			if !tree.Equal(again) {
				t.Errorf("Round trip changed the tree: %s", again)
			}
		})
	}
}

func TestScenarioB(t *testing.T) {
	ctx := condition.MustContext(
		condition.Bind("Case", entity.NewMapSource(map[string]any{"State": "CA"})),
		condition.Bind("User", entity.NewMapSource(map[string]any{"Status": "Suspended"})),
	)
	tests := []struct {
		text     string
		expected bool
	}{
		{`(Case.State = "CA") OR (User.Status = "Suspended")`, true},
		{`(Case.State = "NY") OR (User.Status = "Active")`, false},
	}
	for _, tt := range tests {
		tree := mustParse(t, tt.text, "Case", "User")
		result, err := condition.Evaluate(tree, ctx)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if result != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.text, tt.expected, result)
		}
	}
}

func TestScenarioC(t *testing.T) {
	ctx := condition.MustContext(condition.Bind("Others", entity.NewMapSource(map[string]any{})))

	eq, err := condition.Evaluate(mustParse(t, `Others.AlwaysPass = "YES"`, "Others"), ctx)
	if err != nil || eq {
		t.Errorf("Expected false, got %v, %v", eq, err)
	}
	ne, err := condition.Evaluate(mustParse(t, `Others.AlwaysPass != "YES"`, "Others"), ctx)
	if err != nil || !ne {
		t.Errorf("Expected true, got %v, %v", ne, err)
	}
}

func TestScenarioD(t *testing.T) {
	schema := entity.MustReflect[Case]()
	text := `Case.Foo = "x"`

	// Schema known at parse time.
	_, err := New(WithSchema("Case", schema)).Parse(text, "Case")
	if !errors.Is(err, condition.ErrUnknownAttribute) {
		t.Errorf("Expected ErrUnknownAttribute, got %v", err)
	}

	// Schema known only at evaluation time.
	tree := mustParse(t, text, "Case")
	_, err = condition.Evaluate(tree, condition.MustContext(
		condition.Bind("Case", entity.FromSchema(schema, Case{State: "NY"})),
	))
	var bindingErr *condition.BindingError
	if !errors.As(err, &bindingErr) {
		t.Fatalf("Expected BindingError, got %v", err)
	}
	if bindingErr.Entity != "Case" || bindingErr.Attribute != "Foo" {
		t.Errorf("Unexpected binding error %+v", bindingErr)
	}
	if !errors.Is(err, entity.ErrUndeclaredAttribute) {
		t.Error("Expected the binding error to wrap ErrUndeclaredAttribute")
	}
}

func TestSelfComparison(t *testing.T) {
	values := map[string]any{
		"S": "abc",
		"N": 12.25,
		"B": true,
	}
	ctx := condition.MustContext(condition.Bind("E", entity.NewMapSource(values)))
	for _, text := range []string{`E.S = "abc"`, `E.N = 12.25`, `E.B = true`} {
		result, err := condition.Evaluate(mustParse(t, text, "E"), ctx)
		if err != nil || !result {
			t.Errorf("%s: expected true, got %v, %v", text, result, err)
		}
	}
	for _, text := range []string{`E.S = 1`, `E.N = "12.25"`, `E.B = "true"`} {
		_, err := condition.Evaluate(mustParse(t, text, "E"), ctx)
		var typeErr *condition.TypeError
		if !errors.As(err, &typeErr) {
			t.Errorf("%s: expected TypeError, got %v", text, err)
		}
	}
}
