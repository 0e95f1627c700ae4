package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Expected error kinds of a scenario.
const (
	ExpectParseError   = "parse"
	ExpectBindingError = "binding"
	ExpectTypeError    = "type"
)

type ScenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is one check. It runs in exactly one of three modes:
//   - entities: a single evaluation against the named entities;
//   - records: a filter over inline records bound to one entity;
//   - query: a filter over the rows of a PostgreSQL query.
type Scenario struct {
	Name      string `yaml:"name"`
	Condition string `yaml:"condition"`

	// Implicit names the single entity of a condition written with bare
	// attribute names. Otherwise Declare lists the entity names the
	// condition may qualify attributes with; it defaults to the entity
	// names of Entities.
	Implicit string   `yaml:"implicit"`
	Declare  []string `yaml:"declare"`

	Entities map[string]map[string]any `yaml:"entities"`
	Records  []map[string]any          `yaml:"records"`
	Query    string                    `yaml:"query"`

	Expect        *bool  `yaml:"expect"`
	ExpectMatches []int  `yaml:"expect_matches"`
	ExpectCount   *int   `yaml:"expect_count"`
	ExpectError   string `yaml:"expect_error"`
}

func LoadScenarios(path string) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	return ParseScenarios(data)
}

func ParseScenarios(data []byte) (*ScenarioFile, error) {
	file := &ScenarioFile{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}
	var result error
	for i := range file.Scenarios {
		if err := file.Scenarios[i].Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("scenario %d (%s): %w", i, file.Scenarios[i].Name, err))
		}
	}
	if result != nil {
		return nil, result
	}
	return file, nil
}

func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(s.Condition) == "" {
		return fmt.Errorf("condition is required")
	}

	modes := 0
	for _, set := range []bool{s.Entities != nil, s.Records != nil, s.Query != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 && s.ExpectError != ExpectParseError {
		return fmt.Errorf("exactly one of entities, records or query is required")
	}

	switch s.ExpectError {
	case "", ExpectParseError, ExpectBindingError, ExpectTypeError:
	default:
		return fmt.Errorf("expect_error must be one of: %s, %s, %s", ExpectParseError, ExpectBindingError, ExpectTypeError)
	}
	if s.ExpectError == "" && s.Expect == nil && s.ExpectMatches == nil && s.ExpectCount == nil {
		return fmt.Errorf("an expectation is required")
	}
	if (s.Records != nil || s.Query != "") && s.Implicit == "" && len(s.Declare) != 1 {
		return fmt.Errorf("records and query scenarios bind one entity: set implicit or a single declare")
	}
	return nil
}

// DeclaredEntities returns the entity names a qualified condition is parsed
// against.
func (s *Scenario) DeclaredEntities() []string {
	if len(s.Declare) > 0 {
		return s.Declare
	}
	names := make([]string, 0, len(s.Entities))
	for name := range s.Entities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RecordEntity returns the name each record or row is bound under.
func (s *Scenario) RecordEntity() string {
	if s.Implicit != "" {
		return s.Implicit
	}
	return s.Declare[0]
}
