package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/asofdevlab/qbjs/internal/security"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
)

// Scenario is one request run through the pipeline.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect is a sqlbackend dialect name. Default: sqlite.
	Dialect string `yaml:"dialect,omitempty"`

	// Table describes the columns the backend resolves.
	Table TableDef `yaml:"table"`

	// Policy is a CUE or YAML policy file. Relative paths resolve against
	// the scenario file's directory.
	Policy string `yaml:"policy,omitempty"`

	// Security is an inline policy, used when Policy is empty.
	Security *security.Config `yaml:"security,omitempty"`

	// Setup statements run against a fresh in-memory SQLite database
	// before the compiled query is executed.
	Setup []string `yaml:"setup,omitempty"`

	// Query is the raw request query string.
	Query string `yaml:"query"`

	Assertions []Assertion `yaml:"assertions"`
}

// TableDef mirrors sqlbackend.Table.
type TableDef struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// Assertion checks one aspect of a Result.
type Assertion struct {
	Type string `yaml:"type"`

	// Codes is used by error_codes and warning_codes.
	Codes []string `yaml:"codes,omitempty"`

	// Text is used by sql_contains.
	Text string `yaml:"text,omitempty"`

	// Count is used by row_count.
	Count int `yaml:"count,omitempty"`

	// Column and Values are used by column_values.
	Column string `yaml:"column,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertErrorCodes   = "error_codes"
	AssertWarningCodes = "warning_codes"
	AssertSQLContains  = "sql_contains"
	AssertRowCount     = "row_count"
	AssertColumnValues = "column_values"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Policy != "" && !filepath.IsAbs(scenario.Policy) {
		scenario.Policy = filepath.Join(filepath.Dir(path), scenario.Policy)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Table.Name == "" {
		return fmt.Errorf("table.name is required")
	}
	if len(s.Table.Columns) == 0 {
		return fmt.Errorf("table.columns must be non-empty")
	}
	if s.Dialect != "" {
		if _, err := sqlbackend.DialectByName(s.Dialect); err != nil {
			return err
		}
	}
	if s.Policy != "" && s.Security != nil {
		return fmt.Errorf("policy and security are mutually exclusive")
	}
	if s.Policy != "" {
		if _, err := os.Stat(s.Policy); os.IsNotExist(err) {
			return fmt.Errorf("policy file not found: %s", s.Policy)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Setup) > 0); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, hasSetup bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertErrorCodes, AssertWarningCodes:
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	case AssertRowCount, AssertColumnValues:
		if !hasSetup {
			return fmt.Errorf("assertions[%d]: %s requires setup statements", index, a.Type)
		}
		if a.Type == AssertRowCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
		if a.Type == AssertColumnValues && a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for column_values", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
