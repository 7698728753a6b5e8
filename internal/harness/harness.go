package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/builder"
	"github.com/asofdevlab/qbjs/internal/policy"
	"github.com/asofdevlab/qbjs/internal/security"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
	"github.com/asofdevlab/qbjs/internal/store"
	"github.com/asofdevlab/qbjs/internal/testutil"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Statement is the rendered query. Empty when the pipeline stopped
	// before compilation.
	Statement sqlbackend.Statement

	Errors   ast.Issues
	Warnings ast.Issues

	// Rows holds query output when the scenario has setup statements.
	Rows []store.Row

	// Failures lists failed assertions.
	Failures []string
}

// Run executes a scenario.
//
// Each scenario with setup statements runs in a fresh in-memory SQLite
// database for isolation. Request IDs are deterministic.
func Run(scenario *Scenario) (*Result, error) {
	dialect := sqlbackend.SQLite
	if scenario.Dialect != "" {
		d, err := sqlbackend.DialectByName(scenario.Dialect)
		if err != nil {
			return nil, err
		}
		dialect = d
	}

	cfg, err := scenarioSecurity(scenario)
	if err != nil {
		return nil, err
	}

	backend := sqlbackend.New(dialect, sqlbackend.Table{
		Name:    scenario.Table.Name,
		Columns: scenario.Table.Columns,
	})
	b := builder.New(backend,
		builder.WithSecurity(security.Resolve(cfg)),
		builder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		builder.WithIDGenerator(testutil.NewSequenceIDGenerator(scenario.Name)),
	)

	out := b.ExecuteQueryString(scenario.Query)
	result := &Result{Errors: out.Errors, Warnings: out.Warnings}

	if out.Query != nil {
		stmt, err := backend.Render(*out.Query)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Statement = stmt
	}

	if len(scenario.Setup) > 0 {
		if dialect != sqlbackend.SQLite {
			return nil, fmt.Errorf("setup statements require the sqlite dialect, got %s", dialect)
		}
		rows, err := execute(scenario.Setup, result.Statement)
		if err != nil {
			return nil, err
		}
		result.Rows = rows
	}

	for _, a := range scenario.Assertions {
		if msg := check(a, result); msg != "" {
			result.Failures = append(result.Failures, msg)
		}
	}
	result.Pass = len(result.Failures) == 0
	return result, nil
}

func scenarioSecurity(s *Scenario) (security.Config, error) {
	if s.Policy != "" {
		cfg, err := policy.Load(s.Policy)
		if err != nil {
			return security.Config{}, fmt.Errorf("load policy: %w", err)
		}
		return cfg, nil
	}
	if s.Security != nil {
		return *s.Security, nil
	}
	return security.Config{}, nil
}

// execute runs setup and then stmt. A stopped pipeline yields no rows.
func execute(setup []string, stmt sqlbackend.Statement) ([]store.Row, error) {
	st, err := store.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i, s := range setup {
		if err := st.Exec(ctx, s); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	if stmt.SQL == "" {
		return []store.Row{}, nil
	}
	return st.Find(ctx, stmt)
}

// check returns a failure message, or "" when the assertion holds.
func check(a Assertion, r *Result) string {
	switch a.Type {
	case AssertErrorCodes:
		return compareCodes("errors", a.Codes, r.Errors)
	case AssertWarningCodes:
		return compareCodes("warnings", a.Codes, r.Warnings)
	case AssertSQLContains:
		if !strings.Contains(r.Statement.SQL, a.Text) {
			return fmt.Sprintf("sql %q does not contain %q", r.Statement.SQL, a.Text)
		}
	case AssertRowCount:
		if len(r.Rows) != a.Count {
			return fmt.Sprintf("row_count: want %d, got %d", a.Count, len(r.Rows))
		}
	case AssertColumnValues:
		got := make([]any, 0, len(r.Rows))
		for _, row := range r.Rows {
			got = append(got, normalize(row[a.Column]))
		}
		want := make([]any, 0, len(a.Values))
		for _, v := range a.Values {
			want = append(want, normalize(v))
		}
		if !reflect.DeepEqual(want, got) {
			return fmt.Sprintf("column_values %s: want %v, got %v", a.Column, want, got)
		}
	}
	return ""
}

func compareCodes(label string, want []string, got ast.Issues) string {
	gotCodes := make([]string, 0, len(got))
	for _, c := range got.Codes() {
		gotCodes = append(gotCodes, string(c))
	}
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(want, gotCodes) {
		return fmt.Sprintf("%s: want %v, got %v", label, want, gotCodes)
	}
	return ""
}

// normalize maps YAML and driver integers onto int64 so they compare equal.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
	}
	return v
}
