package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// Snapshot renders a result as stable text for golden comparison.
//
//	-- sql
//	SELECT ...
//	-- args
//	active
//	-- errors
//	-- warnings
//	LIMIT_CAPPED limit
func Snapshot(r *Result) []byte {
	var b strings.Builder
	b.WriteString("-- sql\n")
	if r.Statement.SQL != "" {
		b.WriteString(r.Statement.SQL)
		b.WriteString("\n")
	}
	b.WriteString("-- args\n")
	for _, a := range r.Statement.Args {
		fmt.Fprintf(&b, "%v\n", a)
	}
	b.WriteString("-- errors\n")
	for _, i := range r.Errors {
		writeIssue(&b, i)
	}
	b.WriteString("-- warnings\n")
	for _, i := range r.Warnings {
		writeIssue(&b, i)
	}
	return []byte(b.String())
}

func writeIssue(b *strings.Builder, i ast.Issue) {
	b.WriteString(string(i.Code))
	if i.Path != "" {
		b.WriteString(" ")
		b.WriteString(i.Path)
	}
	b.WriteString("\n")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
