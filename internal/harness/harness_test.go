package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "failures: %v", result.Failures)
		})
	}
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "assertions that do not hold",
		Table:       TableDef{Name: "users", Columns: []string{"id"}},
		Query:       "fields=id",
		Assertions: []Assertion{
			{Type: AssertErrorCodes, Codes: []string{"UNKNOWN_COLUMN"}},
			{Type: AssertSQLContains, Text: "WHERE"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Failures, 2)
	assert.Equal(t, `SELECT "id" FROM "users" LIMIT 10 OFFSET 0`, result.Statement.SQL)
}

func TestRun_SetupRequiresSQLite(t *testing.T) {
	s := &Scenario{
		Name:       "pg_setup",
		Dialect:    "postgres",
		Table:      TableDef{Name: "users", Columns: []string{"id"}},
		Setup:      []string{"CREATE TABLE users (id INTEGER)"},
		Assertions: []Assertion{{Type: AssertRowCount}},
	}
	_, err := Run(s)
	assert.Error(t, err)
}

func TestRun_StoppedPipelineReturnsNoRows(t *testing.T) {
	s := &Scenario{
		Name:  "stopped",
		Table: TableDef{Name: "users", Columns: []string{"id"}},
		Setup: []string{
			"CREATE TABLE users (id INTEGER)",
			"INSERT INTO users VALUES (1)",
		},
		Query:      "filter=oops",
		Assertions: []Assertion{{Type: AssertRowCount, Count: 0}},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Failures)
	assert.Empty(t, result.Statement.SQL)
}

func TestSnapshot_Format(t *testing.T) {
	s := &Scenario{
		Name:       "snap",
		Table:      TableDef{Name: "t", Columns: []string{"a"}},
		Query:      "limit=0&filter[a][in]=1,2",
		Assertions: []Assertion{{Type: AssertErrorCodes}},
	}
	result, err := Run(s)
	require.NoError(t, err)

	want := "-- sql\n" +
		`SELECT "a" FROM "t" WHERE "a" IN (?, ?) LIMIT 10 OFFSET 0` + "\n" +
		"-- args\n1\n2\n" +
		"-- errors\n" +
		"-- warnings\nDEFAULT_APPLIED limit\n"
	assert.Equal(t, want, string(Snapshot(result)))
}

func TestLoadScenario_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "name: x\ndescription: d\ntable: {name: t, columns: [a]}\nquery: ''\nassertion: []\n"},
		{"missing name", "description: d\ntable: {name: t, columns: [a]}\nassertions: [{type: error_codes}]\n"},
		{"missing table", "name: x\ndescription: d\nassertions: [{type: error_codes}]\n"},
		{"bad dialect", "name: x\ndescription: d\ndialect: oracle\ntable: {name: t, columns: [a]}\nassertions: [{type: error_codes}]\n"},
		{"unknown assertion", "name: x\ndescription: d\ntable: {name: t, columns: [a]}\nassertions: [{type: nope}]\n"},
		{"row_count without setup", "name: x\ndescription: d\ntable: {name: t, columns: [a]}\nassertions: [{type: row_count}]\n"},
		{"missing policy", "name: x\ndescription: d\ntable: {name: t, columns: [a]}\npolicy: nope.yaml\nassertions: [{type: error_codes}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(write(tt.name+".yaml", tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadScenario(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_ResolvesPolicyPath(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/limit_capped_postgres.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "policies", "users.yaml"), s.Policy)
}
