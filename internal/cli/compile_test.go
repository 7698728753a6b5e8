package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asofdevlab/qbjs/internal/cache"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
)

func newResults(t *testing.T) *ResultCache {
	t.Helper()
	results := cache.New(cache.Options[SQLResult]{SweepInterval: -1})
	t.Cleanup(results.Close)
	return results
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompile_Text(t *testing.T) {
	out, _, err := execute(t, nil, "compile",
		"--table", "users", "--columns", "id,name,status",
		"fields=id,name&filter[status]=active")
	require.NoError(t, err)

	assert.Contains(t, out, `SELECT "id", "name" FROM "users" WHERE "status" = ? LIMIT 10 OFFSET 0`)
	assert.Contains(t, out, "args: [active]")
}

func TestCompile_JSONServesRepeatsFromCache(t *testing.T) {
	results := newResults(t)

	out, _, err := execute(t, results, "--format", "json", "compile",
		"--table", "users", "--columns", "id,status",
		"filter[status]=active&fields=id",
		"fields=id&filter[status]=active")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []CompileOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)

	assert.False(t, resp.Data[0].Cached)
	assert.True(t, resp.Data[1].Cached)
	assert.Equal(t, resp.Data[0].SQL, resp.Data[1].SQL)
	assert.Equal(t, []any{"active"}, resp.Data[1].Args)

	stats := results.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Size)
}

func TestCompile_PolicyRejection(t *testing.T) {
	policyFile := writeFile(t, "policy.yaml", "allowed_fields: [id]\n")

	out, _, err := execute(t, nil, "compile",
		"--table", "users", "--columns", "id,name",
		"--policy", policyFile,
		"fields=id,name")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FIELD_NOT_ALLOWED")
	assert.NotContains(t, out, "SELECT")
}

func TestCompile_WarningsDoNotFail(t *testing.T) {
	policyFile := writeFile(t, "policy.yaml", "max_limit: 5\n")

	out, _, err := execute(t, nil, "compile",
		"--table", "users", "--columns", "id",
		"--policy", policyFile,
		"limit=50")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 5 OFFSET 0")
	assert.Contains(t, out, "LIMIT_CAPPED")
}

func TestCompile_ConfigFile(t *testing.T) {
	configFile := writeFile(t, "qbjs.yaml", "dialect: postgres\ntable: users\ncolumns: [id, name, status]\n")

	out, _, err := execute(t, nil, "--config", configFile, "compile", "filter[status]=active&filter[name][containsi]=ad")
	require.NoError(t, err)
	assert.Contains(t, out, `("name" ILIKE $1 AND "status" = $2)`)
}

func TestCompile_FlagsOverrideConfig(t *testing.T) {
	configFile := writeFile(t, "qbjs.yaml", "dialect: postgres\ntable: accounts\ncolumns: [id]\n")

	out, _, err := execute(t, nil, "--config", configFile, "compile", "--dialect", "mysql", "sort=id")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT `id` FROM `accounts` ORDER BY `id` ASC")
}

func TestCompile_Environment(t *testing.T) {
	t.Setenv("QBJS_TABLE", "people")
	t.Setenv("QBJS_COLUMNS", "id,name")

	out, _, err := execute(t, nil, "compile", "fields=name")
	require.NoError(t, err)
	assert.Contains(t, out, `SELECT "name" FROM "people"`)
}

func TestCompile_ConfigErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"missing table", []string{"compile", "--columns", "id", "page=1"}},
		{"missing columns", []string{"compile", "--table", "users", "page=1"}},
		{"unknown dialect", []string{"compile", "--dialect", "oracle", "--table", "users", "--columns", "id", "page=1"}},
		{"missing policy", []string{"compile", "--table", "users", "--columns", "id", "--policy", "/nonexistent/policy.yaml", "page=1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, nil, tc.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "status"}, splitList([]string{"id, name", " status ", ""}))
	assert.Nil(t, splitList(nil))
}

func TestTargetDiscriminator(t *testing.T) {
	configFile := writeFile(t, "qbjs.yaml", "dialect: mysql\ntable: users\ncolumns: id,name\n")

	v, err := LoadConfig(configFile)
	require.NoError(t, err)

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	target, err := resolveTarget(v, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "mysql.users", discriminator(sqlbackend.New(target.Dialect, target.Table)))
	assert.Equal(t, []string{"id", "name"}, target.Table.Columns)
}

func TestCompile_VerboseReportsPolicy(t *testing.T) {
	policyFile := writeFile(t, "policy.yaml", "allowed_fields: [id]\nmax_limit: 20\n")

	out, errOut, err := execute(t, nil, "--verbose", "--format", "json", "compile",
		"--table", "users", "--columns", "id",
		"--policy", policyFile,
		"fields=id")
	require.NoError(t, err)
	assert.Contains(t, errOut, "policy: max_limit=20 default_limit=10 fields=[id]")
	assert.NotContains(t, out, "policy:")
}
