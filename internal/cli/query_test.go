package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asofdevlab/qbjs/internal/store"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "app.db")

	st, err := store.Open("sqlite3", dsn)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, status TEXT)`))
	require.NoError(t, st.Exec(ctx, `INSERT INTO users (id, name, status) VALUES
		(1, 'ada', 'active'),
		(2, 'bob', 'banned'),
		(3, 'cy', 'active')`))
	return dsn
}

func TestQuery_Text(t *testing.T) {
	dsn := seedDatabase(t)

	out, _, err := execute(t, nil, "query",
		"--table", "users", "--columns", "id,name,status", "--dsn", dsn,
		"fields=id,name&filter[status]=active&sort=id:desc")
	require.NoError(t, err)

	assert.Contains(t, out, "id  name\n3   cy\n1   ada\n")
	assert.Contains(t, out, "(2 row(s))")
}

func TestQuery_JSON(t *testing.T) {
	dsn := seedDatabase(t)

	out, _, err := execute(t, nil, "--format", "json", "query",
		"--table", "users", "--columns", "id,name,status", "--dsn", dsn,
		"fields=name&filter[name][startsWith]=b")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   QueryOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"name"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "bob", resp.Data.Rows[0]["name"])
}

func TestQuery_Rejected(t *testing.T) {
	dsn := seedDatabase(t)

	out, _, err := execute(t, nil, "query",
		"--table", "users", "--columns", "id", "--dsn", dsn,
		"fields=password")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNKNOWN_COLUMN")
}

func TestQuery_RequiresDSN(t *testing.T) {
	_, _, err := execute(t, nil, "query", "--table", "users", "--columns", "id", "page=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestQuery_MissingTable(t *testing.T) {
	dsn := seedDatabase(t)

	_, _, err := execute(t, nil, "query", "--table", "orders", "--columns", "id", "--dsn", dsn, "page=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
