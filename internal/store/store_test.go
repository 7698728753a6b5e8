package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/compiler"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
)

var users = sqlbackend.Table{Name: "users", Columns: []string{"id", "name", "status", "age"}}

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenDialect(sqlbackend.SQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, status TEXT, age INTEGER)`))
	for _, u := range []struct {
		id     int
		name   string
		status string
		age    any
	}{
		{1, "Ada", "active", 36},
		{2, "bob", "inactive", 17},
		{3, "Carol_x", "active", nil},
		{4, "dave", "active", 52},
	} {
		require.NoError(t, s.Exec(ctx, `INSERT INTO users (id, name, status, age) VALUES (?, ?, ?, ?)`,
			u.id, u.name, u.status, u.age))
	}
	return s
}

func find(t *testing.T, s *Store, q *ast.QueryAST) []Row {
	t.Helper()
	b := sqlbackend.New(sqlbackend.SQLite, users)
	res := compiler.Compile[sqlbackend.Column, sqlbackend.Expr, sqlbackend.Order](q, b)
	require.Empty(t, res.Errors)
	stmt, err := b.Render(res.Query)
	require.NoError(t, err)

	rows, err := s.Find(context.Background(), stmt)
	require.NoError(t, err)
	return rows
}

func ids(rows []Row) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["id"].(int64))
	}
	return out
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open("sqlite3", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "sqlite3", s.Driver())
	assert.NotNil(t, s.DB())

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("nope", "")
	assert.Error(t, err)
}

func TestFind_Operators(t *testing.T) {
	s := setupStore(t)
	sorted := []ast.SortSpec{{Field: "id", Direction: ast.Asc}}

	tests := []struct {
		name   string
		filter ast.FilterNode
		want   []int64
	}{
		{"eq", ast.Field("status", ast.OpEq, "active"), []int64{1, 3, 4}},
		{"eqi", ast.Field("name", ast.OpEqi, "ADA"), []int64{1}},
		{"gt string against integer", ast.Field("age", ast.OpGt, "18"), []int64{1, 4}},
		{"between", ast.Field("age", ast.OpBetween, []any{"17", "40"}), []int64{1, 2}},
		{"in", ast.Field("id", ast.OpIn, []any{"2", "4"}), []int64{2, 4}},
		{"notIn empty", ast.Field("id", ast.OpNotIn, []any{}), []int64{1, 2, 3, 4}},
		{"contains is case sensitive", ast.Field("name", ast.OpContains, "A"), []int64{1}},
		{"containsi", ast.Field("name", ast.OpContainsi, "A"), []int64{1, 3, 4}},
		{"containsi escapes wildcards", ast.Field("name", ast.OpContainsi, "_x"), []int64{3}},
		{"notContains", ast.Field("name", ast.OpNotContains, "A"), []int64{2, 3, 4}},
		{"startsWith", ast.Field("name", ast.OpStartsWith, "b"), []int64{2}},
		{"endsWith", ast.Field("name", ast.OpEndsWith, "ve"), []int64{4}},
		{"null", ast.Field("age", ast.OpNull, true), []int64{3}},
		{"notNull", ast.Field("age", ast.OpNotNull, true), []int64{1, 2, 4}},
		{"not folds under and", ast.Not(
			ast.Field("status", ast.OpEq, "active"),
			ast.Field("age", ast.OpGt, 40),
		), []int64{1, 2}},
		{"or", ast.Or(
			ast.Field("id", ast.OpEq, 1),
			ast.Field("id", ast.OpEq, 2),
		), []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := find(t, s, &ast.QueryAST{Filter: tt.filter, Sort: sorted})
			assert.Equal(t, tt.want, ids(rows))
		})
	}
}

func TestFind_PaginationAndSelection(t *testing.T) {
	s := setupStore(t)

	rows := find(t, s, &ast.QueryAST{
		Fields:     []string{"id", "name"},
		Pagination: ast.Pagination{Offset: 1, Limit: 2},
		Sort:       []ast.SortSpec{{Field: "id", Direction: ast.Desc}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, []int64{3, 2}, ids(rows))
	assert.Equal(t, Row{"id": int64(3), "name": "Carol_x"}, rows[0])
}

func TestQuery_ColumnsAndEmpty(t *testing.T) {
	s := setupStore(t)

	rs, err := s.Query(context.Background(), sqlbackend.Statement{
		SQL:  `SELECT "name", "id" FROM "users" WHERE "id" = ?`,
		Args: []any{99},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "id"}, rs.Columns)
	assert.NotNil(t, rs.Rows)
	assert.Empty(t, rs.Rows)
}

func TestFind_BadSQL(t *testing.T) {
	s := setupStore(t)
	_, err := s.Find(context.Background(), sqlbackend.Statement{SQL: "SELECT nope FROM missing"})
	assert.Error(t, err)
}
