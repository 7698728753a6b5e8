package printer

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/parser"
)

func TestPrint(t *testing.T) {
	q := &ast.QueryAST{
		Fields:     []string{"id", "name"},
		Pagination: ast.Pagination{Offset: 20, Limit: 10},
		Sort: []ast.SortSpec{
			{Field: "name", Direction: ast.Asc},
			{Field: "createdAt", Direction: ast.Desc},
		},
		Filter: ast.Or(
			ast.Field("status", ast.OpEq, "active"),
			ast.Field("role", ast.OpIn, []any{"admin", "owner"}),
		),
	}

	assert.Equal(t, Params{
		"fields": "id,name",
		"page":   3,
		"limit":  10,
		"sort":   "name:asc,createdAt:desc",
		"filter": map[string]any{
			"or": []any{
				map[string]any{"status": map[string]any{"eq": "active"}},
				map[string]any{"role": map[string]any{"in": []any{"admin", "owner"}}},
			},
		},
	}, Print(q))
}

func TestPrint_OmitsEmptyParts(t *testing.T) {
	q := &ast.QueryAST{Pagination: ast.Pagination{Offset: 0, Limit: 25}}
	assert.Equal(t, Params{"page": 1, "limit": 25}, Print(q))

	assert.Equal(t, Params{}, Print(nil))
}

func TestPrint_EmptyLogicalCollapses(t *testing.T) {
	q := &ast.QueryAST{
		Pagination: ast.Pagination{Limit: 10},
		Filter: ast.And(
			ast.Or(),
			ast.Field("id", ast.OpEq, "1"),
		),
	}
	assert.Equal(t, map[string]any{
		"and": []any{map[string]any{"id": map[string]any{"eq": "1"}}},
	}, Print(q)["filter"])

	q.Filter = ast.And(ast.Or(), ast.Not())
	_, ok := Print(q)["filter"]
	assert.False(t, ok, "logical nodes without children are dropped")
}

// chain builds a filter of the given depth: and(f1, and(f2, ... leaf)).
func chain(depth int) ast.FilterNode {
	var node ast.FilterNode = ast.Field("leaf", ast.OpEq, "x")
	for i := depth - 1; i >= 1; i-- {
		node = ast.And(ast.Field("f"+strconv.Itoa(i), ast.OpEq, "y"), node)
	}
	return node
}

func TestPrint_DefaultDepthParsesBack(t *testing.T) {
	deepest := &ast.QueryAST{Pagination: ast.Pagination{Limit: 10}, Filter: chain(parser.DefaultMaxDepth)}
	require.Equal(t, parser.DefaultMaxDepth, ast.Depth(deepest.Filter))

	res := parser.Parse(Print(deepest))
	require.Empty(t, res.Errors)
	require.NotNil(t, res.AST)
	assert.Equal(t, deepest.Filter, res.AST.Filter)

	tooDeep := &ast.QueryAST{Pagination: ast.Pagination{Limit: 10}, Filter: chain(parser.DefaultMaxDepth + 1)}
	res = parser.ParseQueryString(PrintQueryString(tooDeep))
	require.Empty(t, res.Errors)
	require.NotNil(t, res.AST)
	assert.Equal(t, parser.DefaultMaxDepth, ast.Depth(res.AST.Filter))
}

func TestPrint_MaxDepth(t *testing.T) {
	q := &ast.QueryAST{
		Pagination: ast.Pagination{Limit: 10},
		Filter: ast.And(
			ast.Field("a", ast.OpEq, "1"),
			ast.Or(ast.Field("b", ast.OpEq, "2")),
		),
	}

	assert.Equal(t, map[string]any{
		"and": []any{map[string]any{"a": map[string]any{"eq": "1"}}},
	}, Print(q, WithMaxDepth(2))["filter"])
}

func TestPrintQueryString(t *testing.T) {
	q := &ast.QueryAST{
		Fields:     []string{"id"},
		Pagination: ast.Pagination{Offset: 10, Limit: 10},
		Sort:       []ast.SortSpec{{Field: "id", Direction: ast.Desc}},
		Filter:     ast.Field("status", ast.OpEq, "active"),
	}

	assert.Equal(t,
		"fields=id&filter%5Bstatus%5D%5Beq%5D=active&limit=10&page=2&sort=id%3Adesc",
		PrintQueryString(q))
}

var roundTripCases = []struct {
	name string
	ast  *ast.QueryAST
}{
	{
		name: "everything",
		ast: &ast.QueryAST{
			Fields:     []string{"id", "name", "email"},
			Pagination: ast.Pagination{Offset: 40, Limit: 20},
			Sort: []ast.SortSpec{
				{Field: "name", Direction: ast.Asc},
				{Field: "id", Direction: ast.Desc},
			},
			Filter: ast.And(
				ast.Field("status", ast.OpEq, "active"),
				ast.Or(
					ast.Field("role", ast.OpIn, []any{"admin", "owner"}),
					ast.Not(ast.Field("deleted", ast.OpNull, true)),
				),
				ast.Field("age", ast.OpBetween, []any{"18", "65"}),
			),
		},
	},
	{
		name: "no filter",
		ast: &ast.QueryAST{
			Pagination: ast.Pagination{Offset: 0, Limit: 10},
			Sort:       []ast.SortSpec{},
		},
	},
	{
		name: "single logical child",
		ast: &ast.QueryAST{
			Pagination: ast.Pagination{Offset: 0, Limit: 5},
			Sort:       []ast.SortSpec{},
			Filter:     ast.Or(ast.Field("name", ast.OpContainsi, "bob")),
		},
	},
}

func TestRoundTrip_Params(t *testing.T) {
	for _, tc := range roundTripCases {
		t.Run(tc.name, func(t *testing.T) {
			res := parser.Parse(Print(tc.ast))
			require.Empty(t, res.Errors)
			require.NotNil(t, res.AST)

			if diff := cmp.Diff(tc.ast, res.AST, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_QueryString(t *testing.T) {
	for _, tc := range roundTripCases {
		t.Run(tc.name, func(t *testing.T) {
			res := parser.ParseQueryString(PrintQueryString(tc.ast))
			require.Empty(t, res.Errors)
			require.NotNil(t, res.AST)

			if diff := cmp.Diff(tc.ast, res.AST, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_OffsetNormalizedToPage(t *testing.T) {
	q := &ast.QueryAST{Pagination: ast.Pagination{Offset: 15, Limit: 10}}

	res := parser.Parse(Print(q))
	require.NotNil(t, res.AST)
	page := ast.PageFromOffset(15, 10)
	assert.Equal(t, ast.Pagination{Offset: (page - 1) * 10, Limit: 10}, res.AST.Pagination)
	assert.Equal(t, 10, res.AST.Pagination.Offset)
}
