package ast

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNode_SealedKinds(t *testing.T) {
	var nodes []FilterNode = []FilterNode{
		Field("status", OpEq, "active"),
		And(Field("a", OpEq, 1)),
	}

	assert.Equal(t, "field", nodes[0].Kind())
	assert.Equal(t, "logical", nodes[1].Kind())
}

func TestPaginationFormula(t *testing.T) {
	for page := 1; page <= 6; page++ {
		for limit := 1; limit <= 25; limit += 4 {
			offset := OffsetFromPage(page, limit)
			assert.Equal(t, (page-1)*limit, offset)
			assert.Equal(t, page, PageFromOffset(offset, limit),
				"page %d limit %d", page, limit)
		}
	}
}

func TestPageFromOffset_NormalizesToPageBoundary(t *testing.T) {
	p := Pagination{Offset: 15, Limit: 10}
	assert.Equal(t, 2, p.Page())
	assert.Equal(t, 10, OffsetFromPage(p.Page(), p.Limit))

	assert.Equal(t, 1, PageFromOffset(0, 0))
	assert.Equal(t, 1, OffsetFromPage(0, 10)+1)
}

func TestOffsetFromPage_NeverNegative(t *testing.T) {
	edge := math.MaxInt/100 + 1
	assert.True(t, PageInRange(edge, 100))
	assert.Equal(t, (edge-1)*100, OffsetFromPage(edge, 100))

	assert.False(t, PageInRange(edge+1, 100))
	assert.Equal(t, math.MaxInt, OffsetFromPage(edge+1, 100))
	assert.Equal(t, math.MaxInt, OffsetFromPage(math.MaxInt, math.MaxInt))

	assert.Equal(t, 0, OffsetFromPage(5, 0))
	assert.Equal(t, 0, OffsetFromPage(5, -10))
	assert.Equal(t, 0, OffsetFromPage(-3, 10))
}

func TestClone_IsDeep(t *testing.T) {
	orig := &QueryAST{
		Fields:     []string{"id", "name"},
		Pagination: Pagination{Offset: 10, Limit: 10},
		Sort:       []SortSpec{{Field: "name", Direction: Asc}},
		Filter: And(
			Field("status", OpIn, []any{"a", "b"}),
			Not(Field("role", OpEq, "admin")),
		),
	}

	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.Fields[0] = "changed"
	cp.Sort[0].Direction = Desc
	cp.Pagination.Limit = 99
	cp.Filter.(*LogicalFilter).Conditions[0].(*FieldFilter).Value.([]any)[0] = "z"

	assert.Equal(t, "id", orig.Fields[0])
	assert.Equal(t, Asc, orig.Sort[0].Direction)
	assert.Equal(t, 10, orig.Pagination.Limit)
	assert.Equal(t, "a", orig.Filter.(*LogicalFilter).Conditions[0].(*FieldFilter).Value.([]any)[0])
}

func TestClone_Nil(t *testing.T) {
	var q *QueryAST
	assert.Nil(t, q.Clone())
	assert.Nil(t, CloneFilter(nil))
}

func TestFilterFields_OccurrenceOrder(t *testing.T) {
	tree := Or(
		Field("status", OpEq, "a"),
		And(Field("role", OpEq, "b"), Field("status", OpNe, "c")),
	)

	assert.Equal(t, []string{"status", "role", "status"}, FilterFields(tree))
	assert.Nil(t, FilterFields(nil))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(nil))
	assert.Equal(t, 1, Depth(Field("a", OpEq, 1)))
	assert.Equal(t, 3, Depth(And(Field("a", OpEq, 1), Or(Field("b", OpEq, 2)))))
}

func TestParseOperator(t *testing.T) {
	for _, op := range AllOperators() {
		got, ok := ParseOperator(string(op))
		require.True(t, ok, op)
		assert.Equal(t, op, got)

		got, ok = ParseOperator("$" + string(op))
		require.True(t, ok, op)
		assert.Equal(t, op, got)
	}

	_, ok := ParseOperator("like")
	assert.False(t, ok)
	_, ok = ParseOperator("and")
	assert.False(t, ok)
	assert.Len(t, AllOperators(), 19)
}

func TestParseLogicalAndDirection(t *testing.T) {
	op, ok := ParseLogical("$or")
	assert.True(t, ok)
	assert.Equal(t, LogicalOr, op)

	_, ok = ParseLogical("eq")
	assert.False(t, ok)

	dir, ok := ParseDirection("DESC")
	assert.True(t, ok)
	assert.Equal(t, Desc, dir)

	dir, ok = ParseDirection("sideways")
	assert.False(t, ok)
	assert.Equal(t, Asc, dir)
}

func TestIssues(t *testing.T) {
	issues := Issues{
		{Stage: StageParse, Code: CodeInvalidOperator, Field: "status", Message: "unknown operator \"like\"", Path: "filter.status.like"},
		{Stage: StageSecurity, Code: CodeFieldNotAllowed, Field: "secret", Message: "field not allowed"},
	}

	assert.Equal(t, []Code{CodeInvalidOperator, CodeFieldNotAllowed}, issues.Codes())
	assert.True(t, issues.Has(CodeFieldNotAllowed))
	assert.False(t, issues.Has(CodeUnknownColumn))
	assert.Len(t, issues.WithCode(CodeInvalidOperator), 1)

	err := issues.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_OPERATOR")
	assert.Contains(t, err.Error(), "field=secret")
	assert.True(t, IsCode(err, CodeFieldNotAllowed))
	assert.False(t, IsCode(err, CodeTypeMismatch))
	assert.False(t, IsCode(fmt.Errorf("plain"), CodeTypeMismatch))

	assert.NoError(t, Issues(nil).Err())
}
