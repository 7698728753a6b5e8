// Package compiler turns a QueryAST into a backend query by walking it
// against a Backend.
//
// Compilation never aborts. Unknown columns, unsupported operators and
// malformed values are recorded as issues and the offending fragment is
// left out, so the result is always a best-effort query plus the list of
// what was dropped.
package compiler

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// Query is the compiled, backend specific query.
type Query[P, O any] struct {
	// Columns selects named columns. nil selects all columns.
	Columns map[string]bool

	Limit  int
	Offset int

	OrderBy []O

	// Where is nil when there is no restriction.
	Where *P
}

// Result is the outcome of Compile.
type Result[P, O any] struct {
	Query    Query[P, O]
	Errors   ast.Issues
	Warnings ast.Issues
}

// Compile walks q against backend.
func Compile[C, P, O any](q *ast.QueryAST, backend Backend[C, P, O]) Result[P, O] {
	c := &compilation[C, P, O]{backend: backend}
	if q == nil {
		return Result[P, O]{}
	}

	query := Query[P, O]{
		Columns: c.compileColumns(q.Fields),
		Limit:   q.Pagination.Limit,
		Offset:  q.Pagination.Offset,
		OrderBy: c.compileOrder(q.Sort),
	}
	if pred, ok := c.compileNode(q.Filter, "filter"); ok {
		query.Where = &pred
	}

	return Result[P, O]{Query: query, Errors: c.errors, Warnings: c.warnings}
}

// compilation accumulates issues for one Compile call.
type compilation[C, P, O any] struct {
	backend  Backend[C, P, O]
	errors   ast.Issues
	warnings ast.Issues
}

func (c *compilation[C, P, O]) fail(code ast.Code, field, path, message string) {
	c.errors = append(c.errors, ast.Issue{
		Stage:   ast.StageCompile,
		Code:    code,
		Field:   field,
		Message: message,
		Path:    path,
	})
}

func (c *compilation[C, P, O]) unknownColumn(field, path string) {
	c.fail(ast.CodeUnknownColumn, field, path, fmt.Sprintf("unknown column %q", field))
}

// compileColumns keeps resolvable fields. If none resolve the selection
// falls back to all columns with a COLUMN_IGNORED warning.
func (c *compilation[C, P, O]) compileColumns(fields []string) map[string]bool {
	if fields == nil {
		return nil
	}

	columns := make(map[string]bool, len(fields))
	for i, f := range fields {
		if _, ok := c.backend.ResolveColumn(f); !ok {
			c.unknownColumn(f, "fields."+strconv.Itoa(i))
			continue
		}
		columns[f] = true
	}

	if len(columns) == 0 {
		c.warnings = append(c.warnings, ast.Issue{
			Stage:   ast.StageCompile,
			Code:    ast.CodeColumnIgnored,
			Message: "no requested field is a known column, selecting all columns",
			Path:    "fields",
		})
		return nil
	}
	return columns
}

func (c *compilation[C, P, O]) compileOrder(specs []ast.SortSpec) []O {
	order := make([]O, 0, len(specs))
	for i, s := range specs {
		col, ok := c.backend.ResolveColumn(s.Field)
		if !ok {
			c.unknownColumn(s.Field, "sort."+strconv.Itoa(i))
			continue
		}
		if s.Direction == ast.Desc {
			order = append(order, c.backend.Desc(col))
		} else {
			order = append(order, c.backend.Asc(col))
		}
	}
	return order
}

// compileNode returns ok=false when the node compiles to nothing.
func (c *compilation[C, P, O]) compileNode(node ast.FilterNode, path string) (P, bool) {
	var zero P
	switch n := node.(type) {
	case *ast.FieldFilter:
		return c.compileField(n, path+"."+n.Field)
	case *ast.LogicalFilter:
		return c.compileLogical(n, path+"."+string(n.Operator))
	default:
		return zero, false
	}
}

func (c *compilation[C, P, O]) compileField(f *ast.FieldFilter, path string) (P, bool) {
	var zero P

	col, ok := c.backend.ResolveColumn(f.Field)
	if !ok {
		c.unknownColumn(f.Field, path)
		return zero, false
	}

	build, ok := c.backend.PredicateFor(f.Operator)
	if !ok || build == nil {
		c.fail(ast.CodeUnsupportedOperator, f.Field, path+"."+string(f.Operator),
			fmt.Sprintf("operator %q is not supported by this backend", f.Operator))
		return zero, false
	}

	value := f.Value
	if f.Operator == ast.OpBetween {
		pair, ok := asPair(value)
		if !ok {
			c.fail(ast.CodeTypeMismatch, f.Field, path+"."+string(f.Operator),
				fmt.Sprintf("between expects two values, got %v", value))
			return zero, false
		}
		value = pair
	}

	pred, err := build(col, value)
	if err != nil {
		c.fail(ast.CodeTypeMismatch, f.Field, path+"."+string(f.Operator), err.Error())
		return zero, false
	}
	return pred, true
}

// compileLogical folds surviving children. A single survivor of and / or
// is returned unwrapped. not negates the conjunction of its children.
func (c *compilation[C, P, O]) compileLogical(l *ast.LogicalFilter, path string) (P, bool) {
	var zero P

	preds := make([]P, 0, len(l.Conditions))
	for i, cond := range l.Conditions {
		if p, ok := c.compileNode(cond, path+"."+strconv.Itoa(i)); ok {
			preds = append(preds, p)
		}
	}
	if len(preds) == 0 {
		return zero, false
	}

	switch l.Operator {
	case ast.LogicalAnd:
		if len(preds) == 1 {
			return preds[0], true
		}
		return c.backend.And(preds...), true
	case ast.LogicalOr:
		if len(preds) == 1 {
			return preds[0], true
		}
		return c.backend.Or(preds...), true
	case ast.LogicalNot:
		if len(preds) == 1 {
			return c.backend.Not(preds[0]), true
		}
		return c.backend.Not(c.backend.And(preds...)), true
	default:
		return zero, false
	}
}

// asPair accepts any two element slice or array.
func asPair(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Len() != 2 {
		return nil, false
	}
	return []any{rv.Index(0).Interface(), rv.Index(1).Interface()}, true
}
