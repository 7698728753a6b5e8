// Package security enforces an access-control policy over a QueryAST:
// field and operator allowlists and a page size ceiling.
//
// Validation never mutates its input. When the limit has to be capped the
// result carries an adjusted copy of the AST.
package security

import (
	"fmt"
	"strconv"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// Result is the outcome of Validate.
//
// AST is returned even when OK is false so callers can log what was
// rejected; the orchestrator discards it in that case.
type Result struct {
	OK       bool
	AST      *ast.QueryAST
	Errors   ast.Issues
	Warnings ast.Issues
}

// Validate checks q against cfg.
//
// Fields are checked on three surfaces independently: the selection, every
// field referenced in the filter, and every sort key. Each disallowed
// occurrence yields one FIELD_NOT_ALLOWED error; traversal never stops
// early. Each field filter using an operator outside the allowlist yields
// OPERATOR_NOT_ALLOWED. A limit above MaxLimit is capped with a
// LIMIT_CAPPED warning and is never an error on its own.
func Validate(q *ast.QueryAST, cfg *ResolvedConfig) Result {
	if cfg == nil {
		cfg = Resolve(Config{})
	}
	if q == nil {
		return Result{OK: true}
	}

	v := &validator{cfg: cfg}
	out := q.Clone()

	v.validateSelection(out.Fields)
	v.validateFilter(out.Filter, "filter")
	v.validateSort(out.Sort)

	limit := ValidateLimit(out.Pagination.Limit, cfg.MaxLimit)
	if limit.Capped {
		out.Pagination.Limit = limit.Limit
		v.warnings = append(v.warnings, limit.Warning)
	}
	if cfg.MaxOffset > 0 && out.Pagination.Offset > cfg.MaxOffset {
		v.fail(ast.CodeLimitExceeded, "offset", "page",
			fmt.Sprintf("offset %d exceeds maximum %d", out.Pagination.Offset, cfg.MaxOffset))
	}

	return Result{
		OK:       len(v.errors) == 0,
		AST:      out,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// LimitResult is the outcome of ValidateLimit.
type LimitResult struct {
	Limit   int
	Capped  bool
	Warning ast.Issue
}

// ValidateLimit returns min(limit, maxLimit). Warning is set only when the
// limit was capped.
func ValidateLimit(limit, maxLimit int) LimitResult {
	if maxLimit <= 0 || limit <= maxLimit {
		return LimitResult{Limit: limit}
	}
	return LimitResult{
		Limit:  maxLimit,
		Capped: true,
		Warning: ast.Issue{
			Stage:   ast.StageSecurity,
			Code:    ast.CodeLimitCapped,
			Field:   "limit",
			Message: fmt.Sprintf("limit %d capped to %d", limit, maxLimit),
			Path:    "limit",
			Details: map[string]any{
				"originalValue": limit,
				"cappedValue":   maxLimit,
			},
		},
	}
}

// validator accumulates issues during traversal.
type validator struct {
	cfg      *ResolvedConfig
	errors   ast.Issues
	warnings ast.Issues
}

func (v *validator) fail(code ast.Code, field, path, message string) {
	v.errors = append(v.errors, ast.Issue{
		Stage:   ast.StageSecurity,
		Code:    code,
		Field:   field,
		Message: message,
		Path:    path,
	})
}

func (v *validator) checkField(field, path string) {
	if !v.cfg.FieldAllowed(field) {
		v.fail(ast.CodeFieldNotAllowed, field, path, fmt.Sprintf("field %q is not allowed", field))
	}
}

func (v *validator) validateSelection(fields []string) {
	for i, f := range fields {
		v.checkField(f, "fields."+strconv.Itoa(i))
	}
}

func (v *validator) validateSort(specs []ast.SortSpec) {
	for i, s := range specs {
		v.checkField(s.Field, "sort."+strconv.Itoa(i))
	}
}

// validateFilter walks the tree once, checking the field and the operator
// of every leaf.
func (v *validator) validateFilter(node ast.FilterNode, path string) {
	switch n := node.(type) {
	case *ast.FieldFilter:
		leafPath := path + "." + n.Field
		v.checkField(n.Field, leafPath)
		if !v.cfg.OperatorAllowed(n.Operator) {
			v.fail(ast.CodeOperatorNotAllowed, n.Field, leafPath+"."+string(n.Operator),
				fmt.Sprintf("operator %q is not allowed", n.Operator))
		}
	case *ast.LogicalFilter:
		for i, c := range n.Conditions {
			v.validateFilter(c, path+"."+string(n.Operator)+"."+strconv.Itoa(i))
		}
	}
}
