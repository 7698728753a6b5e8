// Package parser builds a QueryAST from request parameters that were
// already decoded into a nested map (see package qs).
//
// Recognized top-level keys are fields, page, limit, sort and filter.
// Failures are reported as ast.Issue values. Per-fragment problems (an
// unknown operator on one field) drop that fragment and keep going;
// whole-input problems (a filter that is not an object) discard the AST.
package parser

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/qs"
)

// Result is the outcome of Parse.
//
// AST is nil when Errors contains a fatal code (INVALID_VALUE,
// SECURITY_VIOLATION, EXCEEDED_LIMIT). Otherwise AST is a best-effort tree
// even if non-fatal errors were recorded.
type Result struct {
	AST      *ast.QueryAST
	Errors   ast.Issues
	Warnings ast.Issues
}

// Top-level parameter names.
const (
	KeyFields = "fields"
	KeyPage   = "page"
	KeyLimit  = "limit"
	KeySort   = "sort"
	KeyFilter = "filter"
)

var knownKeys = map[string]bool{
	KeyFields: true,
	KeyPage:   true,
	KeyLimit:  true,
	KeySort:   true,
	KeyFilter: true,
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// Parse converts decoded request parameters into a QueryAST.
func Parse(input map[string]any, opts ...Option) Result {
	p := &parser{cfg: newConfig(opts)}

	q := &ast.QueryAST{
		Fields:     p.parseFields(input[KeyFields]),
		Pagination: p.parsePagination(input[KeyPage], input[KeyLimit]),
		Sort:       p.parseSort(input[KeySort]),
	}
	if raw, ok := input[KeyFilter]; ok && raw != nil {
		q.Filter = p.parseFilter(raw)
	}

	unknown := make([]string, 0)
	for k := range input {
		if !knownKeys[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		p.warn(ast.CodeFieldIgnored, k, k, fmt.Sprintf("unknown parameter %q ignored", k))
	}

	res := Result{AST: q, Errors: p.errors, Warnings: p.warnings}
	if p.fatal() {
		res.AST = nil
	}
	return res
}

// ParseQueryString decodes a raw URL query string and parses it.
// A query string that cannot be decoded yields an INVALID_VALUE error.
func ParseQueryString(raw string, opts ...Option) Result {
	input, err := qs.Decode(raw)
	if err != nil {
		return Result{Errors: ast.Issues{{
			Stage:   ast.StageParse,
			Code:    ast.CodeInvalidValue,
			Message: err.Error(),
		}}}
	}
	return Parse(input, opts...)
}

// ParsePagination resolves page and limit with the configured defaults and
// returns the offset based pagination.
func ParsePagination(page, limit any, opts ...Option) ast.Pagination {
	p := &parser{cfg: newConfig(opts)}
	return p.parsePagination(page, limit)
}

// parser accumulates issues during one Parse call.
type parser struct {
	cfg      config
	errors   ast.Issues
	warnings ast.Issues

	depthExceeded bool
}

func (p *parser) fail(code ast.Code, field, path, message string) {
	p.errors = append(p.errors, ast.Issue{
		Stage:   ast.StageParse,
		Code:    code,
		Field:   field,
		Message: message,
		Path:    path,
	})
}

func (p *parser) warn(code ast.Code, field, path, message string) {
	p.warnings = append(p.warnings, ast.Issue{
		Stage:   ast.StageParse,
		Code:    code,
		Field:   field,
		Message: message,
		Path:    path,
	})
}

// fatal reports whether a recorded error invalidates the whole AST.
func (p *parser) fatal() bool {
	for _, e := range p.errors {
		switch e.Code {
		case ast.CodeInvalidValue, ast.CodeSecurityViolation, ast.CodeExceededLimit:
			return true
		}
	}
	return false
}

// checkFieldName records a SECURITY_VIOLATION for names outside the
// identifier alphabet.
func (p *parser) checkFieldName(field, path string) bool {
	if fieldNamePattern.MatchString(field) {
		return true
	}
	p.fail(ast.CodeSecurityViolation, field, path, fmt.Sprintf("field name %q contains forbidden characters", field))
	return false
}
