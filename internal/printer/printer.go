// Package printer serializes a QueryAST back into request parameters.
//
// Printing is the inverse of parsing up to normalization: the offset is
// expressed as a page, so parse(print(ast)) moves the offset to the start
// of the page that contained it. Printed parameters are used for
// debugging, canonical cache keys and building follow-up links.
package printer

import (
	"strconv"
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/parser"
	"github.com/asofdevlab/qbjs/internal/qs"
)

// DefaultMaxDepth bounds filter serialization. It matches the parser's
// limit so printed output always parses again.
const DefaultMaxDepth = parser.DefaultMaxDepth

// Params is the printed, still nested, parameter map.
type Params map[string]any

type config struct {
	maxDepth int
}

// Option configures Print.
type Option func(*config)

// WithMaxDepth drops filter nodes nested deeper than depth.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// Print maps an AST to parameters: fields, page, limit, sort and filter.
// Parts that carry no information (all fields, no sort, no filter) are
// omitted.
func Print(q *ast.QueryAST, opts ...Option) Params {
	cfg := config{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	params := Params{}
	if q == nil {
		return params
	}

	if len(q.Fields) > 0 {
		params["fields"] = strings.Join(q.Fields, ",")
	}
	if q.Pagination.Limit > 0 {
		params["page"] = q.Pagination.Page()
		params["limit"] = q.Pagination.Limit
	}
	if len(q.Sort) > 0 {
		tokens := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			dir := s.Direction
			if dir == "" {
				dir = ast.Asc
			}
			tokens = append(tokens, s.Field+":"+string(dir))
		}
		params["sort"] = strings.Join(tokens, ",")
	}
	if filter := printNode(q.Filter, 1, cfg.maxDepth); filter != nil {
		params["filter"] = filter
	}
	return params
}

// PrintQueryString encodes Print's output in bracket notation.
func PrintQueryString(q *ast.QueryAST, opts ...Option) string {
	return qs.Encode(Print(q, opts...))
}

// printNode returns nil for nodes that print to nothing.
func printNode(node ast.FilterNode, depth, maxDepth int) map[string]any {
	if depth > maxDepth {
		return nil
	}

	switch n := node.(type) {
	case *ast.FieldFilter:
		if n.Field == "" {
			return nil
		}
		return map[string]any{
			n.Field: map[string]any{string(n.Operator): printValue(n.Value)},
		}
	case *ast.LogicalFilter:
		conditions := make([]any, 0, len(n.Conditions))
		for _, c := range n.Conditions {
			if printed := printNode(c, depth+1, maxDepth); printed != nil {
				conditions = append(conditions, printed)
			}
		}
		if len(conditions) == 0 {
			return nil
		}
		return map[string]any{string(n.Operator): conditions}
	default:
		return nil
	}
}

// printValue copies list values so callers cannot alias the AST.
func printValue(v any) any {
	switch val := v.(type) {
	case []any:
		return append([]any(nil), val...)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = strconv.Itoa(n)
		}
		return out
	default:
		return val
	}
}
