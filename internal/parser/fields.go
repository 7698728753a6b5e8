package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// parseFields splits a comma separated field list. Empty input yields nil
// (all fields).
func (p *parser) parseFields(raw any) []string {
	tokens, ok := p.tokens(raw, KeyFields)
	if !ok {
		return nil
	}

	var fields []string
	for _, tok := range tokens {
		if !p.checkFieldName(tok, KeyFields) {
			continue
		}
		fields = append(fields, tok)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// tokens flattens a string or a list of strings into trimmed, non-empty
// comma separated tokens.
func (p *parser) tokens(raw any, key string) ([]string, bool) {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil, false
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				p.warn(ast.CodeFieldIgnored, "", fmt.Sprintf("%s.%d", key, i), fmt.Sprintf("%s entry must be a string", key))
				continue
			}
			parts = append(parts, strings.Split(s, ",")...)
		}
	case []string:
		for _, s := range v {
			parts = append(parts, strings.Split(s, ",")...)
		}
	default:
		p.warn(ast.CodeFieldIgnored, "", key, fmt.Sprintf("%s must be a string", key))
		return nil, false
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, len(out) > 0
}

// parsePagination resolves page and limit independently, then derives the
// offset. Invalid values fall back to the defaults with a warning.
func (p *parser) parsePagination(rawPage, rawLimit any) ast.Pagination {
	page := p.positiveInt(rawPage, KeyPage, p.cfg.defaultPage)
	limit := p.positiveInt(rawLimit, KeyLimit, p.cfg.defaultLimit)
	if !ast.PageInRange(page, limit) {
		p.warn(ast.CodeDefaultApplied, KeyPage, KeyPage,
			fmt.Sprintf("page %d is out of range for limit %d, using default %d", page, limit, p.cfg.defaultPage))
		page = p.cfg.defaultPage
	}
	return ast.Pagination{
		Offset: ast.OffsetFromPage(page, limit),
		Limit:  limit,
	}
}

func (p *parser) positiveInt(raw any, key string, def int) int {
	if raw == nil {
		return def
	}
	if n, ok := toPositiveInt(raw); ok {
		return n
	}
	p.warn(ast.CodeDefaultApplied, key, key, fmt.Sprintf("invalid %s %v, using default %d", key, raw, def))
	return def
}

func toPositiveInt(raw any) (int, bool) {
	var n int
	switch v := raw.(type) {
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		n = i
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, false
		}
		n = int(v)
	default:
		return 0, false
	}
	return n, n > 0
}

// parseSort reads "field[:direction]" tokens. The token is split on the
// last colon, so "meta:created:desc" sorts field "meta:created".
func (p *parser) parseSort(raw any) []ast.SortSpec {
	tokens, ok := p.tokens(raw, KeySort)
	if !ok {
		return []ast.SortSpec{}
	}

	specs := make([]ast.SortSpec, 0, len(tokens))
	for _, tok := range tokens {
		field, dir := tok, ast.Asc
		if idx := strings.LastIndex(tok, ":"); idx >= 0 {
			field = strings.TrimSpace(tok[:idx])
			dir, _ = ast.ParseDirection(tok[idx+1:])
		}
		if field == "" {
			p.warn(ast.CodeFieldIgnored, "", KeySort, fmt.Sprintf("sort token %q has no field", tok))
			continue
		}
		if !p.checkFieldName(field, KeySort) {
			continue
		}
		specs = append(specs, ast.SortSpec{Field: field, Direction: dir})
	}
	return specs
}
