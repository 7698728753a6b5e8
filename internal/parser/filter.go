package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// parseFilter is the entry point of the recursive descent. Anything other
// than an object is rejected.
func (p *parser) parseFilter(raw any) ast.FilterNode {
	m, ok := raw.(map[string]any)
	if !ok {
		p.fail(ast.CodeInvalidValue, "", KeyFilter, fmt.Sprintf("filter must be an object, got %T", raw))
		return nil
	}
	return p.parseObject(m, KeyFilter, 1)
}

// parseObject handles one filter object. Every key contributes a node;
// several keys combine into an implicit and, taken in sorted key order.
func (p *parser) parseObject(m map[string]any, path string, depth int) ast.FilterNode {
	if depth > p.cfg.maxDepth {
		if !p.depthExceeded {
			p.depthExceeded = true
			p.fail(ast.CodeExceededLimit, "", path, fmt.Sprintf("filter nesting exceeds %d levels", p.cfg.maxDepth))
		}
		return nil
	}

	keys := sortedKeys(m)
	nodes := make([]ast.FilterNode, 0, len(keys))
	for _, key := range keys {
		if node := p.parseKey(key, m[key], path+"."+key, depth); node != nil {
			nodes = append(nodes, node)
		}
	}

	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		return ast.And(nodes...)
	}
}

func (p *parser) parseKey(key string, value any, path string, depth int) ast.FilterNode {
	if op, ok := ast.ParseLogical(key); ok {
		return p.parseLogical(op, value, path, depth)
	}
	return p.parseField(key, value, path)
}

// parseLogical accepts an array, an array-like object with numeric keys,
// or a single object that is treated as a one element array.
func (p *parser) parseLogical(op ast.LogicalOperator, value any, path string, depth int) ast.FilterNode {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case map[string]any:
		if list, ok := numericList(v); ok {
			items = list
		} else {
			items = []any{v}
		}
	default:
		p.fail(ast.CodeInvalidValue, "", path, fmt.Sprintf("%s expects an object or an array, got %T", op, value))
		return nil
	}

	conditions := make([]ast.FilterNode, 0, len(items))
	for i, item := range items {
		itemPath := path + "." + strconv.Itoa(i)
		m, ok := item.(map[string]any)
		if !ok {
			p.fail(ast.CodeInvalidValue, "", itemPath, fmt.Sprintf("%s condition must be an object, got %T", op, item))
			continue
		}
		if node := p.parseObject(m, itemPath, depth+1); node != nil {
			conditions = append(conditions, node)
		}
	}
	if len(conditions) == 0 {
		return nil
	}
	return &ast.LogicalFilter{Operator: op, Conditions: conditions}
}

// parseField reads {operator: value, ...} for one field. A bare value is
// shorthand for eq. If any operator is unknown the whole field is dropped.
func (p *parser) parseField(field string, value any, path string) ast.FilterNode {
	if !p.checkFieldName(field, path) {
		return nil
	}

	ops, ok := value.(map[string]any)
	if !ok {
		return ast.Field(field, ast.OpEq, value)
	}

	filters := make([]ast.FilterNode, 0, len(ops))
	invalid := false
	for _, key := range sortedKeys(ops) {
		op, ok := ast.ParseOperator(key)
		if !ok {
			invalid = true
			p.fail(ast.CodeInvalidOperator, field, path+"."+key, fmt.Sprintf("unknown operator %q on field %q", key, field))
			continue
		}
		filters = append(filters, ast.Field(field, op, normalizeValue(op, ops[key])))
	}

	switch {
	case invalid || len(filters) == 0:
		return nil
	case len(filters) == 1:
		return filters[0]
	default:
		return ast.And(filters...)
	}
}

// normalizeValue shapes operator values: list operators get a []any
// (comma separated strings are split) and nullity operators get a bool.
func normalizeValue(op ast.FilterOperator, v any) any {
	switch op {
	case ast.OpIn, ast.OpNotIn, ast.OpBetween:
		switch val := v.(type) {
		case []any:
			return val
		case map[string]any:
			if list, ok := numericList(val); ok {
				return list
			}
			return val
		case string:
			parts := strings.Split(val, ",")
			list := make([]any, 0, len(parts))
			for _, part := range parts {
				list = append(list, strings.TrimSpace(part))
			}
			return list
		case nil:
			return []any{}
		default:
			return []any{val}
		}
	case ast.OpNull, ast.OpNotNull:
		switch val := v.(type) {
		case bool:
			return val
		case string:
			switch strings.ToLower(strings.TrimSpace(val)) {
			case "false", "0":
				return false
			}
			return true
		default:
			return true
		}
	default:
		return v
	}
}

// numericList turns an object whose keys are all non-negative integers into
// a list ordered by key.
func numericList(m map[string]any) ([]any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	type entry struct {
		idx   int
		value any
	}
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, false
		}
		entries = append(entries, entry{idx: idx, value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e.value
	}
	return list, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
