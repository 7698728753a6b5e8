package ast

import "math"

// FilterNode is a node of the filter tree.
//
// This is a sealed interface - only *FieldFilter and *LogicalFilter
// implement it.
type FilterNode interface {
	// Kind returns "field" or "logical".
	Kind() string

	filterNode() // Marker method - seals interface to this package
}

// FieldFilter compares one field against a value.
//
// Value is whatever the request carried: a string, a number, a bool, nil
// (nullity checks), or a []any for list operators (in, notIn, between).
type FieldFilter struct {
	Field    string
	Operator FilterOperator
	Value    any
}

func (*FieldFilter) Kind() string { return "field" }
func (*FieldFilter) filterNode()  {}

// LogicalFilter combines Conditions with an and / or / not operator.
// Conditions is never empty in a tree produced by the parser.
type LogicalFilter struct {
	Operator   LogicalOperator
	Conditions []FilterNode
}

func (*LogicalFilter) Kind() string { return "logical" }
func (*LogicalFilter) filterNode()  {}

// SortSpec is one ordering key. Position within QueryAST.Sort is significant.
type SortSpec struct {
	Field     string
	Direction SortDirection
}

// Pagination is always offset based. Page based input is converted with
// OffsetFromPage.
type Pagination struct {
	Offset int
	Limit  int
}

// OffsetFromPage converts a 1-based page into an offset. The result is
// never negative; it saturates at math.MaxInt.
func OffsetFromPage(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if !PageInRange(page, limit) {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// PageInRange reports whether the offset of page fits in an int.
func PageInRange(page, limit int) bool {
	if page <= 1 || limit <= 0 {
		return true
	}
	return page-1 <= math.MaxInt/limit
}

// PageFromOffset converts an offset into the 1-based page containing it.
func PageFromOffset(offset, limit int) int {
	if limit <= 0 || offset <= 0 {
		return 1
	}
	return offset/limit + 1
}

// Page returns the 1-based page this pagination starts on.
func (p Pagination) Page() int {
	return PageFromOffset(p.Offset, p.Limit)
}

// QueryAST is the parsed form of one request.
//
//   - Fields nil selects all fields.
//   - Sort empty means no explicit ordering.
//   - Filter nil means no restriction.
type QueryAST struct {
	Fields     []string
	Pagination Pagination
	Sort       []SortSpec
	Filter     FilterNode
}

// Clone returns a deep copy of the AST. List values inside field filters
// are copied; scalar values are shared.
func (q *QueryAST) Clone() *QueryAST {
	if q == nil {
		return nil
	}
	out := &QueryAST{Pagination: q.Pagination}
	if q.Fields != nil {
		out.Fields = append([]string(nil), q.Fields...)
	}
	if q.Sort != nil {
		out.Sort = append([]SortSpec(nil), q.Sort...)
	}
	out.Filter = CloneFilter(q.Filter)
	return out
}

// CloneFilter deep-copies a filter tree.
func CloneFilter(node FilterNode) FilterNode {
	switch n := node.(type) {
	case *FieldFilter:
		cp := *n
		if list, ok := n.Value.([]any); ok {
			cp.Value = append([]any(nil), list...)
		}
		return &cp
	case *LogicalFilter:
		cp := &LogicalFilter{Operator: n.Operator, Conditions: make([]FilterNode, 0, len(n.Conditions))}
		for _, c := range n.Conditions {
			cp.Conditions = append(cp.Conditions, CloneFilter(c))
		}
		return cp
	default:
		return nil
	}
}

// Field is shorthand for building a *FieldFilter.
func Field(field string, op FilterOperator, value any) *FieldFilter {
	return &FieldFilter{Field: field, Operator: op, Value: value}
}

// And builds an and node over conditions.
func And(conditions ...FilterNode) *LogicalFilter {
	return &LogicalFilter{Operator: LogicalAnd, Conditions: conditions}
}

// Or builds an or node over conditions.
func Or(conditions ...FilterNode) *LogicalFilter {
	return &LogicalFilter{Operator: LogicalOr, Conditions: conditions}
}

// Not builds a not node over conditions.
func Not(conditions ...FilterNode) *LogicalFilter {
	return &LogicalFilter{Operator: LogicalNot, Conditions: conditions}
}
