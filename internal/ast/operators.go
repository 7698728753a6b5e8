package ast

import "strings"

// FilterOperator is the closed set of field comparison operators.
type FilterOperator string

const (
	OpEq           FilterOperator = "eq"
	OpEqi          FilterOperator = "eqi"
	OpNe           FilterOperator = "ne"
	OpNei          FilterOperator = "nei"
	OpLt           FilterOperator = "lt"
	OpLte          FilterOperator = "lte"
	OpGt           FilterOperator = "gt"
	OpGte          FilterOperator = "gte"
	OpIn           FilterOperator = "in"
	OpNotIn        FilterOperator = "notIn"
	OpContains     FilterOperator = "contains"
	OpContainsi    FilterOperator = "containsi"
	OpNotContains  FilterOperator = "notContains"
	OpNotContainsi FilterOperator = "notContainsi"
	OpStartsWith   FilterOperator = "startsWith"
	OpEndsWith     FilterOperator = "endsWith"
	OpNull         FilterOperator = "null"
	OpNotNull      FilterOperator = "notNull"
	OpBetween      FilterOperator = "between"
)

var allOperators = []FilterOperator{
	OpEq, OpEqi, OpNe, OpNei,
	OpLt, OpLte, OpGt, OpGte,
	OpIn, OpNotIn,
	OpContains, OpContainsi, OpNotContains, OpNotContainsi,
	OpStartsWith, OpEndsWith,
	OpNull, OpNotNull,
	OpBetween,
}

var operatorSet = func() map[FilterOperator]struct{} {
	m := make(map[FilterOperator]struct{}, len(allOperators))
	for _, op := range allOperators {
		m[op] = struct{}{}
	}
	return m
}()

// AllOperators returns every FilterOperator in declaration order.
// The returned slice is a copy.
func AllOperators() []FilterOperator {
	out := make([]FilterOperator, len(allOperators))
	copy(out, allOperators)
	return out
}

// Valid reports whether op belongs to the operator set.
func (op FilterOperator) Valid() bool {
	_, ok := operatorSet[op]
	return ok
}

// TakesList reports whether the operator expects a list value.
func (op FilterOperator) TakesList() bool {
	return op == OpIn || op == OpNotIn || op == OpBetween
}

// ParseOperator resolves an operator token. A leading "$" is accepted so
// that "$eq" and "eq" are the same operator.
func ParseOperator(s string) (FilterOperator, bool) {
	op := FilterOperator(strings.TrimPrefix(s, "$"))
	if !op.Valid() {
		return "", false
	}
	return op, true
}

// LogicalOperator combines child filter nodes.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
	LogicalNot LogicalOperator = "not"
)

// ParseLogical resolves a logical operator token, accepting a leading "$".
func ParseLogical(s string) (LogicalOperator, bool) {
	switch op := LogicalOperator(strings.TrimPrefix(s, "$")); op {
	case LogicalAnd, LogicalOr, LogicalNot:
		return op, true
	default:
		return "", false
	}
}

// SortDirection orders a SortSpec.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// ParseDirection maps a direction token to a SortDirection. Unknown or
// empty tokens resolve to Asc; ok is false in that case.
func ParseDirection(s string) (dir SortDirection, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return Asc, true
	case "desc":
		return Desc, true
	default:
		return Asc, false
	}
}
