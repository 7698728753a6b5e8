package compiler

import "github.com/asofdevlab/qbjs/internal/ast"

// PredicateBuilder builds a backend predicate for one operator applied to
// a resolved column. A returned error is reported as TYPE_MISMATCH.
type PredicateBuilder[C, P any] func(col C, value any) (P, error)

// Backend is the capability interface a query engine implements.
//
// C is the engine's column handle, P its predicate type and O its ordering
// directive. The compiler depends on nothing else.
type Backend[C, P, O any] interface {
	// ResolveColumn maps a request field to a column. ok is false for
	// fields the engine does not know.
	ResolveColumn(name string) (col C, ok bool)

	// PredicateFor returns the builder for op. ok is false when the engine
	// does not implement the operator.
	PredicateFor(op ast.FilterOperator) (builder PredicateBuilder[C, P], ok bool)

	// And, Or and Not combine predicates. And and Or are called with at
	// least two predicates.
	And(preds ...P) P
	Or(preds ...P) P
	Not(pred P) P

	// Asc and Desc build ordering directives.
	Asc(col C) O
	Desc(col C) O
}
