// Package ast defines the backend-neutral query representation produced by
// the parser and consumed by the security validator and compiler.
//
// The AST is the abstraction boundary between request parameters and query
// engines:
//
//	[request params] → [QueryAST] → [security] → [compiler] → [backend]
//
// FilterNode is a sealed interface using the marker method pattern. Only
// *FieldFilter and *LogicalFilter implement it, so stages can switch over
// node types exhaustively:
//
//	switch n := node.(type) {
//	case *FieldFilter:
//	    // leaf: field operator value
//	case *LogicalFilter:
//	    // and / or / not over Conditions
//	}
//
// A QueryAST is created once per request. Later stages replace it (see
// Clone) rather than mutating it, so a value handed to another goroutine
// or stored in a cache is never written to again.
//
// Every stage reports failures as data using Issue. An Issue carries the
// stage that produced it, a stable code, the offending field, a message,
// and a path into the input (for example "filter.and.1.status").
package ast
