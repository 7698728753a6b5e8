// Package sqlbackend implements compiler.Backend for SQL engines.
//
// One Backend serves one table in one dialect. Predicates are SQL
// fragments with "?" placeholders; values are always passed as arguments
// and never interpolated. Render assembles the final SELECT statement.
package sqlbackend

import (
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/compiler"
)

// Table describes the columns a request may reference.
type Table struct {
	Name    string
	Columns []string
}

// Column is a resolved, quoted column.
type Column struct {
	Name  string
	Ident string
}

// Expr is a SQL boolean expression with its arguments.
type Expr struct {
	SQL  string
	Args []any
}

// Order is one ORDER BY term.
type Order struct {
	Column Column
	Desc   bool
}

// SQL renders the term.
func (o Order) SQL() string {
	if o.Desc {
		return o.Column.Ident + " DESC"
	}
	return o.Column.Ident + " ASC"
}

// Query is the compiled query type produced for this backend.
type Query = compiler.Query[Expr, Order]

// Backend compiles against one table.
type Backend struct {
	dialect Dialect
	table   Table
	columns map[string]Column
	ops     map[ast.FilterOperator]compiler.PredicateBuilder[Column, Expr]
}

var _ compiler.Backend[Column, Expr, Order] = (*Backend)(nil)

// New builds a backend for table in dialect d.
func New(d Dialect, table Table) *Backend {
	b := &Backend{
		dialect: d,
		table:   table,
		columns: make(map[string]Column, len(table.Columns)),
	}
	for _, name := range table.Columns {
		b.columns[name] = Column{Name: name, Ident: d.Quote(name)}
	}
	b.ops = operators(d)
	return b
}

// Dialect returns the backend's dialect.
func (b *Backend) Dialect() Dialect {
	return b.dialect
}

// Table returns the table description.
func (b *Backend) Table() Table {
	return b.table
}

func (b *Backend) ResolveColumn(name string) (Column, bool) {
	col, ok := b.columns[name]
	return col, ok
}

func (b *Backend) PredicateFor(op ast.FilterOperator) (compiler.PredicateBuilder[Column, Expr], bool) {
	build, ok := b.ops[op]
	return build, ok
}

func (b *Backend) And(preds ...Expr) Expr {
	return join(" AND ", preds)
}

func (b *Backend) Or(preds ...Expr) Expr {
	return join(" OR ", preds)
}

func (b *Backend) Not(pred Expr) Expr {
	return Expr{SQL: "NOT (" + pred.SQL + ")", Args: pred.Args}
}

func (b *Backend) Asc(col Column) Order {
	return Order{Column: col}
}

func (b *Backend) Desc(col Column) Order {
	return Order{Column: col, Desc: true}
}

func join(sep string, preds []Expr) Expr {
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		parts = append(parts, p.SQL)
		args = append(args, p.Args...)
	}
	return Expr{SQL: "(" + strings.Join(parts, sep) + ")", Args: args}
}
