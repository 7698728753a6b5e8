package sqlbackend

import (
	"errors"
	"strconv"
	"strings"
)

// Statement is a rendered SQL statement with its arguments, ready for
// database/sql.
type Statement struct {
	SQL  string
	Args []any
}

// Render assembles a SELECT statement for a compiled query. Selected
// columns follow table order so output is deterministic.
func (b *Backend) Render(q Query) (Statement, error) {
	if b.table.Name == "" {
		return Statement{}, errors.New("render: table name is required")
	}
	if q.Offset < 0 {
		return Statement{}, errors.New("render: offset must not be negative")
	}

	cols := make([]string, 0, len(b.table.Columns))
	for _, name := range b.table.Columns {
		if q.Columns == nil || q.Columns[name] {
			cols = append(cols, b.columns[name].Ident)
		}
	}
	if len(cols) == 0 {
		return Statement{}, errors.New("render: no columns to select")
	}

	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.Quote(b.table.Name))

	if q.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.Where.SQL)
		args = append(args, q.Where.Args...)
	}

	if len(q.OrderBy) > 0 {
		terms := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			terms = append(terms, o.SQL())
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.Offset))
	}

	return Statement{SQL: b.dialect.Rebind(sb.String()), Args: args}, nil
}
