package sqlbackend

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects identifier quoting, placeholder style and the SQL used
// for case sensitive and case insensitive text operators.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// Dialects lists the supported dialects.
var Dialects = []Dialect{SQLite, Postgres, MySQL}

// DialectByName resolves a dialect name. "sqlite3", "postgresql" and "pg"
// are accepted aliases.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unknown dialect %q: must be one of %v", name, Dialects)
	}
}

// Driver returns the database/sql driver name registered for the dialect.
func (d Dialect) Driver() string {
	switch d {
	case SQLite:
		return "sqlite3"
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return string(d)
	}
}

// Quote quotes an identifier.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Rebind rewrites "?" placeholders into the dialect's style. Only Postgres
// differs ($1, $2, ...). Identifiers never contain "?" and values are
// never inlined, so every "?" is a placeholder.
func (d Dialect) Rebind(sql string) string {
	if d != Postgres || !strings.Contains(sql, "?") {
		return sql
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(sql[i])
	}
	return b.String()
}
