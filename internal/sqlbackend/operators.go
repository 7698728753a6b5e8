package sqlbackend

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/compiler"
)

type builder = compiler.PredicateBuilder[Column, Expr]

// operators returns the predicate table for a dialect. Every operator is
// implemented for every dialect; only the SQL differs.
func operators(d Dialect) map[ast.FilterOperator]builder {
	return map[ast.FilterOperator]builder{
		ast.OpEq:  compare("="),
		ast.OpNe:  compare("<>"),
		ast.OpLt:  compare("<"),
		ast.OpLte: compare("<="),
		ast.OpGt:  compare(">"),
		ast.OpGte: compare(">="),

		ast.OpEqi: foldCompare(d, "="),
		ast.OpNei: foldCompare(d, "<>"),

		ast.OpIn:    membership(false),
		ast.OpNotIn: membership(true),

		ast.OpContains:    contains(d, false),
		ast.OpNotContains: contains(d, true),
		ast.OpContainsi:    containsFold(d, false),
		ast.OpNotContainsi: containsFold(d, true),
		ast.OpStartsWith:   startsWith(d),
		ast.OpEndsWith:     endsWith(d),

		ast.OpNull:    nullity(true),
		ast.OpNotNull: nullity(false),

		ast.OpBetween: between,
	}
}

func compare(sym string) builder {
	return func(col Column, v any) (Expr, error) {
		val, err := scalar(v)
		if err != nil {
			return Expr{}, err
		}
		return Expr{SQL: col.Ident + " " + sym + " ?", Args: []any{val}}, nil
	}
}

// foldCompare compares ignoring case.
func foldCompare(d Dialect, sym string) builder {
	return func(col Column, v any) (Expr, error) {
		val, err := scalar(v)
		if err != nil {
			return Expr{}, err
		}
		if d == SQLite {
			return Expr{SQL: col.Ident + " " + sym + " ? COLLATE NOCASE", Args: []any{val}}, nil
		}
		return Expr{SQL: "LOWER(" + col.Ident + ") " + sym + " LOWER(?)", Args: []any{val}}, nil
	}
}

// membership builds IN / NOT IN. An empty list matches nothing (IN) or
// everything (NOT IN).
func membership(negate bool) builder {
	return func(col Column, v any) (Expr, error) {
		list, ok := asList(v)
		if !ok {
			return Expr{}, fmt.Errorf("%s expects a list of values, got %T", opName(negate, "in", "notIn"), v)
		}
		if len(list) == 0 {
			if negate {
				return Expr{SQL: "1 = 1"}, nil
			}
			return Expr{SQL: "1 = 0"}, nil
		}
		for _, item := range list {
			if _, err := scalar(item); err != nil {
				return Expr{}, err
			}
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(list)), ", ")
		kw := " IN ("
		if negate {
			kw = " NOT IN ("
		}
		return Expr{SQL: col.Ident + kw + placeholders + ")", Args: list}, nil
	}
}

// contains is case sensitive. SQLite's LIKE folds ASCII case, so it uses
// instr instead; MySQL needs LIKE BINARY.
func contains(d Dialect, negate bool) builder {
	return func(col Column, v any) (Expr, error) {
		s, err := text(v)
		if err != nil {
			return Expr{}, err
		}
		switch d {
		case SQLite:
			cmp := " > 0"
			if negate {
				cmp = " = 0"
			}
			return Expr{SQL: "instr(" + col.Ident + ", ?)" + cmp, Args: []any{s}}, nil
		case MySQL:
			return Expr{SQL: col.Ident + notKw(negate) + " LIKE BINARY ?", Args: []any{"%" + escapeLike(s) + "%"}}, nil
		default:
			return Expr{SQL: col.Ident + notKw(negate) + " LIKE ?", Args: []any{"%" + escapeLike(s) + "%"}}, nil
		}
	}
}

func containsFold(d Dialect, negate bool) builder {
	return func(col Column, v any) (Expr, error) {
		s, err := text(v)
		if err != nil {
			return Expr{}, err
		}
		pattern := "%" + escapeLike(s) + "%"
		switch d {
		case SQLite:
			return Expr{SQL: col.Ident + notKw(negate) + ` LIKE ? ESCAPE '\'`, Args: []any{pattern}}, nil
		case Postgres:
			return Expr{SQL: col.Ident + notKw(negate) + " ILIKE ?", Args: []any{pattern}}, nil
		default:
			return Expr{SQL: "LOWER(" + col.Ident + ")" + notKw(negate) + " LIKE LOWER(?)", Args: []any{pattern}}, nil
		}
	}
}

func startsWith(d Dialect) builder {
	return func(col Column, v any) (Expr, error) {
		s, err := text(v)
		if err != nil {
			return Expr{}, err
		}
		switch d {
		case SQLite:
			return Expr{SQL: "instr(" + col.Ident + ", ?) = 1", Args: []any{s}}, nil
		case MySQL:
			return Expr{SQL: col.Ident + " LIKE BINARY ?", Args: []any{escapeLike(s) + "%"}}, nil
		default:
			return Expr{SQL: col.Ident + " LIKE ?", Args: []any{escapeLike(s) + "%"}}, nil
		}
	}
}

func endsWith(d Dialect) builder {
	return func(col Column, v any) (Expr, error) {
		s, err := text(v)
		if err != nil {
			return Expr{}, err
		}
		switch d {
		case SQLite:
			return Expr{
				SQL:  "substr(" + col.Ident + ", length(" + col.Ident + ") - length(?) + 1) = ?",
				Args: []any{s, s},
			}, nil
		case MySQL:
			return Expr{SQL: col.Ident + " LIKE BINARY ?", Args: []any{"%" + escapeLike(s)}}, nil
		default:
			return Expr{SQL: col.Ident + " LIKE ?", Args: []any{"%" + escapeLike(s)}}, nil
		}
	}
}

// nullity builds IS NULL / IS NOT NULL. A false value flips the check, so
// {null: false} reads as "is not null".
func nullity(isNull bool) builder {
	return func(col Column, v any) (Expr, error) {
		want := isNull
		if b, ok := v.(bool); ok && !b {
			want = !want
		}
		if want {
			return Expr{SQL: col.Ident + " IS NULL"}, nil
		}
		return Expr{SQL: col.Ident + " IS NOT NULL"}, nil
	}
}

func between(col Column, v any) (Expr, error) {
	pair, ok := asList(v)
	if !ok || len(pair) != 2 {
		return Expr{}, fmt.Errorf("between expects two values, got %v", v)
	}
	for _, item := range pair {
		if _, err := scalar(item); err != nil {
			return Expr{}, err
		}
	}
	return Expr{SQL: col.Ident + " BETWEEN ? AND ?", Args: pair}, nil
}

// scalar rejects lists and objects where one value is expected.
func scalar(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Func, reflect.Chan:
		return nil, fmt.Errorf("expected a single value, got %T", v)
	}
	return v, nil
}

func text(v any) (string, error) {
	val, err := scalar(v)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", fmt.Errorf("expected text, got null")
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprint(val), nil
}

func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// escapeLike escapes LIKE wildcards with a backslash.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func notKw(negate bool) string {
	if negate {
		return " NOT"
	}
	return ""
}

func opName(negate bool, pos, neg string) string {
	if negate {
		return neg
	}
	return pos
}
