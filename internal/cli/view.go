package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// ASTView is the JSON shape of a QueryAST.
type ASTView struct {
	Fields []string   `json:"fields"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
	Sort   []SortView `json:"sort"`
	Filter *NodeView  `json:"filter"`
}

// SortView is one sort key.
type SortView struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// NodeView is a filter node. Logical nodes carry Conditions, field nodes
// carry Field, Operator and Value.
type NodeView struct {
	Kind       string      `json:"kind"`
	Operator   string      `json:"operator"`
	Field      string      `json:"field,omitempty"`
	Value      any         `json:"value,omitempty"`
	Conditions []*NodeView `json:"conditions,omitempty"`
}

func viewAST(q *ast.QueryAST) *ASTView {
	if q == nil {
		return nil
	}
	v := &ASTView{
		Fields: q.Fields,
		Offset: q.Pagination.Offset,
		Limit:  q.Pagination.Limit,
		Sort:   make([]SortView, 0, len(q.Sort)),
		Filter: viewNode(q.Filter),
	}
	for _, s := range q.Sort {
		v.Sort = append(v.Sort, SortView{Field: s.Field, Direction: string(s.Direction)})
	}
	return v
}

func viewNode(n ast.FilterNode) *NodeView {
	switch n := n.(type) {
	case *ast.FieldFilter:
		return &NodeView{Kind: n.Kind(), Operator: string(n.Operator), Field: n.Field, Value: n.Value}
	case *ast.LogicalFilter:
		v := &NodeView{Kind: n.Kind(), Operator: string(n.Operator)}
		for _, c := range n.Conditions {
			v.Conditions = append(v.Conditions, viewNode(c))
		}
		return v
	default:
		return nil
	}
}

// writeAST prints an indented, human readable tree.
func writeAST(w io.Writer, q *ast.QueryAST) {
	fields := "*"
	if q.Fields != nil {
		fields = strings.Join(q.Fields, ", ")
	}
	fmt.Fprintf(w, "fields: %s\n", fields)
	fmt.Fprintf(w, "offset: %d\n", q.Pagination.Offset)
	fmt.Fprintf(w, "limit:  %d\n", q.Pagination.Limit)

	if len(q.Sort) > 0 {
		keys := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			keys = append(keys, s.Field+" "+string(s.Direction))
		}
		fmt.Fprintf(w, "sort:   %s\n", strings.Join(keys, ", "))
	}

	if q.Filter != nil {
		fmt.Fprintln(w, "filter:")
		writeNode(w, q.Filter, 1)
	}
}

func writeNode(w io.Writer, n ast.FilterNode, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *ast.FieldFilter:
		fmt.Fprintf(w, "%s%s %s %v\n", indent, n.Field, n.Operator, n.Value)
	case *ast.LogicalFilter:
		fmt.Fprintf(w, "%s%s\n", indent, n.Operator)
		for _, c := range n.Conditions {
			writeNode(w, c, depth+1)
		}
	}
}
