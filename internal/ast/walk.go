package ast

// WalkFields calls fn for every FieldFilter in the tree, depth first, in
// condition order.
func WalkFields(node FilterNode, fn func(*FieldFilter)) {
	switch n := node.(type) {
	case *FieldFilter:
		fn(n)
	case *LogicalFilter:
		for _, c := range n.Conditions {
			WalkFields(c, fn)
		}
	}
}

// FilterFields returns every field referenced in the tree in occurrence
// order. A field used twice appears twice.
func FilterFields(node FilterNode) []string {
	var fields []string
	WalkFields(node, func(f *FieldFilter) {
		fields = append(fields, f.Field)
	})
	return fields
}

// Depth returns the nesting depth of the tree. A nil tree has depth 0 and
// a lone FieldFilter has depth 1.
func Depth(node FilterNode) int {
	switch n := node.(type) {
	case *FieldFilter:
		return 1
	case *LogicalFilter:
		max := 0
		for _, c := range n.Conditions {
			if d := Depth(c); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 0
	}
}
