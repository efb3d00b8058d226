package domain

import "strings"

// Format renders the leaves of the tree on a single line with canonical
// spacing: one space between tokens, none before `, ; ) . ]` or `::`, none
// after `( . [` or `::`, and none between a name and its call parenthesis.
func Format(n *Node) string {
	var b strings.Builder
	var prev *Node
	for _, l := range Leaves(n) {
		if prev != nil && spaced(prev, l) {
			b.WriteByte(' ')
		}
		b.WriteString(l.Text)
		prev = l
	}
	return b.String()
}

func spaced(prev, next *Node) bool {
	switch {
	case next.IsPunct(",", ";", ")", ".", "]"), next.Is(KindOperator, "::"):
		return false
	case prev.IsPunct("(", ".", "["), prev.Is(KindOperator, "::"):
		return false
	case next.IsPunct("(") && prev.Kind == KindName:
		return false
	}
	return true
}
