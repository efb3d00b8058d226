package domain

import "strings"

var joinModifiers = map[string]bool{
	"NATURAL": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"INNER": true, "CROSS": true, "OUTER": true,
}

var whereBoundaries = map[string]bool{
	"GROUP BY": true, "ORDER BY": true, "LIMIT": true, "HAVING": true,
	"UNION": true, "EXCEPT": true, "INTERSECT": true, "RETURNING": true,
	"WINDOW": true, "OFFSET": true, "FETCH": true, "FOR": true,
}

var comparisonOps = map[string]bool{
	"=": true, "<": true, ">": true, "<=": true, ">=": true, "<>": true, "!=": true,
}

var valueKeywords = map[string]bool{
	"NULL": true, "TRUE": true, "FALSE": true, "CURRENT_DATE": true,
	"CURRENT_TIME": true, "CURRENT_TIMESTAMP": true, "LOCALTIME": true, "LOCALTIMESTAMP": true,
}

// IsJoinKeyword reports whether n is a (possibly merged) join keyword such as
// JOIN or LEFT OUTER JOIN.
func IsJoinKeyword(n *Node) bool {
	return n.Kind == KindKeyword && strings.HasSuffix(n.Upper(), "JOIN")
}

// IsComparisonOp reports whether n is a comparison operator or LIKE/ILIKE.
func IsComparisonOp(n *Node) bool {
	return (n.Kind == KindOperator && comparisonOps[n.Text]) || n.IsKeyword("LIKE", "ILIKE")
}

// Group builds the token tree for src from its lexed leaves. Leaves must be
// in source order with comments already removed.
func Group(src string, leaves []*Node) *Node {
	leaves = mergeKeywords(leaves)

	root := &Node{Kind: KindScript, Text: src, Start: 0, End: len(src)}
	var cur []*Node
	flush := func() {
		if len(cur) == 0 {
			return
		}
		items := groupLevel(src, groupParens(src, cur))
		root.Children = append(root.Children, newGroup(src, KindStatement, items))
		cur = nil
	}
	depth := 0
	for _, l := range leaves {
		cur = append(cur, l)
		switch {
		case l.IsPunct("("):
			depth++
		case l.IsPunct(")") && depth > 0:
			depth--
		case l.IsPunct(";") && depth == 0:
			flush()
		}
	}
	flush()
	return root
}

// mergeKeywords folds multi-word keywords (LEFT OUTER JOIN, GROUP BY, ...)
// into single keyword leaves with single-spaced text.
func mergeKeywords(leaves []*Node) []*Node {
	out := make([]*Node, 0, len(leaves))
	for i := 0; i < len(leaves); i++ {
		l := leaves[i]
		if l.Kind != KindKeyword {
			out = append(out, l)
			continue
		}
		if joinModifiers[l.Upper()] {
			j := i
			for j < len(leaves) && leaves[j].Kind == KindKeyword && joinModifiers[leaves[j].Upper()] {
				j++
			}
			if j < len(leaves) && leaves[j].Is(KindKeyword, "JOIN") {
				out = append(out, mergeLeaves(leaves[i:j+1]))
				i = j
				continue
			}
		}
		if l.Is(KindKeyword, "GROUP", "ORDER", "PARTITION") && i+1 < len(leaves) && leaves[i+1].Is(KindKeyword, "BY") {
			out = append(out, mergeLeaves(leaves[i:i+2]))
			i++
			continue
		}
		out = append(out, l)
	}
	return out
}

func mergeLeaves(parts []*Node) *Node {
	words := make([]string, len(parts))
	for i, p := range parts {
		words[i] = p.Text
	}
	return NewLeaf(KindKeyword, strings.Join(words, " "), parts[0].Start, parts[len(parts)-1].End)
}

// groupParens nests bracketed token runs into parenthesis groups. An
// unbalanced opening bracket is closed at the end of the statement.
func groupParens(src string, leaves []*Node) []*Node {
	var stack [][]*Node
	cur := []*Node{}
	for _, l := range leaves {
		switch {
		case l.IsPunct("("):
			stack = append(stack, cur)
			cur = []*Node{l}
		case l.IsPunct(")") && len(stack) > 0:
			cur = append(cur, l)
			p := closeParen(src, cur)
			cur = append(stack[len(stack)-1], p)
			stack = stack[:len(stack)-1]
		default:
			cur = append(cur, l)
		}
	}
	for len(stack) > 0 {
		p := closeParen(src, cur)
		cur = append(stack[len(stack)-1], p)
		stack = stack[:len(stack)-1]
	}
	return cur
}

func closeParen(src string, items []*Node) *Node {
	open := items[0]
	inner := items[1:]
	var closing *Node
	if len(inner) > 0 && inner[len(inner)-1].IsPunct(")") {
		closing = inner[len(inner)-1]
		inner = inner[:len(inner)-1]
	}
	children := append([]*Node{open}, groupLevel(src, inner)...)
	if closing != nil {
		children = append(children, closing)
	}
	return newGroup(src, KindParenthesis, children)
}

func groupLevel(src string, items []*Node) []*Node {
	items = groupIdentifiers(src, items)
	items = groupComparisons(src, items)
	items = groupWhere(src, items)
	items = groupIdentifierLists(src, items)
	return items
}

// groupIdentifiers wraps names, dotted names and function calls into
// identifier groups and attaches aliases and sort directions.
func groupIdentifiers(src string, items []*Node) []*Node {
	var out []*Node
	for i := 0; i < len(items); i++ {
		n := items[i]
		if n.Kind != KindName {
			out = append(out, n)
			continue
		}
		parts := []*Node{n}
		for i+2 < len(items) && items[i+1].IsPunct(".") &&
			(items[i+2].Kind == KindName || items[i+2].Kind == KindWildcard) {
			parts = append(parts, items[i+1], items[i+2])
			i += 2
		}
		id := newGroup(src, KindIdentifier, parts)
		if i+1 < len(items) && items[i+1].Kind == KindParenthesis {
			fn := newGroup(src, KindFunction, []*Node{id, items[i+1]})
			id = newGroup(src, KindIdentifier, []*Node{fn})
			i++
		}
		out = append(out, id)
	}
	return groupAliases(src, out)
}

func aliasable(n *Node) bool {
	switch n.Kind {
	case KindIdentifier, KindParenthesis, KindLiteral, KindPlaceholder:
		return true
	}
	return false
}

// bareName reports whether n is an identifier made of a single name token.
func bareName(n *Node) bool {
	return n.Kind == KindIdentifier && len(n.Children) == 1 && n.Children[0].Kind == KindName
}

func groupAliases(src string, items []*Node) []*Node {
	var out []*Node
	for i := 0; i < len(items); i++ {
		n := items[i]
		if !aliasable(n) {
			out = append(out, n)
			continue
		}
		var children []*Node
		if n.Kind == KindIdentifier {
			children = append(children, n.Children...)
		} else {
			children = append(children, n)
		}
		extended := false
		switch {
		case i+2 < len(items) && items[i+1].IsKeyword("AS") && bareName(items[i+2]):
			children = append(children, items[i+1], items[i+2].Children[0])
			i += 2
			extended = true
		case i+1 < len(items) && bareName(items[i+1]):
			children = append(children, items[i+1].Children[0])
			i++
			extended = true
		}
		if i+1 < len(items) && items[i+1].IsKeyword("ASC", "DESC") {
			children = append(children, items[i+1])
			i++
			extended = true
		}
		if i+2 < len(items) && items[i+1].IsKeyword("NULLS") && items[i+2].IsKeyword("FIRST", "LAST") {
			children = append(children, items[i+1], items[i+2])
			i += 2
			extended = true
		}
		if extended {
			n = newGroup(src, KindIdentifier, children)
		}
		out = append(out, n)
	}
	return out
}

func operand(n *Node) bool {
	switch n.Kind {
	case KindIdentifier, KindLiteral, KindPlaceholder, KindParenthesis, KindFunction:
		return true
	case KindKeyword:
		return valueKeywords[n.Upper()]
	}
	return false
}

// groupComparisons folds "operand op operand" runs, including NOT LIKE and
// a signed right-hand literal.
func groupComparisons(src string, items []*Node) []*Node {
	var out []*Node
	for i := 0; i < len(items); i++ {
		n := items[i]
		if !operand(n) || i+2 >= len(items) {
			out = append(out, n)
			continue
		}
		j := i + 1
		if items[j].IsKeyword("NOT") && j+1 < len(items) && items[j+1].IsKeyword("LIKE", "ILIKE") {
			j++
		}
		if !IsComparisonOp(items[j]) || j+1 >= len(items) {
			out = append(out, n)
			continue
		}
		k := j + 1
		if items[k].Is(KindOperator, "-", "+") && k+1 < len(items) && items[k+1].Kind == KindLiteral {
			k++
		}
		if !operand(items[k]) {
			out = append(out, n)
			continue
		}
		out = append(out, newGroup(src, KindComparison, items[i:k+1]))
		i = k
	}
	return out
}

// groupWhere folds each WHERE keyword and the tokens up to the next clause
// boundary into a where group.
func groupWhere(src string, items []*Node) []*Node {
	var out []*Node
	for i := 0; i < len(items); i++ {
		n := items[i]
		if !n.Is(KindKeyword, "WHERE") {
			out = append(out, n)
			continue
		}
		j := i + 1
		for j < len(items) && !whereBoundary(items[j]) {
			j++
		}
		out = append(out, newGroup(src, KindWhere, items[i:j]))
		i = j - 1
	}
	return out
}

func whereBoundary(n *Node) bool {
	return (n.Kind == KindKeyword && whereBoundaries[n.Upper()]) || n.IsPunct(";")
}

func listable(n *Node) bool {
	switch n.Kind {
	case KindIdentifier, KindFunction, KindLiteral, KindPlaceholder, KindWildcard,
		KindParenthesis, KindComparison:
		return true
	case KindKeyword:
		return valueKeywords[n.Upper()]
	}
	return false
}

// groupIdentifierLists folds comma separated runs of list members.
func groupIdentifierLists(src string, items []*Node) []*Node {
	var out []*Node
	for i := 0; i < len(items); i++ {
		n := items[i]
		if !listable(n) || i+2 >= len(items) || !items[i+1].IsPunct(",") || !listable(items[i+2]) {
			out = append(out, n)
			continue
		}
		j := i
		for j+2 < len(items) && items[j+1].IsPunct(",") && listable(items[j+2]) {
			j += 2
		}
		out = append(out, newGroup(src, KindIdentifierList, items[i:j+1]))
		i = j
	}
	return out
}
