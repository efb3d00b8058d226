package domain

import "strings"

// Analyze extracts the structural summary of the first statement in tree.
// tree must have been built from sql. Clauses the grouping could not
// recognize leave their fields empty.
func Analyze(sql string, tree *Node) KnowledgeEntry {
	entry := NewKnowledgeEntry(sql)
	stmt := tree.FirstStatement()
	if stmt == nil {
		return entry
	}
	items := stmt.Children

	tables := stringSet{}
	collectTables(items, tables)

	columns := stringSet{}
	collectSelectColumns(items, columns)
	where := findWhere(items)
	if where != nil {
		whereColumns(where.Children[1:], columns)
	}
	for t := range tables {
		delete(columns, t)
	}
	delete(columns, "*")

	entry.Tables = tables.sorted()
	entry.Columns = columns.sorted()
	entry.Joins = collectJoins(sql, items)
	if where != nil && len(where.Children) > 1 {
		if f := span(sql, where.Children[1], where.Children[len(where.Children)-1]); f != "" {
			entry.Filters = []string{f}
		}
	}
	entry.GroupBy = clauseItems(items, "GROUP BY")
	entry.OrderBy = clauseItems(items, "ORDER BY")
	return entry
}

// collectTables gathers the names that follow FROM, JOIN, INTO and UPDATE.
// The window stays open across AS, ON, USING and commas and closes at any
// other keyword; ON/USING predicates never contribute tables.
func collectTables(items []*Node, tables stringSet) {
	window, predicate := false, false
	for _, it := range items {
		switch {
		case it.Is(KindKeyword, "FROM", "INTO") || IsJoinKeyword(it) || it.Is(KindDML, "UPDATE"):
			window, predicate = true, false
		case window && it.Is(KindKeyword, "ON", "USING"):
			predicate = true
		case window && (it.Is(KindKeyword, "AS") || it.IsPunct(",")):
		case it.Kind == KindKeyword || it.Kind == KindDML:
			window = false
		case it.Kind == KindWhere:
			window = false
			collectTables(it.Children[1:], tables)
		default:
			if window && !predicate {
				for _, m := range it.Items() {
					addTable(m, tables)
				}
			}
			nestedTables(it, tables)
		}
	}
}

func addTable(n *Node, tables stringSet) {
	if n.Kind != KindIdentifier || n.Base().Kind == KindParenthesis {
		return
	}
	tables.add(n.RealName())
}

// nestedTables collects tables from sub-queries anywhere below n.
func nestedTables(n *Node, tables stringSet) {
	Inspect(n, func(c *Node) bool {
		if c.Kind == KindParenthesis {
			collectTables(c.Inner(), tables)
			return false
		}
		return true
	})
}

var selectBoundaries = map[string]bool{"FROM": true, "INTO": true}

// collectSelectColumns reads the select list between SELECT and FROM.
func collectSelectColumns(items []*Node, cols stringSet) {
	start := -1
	for i, it := range items {
		if it.Is(KindDML, "SELECT") {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}
	for _, it := range items[start+1:] {
		if it.Kind == KindWhere || it.Kind == KindKeyword && (selectBoundaries[it.Upper()] || whereBoundaries[it.Upper()]) {
			return
		}
		selectColumns(it, cols)
	}
}

func selectColumns(n *Node, cols stringSet) {
	switch n.Kind {
	case KindIdentifierList:
		for _, m := range n.Items() {
			selectColumns(m, cols)
		}
	case KindIdentifier:
		if alias := n.Alias(); alias != "" {
			cols.add(alias)
			return
		}
		switch base := n.Base(); base.Kind {
		case KindFunction:
			argColumns(base.Args(), cols)
		case KindName:
			cols.add(n.RealName())
		}
	}
}

// argColumns collects plain column references from function arguments.
func argColumns(nodes []*Node, cols stringSet) {
	for _, n := range nodes {
		switch n.Kind {
		case KindIdentifier:
			switch base := n.Base(); base.Kind {
			case KindFunction:
				argColumns(base.Args(), cols)
			case KindName:
				cols.add(n.RealName())
			}
		case KindIdentifierList, KindComparison:
			argColumns(n.Children, cols)
		case KindParenthesis:
			if !n.IsSubquery() {
				argColumns(n.Inner(), cols)
			}
		}
	}
}

// whereColumns collects identifier operands of comparisons, walking nested
// boolean groups.
func whereColumns(nodes []*Node, cols stringSet) {
	for _, n := range nodes {
		switch n.Kind {
		case KindComparison:
			left, right := n.Operands()
			for _, o := range []*Node{left, right} {
				if o != nil && o.Kind == KindIdentifier && o.Base().Kind == KindName {
					cols.add(o.RealName())
				}
			}
		case KindParenthesis:
			if !n.IsSubquery() {
				whereColumns(n.Inner(), cols)
			}
		}
	}
}

func findWhere(items []*Node) *Node {
	for _, it := range items {
		if it.Kind == KindWhere {
			return it
		}
	}
	return nil
}

func collectJoins(src string, items []*Node) []JoinInfo {
	joins := []JoinInfo{}
	for i, it := range items {
		if !IsJoinKeyword(it) {
			continue
		}
		j := JoinInfo{Type: it.Text}
		k := i + 1
		if k < len(items) && items[k].Kind == KindIdentifier {
			j.Table = joinTarget(items[k])
			k++
		}
		if k < len(items) && items[k].Is(KindKeyword, "ON") {
			start, end := k+1, k+1
			for end < len(items) && !joinBoundary(items[end]) {
				end++
			}
			if end > start {
				j.On = span(src, items[start], items[end-1])
			}
		}
		joins = append(joins, j)
	}
	return joins
}

func joinTarget(n *Node) string {
	if n.Base().Kind == KindParenthesis {
		return n.Alias()
	}
	return n.RealName()
}

func joinBoundary(n *Node) bool {
	return n.Kind == KindWhere || IsJoinKeyword(n) || whereBoundary(n)
}

// clauseItems returns the raw text of each element following a clause
// keyword such as GROUP BY, up to the next keyword.
func clauseItems(items []*Node, clause string) []string {
	out := []string{}
	for i, it := range items {
		if !it.Is(KindKeyword, clause) {
			continue
		}
		for _, n := range items[i+1:] {
			if n.Kind == KindKeyword || n.Kind == KindDML || n.Kind == KindWhere || n.IsPunct(";") {
				break
			}
			for _, m := range n.Items() {
				if !m.IsPunct(",") {
					out = append(out, strings.TrimSpace(m.Text))
				}
			}
		}
		break
	}
	return out
}

// span returns the trimmed source text from the start of first to the end of last.
func span(src string, first, last *Node) string {
	if first.Start < 0 || last.End > len(src) || first.Start > last.End {
		return ""
	}
	return strings.TrimSpace(src[first.Start:last.End])
}
