package domain

import "strings"

// Kind classifies a node of the token tree.
type Kind int

const (
	KindScript Kind = iota
	KindStatement

	// Leaf kinds.
	KindKeyword
	KindDML
	KindName
	KindLiteral
	KindPlaceholder
	KindOperator
	KindPunctuation
	KindWildcard

	// Group kinds produced by Group.
	KindParenthesis
	KindIdentifier
	KindIdentifierList
	KindFunction
	KindComparison
	KindWhere
)

var kindNames = map[Kind]string{
	KindScript:         "script",
	KindStatement:      "statement",
	KindKeyword:        "keyword",
	KindDML:            "dml",
	KindName:           "name",
	KindLiteral:        "literal",
	KindPlaceholder:    "placeholder",
	KindOperator:       "operator",
	KindPunctuation:    "punctuation",
	KindWildcard:       "wildcard",
	KindParenthesis:    "parenthesis",
	KindIdentifier:     "identifier",
	KindIdentifierList: "identifier_list",
	KindFunction:       "function",
	KindComparison:     "comparison",
	KindWhere:          "where",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsGroup reports whether nodes of this kind carry children.
func (k Kind) IsGroup() bool {
	return k == KindScript || k == KindStatement || k >= KindParenthesis
}

// Node is one element of the token tree. Leaves carry the token text; groups
// carry the source span they cover in Text and their members in Children.
// Start and End are byte offsets into the tokenized source.
type Node struct {
	Kind     Kind
	Text     string
	Start    int
	End      int
	Children []*Node
}

// NewLeaf returns a leaf token node.
func NewLeaf(kind Kind, text string, start, end int) *Node {
	return &Node{Kind: kind, Text: text, Start: start, End: end}
}

func newGroup(src string, kind Kind, children []*Node) *Node {
	n := &Node{Kind: kind, Children: children}
	if len(children) > 0 {
		n.Start = children[0].Start
		n.End = children[len(children)-1].End
		n.Text = src[n.Start:n.End]
	}
	return n
}

// IsLeaf reports whether n is a token rather than a group.
func (n *Node) IsLeaf() bool {
	return !n.Kind.IsGroup()
}

// Upper returns the node text upper-cased.
func (n *Node) Upper() string {
	return strings.ToUpper(n.Text)
}

// Is reports whether n has the given kind and, when values are supplied, an
// upper-cased text equal to one of them.
func (n *Node) Is(kind Kind, values ...string) bool {
	if n == nil || n.Kind != kind {
		return false
	}
	if len(values) == 0 {
		return true
	}
	up := n.Upper()
	for _, v := range values {
		if up == v {
			return true
		}
	}
	return false
}

// IsKeyword matches keyword and DML leaves.
func (n *Node) IsKeyword(values ...string) bool {
	return n.Is(KindKeyword, values...) || n.Is(KindDML, values...)
}

// IsPunct matches punctuation leaves.
func (n *Node) IsPunct(values ...string) bool {
	return n.Is(KindPunctuation, values...)
}

// Statements returns the statement children of a script node.
func (n *Node) Statements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == KindStatement {
			out = append(out, c)
		}
	}
	return out
}

// FirstStatement returns the first statement holding at least one
// non-punctuation token, or nil.
func (n *Node) FirstStatement() *Node {
	for _, s := range n.Statements() {
		for _, c := range s.Children {
			if !c.IsPunct(";") {
				return s
			}
		}
	}
	return nil
}

// Inner returns the children of a parenthesis without the enclosing brackets.
func (n *Node) Inner() []*Node {
	if n.Kind != KindParenthesis {
		return n.Children
	}
	ch := n.Children
	if len(ch) > 0 && ch[0].IsPunct("(") {
		ch = ch[1:]
	}
	if len(ch) > 0 && ch[len(ch)-1].IsPunct(")") {
		ch = ch[:len(ch)-1]
	}
	return ch
}

// IsSubquery reports whether a parenthesis opens with a SELECT.
func (n *Node) IsSubquery() bool {
	if n.Kind != KindParenthesis {
		return false
	}
	inner := n.Inner()
	return len(inner) > 0 && inner[0].IsKeyword("SELECT", "WITH")
}

// parts splits an identifier into its base tokens and optional alias.
// The base is the leading dotted chain, function call, parenthesis or literal.
func (n *Node) parts() (base []*Node, alias *Node) {
	ch := n.Children
	if len(ch) == 0 {
		return nil, nil
	}
	i := 1
	for i+1 < len(ch) && ch[i].IsPunct(".") {
		i += 2
	}
	base = ch[:i]
	rest := ch[i:]
	if len(rest) > 0 && rest[0].IsKeyword("AS") {
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0].Kind == KindName {
		alias = rest[0]
	}
	return base, alias
}

// RealName returns the unquoted object name an identifier or function refers
// to: the last part of a dotted name, or the called function's name.
func (n *Node) RealName() string {
	switch n.Kind {
	case KindName:
		return Unquote(n.Text)
	case KindFunction:
		if len(n.Children) > 0 {
			return n.Children[0].RealName()
		}
		return ""
	case KindIdentifier:
		base, _ := n.parts()
		if len(base) == 0 {
			return ""
		}
		last := base[len(base)-1]
		switch last.Kind {
		case KindName, KindFunction:
			return last.RealName()
		case KindWildcard:
			return last.Text
		}
	}
	return ""
}

// Qualifier returns the unquoted part preceding the real name of a dotted
// identifier, or "".
func (n *Node) Qualifier() string {
	if n.Kind != KindIdentifier {
		return ""
	}
	base, _ := n.parts()
	if len(base) < 3 {
		return ""
	}
	return Unquote(base[len(base)-3].Text)
}

// Alias returns the unquoted alias of an identifier, or "".
func (n *Node) Alias() string {
	if n.Kind != KindIdentifier {
		return ""
	}
	_, alias := n.parts()
	if alias == nil {
		return ""
	}
	return Unquote(alias.Text)
}

// Base returns the first base token of an identifier.
func (n *Node) Base() *Node {
	if n.Kind != KindIdentifier || len(n.Children) == 0 {
		return n
	}
	return n.Children[0]
}

// Items returns the members of an identifier list without separators.
func (n *Node) Items() []*Node {
	if n.Kind != KindIdentifierList {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.Children {
		if !c.IsPunct(",") {
			out = append(out, c)
		}
	}
	return out
}

// Args returns the tokens inside a function call's parenthesis.
func (n *Node) Args() []*Node {
	if n.Kind != KindFunction || len(n.Children) < 2 {
		return nil
	}
	return n.Children[1].Inner()
}

// Operands returns the left and right operands of a comparison.
func (n *Node) Operands() (left, right *Node) {
	if n.Kind != KindComparison || len(n.Children) < 3 {
		return nil, nil
	}
	return n.Children[0], n.Children[len(n.Children)-1]
}

// Unquote strips one level of double-quote, backtick or bracket quoting.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case s[0] == '`' && s[len(s)-1] == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case s[0] == '[' && s[len(s)-1] == ']':
		return s[1 : len(s)-1]
	}
	return s
}
