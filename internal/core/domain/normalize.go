package domain

// Placeholder is the token every literal is replaced with.
const Placeholder = "?"

// parameterizer rewrites literal leaves to placeholders and upper-cases
// keywords so that queries differing only in literals or keyword case share
// one form.
type parameterizer struct{}

func (p parameterizer) Visit(n *Node) Visitor {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindLiteral:
		n.Kind = KindPlaceholder
		n.Text = Placeholder
	case KindKeyword, KindDML:
		n.Text = n.Upper()
	}
	return p
}

// Parameterize rewrites the tree in place and returns its canonical
// single-line form. Names, including quoted identifiers, are left untouched.
func Parameterize(tree *Node) string {
	Walk(parameterizer{}, tree)
	return Format(tree)
}
