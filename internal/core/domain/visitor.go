package domain

// Visitor is invoked for each node encountered by Walk. If the returned
// visitor w is not nil, Walk visits each child of the node with w, followed
// by a call of w.Visit(nil).
type Visitor interface {
	Visit(n *Node) (w Visitor)
}

// Walk traverses the tree rooted at n in depth-first source order.
func Walk(v Visitor, n *Node) {
	if v = v.Visit(n); v == nil {
		return
	}
	for _, c := range n.Children {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(*Node) bool

func (f inspector) Visit(n *Node) Visitor {
	if n != nil && f(n) {
		return f
	}
	return nil
}

// Inspect traverses the tree calling f for each node; returning false skips
// the node's children.
func Inspect(n *Node, f func(*Node) bool) {
	Walk(inspector(f), n)
}

// Leaves returns the tokens of the tree in source order.
func Leaves(n *Node) []*Node {
	var out []*Node
	Inspect(n, func(c *Node) bool {
		if c.IsLeaf() {
			out = append(out, c)
		}
		return true
	})
	return out
}
