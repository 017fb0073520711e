package inline

// Normalize merges adjacent text runs and adjacent elements of the same
// kind, and removes empty elements. It returns a new tree.
func Normalize(n *Node) *Node {
	if n == nil {
		return Fragment()
	}
	c := n.Clone()
	if c.IsText() || c.Tag == TagBreak {
		return Fragment(c)
	}
	c.Children = normalize(c.Children)
	return c
}

func normalize(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		switch {
		case n.IsText():
			if n.Text == "" {
				continue
			}
		case n.Tag == TagBreak:
		default:
			n.Children = normalize(n.Children)
			if len(n.Children) == 0 {
				continue
			}
			if n.Tag == TagFragment {
				out = append(out, n.Children...)
				continue
			}
		}
		if k := len(out); k > 0 && mergeable(out[k-1], n) {
			prev := out[k-1]
			if prev.IsText() {
				out[k-1] = Text(prev.Text + n.Text)
			} else {
				merged := &Node{Tag: prev.Tag, Attrs: prev.Attrs}
				merged.Children = normalize(append(append([]*Node{}, prev.Children...), n.Children...))
				out[k-1] = merged
			}
			continue
		}
		out = append(out, n)
	}
	return out
}

func mergeable(a, b *Node) bool {
	if a.Tag != b.Tag || a.Tag == TagBreak {
		return false
	}
	if a.Tag == TagLink {
		return a.Attr("href") == b.Attr("href")
	}
	return true
}

// SplitAt splits a tree at a visible offset. Formatting wrappers that
// straddle the offset are kept on both sides. Offsets are clamped.
func SplitAt(n *Node, offset int) (before, after *Node) {
	if n == nil {
		return Fragment(), Fragment()
	}
	if offset < 0 {
		offset = 0
	}
	b, a := splitNodes(rootChildren(n), offset)
	return Fragment(normalize(b)...), Fragment(normalize(a)...)
}

func rootChildren(n *Node) []*Node {
	if n.IsText() || n.Tag == TagBreak {
		return []*Node{n.Clone()}
	}
	return n.Clone().Children
}

func splitNodes(nodes []*Node, offset int) (before, after []*Node) {
	for _, c := range nodes {
		l := c.Len()
		switch {
		case offset >= l:
			before = append(before, c)
			offset -= l
		case offset <= 0:
			after = append(after, c)
		case c.IsText():
			runes := []rune(c.Text)
			before = append(before, Text(string(runes[:offset])))
			after = append(after, Text(string(runes[offset:])))
			offset = 0
		default:
			lb, la := splitNodes(c.Children, offset)
			before = append(before, &Node{Tag: c.Tag, Attrs: c.Attrs, Children: lb})
			after = append(after, &Node{Tag: c.Tag, Attrs: cloneAttrs(c.Attrs), Children: la})
			offset = 0
		}
	}
	return before, after
}

func cloneAttrs(a map[string]string) map[string]string {
	if a == nil {
		return nil
	}
	out := make(map[string]string, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Join concatenates two trees.
func Join(a, b *Node) *Node {
	var kids []*Node
	if a != nil {
		kids = append(kids, rootChildren(a)...)
	}
	if b != nil {
		kids = append(kids, rootChildren(b)...)
	}
	return Fragment(normalize(kids)...)
}

// InsertText inserts s at a visible offset. The text takes the formatting
// of the run immediately before the offset, as typing does.
func InsertText(n *Node, offset int, s string) *Node {
	before, after := SplitAt(n, offset)
	if s == "" {
		return Join(before, after)
	}
	leaf := lastLeaf(before)
	switch {
	case leaf != nil && leaf.IsText():
		leaf.Text += s
	default:
		parent := lastElement(before)
		parent.Children = append(parent.Children, Text(s))
	}
	return Join(before, after)
}

// lastElement returns the deepest last element that can hold text.
func lastElement(n *Node) *Node {
	for len(n.Children) > 0 {
		c := n.Children[len(n.Children)-1]
		if c.IsText() || c.Tag == TagBreak {
			break
		}
		n = c
	}
	return n
}

// DeleteRange removes the visible characters in [from, to).
func DeleteRange(n *Node, from, to int) *Node {
	if from > to {
		from, to = to, from
	}
	before, _ := SplitAt(n, from)
	_, after := SplitAt(n, to)
	return Join(before, after)
}

// SplitText splits inline-token text at a visible offset. Offsets are
// clamped to the caret positions of the text, so a final placeholder break
// always stays with the second half.
func SplitText(s string, offset int) (before, after string) {
	tree := Encode(s)
	b, a := SplitAt(tree, clamp(offset, 0, tree.CaretLen()))
	b.Children = append(b.Children, Break())
	return Decode(b), Decode(a)
}

// InsertAt inserts plain text into inline-token text at a visible offset.
func InsertAt(s string, offset int, ins string) string {
	tree := Encode(s)
	return Decode(InsertText(tree, clamp(offset, 0, tree.CaretLen()), ins))
}

// DeleteAt removes the visible characters in [from, to) of inline-token text.
func DeleteAt(s string, from, to int) string {
	tree := Encode(s)
	l := tree.CaretLen()
	return Decode(DeleteRange(tree, clamp(from, 0, l), clamp(to, 0, l)))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
