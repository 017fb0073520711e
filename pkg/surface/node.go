// Package surface models the editable text surface the editor renders into.
//
// The editor treats a Surface as a write-only render target plus a
// read-only selection and geometry query channel; the document model stays
// the only source of truth. Headless is an in-memory implementation with a
// deterministic layout, used by tests, the CLI and the HTTP API.
package surface

import (
	"unicode/utf8"
)

// Kind classifies surface nodes.
type Kind int

const (
	KindRoot Kind = iota
	KindBlock
	KindElement
	KindText
	KindTitle
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindBlock:
		return "block"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindTitle:
		return "title"
	}
	return "unknown"
}

// Node is one node of the rendered tree.
type Node struct {
	Kind     Kind
	Tag      string
	Text     string
	BlockID  string
	Attrs    map[string]string
	Parent   *Node
	Children []*Node
	// Anchor marks a zero-length text node that lets an empty block hold a caret.
	Anchor bool
}

// NewText creates a text node.
func NewText(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// NewElement creates an inline element.
func NewElement(tag string, children ...*Node) *Node {
	n := &Node{Kind: KindElement, Tag: tag}
	n.Append(children...)
	return n
}

// Append adds children, setting their parent.
func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.Remove(c)
		}
		c.Parent = n
		n.Children = append(n.Children, c)
	}
}

// Insert adds a child at index i.
func (n *Node) Insert(i int, c *Node) {
	if c.Parent != nil {
		c.Parent.Remove(c)
	}
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	c.Parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
}

// Remove detaches a child.
func (n *Node) Remove(c *Node) {
	for i, x := range n.Children {
		if x == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			c.Parent = nil
			return
		}
	}
}

// Len is the number of caret positions the subtree spans.
func (n *Node) Len() int {
	switch {
	case n == nil:
		return 0
	case n.Kind == KindText:
		return utf8.RuneCountInString(n.Text)
	case n.Kind == KindElement && n.Tag == "br":
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.Len()
	}
	return total
}

// Block returns the nearest block ancestor (or n itself).
func (n *Node) Block() *Node {
	for p := n; p != nil; p = p.Parent {
		if p.Kind == KindBlock {
			return p
		}
	}
	return nil
}

// Within reports whether n is root or one of its descendants.
func (n *Node) Within(root *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Walk visits the subtree depth-first; returning false stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Position is a point in the rendered tree: a text node and a rune offset,
// or an element and a child index.
type Position struct {
	Node   *Node
	Offset int
}

// Selection is the native selection. Focus is where the caret is.
type Selection struct {
	Anchor Position
	Focus  Position
}

// Collapsed reports whether the selection is a caret.
func (s Selection) Collapsed() bool {
	return s.Anchor.Node == s.Focus.Node && s.Anchor.Offset == s.Focus.Offset
}

// Caret builds a collapsed selection.
func Caret(p Position) Selection {
	return Selection{Anchor: p, Focus: p}
}

// BlockOffset converts a position inside block into a visible offset.
// It reports false when the position is not inside block.
func BlockOffset(block *Node, p Position) (int, bool) {
	if p.Node == nil || block == nil || !p.Node.Within(block) {
		return 0, false
	}
	if p.Node == block || p.Node.Kind == KindElement {
		total := 0
		for i, c := range p.Node.Children {
			if i >= p.Offset {
				break
			}
			total += c.Len()
		}
		return total + offsetBefore(block, p.Node), true
	}
	off := p.Offset
	if l := p.Node.Len(); off > l {
		off = l
	}
	if off < 0 {
		off = 0
	}
	return offsetBefore(block, p.Node) + off, true
}

// offsetBefore sums the length of everything preceding target in block.
func offsetBefore(block, target *Node) int {
	total := 0
	found := false
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if found {
				return
			}
			if c == target {
				found = true
				return
			}
			if c.Kind == KindText || c.Tag == "br" {
				total += c.Len()
				continue
			}
			walk(c)
		}
	}
	if block != target {
		walk(block)
	}
	return total
}
