// Package inline converts between the persisted inline-token text of a block
// (a markdown-like subset: **bold**, *italic*, `code`, [text](href) and bare
// URLs) and a toolkit independent span tree.
//
// The span tree is what an editing surface renders. Block text in the model
// always holds tokens; trees only exist while a block is being displayed or
// edited.
package inline

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Tags used by the span tree.
const (
	TagFragment = "#fragment"
	TagText     = "#text"
	TagBold     = "strong"
	TagItalic   = "em"
	TagCode     = "code"
	TagLink     = "a"
	TagBreak    = "br"
)

// Node is one element of a span tree.
// Text nodes carry Text and never have children.
type Node struct {
	Tag      string
	Text     string
	Attrs    map[string]string
	Children []*Node
}

// Text creates a text run.
func Text(s string) *Node {
	return &Node{Tag: TagText, Text: s}
}

// Break creates a line break.
func Break() *Node {
	return &Node{Tag: TagBreak}
}

// Element creates an element with the given children.
func Element(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// Link creates a link element.
func Link(href string, children ...*Node) *Node {
	return &Node{Tag: TagLink, Attrs: map[string]string{"href": href}, Children: children}
}

// Fragment creates a root node.
func Fragment(children ...*Node) *Node {
	return &Node{Tag: TagFragment, Children: children}
}

// IsText reports whether n is a text run.
func (n *Node) IsText() bool {
	return n != nil && n.Tag == TagText
}

// Attr returns an attribute value or "".
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Clone deep-copies the subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Tag: n.Tag, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Equal reports structural equality of two subtrees.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Tag != o.Tag || n.Text != o.Text || len(n.Children) != len(o.Children) {
		return false
	}
	if !sameAttrs(n.Attrs, o.Attrs) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

func sameAttrs(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// PlainText returns the visible text: text runs verbatim, breaks as "\n".
func (n *Node) PlainText() string {
	var b strings.Builder
	n.writePlain(&b)
	return b.String()
}

func (n *Node) writePlain(b *strings.Builder) {
	if n == nil {
		return
	}
	switch n.Tag {
	case TagText:
		b.WriteString(n.Text)
	case TagBreak:
		b.WriteByte('\n')
	default:
		for _, c := range n.Children {
			c.writePlain(b)
		}
	}
}

// Len is the number of visible characters (runes); a break counts as one.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Tag {
	case TagText:
		return utf8.RuneCountInString(n.Text)
	case TagBreak:
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.Len()
	}
	return total
}

// CaretLen is Len without a final root-level break, which only keeps an
// empty last line visible and cannot hold the caret past itself.
func (n *Node) CaretLen() int {
	l := n.Len()
	if k := len(n.Children); k > 0 && n.Children[k-1].Tag == TagBreak {
		l--
	}
	return l
}

// String renders a compact debugging form, e.g. `strong("bold") " and " code("x")`.
func (n *Node) String() string {
	var b strings.Builder
	n.debug(&b)
	return b.String()
}

func (n *Node) debug(b *strings.Builder) {
	switch n.Tag {
	case TagText:
		b.WriteString(quote(n.Text))
		return
	case TagBreak:
		b.WriteString("br")
		return
	}
	if n.Tag != TagFragment {
		b.WriteString(n.Tag)
		if len(n.Attrs) > 0 {
			keys := make([]string, 0, len(n.Attrs))
			for k := range n.Attrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteByte('[')
			for i, k := range keys {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(k + "=" + quote(n.Attrs[k]))
			}
			b.WriteByte(']')
		}
		b.WriteByte('(')
	}
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.debug(b)
	}
	if n.Tag != TagFragment {
		b.WriteByte(')')
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// lastLeaf returns the deepest last descendant of n (n itself for leaves).
func lastLeaf(n *Node) *Node {
	for n != nil && len(n.Children) > 0 {
		n = n.Children[len(n.Children)-1]
	}
	return n
}
