package inline

import "strings"

// Decode serializes a span tree back to inline-token text.
//
// Unknown elements contribute only their children. A break becomes "\n",
// except a break that is the last child of the root. A link whose text
// equals its href is written as the bare URL when re-encoding recognizes
// exactly that URL again in its surrounding text; otherwise it is written
// as [text](href).
func Decode(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	if n.IsText() || n.Tag == TagBreak {
		decoder{}.children(&b, []*Node{n})
		return b.String()
	}
	d := decoder{}
	if k := len(n.Children); k > 0 && n.Children[k-1].Tag == TagBreak {
		d.trailing = n.Children[k-1]
	}
	d.children(&b, n.Children)
	return b.String()
}

type decoder struct {
	trailing *Node
}

func (d decoder) children(b *strings.Builder, nodes []*Node) {
	for i, c := range nodes {
		if c.Tag == TagLink {
			var prev, next *Node
			if i > 0 {
				prev = nodes[i-1]
			}
			if i+1 < len(nodes) {
				next = nodes[i+1]
			}
			d.link(b, c, prev, next)
			continue
		}
		d.node(b, c)
	}
}

func (d decoder) node(b *strings.Builder, n *Node) {
	switch n.Tag {
	case TagText:
		b.WriteString(n.Text)
	case TagBreak:
		if n != d.trailing {
			b.WriteByte('\n')
		}
	case TagBold:
		d.wrap(b, "**", n.Children)
	case TagItalic:
		d.wrap(b, "*", n.Children)
	case TagCode:
		if inner := n.PlainText(); inner != "" {
			b.WriteString("`" + inner + "`")
		}
	case TagLink:
		d.link(b, n, nil, nil)
	default:
		d.children(b, n.Children)
	}
}

func (d decoder) wrap(b *strings.Builder, marker string, children []*Node) {
	var inner strings.Builder
	d.children(&inner, children)
	if inner.Len() == 0 {
		return
	}
	b.WriteString(marker)
	b.WriteString(inner.String())
	b.WriteString(marker)
}

func (d decoder) link(b *strings.Builder, n, prev, next *Node) {
	var inner strings.Builder
	d.children(&inner, n.Children)
	text := inner.String()
	href := n.Attr("href")

	switch {
	case href == "":
		b.WriteString(text)
	case (text == "" || text == href) && collapses(href, runText(prev), runText(next)):
		b.WriteString(href)
	case text == "":
		// unlabeled, not a bare URL: dropped
	default:
		b.WriteString("[" + text + "](" + href + ")")
	}
}

// runText is the text of a neighbouring run. Elements and breaks act as
// boundaries when encoding, so they contribute nothing.
func runText(n *Node) string {
	if n.IsText() {
		return n.Text
	}
	return ""
}

// collapses reports whether href, written bare between the given text
// runs, is recognized again as exactly the same URL.
func collapses(href, before, after string) bool {
	if loc := urlRe.FindStringIndex(href); loc == nil || loc[0] != 0 || loc[1] != len(href) {
		return false
	}
	candidate := before + href + after
	for _, loc := range urlRe.FindAllStringIndex(candidate, -1) {
		if loc[0] == len(before) && loc[1] == len(before)+len(href) {
			return true
		}
		if loc[1] > len(before) {
			return false
		}
	}
	return false
}
