package inline

import (
	"bytes"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML parses an HTML fragment (clipboard content, a surface's
// serialized block) into an unsanitized tree. Comments and doctypes are
// skipped. Malformed input never fails: the tokenizer recovers like a
// browser does.
func ParseHTML(src string) *Node {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return Fragment(Text(src))
	}
	root := Fragment()
	for _, n := range nodes {
		if c := fromHTML(n); c != nil {
			root.Children = append(root.Children, c)
		}
	}
	return root
}

func fromHTML(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return Text(n.Data)
	case html.ElementNode:
		el := &Node{Tag: strings.ToLower(n.Data)}
		if len(n.Attr) > 0 {
			el.Attrs = make(map[string]string, len(n.Attr))
			for _, a := range n.Attr {
				el.Attrs[strings.ToLower(a.Key)] = a.Val
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if cc := fromHTML(c); cc != nil {
				el.Children = append(el.Children, cc)
			}
		}
		return el
	case html.DocumentNode:
		root := Fragment()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if cc := fromHTML(c); cc != nil {
				root.Children = append(root.Children, cc)
			}
		}
		return root
	}
	return nil
}

// RenderHTML serializes a span tree as HTML. Text is escaped, so literal
// markup characters typed by the user never become elements.
func RenderHTML(n *Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	var nodes []*Node
	if n.Tag == TagFragment {
		nodes = n.Children
	} else {
		nodes = []*Node{n}
	}
	for _, c := range nodes {
		_ = html.Render(&buf, toHTML(c))
	}
	return buf.String()
}

func toHTML(n *Node) *html.Node {
	if n.IsText() {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	el := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	if n.Tag == TagFragment {
		el.Data = "span"
		el.DataAtom = atom.Span
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el.Attr = append(el.Attr, html.Attribute{Key: k, Val: n.Attrs[k]})
	}
	for _, c := range n.Children {
		el.AppendChild(toHTML(c))
	}
	return el
}

// Paste converts clipboard HTML into inline-token text.
func Paste(src string) string {
	return Decode(Sanitize(ParseHTML(src)))
}
