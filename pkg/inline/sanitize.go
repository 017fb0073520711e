package inline

import (
	"regexp"
	"strings"
)

// Elements whose content is never shown.
var dropped = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
	"template": true, "noscript": true, "iframe": true, "object": true,
}

// Elements that start a new line when flattened.
var blockLevel = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "section": true,
	"article": true, "header": true, "footer": true, "table": true,
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\n\f]+`)
	hrefEscape = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "\n", "", "\t", "")
)

// Sanitize reduces an arbitrary tree (for example parsed clipboard HTML)
// to the span tree subset Encode produces: text, strong, em, code, a with
// href only, and br. Everything else is unwrapped or dropped.
func Sanitize(n *Node) *Node {
	if n == nil {
		return Fragment()
	}
	s := sanitizer{}
	out := s.node(n, false, false)
	if len(out) == 1 && out[0].Tag == TagFragment {
		return out[0]
	}
	return Fragment(normalize(out)...)
}

type sanitizer struct{}

func (s sanitizer) children(nodes []*Node, inCode, pre bool) []*Node {
	var out []*Node
	for _, c := range nodes {
		out = append(out, s.node(c, inCode, pre)...)
	}
	return out
}

func (s sanitizer) node(n *Node, inCode, pre bool) []*Node {
	tag := strings.ToLower(n.Tag)
	switch tag {
	case TagText:
		return s.text(n.Text, pre)
	case TagFragment:
		return []*Node{Fragment(normalize(s.children(n.Children, inCode, pre))...)}
	case TagBreak:
		return []*Node{Break()}
	case "b", TagBold, "i", TagItalic:
		kids := s.children(n.Children, inCode, pre)
		if inCode || blank(kids) {
			return kids
		}
		if tag == "b" {
			tag = TagBold
		} else if tag == "i" {
			tag = TagItalic
		}
		return []*Node{Element(tag, kids...)}
	case TagCode, "kbd", "samp", "tt":
		kids := s.children(n.Children, true, pre)
		if inCode {
			return kids
		}
		flat := flattenCode(kids)
		if len(flat) == 0 {
			return nil
		}
		return []*Node{Element(TagCode, flat...)}
	case TagLink:
		kids := s.children(n.Children, inCode, pre)
		href := strings.TrimSpace(n.Attr("href"))
		if inCode || !safeHref(href) || len(kids) == 0 {
			return kids
		}
		return []*Node{Link(hrefEscape.Replace(href), kids...)}
	}

	if dropped[tag] {
		return nil
	}
	if blockLevel[tag] {
		kids := s.children(n.Children, inCode, pre || tag == "pre")
		if !endsWithBreak(kids) && len(kids) > 0 {
			kids = append(kids, Break())
		}
		return kids
	}
	return s.children(n.Children, inCode, pre)
}

func (s sanitizer) text(t string, pre bool) []*Node {
	t = strings.ReplaceAll(t, "\u00a0", " ")
	if !pre {
		t = spaceRun.ReplaceAllString(t, " ")
		if t == "" {
			return nil
		}
		return []*Node{Text(t)}
	}
	var out []*Node
	for i, line := range strings.Split(strings.ReplaceAll(t, "\r\n", "\n"), "\n") {
		if i > 0 {
			out = append(out, Break())
		}
		if line != "" {
			out = append(out, Text(line))
		}
	}
	return out
}

// flattenCode keeps only text and breaks.
func flattenCode(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		switch n.Tag {
		case TagText, TagBreak:
			out = append(out, n)
		default:
			out = append(out, flattenCode(n.Children)...)
		}
	}
	return mergeText(out)
}

func blank(nodes []*Node) bool {
	for _, n := range nodes {
		switch n.Tag {
		case TagText:
			if strings.TrimSpace(n.Text) != "" {
				return false
			}
		case TagBreak:
		default:
			if !blank(n.Children) {
				return false
			}
		}
	}
	return true
}

func endsWithBreak(nodes []*Node) bool {
	if len(nodes) == 0 {
		return false
	}
	leaf := lastLeaf(nodes[len(nodes)-1])
	return leaf != nil && leaf.Tag == TagBreak
}

func safeHref(href string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	for _, bad := range []string{"javascript:", "vbscript:", "data:"} {
		if strings.HasPrefix(lower, bad) {
			return false
		}
	}
	return true
}
