package inline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Element children of a sibling list are represented in the flattened text
// by one private-use rune each, so a pattern can span element boundaries
// without ever matching inside an element it does not own.
const (
	placeholderBase = 0xF0000
	placeholderMax  = 0xFFFFD
)

var (
	codeRe       = regexp.MustCompile("`([^`]+)`")
	boldItalicRe = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.+?)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s\x{F0000}-\x{FFFFD}]+)\)`)
	urlRe        = regexp.MustCompile(`https?://[^\s<>"\x{F0000}-\x{FFFFD}]*[^\s<>".,;:!?'")\]\x{F0000}-\x{FFFFD}]`)
)

// rule turns every match of re within a sibling list into one element.
type rule struct {
	re    *regexp.Regexp
	build func(flat string, m []int, holders []*Node) *Node
	// skip lists tags whose contents the rule never enters.
	skip map[string]bool
	// accept, when set, vetoes a built element; the match stays text.
	accept func(el *Node) bool
}

var rules = []rule{
	{
		re: codeRe,
		build: func(flat string, m []int, holders []*Node) *Node {
			return Element(TagCode, expand(flat[m[2]:m[3]], holders)...)
		},
		skip: map[string]bool{TagCode: true},
	},
	{
		re: boldItalicRe,
		build: func(flat string, m []int, holders []*Node) *Node {
			return Element(TagBold, Element(TagItalic, expand(flat[m[2]:m[3]], holders)...))
		},
		skip: map[string]bool{TagCode: true},
	},
	{
		re: boldRe,
		build: func(flat string, m []int, holders []*Node) *Node {
			return Element(TagBold, expand(flat[m[2]:m[3]], holders)...)
		},
		skip: map[string]bool{TagCode: true},
	},
	{
		re: italicRe,
		build: func(flat string, m []int, holders []*Node) *Node {
			return Element(TagItalic, expand(flat[m[2]:m[3]], holders)...)
		},
		skip: map[string]bool{TagCode: true},
	},
	{
		re: linkRe,
		build: func(flat string, m []int, holders []*Node) *Node {
			return Link(flat[m[4]:m[5]], expand(flat[m[2]:m[3]], holders)...)
		},
		skip: map[string]bool{TagCode: true, TagLink: true},
		accept: func(el *Node) bool {
			for _, c := range el.Children {
				if containsTag(c, TagLink) {
					return false
				}
			}
			return true
		},
	},
	{
		re: urlRe,
		build: func(flat string, m []int, _ []*Node) *Node {
			u := flat[m[0]:m[1]]
			return Link(u, Text(u))
		},
		skip: map[string]bool{TagCode: true, TagLink: true},
	},
}

// Encode parses inline-token text into a span tree.
//
// Newlines become breaks; text ending in a newline gets one extra trailing
// break so the empty last line stays visible. Patterns are applied in a
// fixed order: code, bold-italic, bold, italic, link, bare URL. Code spans
// are opaque to every later pattern. Markup characters are kept as text and
// only escaped when the tree is rendered.
func Encode(s string) *Node {
	s = scrubPlaceholders(s)

	var children []*Node
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i > 0 {
			children = append(children, Break())
		}
		if line != "" {
			children = append(children, Text(line))
		}
	}
	if strings.HasSuffix(s, "\n") {
		children = append(children, Break())
	}

	root := Fragment(children...)
	for _, r := range rules {
		r.apply(root)
	}
	return root
}

func (r rule) apply(n *Node) {
	if r.skip[n.Tag] {
		return
	}
	for _, c := range n.Children {
		if !c.IsText() && c.Tag != TagBreak {
			r.apply(c)
		}
	}

	flat, holders := flatten(n.Children)
	matches := r.re.FindAllStringSubmatchIndex(flat, -1)
	if len(matches) == 0 {
		return
	}

	var out []*Node
	last := 0
	for _, m := range matches {
		out = append(out, expand(flat[last:m[0]], holders)...)
		el := r.build(flat, m, holders)
		if r.accept != nil && !r.accept(el) {
			out = append(out, expand(flat[m[0]:m[1]], holders)...)
		} else {
			r.apply(el)
			out = append(out, el)
		}
		last = m[1]
	}
	out = append(out, expand(flat[last:], holders)...)
	n.Children = mergeText(out)
}

func containsTag(n *Node, tag string) bool {
	if n.Tag == tag {
		return true
	}
	for _, c := range n.Children {
		if containsTag(c, tag) {
			return true
		}
	}
	return false
}

// flatten concatenates the text of a sibling list, replacing each
// non-text child with a placeholder rune.
func flatten(children []*Node) (string, []*Node) {
	var b strings.Builder
	var holders []*Node
	for _, c := range children {
		if c.IsText() {
			b.WriteString(c.Text)
			continue
		}
		b.WriteRune(rune(placeholderBase + len(holders)))
		holders = append(holders, c)
	}
	return b.String(), holders
}

// expand is the inverse of flatten for a slice of the flattened text.
func expand(s string, holders []*Node) []*Node {
	var out []*Node
	var run strings.Builder
	for _, r := range s {
		if r >= placeholderBase && r <= placeholderMax {
			if run.Len() > 0 {
				out = append(out, Text(run.String()))
				run.Reset()
			}
			out = append(out, holders[r-placeholderBase])
			continue
		}
		run.WriteRune(r)
	}
	if run.Len() > 0 {
		out = append(out, Text(run.String()))
	}
	return out
}

func scrubPlaceholders(s string) string {
	clean := true
	for _, r := range s {
		if r >= placeholderBase && r <= placeholderMax {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r >= placeholderBase && r <= placeholderMax {
			return utf8.RuneError
		}
		return r
	}, s)
}

// mergeText joins adjacent text runs and drops empty ones.
func mergeText(nodes []*Node) []*Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.IsText() {
			if n.Text == "" {
				continue
			}
			if k := len(out); k > 0 && out[k-1].IsText() {
				out[k-1] = Text(out[k-1].Text + n.Text)
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

// PlainText returns the visible text of inline-token text, without markup.
func PlainText(s string) string {
	t := Encode(s).PlainText()
	if strings.HasSuffix(s, "\n") {
		t = strings.TrimSuffix(t, "\n")
	}
	return t
}

// VisibleLen is the number of caret positions past the start of
// inline-token text, i.e. the rune length of its plain text.
func VisibleLen(s string) int {
	return utf8.RuneCountInString(PlainText(s))
}
