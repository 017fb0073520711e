package inline_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/inline"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "plain", `"plain"`},
		{"bold and italic", "**bold** and *it*", `strong("bold") " and " em("it")`},
		{"code protects", "`a*b*`", `code("a*b*")`},
		{"bold italic", "***x***", `strong(em("x"))`},
		{"nested italic", "**a *b* c**", `strong("a " em("b") " c")`},
		{"italic spans code", "*a `c` b*", `em("a " code("c") " b")`},
		{"link", "[site](https://x.io)", `a[href="https://x.io"]("site")`},
		{"autolink trims punctuation", "see https://go.dev.", `"see " a[href="https://go.dev"]("https://go.dev") "."`},
		{"no autolink inside link", "[https://a.io](https://b.io)", `a[href="https://b.io"]("https://a.io")`},
		{"no autolink inside code", "`https://a.io`", `code("https://a.io")`},
		{"line break", "a\nb", `"a" br "b"`},
		{"trailing newline placeholder", "a\n", `"a" br br`},
		{"markup stays text", "<b> & </b>", `"<b> & </b>"`},
		{"empty", "", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inline.Encode(tt.in).String())
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, s := range []string{
		"plain",
		"**bold** and *it*",
		"`a*b*`",
		"***x***",
		"[site](https://x.io)",
		"see https://go.dev.",
		"a\nb",
		"a\n",
		"\n",
		"`a\n`",
		"****",
		"[t]([u](v))",
	} {
		assert.Equal(t, s, inline.Decode(inline.Encode(s)), "round trip of %q", s)
	}
}

func TestDecode_LinkCollapse(t *testing.T) {
	u := "https://x.io"

	assert.Equal(t, u, inline.Decode(inline.Fragment(inline.Link(u, inline.Text(u)))))
	assert.Equal(t, "go "+u+" now", inline.Decode(inline.Encode("go ["+u+"]("+u+") now")))

	// Text glued to the URL would extend it, so the explicit form stays.
	glued := inline.Fragment(inline.Link(u, inline.Text(u)), inline.Text("abc"))
	assert.Equal(t, "["+u+"]("+u+")abc", inline.Decode(glued))

	prefixed := inline.Fragment(inline.Text("http://"), inline.Link(u, inline.Text(u)))
	assert.Equal(t, "http://["+u+"]("+u+")", inline.Decode(prefixed))
}

func TestDecode_UnwrapsUnknownAndTrailingBreak(t *testing.T) {
	tree := inline.Fragment(
		&inline.Node{Tag: "span", Children: []*inline.Node{inline.Text("a")}},
		inline.Break(),
		inline.Element(inline.TagBold, inline.Text("b")),
		inline.Break(),
	)
	assert.Equal(t, "a\n**b**", inline.Decode(tree))
}

func TestPaste(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"paragraphs", "<p>Hello <b>world</b></p><p>next</p>", "Hello **world**\nnext"},
		{"script dropped", "<script>alert(1)</script>ok", "ok"},
		{"unsafe href unwrapped", `<a href="javascript:x()">click</a>`, "click"},
		{"link kept", `<a href="https://x.io" class="c">site</a>`, "[site](https://x.io)"},
		{"blank bold unwrapped", "<b>  </b>x", " x"},
		{"spans unwrapped", `<i>a</i><span style="color:red">b</span>`, "*a*b"},
		{"code flattened", "<code><b>x</b></code>", "`x`"},
		{"entities stay text", "a &lt;b&gt;", "a <b>"},
		{"nested blocks", "<div><div>a</div></div><div>b</div>", "a\nb"},
		{"pre keeps lines", "<pre>x\ny</pre>", "x\ny"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inline.Paste(tt.html))
		})
	}
}

func TestRenderHTML_EscapesText(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; &amp; <strong>x</strong>", inline.RenderHTML(inline.Encode("<b> & **x**")))
	assert.Equal(t, "a<br/>b", inline.RenderHTML(inline.Encode("a\nb")))
	assert.Equal(t, `<a href="https://x.io">site</a>`, inline.RenderHTML(inline.Encode("[site](https://x.io)")))
}

func TestParseHTML_RenderHTML(t *testing.T) {
	tree := inline.Sanitize(inline.ParseHTML(inline.RenderHTML(inline.Encode("**a** `b` *c*"))))
	assert.Equal(t, "**a** `b` *c*", inline.Decode(tree))
}

func TestSplitAt(t *testing.T) {
	tree := inline.Encode("ab**cd**ef")

	before, after := inline.SplitAt(tree, 3)
	assert.Equal(t, "ab**c**", inline.Decode(before))
	assert.Equal(t, "**d**ef", inline.Decode(after))

	before, after = inline.SplitAt(tree, 0)
	assert.Equal(t, "", inline.Decode(before))
	assert.Equal(t, "ab**cd**ef", inline.Decode(after))

	before, after = inline.SplitAt(tree, 99)
	assert.Equal(t, "ab**cd**ef", inline.Decode(before))
	assert.Equal(t, "", inline.Decode(after))
}

func TestSplitText_KeepsLineBreaks(t *testing.T) {
	tests := []struct {
		name          string
		in            string
		offset        int
		before, after string
	}{
		{"middle", "Hello", 2, "He", "llo"},
		{"end", "Hello", 5, "Hello", ""},
		{"formatting", "ab**cd**ef", 3, "ab**c**", "**d**ef"},
		{"after a break", "a\nb", 2, "a\n", "b"},
		{"empty last line", "a\n", 2, "a\n", ""},
		{"past the end", "a\n", 9, "a\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := inline.SplitText(tt.in, tt.offset)
			assert.Equal(t, tt.before, before)
			assert.Equal(t, tt.after, after)
		})
	}
}

func TestInsertAtAndDeleteAt(t *testing.T) {
	assert.Equal(t, "**abX** c", inline.InsertAt("**ab** c", 2, "X"))
	assert.Equal(t, "a\nx", inline.InsertAt("a\n", 2, "x"))
	assert.Equal(t, "Helo", inline.DeleteAt("Hello", 2, 3))
	assert.Equal(t, "a", inline.DeleteAt("a\n", 1, 2))
	assert.Equal(t, "**a**", inline.DeleteAt("**ab**", 1, 2))
}

func TestJoin_MergesAdjacentFormatting(t *testing.T) {
	joined := inline.Join(inline.Encode("**a**"), inline.Encode("**b**"))
	assert.Equal(t, "**ab**", inline.Decode(joined))
}

func TestInsertText_InheritsFormatting(t *testing.T) {
	tree := inline.InsertText(inline.Encode("**ab** c"), 2, "X")
	assert.Equal(t, "**abX** c", inline.Decode(tree))

	tree = inline.InsertText(inline.Fragment(), 0, "hi")
	assert.Equal(t, "hi", inline.Decode(tree))
}

func TestDeleteRange(t *testing.T) {
	tree := inline.DeleteRange(inline.Encode("a**bc**d"), 1, 2)
	assert.Equal(t, "a**c**d", inline.Decode(tree))
}

func TestVisibleLen(t *testing.T) {
	assert.Equal(t, 4, inline.VisibleLen("**ab** c"))
	assert.Equal(t, 2, inline.VisibleLen("a\n"))
	assert.Equal(t, 0, inline.VisibleLen(""))
	assert.Equal(t, 2, inline.Encode("a\n").CaretLen())
	require.Equal(t, "site", inline.PlainText("[site](https://x.io)"))
}

func TestNode_CloneIsDeep(t *testing.T) {
	orig := inline.Encode("[a](https://x.io)")
	c := orig.Clone()
	c.Children[0].Attrs["href"] = "changed"
	assert.Equal(t, "https://x.io", orig.Children[0].Attr("href"))
	assert.False(t, orig.Equal(c))
	assert.True(t, strings.Contains(c.String(), "changed"))
}
