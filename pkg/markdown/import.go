// Package markdown converts between notes and CommonMark documents.
//
// Import parses with goldmark and maps the block structure onto the
// note's block types; inline content is re-emitted as inline-formatting
// tokens (see package inline), so text entering the model never carries
// markup. Export writes the inverse.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/inline"
)

// Document is the result of an import.
type Document struct {
	// Title is taken from a level 1 heading that opens the document.
	Title  string
	Blocks []core.Block
}

var parser = goldmark.New(
	goldmark.WithExtensions(extension.TaskList, extension.Strikethrough),
)

// Import parses a markdown document. It never fails: constructs without a
// block type of their own degrade to paragraphs.
func Import(src []byte) Document {
	doc := parser.Parser().Parse(text.NewReader(src))
	im := importer{src: src}

	first := doc.FirstChild()
	if h, ok := first.(*ast.Heading); ok && h.Level == 1 {
		im.title = strings.TrimSpace(inline.PlainText(im.inlines(h)))
		first = first.NextSibling()
	}
	for n := first; n != nil; n = n.NextSibling() {
		im.block(n)
	}
	return Document{Title: im.title, Blocks: im.blocks}
}

// ImportNote builds a note from a markdown document.
func ImportNote(id string, src []byte) core.Note {
	d := Import(src)
	return core.Note{
		ID:      id,
		Title:   d.Title,
		Content: core.Content{Title: d.Title, Blocks: d.Blocks},
	}
}

type importer struct {
	src    []byte
	title  string
	blocks []core.Block
}

func (im *importer) add(b core.Block) {
	b.Normalize()
	im.blocks = append(im.blocks, b)
}

func (im *importer) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		im.add(core.Heading("", node.Level, im.inlines(node)))
	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := soleImage(node); ok {
			im.add(core.Image("", string(img.Destination), plain(img, im.src)))
			return
		}
		im.add(core.Paragraph("", im.inlines(node)))
	case *ast.ThematicBreak:
		im.add(core.Divider(""))
	case *ast.List:
		im.list(node)
	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			im.block(c)
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		im.add(core.Paragraph("", im.code(node)))
	case *ast.HTMLBlock:
		raw := im.lines(node)
		if isBreak(raw) {
			im.add(core.Paragraph("", ""))
			return
		}
		im.add(core.Paragraph("", inline.Paste(raw)))
	default:
		if node.Type() == ast.TypeBlock {
			im.add(core.Paragraph("", im.lines(node)))
		}
	}
}

func (im *importer) list(l *ast.List) {
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		typ := core.BlockBullet
		if l.IsOrdered() {
			typ = core.BlockNumbered
		}
		b := core.Block{Type: typ}
		wrote := false
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if wrote {
					im.block(c)
					continue
				}
				if box, ok := c.FirstChild().(*east.TaskCheckBox); ok {
					checked := box.IsChecked
					b.Type, b.Checked = core.BlockChecklist, &checked
				}
				b.Text = strings.TrimLeft(im.inlines(c), " ")
				im.add(b)
				wrote = true
			default:
				if !wrote {
					im.add(b)
					wrote = true
				}
				im.block(c)
			}
		}
		if !wrote {
			im.add(b)
		}
	}
}

// inlines renders the inline children of n as inline-formatting tokens.
func (im *importer) inlines(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		im.inline(&b, c)
	}
	return b.String()
}

func (im *importer) inline(b *strings.Builder, n ast.Node) {
	switch node := n.(type) {
	case *ast.Text:
		b.WriteString(unescape(node.Segment.Value(im.src)))
		switch {
		case node.HardLineBreak():
			b.WriteByte('\n')
		case node.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(node.Value)
	case *ast.CodeSpan:
		b.WriteString("`" + plain(node, im.src) + "`")
	case *ast.Emphasis:
		marker := strings.Repeat("*", node.Level)
		b.WriteString(marker + im.inlines(node) + marker)
	case *ast.Link:
		label := im.inlines(node)
		dest := string(node.Destination)
		if label == dest {
			b.WriteString(dest)
			return
		}
		b.WriteString("[" + label + "](" + dest + ")")
	case *ast.AutoLink:
		b.Write(node.URL(im.src))
	case *ast.Image:
		b.WriteString(plain(node, im.src))
	case *east.TaskCheckBox, *ast.RawHTML:
	default:
		b.WriteString(im.inlines(node))
	}
}

func (im *importer) lines(n ast.Node) string {
	lines := n.Lines()
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(im.src))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (im *importer) code(n ast.Node) string {
	raw := strings.Split(im.lines(n), "\n")
	for i, line := range raw {
		if strings.TrimSpace(line) != "" && !strings.Contains(line, "`") {
			raw[i] = "`" + line + "`"
		}
	}
	return strings.Join(raw, "\n")
}

func isBreak(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "<br>", "<br/>", "<br />":
		return true
	}
	return false
}

// unescape drops the backslash of backslash-escaped ASCII punctuation.
func unescape(v []byte) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) && strings.IndexByte(punctuation, v[i+1]) >= 0 {
			i++
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// soleImage reports whether a paragraph holds nothing but one image.
func soleImage(n ast.Node) (*ast.Image, bool) {
	var img *ast.Image
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Image:
			if img != nil {
				return nil, false
			}
			img = node
		case *ast.Text:
			if node.Segment.Len() > 0 {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return img, img != nil
}

// plain concatenates the text under n.
func plain(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
