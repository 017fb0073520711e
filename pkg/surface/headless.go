package surface

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// Headless is an in-memory Surface with a fixed-pitch layout: every block
// is laid out top to bottom, text wraps at a fixed number of display
// columns (measured with go-runewidth), and each visual line has the same
// height.
type Headless struct {
	root *Node

	sel          *Selection
	focused      bool
	titleFocused bool
	titleOffset  int

	columns    int
	charWidth  float64
	lineHeight float64
	imageLines int

	scrollY   float64
	viewportH float64

	classes map[string]map[string]bool
	proxy   Proxy
}

// Proxy is the floating drag preview.
type Proxy struct {
	IDs     []string
	At      Point
	Visible bool
}

// HeadlessOption configures a Headless surface.
type HeadlessOption func(*Headless)

// WithColumns sets the wrap width in display columns.
func WithColumns(n int) HeadlessOption {
	return func(h *Headless) {
		if n > 0 {
			h.columns = n
		}
	}
}

// WithLineHeight sets the height of one visual line.
func WithLineHeight(px float64) HeadlessOption {
	return func(h *Headless) {
		if px > 0 {
			h.lineHeight = px
		}
	}
}

// WithViewportHeight sets the visible height of the scroll region.
func WithViewportHeight(px float64) HeadlessOption {
	return func(h *Headless) {
		if px > 0 {
			h.viewportH = px
		}
	}
}

// NewHeadless creates an empty surface: 80 columns, 8 px per column,
// 20 px lines and a 600 px viewport.
func NewHeadless(opts ...HeadlessOption) *Headless {
	h := &Headless{
		root:       &Node{Kind: KindRoot, Tag: "div"},
		columns:    80,
		charWidth:  8,
		lineHeight: 20,
		imageLines: 4,
		viewportH:  600,
		classes:    make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root implements Surface.
func (h *Headless) Root() *Node { return h.root }

// SetBlocks implements Surface.
func (h *Headless) SetBlocks(nodes []*Node) {
	for _, c := range h.root.Children {
		c.Parent = nil
	}
	h.root.Children = nil
	h.root.Append(nodes...)
}

// BlockNode implements Surface.
func (h *Headless) BlockNode(id string) *Node {
	for _, c := range h.root.Children {
		if c.BlockID == id {
			return c
		}
	}
	return nil
}

// Selection implements Surface.
func (h *Headless) Selection() (Selection, bool) {
	if h.sel == nil {
		return Selection{}, false
	}
	return *h.sel, true
}

// SetSelection implements Surface.
func (h *Headless) SetSelection(sel Selection) {
	h.sel = &sel
	h.titleFocused = false
}

// ClearSelection implements Surface.
func (h *Headless) ClearSelection() { h.sel = nil }

// Focus implements Surface.
func (h *Headless) Focus() {
	h.focused = true
	h.titleFocused = false
}

// Focused implements Surface.
func (h *Headless) Focused() bool { return h.focused }

// FocusTitle implements Surface.
func (h *Headless) FocusTitle(offset int) {
	h.focused = false
	h.titleFocused = true
	h.titleOffset = offset
	h.sel = nil
}

// TitleFocused implements Surface.
func (h *Headless) TitleFocused() bool { return h.titleFocused }

// TitleOffset is the caret offset in the title field.
func (h *Headless) TitleOffset() int { return h.titleOffset }

// LineHeight implements Surface.
func (h *Headless) LineHeight() float64 { return h.lineHeight }

// Rect implements Surface. Nodes inside a block report the block's box;
// detached nodes report an empty rect.
func (h *Headless) Rect(n *Node) Rect {
	if n == nil || !n.Within(h.root) {
		return Rect{}
	}
	if n == h.root {
		return Rect{X: 0, Y: -h.scrollY, W: h.width(), H: h.contentHeight()}
	}
	block := n.Block()
	y := -h.scrollY
	for _, c := range h.root.Children {
		ht := h.blockHeight(c)
		if c == block {
			return Rect{X: 0, Y: y, W: h.width(), H: ht}
		}
		y += ht
	}
	return Rect{}
}

// CaretRect implements Surface. It is the box of the visual line holding
// the selection focus.
func (h *Headless) CaretRect() (Rect, bool) {
	if h.sel == nil {
		return Rect{}, false
	}
	focus := h.sel.Focus
	if focus.Node == nil || !focus.Node.Within(h.root) {
		return Rect{}, false
	}
	block := focus.Node.Block()
	if block == nil {
		return Rect{}, false
	}
	offset, _ := BlockOffset(block, focus)
	line, col := h.locate(block, offset)
	br := h.Rect(block)
	return Rect{
		X: float64(col) * h.charWidth,
		Y: br.Y + float64(line)*h.lineHeight,
		W: 1,
		H: h.lineHeight,
	}, true
}

// ScrollBy implements Scroller.
func (h *Headless) ScrollBy(dy float64) {
	max := h.contentHeight() - h.viewportH
	if max < 0 {
		max = 0
	}
	h.scrollY += dy
	if h.scrollY < 0 {
		h.scrollY = 0
	}
	if h.scrollY > max {
		h.scrollY = max
	}
}

// Viewport implements Scroller.
func (h *Headless) Viewport() Rect {
	return Rect{X: 0, Y: 0, W: h.width(), H: h.viewportH}
}

// ScrollTop is the current scroll offset.
func (h *Headless) ScrollTop() float64 { return h.scrollY }

// AddClass implements Decorator.
func (h *Headless) AddClass(id, class string) {
	if h.classes[id] == nil {
		h.classes[id] = make(map[string]bool)
	}
	h.classes[id][class] = true
}

// RemoveClass implements Decorator.
func (h *Headless) RemoveClass(id, class string) {
	delete(h.classes[id], class)
	if len(h.classes[id]) == 0 {
		delete(h.classes, id)
	}
}

// HasClass implements Decorator.
func (h *Headless) HasClass(id, class string) bool {
	return h.classes[id][class]
}

// Decorated reports whether any element carries a class.
func (h *Headless) Decorated() bool { return len(h.classes) > 0 }

// ShowProxy implements Decorator.
func (h *Headless) ShowProxy(ids []string, at Point) {
	h.proxy = Proxy{IDs: append([]string(nil), ids...), At: at, Visible: true}
}

// MoveProxy implements Decorator.
func (h *Headless) MoveProxy(at Point) { h.proxy.At = at }

// HideProxy implements Decorator.
func (h *Headless) HideProxy() { h.proxy = Proxy{} }

// Proxy returns the drag preview state.
func (h *Headless) Proxy() Proxy { return h.proxy }

// Type simulates native typing at the selection focus: the text is inserted
// into the rendered tree only, as an editable surface would before the
// editor reads the block back.
func (h *Headless) Type(s string) bool {
	if h.sel == nil || h.sel.Focus.Node == nil || !h.sel.Focus.Node.Within(h.root) {
		return false
	}
	p := h.sel.Focus
	if p.Node.Kind == KindText {
		runes := []rune(p.Node.Text)
		off := clamp(p.Offset, 0, len(runes))
		p.Node.Text = string(runes[:off]) + s + string(runes[off:])
		p.Node.Anchor = false
		*h.sel = Caret(Position{Node: p.Node, Offset: off + utf8.RuneCountInString(s)})
		return true
	}
	t := NewText(s)
	p.Node.Insert(p.Offset, t)
	*h.sel = Caret(Position{Node: t, Offset: utf8.RuneCountInString(s)})
	return true
}

func (h *Headless) width() float64 { return float64(h.columns) * h.charWidth }

func (h *Headless) contentHeight() float64 {
	total := 0.0
	for _, c := range h.root.Children {
		total += h.blockHeight(c)
	}
	return total
}

func (h *Headless) blockHeight(block *Node) float64 {
	switch block.Tag {
	case "hr":
		return h.lineHeight
	case "img":
		return float64(h.imageLines) * h.lineHeight
	}
	return float64(len(h.visualLines(block))) * h.lineHeight
}

// visualLines returns the display width of every wrapped line of a block.
func (h *Headless) visualLines(block *Node) []int {
	text := plain(block)
	if k := len(block.Children); k > 0 && block.Children[k-1].Tag == "br" {
		// a final break only keeps the empty last line open
		text = strings.TrimSuffix(text, "\n")
	}
	var out []int
	for _, logical := range strings.Split(text, "\n") {
		w := runewidth.StringWidth(logical)
		for w > h.columns {
			out = append(out, h.columns)
			w -= h.columns
		}
		out = append(out, w)
	}
	return out
}

// locate maps a visible offset to a visual line and column.
func (h *Headless) locate(block *Node, offset int) (line, col int) {
	text := []rune(plain(block))
	offset = clamp(offset, 0, len(text))
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		w := runewidth.RuneWidth(r)
		if col+w > h.columns {
			line++
			col = 0
		}
		col += w
	}
	return line, col
}

func plain(n *Node) string {
	var b strings.Builder
	n.Walk(func(c *Node) bool {
		switch {
		case c.Kind == KindText:
			b.WriteString(c.Text)
		case c.Kind == KindElement && c.Tag == "br":
			b.WriteByte('\n')
		}
		return true
	})
	return b.String()
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
