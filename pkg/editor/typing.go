package editor

import (
	"strings"
	"unicode/utf8"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/inline"
	"github.com/aretw0/quire/pkg/surface"
)

type shortcut struct {
	prefix  string
	typ     core.BlockType
	level   int
	checked bool
}

// Longer prefixes first.
var shortcuts = []shortcut{
	{prefix: "### ", typ: core.BlockHeading, level: 3},
	{prefix: "## ", typ: core.BlockHeading, level: 2},
	{prefix: "# ", typ: core.BlockHeading, level: 1},
	{prefix: "[ ] ", typ: core.BlockChecklist},
	{prefix: "[x] ", typ: core.BlockChecklist, checked: true},
	{prefix: "- ", typ: core.BlockBullet},
	{prefix: "* ", typ: core.BlockBullet},
	{prefix: "1. ", typ: core.BlockNumbered},
}

func matchShortcut(text string, offset int) (shortcut, bool) {
	for _, sc := range shortcuts {
		if strings.HasPrefix(text, sc.prefix) && offset == utf8.RuneCountInString(sc.prefix) {
			return sc, true
		}
	}
	return shortcut{}, false
}

// TypeRune inserts a printable character at the caret. A caret sitting
// outside every block is first moved into the nearest block, so the
// keystroke is never lost.
func (e *Editor) TypeRune(r rune) bool {
	return e.InsertText(string(r))
}

// InsertText inserts plain text at the caret, replacing any selection.
// Consecutive insertions coalesce into one undo step.
func (e *Editor) InsertText(s string) bool {
	r, ok := e.selection()
	if !ok {
		return false
	}
	p := r.Start
	if !r.Collapsed() {
		var id string
		var off int
		e.hist.CommitStructural(func() bool {
			var changed bool
			id, off, changed = e.collapse(r)
			return changed
		})
		if id == "" {
			return false
		}
		p.BlockID, p.Offset = id, off
	}

	blk, ok := e.store.Block(e.noteID, p.BlockID)
	if !ok || !blk.Type.HoldsText() {
		return false
	}
	text := inline.InsertAt(blk.Text, p.Offset, s)
	off := p.Offset + utf8.RuneCountInString(s)
	if !e.hist.CommitText(func() bool { return e.store.SetText(e.noteID, blk.ID, text) }) {
		return false
	}
	if e.applyShortcut(blk.ID, off) {
		return true
	}
	e.bridge.Render()
	e.bridge.PlaceCaret(blk.ID, off)
	return true
}

// Input reads a block back from the surface after native editing and
// commits its text. When the rendered markup already matches what the
// model would render, the node is kept as is; otherwise the block is
// re-rendered and the caret put back at the same offset.
func (e *Editor) Input(blockID string) bool {
	node := e.surf.BlockNode(blockID)
	blk, ok := e.store.Block(e.noteID, blockID)
	if node == nil || !ok || !blk.Type.HoldsText() {
		return false
	}
	tree := inline.Sanitize(surface.ToInline(node))
	text := inline.Decode(tree)
	p, hasCaret := e.bridge.Caret()
	hasCaret = hasCaret && p.BlockID == blockID

	if !e.hist.CommitText(func() bool { return e.store.SetText(e.noteID, blockID, text) }) {
		return false
	}
	if hasCaret && e.applyShortcut(blockID, p.Offset) {
		return true
	}
	if inline.Encode(text).Equal(tree) {
		e.bridge.Adopt(blockID)
		return true
	}
	e.bridge.Render()
	if hasCaret {
		e.bridge.PlaceCaret(blockID, p.Offset)
	}
	return true
}

// SetTitle edits the note title. Title edits coalesce like text edits.
func (e *Editor) SetTitle(title string) bool {
	return e.hist.CommitText(func() bool { return e.store.SetTitle(e.noteID, title) })
}

// applyShortcut turns a paragraph that starts with a markdown block marker
// into the matching block type once the caret sits right after the marker.
func (e *Editor) applyShortcut(blockID string, offset int) bool {
	if !e.shortcuts {
		return false
	}
	blk, ok := e.store.Block(e.noteID, blockID)
	if !ok || blk.Type != core.BlockParagraph {
		return false
	}
	sc, ok := matchShortcut(blk.Text, offset)
	if !ok {
		return false
	}
	rest := strings.TrimPrefix(blk.Text, sc.prefix)
	if !e.hist.CommitStructural(func() bool {
		e.store.SetType(e.noteID, blockID, sc.typ)
		if sc.level > 0 {
			e.store.SetHeadingLevel(e.noteID, blockID, sc.level)
		}
		if sc.checked {
			e.store.ToggleChecked(e.noteID, blockID)
		}
		e.store.SetText(e.noteID, blockID, rest)
		return true
	}) {
		return false
	}
	e.settle(blockID, 0, blockID)
	return true
}
