package editor

import (
	"unicode/utf8"
)

// ArrowUp moves the caret to the end of the previous text block when it is
// on the first visual line of its block, or into the title field from the
// first text block. Anywhere else the key is left to the surface.
func (e *Editor) ArrowUp() bool {
	p, ok := e.bridge.Caret()
	if !ok || !e.onEdgeLine(p.BlockID, true) {
		return false
	}
	blocks := e.store.Blocks(e.noteID)
	if j := prevEligible(blocks, p.Index); j >= 0 {
		return e.bridge.PlaceCaretAtEnd(blocks[j].ID)
	}
	n, ok := e.store.Note(e.noteID)
	if !ok {
		return false
	}
	e.surf.FocusTitle(utf8.RuneCountInString(n.Title))
	return true
}

// ArrowDown moves the caret to the start of the next text block when it is
// on the last visual line of its block.
func (e *Editor) ArrowDown() bool {
	p, ok := e.bridge.Caret()
	if !ok || !e.onEdgeLine(p.BlockID, false) {
		return false
	}
	blocks := e.store.Blocks(e.noteID)
	j := nextEligible(blocks, p.Index)
	if j < 0 {
		return false
	}
	return e.bridge.PlaceCaret(blocks[j].ID, 0)
}

// FocusFirstBlock moves the caret from the title to the start of the first
// text block.
func (e *Editor) FocusFirstBlock() bool {
	blocks := e.store.Blocks(e.noteID)
	j := nextEligible(blocks, -1)
	if j < 0 {
		return false
	}
	return e.bridge.PlaceCaret(blocks[j].ID, 0)
}

// onEdgeLine reports whether the caret is on the first (top) or last visual
// line of a block.
func (e *Editor) onEdgeLine(blockID string, top bool) bool {
	node := e.surf.BlockNode(blockID)
	cr, ok := e.surf.CaretRect()
	if node == nil || !ok {
		return false
	}
	br := e.surf.Rect(node)
	lh := e.surf.LineHeight()
	if top {
		return cr.Y-br.Y < lh
	}
	return br.Bottom()-cr.Bottom() < lh
}
