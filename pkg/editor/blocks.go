package editor

import (
	"github.com/aretw0/quire/pkg/caret"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/inline"
)

const dividerShortcut = "---"

// Enter splits the caret block. A selection is collapsed first, within the
// same undo step. An empty list item leaves the list instead of splitting,
// and a paragraph holding only "---" becomes a divider.
func (e *Editor) Enter() bool {
	r, ok := e.selection()
	if !ok {
		return false
	}

	var blockID, caretID string
	ok = e.hist.CommitStructural(func() bool {
		id, off, changed := e.collapse(r)
		blockID = id
		blk, found := e.store.Block(e.noteID, id)
		if !found || !blk.Type.HoldsText() {
			return changed
		}

		switch {
		case blk.Type.IsList() && blk.Text == "":
			caretID = id
			return e.store.SetType(e.noteID, id, core.BlockParagraph) || changed
		case e.shortcuts && blk.Type == core.BlockParagraph && blk.Text == dividerShortcut && off == len(dividerShortcut):
			e.store.SetType(e.noteID, id, core.BlockDivider)
			newID, inserted := e.store.InsertAfter(e.noteID, id, core.Paragraph("", ""))
			caretID = newID
			return inserted
		}

		before, after := inline.SplitText(blk.Text, off)
		newID, split := e.store.SplitBlock(e.noteID, id, before, after)
		if !split {
			return changed
		}
		caretID = newID
		return true
	})
	if !ok {
		return false
	}
	if r.MultiBlock() {
		e.settle(caretID, 0)
	} else {
		e.settle(caretID, 0, blockID, caretID)
	}
	return true
}

// Backspace deletes backwards from the caret:
//   - a selection is collapsed;
//   - an empty list item becomes a paragraph;
//   - an empty block is removed, the caret moving to the end of the previous
//     text block (or the start of the next one);
//   - inside text one character is deleted;
//   - at the start of a block the block is merged onto the previous text
//     block, or a divider or image directly above is removed.
//
// At the start of the first block nothing happens.
func (e *Editor) Backspace() bool {
	r, ok := e.selection()
	if !ok {
		return false
	}
	if !r.Collapsed() {
		var id string
		var off int
		if !e.hist.CommitStructural(func() bool {
			var changed bool
			id, off, changed = e.collapse(r)
			return changed
		}) {
			return true
		}
		if r.MultiBlock() {
			e.settle(id, off)
		} else {
			e.settle(id, off, id)
		}
		return true
	}

	p := r.Start
	blocks := e.store.Blocks(e.noteID)
	i := indexOf(blocks, p.BlockID)
	if i < 0 {
		return false
	}
	blk := blocks[i]

	if blk.Type.IsList() && blk.Text == "" {
		if e.hist.CommitStructural(func() bool {
			return e.store.SetType(e.noteID, blk.ID, core.BlockParagraph)
		}) {
			e.settle(blk.ID, 0, blk.ID)
		}
		return true
	}

	prev, next := prevEligible(blocks, i), nextEligible(blocks, i)
	if blk.Text == "" && len(blocks) > 1 && (prev >= 0 || next >= 0) {
		if !e.hist.CommitStructural(func() bool { return e.store.DeleteBlock(e.noteID, blk.ID) }) {
			return true
		}
		if prev >= 0 {
			target := blocks[prev]
			e.settle(target.ID, inline.VisibleLen(target.Text), target.ID)
		} else {
			e.settle(blocks[next].ID, 0, blocks[next].ID)
		}
		return true
	}

	if p.Offset > 0 {
		text := inline.DeleteAt(blk.Text, p.Offset-1, p.Offset)
		if e.hist.CommitText(func() bool { return e.store.SetText(e.noteID, blk.ID, text) }) {
			e.bridge.Render()
			e.bridge.PlaceCaret(blk.ID, p.Offset-1)
		}
		return true
	}

	switch {
	case prev >= 0:
		target := blocks[prev]
		at := inline.VisibleLen(target.Text)
		if e.hist.CommitStructural(func() bool { return e.store.MergeBlocks(e.noteID, target.ID, blk.ID) }) {
			e.settle(target.ID, at, target.ID)
		}
	case i > 0:
		gone := blocks[i-1].ID
		if e.hist.CommitStructural(func() bool { return e.store.DeleteBlock(e.noteID, gone) }) {
			e.settle(blk.ID, 0, blk.ID)
		}
	}
	return true
}

// collapse removes the selected text and reports where the caret lands.
// A selection spanning several blocks keeps the first text block it
// touches, holding the text before the selection start followed by the
// text after the selection end; every other covered block is removed.
func (e *Editor) collapse(r caret.Range) (string, int, bool) {
	if r.Collapsed() {
		return r.Start.BlockID, r.Start.Offset, false
	}
	blocks := e.store.Blocks(e.noteID)
	si, ei := indexOf(blocks, r.Start.BlockID), indexOf(blocks, r.End.BlockID)
	if si < 0 || ei < 0 {
		return "", 0, false
	}

	if si == ei {
		b := blocks[si]
		if !b.Type.HoldsText() {
			return "", 0, false
		}
		text := inline.DeleteAt(b.Text, r.Start.Offset, r.End.Offset)
		return b.ID, r.Start.Offset, e.store.SetText(e.noteID, b.ID, text)
	}

	target := -1
	for i := si; i <= ei; i++ {
		if blocks[i].Type.HoldsText() {
			target = i
			break
		}
	}
	head, tail := "", ""
	if target == si {
		head, _ = inline.SplitText(blocks[si].Text, r.Start.Offset)
	}
	if blocks[ei].Type.HoldsText() {
		_, tail = inline.SplitText(blocks[ei].Text, r.End.Offset)
	}

	var keep core.Block
	if target < 0 {
		keep = core.Paragraph(e.store.IDs().Next(), "")
	} else {
		keep = blocks[target]
		keep.Text = head + tail
	}

	out := make([]core.Block, 0, len(blocks)-(ei-si))
	out = append(out, blocks[:si]...)
	out = append(out, keep)
	out = append(out, blocks[ei+1:]...)
	if !e.store.ReplaceBlocks(e.noteID, out) {
		return "", 0, false
	}
	return keep.ID, inline.VisibleLen(head), true
}

func indexOf(blocks []core.Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// continuation is the type of a block that continues b on a new line.
func continuation(b core.Block) core.Block {
	next := core.Block{Type: document.ContinuationType(b.Type)}
	next.Normalize()
	return next
}
