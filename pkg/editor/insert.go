package editor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/inline"
)

// Paste inserts an HTML fragment at the caret. Markup outside the inline
// span set is stripped; each line of the result after the first becomes a
// new block. Paste never fails on bad markup.
func (e *Editor) Paste(html string) bool {
	return e.PasteText(inline.Paste(html))
}

// PasteText inserts inline-token text at the caret as one undo step,
// splitting it into blocks at line breaks.
func (e *Editor) PasteText(text string) bool {
	r, ok := e.selection()
	if !ok {
		return false
	}
	lines := strings.Split(text, "\n")

	var caretID string
	var caretOff int
	ok = e.hist.CommitStructural(func() bool {
		id, off, changed := e.collapse(r)
		blk, found := e.store.Block(e.noteID, id)
		if !found || !blk.Type.HoldsText() {
			return changed
		}
		head, tail := inline.SplitText(blk.Text, off)

		if len(lines) == 1 {
			caretID, caretOff = id, inline.VisibleLen(head+lines[0])
			return e.store.SetText(e.noteID, id, head+lines[0]+tail) || changed
		}

		e.store.SetText(e.noteID, id, head+lines[0])
		prev := id
		for k, line := range lines[1:] {
			b := continuation(blk)
			b.Text = line
			if k == len(lines)-2 {
				b.Text += tail
				caretOff = inline.VisibleLen(line)
			}
			next, inserted := e.store.InsertAfter(e.noteID, prev, b)
			if !inserted {
				break
			}
			prev = next
		}
		caretID = prev
		return true
	})
	if !ok {
		return false
	}
	e.settle(caretID, caretOff)
	return true
}

// PasteBlocks inserts whole blocks after the caret block (or at the end of
// the note) as one undo step. The caret ends after the last inserted text
// block.
func (e *Editor) PasteBlocks(blocks []core.Block) bool {
	if len(blocks) == 0 {
		return false
	}
	anchor := e.anchorBlock()

	var last, lastText string
	ok := e.hist.CommitStructural(func() bool {
		prev := anchor
		for _, b := range blocks {
			b = b.Clone()
			b.ID = ""
			var id string
			var inserted bool
			if prev == "" {
				id, inserted = e.store.InsertBlock(e.noteID, 0, b)
			} else {
				id, inserted = e.store.InsertAfter(e.noteID, prev, b)
			}
			if !inserted {
				continue
			}
			prev, last = id, id
			if b.Type.HoldsText() {
				lastText = id
			}
		}
		return last != ""
	})
	if !ok {
		return false
	}
	e.settle("", 0)
	if lastText != "" {
		e.bridge.PlaceCaretAtEnd(lastText)
	}
	return true
}

// InsertImage saves an image through the image store and inserts an image
// block after the caret block. A failed save leaves the note untouched.
func (e *Editor) InsertImage(ctx context.Context, name string, r io.Reader) error {
	if e.images == nil {
		return ErrNoImageStore
	}
	src, err := e.images.SaveImage(ctx, e.noteID, name, r)
	if err != nil {
		return fmt.Errorf("save image %q: %w", name, err)
	}
	anchor := e.anchorBlock()

	var imageID, caretID string
	ok := e.hist.CommitStructural(func() bool {
		var inserted bool
		img := core.Image("", src, name)
		if anchor == "" {
			imageID, inserted = e.store.InsertBlock(e.noteID, 0, img)
		} else {
			imageID, inserted = e.store.InsertAfter(e.noteID, anchor, img)
		}
		if !inserted {
			return false
		}
		blocks := e.store.Blocks(e.noteID)
		i := indexOf(blocks, imageID)
		if j := nextEligible(blocks, i); j == i+1 {
			caretID = blocks[j].ID
			return true
		}
		caretID, _ = e.store.InsertAfter(e.noteID, imageID, core.Paragraph("", ""))
		return true
	})
	if !ok {
		return fmt.Errorf("insert image block: %w", core.ErrNotFound)
	}
	e.settle(caretID, 0, imageID)
	return nil
}

// anchorBlock is the caret block, or the last block when there is no caret.
func (e *Editor) anchorBlock() string {
	if p, ok := e.bridge.Caret(); ok {
		return p.BlockID
	}
	blocks := e.store.Blocks(e.noteID)
	if len(blocks) == 0 {
		return ""
	}
	return blocks[len(blocks)-1].ID
}

// InsertBlock inserts a block at index as one undo step.
func (e *Editor) InsertBlock(index int, b core.Block) (string, bool) {
	var id string
	ok := e.hist.CommitStructural(func() bool {
		var inserted bool
		id, inserted = e.store.InsertBlock(e.noteID, index, b)
		return inserted
	})
	if ok {
		e.keepCaret(func() { e.settle("", 0, id) })
	}
	return id, ok
}

// DeleteBlock removes a block as one undo step. The last block of a note is
// never removed.
func (e *Editor) DeleteBlock(blockID string) bool {
	ok := e.hist.CommitStructural(func() bool { return e.store.DeleteBlock(e.noteID, blockID) })
	if ok {
		e.keepCaret(func() { e.settle("", 0) })
	}
	return ok
}

// MoveBlocks moves blocks to index to of the remaining blocks as one undo step.
func (e *Editor) MoveBlocks(ids []string, to int) bool {
	ok := e.hist.CommitStructural(func() bool { return e.store.MoveBlocks(e.noteID, ids, to) })
	if ok {
		e.keepCaret(func() { e.settle("", 0, ids...) })
	}
	return ok
}

// SetType changes the type of a block, keeping its id.
func (e *Editor) SetType(blockID string, t core.BlockType) bool {
	ok := e.hist.CommitStructural(func() bool { return e.store.SetType(e.noteID, blockID, t) })
	if ok {
		e.keepCaret(func() { e.settle("", 0, blockID) })
	}
	return ok
}

// SetHeadingLevel changes the level of a heading.
func (e *Editor) SetHeadingLevel(blockID string, level int) bool {
	ok := e.hist.CommitStructural(func() bool { return e.store.SetHeadingLevel(e.noteID, blockID, level) })
	if ok {
		e.keepCaret(func() { e.settle("", 0, blockID) })
	}
	return ok
}

// ToggleChecked flips a checklist item.
func (e *Editor) ToggleChecked(blockID string) bool {
	ok := e.hist.CommitStructural(func() bool { return e.store.ToggleChecked(e.noteID, blockID) })
	if ok {
		e.keepCaret(func() { e.settle("", 0, blockID) })
	}
	return ok
}

// keepCaret runs fn and puts the caret back where it was, or into the
// nearest block when its block is gone.
func (e *Editor) keepCaret(fn func()) {
	p, had := e.bridge.Caret()
	fn()
	if !had {
		return
	}
	if !e.bridge.PlaceCaret(p.BlockID, p.Offset) {
		e.bridge.Recover()
	}
}
