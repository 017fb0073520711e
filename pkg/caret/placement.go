package caret

import (
	"math"

	"github.com/aretw0/quire/pkg/surface"
)

// PlaceCaret puts a collapsed caret at a visible offset of a text block and
// focuses the surface. Offsets are clamped to the block. One check is
// scheduled after the next paint: if the caret has fallen outside every
// block by then, placement is retried once against the block's current
// node, and otherwise abandoned.
func (b *Bridge) PlaceCaret(blockID string, offset int) bool {
	blk, ok := b.store.Block(b.noteID, blockID)
	if !ok || !blk.Type.HoldsText() {
		return false
	}
	node := b.surf.BlockNode(blockID)
	if node == nil {
		b.Render()
		if node = b.surf.BlockNode(blockID); node == nil {
			return false
		}
	}
	b.surf.SetSelection(surface.Caret(positionAt(node, offset)))
	b.surf.Focus()
	b.scheduleVerify(blockID, offset)
	return true
}

// PlaceCaretAtEnd puts the caret after the last visible character of a block.
func (b *Bridge) PlaceCaretAtEnd(blockID string) bool {
	return b.PlaceCaret(blockID, math.MaxInt32)
}

func (b *Bridge) scheduleVerify(blockID string, offset int) {
	if b.verify != nil {
		b.verify.Stop()
	}
	b.verify = b.sched.NextFrame(func() {
		b.verify = nil
		if _, ok := b.Caret(); ok {
			return
		}
		node := b.surf.BlockNode(blockID)
		if node == nil {
			b.logger.Debug("caret lost, block gone", "note", b.noteID, "block", blockID)
			return
		}
		b.logger.Debug("caret lost, retrying", "note", b.noteID, "block", blockID)
		b.surf.SetSelection(surface.Caret(positionAt(node, offset)))
		b.surf.Focus()
	})
}

// VerifyPending reports whether a caret check is waiting for a paint.
func (b *Bridge) VerifyPending() bool {
	return b.verify != nil
}

// FindNearestBlock returns the text block whose vertical center is closest
// to the center of r.
func (b *Bridge) FindNearestBlock(r surface.Rect) (Location, bool) {
	target := r.CenterY()
	best := Location{Index: -1}
	bestDist := math.Inf(1)
	for i, blk := range b.store.Blocks(b.noteID) {
		if !blk.Type.HoldsText() {
			continue
		}
		node := b.surf.BlockNode(blk.ID)
		if node == nil {
			continue
		}
		d := math.Abs(b.surf.Rect(node).CenterY() - target)
		if d < bestDist {
			bestDist = d
			best = Location{BlockID: blk.ID, Index: i}
		}
	}
	return best, best.Index >= 0
}

// Recover moves a caret that sits outside every block into the nearest
// block. It reports the block the caret ends up in.
func (b *Bridge) Recover() (Point, bool) {
	if p, ok := b.Caret(); ok {
		return p, true
	}
	var r surface.Rect
	if cr, ok := b.surf.CaretRect(); ok {
		r = cr
	}
	loc, ok := b.FindNearestBlock(r)
	if !ok {
		return Point{}, false
	}
	b.PlaceCaretAtEnd(loc.BlockID)
	return b.Caret()
}

// positionAt resolves a visible offset inside a block node to a tree
// position, descending depth-first to the text node that contains it. The
// final placeholder break of a block is not a caret position. A block
// without any text gets a zero-length anchor node to hold the caret.
func positionAt(block *surface.Node, offset int) surface.Position {
	limit := block.Len()
	if k := len(block.Children); k > 0 && block.Children[k-1].Tag == "br" {
		limit--
	}
	if offset < 0 {
		offset = 0
	}
	if offset > limit {
		offset = limit
	}

	var pos surface.Position
	acc := 0
	var walk func(n *surface.Node) bool
	walk = func(n *surface.Node) bool {
		for i, c := range n.Children {
			switch {
			case c.Kind == surface.KindText:
				l := c.Len()
				if offset <= acc+l {
					pos = surface.Position{Node: c, Offset: offset - acc}
					return true
				}
				acc += l
			case c.Tag == "br":
				if offset == acc {
					pos = surface.Position{Node: n, Offset: i}
					return true
				}
				acc++
			default:
				if walk(c) {
					return true
				}
			}
		}
		return false
	}
	if walk(block) {
		return pos
	}
	if len(block.Children) == 0 {
		anchor := surface.NewText("")
		anchor.Anchor = true
		block.Append(anchor)
		return surface.Position{Node: anchor, Offset: 0}
	}
	return surface.Position{Node: block, Offset: len(block.Children)}
}
