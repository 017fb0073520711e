package document

import (
	"github.com/aretw0/quire/pkg/core"
)

// InsertBlock inserts b at index (clamped). An empty or duplicate id is
// replaced by a fresh one. It returns the id of the inserted block.
func (s *Store) InsertBlock(noteID string, index int, b core.Block) (string, bool) {
	var id string
	ok := s.update(noteID, func(n *core.Note) bool {
		b = b.Clone()
		b.Normalize()
		if b.ID == "" || indexOf(n.Content.Blocks, b.ID) >= 0 {
			b.ID = s.ids.Next()
		} else {
			s.ids.Observe(b.ID)
		}
		index = clamp(index, 0, len(n.Content.Blocks))
		n.Content.Blocks = insertAt(n.Content.Blocks, index, b)
		id = b.ID
		return true
	})
	return id, ok
}

// InsertAfter inserts b right after the block afterID.
func (s *Store) InsertAfter(noteID, afterID string, b core.Block) (string, bool) {
	i := s.IndexOf(noteID, afterID)
	if i < 0 {
		s.logger.Debug("insert after unknown block", "id", noteID, "block", afterID)
		return "", false
	}
	return s.InsertBlock(noteID, i+1, b)
}

// DeleteBlock removes a block. Deleting the only block of a note is rejected.
func (s *Store) DeleteBlock(noteID, blockID string) bool {
	return s.update(noteID, func(n *core.Note) bool {
		i := indexOf(n.Content.Blocks, blockID)
		if i < 0 {
			return false
		}
		if len(n.Content.Blocks) == 1 {
			s.logger.Debug("rejected delete of last block", "id", noteID, "block", blockID)
			return false
		}
		n.Content.Blocks = append(n.Content.Blocks[:i], n.Content.Blocks[i+1:]...)
		return true
	})
}

// SetText replaces the inline-token text of a text-holding block.
func (s *Store) SetText(noteID, blockID, text string) bool {
	return s.update(noteID, func(n *core.Note) bool {
		b := find(n, blockID)
		if b == nil || !b.Type.HoldsText() || b.Text == text {
			return false
		}
		b.Text = text
		return true
	})
}

// SetType changes a block's type in place; the id is kept. Converting to
// a divider or image drops the text.
func (s *Store) SetType(noteID, blockID string, t core.BlockType) bool {
	if !t.Valid() {
		return false
	}
	return s.update(noteID, func(n *core.Note) bool {
		b := find(n, blockID)
		if b == nil || b.Type == t {
			return false
		}
		b.Type = t
		if t == core.BlockHeading && b.Level == 0 {
			b.Level = 1
		}
		b.Normalize()
		return true
	})
}

// SetHeadingLevel sets the level of a heading (clamped to 1..3).
func (s *Store) SetHeadingLevel(noteID, blockID string, level int) bool {
	return s.update(noteID, func(n *core.Note) bool {
		b := find(n, blockID)
		if b == nil || b.Type != core.BlockHeading {
			return false
		}
		level = clamp(level, 1, 3)
		if b.Level == level {
			return false
		}
		b.Level = level
		return true
	})
}

// ToggleChecked flips a checklist item.
func (s *Store) ToggleChecked(noteID, blockID string) bool {
	return s.update(noteID, func(n *core.Note) bool {
		b := find(n, blockID)
		if b == nil || b.Type != core.BlockChecklist {
			return false
		}
		v := !b.IsChecked()
		b.Checked = &v
		return true
	})
}

// SetTitle sets the note title and its content title.
func (s *Store) SetTitle(noteID, title string) bool {
	return s.update(noteID, func(n *core.Note) bool {
		if n.Title == title && n.Content.Title == title {
			return false
		}
		n.Title = title
		n.Content.Title = title
		return true
	})
}

// SetFolder moves a note to a folder path; nil or "" means the root.
func (s *Store) SetFolder(noteID string, folder *string) bool {
	if folder != nil && *folder == "" {
		folder = nil
	}
	return s.update(noteID, func(n *core.Note) bool {
		if (n.Folder == nil && folder == nil) || (n.Folder != nil && folder != nil && *n.Folder == *folder) {
			return false
		}
		if folder == nil {
			n.Folder = nil
		} else {
			f := *folder
			n.Folder = &f
		}
		return true
	})
}

// MoveBlocks moves the given blocks, kept in document order, so that they
// start at index `to` of the list that remains once they are taken out.
// It reports false when a block is unknown or the order does not change.
func (s *Store) MoveBlocks(noteID string, ids []string, to int) bool {
	if len(ids) == 0 {
		return false
	}
	return s.update(noteID, func(n *core.Note) bool {
		moving := make(map[string]bool, len(ids))
		for _, id := range ids {
			if indexOf(n.Content.Blocks, id) < 0 {
				return false
			}
			moving[id] = true
		}
		var moved, rest []core.Block
		for _, b := range n.Content.Blocks {
			if moving[b.ID] {
				moved = append(moved, b)
			} else {
				rest = append(rest, b)
			}
		}
		to = clamp(to, 0, len(rest))
		out := make([]core.Block, 0, len(n.Content.Blocks))
		out = append(out, rest[:to]...)
		out = append(out, moved...)
		out = append(out, rest[to:]...)
		if sameOrder(out, n.Content.Blocks) {
			return false
		}
		n.Content.Blocks = out
		return true
	})
}

// SplitBlock sets the block's text to before and inserts a new block with
// after right below it. List items continue as the same list type
// (checklists unchecked); everything else continues as a paragraph.
// It returns the new block's id.
func (s *Store) SplitBlock(noteID, blockID, before, after string) (string, bool) {
	var id string
	ok := s.update(noteID, func(n *core.Note) bool {
		i := indexOf(n.Content.Blocks, blockID)
		if i < 0 || !n.Content.Blocks[i].Type.HoldsText() {
			return false
		}
		cur := &n.Content.Blocks[i]
		cur.Text = before

		next := core.Block{ID: s.ids.Next(), Type: ContinuationType(cur.Type), Text: after}
		next.Normalize()
		n.Content.Blocks = insertAt(n.Content.Blocks, i+1, next)
		id = next.ID
		return true
	})
	return id, ok
}

// ContinuationType is the type of the block created by splitting a block of type t.
func ContinuationType(t core.BlockType) core.BlockType {
	if t.IsList() {
		return t
	}
	return core.BlockParagraph
}

// MergeBlocks appends the text of cur onto prev and removes cur.
// Both blocks must hold text.
func (s *Store) MergeBlocks(noteID, prevID, curID string) bool {
	return s.update(noteID, func(n *core.Note) bool {
		pi := indexOf(n.Content.Blocks, prevID)
		ci := indexOf(n.Content.Blocks, curID)
		if pi < 0 || ci < 0 || pi == ci {
			return false
		}
		prev, cur := &n.Content.Blocks[pi], n.Content.Blocks[ci]
		if !prev.Type.HoldsText() || !cur.Type.HoldsText() {
			return false
		}
		prev.Text += cur.Text
		n.Content.Blocks = append(n.Content.Blocks[:ci], n.Content.Blocks[ci+1:]...)
		return true
	})
}

// ReplaceBlocks swaps the whole block list. An empty list is rejected.
func (s *Store) ReplaceBlocks(noteID string, blocks []core.Block) bool {
	if len(blocks) == 0 {
		return false
	}
	return s.update(noteID, func(n *core.Note) bool {
		out := make([]core.Block, len(blocks))
		seen := make(map[string]bool, len(blocks))
		for i, b := range blocks {
			b = b.Clone()
			b.Normalize()
			if b.ID == "" || seen[b.ID] {
				b.ID = s.ids.Next()
			}
			seen[b.ID] = true
			s.ids.Observe(b.ID)
			out[i] = b
		}
		n.Content.Blocks = out
		return true
	})
}

func find(n *core.Note, id string) *core.Block {
	i := indexOf(n.Content.Blocks, id)
	if i < 0 {
		return nil
	}
	return &n.Content.Blocks[i]
}

func insertAt(blocks []core.Block, i int, b core.Block) []core.Block {
	blocks = append(blocks, core.Block{})
	copy(blocks[i+1:], blocks[i:])
	blocks[i] = b
	return blocks
}

func sameOrder(a, b []core.Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
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
