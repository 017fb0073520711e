package core

import (
	"fmt"
	"time"
)

// BlockType identifies the kind of a content block.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockBullet    BlockType = "bullet"
	BlockNumbered  BlockType = "numbered"
	BlockChecklist BlockType = "checklist"
	BlockDivider   BlockType = "divider"
	BlockImage     BlockType = "image"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockParagraph, BlockHeading, BlockBullet, BlockNumbered, BlockChecklist, BlockDivider, BlockImage:
		return true
	}
	return false
}

// HoldsText reports whether blocks of this type carry inline text and can hold a caret.
func (t BlockType) HoldsText() bool {
	return t != BlockDivider && t != BlockImage
}

// IsList reports whether t is a list item type.
func (t BlockType) IsList() bool {
	return t == BlockBullet || t == BlockNumbered || t == BlockChecklist
}

// Block is one structural unit of a note.
// Text holds inline-formatting tokens only (see package inline), never markup.
type Block struct {
	ID      string    `json:"id" yaml:"id"`
	Type    BlockType `json:"type" yaml:"type"`
	Text    string    `json:"text,omitempty" yaml:"text,omitempty"`
	Level   int       `json:"level,omitempty" yaml:"level,omitempty"`
	Checked *bool     `json:"checked,omitempty" yaml:"checked,omitempty"`
	Src     string    `json:"src,omitempty" yaml:"src,omitempty"`
	Alt     string    `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// Paragraph is a convenience constructor used by importers and tests.
func Paragraph(id, text string) Block {
	return Block{ID: id, Type: BlockParagraph, Text: text}
}

// Heading builds a heading block, clamping level into 1..3.
func Heading(id string, level int, text string) Block {
	b := Block{ID: id, Type: BlockHeading, Text: text, Level: level}
	b.Normalize()
	return b
}

// Checklist builds a checklist item.
func Checklist(id, text string, checked bool) Block {
	return Block{ID: id, Type: BlockChecklist, Text: text, Checked: &checked}
}

// Divider builds a divider block.
func Divider(id string) Block {
	return Block{ID: id, Type: BlockDivider}
}

// Image builds an image block.
func Image(id, src, alt string) Block {
	return Block{ID: id, Type: BlockImage, Src: src, Alt: alt}
}

// IsChecked reports the checklist state; false for every other type.
func (b Block) IsChecked() bool {
	return b.Type == BlockChecklist && b.Checked != nil && *b.Checked
}

// Normalize enforces the per-type field invariants in place.
func (b *Block) Normalize() {
	if !b.Type.Valid() {
		b.Type = BlockParagraph
	}

	if b.Type == BlockChecklist {
		if b.Checked == nil {
			b.Checked = new(bool)
		}
	} else {
		b.Checked = nil
	}

	if b.Type == BlockHeading {
		switch {
		case b.Level < 1:
			b.Level = 1
		case b.Level > 3:
			b.Level = 3
		}
	} else {
		b.Level = 0
	}

	if !b.Type.HoldsText() {
		b.Text = ""
	}
	if b.Type != BlockImage {
		b.Src = ""
		b.Alt = ""
	}
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	if b.Checked != nil {
		v := *b.Checked
		b.Checked = &v
	}
	return b
}

// Content is the body of a note.
type Content struct {
	Title  string  `json:"title" yaml:"title"`
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Note is a titled document composed of an ordered block list.
// Folder is a slash separated path, nil when the note lives at the root.
type Note struct {
	ID      string    `json:"id" yaml:"id"`
	Title   string    `json:"title" yaml:"title"`
	Folder  *string   `json:"folder,omitempty" yaml:"folder,omitempty"`
	Content Content   `json:"content" yaml:"content"`
	Created time.Time `json:"created" yaml:"created"`
}

// FolderPath returns the folder path or "" for the root.
func (n Note) FolderPath() string {
	if n.Folder == nil {
		return ""
	}
	return *n.Folder
}

// Clone returns a deep copy of the note.
func (n Note) Clone() Note {
	if n.Folder != nil {
		f := *n.Folder
		n.Folder = &f
	}
	blocks := make([]Block, len(n.Content.Blocks))
	for i, b := range n.Content.Blocks {
		blocks[i] = b.Clone()
	}
	n.Content.Blocks = blocks
	return n
}

// Validate checks the structural invariants of an open note.
func (n Note) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNote)
	}
	if len(n.Content.Blocks) == 0 {
		return fmt.Errorf("%w: note %s has no blocks", ErrInvalidNote, n.ID)
	}
	seen := make(map[string]bool, len(n.Content.Blocks))
	for _, b := range n.Content.Blocks {
		if b.ID == "" {
			return fmt.Errorf("%w: block without id in %s", ErrInvalidNote, n.ID)
		}
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate block id %s in %s", ErrInvalidNote, b.ID, n.ID)
		}
		seen[b.ID] = true
		if b.Checked != nil && b.Type != BlockChecklist {
			return fmt.Errorf("%w: block %s is not a checklist but has checked", ErrInvalidNote, b.ID)
		}
		if !b.Type.HoldsText() && b.Text != "" {
			return fmt.Errorf("%w: %s block %s carries text", ErrInvalidNote, b.Type, b.ID)
		}
	}
	return nil
}

// NoteMap is the full document state: the unit of undo/redo snapshots.
type NoteMap map[string]Note

// Clone deep-copies the map.
func (m NoteMap) Clone() NoteMap {
	out := make(NoteMap, len(m))
	for id, n := range m {
		out[id] = n.Clone()
	}
	return out
}
