// Package caret keeps an editable surface and the document model in step:
// it renders blocks, maps native selections to (block id, offset) pairs and
// back, and recovers the caret when a re-render leaves it outside every
// block.
package caret

import (
	"io"
	"log/slog"

	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/inline"
	"github.com/aretw0/quire/pkg/surface"
)

// Location identifies a block by id and current position.
type Location struct {
	BlockID string
	Index   int
}

// Point is a logical caret position.
type Point struct {
	BlockID string
	Index   int
	Offset  int
}

// Range is a selection in document order.
type Range struct {
	Start, End Point
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// MultiBlock reports whether the range spans more than one block.
func (r Range) MultiBlock() bool {
	return r.Start.BlockID != r.End.BlockID
}

// Bridge connects one open note to one surface.
type Bridge struct {
	store  *document.Store
	noteID string
	surf   surface.Surface
	sched  clock.Scheduler
	images core.ImageResolver
	logger *slog.Logger

	rendered map[string]rendered
	verify   clock.Timer
}

type rendered struct {
	gen   uint64
	block core.Block
	node  *surface.Node
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithImageResolver sets how image sources are resolved for display.
func WithImageResolver(r core.ImageResolver) Option {
	return func(b *Bridge) {
		if r != nil {
			b.images = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a bridge for an open note.
func New(store *document.Store, noteID string, surf surface.Surface, sched clock.Scheduler, opts ...Option) *Bridge {
	b := &Bridge{
		store:    store,
		noteID:   noteID,
		surf:     surf,
		sched:    sched,
		images:   core.ImageResolverFunc(func(src string) string { return src }),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		rendered: make(map[string]rendered),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NoteID is the note this bridge renders.
func (b *Bridge) NoteID() string { return b.noteID }

// Store is the underlying document store.
func (b *Bridge) Store() *document.Store { return b.store }

// Surface is the surface this bridge renders into.
func (b *Bridge) Surface() surface.Surface { return b.surf }

// Scheduler is the scheduler callbacks run on.
func (b *Bridge) Scheduler() clock.Scheduler { return b.sched }

// Render brings the surface in line with the model. A block is rebuilt
// from the model when its synchronization generation advanced or its
// content no longer matches what was rendered; other blocks keep their
// nodes. Block order always follows the model.
func (b *Bridge) Render() {
	blocks := b.store.Blocks(b.noteID)
	nodes := make([]*surface.Node, 0, len(blocks))
	seen := make(map[string]bool, len(blocks))

	for _, blk := range blocks {
		gen := b.store.BlockGeneration(b.noteID, blk.ID)
		r, ok := b.rendered[blk.ID]
		if !ok || r.gen < gen || !sameContent(r.block, blk) {
			r = rendered{gen: gen, block: blk, node: b.build(blk)}
			b.rendered[blk.ID] = r
		}
		nodes = append(nodes, r.node)
		seen[blk.ID] = true
	}
	for id := range b.rendered {
		if !seen[id] {
			delete(b.rendered, id)
		}
	}
	b.surf.SetBlocks(nodes)
}

// Adopt records that the surface already shows the model's current content
// of a block, as after native typing, so the next Render keeps its node.
func (b *Bridge) Adopt(blockID string) {
	blk, ok := b.store.Block(b.noteID, blockID)
	if !ok {
		return
	}
	r, ok := b.rendered[blockID]
	if !ok {
		return
	}
	r.block = blk
	b.rendered[blockID] = r
}

func (b *Bridge) build(blk core.Block) *surface.Node {
	switch blk.Type {
	case core.BlockImage:
		return surface.NewBlock(blk, nil, b.images.Resolve(blk.Src))
	case core.BlockDivider:
		return surface.NewBlock(blk, nil, "")
	}
	return surface.NewBlock(blk, inline.Encode(blk.Text), "")
}

func sameContent(a, b core.Block) bool {
	return a.Type == b.Type && a.Text == b.Text && a.Level == b.Level &&
		a.IsChecked() == b.IsChecked() && a.Src == b.Src && a.Alt == b.Alt
}

// LocateBlock resolves which block owns a node by walking its ancestors.
// Nodes no longer attached to the surface resolve to nothing.
func (b *Bridge) LocateBlock(n *surface.Node) (Location, bool) {
	if n == nil || !n.Within(b.surf.Root()) {
		return Location{}, false
	}
	block := n.Block()
	if block == nil {
		return Location{}, false
	}
	i := b.store.IndexOf(b.noteID, block.BlockID)
	if i < 0 {
		return Location{}, false
	}
	return Location{BlockID: block.BlockID, Index: i}, true
}

func (b *Bridge) point(p surface.Position) (Point, bool) {
	loc, ok := b.LocateBlock(p.Node)
	if !ok {
		return Point{}, false
	}
	off, ok := surface.BlockOffset(p.Node.Block(), p)
	if !ok {
		return Point{}, false
	}
	return Point{BlockID: loc.BlockID, Index: loc.Index, Offset: off}, true
}

// Caret returns the logical position of the selection focus.
func (b *Bridge) Caret() (Point, bool) {
	sel, ok := b.surf.Selection()
	if !ok {
		return Point{}, false
	}
	return b.point(sel.Focus)
}

// SelectionRange returns the selection in document order. It reports false
// when either end lies outside every block.
func (b *Bridge) SelectionRange() (Range, bool) {
	sel, ok := b.surf.Selection()
	if !ok {
		return Range{}, false
	}
	a, ok := b.point(sel.Anchor)
	if !ok {
		return Range{}, false
	}
	f, ok := b.point(sel.Focus)
	if !ok {
		return Range{}, false
	}
	if f.Index < a.Index || (f.Index == a.Index && f.Offset < a.Offset) {
		a, f = f, a
	}
	return Range{Start: a, End: f}, true
}

// SelectionSpan returns the ids of every block a multi-block selection
// intersects, in document order.
func (b *Bridge) SelectionSpan() ([]string, bool) {
	r, ok := b.SelectionRange()
	if !ok || !r.MultiBlock() {
		return nil, false
	}
	blocks := b.store.Blocks(b.noteID)
	ids := make([]string, 0, r.End.Index-r.Start.Index+1)
	for i := r.Start.Index; i <= r.End.Index && i < len(blocks); i++ {
		ids = append(ids, blocks[i].ID)
	}
	return ids, true
}

// SelectRange sets a native selection between two logical points.
func (b *Bridge) SelectRange(start, end Point) bool {
	sn, en := b.surf.BlockNode(start.BlockID), b.surf.BlockNode(end.BlockID)
	if sn == nil || en == nil {
		return false
	}
	b.surf.SetSelection(surface.Selection{
		Anchor: positionAt(sn, start.Offset),
		Focus:  positionAt(en, end.Offset),
	})
	b.surf.Focus()
	return true
}

// ClearSelection drops the native selection.
func (b *Bridge) ClearSelection() {
	b.surf.ClearSelection()
}
