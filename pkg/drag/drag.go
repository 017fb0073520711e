// Package drag implements press-and-hold reordering of blocks inside the
// editing surface.
package drag

import (
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/quire/pkg/caret"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/gesture"
	"github.com/aretw0/quire/pkg/history"
	"github.com/aretw0/quire/pkg/surface"
)

// PlaceholderClass marks the slots of the blocks being dragged.
const PlaceholderClass = "drag-placeholder"

// Session is the state of one drag, from press to drop.
type Session struct {
	Pressed  string
	IDs      []string
	Original []core.Block
	Pointer  surface.Point
	Target   int
}

// Engine reorders the blocks of one note by dragging.
type Engine struct {
	bridge *caret.Bridge
	store  *document.Store
	hist   *history.Engine
	deco   surface.Decorator
	logger *slog.Logger

	tracker *gesture.Tracker
	scroll  *gesture.AutoScroller
	settle  time.Duration

	session *Session
	mark    history.Mark
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger  *slog.Logger
	tracker []gesture.Option
	settle  time.Duration
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHoldDelay overrides gesture.HoldDelay.
func WithHoldDelay(d time.Duration) Option {
	return func(c *engineConfig) { c.tracker = append(c.tracker, gesture.WithHoldDelay(d)) }
}

// WithMoveThreshold overrides gesture.MoveThreshold.
func WithMoveThreshold(px float64) Option {
	return func(c *engineConfig) { c.tracker = append(c.tracker, gesture.WithMoveThreshold(px)) }
}

// WithSettleDuration overrides gesture.SettleDuration.
func WithSettleDuration(d time.Duration) Option {
	return func(c *engineConfig) {
		if d > 0 {
			c.settle = d
		}
	}
}

// New creates a drag engine over the note rendered by bridge. scroller may
// be nil when the surface does not scroll.
func New(bridge *caret.Bridge, hist *history.Engine, deco surface.Decorator, scroller surface.Scroller, opts ...Option) *Engine {
	cfg := engineConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		settle: gesture.SettleDuration,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		bridge:  bridge,
		store:   bridge.Store(),
		hist:    hist,
		deco:    deco,
		logger:  cfg.logger,
		tracker: gesture.NewTracker(bridge.Scheduler(), cfg.tracker...),
		settle:  cfg.settle,
	}
	e.scroll = gesture.NewAutoScroller(bridge.Scheduler(), scroller, e.reorder)
	return e
}

// Phase is the phase of the current drag.
func (e *Engine) Phase() gesture.Phase { return e.tracker.Phase() }

// Session returns a copy of the current drag, if any.
func (e *Engine) Session() (Session, bool) {
	if e.session == nil {
		return Session{}, false
	}
	s := *e.session
	s.IDs = slices.Clone(s.IDs)
	s.Original = slices.Clone(s.Original)
	return s, true
}

// Idle reports whether no drag is in progress and no timer is pending.
func (e *Engine) Idle() bool {
	return e.session == nil && !e.tracker.Pending() && !e.scroll.Running()
}

// Press starts a press on a block. The drag begins once the press is held
// for the hold delay without moving past the threshold.
func (e *Engine) Press(blockID string, at surface.Point) bool {
	if e.session != nil || e.store.IndexOf(e.bridge.NoteID(), blockID) < 0 {
		return false
	}
	e.session = &Session{Pressed: blockID, Pointer: at}
	if !e.tracker.Press(at, e.begin) {
		e.session = nil
		return false
	}
	return true
}

func (e *Engine) begin() {
	s := e.session
	noteID := e.bridge.NoteID()

	e.mark = e.hist.Checkpoint()
	s.Original = e.store.Blocks(noteID)

	s.IDs = []string{s.Pressed}
	if span, ok := e.bridge.SelectionSpan(); ok && slices.Contains(span, s.Pressed) {
		s.IDs = span
	}
	e.bridge.ClearSelection()
	s.Target = e.restIndex(s.IDs[0])

	e.deco.ShowProxy(s.IDs, s.Pointer)
	for _, id := range s.IDs {
		e.deco.AddClass(id, PlaceholderClass)
	}
	e.scroll.Start(s.Pointer)
	e.logger.Debug("block drag started", "note", noteID, "blocks", s.IDs)
}

// Move reports the pointer position. While armed, moving too far abandons
// the press; while dragging, the dragged blocks follow the pointer.
func (e *Engine) Move(at surface.Point) {
	s := e.session
	if s == nil {
		return
	}
	s.Pointer = at
	switch e.tracker.Phase() {
	case gesture.Armed:
		if !e.tracker.Move(at) {
			e.session = nil
		}
	case gesture.Dragging:
		e.deco.MoveProxy(at)
		e.scroll.Update(at)
		e.reorder()
	}
}

// reorder moves the dragged blocks in front of the first other block whose
// vertical midpoint lies below the pointer.
func (e *Engine) reorder() {
	s := e.session
	if s == nil || e.tracker.Phase() != gesture.Dragging {
		return
	}
	noteID := e.bridge.NoteID()
	surf := e.bridge.Surface()

	target := 0
	for _, b := range e.store.Blocks(noteID) {
		if slices.Contains(s.IDs, b.ID) {
			continue
		}
		if s.Pointer.Y < surf.Rect(surf.BlockNode(b.ID)).CenterY() {
			break
		}
		target++
	}
	if target == s.Target {
		return
	}
	s.Target = target
	if e.store.MoveBlocks(noteID, s.IDs, target) {
		e.bridge.Render()
	}
}

// restIndex is the position of id among the blocks that are not dragged.
func (e *Engine) restIndex(id string) int {
	i := 0
	for _, b := range e.store.Blocks(e.bridge.NoteID()) {
		if b.ID == id {
			return i
		}
		if !slices.Contains(e.session.IDs, b.ID) {
			i++
		}
	}
	return i
}

// Release drops the dragged blocks where they are. The proxy glides into
// the slot before decorations are removed.
func (e *Engine) Release() {
	s := e.session
	if s == nil {
		return
	}
	switch e.tracker.Release() {
	case gesture.Armed, gesture.Idle:
		e.session = nil
		return
	case gesture.Settling:
		return
	}
	e.scroll.Stop()
	surf := e.bridge.Surface()
	slot := surf.Rect(surf.BlockNode(s.IDs[0]))
	e.deco.MoveProxy(surface.Point{X: slot.X, Y: slot.Y})
	e.tracker.Settle(e.settle, e.finish)
}

func (e *Engine) finish() {
	s := e.session
	e.strip()
	e.session = nil
	noteID := e.bridge.NoteID()
	if sameOrder(e.store.Blocks(noteID), s.Original) {
		e.hist.Rollback(e.mark)
		e.logger.Debug("block drag dropped in place", "note", noteID)
		return
	}
	e.logger.Debug("block drag dropped", "note", noteID, "blocks", s.IDs, "index", s.Target)
}

// Cancel abandons the drag. A drag in progress puts every block back in
// its original order and leaves no undo step; a settling drop completes.
func (e *Engine) Cancel() {
	s := e.session
	if s == nil {
		return
	}
	switch e.tracker.Phase() {
	case gesture.Armed, gesture.Idle:
		e.tracker.Reset()
		e.session = nil
		return
	case gesture.Settling:
		e.tracker.Reset()
		e.finish()
		return
	}
	e.tracker.Reset()
	e.scroll.Stop()
	e.strip()
	e.session = nil

	noteID := e.bridge.NoteID()
	if !sameOrder(e.store.Blocks(noteID), s.Original) {
		e.store.ReplaceBlocks(noteID, s.Original)
		e.bridge.Render()
	}
	e.hist.Rollback(e.mark)
	e.logger.Debug("block drag cancelled", "note", noteID)
}

// Escape cancels the drag.
func (e *Engine) Escape() { e.Cancel() }

// Blur cancels the drag when the surface loses focus.
func (e *Engine) Blur() { e.Cancel() }

func (e *Engine) strip() {
	e.deco.HideProxy()
	for _, id := range e.session.IDs {
		e.deco.RemoveClass(id, PlaceholderClass)
	}
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
