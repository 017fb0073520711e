// Package editor implements the key-driven block edit operations: it turns
// input events into document mutations, wraps every mutation in a history
// commit and puts the caret back through the caret bridge.
package editor

import (
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/quire/pkg/caret"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/history"
	"github.com/aretw0/quire/pkg/surface"
)

// ErrNoImageStore is returned by InsertImage when no image store is configured.
var ErrNoImageStore = errors.New("editor: no image store configured")

// Key identifies a non-printable key.
type Key int

const (
	KeyNone Key = iota
	KeyEnter
	KeyBackspace
	KeyArrowUp
	KeyArrowDown
	KeyEscape
)

// KeyEvent is one key press. A printable key carries its rune with KeyNone.
type KeyEvent struct {
	Key   Key
	Rune  rune
	Shift bool
	// Mod is the platform command modifier (Ctrl or Cmd).
	Mod bool
}

// Editor edits one open note.
type Editor struct {
	store  *document.Store
	bridge *caret.Bridge
	surf   surface.Surface
	hist   *history.Engine
	images core.ImageStore
	logger *slog.Logger
	noteID string

	shortcuts bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithImageStore sets where inserted images are saved.
func WithImageStore(s core.ImageStore) Option {
	return func(e *Editor) {
		e.images = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithShortcuts toggles markdown shortcuts such as "# " at the start of a
// paragraph. They are on by default.
func WithShortcuts(on bool) Option {
	return func(e *Editor) {
		e.shortcuts = on
	}
}

// New creates an editor over the note the bridge renders. The history
// engine captures the bridge's caret with each checkpoint.
func New(bridge *caret.Bridge, hist *history.Engine, opts ...Option) *Editor {
	e := &Editor{
		store:     bridge.Store(),
		bridge:    bridge,
		surf:      bridge.Surface(),
		hist:      hist,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		noteID:    bridge.NoteID(),
		shortcuts: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	hist.SetCaretFunc(func() (history.Caret, bool) {
		p, ok := bridge.Caret()
		return history.Caret{NoteID: e.noteID, BlockID: p.BlockID, Offset: p.Offset}, ok
	})
	return e
}

// NoteID is the note being edited.
func (e *Editor) NoteID() string { return e.noteID }

// Bridge is the caret bridge the editor drives.
func (e *Editor) Bridge() *caret.Bridge { return e.bridge }

// History is the history engine the editor commits through.
func (e *Editor) History() *history.Engine { return e.hist }

// Render brings the surface in line with the model.
func (e *Editor) Render() { e.bridge.Render() }

// HandleKey dispatches a key press. It reports whether the editor consumed
// the key; unconsumed keys are left to the surface's native behavior.
func (e *Editor) HandleKey(ev KeyEvent) bool {
	if ev.Mod {
		switch {
		case ev.Rune == 'z' && !ev.Shift, ev.Rune == 'Z' && !ev.Shift:
			return e.Undo()
		case ev.Rune == 'z', ev.Rune == 'Z', ev.Rune == 'y':
			return e.Redo()
		}
		return false
	}
	if e.surf.TitleFocused() {
		switch ev.Key {
		case KeyEnter, KeyArrowDown:
			return e.FocusFirstBlock()
		}
		return false
	}
	switch ev.Key {
	case KeyEnter:
		if ev.Shift {
			return e.InsertText("\n")
		}
		return e.Enter()
	case KeyBackspace:
		return e.Backspace()
	case KeyArrowUp:
		return e.ArrowUp()
	case KeyArrowDown:
		return e.ArrowDown()
	case KeyNone:
		if ev.Rune != 0 {
			return e.TypeRune(ev.Rune)
		}
	}
	return false
}

// caretPoint returns the caret, relocating it into the nearest block when
// it sits outside every block.
func (e *Editor) caretPoint() (caret.Point, bool) {
	if p, ok := e.bridge.Caret(); ok {
		return p, true
	}
	return e.bridge.Recover()
}

// selection returns the current selection, recovering a stray caret.
func (e *Editor) selection() (caret.Range, bool) {
	if r, ok := e.bridge.SelectionRange(); ok {
		return r, true
	}
	p, ok := e.bridge.Recover()
	if !ok {
		return caret.Range{}, false
	}
	return caret.Range{Start: p, End: p}, true
}

// settle bumps the synchronization generation of the touched blocks (the
// whole note when none are given), re-renders and places the caret.
func (e *Editor) settle(caretID string, offset int, touched ...string) {
	e.store.Bump(e.noteID, touched...)
	e.bridge.Render()
	if caretID != "" {
		e.bridge.PlaceCaret(caretID, offset)
	}
}

func prevEligible(blocks []core.Block, i int) int {
	for j := i - 1; j >= 0; j-- {
		if blocks[j].Type.HoldsText() {
			return j
		}
	}
	return -1
}

func nextEligible(blocks []core.Block, i int) int {
	for j := i + 1; j < len(blocks); j++ {
		if blocks[j].Type.HoldsText() {
			return j
		}
	}
	return -1
}
