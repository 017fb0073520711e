// Package history provides linear undo and redo over snapshots of a
// document store, either the whole note map or one note of it. Every mutation of the store should go through one of the
// Engine's commit entry points so that a checkpoint is always taken before
// the state it protects changes.
package history

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
)

const (
	// DefaultCapacity bounds each of the undo and redo stacks.
	DefaultCapacity = 50
	// DefaultWindow is how long a burst of text edits keeps coalescing.
	DefaultWindow = 500 * time.Millisecond
)

// Caret is where the caret was when a checkpoint was taken.
type Caret struct {
	NoteID  string
	BlockID string
	Offset  int
}

// Entry is one checkpoint.
type Entry struct {
	Notes    core.NoteMap
	Caret    Caret
	HasCaret bool
}

// Engine owns the undo and redo stacks of one store, or of one note of it
// when built WithNote.
type Engine struct {
	mu sync.Mutex

	store    *document.Store
	noteIDs  []string
	now      func() time.Time
	caret    func() (Caret, bool)
	logger   *slog.Logger
	capacity int
	window   time.Duration

	undo     []Entry
	redo     []Entry
	seq      uint64
	applying bool
	burst    bool
	lastText time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

// WithWindow overrides DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithNote scopes the engine to one note: checkpoints copy only that note
// and undo or redo never touch the other open notes.
func WithNote(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.noteIDs = []string{id}
		}
	}
}

// WithClock sets the time source used for coalescing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCaret sets how the current caret is captured with each checkpoint.
func WithCaret(fn func() (Caret, bool)) Option {
	return func(e *Engine) {
		e.caret = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine over store.
func New(store *document.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		capacity: DefaultCapacity,
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetCaretFunc replaces the caret capture function.
func (e *Engine) SetCaretFunc(fn func() (Caret, bool)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caret = fn
}

func (e *Engine) capture() Entry {
	entry := Entry{Notes: e.store.Snapshot(e.noteIDs...)}
	if e.caret != nil {
		entry.Caret, entry.HasCaret = e.caret()
	}
	return entry
}

func (e *Engine) pushLocked(stack []Entry, entry Entry) []Entry {
	stack = append(stack, entry)
	if over := len(stack) - e.capacity; over > 0 {
		stack = append(stack[:0], stack[over:]...)
	}
	return stack
}

// PushCheckpoint snapshots the current state onto the undo stack and clears
// the redo stack. It does nothing while a history jump is being applied.
func (e *Engine) PushCheckpoint() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkpointLocked()
}

func (e *Engine) checkpointLocked() bool {
	if e.applying {
		return false
	}
	e.undo = e.pushLocked(e.undo, e.capture())
	e.redo = nil
	e.burst = false
	e.seq++
	return true
}

// Mark identifies the checkpoint taken by Checkpoint.
type Mark struct {
	seq     uint64
	redo    []Entry
	evicted []Entry
	burst   bool
}

// Checkpoint pushes a checkpoint like PushCheckpoint and returns a mark
// that Rollback can use to take it back.
func (e *Engine) Checkpoint() Mark {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applying {
		return Mark{}
	}
	m := Mark{redo: e.redo, burst: e.burst}
	if over := len(e.undo) + 1 - e.capacity; over > 0 {
		m.evicted = append([]Entry(nil), e.undo[:over]...)
	}
	e.checkpointLocked()
	m.seq = e.seq
	return m
}

// Rollback removes the checkpoint m was taken for and brings back the
// redo entries and the oldest undo entries it displaced, so both stacks
// read as if it had never been pushed. It does nothing once the stacks
// moved on from that checkpoint.
func (e *Engine) Rollback(m Mark) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m.seq == 0 || m.seq != e.seq || len(e.undo) == 0 {
		return false
	}
	e.undo = append(m.evicted, e.undo[:len(e.undo)-1]...)
	e.redo = m.redo
	e.burst = m.burst
	e.seq++
	return true
}

// CommitStructural checkpoints, then applies mutate. A mutation that
// reports no change leaves both stacks as they were.
func (e *Engine) CommitStructural(mutate func() bool) bool {
	e.mu.Lock()
	redo := e.redo
	pushed := e.checkpointLocked()
	e.mu.Unlock()

	if mutate() {
		return true
	}
	if pushed {
		e.mu.Lock()
		e.undo = e.undo[:len(e.undo)-1]
		e.redo = redo
		e.mu.Unlock()
	}
	return false
}

// CommitText applies a text edit, coalescing rapid edits: a checkpoint is
// pushed only when no text edit happened within the trailing window, and
// every edit slides the window forward.
func (e *Engine) CommitText(mutate func() bool) bool {
	now := e.now()

	e.mu.Lock()
	redo := e.redo
	pushed := false
	if !e.burst || now.Sub(e.lastText) > e.window {
		pushed = e.checkpointLocked()
	} else if !e.applying {
		e.redo = nil
		e.seq++
	}
	e.mu.Unlock()

	if !mutate() {
		e.mu.Lock()
		if pushed {
			e.undo = e.undo[:len(e.undo)-1]
		}
		e.redo = redo
		e.mu.Unlock()
		return false
	}

	e.mu.Lock()
	if !e.applying {
		e.burst = true
		e.lastText = now
	}
	e.mu.Unlock()
	return true
}

// EndBurst stops the current burst of text edits from coalescing with the
// next one.
func (e *Engine) EndBurst() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.burst = false
}

// Undo restores the most recent checkpoint and returns it. The state it
// replaces goes onto the redo stack.
func (e *Engine) Undo() (Entry, bool) {
	return e.jump(&e.undo, &e.redo, "undo")
}

// Redo reapplies the most recently undone state.
func (e *Engine) Redo() (Entry, bool) {
	return e.jump(&e.redo, &e.undo, "redo")
}

func (e *Engine) jump(from, to *[]Entry, op string) (Entry, bool) {
	e.mu.Lock()
	e.burst = false
	if len(*from) == 0 {
		e.mu.Unlock()
		return Entry{}, false
	}
	target := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = e.pushLocked(*to, e.capture())
	e.seq++
	e.applying = true
	e.mu.Unlock()

	e.store.Restore(target.Notes)

	e.mu.Lock()
	e.applying = false
	undo, redo := len(e.undo), len(e.redo)
	e.mu.Unlock()
	e.logger.Debug("history jump", "op", op, "undo", undo, "redo", redo)
	return target, true
}

// Applying reports whether a history jump is in progress.
func (e *Engine) Applying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applying
}

// Depth is the number of undo checkpoints.
func (e *Engine) Depth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo)
}

// RedoDepth is the number of redo entries.
func (e *Engine) RedoDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redo)
}

// CanUndo reports whether Undo would do anything.
func (e *Engine) CanUndo() bool { return e.Depth() > 0 }

// CanRedo reports whether Redo would do anything.
func (e *Engine) CanRedo() bool { return e.RedoDepth() > 0 }

// Reset empties both stacks.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.undo, e.redo = nil, nil
	e.burst = false
	e.seq++
}
