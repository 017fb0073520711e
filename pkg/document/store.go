// Package document holds the open notes and the structural mutation
// primitives every editing component goes through.
//
// A Store is the single writer of the note model. Mutations either succeed
// or are rejected as no-ops (reported by their boolean result); they never
// return errors against a well-formed note. Every committed mutation
// publishes a core.EventNoteChanged event keyed by note id, which is the
// only thing persistence collaborators observe.
package document

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/quire/pkg/core"
)

// Store holds the note map and the synchronization generation counters.
type Store struct {
	mu    sync.RWMutex
	notes core.NoteMap
	ids   *IDGenerator

	gen      uint64
	noteGen  map[string]uint64
	blockGen map[blockKey]uint64

	subMu   sync.RWMutex
	subs    map[int]func(core.Event)
	nextSub int

	logger *slog.Logger
	now    func() time.Time
}

type blockKey struct {
	note, block string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for rejected requests (debug level).
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the store's block id generator.
func WithIDGenerator(g *IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock sets the time source used for event timestamps and creation dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		notes:    make(core.NoteMap),
		ids:      NewIDGenerator("b"),
		noteGen:  make(map[string]uint64),
		blockGen: make(map[blockKey]uint64),
		subs:     make(map[int]func(core.Event)),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IDs returns the generator used for new block ids.
func (s *Store) IDs() *IDGenerator {
	return s.ids
}

// Open loads a note into the store, repairing structural invariants: a
// note always has at least one block, block ids are non-empty and unique,
// and per-type fields are normalized. It returns the stored copy.
func (s *Store) Open(n core.Note) core.Note {
	n = n.Clone()

	s.mu.Lock()
	seen := make(map[string]bool, len(n.Content.Blocks))
	for i := range n.Content.Blocks {
		b := &n.Content.Blocks[i]
		b.Normalize()
		if b.ID == "" || seen[b.ID] {
			b.ID = s.ids.Next()
		}
		seen[b.ID] = true
		s.ids.Observe(b.ID)
	}
	if len(n.Content.Blocks) == 0 {
		n.Content.Blocks = []core.Block{core.Paragraph(s.ids.Next(), "")}
	}
	if n.Title == "" {
		n.Title = n.Content.Title
	}
	n.Content.Title = n.Title
	if n.Created.IsZero() {
		n.Created = s.now()
	}
	s.notes[n.ID] = n
	s.gen++
	s.noteGen[n.ID] = s.gen
	out := n.Clone()
	s.mu.Unlock()
	return out
}

// Close removes a note from the store. It does not publish an event.
func (s *Store) Close(id string) {
	s.mu.Lock()
	delete(s.notes, id)
	delete(s.noteGen, id)
	for k := range s.blockGen {
		if k.note == id {
			delete(s.blockGen, k)
		}
	}
	s.mu.Unlock()
}

// Note returns a copy of an open note.
func (s *Store) Note(id string) (core.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return core.Note{}, false
	}
	return n.Clone(), true
}

// Notes returns copies of every open note, oldest first.
func (s *Store) Notes() []core.Note {
	s.mu.RLock()
	out := make([]core.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Blocks returns a copy of a note's block list.
func (s *Store) Blocks(noteID string) []core.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[noteID]
	if !ok {
		return nil
	}
	return n.Clone().Content.Blocks
}

// Block returns one block.
func (s *Store) Block(noteID, blockID string) (core.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[noteID]
	if !ok {
		return core.Block{}, false
	}
	i := indexOf(n.Content.Blocks, blockID)
	if i < 0 {
		return core.Block{}, false
	}
	return n.Content.Blocks[i].Clone(), true
}

// IndexOf returns the position of a block, or -1.
func (s *Store) IndexOf(noteID, blockID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[noteID]
	if !ok {
		return -1
	}
	return indexOf(n.Content.Blocks, blockID)
}

func indexOf(blocks []core.Block, id string) int {
	for i, b := range blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Snapshot deep-copies the open notes. With ids it copies only those
// notes; ids that are not open are left out.
func (s *Store) Snapshot(ids ...string) core.NoteMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(ids) == 0 {
		return s.notes.Clone()
	}
	out := make(core.NoteMap, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[id]; ok {
			out[id] = n.Clone()
		}
	}
	return out
}

// Restore replaces the open notes held in m and bumps their generation,
// so every visible block of those notes re-renders from the restored model.
// Notes missing from m are kept and notes in m that are no longer open
// stay closed. Notes whose content differs from the current state are
// published.
func (s *Store) Restore(m core.NoteMap) {
	s.mu.Lock()
	changed := make([]string, 0, len(m))
	s.gen++
	for id, n := range m {
		cur, ok := s.notes[id]
		if !ok {
			continue
		}
		if !sameNote(cur, n) {
			changed = append(changed, id)
		}
		n = n.Clone()
		s.notes[id] = n
		s.noteGen[id] = s.gen
		for _, b := range n.Content.Blocks {
			s.ids.Observe(b.ID)
		}
	}
	s.mu.Unlock()

	sort.Strings(changed)
	for _, id := range changed {
		s.publish(id)
	}
}

func sameNote(a, b core.Note) bool {
	if a.ID != b.ID || a.Title != b.Title || a.Content.Title != b.Content.Title || a.FolderPath() != b.FolderPath() {
		return false
	}
	if (a.Folder == nil) != (b.Folder == nil) || len(a.Content.Blocks) != len(b.Content.Blocks) {
		return false
	}
	for i := range a.Content.Blocks {
		x, y := a.Content.Blocks[i], b.Content.Blocks[i]
		if x.ID != y.ID || x.Type != y.Type || x.Text != y.Text || x.Level != y.Level ||
			x.IsChecked() != y.IsChecked() || x.Src != y.Src || x.Alt != y.Alt {
			return false
		}
	}
	return true
}

// update runs fn against a mutable note under the write lock and publishes
// a change event when fn reports success.
func (s *Store) update(noteID string, fn func(n *core.Note) bool) bool {
	s.mu.Lock()
	n, ok := s.notes[noteID]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("mutation on unknown note", "id", noteID)
		return false
	}
	n = n.Clone()
	done := fn(&n)
	if done {
		s.notes[noteID] = n
	}
	s.mu.Unlock()

	if done {
		s.publish(noteID)
	}
	return done
}
