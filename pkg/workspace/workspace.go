// Package workspace composes the editing components around a note
// repository: one document store, one edit session per open note, the
// sidebar tree and the autosave syncer.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/aretw0/quire/pkg/caret"
	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/drag"
	"github.com/aretw0/quire/pkg/editor"
	"github.com/aretw0/quire/pkg/history"
	"github.com/aretw0/quire/pkg/sidebar"
	"github.com/aretw0/quire/pkg/surface"
	qsync "github.com/aretw0/quire/pkg/sync"
)

// DefaultColumns is the wrap width of headless sessions.
const DefaultColumns = 80

// ErrStopped is returned by Do after the editing loop has stopped.
var ErrStopped = errors.New("workspace: editing loop stopped")

// Session is the edit state of one open note.
type Session struct {
	NoteID  string
	Surface *surface.Headless
	Bridge  *caret.Bridge
	History *history.Engine
	Editor  *editor.Editor
	Drag    *drag.Engine
}

// Workspace owns the document store and serializes every edit onto the
// editing goroutine.
type Workspace struct {
	service *core.Service
	store   *document.Store
	sched   clock.Scheduler
	loop    *clock.Loop
	tree    *sidebar.Tree
	rows    *surface.Headless
	sbDrag  *sidebar.Engine
	syncer  *qsync.Syncer
	images  core.ImageStore
	logger  *slog.Logger

	orders    sidebar.OrderStore
	syncDelay time.Duration
	columns   int

	mu      sync.Mutex
	running bool
	stopped chan struct{}

	sessMu   sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger shared by the workspace components.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithScheduler replaces the real-time loop, e.g. with a clock.Manual in tests.
func WithScheduler(s clock.Scheduler) Option {
	return func(w *Workspace) { w.sched = s }
}

// WithImageStore sets where inserted images are saved.
func WithImageStore(s core.ImageStore) Option {
	return func(w *Workspace) { w.images = s }
}

// WithOrderStore persists the sidebar order.
func WithOrderStore(s sidebar.OrderStore) Option {
	return func(w *Workspace) { w.orders = s }
}

// WithSyncDelay sets the autosave debounce.
func WithSyncDelay(d time.Duration) Option {
	return func(w *Workspace) { w.syncDelay = d }
}

// WithColumns sets the wrap width of new sessions.
func WithColumns(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.columns = n
		}
	}
}

// New creates a workspace over service. Without WithScheduler a
// clock.Loop is created and run by Start.
func New(service *core.Service, opts ...Option) *Workspace {
	w := &Workspace{
		service:   service,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		syncDelay: qsync.DefaultDelay,
		columns:   DefaultColumns,
		sessions:  make(map[string]*Session),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sched == nil {
		w.loop = clock.NewLoop(0)
		w.sched = w.loop
	}
	w.store = document.New(document.WithLogger(w.logger), document.WithClock(w.sched.Now))
	w.tree = sidebar.NewTree(w.store, sidebar.WithOrderStore(w.orders), sidebar.WithTreeLogger(w.logger))
	w.rows = surface.NewHeadless()
	w.sbDrag = sidebar.New(w.tree, w.sched, w.rows, sidebar.WithLogger(w.logger))
	w.syncer = qsync.New(w.store, service.Repository(), w.sched,
		qsync.WithDelay(w.syncDelay),
		qsync.WithLogger(w.logger),
	)
	return w
}

// Service is the repository service backing the workspace.
func (w *Workspace) Service() *core.Service { return w.service }

// Store is the document store.
func (w *Workspace) Store() *document.Store { return w.store }

// Tree is the sidebar tree.
func (w *Workspace) Tree() *sidebar.Tree { return w.tree }

// SidebarDrag is the engine that drags rows of the sidebar tree. It must
// be driven from the editing goroutine.
func (w *Workspace) SidebarDrag() *sidebar.Engine { return w.sbDrag }

// SidebarSurface receives the sidebar drag decorations.
func (w *Workspace) SidebarSurface() *surface.Headless { return w.rows }

// Syncer is the autosave collaborator.
func (w *Workspace) Syncer() *qsync.Syncer { return w.syncer }

// Scheduler is the editing goroutine's scheduler.
func (w *Workspace) Scheduler() clock.Scheduler { return w.sched }

// Load opens every stored note and the sidebar order.
func (w *Workspace) Load(ctx context.Context) error {
	notes, err := w.service.ListNotes(ctx)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	return w.Do(ctx, func() error {
		for _, n := range notes {
			opened := w.store.Open(n)
			w.syncer.Prime(opened)
		}
		w.logger.Info("workspace loaded", "notes", len(notes))
		return w.tree.Load(ctx)
	})
}

// Start runs the editing loop (when the workspace owns one) and the
// syncer until ctx is done. Pending saves are flushed on shutdown.
func (w *Workspace) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return qsync.ErrStarted
	}
	w.running = true
	w.mu.Unlock()

	if w.loop != nil {
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer close(w.stopped)
			return w.loop.Run(ctx)
		}, lifecycle.WithErrorHandler(func(err error) {
			w.logger.Error("editing loop failed", "error", err)
		}))
	}
	return w.syncer.Start(ctx)
}

// Wait blocks until the syncer has flushed after Start's context ended.
func (w *Workspace) Wait() {
	<-w.syncer.Done()
}

// Do runs fn on the editing goroutine and waits for its result.
func (w *Workspace) Do(ctx context.Context, fn func() error) error {
	w.mu.Lock()
	looping := w.loop != nil && w.running
	w.mu.Unlock()

	if !looping {
		w.mu.Lock()
		defer w.mu.Unlock()
		return fn()
	}

	errc := make(chan error, 1)
	select {
	case <-w.stopped:
		return ErrStopped
	default:
	}
	w.loop.Do(func() { errc <- fn() })
	select {
	case err := <-errc:
		return err
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session returns the open session for id.
func (w *Workspace) Session(id string) (*Session, bool) {
	w.sessMu.RLock()
	defer w.sessMu.RUnlock()
	s, ok := w.sessions[id]
	return s, ok
}

// Open returns the session for id, loading the note from the repository
// when it is not open yet. It must run on the editing goroutine.
func (w *Workspace) Open(ctx context.Context, id string) (*Session, error) {
	if s, ok := w.Session(id); ok {
		return s, nil
	}
	if _, ok := w.store.Note(id); !ok {
		n, err := w.service.GetNote(ctx, id)
		if err != nil {
			return nil, err
		}
		w.syncer.Prime(w.store.Open(n))
	}

	h := surface.NewHeadless(surface.WithColumns(w.columns))
	hist := history.New(w.store,
		history.WithNote(id),
		history.WithClock(w.sched.Now),
		history.WithLogger(w.logger),
	)
	bridge := caret.New(w.store, id, h, w.sched)
	opts := []editor.Option{editor.WithLogger(w.logger)}
	if w.images != nil {
		opts = append(opts, editor.WithImageStore(w.images))
	}
	ed := editor.New(bridge, hist, opts...)
	ed.Render()

	s := &Session{
		NoteID:  id,
		Surface: h,
		Bridge:  bridge,
		History: hist,
		Editor:  ed,
		Drag:    drag.New(bridge, hist, h, h, drag.WithLogger(w.logger)),
	}
	w.sessMu.Lock()
	w.sessions[id] = s
	w.sessMu.Unlock()
	w.logger.Debug("session opened", "id", id)
	return s, nil
}

// Create adds a new note holding one empty paragraph and opens it. It must
// run on the editing goroutine.
func (w *Workspace) Create(ctx context.Context, title string, folder *string) (*Session, error) {
	n := core.Note{
		ID:      uuid.NewString(),
		Title:   title,
		Folder:  folder,
		Created: w.sched.Now().UTC(),
	}
	n.Content.Title = title
	n = w.store.Open(n)
	if err := w.service.SaveNote(ctx, n); err != nil {
		w.store.Close(n.ID)
		return nil, err
	}
	w.syncer.Prime(n)
	return w.Open(ctx, n.ID)
}

// Close drops the session for id and removes the note from the store
// after flushing its pending save. It must run on the editing goroutine.
func (w *Workspace) Close(id string) {
	w.drop(id)
	w.syncer.Flush()
	w.store.Close(id)
}

// Delete removes the note from the store and the repository. It must run
// on the editing goroutine.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	w.drop(id)
	w.store.Close(id)
	return w.service.DeleteNote(ctx, id)
}

// drop forgets the session for id, abandoning a block drag in progress.
func (w *Workspace) drop(id string) {
	w.sessMu.Lock()
	s, ok := w.sessions[id]
	delete(w.sessions, id)
	w.sessMu.Unlock()
	if ok {
		s.Drag.Cancel()
	}
}

// WorkspaceState is the introspection view of the workspace.
type WorkspaceState struct {
	Sessions []string `json:"sessions"`
	Notes    int      `json:"notes"`
	Running  bool     `json:"running"`
	Syncer   any      `json:"syncer"`
}

// State implements introspection.Introspectable.
func (w *Workspace) State() any {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	w.sessMu.RLock()
	ids := make([]string, 0, len(w.sessions))
	for id := range w.sessions {
		ids = append(ids, id)
	}
	w.sessMu.RUnlock()
	sort.Strings(ids)
	return WorkspaceState{
		Sessions: ids,
		Notes:    len(w.store.Notes()),
		Running:  running,
		Syncer:   w.syncer.State(),
	}
}

// ComponentType implements introspection.Component.
func (w *Workspace) ComponentType() string {
	return "workspace"
}

var _ introspection.Introspectable = (*Workspace)(nil)
var _ introspection.Component = (*Workspace)(nil)
