// Package sync persists the notes of a document store through a
// core.Repository.
//
// The Syncer never writes to the store. It listens for change events,
// waits until a note has been quiet for the debounce delay and hands the
// latest snapshot to a background worker that saves it. Snapshots whose
// content digest matches the last successful save are skipped.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/core"
)

// DefaultDelay is how long a note must stay unchanged before it is saved.
const DefaultDelay = 300 * time.Millisecond

// ChangeReason is passed to repositories under core.ChangeReasonKey.
const ChangeReason = "autosave"

// ErrStarted is returned when Start is called twice.
var ErrStarted = errors.New("syncer already started")

// Source is the part of the document store the Syncer reads.
type Source interface {
	Note(id string) (core.Note, bool)
	Subscribe(fn func(core.Event)) func()
}

// Stats counts what the worker did.
type Stats struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Syncer debounces store changes and saves them.
type Syncer struct {
	source  Source
	repo    core.Repository
	sched   clock.Scheduler
	delay   time.Duration
	logger  *slog.Logger
	onError func(id string, err error)

	mu          sync.Mutex
	started     bool
	unsubscribe func()
	pending     map[string]clock.Timer
	ready       map[string]core.Note
	digests     map[string]uint64
	stats       Stats
	lastErr     error

	wake   chan struct{}
	events chan core.Event
	done   chan struct{}
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithErrorHandler registers a callback for failed saves.
func WithErrorHandler(fn func(id string, err error)) Option {
	return func(s *Syncer) {
		s.onError = fn
	}
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(size int) Option {
	return func(s *Syncer) {
		if size > 0 {
			s.events = make(chan core.Event, size)
		}
	}
}

// New creates a Syncer. Timers run on sched, which should be the
// scheduler driving the editing goroutine.
func New(source Source, repo core.Repository, sched clock.Scheduler, opts ...Option) *Syncer {
	s := &Syncer{
		source:  source,
		repo:    repo,
		sched:   sched,
		delay:   DefaultDelay,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		pending: make(map[string]clock.Timer),
		ready:   make(map[string]core.Note),
		digests: make(map[string]uint64),
		wake:    make(chan struct{}, 1),
		events:  make(chan core.Event, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events delivers one EventModify per successful save. It is closed once
// the Syncer has shut down. Events are dropped when nobody reads them.
func (s *Syncer) Events() <-chan core.Event {
	return s.events
}

// Done is closed after shutdown has flushed every pending note.
func (s *Syncer) Done() <-chan struct{} {
	return s.done
}

// Stats returns the save counters.
func (s *Syncer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the most recent save error, nil after a later success.
func (s *Syncer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Prime records n as already persisted, so an unchanged snapshot of it is
// never written back. Callers prime the notes they load from the repository.
func (s *Syncer) Prime(n core.Note) {
	sum, err := digest(n)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.digests[n.ID] = sum
	s.mu.Unlock()
}

// Start subscribes to the store and runs the save worker until ctx is
// done. On shutdown pending notes are saved before Done is closed.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	s.unsubscribe = s.source.Subscribe(s.changed)
	s.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.done)
		defer close(s.events)
		for {
			select {
			case <-ctx.Done():
				s.shutdown(context.WithoutCancel(ctx))
				return nil
			case <-s.wake:
				s.saveReady(ctx)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("syncer panic", "error", err)
	}))
	return nil
}

// Flush queues every note still waiting for its debounce delay.
func (s *Syncer) Flush() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pending))
	for id, t := range s.pending {
		t.Stop()
		ids = append(ids, id)
	}
	clear(s.pending)
	s.mu.Unlock()

	for _, id := range ids {
		s.capture(id)
	}
}

// changed runs on the goroutine that committed the mutation.
func (s *Syncer) changed(e core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[e.ID]; ok {
		t.Stop()
	}
	id := e.ID
	s.pending[id] = s.sched.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		s.capture(id)
	})
}

// capture snapshots a note and wakes the worker.
func (s *Syncer) capture(id string) {
	n, ok := s.source.Note(id)
	if !ok {
		s.logger.Debug("note closed before save", "id", id)
		return
	}
	s.mu.Lock()
	s.ready[id] = n
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Syncer) takeReady() []core.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Note, 0, len(s.ready))
	for _, n := range s.ready {
		out = append(out, n)
	}
	clear(s.ready)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Syncer) saveReady(ctx context.Context) {
	for _, n := range s.takeReady() {
		s.save(ctx, n)
	}
}

func (s *Syncer) shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Unlock()

	s.Flush()
	s.saveReady(ctx)
	s.logger.Debug("syncer stopped", "saved", s.Stats().Saved)
}

func (s *Syncer) save(ctx context.Context, n core.Note) {
	sum, digestErr := digest(n)
	if digestErr == nil {
		s.mu.Lock()
		last, seen := s.digests[n.ID]
		if seen && last == sum {
			s.stats.Skipped++
			s.mu.Unlock()
			s.logger.Debug("note unchanged, skipping save", "id", n.ID)
			return
		}
		s.mu.Unlock()
	}

	err := s.repo.Save(context.WithValue(ctx, core.ChangeReasonKey, ChangeReason), n)

	s.mu.Lock()
	if err != nil {
		s.stats.Failed++
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Error("save failed", "id", n.ID, "error", err)
		if s.onError != nil {
			s.onError(n.ID, err)
		}
		return
	}
	s.stats.Saved++
	s.lastErr = nil
	if digestErr == nil {
		s.digests[n.ID] = sum
	}
	s.mu.Unlock()

	s.logger.Debug("note saved", "id", n.ID)
	select {
	case s.events <- core.Event{Type: core.EventModify, ID: n.ID, Timestamp: s.sched.Now().Unix()}:
	default:
	}
}

func digest(n core.Note) (uint64, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}
