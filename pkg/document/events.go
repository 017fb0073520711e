package document

import (
	"context"
	"sync"

	"github.com/aretw0/quire/pkg/core"
)

// Subscribe registers fn for change events. fn runs synchronously on the
// goroutine that committed the mutation, after the store lock is released,
// so it may read the store. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(core.Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Watch delivers change events on a buffered channel until ctx is done.
// Events are dropped when the consumer falls more than size events behind.
func (s *Store) Watch(ctx context.Context, size int) <-chan core.Event {
	if size <= 0 {
		size = 64
	}
	ch := make(chan core.Event, size)
	var mu sync.Mutex
	closed := false
	unsubscribe := s.Subscribe(func(e core.Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			s.logger.Warn("event dropped, watcher is slow", "id", e.ID)
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}

func (s *Store) publish(noteID string) {
	e := core.Event{Type: core.EventNoteChanged, ID: noteID, Timestamp: s.now().Unix()}

	s.subMu.RLock()
	fns := make([]func(core.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
