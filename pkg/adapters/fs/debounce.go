package fs

import (
	"sync"
	"time"

	"github.com/aretw0/quire/pkg/core"
)

// debouncer coalesces bursts of filesystem events per note id. Editors
// often write a file several times in a row; only the last event of a
// burst is emitted, except that a create followed by writes stays a create.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]core.Event
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]core.Event),
	}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if prev, ok := d.pending[e.ID]; ok && prev.Type == core.EventCreate && e.Type == core.EventModify {
		e.Type = core.EventCreate
	}
	d.pending[e.ID] = e

	if t, ok := d.timers[e.ID]; ok && t.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	id := e.ID
	d.timers[id] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		ev, ok := d.pending[id]
		delete(d.pending, id)
		delete(d.timers, id)
		d.mu.Unlock()
		if ok {
			emit(ev)
		}
	})
}

// stopAndWait drops pending events and waits for emits already running.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, id)
	}
	clear(d.pending)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
