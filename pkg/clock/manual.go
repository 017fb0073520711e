package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by the caller.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
	frames []*manualTimer
}

type manualTimer struct {
	m       *Manual
	when    time.Time
	seq     int
	fn      func()
	repeat  bool
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

// NewManual creates a Manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	sort.SliceStable(m.timers, func(i, j int) bool {
		if !m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].when.Before(m.timers[j].when)
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	return t
}

// NextFrame implements Scheduler.
func (m *Manual) NextFrame(fn func()) Timer {
	return m.frame(fn, false)
}

// EveryFrame implements Scheduler.
func (m *Manual) EveryFrame(fn func()) Timer {
	return m.frame(fn, true)
}

func (m *Manual) frame(fn func(), repeat bool) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, seq: m.seq, fn: fn, repeat: repeat}
	m.frames = append(m.frames, t)
	return t
}

// Advance moves the clock forward, running every delayed callback that
// falls due, in order. Callbacks scheduled by callbacks run too when they
// fall within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if len(m.timers) == 0 || m.timers[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		t.stopped = true
		if t.when.After(m.now) {
			m.now = t.when
		}
		m.mu.Unlock()
		t.fn()
	}
}

// Frame simulates one paint: every frame callback registered before the
// call runs once; one-shot callbacks are then discarded. Callbacks
// registered while the frame runs wait for the next one.
func (m *Manual) Frame() {
	m.mu.Lock()
	m.now = m.now.Add(FrameInterval)
	due := append([]*manualTimer(nil), m.frames...)
	m.mu.Unlock()

	for _, t := range due {
		m.mu.Lock()
		if t.stopped {
			m.mu.Unlock()
			continue
		}
		if !t.repeat {
			t.stopped = true
			m.remove(t)
		}
		m.mu.Unlock()
		t.fn()
	}
}

// Pending reports how many callbacks are outstanding.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers) + len(m.frames)
}

func (m *Manual) remove(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
	for i, x := range m.frames {
		if x == t {
			m.frames = append(m.frames[:i], m.frames[i+1:]...)
			return
		}
	}
}
