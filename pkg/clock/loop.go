package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Loop is a real-time Scheduler. Callbacks are queued and executed by Run
// on its goroutine, which makes that goroutine the editing goroutine.
type Loop struct {
	tasks    chan func()
	interval time.Duration

	mu     sync.Mutex
	seq    int
	frames map[int]*loopTimer
}

type loopTimer struct {
	l       *Loop
	id      int
	t       *time.Timer
	repeat  bool
	fn      func()
	mu      sync.Mutex
	stopped bool
}

func (t *loopTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	if t.t != nil {
		t.t.Stop()
	}
	t.l.mu.Lock()
	delete(t.l.frames, t.id)
	t.l.mu.Unlock()
	return true
}

// fire marks one-shot timers done and reports whether fn should run.
func (t *loopTimer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	if !t.repeat {
		t.stopped = true
	}
	return true
}

// NewLoop creates a loop painting every interval (FrameInterval when zero).
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &Loop{
		tasks:    make(chan func(), 256),
		interval: interval,
		frames:   make(map[int]*loopTimer),
	}
}

// Do queues fn to run on the loop goroutine.
func (l *Loop) Do(fn func()) {
	l.tasks <- fn
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{l: l, fn: fn}
	lt.t = time.AfterFunc(d, func() {
		l.Do(func() {
			if lt.fire() {
				fn()
			}
		})
	})
	return lt
}

// NextFrame implements Scheduler.
func (l *Loop) NextFrame(fn func()) Timer { return l.frame(fn, false) }

// EveryFrame implements Scheduler.
func (l *Loop) EveryFrame(fn func()) Timer { return l.frame(fn, true) }

func (l *Loop) frame(fn func(), repeat bool) Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	lt := &loopTimer{l: l, id: l.seq, fn: fn, repeat: repeat}
	l.frames[lt.id] = lt
	return lt
}

// Run executes queued callbacks and frame callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		case <-ticker.C:
			l.paint()
		}
	}
}

func (l *Loop) paint() {
	l.mu.Lock()
	due := make([]*loopTimer, 0, len(l.frames))
	for _, t := range l.frames {
		due = append(due, t)
	}
	l.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })
	for _, t := range due {
		if !t.fire() {
			continue
		}
		if !t.repeat {
			l.mu.Lock()
			delete(l.frames, t.id)
			l.mu.Unlock()
		}
		t.fn()
	}
}
