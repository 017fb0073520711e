// Package gesture holds the press-and-hold state machine shared by the
// block and sidebar drag engines, and the edge-triggered auto-scroller.
package gesture

import (
	"math"
	"time"

	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/surface"
)

const (
	// HoldDelay is how long a press must be held before a drag starts.
	HoldDelay = 400 * time.Millisecond
	// MoveThreshold is how far (in px) the pointer may move while armed
	// before the press is treated as a scroll or selection instead.
	MoveThreshold = 5.0
	// SettleDuration is how long the proxy takes to glide into place.
	SettleDuration = 150 * time.Millisecond
)

// Phase is the state of a gesture.
type Phase int

const (
	Idle Phase = iota
	Armed
	Dragging
	Settling
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Settling:
		return "settling"
	}
	return "unknown"
}

// Tracker drives one press through idle, armed, dragging and settling.
type Tracker struct {
	sched     clock.Scheduler
	delay     time.Duration
	threshold float64

	phase  Phase
	origin surface.Point
	timer  clock.Timer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHoldDelay overrides HoldDelay.
func WithHoldDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.delay = d
		}
	}
}

// WithMoveThreshold overrides MoveThreshold.
func WithMoveThreshold(px float64) Option {
	return func(t *Tracker) {
		if px > 0 {
			t.threshold = px
		}
	}
}

// NewTracker creates an idle tracker.
func NewTracker(sched clock.Scheduler, opts ...Option) *Tracker {
	t := &Tracker{sched: sched, delay: HoldDelay, threshold: MoveThreshold}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Phase is the current phase.
func (t *Tracker) Phase() Phase { return t.phase }

// Origin is where the press started.
func (t *Tracker) Origin() surface.Point { return t.origin }

// Pending reports whether a hold or settle timer is outstanding.
func (t *Tracker) Pending() bool { return t.timer != nil }

// Press arms the tracker. onHold runs when the press has been held for the
// hold delay without moving past the threshold; the tracker is dragging by
// then. A press while not idle is ignored.
func (t *Tracker) Press(at surface.Point, onHold func()) bool {
	if t.phase != Idle {
		return false
	}
	t.phase = Armed
	t.origin = at
	t.timer = t.sched.AfterFunc(t.delay, func() {
		t.timer = nil
		if t.phase != Armed {
			return
		}
		t.phase = Dragging
		onHold()
	})
	return true
}

// Move reports the pointer position. While armed, moving past the threshold
// disarms the tracker; Move then reports false.
func (t *Tracker) Move(at surface.Point) bool {
	switch t.phase {
	case Armed:
		if math.Hypot(at.X-t.origin.X, at.Y-t.origin.Y) > t.threshold {
			t.Reset()
			return false
		}
		return true
	case Dragging:
		return true
	}
	return false
}

// Release ends the press and returns the phase it was in. An armed press
// simply disarms.
func (t *Tracker) Release() Phase {
	was := t.phase
	if was == Armed {
		t.Reset()
	}
	return was
}

// Settle moves a dragging tracker to settling; done runs after d, when the
// tracker is idle again.
func (t *Tracker) Settle(d time.Duration, done func()) {
	if t.phase != Dragging {
		return
	}
	t.phase = Settling
	t.timer = t.sched.AfterFunc(d, func() {
		t.timer = nil
		t.phase = Idle
		done()
	})
}

// Reset cancels any timer and returns to idle.
func (t *Tracker) Reset() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.phase = Idle
}
