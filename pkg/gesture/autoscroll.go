package gesture

import (
	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/surface"
)

const (
	// EdgeZone is the height (in px) of the band at each viewport edge that
	// triggers scrolling.
	EdgeZone = 40.0
	// MaxScrollSpeed is the scroll distance per frame at the very edge.
	MaxScrollSpeed = 20.0
)

// Speed is the scroll delta for one frame with the pointer at y: zero
// outside the edge bands, growing linearly to max at (and past) the edge.
func Speed(viewport surface.Rect, y, zone, max float64) float64 {
	top, bottom := viewport.Y, viewport.Bottom()
	switch {
	case y < top+zone:
		d := (top + zone - y) / zone
		if d > 1 {
			d = 1
		}
		return -max * d
	case y > bottom-zone:
		d := (y - (bottom - zone)) / zone
		if d > 1 {
			d = 1
		}
		return max * d
	}
	return 0
}

// AutoScroller scrolls a region every frame while the pointer is near one
// of its edges.
type AutoScroller struct {
	sched    clock.Scheduler
	scroller surface.Scroller
	zone     float64
	max      float64
	onScroll func()

	pointer surface.Point
	timer   clock.Timer
}

// NewAutoScroller creates a stopped auto-scroller. onScroll, if set, runs
// after every frame that scrolled.
func NewAutoScroller(sched clock.Scheduler, scroller surface.Scroller, onScroll func()) *AutoScroller {
	return &AutoScroller{
		sched:    sched,
		scroller: scroller,
		zone:     EdgeZone,
		max:      MaxScrollSpeed,
		onScroll: onScroll,
	}
}

// Start begins the per-frame callback.
func (a *AutoScroller) Start(at surface.Point) {
	a.pointer = at
	if a.timer != nil || a.scroller == nil {
		return
	}
	a.timer = a.sched.EveryFrame(a.frame)
}

// Update records the pointer position.
func (a *AutoScroller) Update(at surface.Point) {
	a.pointer = at
}

// Stop cancels the per-frame callback.
func (a *AutoScroller) Stop() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Running reports whether the per-frame callback is registered.
func (a *AutoScroller) Running() bool { return a.timer != nil }

func (a *AutoScroller) frame() {
	dy := Speed(a.scroller.Viewport(), a.pointer.Y, a.zone, a.max)
	if dy == 0 {
		return
	}
	a.scroller.ScrollBy(dy)
	if a.onScroll != nil {
		a.onScroll()
	}
}
