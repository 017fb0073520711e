// Package clock provides the cancellable delayed and per-frame callbacks
// the gesture engines and the caret bridge suspend on.
//
// Every callback runs on the editing goroutine: Manual runs them inside
// Advance and Frame, Loop runs them inside Run. Nothing ever blocks the
// caller.
package clock

import "time"

// FrameInterval is the nominal duration of one paint frame.
const FrameInterval = 16 * time.Millisecond

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback; it reports false if it already ran or was stopped.
	Stop() bool
}

// Scheduler schedules callbacks on the editing goroutine.
type Scheduler interface {
	Now() time.Time
	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// NextFrame runs fn once, after the next paint.
	NextFrame(fn func()) Timer
	// EveryFrame runs fn after every paint until stopped.
	EveryFrame(fn func()) Timer
}
