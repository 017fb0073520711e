package gesture_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/gesture"
	"github.com/aretw0/quire/pkg/surface"
)

func TestTracker_HoldStartsDrag(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	tr := gesture.NewTracker(clk)
	held := 0

	assert.True(t, tr.Press(surface.Point{X: 10, Y: 10}, func() { held++ }))
	assert.False(t, tr.Press(surface.Point{}, func() { held++ }), "a second press is ignored")
	assert.Equal(t, gesture.Armed, tr.Phase())
	assert.True(t, tr.Move(surface.Point{X: 13, Y: 14}), "5 px is still within the threshold")

	clk.Advance(gesture.HoldDelay - time.Millisecond)
	assert.Equal(t, 0, held)
	clk.Advance(time.Millisecond)
	assert.Equal(t, 1, held)
	assert.Equal(t, gesture.Dragging, tr.Phase())
	assert.False(t, tr.Pending())

	assert.Equal(t, gesture.Dragging, tr.Release())
	done := false
	tr.Settle(gesture.SettleDuration, func() { done = true })
	assert.Equal(t, gesture.Settling, tr.Phase())
	clk.Advance(gesture.SettleDuration)
	assert.True(t, done)
	assert.Equal(t, gesture.Idle, tr.Phase())
	assert.Zero(t, clk.Pending())
}

func TestTracker_MovingPastThresholdDisarms(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	tr := gesture.NewTracker(clk)
	held := false

	tr.Press(surface.Point{X: 10, Y: 10}, func() { held = true })
	assert.False(t, tr.Move(surface.Point{X: 10, Y: 16}))
	assert.Equal(t, gesture.Idle, tr.Phase())

	clk.Advance(time.Second)
	assert.False(t, held)
	assert.Zero(t, clk.Pending())
}

func TestTracker_EarlyReleaseDisarms(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	tr := gesture.NewTracker(clk, gesture.WithHoldDelay(100*time.Millisecond))
	held := false

	tr.Press(surface.Point{}, func() { held = true })
	assert.Equal(t, gesture.Armed, tr.Release())
	clk.Advance(time.Second)
	assert.False(t, held)
	assert.Equal(t, gesture.Idle, tr.Phase())
}

func TestSpeed(t *testing.T) {
	vp := surface.Rect{Y: 0, H: 400}
	tests := []struct {
		name string
		y    float64
		want float64
	}{
		{"middle", 200, 0},
		{"just outside top band", 40, 0},
		{"halfway into top band", 20, -10},
		{"top edge", 0, -20},
		{"above viewport", -50, -20},
		{"halfway into bottom band", 380, 10},
		{"below viewport", 500, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, gesture.Speed(vp, tt.y, gesture.EdgeZone, gesture.MaxScrollSpeed), 1e-9)
		})
	}
}

func TestAutoScroller(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	h := surface.NewHeadless(surface.WithViewportHeight(100))
	var nodes []*surface.Node
	for i := 0; i < 20; i++ {
		nodes = append(nodes, &surface.Node{Kind: surface.KindBlock, Tag: "p", BlockID: string(rune('a' + i))})
	}
	h.SetBlocks(nodes)

	scrolled := 0
	a := gesture.NewAutoScroller(clk, h, func() { scrolled++ })
	a.Start(surface.Point{Y: 50})
	clk.Frame()
	assert.Zero(t, h.ScrollTop(), "no scrolling away from the edges")

	a.Update(surface.Point{Y: 100})
	clk.Frame()
	clk.Frame()
	assert.InDelta(t, 40, h.ScrollTop(), 1e-9)
	assert.Equal(t, 2, scrolled)

	a.Stop()
	assert.False(t, a.Running())
	assert.Zero(t, clk.Pending())
}
