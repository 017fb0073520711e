package drag_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aretw0/quire/pkg/caret"
	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/drag"
	"github.com/aretw0/quire/pkg/gesture"
	"github.com/aretw0/quire/pkg/history"
	"github.com/aretw0/quire/pkg/surface"
)

type fixture struct {
	store  *document.Store
	surf   *surface.Headless
	clk    *clock.Manual
	hist   *history.Engine
	bridge *caret.Bridge
	drag   *drag.Engine
}

type tb interface {
	require.TestingT
	Helper()
}

// Every block renders as one 20 px line, so block i spans y 20i..20i+20.
func setup(t tb, n int, opts ...surface.HeadlessOption) *fixture {
	t.Helper()
	var blocks []core.Block
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		blocks = append(blocks, core.Paragraph(id, id))
	}
	s := document.New()
	s.Open(core.Note{ID: "n", Title: "T", Content: core.Content{Blocks: blocks}})
	h := surface.NewHeadless(append([]surface.HeadlessOption{surface.WithColumns(20)}, opts...)...)
	clk := clock.NewManual(time.Unix(0, 0))
	hist := history.New(s, history.WithClock(clk.Now))
	b := caret.New(s, "n", h, clk)
	b.Render()
	return &fixture{store: s, surf: h, clk: clk, hist: hist, bridge: b, drag: drag.New(b, hist, h, h)}
}

func (f *fixture) order() string {
	out := ""
	for _, b := range f.store.Blocks("n") {
		out += b.ID
	}
	return out
}

func (f *fixture) hold(t tb, id string, at surface.Point) {
	t.Helper()
	require.True(t, f.drag.Press(id, at))
	f.clk.Advance(gesture.HoldDelay)
	require.Equal(t, gesture.Dragging, f.drag.Phase())
}

func TestDrag_DropReorders(t *testing.T) {
	f := setup(t, 4)
	f.hold(t, "a", surface.Point{X: 5, Y: 10})

	assert.True(t, f.surf.HasClass("a", drag.PlaceholderClass))
	assert.True(t, f.surf.Proxy().Visible)
	assert.Equal(t, []string{"a"}, f.surf.Proxy().IDs)
	assert.Equal(t, 1, f.hist.Depth(), "checkpoint taken when the drag starts")

	f.drag.Move(surface.Point{X: 5, Y: 65})
	assert.Equal(t, "bcad", f.order())
	assert.Equal(t, "a", f.surf.Root().Children[2].BlockID, "surface follows the live reorder")

	f.drag.Release()
	assert.Equal(t, gesture.Settling, f.drag.Phase())
	assert.Equal(t, surface.Point{X: 0, Y: 40}, f.surf.Proxy().At, "proxy glides to the slot")
	assert.True(t, f.surf.HasClass("a", drag.PlaceholderClass))

	f.clk.Advance(gesture.SettleDuration)
	assert.True(t, f.drag.Idle())
	assert.False(t, f.surf.Decorated())
	assert.False(t, f.surf.Proxy().Visible)
	assert.Equal(t, "bcad", f.order())
	assert.Zero(t, f.clk.Pending())

	_, ok := f.hist.Undo()
	require.True(t, ok)
	assert.Equal(t, "abcd", f.order(), "a drop is one undo step")
}

func TestDrag_MovesUpward(t *testing.T) {
	f := setup(t, 4)
	f.hold(t, "d", surface.Point{X: 5, Y: 70})

	f.drag.Move(surface.Point{X: 5, Y: 25})
	assert.Equal(t, "adbc", f.order())
	f.drag.Move(surface.Point{X: 5, Y: 26})
	assert.Equal(t, "adbc", f.order(), "stable while the pointer stays in the slot")

	f.drag.Release()
	f.clk.Advance(gesture.SettleDuration)
	assert.Equal(t, "adbc", f.order())
	assert.Equal(t, 1, f.hist.Depth())
}

func TestDrag_SelectionSpanMovesTogether(t *testing.T) {
	f := setup(t, 4)
	require.True(t, f.bridge.SelectRange(
		caret.Point{BlockID: "b", Index: 1, Offset: 0},
		caret.Point{BlockID: "c", Index: 2, Offset: 1},
	))
	f.hold(t, "c", surface.Point{X: 5, Y: 50})

	_, selected := f.bridge.SelectionRange()
	assert.False(t, selected, "selection is cleared when the drag starts")
	assert.Equal(t, []string{"b", "c"}, f.surf.Proxy().IDs)

	f.drag.Move(surface.Point{X: 5, Y: 5})
	assert.Equal(t, "bcad", f.order())

	f.drag.Release()
	f.clk.Advance(gesture.SettleDuration)
	assert.Equal(t, "bcad", f.order())
}

func TestDrag_PressOutsideSelectionDragsOnlyPressedBlock(t *testing.T) {
	f := setup(t, 4)
	require.True(t, f.bridge.SelectRange(
		caret.Point{BlockID: "a", Index: 0, Offset: 0},
		caret.Point{BlockID: "b", Index: 1, Offset: 1},
	))
	f.hold(t, "d", surface.Point{X: 5, Y: 70})
	assert.Equal(t, []string{"d"}, f.surf.Proxy().IDs)
	f.drag.Cancel()
}

func TestDrag_MovementBeforeHoldAbandonsPress(t *testing.T) {
	f := setup(t, 3)
	require.True(t, f.drag.Press("a", surface.Point{X: 5, Y: 10}))
	f.drag.Move(surface.Point{X: 5, Y: 20})

	f.clk.Advance(time.Second)
	assert.Equal(t, gesture.Idle, f.drag.Phase())
	assert.True(t, f.drag.Idle())
	assert.Zero(t, f.hist.Depth())
	assert.False(t, f.surf.Proxy().Visible)
}

func TestDrag_EarlyReleaseIsAClick(t *testing.T) {
	f := setup(t, 3)
	require.True(t, f.drag.Press("a", surface.Point{X: 5, Y: 10}))
	f.clk.Advance(gesture.HoldDelay / 2)
	f.drag.Release()

	f.clk.Advance(time.Second)
	assert.True(t, f.drag.Idle())
	assert.Zero(t, f.hist.Depth())
}

func TestDrag_UnknownBlockIsIgnored(t *testing.T) {
	f := setup(t, 2)
	assert.False(t, f.drag.Press("zz", surface.Point{}))
	assert.True(t, f.drag.Idle())
}

func TestDrag_DropInPlaceLeavesNoUndoStep(t *testing.T) {
	f := setup(t, 3)
	f.hold(t, "b", surface.Point{X: 5, Y: 30})
	f.drag.Move(surface.Point{X: 5, Y: 65})
	f.drag.Move(surface.Point{X: 5, Y: 25})
	assert.Equal(t, "abc", f.order())

	f.drag.Release()
	f.clk.Advance(gesture.SettleDuration)
	assert.Zero(t, f.hist.Depth())
	assert.True(t, f.drag.Idle())
}

func TestDrag_CancelRestoresOrder(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(*drag.Engine)
	}{
		{"escape", (*drag.Engine).Escape},
		{"blur", (*drag.Engine).Blur},
		{"cancel", (*drag.Engine).Cancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 4)
			f.hold(t, "a", surface.Point{X: 5, Y: 10})
			f.drag.Move(surface.Point{X: 5, Y: 75})
			require.Equal(t, "bcda", f.order())

			tt.cancel(f.drag)
			assert.Equal(t, "abcd", f.order())
			assert.Equal(t, "a", f.surf.Root().Children[0].BlockID)
			assert.Zero(t, f.hist.Depth())
			assert.True(t, f.drag.Idle())
			assert.False(t, f.surf.Decorated())
			assert.Zero(t, f.clk.Pending())
		})
	}
}

func TestDrag_CancelKeepsRedo(t *testing.T) {
	tests := []struct {
		name string
		end  func(*fixture)
	}{
		{"Escape While Dragging", func(f *fixture) {
			f.drag.Move(surface.Point{X: 5, Y: 55})
			f.drag.Escape()
		}},
		{"Drop In Place", func(f *fixture) {
			f.drag.Release()
			f.clk.Advance(gesture.SettleDuration)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, 3)
			require.True(t, f.hist.CommitStructural(func() bool { return f.store.MoveBlocks("n", []string{"a"}, 2) }))
			_, ok := f.hist.Undo()
			require.True(t, ok)
			require.Equal(t, "abc", f.order())

			f.hold(t, "a", surface.Point{X: 5, Y: 10})
			tt.end(f)

			assert.Equal(t, "abc", f.order())
			assert.Zero(t, f.hist.Depth())
			assert.Equal(t, 1, f.hist.RedoDepth())
			_, ok = f.hist.Redo()
			require.True(t, ok)
			assert.Equal(t, "bca", f.order())
		})
	}
}

func TestDrag_CancelWhileSettlingKeepsDrop(t *testing.T) {
	f := setup(t, 3)
	f.hold(t, "a", surface.Point{X: 5, Y: 10})
	f.drag.Move(surface.Point{X: 5, Y: 55})
	f.drag.Release()

	f.drag.Escape()
	assert.Equal(t, "bca", f.order())
	assert.Equal(t, 1, f.hist.Depth())
	assert.True(t, f.drag.Idle())
	assert.False(t, f.surf.Decorated())
}

func TestDrag_AutoScrollsNearEdge(t *testing.T) {
	f := setup(t, 20, surface.WithViewportHeight(100))
	f.hold(t, "a", surface.Point{X: 5, Y: 10})

	f.drag.Move(surface.Point{X: 5, Y: 99})
	top := f.surf.ScrollTop()
	f.clk.Frame()
	assert.Greater(t, f.surf.ScrollTop(), top)

	f.drag.Escape()
	assert.Equal(t, "abcdefghijklmnopqrst", f.order())
	assert.Zero(t, f.clk.Pending())
}

func TestDrag_State(t *testing.T) {
	f := setup(t, 2)
	assert.Equal(t, drag.EngineState{Phase: "idle"}, f.drag.State())
	assert.Equal(t, "block-drag", f.drag.ComponentType())

	f.hold(t, "b", surface.Point{X: 5, Y: 30})
	assert.Equal(t, drag.EngineState{Phase: "dragging", Dragging: []string{"b"}, Target: 1}, f.drag.State())
	f.drag.Cancel()
}

func testDragThenEscape_Properties(t *rapid.T) {
	n := rapid.IntRange(2, 8).Draw(t, "n")
	f := setup(t, n)
	if rapid.Bool().Draw(t, "prior") {
		f.hist.CommitStructural(func() bool { return f.store.SetText("n", "a", "edited") })
		if rapid.Bool().Draw(t, "undone") {
			f.hist.Undo()
		}
	}
	depth, redo := f.hist.Depth(), f.hist.RedoDepth()
	want := f.order()

	i := rapid.IntRange(0, n-1).Draw(t, "from")
	id := string(rune('a' + i))
	f.hold(t, id, surface.Point{X: 5, Y: float64(20*i + 10)})

	moves := rapid.SliceOfN(rapid.IntRange(-10, 20*n+10), 1, 6).Draw(t, "moves")
	for _, y := range moves {
		f.drag.Move(surface.Point{X: 5, Y: float64(y)})
	}
	f.drag.Escape()

	if got := f.order(); got != want {
		t.Fatalf("order after escape: got %s, want %s", got, want)
	}
	if f.hist.Depth() != depth {
		t.Fatalf("undo depth changed: got %d, want %d", f.hist.Depth(), depth)
	}
	if f.hist.RedoDepth() != redo {
		t.Fatalf("redo depth changed: got %d, want %d", f.hist.RedoDepth(), redo)
	}
	if !f.drag.Idle() || f.surf.Decorated() {
		t.Fatalf("engine not idle after escape: %+v", f.drag.State())
	}
}

func TestDragThenEscape_Properties(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testDragThenEscape_Properties)
}
