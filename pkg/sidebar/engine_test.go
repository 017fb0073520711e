package sidebar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/gesture"
	"github.com/aretw0/quire/pkg/sidebar"
	"github.com/aretw0/quire/pkg/surface"
)

const rowHeight = 30

type engineFixture struct {
	tree   *sidebar.Tree
	orders *fakeOrders
	clk    *clock.Manual
	deco   *surface.Headless
	eng    *sidebar.Engine
}

// Rows start as A, A/B, n3, n2, C, n1, n4; row i spans y 30i..30i+30.
func newEngine(t *testing.T) *engineFixture {
	t.Helper()
	orders := &fakeOrders{}
	tr := newTree(sidebar.WithOrderStore(orders))
	clk := clock.NewManual(time.Unix(0, 0))
	deco := surface.NewHeadless()
	return &engineFixture{
		tree:   tr,
		orders: orders,
		clk:    clk,
		deco:   deco,
		eng:    sidebar.New(tr, clk, deco, sidebar.WithRowHeight(rowHeight)),
	}
}

// y returns a pointer position inside row i, at fraction frac of its height.
func y(i int, frac float64) surface.Point {
	return surface.Point{X: 10, Y: (float64(i) + frac) * rowHeight}
}

func (f *engineFixture) hold(t *testing.T, item sidebar.Item, at surface.Point) {
	t.Helper()
	require.True(t, f.eng.Press(item, at))
	f.clk.Advance(gesture.HoldDelay)
	require.Equal(t, gesture.Dragging, f.eng.Phase())
}

func (f *engineFixture) folder(id string) string {
	n, _ := f.tree.Store().Note(id)
	return n.FolderPath()
}

func TestHitTest_Zones(t *testing.T) {
	f := newEngine(t)
	tests := []struct {
		name string
		at   surface.Point
		want sidebar.Target
	}{
		{"folder top third", y(0, 0.2), sidebar.Target{Item: sidebar.FolderItem("A"), Zone: sidebar.ZoneAbove}},
		{"folder middle third", y(0, 0.5), sidebar.Target{Item: sidebar.FolderItem("A"), Zone: sidebar.ZoneInto}},
		{"folder bottom third", y(4, 0.8), sidebar.Target{Item: sidebar.FolderItem("C"), Zone: sidebar.ZoneBelow}},
		{"note top half", y(5, 0.4), sidebar.Target{Item: sidebar.NoteItem("n1"), Zone: sidebar.ZoneAbove}},
		{"note bottom half", y(5, 0.6), sidebar.Target{Item: sidebar.NoteItem("n1"), Zone: sidebar.ZoneBelow}},
		{"below the last row", y(9, 0.5), sidebar.Target{}},
		{"above the first row", surface.Point{Y: -4}, sidebar.Target{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.eng.HitTest(tt.at))
		})
	}
}

func TestValid_FolderNeverDropsIntoItselfOrDescendants(t *testing.T) {
	f := newEngine(t)
	a := sidebar.FolderItem("A")

	for i, row := range []string{"f:A", "f:A/B", "n:n3", "n:n2"} {
		for _, frac := range []float64{0.1, 0.5, 0.9} {
			target := f.eng.HitTest(y(i, frac))
			assert.False(t, f.eng.Valid(a, target), "%s %s", row, target.Zone)
		}
	}
	for i := 4; i < 7; i++ {
		for _, frac := range []float64{0.1, 0.9} {
			target := f.eng.HitTest(y(i, frac))
			assert.True(t, f.eng.Valid(a, target), "row %d %s", i, target.Zone)
		}
	}
	assert.True(t, f.eng.Valid(a, f.eng.HitTest(y(4, 0.5))), "into a sibling folder")
}

func TestValid_Notes(t *testing.T) {
	f := newEngine(t)
	n1 := sidebar.NoteItem("n1")
	assert.False(t, f.eng.Valid(n1, sidebar.Target{Item: n1, Zone: sidebar.ZoneAbove}))
	assert.False(t, f.eng.Valid(n1, sidebar.Target{Item: sidebar.NoteItem("n4"), Zone: sidebar.ZoneInto}),
		"notes cannot contain notes")
	assert.True(t, f.eng.Valid(n1, sidebar.Target{Item: sidebar.FolderItem("A/B"), Zone: sidebar.ZoneInto}))
	assert.True(t, f.eng.Valid(n1, sidebar.Target{Item: sidebar.NoteItem("n3"), Zone: sidebar.ZoneBelow}))
}

func TestValid_FolderNameCollision(t *testing.T) {
	f := newEngine(t)
	f.tree.AddFolder("C/B")
	assert.False(t, f.eng.Valid(sidebar.FolderItem("A/B"),
		sidebar.Target{Item: sidebar.FolderItem("C"), Zone: sidebar.ZoneInto}))
}

func TestDrag_FolderOverDescendantRegistersNothing(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.FolderItem("A"), y(0, 0.5))
	assert.True(t, f.deco.HasClass("f:A", sidebar.DraggingClass))

	for _, at := range []surface.Point{y(1, 0.5), y(1, 0.1), y(2, 0.9), y(3, 0.2)} {
		f.eng.Move(at)
		s, ok := f.eng.Session()
		require.True(t, ok)
		assert.False(t, s.Valid)
		assert.Equal(t, sidebar.ZoneNone, s.Target.Zone)
	}
	assert.False(t, f.deco.HasClass("f:A/B", sidebar.DropIntoClass))

	f.eng.Release()
	f.clk.Advance(gesture.SettleDuration)
	assert.True(t, f.eng.Idle())
	assert.True(t, f.tree.HasFolder("A"))
	assert.Equal(t, "A/B", f.folder("n3"), "invalid drop changes nothing")
	assert.False(t, f.deco.Decorated())
}

func TestDrag_NoteIntoFolder(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.NoteItem("n1"), y(5, 0.5))

	f.eng.Move(y(4, 0.5))
	assert.True(t, f.deco.HasClass("f:C", sidebar.DropIntoClass))
	assert.Equal(t, "C", f.folder("n1"), "filed tentatively while hovering")
	assert.Equal(t, "n:n1", f.eng.Rows()[5].Key(), "rows stay put during the drag")

	f.eng.Release()
	assert.Equal(t, gesture.Settling, f.eng.Phase())
	f.clk.Advance(gesture.SettleDuration)

	assert.Equal(t, "C", f.folder("n1"))
	assert.Equal(t, []string{"n:n1"}, f.orders.saved["C"])
	assert.Equal(t, []string{"f:A", "f:C", "n:n4"}, f.orders.saved[""])
	assert.True(t, f.eng.Idle())
	assert.False(t, f.deco.Decorated())
	assert.Zero(t, f.clk.Pending())
}

func TestDrag_LeavingFolderUndoesTentativeFiling(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.NoteItem("n1"), y(5, 0.5))

	f.eng.Move(y(4, 0.5))
	require.Equal(t, "C", f.folder("n1"))
	f.eng.Move(y(6, 0.8))
	assert.Equal(t, "", f.folder("n1"))
	assert.False(t, f.deco.HasClass("f:C", sidebar.DropIntoClass))
	assert.True(t, f.deco.HasClass("n:n4", sidebar.DropBelowClass))

	f.eng.Release()
	f.clk.Advance(gesture.SettleDuration)
	assert.Equal(t, []string{"f:A", "f:C", "n:n4", "n:n1"}, f.tree.Keys(""))
}

func TestDrag_ReorderSiblings(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.NoteItem("n4"), y(6, 0.5))
	f.eng.Move(y(0, 0.1))
	f.eng.Release()
	f.clk.Advance(gesture.SettleDuration)

	assert.Equal(t, []string{"n:n4", "f:A", "f:C", "n:n1"}, f.orders.saved[""])
	assert.Equal(t, "n:n4", f.tree.Rows()[0].Key())
}

func TestDrag_NoteAcrossFolders(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.NoteItem("n3"), y(2, 0.5))
	f.eng.Move(y(5, 0.2))
	f.eng.Release()
	f.clk.Advance(gesture.SettleDuration)

	assert.Equal(t, "", f.folder("n3"))
	assert.Equal(t, []string{"f:A", "f:C", "n:n3", "n:n1", "n:n4"}, f.orders.saved[""])
	assert.Empty(t, f.orders.saved["A/B"])
}

func TestDrag_FolderIntoFolder(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.FolderItem("C"), y(4, 0.5))
	f.eng.Move(y(0, 0.5))
	f.eng.Release()
	f.clk.Advance(gesture.SettleDuration)

	assert.True(t, f.tree.HasFolder("A/C"))
	assert.False(t, f.tree.HasFolder("C"))
	assert.Equal(t, []string{"f:A/B", "n:n2", "f:A/C"}, f.orders.saved["A"])
	assert.Equal(t, []string{"f:A", "n:n1", "n:n4"}, f.orders.saved[""])
	assert.False(t, f.deco.Decorated())
}

func TestDrag_CancelRestoresTentativeFolder(t *testing.T) {
	for _, cancel := range []func(*sidebar.Engine){(*sidebar.Engine).Escape, (*sidebar.Engine).Blur} {
		f := newEngine(t)
		f.hold(t, sidebar.NoteItem("n2"), y(3, 0.5))
		f.eng.Move(y(4, 0.5))
		require.Equal(t, "C", f.folder("n2"))

		cancel(f.eng)
		assert.Equal(t, "A", f.folder("n2"))
		assert.True(t, f.eng.Idle())
		assert.False(t, f.deco.Decorated())
		assert.Zero(t, f.clk.Pending())
		assert.Empty(t, f.orders.saved)
	}
}

func TestDrag_AutoExpandsCollapsedFolder(t *testing.T) {
	f := newEngine(t)
	f.tree.SetCollapsed("A", true)
	f.hold(t, sidebar.NoteItem("n1"), y(2, 0.5))

	f.eng.Move(y(0, 0.5))
	s, _ := f.eng.Session()
	assert.Equal(t, "A", s.Expanding)

	f.clk.Advance(sidebar.AutoExpandDelay - time.Millisecond)
	assert.True(t, f.tree.Collapsed("A"))
	f.clk.Advance(time.Millisecond)
	assert.False(t, f.tree.Collapsed("A"))
	assert.Equal(t, "f:A/B", f.eng.Rows()[1].Key(), "hit testing sees the opened folder")

	f.eng.Escape()
	assert.Equal(t, "", f.folder("n1"))
	assert.True(t, f.eng.Idle())
}

func TestDrag_LeavingFolderCancelsAutoExpand(t *testing.T) {
	f := newEngine(t)
	f.tree.SetCollapsed("A", true)
	f.hold(t, sidebar.NoteItem("n1"), y(2, 0.5))

	f.eng.Move(y(0, 0.5))
	f.clk.Advance(300 * time.Millisecond)
	f.eng.Move(y(1, 0.5))
	f.clk.Advance(time.Second)
	assert.True(t, f.tree.Collapsed("A"))

	f.eng.Release()
	f.clk.Advance(gesture.SettleDuration)
	assert.True(t, f.eng.Idle())
	assert.Zero(t, f.clk.Pending())
}

func TestDrag_ShortPressDoesNothing(t *testing.T) {
	f := newEngine(t)
	require.True(t, f.eng.Press(sidebar.NoteItem("n1"), y(5, 0.5)))
	f.eng.Move(y(5, 0.9))
	f.clk.Advance(time.Second)
	assert.True(t, f.eng.Idle(), "moving past the threshold abandons the press")

	assert.False(t, f.eng.Press(sidebar.NoteItem("missing"), y(0, 0)))
}

func TestDrag_AutoScrollsNearEdge(t *testing.T) {
	f := newEngine(t)
	f.eng = sidebar.New(f.tree, f.clk, f.deco,
		sidebar.WithRowHeight(rowHeight),
		sidebar.WithViewportHeight(3*rowHeight),
	)

	f.hold(t, sidebar.NoteItem("n3"), y(2, 0.5))
	f.clk.Frame()
	assert.Greater(t, f.eng.ScrollTop(), 0.0)

	for i := 0; i < 20; i++ {
		f.clk.Frame()
	}
	assert.Equal(t, float64(4*rowHeight), f.eng.ScrollTop(), "stops at the last row")
	s, ok := f.eng.Session()
	require.True(t, ok)
	assert.Equal(t, sidebar.Target{Item: sidebar.NoteItem("n4"), Zone: sidebar.ZoneBelow}, s.Target,
		"the row under the pointer follows the scroll")

	r, ok := f.eng.RowRect(sidebar.NoteItem("n4"))
	require.True(t, ok)
	assert.Equal(t, float64(2*rowHeight), r.Y)

	f.eng.Escape()
	assert.True(t, f.eng.Idle())
	assert.Zero(t, f.clk.Pending())
}

func TestDrag_NoViewportNeverScrolls(t *testing.T) {
	f := newEngine(t)
	f.hold(t, sidebar.NoteItem("n1"), y(5, 0.5))
	f.clk.Frame()
	assert.Zero(t, f.eng.ScrollTop())
	f.eng.Cancel()
	assert.True(t, f.eng.Idle())
}

func TestEngine_State(t *testing.T) {
	f := newEngine(t)
	assert.Equal(t, "sidebar-drag", f.eng.ComponentType())
	assert.Equal(t, sidebar.EngineState{Phase: "idle", Zone: "none"}, f.eng.State())

	f.hold(t, sidebar.NoteItem("n1"), y(5, 0.5))
	f.eng.Move(y(6, 0.2))
	assert.Equal(t, sidebar.EngineState{
		Phase:    "dragging",
		Dragging: "n:n1",
		Target:   "n:n4",
		Zone:     "above",
	}, f.eng.State())
	f.eng.Cancel()
}
