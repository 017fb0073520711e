package caret_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/caret"
	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/surface"
)

type fixture struct {
	store  *document.Store
	surf   *surface.Headless
	clk    *clock.Manual
	bridge *caret.Bridge
}

func setup(t *testing.T, blocks ...core.Block) *fixture {
	t.Helper()
	s := document.New()
	s.Open(core.Note{ID: "n", Title: "T", Content: core.Content{Blocks: blocks}})
	h := surface.NewHeadless(surface.WithColumns(20))
	clk := clock.NewManual(time.Unix(0, 0))
	b := caret.New(s, "n", h, clk, caret.WithImageResolver(core.ImageResolverFunc(func(src string) string {
		return "/assets/" + src
	})))
	b.Render()
	return &fixture{store: s, surf: h, clk: clk, bridge: b}
}

func TestRender_KeepsFreshNodes(t *testing.T) {
	f := setup(t, core.Paragraph("a", "one"), core.Paragraph("b", "two"), core.Image("i", "x.png", "alt"))
	a, b := f.surf.BlockNode("a"), f.surf.BlockNode("b")

	f.store.SetText("n", "b", "**two**")
	f.bridge.Render()
	assert.Same(t, a, f.surf.BlockNode("a"))
	assert.NotSame(t, b, f.surf.BlockNode("b"))
	assert.Equal(t, "strong", f.surf.BlockNode("b").Children[0].Tag)
	assert.Equal(t, "/assets/x.png", f.surf.BlockNode("i").Attrs["src"])

	f.store.Bump("n", "a")
	f.bridge.Render()
	assert.NotSame(t, a, f.surf.BlockNode("a"), "a bumped generation forces a rebuild")

	f.store.MoveBlocks("n", []string{"i"}, 0)
	f.bridge.Render()
	assert.Equal(t, "i", f.surf.Root().Children[0].BlockID)
}

func TestAdopt_KeepsNativelyEditedNode(t *testing.T) {
	f := setup(t, core.Paragraph("a", "ab"))
	node := f.surf.BlockNode("a")

	require.True(t, f.bridge.PlaceCaret("a", 2))
	require.True(t, f.surf.Type("c"))
	f.store.SetText("n", "a", "abc")
	f.bridge.Adopt("a")
	f.bridge.Render()

	assert.Same(t, node, f.surf.BlockNode("a"))
	p, ok := f.bridge.Caret()
	require.True(t, ok)
	assert.Equal(t, caret.Point{BlockID: "a", Index: 0, Offset: 3}, p)
}

func TestPlaceCaret(t *testing.T) {
	f := setup(t,
		core.Paragraph("a", "ab**cd**ef"),
		core.Paragraph("e", ""),
		core.Divider("d"),
		core.Paragraph("br", "x\n"),
	)

	tests := []struct {
		name   string
		block  string
		offset int
		want   int
	}{
		{"inside bold", "a", 3, 3},
		{"clamped low", "a", -4, 0},
		{"clamped high", "a", 99, 6},
		{"empty block", "e", 0, 0},
		{"before placeholder break", "br", 9, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, f.bridge.PlaceCaret(tt.block, tt.offset))
			p, ok := f.bridge.Caret()
			require.True(t, ok)
			assert.Equal(t, tt.block, p.BlockID)
			assert.Equal(t, tt.want, p.Offset)
			assert.True(t, f.surf.Focused())
		})
	}

	assert.False(t, f.bridge.PlaceCaret("d", 0), "dividers hold no caret")
	assert.False(t, f.bridge.PlaceCaret("missing", 0))
}

func TestPlaceCaret_EmptyBlockAnchor(t *testing.T) {
	f := setup(t, core.Paragraph("e", ""))
	require.True(t, f.bridge.PlaceCaret("e", 0))

	sel, ok := f.surf.Selection()
	require.True(t, ok)
	assert.True(t, sel.Focus.Node.Anchor)
	assert.Equal(t, "", surface.ToInline(f.surf.BlockNode("e")).PlainText(), "anchor adds no text")
}

func TestPlaceCaret_SingleVerifyPerPlacement(t *testing.T) {
	f := setup(t, core.Paragraph("a", "one"), core.Paragraph("b", "two"))

	f.bridge.PlaceCaret("a", 1)
	f.bridge.PlaceCaret("b", 1)
	assert.Equal(t, 1, f.clk.Pending())
	assert.True(t, f.bridge.VerifyPending())

	f.clk.Frame()
	assert.False(t, f.bridge.VerifyPending())
	assert.Equal(t, 0, f.clk.Pending())
}

func TestPlaceCaret_RetriesOnceAfterRerender(t *testing.T) {
	f := setup(t, core.Paragraph("a", "hello"))
	require.True(t, f.bridge.PlaceCaret("a", 4))

	f.store.Bump("n", "a")
	f.bridge.Render()
	_, ok := f.bridge.Caret()
	require.False(t, ok, "the old node was replaced")

	f.clk.Frame()
	p, ok := f.bridge.Caret()
	require.True(t, ok)
	assert.Equal(t, 4, p.Offset)
	assert.Equal(t, 0, f.clk.Pending(), "no further retries are scheduled")
}

func TestPlaceCaret_GivesUpWhenBlockIsGone(t *testing.T) {
	f := setup(t, core.Paragraph("a", "one"), core.Paragraph("b", "two"))
	require.True(t, f.bridge.PlaceCaret("b", 1))

	f.store.DeleteBlock("n", "b")
	f.bridge.Render()
	f.clk.Frame()

	_, ok := f.bridge.Caret()
	assert.False(t, ok)
	assert.Equal(t, 0, f.clk.Pending())
}

func TestLocateBlock(t *testing.T) {
	f := setup(t, core.Paragraph("a", "x"), core.Paragraph("b", "*y*"))

	em := f.surf.BlockNode("b").Children[0].Children[0]
	loc, ok := f.bridge.LocateBlock(em)
	require.True(t, ok)
	assert.Equal(t, caret.Location{BlockID: "b", Index: 1}, loc)

	_, ok = f.bridge.LocateBlock(f.surf.Root())
	assert.False(t, ok)
	_, ok = f.bridge.LocateBlock(surface.NewText("detached"))
	assert.False(t, ok)
}

func TestSelectionRangeAndSpan(t *testing.T) {
	f := setup(t, core.Paragraph("a", "one"), core.Divider("d"), core.Paragraph("b", "two"))

	require.True(t, f.bridge.SelectRange(
		caret.Point{BlockID: "b", Offset: 2},
		caret.Point{BlockID: "a", Offset: 1},
	))
	r, ok := f.bridge.SelectionRange()
	require.True(t, ok)
	assert.Equal(t, "a", r.Start.BlockID, "ordered by document position")
	assert.Equal(t, 1, r.Start.Offset)
	assert.Equal(t, "b", r.End.BlockID)
	assert.True(t, r.MultiBlock())

	ids, ok := f.bridge.SelectionSpan()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "d", "b"}, ids)

	f.bridge.PlaceCaret("a", 1)
	_, ok = f.bridge.SelectionSpan()
	assert.False(t, ok, "a caret spans no blocks")
}

func TestFindNearestBlockAndRecover(t *testing.T) {
	f := setup(t, core.Paragraph("a", "one"), core.Divider("d"), core.Paragraph("b", "two"))

	loc, ok := f.bridge.FindNearestBlock(surface.Rect{Y: 21, H: 2})
	require.True(t, ok)
	assert.Equal(t, "a", loc.BlockID, "dividers are not eligible")

	loc, ok = f.bridge.FindNearestBlock(surface.Rect{Y: 55, H: 0})
	require.True(t, ok)
	assert.Equal(t, "b", loc.BlockID)

	f.surf.SetSelection(surface.Caret(surface.Position{Node: surface.NewText("stray")}))
	p, ok := f.bridge.Recover()
	require.True(t, ok)
	assert.Equal(t, "a", p.BlockID)
	assert.Equal(t, 3, p.Offset)
}
