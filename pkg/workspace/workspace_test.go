package workspace_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/clock"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/gesture"
	"github.com/aretw0/quire/pkg/sidebar"
	"github.com/aretw0/quire/pkg/surface"
	qsync "github.com/aretw0/quire/pkg/sync"
	"github.com/aretw0/quire/pkg/workspace"
)

type fixture struct {
	repo *fs.Repository
	clk  *clock.Manual
	ws   *workspace.Workspace
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := fs.NewRepository(fs.Config{Path: filepath.Join(t.TempDir(), "notes")})
	require.NoError(t, repo.Initialize(context.Background()))
	clk := clock.NewManual(time.Unix(100, 0))
	ws := workspace.New(core.NewService(repo), workspace.WithScheduler(clk), workspace.WithOrderStore(repo))
	return &fixture{repo: repo, clk: clk, ws: ws}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.ws.Start(ctx))
	t.Cleanup(func() {
		cancel()
		f.ws.Wait()
	})
}

func saved(t *testing.T, s *qsync.Syncer) core.Event {
	t.Helper()
	select {
	case e := <-s.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no save event")
		return core.Event{}
	}
}

func TestWorkspace_CreateEditAutosave(t *testing.T) {
	f := setup(t)
	f.start(t)
	ctx := context.Background()

	var sess *workspace.Session
	require.NoError(t, f.ws.Do(ctx, func() error {
		var err error
		sess, err = f.ws.Create(ctx, "Fresh", nil)
		return err
	}))

	stored, err := f.repo.Get(ctx, sess.NoteID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", stored.Title)
	require.Len(t, stored.Content.Blocks, 1)
	assert.Equal(t, time.Unix(100, 0).UTC(), stored.Created)

	blockID := stored.Content.Blocks[0].ID
	require.NoError(t, f.ws.Do(ctx, func() error {
		require.True(t, sess.Bridge.PlaceCaret(blockID, 0))
		require.True(t, sess.Editor.InsertText("hi"))
		return nil
	}))

	f.clk.Advance(qsync.DefaultDelay)
	e := saved(t, f.ws.Syncer())
	assert.Equal(t, sess.NoteID, e.ID)

	stored, err = f.repo.Get(ctx, sess.NoteID)
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Content.Blocks[0].Text)
}

func TestWorkspace_LoadAndOpen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n := core.Note{ID: "n1", Title: "One", Created: time.Unix(1, 0).UTC()}
	n.Content.Title = "One"
	n.Content.Blocks = []core.Block{core.Paragraph("b1", "text")}
	require.NoError(t, f.repo.Save(ctx, n))
	require.NoError(t, f.repo.SaveOrder(ctx, "", []string{"n:n1"}))

	require.NoError(t, f.ws.Load(ctx))
	assert.Equal(t, []string{"n:n1"}, f.ws.Tree().Order(""))

	require.NoError(t, f.ws.Do(ctx, func() error {
		a, err := f.ws.Open(ctx, "n1")
		require.NoError(t, err)
		b, err := f.ws.Open(ctx, "n1")
		require.NoError(t, err)
		assert.Same(t, a, b)
		return nil
	}))
	assert.Equal(t, []string{"n1"}, f.ws.State().(workspace.WorkspaceState).Sessions)

	err := f.ws.Do(ctx, func() error {
		_, err := f.ws.Open(ctx, "ghost")
		return err
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWorkspace_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var id string
	require.NoError(t, f.ws.Do(ctx, func() error {
		s, err := f.ws.Create(ctx, "Doomed", nil)
		if err != nil {
			return err
		}
		id = s.NoteID
		return f.ws.Delete(ctx, id)
	}))

	_, ok := f.ws.Store().Note(id)
	assert.False(t, ok)
	_, err := f.repo.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWorkspace_DoOnLoop(t *testing.T) {
	repo := fs.NewRepository(fs.Config{Path: t.TempDir()})
	require.NoError(t, repo.Initialize(context.Background()))
	ws := workspace.New(core.NewService(repo))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, ws.Start(ctx))

	ran := false
	require.NoError(t, ws.Do(context.Background(), func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	cancel()
	ws.Wait()
	assert.Eventually(t, func() bool {
		return ws.Do(context.Background(), func() error { return nil }) == workspace.ErrStopped
	}, 2*time.Second, 10*time.Millisecond)
}

func (f *fixture) firstBlock(t *testing.T, id string) string {
	t.Helper()
	blocks := f.ws.Store().Blocks(id)
	require.NotEmpty(t, blocks)
	return blocks[0].ID
}

func (f *fixture) text(id string) string {
	blocks := f.ws.Store().Blocks(id)
	if len(blocks) == 0 {
		return ""
	}
	return blocks[0].Text
}

func TestWorkspace_SessionsKeepSeparateHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.ws.Do(ctx, func() error {
		a, err := f.ws.Create(ctx, "A", nil)
		require.NoError(t, err)
		b, err := f.ws.Create(ctx, "B", nil)
		require.NoError(t, err)

		require.True(t, a.Bridge.PlaceCaret(f.firstBlock(t, a.NoteID), 0))
		require.True(t, a.Editor.InsertText("alpha"))
		require.True(t, b.Bridge.PlaceCaret(f.firstBlock(t, b.NoteID), 0))
		require.True(t, b.Editor.InsertText("beta"))

		require.True(t, a.Editor.Undo())
		assert.Equal(t, "", f.text(a.NoteID))
		assert.Equal(t, "beta", f.text(b.NoteID), "undo in one note leaves the others alone")
		assert.False(t, b.History.CanRedo())
		assert.True(t, b.History.CanUndo())

		require.True(t, b.Editor.Undo())
		assert.Equal(t, "", f.text(b.NoteID))
		require.True(t, a.Editor.Redo())
		assert.Equal(t, "alpha", f.text(a.NoteID))
		assert.Equal(t, "", f.text(b.NoteID))

		require.NoError(t, f.ws.Delete(ctx, b.NoteID))
		b.Editor.Redo()
		_, ok := f.ws.Store().Note(b.NoteID)
		assert.False(t, ok, "history never reopens a deleted note")
		return nil
	}))
}

func TestWorkspace_BlockDrag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n := core.Note{ID: "n1", Title: "Drag", Created: time.Unix(1, 0).UTC()}
	n.Content.Title = "Drag"
	n.Content.Blocks = []core.Block{core.Paragraph("a", "a"), core.Paragraph("b", "b"), core.Paragraph("c", "c")}
	require.NoError(t, f.repo.Save(ctx, n))
	require.NoError(t, f.ws.Load(ctx))

	order := func() string {
		out := ""
		for _, b := range f.ws.Store().Blocks("n1") {
			out += b.ID
		}
		return out
	}

	require.NoError(t, f.ws.Do(ctx, func() error {
		s, err := f.ws.Open(ctx, "n1")
		require.NoError(t, err)

		// One 20 px line per block.
		require.True(t, s.Drag.Press("a", surface.Point{X: 5, Y: 10}))
		f.clk.Advance(gesture.HoldDelay)
		s.Drag.Move(surface.Point{X: 5, Y: 55})
		assert.Equal(t, "bca", order())
		s.Drag.Release()
		f.clk.Advance(gesture.SettleDuration)
		assert.True(t, s.Drag.Idle())

		require.True(t, s.Editor.Undo())
		assert.Equal(t, "abc", order())

		t.Run("Close Abandons the Drag", func(t *testing.T) {
			require.True(t, s.Drag.Press("b", surface.Point{X: 5, Y: 30}))
			f.clk.Advance(gesture.HoldDelay)
			f.ws.Close("n1")
			assert.True(t, s.Drag.Idle())
			assert.False(t, s.Surface.Decorated())
		})
		return nil
	}))
}

func TestWorkspace_SidebarDrag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	folder := "A"
	filed := core.Note{ID: "n2", Title: "Filed", Folder: &folder, Created: time.Unix(1, 0).UTC()}
	loose := core.Note{ID: "n1", Title: "Loose", Created: time.Unix(2, 0).UTC()}
	for _, n := range []core.Note{filed, loose} {
		n.Content.Title = n.Title
		n.Content.Blocks = []core.Block{core.Paragraph("", n.Title)}
		require.NoError(t, f.repo.Save(ctx, n))
	}
	require.NoError(t, f.ws.Load(ctx))

	eng := f.ws.SidebarDrag()
	from, ok := eng.RowRect(sidebar.NoteItem("n1"))
	require.True(t, ok)
	into, ok := eng.RowRect(sidebar.FolderItem("A"))
	require.True(t, ok)

	require.NoError(t, f.ws.Do(ctx, func() error {
		require.True(t, eng.Press(sidebar.NoteItem("n1"), surface.Point{X: 5, Y: from.Y + from.H/2}))
		f.clk.Advance(gesture.HoldDelay)
		eng.Move(surface.Point{X: 5, Y: into.Y + into.H/2})
		assert.True(t, f.ws.SidebarSurface().HasClass("f:A", sidebar.DropIntoClass))
		eng.Release()
		f.clk.Advance(gesture.SettleDuration)
		assert.True(t, eng.Idle())
		return nil
	}))

	n, ok := f.ws.Store().Note("n1")
	require.True(t, ok)
	assert.Equal(t, "A", n.FolderPath())
	orders, err := f.repo.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Contains(t, orders["A"], "n:n1")
}
