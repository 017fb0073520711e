package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/sqlite"
	"github.com/aretw0/quire/pkg/core"
)

func setupRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "quire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func note(id, title string, created int64, blocks ...core.Block) core.Note {
	n := core.Note{ID: id, Title: title, Created: time.Unix(created, 0).UTC()}
	n.Content.Title = title
	n.Content.Blocks = blocks
	return n
}

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	folder := "work"
	want := note("n1", "Plan", 10,
		core.Heading("b1", 2, "Goals"),
		core.Checklist("b2", "ship", true),
		core.Image("b3", "n1/abc.png", "chart"),
	)
	want.Folder = &folder

	t.Run("Save and Get", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, want))
		got, err := repo.Get(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Save Updates in Place", func(t *testing.T) {
		changed := want.Clone()
		changed.Title = "Plan v2"
		changed.Content.Title = "Plan v2"
		changed.Folder = nil
		require.NoError(t, repo.Save(ctx, changed))

		got, err := repo.Get(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, "Plan v2", got.Title)
		assert.Nil(t, got.Folder)
		assert.Equal(t, want.Created, got.Created)
	})

	t.Run("List Oldest First", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, note("n0", "Older", 5, core.Paragraph("p", "x"))))
		notes, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "n0", notes[0].ID)
		assert.Equal(t, "n1", notes[1].ID)
		assert.Equal(t, 2, repo.State().(sqlite.RepositoryState).Notes)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "n0"))
		_, err := repo.Get(ctx, "n0")
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "n0"), core.ErrNotFound)
	})

	t.Run("Rejects Missing ID", func(t *testing.T) {
		assert.ErrorIs(t, repo.Save(ctx, note("", "x", 1)), core.ErrInvalidNote)
	})
}

func TestRepository_Orders(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	require.NoError(t, repo.SaveOrder(ctx, "", []string{"f:A", "n:n1", "n:n2"}))
	require.NoError(t, repo.SaveOrder(ctx, "A", []string{"n:n3"}))
	require.NoError(t, repo.SaveOrder(ctx, "", []string{"n:n2", "f:A"}))
	require.NoError(t, repo.SaveOrder(ctx, "A", nil))

	orders, err := repo.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"": {"n:n2", "f:A"}}, orders)
}

func TestRepository_InitializeIsIdempotent(t *testing.T) {
	repo := setupRepo(t)
	assert.NoError(t, repo.Initialize(context.Background()))
}
