package fs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/git"
)

func TestTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Staged Changes Are Visible Before Commit", func(t *testing.T) {
		repo, _, _ := setupRepo(t)
		require.NoError(t, repo.Save(ctx, note("old", "Old", 1, "x")))

		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Save(ctx, note("new", "New", 2, "y")))
		require.NoError(t, tx.Delete(ctx, "old"))

		n, err := tx.Get(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, "New", n.Title)
		_, err = tx.Get(ctx, "old")
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = repo.Get(ctx, "new")
		assert.ErrorIs(t, err, core.ErrNotFound, "nothing written yet")

		require.NoError(t, tx.Commit(ctx, ""))
		_, err = repo.Get(ctx, "new")
		assert.NoError(t, err)
		_, err = repo.Get(ctx, "old")
		assert.ErrorIs(t, err, core.ErrNotFound)

		assert.ErrorIs(t, tx.Save(ctx, note("late", "Late", 3)), fs.ErrTransactionClosed)
	})

	t.Run("Rollback Discards", func(t *testing.T) {
		repo, _, _ := setupRepo(t)
		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Save(ctx, note("n1", "One", 1, "x")))
		require.NoError(t, tx.Rollback(ctx))
		assert.ErrorIs(t, tx.Commit(ctx, "x"), fs.ErrTransactionClosed)

		notes, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("One Commit per Batch", func(t *testing.T) {
		if !git.Installed() {
			t.Skip("git not installed")
		}
		repo, _, client := setupRepo(t, func(c *fs.Config) { c.Versioning = true })
		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, tx.Save(ctx, note(id, id, 1, id)))
		}
		require.NoError(t, tx.Commit(ctx, "import 3 notes"))

		out, err := client.Run(ctx, "log", "--pretty=%s")
		require.NoError(t, err)
		assert.Equal(t, "import 3 notes\nchore: ignore .quire", out)
	})

	t.Run("Read Only Repositories Refuse", func(t *testing.T) {
		_, path, _ := setupRepo(t)
		ro := fs.NewRepository(fs.Config{Path: path, ReadOnly: true})
		_, err := ro.Begin(ctx)
		assert.ErrorIs(t, err, core.ErrReadOnly)
	})
}
