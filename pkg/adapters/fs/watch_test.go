package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/core"
)

func nextEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "events channel closed")
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return core.Event{}
	}
}

func TestWatch(t *testing.T) {
	t.Run("Reports External Changes Only", func(t *testing.T) {
		repo, path, _ := setupRepo(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := repo.Watch(ctx, "")
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, note("own", "Own", 1, "mine")))
		require.NoError(t, os.WriteFile(filepath.Join(path, "ext.md"), []byte("# External\n"), 0644))

		e := nextEvent(t, events)
		assert.Equal(t, core.EventCreate, e.Type)
		assert.Equal(t, "ext", e.ID)

		require.NoError(t, os.Remove(filepath.Join(path, "ext.md")))
		e = nextEvent(t, events)
		assert.Equal(t, core.EventDelete, e.Type)
		assert.Equal(t, "ext", e.ID)
	})

	t.Run("Filters by Pattern", func(t *testing.T) {
		repo, path, _ := setupRepo(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := repo.Watch(ctx, "*.md")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(path, "skip.json"), []byte(`{"title":"x"}`), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(path, "take.md"), []byte("hello\n"), 0644))

		e := nextEvent(t, events)
		assert.Equal(t, "take", e.ID)
	})

	t.Run("Closes on Cancel", func(t *testing.T) {
		repo, _, _ := setupRepo(t)
		ctx, cancel := context.WithCancel(context.Background())
		events, err := repo.Watch(ctx, "*")
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return repo.State().(fs.RepositoryState).WatcherActive
		}, time.Second, 10*time.Millisecond)

		cancel()
		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(3 * time.Second):
			t.Fatal("channel not closed")
		}
		assert.False(t, repo.State().(fs.RepositoryState).WatcherActive)
	})

	t.Run("Rejects Bad Patterns", func(t *testing.T) {
		repo, _, _ := setupRepo(t)
		_, err := repo.Watch(context.Background(), "[")
		assert.Error(t, err)
	})
}
