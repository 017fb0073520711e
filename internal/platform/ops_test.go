package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/adapters/sqlite"
	"github.com/aretw0/quire/pkg/core/mocks"
)

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("FS with AutoInit", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vault")
		repo, err := Init(ctx, path, WithAutoInit(true), WithFormat(".md"))
		require.NoError(t, err)
		fsRepo, ok := repo.(*fs.Repository)
		require.True(t, ok)
		assert.Equal(t, path, fsRepo.Path)
		assert.Equal(t, ".md", fsRepo.State().(fs.RepositoryState).Format)
	})

	t.Run("FS Must Exist", func(t *testing.T) {
		_, err := Init(ctx, filepath.Join(t.TempDir(), "missing"), WithMustExist(true))
		assert.Error(t, err)
	})

	t.Run("SQLite", func(t *testing.T) {
		repo, err := Init(ctx, filepath.Join(t.TempDir(), "quire.db"), WithAdapter(AdapterSQLite))
		require.NoError(t, err)
		t.Cleanup(func() { _ = Close(repo) })
		assert.IsType(t, &sqlite.Repository{}, repo)
	})

	t.Run("Remote Needs a WS URL", func(t *testing.T) {
		_, err := Init(ctx, "http://localhost", WithAdapter(AdapterRemote))
		assert.ErrorContains(t, err, "ws://")
	})

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := Init(ctx, ".", WithAdapter("s3"))
		assert.ErrorContains(t, err, "unknown adapter")
	})

	t.Run("Injected Repository", func(t *testing.T) {
		mock := mocks.NewMockRepository(gomock.NewController(t))
		repo, err := Init(ctx, "ignored", WithRepository(mock))
		require.NoError(t, err)
		assert.Same(t, mock, repo)
	})

	t.Run("New Wraps a Service", func(t *testing.T) {
		svc, err := New(ctx, t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, svc.Repository())
	})
}

func TestSafety(t *testing.T) {
	assert.True(t, IsDevRun(), "tests run from a .test binary")

	assert.Equal(t, ".", ResolveVaultPath("", false))
	assert.Equal(t, "notes", ResolveVaultPath("notes", false))

	inTemp := filepath.Join(os.TempDir(), "already-safe")
	assert.Equal(t, inTemp, ResolveVaultPath(inTemp, true))
	assert.Equal(t, filepath.Join(os.TempDir(), "quire-dev", "notes"), ResolveVaultPath("./notes", true))
	assert.Equal(t, filepath.Join(os.TempDir(), "quire-dev", "default"), ResolveVaultPath(".", true))
}
