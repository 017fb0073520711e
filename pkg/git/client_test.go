package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	dir := t.TempDir()
	client := NewClient(dir, WithLockTimeout(50*time.Millisecond))

	unlock, err := client.Lock(context.Background())
	require.NoError(t, err)

	lockPath := filepath.Join(dir, DefaultLockFile)
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file created")

	_, err = client.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLockTimeout, "a held lock times out")

	unlock()
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "unlock removes the lock file")
}

func TestClient_LockHonorsContext(t *testing.T) {
	dir := t.TempDir()
	client := NewClient(dir)
	unlock, err := client.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CommitAndLog(t *testing.T) {
	if !Installed() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir := t.TempDir()
	client := NewClient(dir)

	require.NoError(t, client.Init(ctx))
	assert.True(t, client.IsRepo(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "n1.json"), []byte(`{}`), 0644))
	require.NoError(t, client.Add(ctx, "n1.json"))
	require.NoError(t, client.Commit(ctx, "create n1"))
	require.NoError(t, client.Commit(ctx, "nothing staged"), "empty commits are skipped")

	log, err := client.Log(ctx, "n1.json", 0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "create n1", log[0].Subject)
	assert.NotEmpty(t, log[0].Hash)

	require.NoError(t, client.Rm(ctx, "n1.json"))
	require.NoError(t, client.Commit(ctx, "delete n1"))
	_, err = os.Stat(filepath.Join(dir, "n1.json"))
	assert.True(t, os.IsNotExist(err))
}
