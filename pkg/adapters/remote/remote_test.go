package remote_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aretw0/quire/pkg/adapters/remote"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/core/mocks"
)

func serve(t *testing.T, repo core.Repository, opts ...remote.Option) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(remote.NewHandler(repo))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := remote.Dial(context.Background(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sample() core.Note {
	n := core.Note{ID: "n1", Title: "Remote", Created: time.Unix(7, 0).UTC()}
	n.Content.Title = "Remote"
	n.Content.Blocks = []core.Block{core.Paragraph("b1", "hello"), core.Checklist("b2", "done", true)}
	return n
}

func TestClient_RoundTrips(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	c := serve(t, repo)
	ctx := context.Background()
	want := sample()

	repo.EXPECT().Initialize(gomock.Any()).Return(nil)
	repo.EXPECT().Save(gomock.Any(), want).Return(nil)
	repo.EXPECT().Get(gomock.Any(), "n1").Return(want, nil)
	repo.EXPECT().List(gomock.Any()).Return([]core.Note{want}, nil)
	repo.EXPECT().Delete(gomock.Any(), "n1").Return(nil)

	require.NoError(t, c.Initialize(ctx))
	require.NoError(t, c.Save(ctx, want))

	got, err := c.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	notes, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Note{want}, notes)

	require.NoError(t, c.Delete(ctx, "n1"))
}

func TestClient_MapsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	c := serve(t, repo)
	ctx := context.Background()

	repo.EXPECT().Get(gomock.Any(), "ghost").Return(core.Note{}, core.ErrNotFound)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(core.ErrReadOnly)

	_, err := c.Get(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, c.Save(ctx, sample()), core.ErrReadOnly)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	c := serve(t, repo)

	repo.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, id string) (core.Note, error) {
		return core.Note{ID: id}, nil
	}).Times(20)

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		go func() {
			n, err := c.Get(context.Background(), id)
			if err == nil && n.ID != id {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, 0, c.State().(remote.ClientState).Pending)
}

func TestClient_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	release := make(chan struct{})
	c := serve(t, repo, remote.WithTimeout(50*time.Millisecond))

	repo.EXPECT().List(gomock.Any()).DoAndReturn(func(context.Context) ([]core.Note, error) {
		<-release
		return nil, nil
	})

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, remote.ErrTimeout)
	close(release)
}

func TestClient_Closed(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := serve(t, mocks.NewMockRepository(ctrl))
	require.NoError(t, c.Close())

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not close")
	}
	_, err := c.Get(context.Background(), "n1")
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.True(t, c.State().(remote.ClientState).Closed)
}
