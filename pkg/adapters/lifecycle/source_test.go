package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/lifecycle"
	"github.com/aretw0/quire/pkg/core"
)

func TestSource_ForwardsAndFilters(t *testing.T) {
	in := make(chan core.Event, 3)
	in <- core.Event{Type: core.EventModify, ID: "n1"}
	in <- core.Event{Type: core.EventNoteChanged, ID: "n2"}
	in <- core.Event{Type: core.EventDelete, ID: "n3"}
	close(in)

	src := lifecycle.NewSource(in, lifecycle.WithTypes(core.EventModify, core.EventDelete))
	require.NoError(t, src.Start(context.Background()))

	var got []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-src.Events():
			if !ok {
				assert.Equal(t, []string{"MODIFY n1", "DELETE n3"}, got)
				return
			}
			got = append(got, e.String())
		case <-timeout:
			t.Fatal("source did not close")
		}
	}
}

func TestSource_StopsOnCancel(t *testing.T) {
	in := make(chan core.Event)
	src := lifecycle.NewSource(in)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(ctx))
	cancel()

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not close")
	}
}
