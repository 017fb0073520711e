package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/clock"
)

func TestManual_AfterFunc(t *testing.T) {
	m := clock.NewManual(time.Unix(0, 0))
	var order []string

	m.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	stopped := m.AfterFunc(150*time.Millisecond, func() { order = append(order, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	m.Advance(99 * time.Millisecond)
	assert.Empty(t, order)

	m.Advance(101 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_Frames(t *testing.T) {
	m := clock.NewManual(time.Unix(0, 0))
	once, every := 0, 0

	m.NextFrame(func() {
		once++
		m.NextFrame(func() { once += 10 })
	})
	tick := m.EveryFrame(func() { every++ })

	m.Frame()
	assert.Equal(t, 1, once, "callbacks registered during a frame wait for the next one")
	m.Frame()
	assert.Equal(t, 11, once)
	assert.Equal(t, 2, every)

	tick.Stop()
	m.Frame()
	assert.Equal(t, 2, every)
	assert.Equal(t, 0, m.Pending())
}

func TestLoop_RunsCallbacksOnLoop(t *testing.T) {
	l := clock.NewLoop(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	fired := make(chan string, 3)
	l.AfterFunc(5*time.Millisecond, func() { fired <- "after" })
	l.NextFrame(func() { fired <- "frame" })
	l.Do(func() { fired <- "task" })

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case s := <-fired:
			seen[s] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for loop callbacks")
		}
	}
	require.Len(t, seen, 3)
}
