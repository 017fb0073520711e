package sidebar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/document"
	"github.com/aretw0/quire/pkg/sidebar"
)

type fakeOrders struct {
	saved map[string][]string
	err   error
}

func (f *fakeOrders) LoadOrders(context.Context) (map[string][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.saved, nil
}

func (f *fakeOrders) SaveOrder(_ context.Context, parent string, keys []string) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string][]string)
	}
	f.saved[parent] = append([]string(nil), keys...)
	return nil
}

func note(id, title, folder string, created int) core.Note {
	n := core.Note{ID: id, Title: title, Created: time.Unix(int64(created), 0)}
	if folder != "" {
		n.Folder = &folder
	}
	return n
}

// newStore opens the notes used across the sidebar tests:
//
//	A/
//	  B/
//	    n3
//	  n2
//	C/
//	n1
//	n4
func newStore() *document.Store {
	s := document.New()
	s.Open(note("n1", "One", "", 1))
	s.Open(note("n2", "Two", "A", 2))
	s.Open(note("n3", "Three", "A/B", 3))
	s.Open(note("n4", "Four", "", 4))
	return s
}

func newTree(opts ...sidebar.TreeOption) *sidebar.Tree {
	t := sidebar.NewTree(newStore(), opts...)
	t.AddFolder("A")
	t.AddFolder("C")
	return t
}

func keys(rows []sidebar.Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.Key())
	}
	return out
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "a/b", sidebar.ParentPath("a/b/c"))
	assert.Equal(t, "", sidebar.ParentPath("a"))
	assert.Equal(t, "c", sidebar.BaseName("a/b/c"))
	assert.True(t, sidebar.Within("a/b", "a"))
	assert.True(t, sidebar.Within("a", "a"))
	assert.False(t, sidebar.Within("ab", "a"), "prefix match is per path element")

	it, ok := sidebar.ParseKey(sidebar.FolderItem("a/b").Key())
	require.True(t, ok)
	assert.Equal(t, sidebar.FolderItem("a/b"), it)
	_, ok = sidebar.ParseKey("x:1")
	assert.False(t, ok)
}

func TestTree_CreationOrderFallback(t *testing.T) {
	tr := newTree()
	assert.Equal(t, []string{"A", "C", "A/B"}, tr.Folders(), "implied folders follow registered ones")
	assert.Equal(t, []string{"f:A", "f:C", "n:n1", "n:n4"}, tr.Keys(""))
	assert.Equal(t, []string{"f:A", "f:A/B", "n:n3", "n:n2", "f:C", "n:n1", "n:n4"}, keys(tr.Rows()))

	rows := tr.Rows()
	assert.Equal(t, 2, rows[2].Depth)
	assert.Equal(t, "Three", rows[2].Title)
	assert.Equal(t, "B", rows[1].Title)
}

func TestTree_RecordedOrderWins(t *testing.T) {
	tr := newTree()
	require.NoError(t, tr.SetOrder(context.Background(), "", []string{"n:n4", "n:gone", "f:C", "n:n4"}))
	assert.Equal(t, []string{"n:n4", "f:C", "f:A", "n:n1"}, tr.Keys(""),
		"unknown and duplicate keys are skipped, unlisted items follow")
}

func TestTree_CollapsedHidesChildren(t *testing.T) {
	tr := newTree()
	tr.SetCollapsed("A", true)
	rows := tr.Rows()
	assert.Equal(t, []string{"f:A", "f:C", "n:n1", "n:n4"}, keys(rows))
	assert.True(t, rows[0].Collapsed)

	tr.SetCollapsed("A", false)
	assert.Len(t, tr.Rows(), 7)
}

func TestTree_MoveFolder(t *testing.T) {
	tr := newTree()
	tr.SetCollapsed("A/B", true)
	require.NoError(t, tr.SetOrder(context.Background(), "A", []string{"n:n2", "f:A/B"}))

	to, ok := tr.MoveFolder("A", "C")
	require.True(t, ok)
	assert.Equal(t, "C/A", to)

	n3, _ := tr.Store().Note("n3")
	assert.Equal(t, "C/A/B", n3.FolderPath())
	n2, _ := tr.Store().Note("n2")
	assert.Equal(t, "C/A", n2.FolderPath())
	assert.True(t, tr.Collapsed("C/A/B"))
	assert.Equal(t, []string{"n:n2", "f:C/A/B"}, tr.Order("C/A"))
	assert.False(t, tr.HasFolder("A"))

	_, ok = tr.MoveFolder("C", "C/A")
	assert.False(t, ok, "a folder never moves into its own descendant")
	_, ok = tr.MoveFolder("C/A", "C")
	assert.False(t, ok, "already there")
}

func TestTree_MoveFolderRefusesCollision(t *testing.T) {
	tr := newTree()
	tr.AddFolder("C/B")
	_, ok := tr.MoveFolder("A/B", "C")
	assert.False(t, ok)
}

func TestTree_LoadAndPersist(t *testing.T) {
	orders := &fakeOrders{saved: map[string][]string{"": {"n:n1", "f:A"}}}
	tr := newTree(sidebar.WithOrderStore(orders))
	require.NoError(t, tr.Load(context.Background()))
	assert.Equal(t, []string{"n:n1", "f:A", "f:C", "n:n4"}, tr.Keys(""))

	require.NoError(t, tr.SetOrder(context.Background(), "A", []string{"n:n2"}))
	assert.Equal(t, []string{"n:n2"}, orders.saved["A"])

	orders.err = errors.New("disk full")
	err := tr.SetOrder(context.Background(), "A", []string{"f:A/B"})
	assert.ErrorIs(t, err, orders.err)
	assert.Equal(t, []string{"f:A/B"}, tr.Order("A"), "memory keeps the order when saving fails")
	assert.Error(t, tr.Load(context.Background()))
}
