// Package sidebar models the note/folder tree shown next to the editor and
// the press-and-hold engine that reorders and reparents its rows.
package sidebar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/aretw0/quire/pkg/document"
)

// Kind tells notes and folders apart.
type Kind int

const (
	KindNote Kind = iota
	KindFolder
)

// Item is one entry of the tree: a note id or a folder path.
type Item struct {
	Kind Kind
	ID   string
}

// NoteItem refers to a note.
func NoteItem(id string) Item { return Item{Kind: KindNote, ID: id} }

// FolderItem refers to a folder.
func FolderItem(path string) Item { return Item{Kind: KindFolder, ID: path} }

// Key is the persisted form of an item in an order list.
func (i Item) Key() string {
	if i.Kind == KindFolder {
		return "f:" + i.ID
	}
	return "n:" + i.ID
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Item, bool) {
	switch {
	case strings.HasPrefix(key, "n:"):
		return NoteItem(key[2:]), true
	case strings.HasPrefix(key, "f:"):
		return FolderItem(key[2:]), true
	}
	return Item{}, false
}

// Row is one visible line of the tree.
type Row struct {
	Item
	Title     string
	Parent    string
	Depth     int
	Collapsed bool
}

// OrderStore persists explicit per-parent order lists. The root parent is "".
type OrderStore interface {
	LoadOrders(ctx context.Context) (map[string][]string, error)
	SaveOrder(ctx context.Context, parent string, keys []string) error
}

// ParentPath is the folder that contains path, "" for a top level folder.
func ParentPath(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// BaseName is the last element of a folder path.
func BaseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// Within reports whether path is ancestor or one of its descendants.
func Within(path, ancestor string) bool {
	return path == ancestor || strings.HasPrefix(path, ancestor+"/")
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func cleanPath(p string) string {
	return strings.Trim(p, "/")
}

// Tree is the folder structure over the notes of a document store. Folders
// exist when registered or when a note lives in them; children are listed
// in their recorded order, falling back to creation order (folders first).
type Tree struct {
	store  *document.Store
	orders OrderStore
	logger *slog.Logger

	folders   []string
	collapsed map[string]bool
	order     map[string][]string
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithOrderStore persists order lists.
func WithOrderStore(s OrderStore) TreeOption {
	return func(t *Tree) { t.orders = s }
}

// WithTreeLogger sets the logger.
func WithTreeLogger(l *slog.Logger) TreeOption {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTree creates a tree over the notes of store.
func NewTree(store *document.Store, opts ...TreeOption) *Tree {
	t := &Tree{
		store:     store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		collapsed: make(map[string]bool),
		order:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store returns the document store the tree lists.
func (t *Tree) Store() *document.Store { return t.store }

// Load reads the persisted order lists.
func (t *Tree) Load(ctx context.Context) error {
	if t.orders == nil {
		return nil
	}
	orders, err := t.orders.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("load sidebar order: %w", err)
	}
	for parent, keys := range orders {
		t.order[parent] = slices.Clone(keys)
	}
	return nil
}

// AddFolder registers a folder and its ancestors.
func (t *Tree) AddFolder(path string) bool {
	path = cleanPath(path)
	if path == "" || slices.Contains(t.folders, path) {
		return false
	}
	if parent := ParentPath(path); parent != "" {
		t.AddFolder(parent)
	}
	t.folders = append(t.folders, path)
	return true
}

// Folders lists every folder: registered ones in creation order, then those
// only implied by a note's folder path.
func (t *Tree) Folders() []string {
	out := slices.Clone(t.folders)
	for _, n := range t.store.Notes() {
		p := n.FolderPath()
		var chain []string
		for ; p != ""; p = ParentPath(p) {
			chain = append(chain, p)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			if !slices.Contains(out, chain[i]) {
				out = append(out, chain[i])
			}
		}
	}
	return out
}

// HasFolder reports whether a folder exists.
func (t *Tree) HasFolder(path string) bool {
	return slices.Contains(t.Folders(), path)
}

// Collapsed reports whether a folder hides its children.
func (t *Tree) Collapsed(path string) bool { return t.collapsed[path] }

// SetCollapsed folds or unfolds a folder.
func (t *Tree) SetCollapsed(path string, collapsed bool) {
	if collapsed {
		t.collapsed[path] = true
		return
	}
	delete(t.collapsed, path)
}

// Order returns the recorded order list of a parent.
func (t *Tree) Order(parent string) []string {
	return slices.Clone(t.order[parent])
}

// SetOrder records and persists the order list of a parent. The in-memory
// order is kept even when persisting fails.
func (t *Tree) SetOrder(ctx context.Context, parent string, keys []string) error {
	t.order[parent] = slices.Clone(keys)
	if t.orders == nil {
		return nil
	}
	if err := t.orders.SaveOrder(ctx, parent, keys); err != nil {
		return fmt.Errorf("save sidebar order %q: %w", parent, err)
	}
	return nil
}

// Contains reports whether the item exists.
func (t *Tree) Contains(item Item) bool {
	if item.Kind == KindFolder {
		return t.HasFolder(item.ID)
	}
	_, ok := t.store.Note(item.ID)
	return ok
}

// ParentOf returns the folder that holds an item.
func (t *Tree) ParentOf(item Item) string {
	if item.Kind == KindFolder {
		return ParentPath(item.ID)
	}
	n, _ := t.store.Note(item.ID)
	return n.FolderPath()
}

// Children lists the items directly under parent.
func (t *Tree) Children(parent string) []Item {
	var natural []Item
	for _, f := range t.Folders() {
		if ParentPath(f) == parent {
			natural = append(natural, FolderItem(f))
		}
	}
	for _, n := range t.store.Notes() {
		if n.FolderPath() == parent {
			natural = append(natural, NoteItem(n.ID))
		}
	}
	order := t.order[parent]
	if len(order) == 0 {
		return natural
	}

	present := make(map[string]bool, len(natural))
	for _, it := range natural {
		present[it.Key()] = true
	}
	out := make([]Item, 0, len(natural))
	used := make(map[string]bool, len(natural))
	for _, key := range order {
		if present[key] && !used[key] {
			it, _ := ParseKey(key)
			out = append(out, it)
			used[key] = true
		}
	}
	for _, it := range natural {
		if !used[it.Key()] {
			out = append(out, it)
		}
	}
	return out
}

// Keys returns the order keys of the children of parent.
func (t *Tree) Keys(parent string) []string {
	items := t.Children(parent)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

// Rows flattens the tree depth first, skipping the children of collapsed
// folders.
func (t *Tree) Rows() []Row {
	var out []Row
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, it := range t.Children(parent) {
			row := Row{Item: it, Parent: parent, Depth: depth}
			if it.Kind == KindFolder {
				row.Title = BaseName(it.ID)
				row.Collapsed = t.collapsed[it.ID]
				out = append(out, row)
				if !row.Collapsed {
					walk(it.ID, depth+1)
				}
				continue
			}
			n, _ := t.store.Note(it.ID)
			row.Title = n.Title
			out = append(out, row)
		}
	}
	walk("", 0)
	return out
}

// MoveFolder moves a folder with everything in it under toParent and
// returns its new path. It refuses to move a folder into itself or a
// descendant, or onto an existing folder.
func (t *Tree) MoveFolder(from, toParent string) (string, bool) {
	from, toParent = cleanPath(from), cleanPath(toParent)
	to := join(toParent, BaseName(from))
	if from == "" || to == from || Within(toParent, from) || t.HasFolder(to) || !t.HasFolder(from) {
		return "", false
	}
	rename := func(p string) string {
		if Within(p, from) {
			return to + p[len(from):]
		}
		return p
	}

	for _, n := range t.store.Notes() {
		if fp := n.FolderPath(); fp != "" && Within(fp, from) {
			dest := rename(fp)
			t.store.SetFolder(n.ID, &dest)
		}
	}
	for i, f := range t.folders {
		t.folders[i] = rename(f)
	}
	collapsed := make(map[string]bool, len(t.collapsed))
	for p := range t.collapsed {
		collapsed[rename(p)] = true
	}
	t.collapsed = collapsed

	order := make(map[string][]string, len(t.order))
	for parent, keys := range t.order {
		renamed := make([]string, len(keys))
		for i, key := range keys {
			if it, ok := ParseKey(key); ok && it.Kind == KindFolder {
				key = FolderItem(rename(it.ID)).Key()
			}
			renamed[i] = key
		}
		order[rename(parent)] = renamed
	}
	t.order = order
	t.AddFolder(to)
	t.logger.Debug("folder moved", "from", from, "to", to)
	return to, true
}
