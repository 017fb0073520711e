package fs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/quire/pkg/core"
)

// ErrTransactionClosed is returned by a committed or rolled back transaction.
var ErrTransactionClosed = errors.New("transaction closed")

// Transaction batches saves and deletes into one write pass and, when
// versioning, one commit.
type Transaction struct {
	repo    *Repository
	staged  map[string]core.Note
	deleted map[string]bool
	mu      sync.Mutex
	closed  bool
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) (*Transaction, error) {
	if r.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	return &Transaction{
		repo:    r,
		staged:  make(map[string]core.Note),
		deleted: make(map[string]bool),
	}, nil
}

// Save stages a note.
func (t *Transaction) Save(ctx context.Context, n core.Note) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	if err := validID(n.ID); err != nil {
		return err
	}
	t.staged[n.ID] = n.Clone()
	delete(t.deleted, n.ID)
	return nil
}

// Get reads a note, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, id string) (core.Note, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.Note{}, ErrTransactionClosed
	}
	if t.deleted[id] {
		return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if n, ok := t.staged[id]; ok {
		return n.Clone(), nil
	}
	return t.repo.Get(ctx, id)
}

// Delete stages a removal.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.deleted[id] = true
	delete(t.staged, id)
	return nil
}

// Commit applies the staged changes. changeReason becomes the commit
// message; an empty reason falls back to a summary of the batch.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true

	ids := make([]string, 0, len(t.staged))
	for id := range t.staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var add, rm []string
	for _, id := range ids {
		name, err := t.repo.write(t.staged[id])
		if err != nil {
			return err
		}
		add = append(add, name)
	}
	for id := range t.deleted {
		name, err := t.repo.remove(id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		rm = append(rm, name)
	}

	if err := t.repo.cache.Save(); err != nil {
		t.repo.config.Logger.Warn("failed to save index", "error", err)
	}

	msg := changeReason
	if msg == "" {
		msg = fmt.Sprintf("update %d notes, delete %d", len(add), len(rm))
	}
	return t.repo.commit(ctx, add, rm, msg)
}

// Rollback discards the staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = nil
	t.deleted = nil
	t.closed = true
	return nil
}
