// Package sqlite stores notes and sidebar order in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aretw0/quire/pkg/core"
)

// DSNOptions enables WAL and waits on a busy database instead of failing.
const DSNOptions = "_busy_timeout=5000&_journal_mode=WAL"

const schema = `
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    folder TEXT,
    blocks_json TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_created ON notes(created_at, id);
CREATE TABLE IF NOT EXISTS sidebar_order (
    parent TEXT NOT NULL,
    position INTEGER NOT NULL,
    item TEXT NOT NULL,
    PRIMARY KEY (parent, position)
);
`

// Repository implements core.Repository and sidebar.OrderStore.
type Repository struct {
	path   string
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Open opens (or creates) the database at path. ":memory:" is accepted for tests.
func Open(path string, opts ...Option) (*Repository, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&" + DSNOptions
	} else {
		dsn += "?" + DSNOptions
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	r := &Repository{
		path:   path,
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Initialize creates the schema. It is idempotent.
func (r *Repository) Initialize(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Save upserts a note.
func (r *Repository) Save(ctx context.Context, n core.Note) error {
	if n.ID == "" {
		return fmt.Errorf("%w: missing id", core.ErrInvalidNote)
	}
	blocks, err := json.Marshal(n.Content.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}

	var folder sql.NullString
	if n.Folder != nil {
		folder = sql.NullString{String: *n.Folder, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO notes (id, title, folder, blocks_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    title = excluded.title,
    folder = excluded.folder,
    blocks_json = excluded.blocks_json,
    updated_at = excluded.updated_at`,
		n.ID, n.Title, folder, string(blocks),
		n.Created.UTC().Format(time.RFC3339Nano),
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save note %s: %w", n.ID, err)
	}
	r.logger.Debug("note saved", "id", n.ID, "blocks", len(n.Content.Blocks))
	return nil
}

// Get retrieves a note by id.
func (r *Repository) Get(ctx context.Context, id string) (core.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, folder, blocks_json, created_at FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return n, err
}

// List returns every note, oldest first.
func (r *Repository) List(ctx context.Context) ([]core.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, folder, blocks_json, created_at FROM notes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Delete removes a note. It returns core.ErrNotFound when no row matched.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

// LoadOrders returns the recorded sidebar order per parent folder.
func (r *Repository) LoadOrders(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT parent, item FROM sidebar_order ORDER BY parent, position`)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	defer rows.Close()

	orders := make(map[string][]string)
	for rows.Next() {
		var parent, item string
		if err := rows.Scan(&parent, &item); err != nil {
			return nil, err
		}
		orders[parent] = append(orders[parent], item)
	}
	return orders, rows.Err()
}

// SaveOrder replaces the order of one folder's children. Empty keys clear it.
func (r *Repository) SaveOrder(ctx context.Context, parent string, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sidebar_order WHERE parent = ?`, parent); err != nil {
		return fmt.Errorf("clear order %q: %w", parent, err)
	}
	for i, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sidebar_order (parent, position, item) VALUES (?, ?, ?)`, parent, i, key); err != nil {
			return fmt.Errorf("save order %q: %w", parent, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (core.Note, error) {
	var (
		n       core.Note
		folder  sql.NullString
		blocks  string
		created string
	)
	if err := s.Scan(&n.ID, &n.Title, &folder, &blocks, &created); err != nil {
		return core.Note{}, err
	}
	if folder.Valid {
		f := folder.String
		n.Folder = &f
	}
	if err := json.Unmarshal([]byte(blocks), &n.Content.Blocks); err != nil {
		return core.Note{}, fmt.Errorf("%w: blocks of %s: %v", core.ErrInvalidNote, n.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return core.Note{}, fmt.Errorf("%w: created_at of %s: %v", core.ErrInvalidNote, n.ID, err)
	}
	n.Created = t
	n.Content.Title = n.Title
	return n, nil
}

// RepositoryState is the introspection view of the database.
type RepositoryState struct {
	Path      string `json:"path"`
	Notes     int    `json:"notes"`
	OpenConns int    `json:"open_conns"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	st := RepositoryState{Path: r.path, OpenConns: r.db.Stats().OpenConnections}
	_ = r.db.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&st.Notes)
	return st
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite-repository"
}

var _ core.Repository = (*Repository)(nil)
var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
