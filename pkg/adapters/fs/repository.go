// Package fs stores notes as files in a directory, optionally versioned
// with git.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/git"
)

// DefaultSystemDir holds the index and the sidebar order.
const DefaultSystemDir = ".quire"

// Repository implements core.Repository on top of the filesystem.
// Each note is one file named after its id; the extension picks the
// serializer.
type Repository struct {
	Path        string
	config      Config
	serializers map[string]Serializer
	cache       *cache
	git         *git.Client

	mu            sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time

	ordersMu sync.Mutex
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path string
	// Format is the extension used for new notes (".json" by default).
	Format string
	// AutoInit runs git init when versioning an unversioned directory.
	AutoInit  bool
	MustExist bool
	ReadOnly  bool
	// Versioning commits every write with git.
	Versioning bool
	SystemDir  string
	Logger     *slog.Logger
	// ErrorHandler receives watcher and reconcile errors.
	ErrorHandler func(error)
	// Serializers overrides DefaultSerializers.
	Serializers map[string]Serializer
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Format == "" {
		config.Format = ".json"
	}
	if !strings.HasPrefix(config.Format, ".") {
		config.Format = "." + config.Format
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	serializers := config.Serializers
	if serializers == nil {
		serializers = DefaultSerializers()
	}
	return &Repository{
		Path:        config.Path,
		config:      config,
		serializers: serializers,
		cache:       newCache(config.Path, config.SystemDir),
		git: git.NewClient(config.Path,
			git.WithLogger(config.Logger),
			git.WithLockFile(config.SystemDir+".lock")),
	}
}

// Initialize prepares the directory, the index and, when versioning, the
// git repository.
func (r *Repository) Initialize(ctx context.Context) error {
	info, err := os.Stat(r.Path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("notes path is not a directory: %s", r.Path)
	case os.IsNotExist(err) && (r.config.MustExist || r.config.ReadOnly):
		return fmt.Errorf("notes path does not exist: %s", r.Path)
	case os.IsNotExist(err):
		if err := os.MkdirAll(r.Path, 0755); err != nil {
			return fmt.Errorf("failed to create notes directory: %w", err)
		}
	case err != nil:
		return err
	}

	if !r.config.ReadOnly {
		if err := os.MkdirAll(filepath.Join(r.Path, r.config.SystemDir), 0755); err != nil {
			return fmt.Errorf("failed to create system directory: %w", err)
		}
	}
	if err := r.cache.Load(); err != nil {
		return err
	}

	if !r.config.Versioning {
		return nil
	}
	if !git.Installed() {
		return errors.New("versioning requires git, which is not installed")
	}
	fresh := false
	if !r.git.IsRepo(ctx) {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		fresh = true
	}
	changed, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if changed && fresh {
		return r.commit(ctx, []string{".gitignore"}, nil, "chore: ignore "+r.config.SystemDir)
	}
	return nil
}

func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	have := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		have[strings.TrimSpace(line)] = true
	}
	var missing []string
	for _, entry := range []string{r.config.SystemDir + "/", r.config.SystemDir + ".lock", TempFilePrefix + "*"} {
		if !have[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	_, err = f.WriteString(strings.Join(missing, "\n") + "\n")
	return err == nil, err
}

// Save writes a note and, when versioning, commits it. The commit message
// is the change reason from ctx, or "update <id>".
func (r *Repository) Save(ctx context.Context, n core.Note) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	name, err := r.write(n)
	if err != nil {
		return err
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to save index", "error", err)
	}
	return r.commit(ctx, []string{name}, nil, reason(ctx, "update "+n.ID))
}

// Get reads a note by id.
func (r *Repository) Get(ctx context.Context, id string) (core.Note, error) {
	name, ok := r.find(id)
	if !ok {
		return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return r.read(name)
}

// List reads every note, oldest first.
func (r *Repository) List(ctx context.Context) ([]core.Note, error) {
	names, err := r.files()
	if err != nil {
		return nil, err
	}
	notes := make([]core.Note, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.read(name)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable note", "path", name, "error", err)
			continue
		}
		notes = append(notes, n)
	}
	sortNotes(notes)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("failed to save index", "error", err)
		}
	}
	return notes, nil
}

// Delete removes a note and, when versioning, commits the removal.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	name, err := r.remove(id)
	if err != nil {
		return err
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to save index", "error", err)
	}
	return r.commit(ctx, nil, []string{name}, reason(ctx, "delete "+id))
}

// Summary describes a note without its blocks.
type Summary struct {
	ID      string
	Title   string
	Folder  *string
	Created time.Time
	Blocks  int
}

// Summaries lists notes from the index, parsing only files that changed
// since they were indexed.
func (r *Repository) Summaries(ctx context.Context) ([]Summary, error) {
	names, err := r.files()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(names))
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		keep[name] = true
		entry, err := r.entry(name)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable note", "path", name, "error", err)
			continue
		}
		out = append(out, Summary{ID: entry.ID, Title: entry.Title, Folder: entry.Folder, Created: entry.Created, Blocks: entry.Blocks})
	}
	r.cache.Prune(keep)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("failed to save index", "error", err)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// History lists the commits that touched a note, newest first.
func (r *Repository) History(ctx context.Context, id string, limit int) ([]git.Commit, error) {
	if !r.config.Versioning {
		return nil, errors.New("history requires versioning")
	}
	name, ok := r.find(id)
	if !ok {
		name = id + r.config.Format
	}
	return r.git.Log(ctx, name, limit)
}

// Reconcile compares the index with the directory and reports what
// changed behind the repository's back.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	before := r.cache.Snapshot()
	names, err := r.files()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	var events []core.Event
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		keep[name] = true
		old, known := before[name]
		info, err := os.Stat(filepath.Join(r.Path, name))
		if err != nil {
			continue
		}
		if known && old.LastModified.Equal(info.ModTime()) {
			continue
		}
		entry, err := r.entry(name)
		if err != nil {
			continue
		}
		typ := core.EventModify
		if !known {
			typ = core.EventCreate
		}
		events = append(events, core.Event{Type: typ, ID: entry.ID, Timestamp: now})
	}
	for name, old := range before {
		if !keep[name] {
			events = append(events, core.Event{Type: core.EventDelete, ID: old.ID, Timestamp: now})
		}
	}
	r.cache.Prune(keep)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("failed to save index", "error", err)
		}
	}
	r.recordReconcile()
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

// write serializes n to its file and indexes it. It returns the file name.
func (r *Repository) write(n core.Note) (string, error) {
	if err := validID(n.ID); err != nil {
		return "", err
	}
	name, ok := r.find(n.ID)
	if !ok {
		name = n.ID + r.config.Format
	}
	s, ok := r.serializers[filepath.Ext(name)]
	if !ok {
		return "", fmt.Errorf("no serializer for %s", filepath.Ext(name))
	}
	data, err := s.Serialize(n)
	if err != nil {
		return "", fmt.Errorf("failed to serialize note %s: %w", n.ID, err)
	}
	err = writeFileAtomicThen(filepath.Join(r.Path, name), data, 0644, func(info os.FileInfo) {
		r.cache.Set(name, summarize(n, info.ModTime()))
	})
	if err != nil {
		r.cache.Delete(name)
		return "", fmt.Errorf("failed to write note %s: %w", n.ID, err)
	}
	return name, nil
}

func (r *Repository) remove(id string) (string, error) {
	name, ok := r.find(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	r.cache.Delete(name)
	if err := os.Remove(filepath.Join(r.Path, name)); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove note %s: %w", id, err)
	}
	return name, nil
}

func (r *Repository) commit(ctx context.Context, add, rm []string, msg string) error {
	if !r.config.Versioning {
		return nil
	}
	unlock, err := r.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := r.git.Add(ctx, add...); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	if err := r.git.Rm(ctx, rm...); err != nil {
		return fmt.Errorf("failed to git rm: %w", err)
	}
	if err := r.git.Commit(ctx, msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// read parses a note file. A note without an id takes the file's.
func (r *Repository) read(name string) (core.Note, error) {
	s, ok := r.serializers[filepath.Ext(name)]
	if !ok {
		return core.Note{}, fmt.Errorf("no serializer for %s", filepath.Ext(name))
	}
	full := filepath.Join(r.Path, name)
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, name)
		}
		return core.Note{}, err
	}
	defer f.Close()

	n, err := s.Parse(f)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to parse note %s: %w", name, err)
	}
	n.ID = strings.TrimSuffix(name, filepath.Ext(name))
	if info, err := f.Stat(); err == nil {
		r.cache.Set(name, summarize(n, info.ModTime()))
	}
	return n, nil
}

// entry returns the index entry for name, re-reading the file when stale.
func (r *Repository) entry(name string) (indexEntry, error) {
	info, err := os.Stat(filepath.Join(r.Path, name))
	if err != nil {
		return indexEntry{}, err
	}
	if e, ok := r.cache.Get(name, info.ModTime()); ok {
		return *e, nil
	}
	n, err := r.read(name)
	if err != nil {
		return indexEntry{}, err
	}
	return *summarize(n, info.ModTime()), nil
}

// find locates the file holding id, preferring the configured format.
func (r *Repository) find(id string) (string, bool) {
	if validID(id) != nil {
		return "", false
	}
	for _, ext := range r.extensions() {
		name := id + ext
		if info, err := os.Stat(filepath.Join(r.Path, name)); err == nil && !info.IsDir() {
			return name, true
		}
	}
	return "", false
}

func (r *Repository) extensions() []string {
	exts := []string{r.config.Format}
	var rest []string
	for ext := range r.serializers {
		if ext != r.config.Format {
			rest = append(rest, ext)
		}
	}
	sort.Strings(rest)
	return append(exts, rest...)
}

// files lists note file names in the directory.
func (r *Repository) files() ([]string, error) {
	entries, err := os.ReadDir(r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes directory: %w", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if !r.isNoteFile(e.Name()) || e.IsDir() {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if seen[id] {
			r.config.Logger.Warn("duplicate note id, keeping first file", "id", id, "path", e.Name())
			continue
		}
		seen[id] = true
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (r *Repository) isNoteFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, TempFilePrefix) {
		return false
	}
	_, ok := r.serializers[filepath.Ext(name)]
	return ok
}

func summarize(n core.Note, mtime time.Time) *indexEntry {
	return &indexEntry{
		ID:           n.ID,
		Title:        n.Title,
		Folder:       n.Folder,
		Created:      n.Created,
		Blocks:       len(n.Content.Blocks),
		LastModified: mtime,
	}
}

func sortNotes(notes []core.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].Created.Equal(notes[j].Created) {
			return notes[i].Created.Before(notes[j].Created)
		}
		return notes[i].ID < notes[j].ID
	})
}

// validID rejects ids that would escape the directory or hide the file.
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: bad id %q", core.ErrInvalidNote, id)
	}
	return nil
}

func reason(ctx context.Context, fallback string) string {
	if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
		return val
	}
	return fallback
}
