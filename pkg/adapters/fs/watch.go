package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/quire/pkg/core"
)

// DebounceDelay coalesces bursts of writes to one file.
const DebounceDelay = 50 * time.Millisecond

// Watch reports notes changed outside this repository, such as edits in
// another editor or a git checkout. pattern is a doublestar glob matched
// against file names ("*" or "" for all notes, "*.md" for markdown only).
// Writes made through the repository itself are not reported. The channel
// closes when ctx is done.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(r.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", r.Path, err)
	}

	events := make(chan core.Event)
	w := &watchLoop{
		repo:      r,
		pattern:   pattern,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(DebounceDelay),
	}
	r.setWatcherActive(true)
	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		r.reportError(fmt.Errorf("watcher: %w", err))
	}))
	return events, nil
}

type watchLoop struct {
	repo      *Repository
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

func (w *watchLoop) run(ctx context.Context) (err error) {
	logger := w.repo.config.Logger
	defer func() {
		w.debouncer.stopAndWait(5 * time.Second)
		close(w.events)
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(ctx, event)
		case werr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", werr)
			w.repo.reportError(werr)
		}
	}
}

func (w *watchLoop) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	w.repo.config.Logger.Debug("event received", "path", name, "op", event.Op.String())

	if !w.repo.isNoteFile(name) {
		return
	}
	if ok, _ := doublestar.Match(w.pattern, name); !ok {
		return
	}
	typ := w.classify(name, event)
	if typ == "" {
		return
	}

	w.debouncer.add(core.Event{
		Type:      typ,
		ID:        strings.TrimSuffix(name, filepath.Ext(name)),
		Timestamp: time.Now().Unix(),
	}, func(e core.Event) {
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

// classify maps an fsnotify event to a note event, or "" for the
// repository's own writes. The index remembers the mtime of every file
// the repository wrote; a file that still matches it changed through us.
func (w *watchLoop) classify(name string, event fsnotify.Event) core.EventType {
	info, err := os.Stat(filepath.Join(w.repo.Path, name))
	if err != nil || event.Has(fsnotify.Remove) {
		if _, known := w.repo.cache.Snapshot()[name]; !known {
			return ""
		}
		w.repo.cache.Delete(name)
		return core.EventDelete
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return ""
	}
	if _, fresh := w.repo.cache.Get(name, info.ModTime()); fresh {
		return ""
	}
	_, known := w.repo.cache.Snapshot()[name]
	if _, err := w.repo.entry(name); err != nil {
		// Half-written file; the next write event will retry.
		return ""
	}
	if !known {
		return core.EventCreate
	}
	return core.EventModify
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("repository error", "error", err)
}
